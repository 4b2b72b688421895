package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "add_orders", "add_orders"},
		{"spaces", "add order tracking", "add_order_tracking"},
		{"hyphens", "add-price-records", "add_price_records"},
		{"mixed case", "Add Stock Movements", "add_stock_movements"},
		{"special characters", "drop!@#table", "droptable"},
		{"leading and trailing noise", "  _add_index_  ", "add_index"},
		{"nothing usable", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("writes an up and down pair", func(t *testing.T) {
		dir := t.TempDir()

		upPath, downPath, err := CreateMigration(dir, "add order tracking")
		require.NoError(t, err)

		assert.True(t, strings.HasSuffix(upPath, "_add_order_tracking.up.sql"))
		assert.True(t, strings.HasSuffix(downPath, "_add_order_tracking.down.sql"))

		upBody, err := os.ReadFile(upPath)
		require.NoError(t, err)
		assert.Contains(t, string(upBody), "add_order_tracking")

		_, err = os.Stat(downPath)
		assert.NoError(t, err)
	})

	t.Run("rejects a name with no usable characters", func(t *testing.T) {
		_, _, err := CreateMigration(t.TempDir(), "???")
		assert.Error(t, err)
	})

	t.Run("creates the directory if missing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "migrations")

		_, _, err := CreateMigration(dir, "init")
		require.NoError(t, err)

		names, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Len(t, names, 2)
	})
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "2_b.up.sql"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_a.up.sql"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"1_a.up.sql", "2_b.up.sql"}, names)
}
