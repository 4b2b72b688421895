package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

var nameSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// CreateMigration writes an empty up/down pair into dir using a timestamp
// version prefix. Returns the two file paths created.
func CreateMigration(dir, name string) (string, string, error) {
	sanitized := sanitizeName(name)
	if sanitized == "" {
		return "", "", fmt.Errorf("migration name %q contains no usable characters", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create migrations directory: %w", err)
	}

	version := time.Now().UTC().Format("20060102150405")
	upPath := filepath.Join(dir, fmt.Sprintf("%s_%s.up.sql", version, sanitized))
	downPath := filepath.Join(dir, fmt.Sprintf("%s_%s.down.sql", version, sanitized))

	upBody := fmt.Sprintf("-- %s\n-- Write the forward migration here.\n", sanitized)
	downBody := fmt.Sprintf("-- %s\n-- Write the rollback here.\n", sanitized)

	if err := os.WriteFile(upPath, []byte(upBody), 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", upPath, err)
	}
	if err := os.WriteFile(downPath, []byte(downBody), 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", downPath, err)
	}

	return upPath, downPath, nil
}

// ListMigrations returns the migration file names in dir, sorted by version
func ListMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func sanitizeName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	lowered = strings.ReplaceAll(lowered, " ", "_")
	lowered = strings.ReplaceAll(lowered, "-", "_")
	sanitized := nameSanitizer.ReplaceAllString(lowered, "")
	return strings.Trim(sanitized, "_")
}
