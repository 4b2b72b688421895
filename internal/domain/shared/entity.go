package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and audit fields every persisted
// aggregate embeds. IDs are assigned in the application, not by the
// database, so inserts stay idempotent across retries.
type BaseEntity struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

// NewBaseEntity assigns a fresh ID and stamps both audit fields
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
