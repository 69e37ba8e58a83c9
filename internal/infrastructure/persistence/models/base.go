package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wellnest/backend/internal/domain/shared"
)

// Row holds the columns every table shares.
type Row struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (r *Row) entity() shared.Entity {
	return shared.Entity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (r *Row) setEntity(e shared.Entity) {
	r.ID, r.CreatedAt, r.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// VersionedRow adds the optimistic-lock column of aggregate tables.
type VersionedRow struct {
	Row
	Version int `gorm:"not null;default:1"`
}

func (r *VersionedRow) aggregate() shared.Aggregate {
	return shared.Aggregate{Entity: r.entity(), Version: r.Version}
}

func (r *VersionedRow) setAggregate(a shared.Aggregate) {
	r.setEntity(a.Entity)
	r.Version = a.Version
}
