package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the identity and timestamps every stored record carries.
type Entity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewEntity(now time.Time) Entity {
	return Entity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

func (e *Entity) Touch(at time.Time) { e.UpdatedAt = at }

// Aggregate is an Entity written under optimistic locking: a save only
// lands when the stored row still has Version, and bumps it.
type Aggregate struct {
	Entity
	Version int
}

func NewAggregate(now time.Time) Aggregate {
	return Aggregate{Entity: NewEntity(now), Version: 1}
}
