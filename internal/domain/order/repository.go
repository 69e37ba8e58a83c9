package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/shared"
)

// ListFilter narrows order listings for staff
type ListFilter struct {
	shared.Filter
	Status        Status
	PaymentStatus PaymentStatus
	PaymentMode   PaymentMode
	UserID        *uuid.UUID
	From          *time.Time
	To            *time.Time
}

// PendingQuery pages through online orders that are still awaiting payment
// and already have a gateway reference to ask about, oldest first
type PendingQuery struct {
	OlderThan time.Time
	// After resumes behind the last order of the previous page. The zero
	// value starts from the oldest order
	After PendingCursor
	Limit int
}

// PendingCursor is a position in created_at, id order
type PendingCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func (c PendingCursor) IsZero() bool { return c.CreatedAt.IsZero() && c.ID == uuid.Nil }

// CursorAfter is the position just behind o
func CursorAfter(o *Order) PendingCursor {
	return PendingCursor{CreatedAt: o.CreatedAt, ID: o.ID}
}

// Repository persists orders
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*Order, error)
	// FindByGatewayReference finds an order by the id its payment provider knows it by
	FindByGatewayReference(ctx context.Context, provider PaymentProvider, reference string) (*Order, error)
	FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Order, int64, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int64, error)
	// FindPendingOnline returns one page of the orders q describes
	FindPendingOnline(ctx context.Context, q PendingQuery) ([]Order, error)
	ExistsByNumber(ctx context.Context, orderNumber string) (bool, error)
	// Save inserts a new order
	Save(ctx context.Context, o *Order) error
	// SaveWithLock updates an order if its version is unchanged and bumps the version.
	// Returns shared.ErrConcurrencyConflict when another writer got there first
	SaveWithLock(ctx context.Context, o *Order) error
}
