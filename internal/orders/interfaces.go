package orders

import (
	"context"
	"time"

	"github.com/Gulhayo05/Surprise-Bag/internal/notifications"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	"github.com/Gulhayo05/Surprise-Bag/pkg/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes the persistence surface for orders and the bag
// inventory counters they move.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	// ReserveStock moves qty units from available to sold when the bag is
	// active and has enough stock. It reports false when nothing changed.
	ReserveStock(ctx context.Context, bagID uuid.UUID, qty int) (bool, error)
	// RestoreStock returns qty units to the available pool.
	RestoreStock(ctx context.Context, bagID uuid.UUID, qty int) error
	FindBag(ctx context.Context, bagID uuid.UUID) (*models.Bag, error)

	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*OrderDetail, error)
	// UpdateStatus moves the order to `to` only if its status is one of from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, at time.Time) (bool, error)
	// SetRating stores a rating on a completed, unrated order.
	SetRating(ctx context.Context, id uuid.UUID, rating int, feedback *string, at time.Time) (bool, error)

	List(ctx context.Context, params listOrdersParams) ([]OrderDetail, error)
	ListReviews(ctx context.Context, params listReviewsParams) ([]Review, error)
	// ListDueForReminder returns open orders on active bags whose pickup
	// window ends within [from, to].
	ListDueForReminder(ctx context.Context, from, to time.Time) ([]OrderDetail, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	Dispatch(ctx context.Context, msg notifications.Message) bool
}
