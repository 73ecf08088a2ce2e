package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	dbpkg "github.com/Gulhayo05/Surprise-Bag/pkg/db"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	pkgerrors "github.com/Gulhayo05/Surprise-Bag/pkg/errors"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/metrics"
	"github.com/Gulhayo05/Surprise-Bag/pkg/outbox"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	pickupCodeLength          = 8
	pickupCodeConstraintHint  = "pickup_code"
	defaultPickupCodeAttempts = 3
)

// ReserveInput identifies the bag, buyer and number of units to claim.
type ReserveInput struct {
	BagID      uuid.UUID
	CustomerID uuid.UUID
	Quantity   int
}

// Reservation is the committed result of Reserve.
type Reservation struct {
	Order models.Order
	Bag   models.Bag
}

// CoordinatorParams wires the reservation coordinator.
type CoordinatorParams struct {
	Repo               Repository
	Tx                 txRunner
	Outbox             outboxPublisher
	Metrics            *metrics.OrderMetrics
	Logger             *logger.Logger
	PickupCodeAttempts int
	Now                func() time.Time
	NewPickupCode      func() string
}

// Coordinator moves bag units between available and committed. Every stock
// change is a single guarded UPDATE on the bag row, so concurrent callers on
// the same bag serialize on that row and different bags never contend.
type Coordinator struct {
	repo          Repository
	tx            txRunner
	outbox        outboxPublisher
	metrics       *metrics.OrderMetrics
	logg          *logger.Logger
	attempts      int
	now           func() time.Time
	newPickupCode func() string
}

func NewCoordinator(p CoordinatorParams) (*Coordinator, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if p.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if p.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	c := &Coordinator{
		repo:          p.Repo,
		tx:            p.Tx,
		outbox:        p.Outbox,
		metrics:       p.Metrics,
		logg:          p.Logger,
		attempts:      p.PickupCodeAttempts,
		now:           p.Now,
		newPickupCode: p.NewPickupCode,
	}
	if c.logg == nil {
		c.logg = logger.Nop()
	}
	if c.attempts <= 0 {
		c.attempts = defaultPickupCodeAttempts
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	if c.newPickupCode == nil {
		c.newPickupCode = NewPickupCode
	}
	return c, nil
}

// NewPickupCode returns an 8 character uppercase hex code.
func NewPickupCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:pickupCodeLength])
}

// Reserve claims quantity units of the bag and creates a pending order in the
// same transaction. A pickup code collision retries the whole transaction
// with a fresh code.
func (c *Coordinator) Reserve(ctx context.Context, input ReserveInput) (*Reservation, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.BagID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bag id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	logCtx := c.logg.WithBagID(ctx, input.BagID.String())
	for attempt := 1; ; attempt++ {
		var reservation *Reservation
		err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var txErr error
			reservation, txErr = c.reserveTx(ctx, tx, input)
			return txErr
		})

		switch {
		case err == nil:
			c.metrics.IncReservation(metrics.ReservationReserved)
			return reservation, nil
		case dbpkg.IsUniqueViolation(err, pickupCodeConstraintHint):
			if attempt < c.attempts {
				c.logg.Warn(c.logg.WithField(logCtx, "attempt", attempt), "pickup code collision, retrying reservation")
				continue
			}
			c.metrics.IncReservation(metrics.ReservationConflict)
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate a unique pickup code")
		case dbpkg.IsUniqueViolation(err, ""):
			c.metrics.IncReservation(metrics.ReservationConflict)
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "duplicate order for this bag")
		case pkgerrors.HasCode(err, pkgerrors.CodeUnavailable):
			c.metrics.IncReservation(metrics.ReservationUnavailable)
			return nil, err
		case pkgerrors.As(err) != nil:
			return nil, err
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve bag")
		}
	}
}

func (c *Coordinator) reserveTx(ctx context.Context, tx *gorm.DB, input ReserveInput) (*Reservation, error) {
	repo := c.repo.WithTx(tx)

	ok, err := repo.ReserveStock(ctx, input.BagID, input.Quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "bag is unavailable or has insufficient quantity").
			WithDetails(map[string]any{"bag_id": input.BagID, "quantity": input.Quantity})
	}

	bag, err := repo.FindBag(ctx, input.BagID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bag")
	}

	now := c.now()
	customerID := input.CustomerID
	order := models.Order{
		CustomerID: &customerID,
		BagID:      bag.ID,
		Quantity:   input.Quantity,
		TotalPrice: bag.DiscountPrice.Mul(decimal.NewFromInt(int64(input.Quantity))),
		Status:     enums.OrderStatusPending,
		PickupCode: c.newPickupCode(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Create(ctx, &order); err != nil {
		return nil, err
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: customerID, Role: enums.UserRoleCustomer},
		Data:          orderEventData(&order, bag.BusinessID),
		OccurredAt:    now,
	}
	if err := c.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order placed event")
	}

	return &Reservation{Order: order, Bag: *bag}, nil
}

// Release cancels the order and returns its units to the bag inside tx. The
// status update is guarded on pending|confirmed, so an order is released at
// most once; quantity_sold keeps its historical value.
func (c *Coordinator) Release(ctx context.Context, tx *gorm.DB, order *models.Order, at time.Time) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	repo := c.repo.WithTx(tx)

	moved, err := repo.UpdateStatus(ctx, order.ID, sourcesFor(EventCancel), enums.OrderStatusCancelled, at)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	if !moved {
		return c.rejectTransition(ctx, repo, order.ID, EventCancel)
	}

	if err := repo.RestoreStock(ctx, order.BagID, order.Quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
	}
	c.metrics.IncReservation(metrics.ReservationReleased)
	return nil
}

// rejectTransition re-reads the order after a guarded update matched nothing.
func (c *Coordinator) rejectTransition(ctx context.Context, repo Repository, orderID uuid.UUID, event Event) error {
	current, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return invalidTransition(current.Status, event)
}

func orderEventData(order *models.Order, businessID uuid.UUID) outbox.OrderEvent {
	return outbox.OrderEvent{
		OrderID:    order.ID,
		BagID:      order.BagID,
		BusinessID: businessID,
		CustomerID: order.CustomerID,
		Quantity:   order.Quantity,
		TotalPrice: order.TotalPrice,
		Status:     order.Status,
		Rating:     order.Rating,
	}
}
