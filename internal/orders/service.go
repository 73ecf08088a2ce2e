package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gulhayo05/Surprise-Bag/internal/notifications"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	pkgerrors "github.com/Gulhayo05/Surprise-Bag/pkg/errors"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/metrics"
	"github.com/Gulhayo05/Surprise-Bag/pkg/outbox"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	minRating = 1
	maxRating = 5
)

// Service is the order lifecycle exposed to the API.
type Service interface {
	Place(ctx context.Context, actor Actor, input PlaceInput) (*models.Order, error)
	Confirm(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	Complete(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	Rate(ctx context.Context, actor Actor, orderID uuid.UUID, input RateInput) (*models.Order, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDetail, error)
	List(ctx context.Context, actor Actor, params ListParams) (*OrderList, error)
	ListBusinessReviews(ctx context.Context, businessID uuid.UUID, params pagination.Params) (*ReviewList, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo        Repository
	Tx          txRunner
	Outbox      outboxPublisher
	Coordinator *Coordinator
	Notifier    notifier
	Metrics     *metrics.OrderMetrics
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	coordinator *Coordinator
	notifier    notifier
	metrics     *metrics.OrderMetrics
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if p.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if p.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	if p.Coordinator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reservation coordinator required")
	}
	if p.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	s := &service{
		repo:        p.Repo,
		tx:          p.Tx,
		outbox:      p.Outbox,
		coordinator: p.Coordinator,
		notifier:    p.Notifier,
		metrics:     p.Metrics,
		logg:        p.Logger,
		now:         p.Now,
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s, nil
}

func (s *service) Place(ctx context.Context, actor Actor, input PlaceInput) (*models.Order, error) {
	switch actor.Role {
	case enums.UserRoleCustomer:
	case enums.UserRoleBusinessOwner, enums.UserRoleAdmin:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can place orders")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}

	reservation, err := s.coordinator.Reserve(ctx, ReserveInput{
		BagID:      input.BagID,
		CustomerID: actor.UserID,
		Quantity:   input.Quantity,
	})
	if err != nil {
		return nil, err
	}

	order := reservation.Order
	bag := reservation.Bag
	logCtx := s.logg.WithOrderID(s.logg.WithBagID(ctx, bag.ID.String()), order.ID.String())
	s.logg.Info(logCtx, "order placed")

	s.notify(logCtx, notifications.Message{
		UserID:  actor.UserID,
		OrderID: &order.ID,
		Type:    enums.NotificationTypeOrderConfirmation,
		Title:   "Order placed",
		Body: fmt.Sprintf("You reserved %d x %s. Pickup code %s, pickup between %s and %s.",
			order.Quantity, bag.Title, order.PickupCode, formatTime(bag.PickupStart), formatTime(bag.PickupEnd)),
	})
	s.notify(logCtx, notifications.Message{
		UserID:  bag.BusinessID,
		OrderID: &order.ID,
		Type:    enums.NotificationTypeOrderUpdate,
		Title:   "New order",
		Body:    fmt.Sprintf("%d x %s reserved, pickup code %s.", order.Quantity, bag.Title, order.PickupCode),
	})
	return &order, nil
}

func (s *service) Confirm(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, EventConfirm)
}

func (s *service) Complete(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, EventComplete)
}

func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, EventCancel)
}

func (s *service) transition(ctx context.Context, actor Actor, orderID uuid.UUID, event Event) (*models.Order, error) {
	detail, err := s.loadDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTransition(actor, event, detail); err != nil {
		return nil, err
	}
	next, err := NextStatus(detail.Status, event)
	if err != nil {
		return nil, err
	}

	now := s.now()
	from := detail.Status
	order := detail.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if event == EventCancel {
			if err := s.coordinator.Release(ctx, tx, &order, now); err != nil {
				return err
			}
		} else {
			repo := s.repo.WithTx(tx)
			moved, err := repo.UpdateStatus(ctx, order.ID, sourcesFor(event), next, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			if !moved {
				return s.coordinator.rejectTransition(ctx, repo, order.ID, event)
			}
		}

		order.Status = next
		order.UpdatedAt = now
		return s.emit(ctx, tx, actor, eventTypeFor(event), &order, detail.BusinessID, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(from), string(next))
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{"from": from, "to": next}), "order status changed")

	for _, msg := range transitionMessages(actor, event, detail) {
		s.notify(logCtx, msg)
	}
	return &order, nil
}

func (s *service) Rate(ctx context.Context, actor Actor, orderID uuid.UUID, input RateInput) (*models.Order, error) {
	if input.Rating < minRating || input.Rating > maxRating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	detail, err := s.loadDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRating(actor, detail); err != nil {
		return nil, err
	}
	if err := rateableState(&detail.Order); err != nil {
		return nil, err
	}

	now := s.now()
	order := detail.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updated, err := repo.SetRating(ctx, order.ID, input.Rating, input.Feedback, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate order")
		}
		if !updated {
			current, err := repo.FindByID(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			if stateErr := rateableState(current); stateErr != nil {
				return stateErr
			}
			return pkgerrors.New(pkgerrors.CodeInvalidState, "order cannot be rated")
		}

		rating := input.Rating
		order.Rating = &rating
		order.Feedback = input.Feedback
		order.UpdatedAt = now
		return s.emit(ctx, tx, actor, enums.EventOrderRated, &order, detail.BusinessID, now)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.notify(logCtx, notifications.Message{
		UserID:  detail.BusinessID,
		OrderID: &order.ID,
		Type:    enums.NotificationTypeOrderUpdate,
		Title:   "New review",
		Body:    fmt.Sprintf("%s received a %d star rating.", detail.BagTitle, input.Rating),
	})
	return &order, nil
}

func rateableState(order *models.Order) error {
	if order.Status != enums.OrderStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "only completed orders can be rated").
			WithDetails(map[string]any{"status": order.Status})
	}
	if order.Rating != nil {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "order has already been rated")
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDetail, error) {
	detail, err := s.loadDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(actor, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *service) List(ctx context.Context, actor Actor, params ListParams) (*OrderList, error) {
	query := listOrdersParams{
		Status: params.Status,
		Limit:  pagination.LimitWithBuffer(params.Limit),
	}
	switch actor.Role {
	case enums.UserRoleCustomer:
		id := actor.UserID
		query.CustomerID = &id
	case enums.UserRoleBusinessOwner:
		id := actor.UserID
		query.BusinessID = &id
	case enums.UserRoleAdmin:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.Cursor = cursor

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.Build(rows, params.Limit, func(o OrderDetail) pagination.Cursor {
		return pagination.Cursor{At: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

func (s *service) ListBusinessReviews(ctx context.Context, businessID uuid.UUID, params pagination.Params) (*ReviewList, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListReviews(ctx, listReviewsParams{
		BusinessID: businessID,
		Limit:      pagination.LimitWithBuffer(params.Limit),
		Cursor:     cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	page := pagination.Build(rows, params.Limit, func(r Review) pagination.Cursor {
		return pagination.Cursor{At: r.UpdatedAt, ID: r.OrderID}
	})
	return &page, nil
}

func (s *service) loadDetail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	detail, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return detail, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor Actor, eventType enums.OutboxEventType, order *models.Order, businessID uuid.UUID, at time.Time) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data:          orderEventData(order, businessID),
		OccurredAt:    at,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) notify(ctx context.Context, msg notifications.Message) {
	if msg.UserID == uuid.Nil {
		return
	}
	if !s.notifier.Dispatch(ctx, msg) {
		s.logg.Warn(s.logg.WithField(ctx, "notification_type", msg.Type), "notification not queued")
	}
}

func eventTypeFor(event Event) enums.OutboxEventType {
	switch event {
	case EventConfirm:
		return enums.EventOrderConfirmed
	case EventComplete:
		return enums.EventOrderCompleted
	default:
		return enums.EventOrderCancelled
	}
}

func transitionMessages(actor Actor, event Event, detail *OrderDetail) []notifications.Message {
	orderID := detail.ID
	customerID := uuid.Nil
	if detail.CustomerID != nil {
		customerID = *detail.CustomerID
	}

	switch event {
	case EventConfirm:
		return []notifications.Message{{
			UserID:  customerID,
			OrderID: &orderID,
			Type:    enums.NotificationTypeOrderConfirmation,
			Title:   "Order confirmed",
			Body:    fmt.Sprintf("%s confirmed your order. Show pickup code %s at the counter.", detail.BagTitle, detail.PickupCode),
		}}
	case EventComplete:
		return []notifications.Message{{
			UserID:  customerID,
			OrderID: &orderID,
			Type:    enums.NotificationTypeOrderUpdate,
			Title:   "Order completed",
			Body:    fmt.Sprintf("Enjoy your %s! You can now rate your order.", detail.BagTitle),
		}}
	case EventCancel:
		recipient := detail.BusinessID
		if actor.UserID == detail.BusinessID {
			recipient = customerID
		}
		return []notifications.Message{{
			UserID:  recipient,
			OrderID: &orderID,
			Type:    enums.NotificationTypeOrderUpdate,
			Title:   "Order cancelled",
			Body:    fmt.Sprintf("The order for %s (pickup code %s) was cancelled.", detail.BagTitle, detail.PickupCode),
		}}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format("Jan 2 15:04 MST")
}
