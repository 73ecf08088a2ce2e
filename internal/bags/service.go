package bags

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
	"github.com/Gulhayo05/Surprise-Bag/pkg/outbox"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes owner bag management and the public catalogue.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Bag, error)
	Update(ctx context.Context, ownerID, bagID uuid.UUID, input UpdateInput) (*models.Bag, error)
	Delete(ctx context.Context, ownerID, bagID uuid.UUID) error
	Get(ctx context.Context, bagID uuid.UUID) (*models.Bag, error)
	List(ctx context.Context, params ListParams) (*BagList, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService constructs the bag service.
func NewService(repo Repository, tx txRunner, emitter outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bag repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: emitter,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Create lists a new bag for an approved business and records bag_created.
func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Bag, error) {
	if input.QuantityAvailable < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity_available must be at least 1")
	}
	if err := validateListing(strings.TrimSpace(input.Title), input.OriginalPrice, input.DiscountPrice, input.PickupStart, input.PickupEnd); err != nil {
		return nil, err
	}
	if err := s.ensureApprovedBusiness(ctx, ownerID); err != nil {
		return nil, err
	}

	bag := &models.Bag{
		BusinessID:        ownerID,
		Title:             strings.TrimSpace(input.Title),
		Description:       input.Description,
		OriginalPrice:     input.OriginalPrice,
		DiscountPrice:     input.DiscountPrice,
		QuantityAvailable: input.QuantityAvailable,
		PickupStart:       input.PickupStart.UTC(),
		PickupEnd:         input.PickupEnd.UTC(),
		ImageURLs:         pq.StringArray(input.ImageURLs),
		IsActive:          true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, bag); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert bag")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBagCreated,
			AggregateType: enums.AggregateBag,
			AggregateID:   bag.ID,
			Actor:         &outbox.ActorRef{UserID: ownerID, Role: enums.UserRoleBusinessOwner},
			Data: outbox.BagCreatedEvent{
				BagID:             bag.ID,
				BusinessID:        ownerID,
				Title:             bag.Title,
				DiscountPrice:     bag.DiscountPrice,
				QuantityAvailable: bag.QuantityAvailable,
			},
			OccurredAt: s.now(),
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bag")
	}

	s.logg.Info(s.logg.WithBagID(ctx, bag.ID.String()), "bag created")
	return bag, nil
}

// Update applies a partial change. The bag is locked and validated inside
// the transaction, so the checks see the row that is actually written.
// quantity_available can only be rewritten while no unit has been sold.
func (s *service) Update(ctx context.Context, ownerID, bagID uuid.UUID, input UpdateInput) (*models.Bag, error) {
	if input.QuantityAvailable != nil && *input.QuantityAvailable < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity_available cannot be negative")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		bag, err := s.loadOwned(ctx, repo.FindForUpdate, ownerID, bagID)
		if err != nil {
			return err
		}
		fields, err := bagChanges(bag, input)
		if err != nil {
			return err
		}

		now := s.now()
		if input.QuantityAvailable != nil {
			ok, err := repo.SetQuantity(ctx, bagID, *input.QuantityAvailable, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bag quantity")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, "quantity_available cannot change after units have been sold")
			}
		}
		if len(fields) == 0 {
			return nil
		}
		fields["updated_at"] = now
		if _, err := repo.Update(ctx, bagID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bag")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, bagID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload bag")
	}
	return updated, nil
}

// bagChanges merges input over bag, validates the result and returns the
// columns to write.
func bagChanges(bag *models.Bag, input UpdateInput) (map[string]any, error) {
	fields := map[string]any{}
	title := bag.Title
	if input.Title != nil {
		title = strings.TrimSpace(*input.Title)
		fields["title"] = title
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	original, discount := bag.OriginalPrice, bag.DiscountPrice
	if input.OriginalPrice != nil {
		original = *input.OriginalPrice
		fields["original_price"] = original
	}
	if input.DiscountPrice != nil {
		discount = *input.DiscountPrice
		fields["discount_price"] = discount
	}
	start, end := bag.PickupStart, bag.PickupEnd
	if input.PickupStart != nil {
		start = input.PickupStart.UTC()
		fields["pickup_start"] = start
	}
	if input.PickupEnd != nil {
		end = input.PickupEnd.UTC()
		fields["pickup_end"] = end
	}
	if input.ImageURLs != nil {
		fields["image_urls"] = pq.StringArray(*input.ImageURLs)
	}
	if input.IsActive != nil {
		fields["is_active"] = *input.IsActive
	}
	if err := validateListing(title, original, discount, start, end); err != nil {
		return nil, err
	}
	return fields, nil
}

// Delete removes a bag that no order references.
func (s *service) Delete(ctx context.Context, ownerID, bagID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.loadOwned(ctx, repo.FindForUpdate, ownerID, bagID); err != nil {
			return err
		}
		n, err := repo.CountOrders(ctx, bagID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count bag orders")
		}
		if n > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "bag has orders and cannot be deleted").
				WithDetails(map[string]any{"orders": n})
		}
		return repo.Delete(ctx, bagID)
	})
	switch {
	case err == nil:
		s.logg.Info(s.logg.WithBagID(ctx, bagID.String()), "bag deleted")
		return nil
	case pkgerrors.As(err) != nil:
		return err
	case dbpkg.IsForeignKeyViolation(err):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "bag has orders and cannot be deleted")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "bag not found")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete bag")
	}
}

func (s *service) Get(ctx context.Context, bagID uuid.UUID) (*models.Bag, error) {
	bag, err := s.repo.FindByID(ctx, bagID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bag not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bag")
	}
	return bag, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*BagList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, listBagsParams{
		ActiveOnly: params.ActiveOnly,
		BusinessID: params.BusinessID,
		Limit:      pagination.LimitWithBuffer(params.Limit),
		Cursor:     cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bags")
	}
	page := pagination.Build(rows, params.Limit, func(b models.Bag) pagination.Cursor {
		return pagination.Cursor{At: b.CreatedAt, ID: b.ID}
	})
	return &page, nil
}

func (s *service) ensureApprovedBusiness(ctx context.Context, ownerID uuid.UUID) error {
	business, err := s.repo.FindBusiness(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "business profile required")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business")
	}
	if !business.IsApproved {
		return pkgerrors.New(pkgerrors.CodeForbidden, "business is not approved yet")
	}
	return nil
}

func (s *service) loadOwned(ctx context.Context, find func(context.Context, uuid.UUID) (*models.Bag, error), ownerID, bagID uuid.UUID) (*models.Bag, error) {
	bag, err := find(ctx, bagID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bag not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bag")
	}
	if bag.BusinessID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "bag does not belong to this business")
	}
	return bag, nil
}

func validateListing(title string, original, discount decimal.Decimal, start, end time.Time) error {
	if title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !original.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "original_price must be positive")
	}
	if !discount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_price must be positive")
	}
	if discount.GreaterThan(original) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_price cannot exceed original_price")
	}
	if !start.Before(end) {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup_start must be before pickup_end")
	}
	return nil
}
