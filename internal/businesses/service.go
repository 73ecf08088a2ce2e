package businesses

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/Gulhayo05/Surprise-Bag/pkg/db"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	pkgerrors "github.com/Gulhayo05/Surprise-Bag/pkg/errors"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
)

const maxNameLength = 100

// Service manages shop profiles. An owner has at most one shop, created
// unapproved; only an admin approves it, and only approved shops may list
// bags.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Business, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Business, error)
	List(ctx context.Context, params ListParams) (*BusinessList, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateInput) (*models.Business, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	SetApproved(ctx context.Context, id uuid.UUID, approved bool) (*models.Business, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	switch {
	case repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "business repository required")
	case tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

var (
	errNotFound   = pkgerrors.New(pkgerrors.CodeNotFound, "business not found")
	errNotOwner   = pkgerrors.New(pkgerrors.CodeForbidden, "business belongs to another owner")
	errRegistered = pkgerrors.New(pkgerrors.CodeConflict, "owner already has a business")
)

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.Business, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner required")
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := checkName(input.Name); err != nil {
		return nil, err
	}

	business := input.toModel(ownerID)
	err := s.repo.Create(ctx, business)
	switch {
	case err == nil:
	case dbpkg.IsUniqueViolation(err, ""):
		return nil, errRegistered
	case dbpkg.IsForeignKeyViolation(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "owner account not found")
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create business")
	}

	s.logg.Info(s.logg.WithField(ctx, "business_id", business.ID.String()), "business registered")
	return business, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	business, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return business, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*BusinessList, error) {
	after, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, listQuery{
		ApprovedOnly: params.ApprovedOnly,
		Limit:        pagination.LimitWithBuffer(params.Limit),
		After:        after,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list businesses")
	}
	page := pagination.Build(rows, params.Limit, func(b models.Business) pagination.Cursor {
		return pagination.Cursor{At: b.CreatedAt, ID: b.ID}
	})
	return &page, nil
}

func (s *service) Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateInput) (*models.Business, error) {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := checkName(name); err != nil {
			return nil, err
		}
		input.Name = &name
	}

	var updated *models.Business
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.owned(ctx, repo, ownerID, id); err != nil {
			return err
		}
		if fields := input.fields(); len(fields) > 0 {
			if err := repo.Update(ctx, id, fields); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update business")
			}
		}
		var err error
		updated, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload business")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the shop and its bags. It is refused while any of those
// bags has orders, since orders keep their bag.
func (s *service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.owned(ctx, repo, ownerID, id); err != nil {
			return err
		}
		n, err := repo.CountOrders(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count business orders")
		}
		if n > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "business has orders and cannot be deleted").
				WithDetails(map[string]any{"orders": n})
		}
		return repo.Delete(ctx, id)
	})
	switch {
	case err == nil:
		s.logg.Info(s.logg.WithField(ctx, "business_id", id.String()), "business deleted")
		return nil
	case pkgerrors.As(err) != nil:
		return err
	case dbpkg.IsForeignKeyViolation(err):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "business has orders and cannot be deleted")
	default:
		return lookupError(err)
	}
}

// SetApproved is the admin switch that lets a shop list bags.
func (s *service) SetApproved(ctx context.Context, id uuid.UUID, approved bool) (*models.Business, error) {
	var business *models.Business
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if business, err = repo.FindForUpdate(ctx, id); err != nil {
			return lookupError(err)
		}
		if business.IsApproved == approved {
			return nil
		}
		if err := repo.Update(ctx, id, map[string]any{"is_approved": approved}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update approval")
		}
		business.IsApproved = approved
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"business_id": id.String(), "approved": approved}), "business approval changed")
	return business, nil
}

func (s *service) owned(ctx context.Context, repo Repository, ownerID, id uuid.UUID) (*models.Business, error) {
	business, err := repo.FindForUpdate(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	if business.ID != ownerID {
		return nil, errNotOwner
	}
	return business, nil
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errNotFound
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business")
}

func checkName(name string) error {
	switch {
	case name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case len([]rune(name)) > maxNameLength:
		return pkgerrors.New(pkgerrors.CodeValidation, "name is too long").
			WithDetails(map[string]any{"max": maxNameLength})
	}
	return nil
}
