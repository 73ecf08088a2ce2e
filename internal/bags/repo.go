package bags

import (
	"context"
	"time"

	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists bag listings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, bag *models.Bag) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bag, error)
	// FindForUpdate reads the bag and locks the row for the rest of the transaction.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Bag, error)
	// Update applies fields to the bag. It reports false when no row matched.
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error)
	// SetQuantity replaces quantity_available only while nothing has been sold.
	SetQuantity(ctx context.Context, id uuid.UUID, qty int, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountOrders(ctx context.Context, bagID uuid.UUID) (int64, error)
	FindBusiness(ctx context.Context, id uuid.UUID) (*models.Business, error)
	List(ctx context.Context, params listBagsParams) ([]models.Bag, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bag repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, bag *models.Bag) error {
	return r.db.WithContext(ctx).Create(bag).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Bag, error) {
	var bag models.Bag
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&bag).Error; err != nil {
		return nil, err
	}
	return &bag, nil
}

func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Bag, error) {
	var bag models.Bag
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&bag).Error
	if err != nil {
		return nil, err
	}
	return &bag, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Bag{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetQuantity(ctx context.Context, id uuid.UUID, qty int, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Bag{}).
		Where("id = ? AND quantity_sold = 0", id).
		Updates(map[string]any{"quantity_available": qty, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Bag{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountOrders(ctx context.Context, bagID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("bag_id = ?", bagID).Count(&n).Error
	return n, err
}

func (r *repository) FindBusiness(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	var business models.Business
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

// List returns up to params.Limit bags, newest first.
func (r *repository) List(ctx context.Context, params listBagsParams) ([]models.Bag, error) {
	query := r.db.WithContext(ctx).Model(&models.Bag{})
	if params.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if params.BusinessID != nil {
		query = query.Where("business_id = ?", *params.BusinessID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", params.Cursor.At, params.Cursor.At, params.Cursor.ID)
	}

	var rows []models.Bag
	err := query.Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Find(&rows).Error
	return rows, err
}
