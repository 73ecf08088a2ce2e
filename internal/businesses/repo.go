package businesses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
)

// Repository persists shop profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, business *models.Business) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Business, error)
	// FindForUpdate locks the row for the rest of the transaction.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Business, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// CountOrders counts orders placed on any of the business's bags.
	CountOrders(ctx context.Context, id uuid.UUID) (int64, error)
	// Delete removes the business and its bags.
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q listQuery) ([]models.Business, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) Create(ctx context.Context, business *models.Business) error {
	return r.db.WithContext(ctx).Create(business).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	return r.first(r.db.WithContext(ctx), id)
}

func (r *gormRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *gormRepository) first(q *gorm.DB, id uuid.UUID) (*models.Business, error) {
	var business models.Business
	if err := q.Where("id = ?", id).First(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *gormRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Business{}).Where("id = ?", id).Updates(fields).Error
}

func (r *gormRepository) CountOrders(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Joins("JOIN bags ON bags.id = orders.bag_id").
		Where("bags.business_id = ?", id).
		Count(&n).Error
	return n, err
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("business_id = ?", id).Delete(&models.Bag{}).Error; err != nil {
		return err
	}
	res := conn.Where("id = ?", id).Delete(&models.Business{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns up to q.Limit businesses, newest first.
func (r *gormRepository) List(ctx context.Context, q listQuery) ([]models.Business, error) {
	query := r.db.WithContext(ctx).Model(&models.Business{})
	if q.ApprovedOnly {
		query = query.Where("is_approved = ?", true)
	}
	if q.After != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", q.After.At, q.After.At, q.After.ID)
	}
	var rows []models.Business
	err := query.Order("created_at DESC").Order("id DESC").Limit(q.Limit).Find(&rows).Error
	return rows, err
}
