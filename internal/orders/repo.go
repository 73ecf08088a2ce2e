package orders

import (
	"context"
	"time"

	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const detailColumns = "orders.*, bags.business_id AS business_id, bags.title AS bag_title, " +
	"bags.pickup_start AS pickup_start, bags.pickup_end AS pickup_end"

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ReserveStock(ctx context.Context, bagID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Bag{}).
		Where("id = ? AND is_active = ? AND quantity_available >= ?", bagID, true, qty).
		Updates(map[string]any{
			"quantity_available": gorm.Expr("quantity_available - ?", qty),
			"quantity_sold":      gorm.Expr("quantity_sold + ?", qty),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) RestoreStock(ctx context.Context, bagID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Bag{}).
		Where("id = ?", bagID).
		Update("quantity_available", gorm.Expr("quantity_available + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindBag(ctx context.Context, bagID uuid.UUID) (*models.Bag, error) {
	var bag models.Bag
	if err := r.db.WithContext(ctx).Where("id = ?", bagID).First(&bag).Error; err != nil {
		return nil, err
	}
	return &bag, nil
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) detailQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("orders").
		Select(detailColumns).
		Joins("JOIN bags ON bags.id = orders.bag_id")
}

func (r *repository) FindDetail(ctx context.Context, id uuid.UUID) (*OrderDetail, error) {
	var rows []OrderDetail
	if err := r.detailQuery(ctx).Where("orders.id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetRating(ctx context.Context, id uuid.UUID, rating int, feedback *string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND rating IS NULL", id, enums.OrderStatusCompleted).
		Updates(map[string]any{
			"rating":     rating,
			"feedback":   feedback,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, params listOrdersParams) ([]OrderDetail, error) {
	query := r.detailQuery(ctx)
	if params.CustomerID != nil {
		query = query.Where("orders.customer_id = ?", *params.CustomerID)
	}
	if params.BusinessID != nil {
		query = query.Where("bags.business_id = ?", *params.BusinessID)
	}
	if params.Status != nil {
		query = query.Where("orders.status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where(
			"(orders.created_at < ? OR (orders.created_at = ? AND orders.id < ?))",
			params.Cursor.At, params.Cursor.At, params.Cursor.ID,
		)
	}

	var rows []OrderDetail
	err := query.Order("orders.created_at DESC").
		Order("orders.id DESC").
		Limit(params.Limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListReviews(ctx context.Context, params listReviewsParams) ([]Review, error) {
	query := r.db.WithContext(ctx).
		Table("orders").
		Select("orders.id AS order_id, orders.bag_id, bags.title AS bag_title, orders.customer_id, " +
			"orders.rating, orders.feedback, orders.updated_at").
		Joins("JOIN bags ON bags.id = orders.bag_id").
		Where("bags.business_id = ? AND orders.status = ? AND orders.rating IS NOT NULL",
			params.BusinessID, enums.OrderStatusCompleted)
	if params.Cursor != nil {
		query = query.Where(
			"(orders.updated_at < ? OR (orders.updated_at = ? AND orders.id < ?))",
			params.Cursor.At, params.Cursor.At, params.Cursor.ID,
		)
	}

	var rows []Review
	err := query.Order("orders.updated_at DESC").
		Order("orders.id DESC").
		Limit(params.Limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListDueForReminder(ctx context.Context, from, to time.Time) ([]OrderDetail, error) {
	var rows []OrderDetail
	err := r.detailQuery(ctx).
		Where("bags.is_active = ? AND bags.pickup_end BETWEEN ? AND ?", true, from, to).
		Where("orders.status IN ?", []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusConfirmed}).
		Order("bags.pickup_end ASC").
		Order("orders.id ASC").
		Find(&rows).Error
	return rows, err
}
