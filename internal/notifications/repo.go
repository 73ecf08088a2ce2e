package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
)

// Repository is the inbox storage. Every read and write except the
// retention purge is scoped to one recipient.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, q inboxQuery) ([]models.Notification, error)
	Get(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	Delete(ctx context.Context, userID, notificationID uuid.UUID) (bool, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// inboxQuery selects one page of a recipient's inbox. Fetch is the row
// limit handed to the database, one past the page size.
type inboxQuery struct {
	UserID     uuid.UUID
	Fetch      int
	After      *pagination.Cursor
	UnreadOnly bool
}

type gormInbox struct {
	db *gorm.DB
}

// NewRepository binds the inbox to db.
func NewRepository(db *gorm.DB) Repository {
	return &gormInbox{db: db}
}

func ownedBy(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("user_id = ?", userID)
	}
}

func unread(tx *gorm.DB) *gorm.DB {
	return tx.Where("read_at IS NULL")
}

func (g *gormInbox) table(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx).Model(&models.Notification{})
}

func (g *gormInbox) Create(ctx context.Context, notification *models.Notification) error {
	return g.db.WithContext(ctx).Create(notification).Error
}

// List orders by (created_at, id) descending so the cursor is stable when
// two rows share a timestamp.
func (g *gormInbox) List(ctx context.Context, q inboxQuery) ([]models.Notification, error) {
	tx := g.table(ctx).Scopes(ownedBy(q.UserID))
	if q.UnreadOnly {
		tx = tx.Scopes(unread)
	}
	if c := q.After; c != nil {
		tx = tx.Where("(created_at < ?) OR (created_at = ? AND id < ?)", c.At, c.At, c.ID)
	}

	rows := make([]models.Notification, 0, q.Fetch)
	err := tx.Order("created_at DESC").Order("id DESC").Limit(q.Fetch).Find(&rows).Error
	return rows, err
}

// Get returns nil without error when the row is missing or belongs to
// someone else.
func (g *gormInbox) Get(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	var row models.Notification
	err := g.table(ctx).Scopes(ownedBy(userID)).Where("id = ?", notificationID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (g *gormInbox) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := g.table(ctx).Scopes(ownedBy(userID), unread).Count(&n).Error
	return n, err
}

// MarkRead keeps the first read_at. The bool reports whether the row exists
// for this user, so a second call on a read row still succeeds.
func (g *gormInbox) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (bool, error) {
	res := g.table(ctx).Scopes(ownedBy(userID), unread).
		Where("id = ?", notificationID).
		UpdateColumn("read_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	row, err := g.Get(ctx, userID, notificationID)
	return row != nil, err
}

func (g *gormInbox) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := g.table(ctx).Scopes(ownedBy(userID), unread).UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

func (g *gormInbox) Delete(ctx context.Context, userID, notificationID uuid.UUID) (bool, error) {
	res := g.db.WithContext(ctx).Scopes(ownedBy(userID)).
		Where("id = ?", notificationID).
		Delete(&models.Notification{})
	return res.RowsAffected > 0, res.Error
}

// DeleteReadBefore is the retention purge; unread rows are never removed.
func (g *gormInbox) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := g.db.WithContext(ctx).
		Where("read_at IS NOT NULL").
		Where("created_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
