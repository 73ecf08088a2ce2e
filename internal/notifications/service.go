package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	pkgerrors "github.com/Gulhayo05/Surprise-Bag/pkg/errors"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
)

// Service is the caller-facing inbox.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, notificationID uuid.UUID) error
}

// ListParams selects a page of the inbox. Cursor is the opaque value from
// a previous page.
type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

type ListResult = pagination.Page[models.Notification]

var (
	errUserRequired     = pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	errNotificationID   = pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	errNotificationGone = pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
)

type inbox struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &inbox{repo: repo, clock: func() time.Time { return time.Now().UTC() }}, nil
}

func checkIDs(userID uuid.UUID, notificationID *uuid.UUID) error {
	if userID == uuid.Nil {
		return errUserRequired
	}
	if notificationID != nil && *notificationID == uuid.Nil {
		return errNotificationID
	}
	return nil
}

func (s *inbox) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if err := checkIDs(params.UserID, nil); err != nil {
		return nil, err
	}
	after, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, inboxQuery{
		UserID:     params.UserID,
		Fetch:      pagination.LimitWithBuffer(params.Limit),
		After:      after,
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	page := pagination.Build(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{At: n.CreatedAt, ID: n.ID}
	})
	return &page, nil
}

func (s *inbox) Get(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	if err := checkIDs(userID, &notificationID); err != nil {
		return nil, err
	}
	row, err := s.repo.Get(ctx, userID, notificationID)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification")
	case row == nil:
		return nil, errNotificationGone
	}
	return row, nil
}

func (s *inbox) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := checkIDs(userID, nil); err != nil {
		return 0, err
	}
	n, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return n, nil
}

// MarkRead is idempotent for the owner; other users' ids look missing.
func (s *inbox) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := checkIDs(userID, &notificationID); err != nil {
		return err
	}
	found, err := s.repo.MarkRead(ctx, userID, notificationID, s.clock())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return errNotificationGone
	}
	return nil
}

func (s *inbox) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := checkIDs(userID, nil); err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(ctx, userID, s.clock())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return n, nil
}

func (s *inbox) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := checkIDs(userID, &notificationID); err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, userID, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notification")
	}
	if !removed {
		return errNotificationGone
	}
	return nil
}
