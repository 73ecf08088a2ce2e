package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
)

const (
	// Default retention, in days, for both purge jobs.
	defaultRetentionDays = 30
	// Purges can touch a month of rows, so they get longer than the
	// service's default job timeout.
	retentionTimeout = 10 * time.Minute
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type notificationPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPurger
	Retention  int
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository notificationPurger
	Retention  int
}

// retentionJob deletes rows older than now minus keep. purge decides which
// rows qualify.
type retentionJob struct {
	name  string
	logg  *logger.Logger
	keep  time.Duration
	now   func() time.Time
	purge func(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob removes published outbox rows. Unpublished and
// parked rows stay for inspection.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.DB == nil || params.Repository == nil {
		return nil, errors.New("outbox retention: db and repository are required")
	}
	return newRetentionJob("outbox-retention", params.Logger, params.Retention,
		func(ctx context.Context, cutoff time.Time) (int64, error) {
			var n int64
			err := params.DB.WithTx(ctx, func(tx *gorm.DB) error {
				var err error
				n, err = params.Repository.DeletePublishedBefore(tx, cutoff)
				return err
			})
			return n, err
		})
}

// NewNotificationCleanupJob removes read notifications; unread ones are kept
// whatever their age.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("notification cleanup: repository is required")
	}
	return newRetentionJob("notification-cleanup", params.Logger, params.Retention, params.Repository.DeleteReadBefore)
}

func newRetentionJob(name string, logg *logger.Logger, days int, purge func(context.Context, time.Time) (int64, error)) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("%s: logger is required", name)
	}
	if days <= 0 {
		days = defaultRetentionDays
	}
	return &retentionJob{
		name:  name,
		logg:  logg,
		keep:  time.Duration(days) * 24 * time.Hour,
		now:   time.Now,
		purge: purge,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Timeout() time.Duration { return retentionTimeout }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.keep)
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "retention purge complete")
	return nil
}
