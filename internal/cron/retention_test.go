package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Gulhayo05/Surprise-Bag/internal/notifications"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db/dbtest"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/outbox"
)

func TestRetentionJobCutoffs(t *testing.T) {
	now := time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)

	notif := &fakeNotificationPurger{}
	job := asRetention(t)(NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop(), Repository: notif, Retention: 7}))
	job.now = func() time.Time { return now }
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-7*24*time.Hour), notif.cutoff)
	assert.Equal(t, "notification-cleanup", job.Name())

	ob := &fakeOutboxPurger{}
	job = asRetention(t)(NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), DB: fakeTxRunner{}, Repository: ob}))
	job.now = func() time.Time { return now }
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-defaultRetentionDays*24*time.Hour), ob.cutoff)
}

func TestRetentionJobPropagatesError(t *testing.T) {
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop(), Repository: &fakeNotificationPurger{err: errors.New("db down")}})
	require.NoError(t, err)
	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notification-cleanup")
}

func TestRetentionJobConstructorsRequireDeps(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
	_, err = NewNotificationCleanupJob(NotificationCleanupJobParams{Repository: &fakeNotificationPurger{}})
	assert.Error(t, err)
}

func TestOutboxRetentionDeletesOnlyOldPublishedRows(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	seed := func(created time.Time, published *time.Time) {
		row := models.OutboxEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       []byte(`{}`),
			CreatedAt:     created,
			PublishedAt:   published,
		}
		require.NoError(t, conn.Create(&row).Error)
	}
	seed(old, &old)
	seed(old, nil)
	seed(recent, &recent)

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), DB: db.NewFromConn(conn), Repository: outbox.NewRepository(conn)})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var left int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&left).Error)
	assert.EqualValues(t, 2, left)
}

func TestNotificationCleanupKeepsUnread(t *testing.T) {
	conn := dbtest.Open(t)
	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	userID := uuid.New()

	seed := func(read bool) {
		row := models.Notification{UserID: userID, Type: enums.NotificationTypeOrderConfirmation, Title: "t", Message: "m", CreatedAt: old}
		if read {
			row.ReadAt = &old
		}
		require.NoError(t, conn.Create(&row).Error)
	}
	seed(true)
	seed(false)

	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop(), Repository: notifications.NewRepository(conn)})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var left []models.Notification
	require.NoError(t, conn.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Nil(t, left[0].ReadAt)
}

func asRetention(t *testing.T) func(Job, error) *retentionJob {
	return func(job Job, err error) *retentionJob {
		t.Helper()
		require.NoError(t, err)
		rj, ok := job.(*retentionJob)
		require.True(t, ok, "got %T", job)
		return rj
	}
}

type fakeNotificationPurger struct {
	cutoff time.Time
	err    error
}

func (f *fakeNotificationPurger) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 4, f.err
}

type fakeOutboxPurger struct {
	cutoff time.Time
}

func (f *fakeOutboxPurger) DeletePublishedBefore(_ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 7, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}
