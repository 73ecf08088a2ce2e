package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/Gulhayo05/Surprise-Bag/internal/notifications"
	"github.com/Gulhayo05/Surprise-Bag/internal/orders"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"go.uber.org/multierr"
)

const defaultReminderWindow = time.Hour

type PickupReminderJobParams struct {
	Logger   *logger.Logger
	Orders   reminderSource
	Notifier reminderNotifier
	Markers  reminderMarker
	Window   time.Duration
}

type reminderSource interface {
	ListDueForReminder(ctx context.Context, from, to time.Time) ([]orders.OrderDetail, error)
}

type reminderNotifier interface {
	Dispatch(ctx context.Context, msg notifications.Message) bool
}

// reminderMarker records which (order, pickup_end) pairs were already
// reminded so later cycles skip them.
type reminderMarker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	ReminderKey(orderID string, pickupEnd time.Time) string
}

// NewPickupReminderJob reminds customers of open orders whose bag pickup
// window closes within the configured window.
func NewPickupReminderJob(params PickupReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Markers == nil {
		return nil, fmt.Errorf("reminder marker store required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultReminderWindow
	}
	return &pickupReminderJob{
		logg:     params.Logger,
		orders:   params.Orders,
		notifier: params.Notifier,
		markers:  params.Markers,
		window:   window,
		now:      time.Now,
	}, nil
}

type pickupReminderJob struct {
	logg     *logger.Logger
	orders   reminderSource
	notifier reminderNotifier
	markers  reminderMarker
	window   time.Duration
	now      func() time.Time
}

func (j *pickupReminderJob) Name() string { return "pickup-reminder" }

func (j *pickupReminderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.orders.ListDueForReminder(ctx, now, now.Add(j.window))
	if err != nil {
		return fmt.Errorf("list orders due for reminder: %w", err)
	}

	var (
		errs                   error
		sent, skipped, dropped int
	)
	for _, order := range due {
		if order.CustomerID == nil {
			skipped++
			continue
		}
		key := j.markers.ReminderKey(order.ID.String(), order.PickupEnd)
		// Marker expires one window after pickup_end.
		first, err := j.markers.SetNX(ctx, key, now.Format(time.RFC3339), order.PickupEnd.Sub(now)+j.window)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mark reminder for order %s: %w", order.ID, err))
			continue
		}
		if !first {
			skipped++
			continue
		}

		orderID := order.ID
		queued := j.notifier.Dispatch(ctx, notifications.Message{
			UserID:  *order.CustomerID,
			OrderID: &orderID,
			Type:    enums.NotificationTypePickupReminder,
			Title:   "Pickup Reminder",
			Body: fmt.Sprintf("Your surprise bag pickup ends at %s. Pickup code %s.",
				order.PickupEnd.UTC().Format("Jan 2 15:04 MST"), order.PickupCode),
		})
		if queued {
			sent++
			continue
		}
		dropped++
		if err := j.markers.Del(ctx, key); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("clear reminder marker for order %s: %w", order.ID, err))
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":     len(due),
		"sent":    sent,
		"skipped": skipped,
		"dropped": dropped,
	}), "pickup reminders processed")
	return errs
}
