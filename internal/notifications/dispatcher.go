package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gulhayo05/Surprise-Bag/pkg/config"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/metrics"
)

// Message is one notification addressed to a user.
type Message struct {
	UserID  uuid.UUID
	OrderID *uuid.UUID
	Type    enums.NotificationType
	Title   string
	Body    string
}

// Notifier accepts notifications without blocking the caller. The return
// value only reports whether the message was queued.
type Notifier interface {
	Dispatch(ctx context.Context, msg Message) bool
}

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Dispatcher persists notifications on a small worker pool fed by a bounded
// queue. A full queue drops the message.
type Dispatcher struct {
	repo         notificationWriter
	queue        chan Message
	workers      int
	writeTimeout time.Duration
	logg         *logger.Logger
	metrics      *metrics.DispatcherMetrics

	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// NewDispatcher builds a dispatcher; call Start before dispatching.
func NewDispatcher(repo notificationWriter, cfg config.DispatcherConfig, logg *logger.Logger, m *metrics.DispatcherMetrics) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Dispatcher{
		repo:         repo,
		queue:        make(chan Message, cfg.QueueSize),
		workers:      cfg.Workers,
		writeTimeout: cfg.WriteTimeout,
		logg:         logg,
		metrics:      m,
	}
}

// Start launches the workers. Cancelling ctx closes the dispatcher after the
// queue drains.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.mu.RLock()
		closed := d.closed
		d.mu.RUnlock()
		if closed {
			return
		}
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.work()
		}
		go func() {
			<-ctx.Done()
			d.Close()
		}()
	})
}

// Dispatch enqueues msg and returns immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) bool {
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"notification_type": msg.Type,
		"user_id":           msg.UserID.String(),
	})
	if msg.UserID == uuid.Nil || !msg.Type.IsValid() {
		d.logg.Warn(logCtx, "dropping malformed notification")
		d.metrics.IncDropped(string(msg.Type))
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logg.Warn(logCtx, "dispatcher closed, dropping notification")
		d.metrics.IncDropped(string(msg.Type))
		return false
	}

	select {
	case d.queue <- msg:
		d.metrics.IncEnqueued(string(msg.Type))
		d.metrics.SetQueueDepth(len(d.queue))
		return true
	default:
		d.logg.Warn(logCtx, "notification queue full, dropping notification")
		d.metrics.IncDropped(string(msg.Type))
		return false
	}
}

// Close stops accepting messages and waits for queued ones to be written.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.metrics.SetQueueDepth(len(d.queue))
		d.persist(msg)
	}
}

func (d *Dispatcher) persist(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
	defer cancel()

	row := &models.Notification{
		UserID:  msg.UserID,
		OrderID: msg.OrderID,
		Type:    msg.Type,
		Title:   msg.Title,
		Message: msg.Body,
	}
	if err := d.repo.Create(ctx, row); err != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"notification_type": msg.Type,
			"user_id":           msg.UserID.String(),
		})
		d.logg.Error(logCtx, "failed to persist notification", err)
		d.metrics.IncFailed(string(msg.Type))
		return
	}
	d.metrics.IncDelivered(string(msg.Type))
}
