package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gulhayo05/Surprise-Bag/pkg/config"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/outbox"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	sendTimeout        = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID, at time.Time) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Transport  transport
	Repository outboxRepository
	Now        func() time.Time
}

// Service drains the outbox. Each batch is claimed and settled inside one
// transaction, so two publisher replicas never send the same row.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	repo        outboxRepository
	transport   transport
	now         func() time.Time
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func positive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Config == nil:
		return nil, errors.New("config is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.Transport == nil:
		return nil, errors.New("transport is required")
	case p.Repository == nil:
		return nil, errors.New("outbox repository is required")
	}
	now := p.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	poll := defaultPoll
	if ms := p.Config.Outbox.PollIntervalMS; ms > 0 {
		poll = time.Duration(ms) * time.Millisecond
	}
	return &Service{
		logg:        p.Logger,
		db:          p.DB,
		repo:        p.Repository,
		transport:   p.Transport,
		now:         now,
		batchSize:   positive(p.Config.Outbox.BatchSize, defaultBatchSize),
		maxAttempts: positive(p.Config.Outbox.MaxAttempts, defaultMaxAttempts),
		poll:        poll,
	}, nil
}

// Run checks both dependencies once, then loops until ctx ends. A full
// batch is followed immediately by the next; an empty one waits a poll
// interval; a failed one backs off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{
		"database":         s.db.Ping,
		s.transport.Name(): s.transport.Ping,
	} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", name, err)
		}
	}

	pace := pacer{base: s.poll, limit: maxBackoff}
	for ctx.Err() == nil {
		found, err := s.publishBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = pace.failure()
		case found:
			pace.reset()
			continue
		default:
			pace.reset()
			wait = jitter(s.poll)
		}
		if err := sleep(ctx, wait); err != nil {
			break
		}
	}
	s.logg.Info(ctx, "outbox publisher stopping")
	return ctx.Err()
}

// publishBatch reports whether any rows were claimed.
func (s *Service) publishBatch(ctx context.Context) (bool, error) {
	var claimed int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		claimed = len(rows)
		for i := range rows {
			if err := s.settle(ctx, tx, rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed > 0, err
}

// settle sends one row and records the outcome on it. Only bookkeeping
// failures are returned; they abort the batch transaction.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	env, err := outbox.DecodeEnvelope(row.Payload)
	logCtx := s.logg.WithFields(ctx, s.fields(row, env))
	if err != nil {
		return s.park(logCtx, tx, row, fmt.Errorf("%w: decode envelope: %v", errUndeliverable, err))
	}

	sendErr := s.send(ctx, row, env)
	switch {
	case sendErr == nil:
		if err := s.repo.MarkPublishedTx(tx, row.ID, s.now()); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		s.logg.Info(logCtx, "outbox event published")
		return nil
	case errors.Is(sendErr, errUndeliverable):
		return s.park(logCtx, tx, row, sendErr)
	}

	attempt := row.AttemptCount + 1
	logCtx = s.logg.WithFields(logCtx, map[string]any{"attempt_count": attempt, "error": sendErr.Error()})
	msg := "outbox publish failed"
	if attempt >= s.maxAttempts {
		msg = "outbox event exhausted publish attempts"
	}
	s.logg.Warn(logCtx, msg)
	if err := s.repo.MarkFailedTx(tx, row.ID, sendErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", row.ID, err)
	}
	return nil
}

// park takes the row out of rotation by setting its attempts to the cap.
func (s *Service) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, cause error) error {
	s.logg.Warn(s.logg.WithField(ctx, "error", cause.Error()), "outbox event will not be retried")
	if err := s.repo.MarkTerminalTx(tx, row.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

func (s *Service) send(ctx context.Context, row models.OutboxEvent, env outbox.PayloadEnvelope) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return s.transport.Send(ctx, outboundMessage{
		Key:  row.AggregateID.String(),
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       env.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
}

func (s *Service) fields(row models.OutboxEvent, env outbox.PayloadEnvelope) map[string]any {
	f := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
		"transport":      s.transport.Name(),
	}
	if env.EventID != "" {
		f["event_id"] = env.EventID
		f["occurred_at"] = env.OccurredAt.Format(time.RFC3339Nano)
	}
	if row.LastError != nil {
		f["last_error"] = *row.LastError
	}
	return f
}

// pacer doubles the wait after each consecutive failure, capped at limit.
type pacer struct {
	base, limit, current time.Duration
}

func (p *pacer) failure() time.Duration {
	if p.current <= 0 {
		p.current = p.base
	}
	p.current = min(p.current*2, p.limit)
	return jitter(p.current)
}

func (p *pacer) reset() { p.current = 0 }

// jitter adds up to jitterWindow so replicas do not poll in lockstep.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
