package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/omoshop/shop-backend/pkg/config"
	"github.com/omoshop/shop-backend/pkg/db/models"
	"github.com/omoshop/shop-backend/pkg/enums"
	"github.com/omoshop/shop-backend/pkg/logger"
	"github.com/omoshop/shop-backend/pkg/metrics"
	"github.com/omoshop/shop-backend/pkg/outbox"
	"github.com/omoshop/shop-backend/pkg/outbox/payloads"
)

const (
	jobName            = "outbox-reconciler"
	defaultBatchSize   = 50
	defaultMaxAttempts = 10
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbPinger interface {
	Ping(context.Context) error
}

type outboxRepository interface {
	FetchUnprocessed(limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkProcessed(id uuid.UUID) error
	MarkFailed(id uuid.UUID, cause error) error
}

type cartClearer interface {
	ClearCartForOrder(ctx context.Context, orderID, cartID uuid.UUID) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbPinger
	Repository outboxRepository
	Carts      cartClearer
	Metrics    *metrics.JobMetrics
}

// Service drains the outbox and finishes the second phase of checkout:
// clearing the cart that produced each committed order.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbPinger
	repo         outboxRepository
	carts        cartClearer
	metrics      *metrics.JobMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Carts == nil {
		return nil, errors.New("cart service is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		carts:        params.Carts,
		metrics:      params.Metrics,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: params.Config.Outbox.PollInterval(),
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox reconciler context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox reconciler batch error", err)
			s.metrics.IncFailure(jobName)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	events, err := s.repo.FetchUnprocessed(s.batchSize, s.maxAttempts)
	if err != nil {
		return false, err
	}
	if len(events) == 0 {
		return false, nil
	}

	for _, event := range events {
		if err := s.handleEvent(ctx, event); err != nil {
			fields := s.eventFields(event)
			logCtx := s.logg.WithFields(ctx, fields)
			logCtx = s.logg.WithField(logCtx, "error", err.Error())
			if event.Attempts+1 >= s.maxAttempts {
				s.logg.Warn(logCtx, "outbox event parked after max attempts")
			} else {
				s.logg.Warn(logCtx, "outbox event handling failed")
			}
			if markErr := s.repo.MarkFailed(event.ID, err); markErr != nil {
				return true, fmt.Errorf("mark failure %s: %w", event.ID, markErr)
			}
			s.metrics.IncFailure(jobName)
			continue
		}

		if markErr := s.repo.MarkProcessed(event.ID); markErr != nil {
			return true, fmt.Errorf("mark processed %s: %w", event.ID, markErr)
		}
		s.metrics.IncSuccess(jobName)
		s.logg.Info(s.logg.WithFields(ctx, s.eventFields(event)), "outbox event reconciled")
	}

	s.metrics.ObserveDuration(jobName, time.Since(started))
	return true, nil
}

func (s *Service) handleEvent(ctx context.Context, event models.OutboxEvent) error {
	switch event.EventType {
	case enums.EventOrderCreated:
		var envelope outbox.PayloadEnvelope
		if err := json.Unmarshal(event.Payload, &envelope); err != nil {
			return fmt.Errorf("decode envelope: %w", err)
		}
		var data payloads.OrderCreatedEvent
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return fmt.Errorf("decode order_created payload: %w", err)
		}
		return s.carts.ClearCartForOrder(ctx, data.OrderID, data.CartID)
	case enums.EventCartCleared:
		// Informational only, nothing to reconcile.
		return nil
	default:
		return fmt.Errorf("unknown event type %q", event.EventType)
	}
}

func (s *Service) eventFields(event models.OutboxEvent) map[string]any {
	return map[string]any{
		"event_id":       event.ID.String(),
		"event_type":     string(event.EventType),
		"aggregate_id":   event.AggregateID.String(),
		"aggregate_type": string(event.AggregateType),
		"attempts":       event.Attempts,
	}
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		return base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
