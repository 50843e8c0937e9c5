package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/omoshop/shop-backend/pkg/config"
	"github.com/omoshop/shop-backend/pkg/db/models"
	"github.com/omoshop/shop-backend/pkg/enums"
	"github.com/omoshop/shop-backend/pkg/logger"
	"github.com/omoshop/shop-backend/pkg/outbox"
	"github.com/omoshop/shop-backend/pkg/outbox/payloads"
)

func TestServiceProcessBatchClearsCarts(t *testing.T) {
	orderID := uuid.New()
	cartID := uuid.New()
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       mustOrderCreatedPayload(t, orderID, cartID),
	}
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	carts := &fakeCarts{}
	service := newTestService(t, repo, carts, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(carts.cleared); got != 1 {
		t.Fatalf("unexpected number of cleared orders: %d", got)
	}
	if carts.cleared[0] != orderID {
		t.Fatalf("cleared wrong order: %s", carts.cleared[0])
	}
	if carts.clearedCarts[0] != cartID {
		t.Fatalf("expected the cart id from the event payload, got %s", carts.clearedCarts[0])
	}
	if got := len(repo.processed); got != 1 || repo.processed[0] != event.ID {
		t.Fatalf("expected event marked processed once, got %v", repo.processed)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("expected no failures, got %v", repo.failed)
	}
}

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	firstOrder := uuid.New()
	secondOrder := uuid.New()
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			{
				ID:            uuid.New(),
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   firstOrder,
				Payload:       mustOrderCreatedPayload(t, firstOrder, uuid.New()),
			},
			{
				ID:            uuid.New(),
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   secondOrder,
				Payload:       mustOrderCreatedPayload(t, secondOrder, uuid.New()),
			},
		},
	}
	carts := &fakeCarts{errs: map[uuid.UUID]error{firstOrder: errors.New("transient")}}
	service := newTestService(t, repo, carts, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("unexpected failed rows: %v", repo.failed)
	}
	if got := len(repo.processed); got != 1 || repo.processed[0] != repo.events[1].ID {
		t.Fatalf("unexpected processed rows: %v", repo.processed)
	}
}

func TestServiceProcessBatchSkipsCartClearedEvents(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventCartCleared,
		AggregateType: enums.AggregateCart,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
	}
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	carts := &fakeCarts{}
	service := newTestService(t, repo, carts, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(carts.cleared) != 0 {
		t.Fatalf("cart cleared events must not trigger reconciliation")
	}
	if got := len(repo.processed); got != 1 {
		t.Fatalf("expected informational event marked processed, got %d", got)
	}
}

func TestServiceProcessBatchFailsUnknownEventType(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.OutboxEventType("product_deleted"),
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	service := newTestService(t, repo, &fakeCarts{}, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if got := len(repo.failed); got != 1 || repo.failed[0] != event.ID {
		t.Fatalf("expected unknown event marked failed, got %v", repo.failed)
	}
}

func TestServiceProcessBatchReportsIdleWhenEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakeCarts{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("expected idle batch")
	}
}

func TestNewServiceAppliesConfigDefaults(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakeCarts{}, &config.OutboxConfig{})

	if service.batchSize != defaultBatchSize {
		t.Fatalf("unexpected batch size: %d", service.batchSize)
	}
	if service.maxAttempts != defaultMaxAttempts {
		t.Fatalf("unexpected max attempts: %d", service.maxAttempts)
	}
	if service.pollInterval <= 0 {
		t.Fatalf("unexpected poll interval: %s", service.pollInterval)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakeCarts{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func newTestService(t *testing.T, repo outboxRepository, carts cartClearer, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      10,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	cfg := &config.Config{
		Outbox: outboxCfg,
	}
	logg := logger.New(logger.Options{
		ServiceName: "worker-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         &fakeDB{},
		Repository: repo,
		Carts:      carts,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustOrderCreatedPayload(tb testing.TB, orderID, cartID uuid.UUID) json.RawMessage {
	tb.Helper()
	data, err := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:    orderID,
		CartID:     cartID,
		UserID:     uuid.New(),
		TotalPrice: "100.00",
	})
	if err != nil {
		tb.Fatalf("marshal payload: %v", err)
	}
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events    []models.OutboxEvent
	processed []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeRepo) FetchUnprocessed(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkProcessed(id uuid.UUID) error {
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

type fakeCarts struct {
	cleared      []uuid.UUID
	clearedCarts []uuid.UUID
	errs         map[uuid.UUID]error
}

func (f *fakeCarts) ClearCartForOrder(_ context.Context, orderID, cartID uuid.UUID) error {
	if err, ok := f.errs[orderID]; ok {
		return err
	}
	f.cleared = append(f.cleared, orderID)
	f.clearedCarts = append(f.clearedCarts, cartID)
	return nil
}
