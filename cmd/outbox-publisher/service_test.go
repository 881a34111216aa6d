package main

import (
	"context"
	"errors"
	"io"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tobimartins/servicehub-backend/pkg/config"
	"github.com/tobimartins/servicehub-backend/pkg/db/models"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
	"github.com/tobimartins/servicehub-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (r *stubRepo) FetchUnpublished(limit int) ([]models.OutboxEvent, error) {
	if limit < len(r.events) {
		return r.events[:limit], nil
	}
	return r.events, nil
}

func (r *stubRepo) MarkPublished(id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *stubRepo) MarkFailed(id uuid.UUID, _ error) error {
	r.failed = append(r.failed, id)
	return nil
}

type stubResult struct {
	err error
}

func (r stubResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}

type stubPublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (p *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return stubResult{err: p.err}
}

func testEvent(attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.OutboxEventPaymentCompleted,
		AggregateType: enums.OutboxAggregatePayment,
		AggregateID:   "SHP-20250810120000-ABCDEF2345",
		Payload:       []byte(`{"version":1}`),
		AttemptCount:  attempts,
	}
}

func newTestService(t *testing.T, repo *stubRepo, pub *stubPublisher) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logg,
		DB:         stubPinger{},
		PubSub:     stubPinger{},
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestProcessBatchPublishes(t *testing.T) {
	event := testEvent(0)
	repo := &stubRepo{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected 1 publish got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Attributes["aggregate_id"] != event.AggregateID {
		t.Fatalf("expected aggregate_id attribute %s got %s", event.AggregateID, msg.Attributes["aggregate_id"])
	}
	if msg.Attributes["event_type"] != string(enums.OutboxEventPaymentCompleted) {
		t.Fatalf("unexpected event_type attribute %s", msg.Attributes["event_type"])
	}
	if len(repo.published) != 1 || repo.published[0] != event.ID {
		t.Fatalf("expected event marked published, got %v", repo.published)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("expected no failures, got %v", repo.failed)
	}
}

func TestProcessBatchMarksFailure(t *testing.T) {
	event := testEvent(0)
	repo := &stubRepo{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{err: errors.New("broker unavailable")}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != event.ID {
		t.Fatalf("expected event marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 0 {
		t.Fatalf("expected no published events, got %v", repo.published)
	}
}

func TestProcessBatchSkipsExhaustedEvents(t *testing.T) {
	event := testEvent(defaultMaxAttempts)
	repo := &stubRepo{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if len(pub.messages) != 0 {
		t.Fatalf("expected no publish attempts, got %d", len(pub.messages))
	}
	if len(repo.failed) != 0 || len(repo.published) != 0 {
		t.Fatal("expected no repo writes for exhausted event")
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo, &stubPublisher{})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed {
		t.Fatal("expected empty batch to report not processed")
	}
}
