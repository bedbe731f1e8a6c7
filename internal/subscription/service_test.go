package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/marsblog/internal/metrics"
	"github.com/hitoshi/marsblog/internal/model"
)

// --- モック ---

type mockSubscriberRepo struct {
	saveFn       func(ctx context.Context, s *model.Subscriber) error
	deactivateFn func(ctx context.Context, email string) error
	listActiveFn func(ctx context.Context) ([]*model.Subscriber, error)
}

func (m *mockSubscriberRepo) Save(ctx context.Context, s *model.Subscriber) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, s)
	}
	return nil
}
func (m *mockSubscriberRepo) ListActive(ctx context.Context) ([]*model.Subscriber, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, nil
}
func (m *mockSubscriberRepo) Deactivate(ctx context.Context, email string) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, email)
	}
	return nil
}

func newTestService(repo *mockSubscriberRepo) *Service {
	return NewService(repo, metrics.Nop{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSubscribe_NormalizesAndSaves(t *testing.T) {
	var saved *model.Subscriber
	repo := &mockSubscriberRepo{saveFn: func(ctx context.Context, s *model.Subscriber) error {
		saved = s
		return nil
	}}
	svc := newTestService(repo)

	sub, err := svc.Subscribe(context.Background(), "  Ares@Example.COM ")
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	if saved == nil || saved.Email != "ares@example.com" || !saved.IsActive {
		t.Errorf("saved = %+v", saved)
	}
	if sub.Email != "ares@example.com" {
		t.Errorf("Email = %q", sub.Email)
	}
}

func TestSubscribe_RejectsInvalidAddresses(t *testing.T) {
	repo := &mockSubscriberRepo{saveFn: func(ctx context.Context, s *model.Subscriber) error {
		t.Fatal("Save must not be called for invalid input")
		return nil
	}}
	svc := newTestService(repo)

	for _, email := range []string{"", "not-an-email", "a@localhost", "Ares <ares@example.com>", "a@@example.com"} {
		_, err := svc.Subscribe(context.Background(), email)
		var ve *model.ValidationError
		if !errors.As(err, &ve) || ve.Field != "email" {
			t.Errorf("Subscribe(%q) err = %v, want email ValidationError", email, err)
		}
	}
}

func TestSubscribe_PropagatesStorageError(t *testing.T) {
	cause := errors.New("connection refused")
	repo := &mockSubscriberRepo{saveFn: func(ctx context.Context, s *model.Subscriber) error {
		return model.NewStorageError("save subscriber", cause)
	}}
	svc := newTestService(repo)

	_, err := svc.Subscribe(context.Background(), "a@example.com")
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want wrapped cause", err)
	}
}

func TestUnsubscribe_DeactivatesNormalizedAddress(t *testing.T) {
	var got string
	repo := &mockSubscriberRepo{deactivateFn: func(ctx context.Context, email string) error {
		got = email
		return nil
	}}
	svc := newTestService(repo)

	if err := svc.Unsubscribe(context.Background(), "A@Example.com"); err != nil {
		t.Fatal(err)
	}
	if got != "a@example.com" {
		t.Errorf("deactivated %q", got)
	}
}

func TestListActive(t *testing.T) {
	repo := &mockSubscriberRepo{listActiveFn: func(ctx context.Context) ([]*model.Subscriber, error) {
		return []*model.Subscriber{model.NewSubscriber("a@example.com")}, nil
	}}
	svc := newTestService(repo)

	subs, err := svc.ListActive(context.Background())
	if err != nil || len(subs) != 1 {
		t.Errorf("ListActive = %v, %v", subs, err)
	}
}
