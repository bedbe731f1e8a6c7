// Package subscription はメール購読の登録・解除のドメインロジックを提供する。
package subscription

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/hitoshi/marsblog/internal/metrics"
	"github.com/hitoshi/marsblog/internal/model"
	"github.com/hitoshi/marsblog/internal/repository"
)

// maxEmailLength はRFC 5321のアドレス長上限。
const maxEmailLength = 320

// Service は購読管理のサービス層。
type Service struct {
	repo    repository.SubscriberRepository
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.SubscriberRepository, collector metrics.MetricsCollector, logger *slog.Logger) *Service {
	return &Service{repo: repo, metrics: collector, logger: logger}
}

// Subscribe はメールアドレスを検証して購読者として登録する。
// 登録済みのアドレスは有効状態に戻す。
func (s *Service) Subscribe(ctx context.Context, email string) (*model.Subscriber, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	sub := model.NewSubscriber(normalized)
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}

	s.metrics.RecordSubscription()
	s.logger.Info("subscriber registered", slog.String("email_domain", domainOf(sub.Email)))
	return sub, nil
}

// Unsubscribe は購読を解除する。未登録のアドレスでもエラーにしない。
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	return s.repo.Deactivate(ctx, normalized)
}

// ListActive は有効な購読者一覧を返す（管理画面用）。
func (s *Service) ListActive(ctx context.Context) ([]*model.Subscriber, error) {
	return s.repo.ListActive(ctx)
}

// NormalizeEmail はアドレスの形式を検証し、小文字に正規化して返す。
// 表示名付きの形式（"Name <a@b>"）は受け付けない。
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	invalid := &model.ValidationError{Field: "email", Reason: "a valid email address is required"}
	if email == "" || len(email) > maxEmailLength {
		return "", invalid
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", invalid
	}
	if !strings.Contains(domainOf(email), ".") {
		return "", invalid
	}
	return email, nil
}

func domainOf(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return ""
}
