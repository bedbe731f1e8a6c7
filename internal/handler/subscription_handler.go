package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/marsblog/internal/model"
)

// SubscriptionServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	// Subscribe はメールアドレスを検証し、購読者として登録（または再有効化）する。
	Subscribe(ctx context.Context, email string) (*model.Subscriber, error)
	// Unsubscribe は購読を無効化する。
	Unsubscribe(ctx context.Context, email string) error
	// ListActive は有効な購読者一覧を返す。
	ListActive(ctx context.Context) ([]*model.Subscriber, error)
}

// SubscriptionHandler は購読管理のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
	}
}

// subscriberResponse は購読者情報のAPIレスポンス。
type subscriberResponse struct {
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribed_at"`
	IsActive     bool      `json:"is_active"`
}

// Subscribe はフォームのemailで購読登録する。
// POST /subscribe
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	if email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("email is required"))
		return
	}

	sub, err := h.service.Subscribe(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSubscriberResponse(sub))
}

// Unsubscribe はフォームのemailの購読を解除する。
// POST /unsubscribe
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	if email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("email is required"))
		return
	}

	if err := h.service.Unsubscribe(r.Context(), email); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSubscribers は有効な購読者一覧を返す（管理者用）。
// GET /admin/subscribers
func (h *SubscriptionHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]subscriberResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubscriberResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func toSubscriberResponse(s *model.Subscriber) subscriberResponse {
	return subscriberResponse{
		Email:        s.Email,
		SubscribedAt: s.SubscribedAt,
		IsActive:     s.IsActive,
	}
}
