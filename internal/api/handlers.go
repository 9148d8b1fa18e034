package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ignite/signup-capture/internal/domain"
	"github.com/ignite/signup-capture/internal/pkg/httputil"
	"github.com/ignite/signup-capture/internal/service/subscription"
)

const invalidBodyMessage = "Invalid request body"

// SubscriptionService is what the handlers need from subscription.Service.
type SubscriptionService interface {
	Subscribe(ctx context.Context, sub subscription.Submission) (*domain.Subscriber, error)
	List(ctx context.Context) ([]domain.Subscriber, error)
}

// Handlers serves the subscribe and list endpoints.
type Handlers struct {
	svc          SubscriptionService
	maxBodyBytes int64
}

// NewHandlers creates handlers. maxBodyBytes <= 0 disables the body limit.
func NewHandlers(svc SubscriptionService, maxBodyBytes int64) *Handlers {
	return &Handlers{svc: svc, maxBodyBytes: maxBodyBytes}
}

// HandleSubscribe accepts a landing-page signup.
//
//	POST /api/subscribe
func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req domain.SubscribeRequest
	if err := httputil.Decode(r, &req); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		httputil.BadRequest(w, invalidBodyMessage)
		return
	}

	_, err := h.svc.Subscribe(r.Context(), subscription.Submission{
		Name:    req.Name,
		Email:   req.Email,
		Referer: r.Header.Get("Referer"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.OK(w, domain.SubscribeResponse{Success: true, Message: domain.SubscribeSuccessMessage})
}

// HandleListUsers returns every subscriber, newest first.
//
//	GET /api/users
func (h *Handlers) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, subs)
}

func writeServiceError(w http.ResponseWriter, err error) {
	kind := subscription.KindOf(err)
	if kind.UserFacing() {
		httputil.BadRequest(w, kind.Message())
		return
	}
	httputil.InternalError(w, err)
}
