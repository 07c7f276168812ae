package payment

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"nlportal/internal/authentication"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/httputil"
	"nlportal/pkg/requestcontext"
)

type PaymentService interface {
	BuildForm(ctx context.Context, auth authentication.Authentication, req Request) (*Form, error)
	VerifyPostsale(ctx context.Context, values url.Values) (*Result, error)
}

type Handler struct {
	service PaymentService
	logger  *slog.Logger
}

func NewHandler(service PaymentService, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated payment routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/payments/ogone", h.HandleCreate)
}

// RegisterPublic mounts the post-sale callback, which Ogone calls without
// a portal session.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/payments/ogone/postsale", h.HandlePostsale)
}

// CreatePaymentRequest is the POST /api/payments/ogone body.
type CreatePaymentRequest struct {
	Amount       int64  `json:"amount"`
	Reference    string `json:"reference"`
	Title        string `json:"title"`
	AcceptURL    string `json:"acceptUrl"`
	DeclineURL   string `json:"declineUrl"`
	CancelURL    string `json:"cancelUrl"`
	ExceptionURL string `json:"exceptionUrl"`
}

func (r *CreatePaymentRequest) Validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if r.Reference == "" {
		return dErrors.New(dErrors.CodeValidation, "reference is required")
	}
	return nil
}

type formResponse struct {
	Action  string            `json:"action"`
	OrderID string            `json:"orderId"`
	Fields  map[string]string `json:"fields"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreatePaymentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	form, err := h.service.BuildForm(ctx, auth, Request{
		AmountCents:  req.Amount,
		Reference:    req.Reference,
		Title:        req.Title,
		AcceptURL:    req.AcceptURL,
		DeclineURL:   req.DeclineURL,
		CancelURL:    req.CancelURL,
		ExceptionURL: req.ExceptionURL,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to build payment form",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, formResponse{Action: form.Action, OrderID: form.OrderID, Fields: form.Fields})
}

// HandlePostsale accepts Ogone's server-to-server callback. Parameters may
// arrive in the query string or a form body.
func (h *Handler) HandlePostsale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid postsale body"))
		return
	}

	result, err := h.service.VerifyPostsale(ctx, r.Form)
	if err != nil {
		h.logger.WarnContext(ctx, "postsale rejected",
			"request_id", requestcontext.RequestID(ctx),
			"client_ip", requestcontext.ClientIP(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"orderId":   result.OrderID,
		"succeeded": result.Succeeded,
	})
}
