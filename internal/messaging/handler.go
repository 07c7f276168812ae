package messaging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"nlportal/internal/authentication"
	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/httputil"
	"nlportal/pkg/requestcontext"
)

// DefaultHeartbeat keeps idle streams open through proxies.
const DefaultHeartbeat = 25 * time.Second

type Handler struct {
	broker    *Broker
	publisher *Publisher
	logger    *slog.Logger
	heartbeat time.Duration
}

func NewHandler(broker *Broker, logger *slog.Logger) *Handler {
	return &Handler{
		broker:    broker,
		publisher: broker.Publisher(),
		logger:    logger,
		heartbeat: DefaultHeartbeat,
	}
}

// Register mounts the authenticated stream.
func (h *Handler) Register(r chi.Router) {
	r.Get("/messages/stream", h.HandleStream)
}

// RegisterInternal mounts the system-to-system publish endpoint. The caller
// guards it.
func (h *Handler) RegisterInternal(r chi.Router) {
	r.Post("/messages", h.HandlePublish)
}

// HandleStream streams the caller's messages as server-sent events until
// the client disconnects.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auth := authentication.FromContext(ctx)
	if auth == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	sub, err := h.broker.Subscribe(auth.SubjectID())
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "message stream unavailable"))
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.InfoContext(ctx, "message stream opened",
		"request_id", requestcontext.RequestID(ctx),
		"kind", auth.Kind(),
	)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", msg.ID, msg.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// PublishRequest is the POST /api/internal/messages body.
type PublishRequest struct {
	Recipient string          `json:"recipient"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

func (r *PublishRequest) Validate() error {
	if r.Recipient == "" {
		return dErrors.New(dErrors.CodeValidation, "recipient is required")
	}
	if r.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "type is required")
	}
	if !validType(r.Type) {
		return ErrInvalidType
	}
	return nil
}

func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PublishRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var payload any
	if len(req.Payload) > 0 {
		payload = req.Payload
	}
	msg, err := h.publisher.Publish(ctx, req.Recipient, req.Type, payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to publish message",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"id": msg.ID})
}
