package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/ynakagi/homerelay/internal/domain"
	"github.com/ynakagi/homerelay/internal/service"
)

// WebhookHandler receives event batches from the chat platform. The platform
// retries on non-200 responses, and retried batches would replay commands, so
// the handler acknowledges with 200 even when processing fails.
type WebhookHandler struct {
	dispatcher *service.Dispatcher
	timeout    time.Duration
}

func NewWebhookHandler(dispatcher *service.Dispatcher, timeout time.Duration) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, timeout: timeout}
}

// Receive handles POST /webhook. The acknowledgement is a bare 200 with an
// empty body.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error().Err(err).Msg("failed to read webhook body")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req domain.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Warn().Err(err).Msg("failed to decode webhook body")
		w.WriteHeader(http.StatusOK)
		return
	}

	if len(req.Events) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		h.dispatcher.HandleEvents(ctx, req.Events)
	}

	w.WriteHeader(http.StatusOK)
}
