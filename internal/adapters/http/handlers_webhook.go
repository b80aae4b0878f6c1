package http

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/playnatela/volante-express/internal/application"
	"github.com/playnatela/volante-express/internal/domain"
)

func (h *Handler) ingestWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.webhookAuthorized(r) {
		logHTTPOperationError(ctx, "ingest_webhook", http.StatusUnauthorized, "UNAUTHORIZED", "webhook token mismatch", nil)
		writeWebhookError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logHTTPOperationError(ctx, "ingest_webhook", http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "payload too large", err)
			writeWebhookError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		logHTTPOperationError(ctx, "ingest_webhook", http.StatusBadRequest, "VALIDATION_ERROR", "unreadable body", err)
		writeWebhookError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	query := r.URL.Query()
	result, err := h.service.IngestWebhook(ctx, application.WebhookRequest{
		Source:         chi.URLParam(r, "source"),
		RegionID:       query.Get("region"),
		StatusOverride: query.Get("status"),
		Body:           body,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			logHTTPOperationError(ctx, "ingest_webhook", http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), err)
			writeWebhookError(w, http.StatusBadRequest, err.Error())
			return
		}
		logHTTPOperationError(ctx, "ingest_webhook", http.StatusInternalServerError, "INTERNAL_ERROR", "webhook processing failed", err)
		writeWebhookError(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}
	writeWebhookAck(w, result)
}

func (h *Handler) webhookAuthorized(r *http.Request) bool {
	if h.opts.WebhookSecret == "" {
		return true
	}
	presented := r.Header.Get("X-Webhook-Token")
	if presented == "" {
		presented = r.URL.Query().Get("token")
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(h.opts.WebhookSecret)) == 1
}
