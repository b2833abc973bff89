package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"metalhook/internal/baremetal"
	"metalhook/internal/config"
	"metalhook/internal/event"
	"metalhook/internal/provisioner"
)

// maxBodyBytes bounds the inbound payload size.
const maxBodyBytes = 1 << 20

// EventHandler is the orchestration entry point the transport dispatches
// to. *provisioner.Orchestrator implements it.
type EventHandler interface {
	HandleEvent(ctx context.Context, body []byte) (*provisioner.Result, error)
}

// Handler serves the webhook API.
type Handler struct {
	cfg    *config.Config
	events EventHandler
	log    logr.Logger
}

// NewHandler builds the webhook handler.
func NewHandler(cfg *config.Config, events EventHandler, log logr.Logger) *Handler {
	return &Handler{cfg: cfg, events: events, log: log.WithName("server")}
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
}

// handleWebhook processes one inbound reservation event: signature check,
// classification, dispatch. The response reports initiation only; the
// monitored completion is delivered out of band.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "failed to read request body"})
		recordEvent("", "read_error", time.Since(started).Seconds())
		return
	}

	eventType := peekEventType(body)

	if h.cfg.SignatureRequired() {
		if !VerifySignature(h.cfg.WebhookSecret, body, r.Header.Get(SignatureHeader)) {
			h.log.Info("webhook signature verification failed")
			h.writeJSON(w, http.StatusUnauthorized, response{Status: "error", Message: "Invalid webhook signature"})
			recordEvent(eventType, "auth_error", time.Since(started).Seconds())
			return
		}
	}

	result, err := h.events.HandleEvent(r.Context(), body)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, response{
			Status:  "success",
			Message: result.Message,
			UserID:  result.UserID,
		})
		recordEvent(eventType, result.Action, time.Since(started).Seconds())

	case isValidationError(err):
		h.log.Info("rejecting invalid payload", "error", err.Error())
		h.writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: err.Error()})
		recordEvent(eventType, "validation_error", time.Since(started).Seconds())

	case isDependencyError(err):
		h.log.Error(err, "failed to initiate transition")
		h.writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: err.Error()})
		recordEvent(eventType, "dependency_error", time.Since(started).Seconds())

	default:
		h.log.Error(err, "unexpected handling failure")
		h.writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: "internal error"})
		recordEvent(eventType, "internal_error", time.Since(started).Seconds())
	}
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "server-provisioning-webhook",
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error(err, "failed to write response")
	}
}

func isValidationError(err error) bool {
	var verr *event.ValidationError
	return errors.As(err, &verr)
}

func isDependencyError(err error) bool {
	var derr *baremetal.DependencyError
	return errors.As(err, &derr)
}

// peekEventType extracts the event type for metrics without failing on
// malformed bodies.
func peekEventType(body []byte) string {
	var probe struct {
		EventType string `json:"eventType"`
	}
	_ = json.Unmarshal(body, &probe)
	return probe.EventType
}
