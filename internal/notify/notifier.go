// Package notify delivers provisioning outcomes to the external
// notification sink and the audit log sink. Both deliveries are best-effort
// and independent: a failed delivery is logged as a warning and never
// propagated, and the failure of one sink does not stop the other.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"metalhook/internal/config"
)

// Correlation carries the identifiers threaded from the inbound webhook to
// the outcome deliveries.
type Correlation struct {
	WebhookID string
	UserID    string
	EventID   string
}

// Outcome is the terminal result of one monitored transition.
type Outcome struct {
	ResourceName string
	Success      bool
	ErrorMessage string
	Correlation  Correlation
}

// AuditRecord is one entry for the audit log sink.
type AuditRecord struct {
	WebhookID    string            `json:"webhookId"`
	EventType    string            `json:"eventType"`
	Success      bool              `json:"success"`
	StatusCode   int               `json:"statusCode"`
	ResponseText string            `json:"responseText"`
	RetryCount   int               `json:"retryCount"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type notificationPayload struct {
	DeliveryID   string `json:"deliveryId"`
	WebhookID    string `json:"webhookId"`
	UserID       string `json:"userId,omitempty"`
	EventID      string `json:"eventId,omitempty"`
	ResourceName string `json:"resourceName"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type auditPayload struct {
	DeliveryID string `json:"deliveryId"`
	AuditRecord
}

// Notifier posts outcome and audit records over HTTP. An unconfigured
// endpoint disables the corresponding sink.
type Notifier struct {
	notificationEndpoint string
	auditEndpoint        string

	notificationClient *http.Client
	auditClient        *http.Client

	log logr.Logger
}

// New builds a notifier from the service configuration.
func New(cfg *config.Config, log logr.Logger) *Notifier {
	return &Notifier{
		notificationEndpoint: cfg.NotificationEndpoint,
		auditEndpoint:        cfg.WebhookLogEndpoint,
		notificationClient:   &http.Client{Timeout: cfg.NotificationTimeout},
		auditClient:          &http.Client{Timeout: cfg.WebhookLogTimeout},
		log:                  log.WithName("notify"),
	}
}

// NotifyOutcome reports a monitored transition's result to both sinks. It
// returns once both attempts have been made, regardless of their individual
// results.
func (n *Notifier) NotifyOutcome(ctx context.Context, outcome Outcome) {
	n.sendNotification(ctx, outcome)

	statusCode := http.StatusOK
	responseText := "Provisioning completed successfully"
	if !outcome.Success {
		statusCode = http.StatusInternalServerError
		responseText = fmt.Sprintf("Provisioning failed: %s", outcome.ErrorMessage)
	}

	n.SendAudit(ctx, AuditRecord{
		WebhookID:    outcome.Correlation.WebhookID,
		EventType:    "EVENT_START",
		Success:      outcome.Success,
		StatusCode:   statusCode,
		ResponseText: responseText,
		Metadata: map[string]string{
			"resourceName": outcome.ResourceName,
			"userId":       outcome.Correlation.UserID,
			"eventId":      outcome.Correlation.EventID,
			"errorMessage": outcome.ErrorMessage,
		},
	})
}

// SendAudit delivers one audit record, best-effort.
func (n *Notifier) SendAudit(ctx context.Context, record AuditRecord) {
	if n.auditEndpoint == "" {
		n.log.V(1).Info("audit endpoint not configured, skipping delivery")
		return
	}

	payload := auditPayload{
		DeliveryID:  uuid.NewString(),
		AuditRecord: record,
	}
	if err := n.post(ctx, n.auditClient, n.auditEndpoint, payload); err != nil {
		n.log.Info("audit delivery failed", "webhookId", record.WebhookID, "error", err.Error())
		recordDelivery("audit", "failure")
		return
	}
	recordDelivery("audit", "success")
}

func (n *Notifier) sendNotification(ctx context.Context, outcome Outcome) {
	if n.notificationEndpoint == "" {
		n.log.V(1).Info("notification endpoint not configured, skipping delivery")
		return
	}

	payload := notificationPayload{
		DeliveryID:   uuid.NewString(),
		WebhookID:    outcome.Correlation.WebhookID,
		UserID:       outcome.Correlation.UserID,
		EventID:      outcome.Correlation.EventID,
		ResourceName: outcome.ResourceName,
		Success:      outcome.Success,
		ErrorMessage: outcome.ErrorMessage,
	}
	if err := n.post(ctx, n.notificationClient, n.notificationEndpoint, payload); err != nil {
		n.log.Info("notification delivery failed", "resource", outcome.ResourceName, "error", err.Error())
		recordDelivery("notification", "failure")
		return
	}
	recordDelivery("notification", "success")
}

func (n *Notifier) post(ctx context.Context, client *http.Client, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
