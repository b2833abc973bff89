// Package provisioner coordinates the full handling of one webhook event:
// classification, image resolution, credential materialization, the host
// patch, monitor registration, and the initiation audit record.
//
// The Orchestrator is constructed once at process start with all of its
// collaborators and passed to the request handlers; there is no package
// state.
package provisioner

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"metalhook/internal/baremetal"
	"metalhook/internal/cloudinit"
	"metalhook/internal/config"
	"metalhook/internal/event"
	"metalhook/internal/image"
	"metalhook/internal/notify"
)

// HostClient is the write side of the cluster API the orchestrator needs.
// *baremetal.Client implements it.
type HostClient interface {
	Provision(ctx context.Context, hostName string, img *image.Resolved, cloudConfig string) error
	Deprovision(ctx context.Context, hostName string) error
}

// MonitorStarter registers background completion monitors.
// *monitor.Registry implements it.
type MonitorStarter interface {
	Start(resourceName string, correlation notify.Correlation, timeout time.Duration)
}

// AuditSink receives initiation audit records. *notify.Notifier implements
// it.
type AuditSink interface {
	SendAudit(ctx context.Context, record notify.AuditRecord)
}

// Result describes a successfully handled event for the transport layer.
type Result struct {
	Action       string
	ResourceName string
	UserID       string
	Message      string
}

// Orchestrator drives provisioning transitions for inbound events.
type Orchestrator struct {
	cfg      *config.Config
	hosts    HostClient
	monitors MonitorStarter
	audit    AuditSink
	log      logr.Logger
}

// New wires an orchestrator from its collaborators.
func New(cfg *config.Config, hosts HostClient, monitors MonitorStarter, audit AuditSink, log logr.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		hosts:    hosts,
		monitors: monitors,
		audit:    audit,
		log:      log.WithName("provisioner"),
	}
}

// HandleEvent classifies a raw webhook body and executes the resulting
// intent. Validation failures surface as *event.ValidationError before any
// external call is made; cluster API failures surface as
// *baremetal.DependencyError.
func (o *Orchestrator) HandleEvent(ctx context.Context, body []byte) (*Result, error) {
	intent, err := event.Classify(body)
	if err != nil {
		return nil, err
	}

	log := o.log.WithValues("host", intent.ResourceName, "eventType", intent.EventType)

	switch intent.Kind {
	case event.KindProvision:
		return o.handleProvision(ctx, intent, log)
	case event.KindDeprovision:
		return o.handleDeprovision(ctx, intent, log)
	default:
		log.Info("event acknowledged without action", "reason", intent.NoOpReason)
		return &Result{
			Action:       "no-op",
			ResourceName: intent.ResourceName,
			UserID:       intent.UserID,
			Message:      "No action taken (" + intent.NoOpReason + ").",
		}, nil
	}
}

func (o *Orchestrator) handleProvision(ctx context.Context, intent *event.Intent, log logr.Logger) (*Result, error) {
	resolved, err := image.Resolve(intent)
	if err != nil {
		o.auditInitiation(ctx, intent, false, http.StatusBadRequest, err.Error())
		return nil, err
	}

	keys, rejected := cloudinit.FilterKeys(intent.SSHKeys)
	for _, key := range rejected {
		log.Info("dropping unparseable SSH key", "key", truncateKey(key))
	}
	if len(keys) == 0 {
		log.Info("no usable SSH keys provided, external account will have no authorized keys")
	}

	cloudConfig, err := cloudinit.Render(keys)
	if err != nil {
		err = &baremetal.DependencyError{Op: "render user data", Resource: intent.ResourceName, Err: err}
		o.auditInitiation(ctx, intent, false, http.StatusInternalServerError, err.Error())
		return nil, err
	}

	if err := o.hosts.Provision(ctx, intent.ResourceName, resolved, cloudConfig); err != nil {
		o.auditInitiation(ctx, intent, false, http.StatusInternalServerError, err.Error())
		return nil, err
	}

	if intent.WebhookID != "" && intent.UserID != "" {
		o.monitors.Start(intent.ResourceName, notify.Correlation{
			WebhookID: intent.WebhookID,
			UserID:    intent.UserID,
			EventID:   intent.EventID,
		}, o.cfg.ProvisioningTimeout)
		log.Info("started background completion monitor", "timeout", o.cfg.ProvisioningTimeout)
	} else {
		log.Info("correlation identifiers incomplete, skipping completion monitor")
	}

	msg := fmt.Sprintf("Provisioning initiated for server '%s'", intent.ResourceName)
	o.auditInitiation(ctx, intent, true, http.StatusOK, msg)
	log.Info("provisioning initiated", "image", resolved.URL)

	return &Result{
		Action:       "provision",
		ResourceName: intent.ResourceName,
		UserID:       intent.UserID,
		Message:      fmt.Sprintf("Successfully provisioned server '%s'", intent.ResourceName),
	}, nil
}

func (o *Orchestrator) handleDeprovision(ctx context.Context, intent *event.Intent, log logr.Logger) (*Result, error) {
	if err := o.hosts.Deprovision(ctx, intent.ResourceName); err != nil {
		o.auditInitiation(ctx, intent, false, http.StatusInternalServerError, err.Error())
		return nil, err
	}

	msg := fmt.Sprintf("Deprovisioning initiated for server '%s'", intent.ResourceName)
	o.auditInitiation(ctx, intent, true, http.StatusOK, msg)
	log.Info("deprovisioning initiated")

	return &Result{
		Action:       "deprovision",
		ResourceName: intent.ResourceName,
		UserID:       intent.UserID,
		Message:      fmt.Sprintf("Successfully deprovisioned server '%s'", intent.ResourceName),
	}, nil
}

// auditInitiation emits the one audit record every handled event with
// correlation identifiers produces, success or failure.
func (o *Orchestrator) auditInitiation(ctx context.Context, intent *event.Intent, success bool, statusCode int, responseText string) {
	if intent.WebhookID == "" {
		return
	}

	o.audit.SendAudit(ctx, notify.AuditRecord{
		WebhookID:    intent.WebhookID,
		EventType:    intent.EventType,
		Success:      success,
		StatusCode:   statusCode,
		ResponseText: responseText,
		Metadata: map[string]string{
			"resourceName": intent.ResourceName,
			"userId":       intent.UserID,
			"eventId":      intent.EventID,
		},
	})
}

// truncateKey shortens an SSH key for log output.
func truncateKey(key string) string {
	if len(key) > 24 {
		return key[:24] + "..."
	}
	return key
}
