package event

import (
	"encoding/json"
	"strconv"
)

// Kind is the action an intent asks for.
type Kind int

const (
	// KindNoOp means the event is acknowledged without side effects.
	KindNoOp Kind = iota
	// KindProvision asks for the host to be provisioned.
	KindProvision
	// KindDeprovision asks for the host to be released.
	KindDeprovision
)

func (k Kind) String() string {
	switch k {
	case KindProvision:
		return "provision"
	case KindDeprovision:
		return "deprovision"
	default:
		return "no-op"
	}
}

// Intent is the normalized unit of work derived from a webhook payload.
type Intent struct {
	Kind         Kind
	ResourceName string

	// Correlation identifiers threaded through to the outcome notifier.
	UserID    string
	EventID   string
	WebhookID string

	ImageURL    string
	ChecksumURL string
	ImageFormat string

	SSHKeys []string

	CustomParameters map[string]any

	// EventType is the raw inbound event type, kept for audit records.
	EventType string

	// NoOpReason explains an acknowledged-without-action classification.
	NoOpReason string
}

// Classify normalizes a raw webhook body into an Intent. The body is
// dispatched on its eventType: start/end events map to provision and
// deprovision, a reservation-deleted event maps to deprovision only when the
// deletion falls inside the reservation window, and anything else is a
// no-op. An undecodable body or malformed timestamp yields a
// ValidationError.
func Classify(body []byte) (*Intent, error) {
	var probe struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &ValidationError{Reason: "unknown payload structure", cause: err}
	}

	switch probe.EventType {
	case TypeStart, TypeEnd:
		var p Payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, &ValidationError{Reason: "malformed event payload", cause: err}
		}
		return classifyStartEnd(&p)
	case TypeDeleted:
		var p DeletedPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, &ValidationError{Reason: "malformed deletion payload", cause: err}
		}
		return classifyDeleted(&p)
	default:
		return &Intent{
			Kind:       KindNoOp,
			EventType:  probe.EventType,
			NoOpReason: "event type not handled",
		}, nil
	}
}

func classifyStartEnd(p *Payload) (*Intent, error) {
	if p.ResourceType != ResourceTypeServer {
		return &Intent{
			Kind:         KindNoOp,
			EventType:    p.EventType,
			ResourceName: p.ResourceName,
			NoOpReason:   "resource type " + strconv.Quote(p.ResourceType) + " not handled",
		}, nil
	}
	if p.ResourceName == "" {
		return nil, &ValidationError{Reason: "resourceName is required"}
	}
	if p.WebhookID.String() == "" {
		return nil, &ValidationError{Reason: "webhookId is required"}
	}

	intent := &Intent{
		ResourceName:     p.ResourceName,
		UserID:           p.UserID,
		EventID:          p.EventID,
		WebhookID:        p.WebhookID.String(),
		EventType:        p.EventType,
		CustomParameters: ParseCustomParameters(p.CustomParameters),
	}

	if p.EventType == TypeStart {
		intent.Kind = KindProvision
		intent.ImageURL = p.ImageURL
		intent.ChecksumURL = p.ChecksumURL
		intent.ImageFormat = p.ImageFormat
		intent.SSHKeys = p.SSHKeys
	} else {
		intent.Kind = KindDeprovision
	}
	return intent, nil
}

// classifyDeleted applies the reservation-window rule: a deletion maps to a
// deprovision only when start <= now < end. Deletion at or after the end is
// a no-op because the reservation already lapsed; deletion before the start
// is a no-op because it never began.
func classifyDeleted(p *DeletedPayload) (*Intent, error) {
	if p.Data.Resource.Name == "" {
		return nil, &ValidationError{Reason: "data.resource.name is required"}
	}
	if p.WebhookID == "" {
		return nil, &ValidationError{Reason: "webhookId is required"}
	}

	now, err := ParseTimestamp(p.Timestamp)
	if err != nil {
		return nil, err
	}
	start, err := ParseTimestamp(p.Data.Start)
	if err != nil {
		return nil, err
	}
	end, err := ParseTimestamp(p.Data.End)
	if err != nil {
		return nil, err
	}

	intent := &Intent{
		ResourceName:     p.Data.Resource.Name,
		UserID:           p.Data.KeycloakID,
		EventID:          strconv.FormatInt(p.Data.ID, 10),
		WebhookID:        p.WebhookID,
		EventType:        p.EventType,
		CustomParameters: ParseCustomParameters(p.Data.CustomParameters),
	}

	if !now.Before(start) && now.Before(end) {
		intent.Kind = KindDeprovision
	} else {
		intent.Kind = KindNoOp
		intent.NoOpReason = "reservation not active"
	}
	return intent, nil
}

// ParseCustomParameters leniently decodes the JSON-serialized
// customParameters string. Absent or invalid input yields an empty map; the
// field is advisory and must never fail classification.
func ParseCustomParameters(s string) map[string]any {
	if s == "" {
		return map[string]any{}
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(s), &params); err != nil || params == nil {
		return map[string]any{}
	}
	return params
}
