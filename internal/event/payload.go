// Package event turns reservation-system webhook payloads into provisioning
// intents. Two payload shapes exist: the start/end event for a single
// resource, and the reservation-deleted event that nests the resource under
// a data envelope.
package event

import "encoding/json"

// Event type constants as emitted by the reservation system.
const (
	TypeStart   = "EVENT_START"
	TypeEnd     = "EVENT_END"
	TypeDeleted = "EVENT_DELETED"
)

// ResourceTypeServer is the only resource type this service acts on.
const ResourceTypeServer = "Server"

// Payload is the start/end event shape.
type Payload struct {
	EventType string      `json:"eventType"`
	Timestamp string      `json:"timestamp"`
	EventID   string      `json:"eventId"`
	WebhookID json.Number `json:"webhookId"`

	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`

	SSHKeys []string `json:"sshKeys,omitempty"`

	ImageURL    string `json:"imageUrl,omitempty"`
	ChecksumURL string `json:"checksumUrl,omitempty"`
	ImageFormat string `json:"imageFormat,omitempty"`

	EventTitle       string `json:"eventTitle,omitempty"`
	EventDescription string `json:"eventDescription,omitempty"`
	EventStart       string `json:"eventStart,omitempty"`
	EventEnd         string `json:"eventEnd,omitempty"`

	CustomParameters string `json:"customParameters,omitempty"`

	ResourceID       int64  `json:"resourceId"`
	ResourceName     string `json:"resourceName"`
	ResourceType     string `json:"resourceType"`
	ResourceSpecs    string `json:"resourceSpecs,omitempty"`
	ResourceLocation string `json:"resourceLocation,omitempty"`

	SiteID   string `json:"siteId,omitempty"`
	SiteName string `json:"siteName,omitempty"`
}

// DeletedPayload is the reservation-deleted event shape. Unlike the
// start/end shape, the reservation system sends its webhook id as a string
// here.
type DeletedPayload struct {
	EventType string      `json:"eventType"`
	Timestamp string      `json:"timestamp"`
	WebhookID string      `json:"webhookId"`
	Data      DeletedData `json:"data"`
}

// DeletedData carries the reservation window and resource details of a
// deleted reservation.
type DeletedData struct {
	ID               int64           `json:"id"`
	Start            string          `json:"start"`
	End              string          `json:"end"`
	CustomParameters string          `json:"customParameters,omitempty"`
	Resource         DeletedResource `json:"resource"`
	KeycloakID       string          `json:"keycloakId,omitempty"`
}

// DeletedResource identifies the resource of a deleted reservation.
type DeletedResource struct {
	Name     string `json:"name"`
	ID       int64  `json:"id"`
	Specs    string `json:"specs,omitempty"`
	Location string `json:"location,omitempty"`
}
