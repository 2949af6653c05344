package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/product-links/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventProductCreated EventType = "product_created"
	EventProductsSynced EventType = "products_synced"
	EventLinkIssued     EventType = "link_issued"
	EventLinkAccessed   EventType = "link_accessed"
)

// Actor encapsulates actor metadata for an event. Anonymous link visitors
// carry no staff id.
type Actor struct {
	Type    domain.SubjectType `json:"type,omitempty"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// StaffActor builds an Actor for a staff member id.
func StaffActor(staffID string) Actor {
	if staffID == "" {
		return Actor{}
	}
	return Actor{Type: domain.SubjectTypeStaff, StaffID: &staffID}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ProductID int64       `json:"product_id,omitempty"`
	LinkID    int64       `json:"link_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps a fresh id and timestamp.
func NewEvent(eventType EventType, actor Actor, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: at.UTC(),
	}
}

// ProductCreatedPayload payload.
type ProductCreatedPayload struct {
	CRMID int64  `json:"crm_id"`
	Name  string `json:"name"`
}

// ProductsSyncedPayload payload.
type ProductsSyncedPayload struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// LinkIssuedPayload payload.
type LinkIssuedPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// LinkAccessedPayload payload.
type LinkAccessedPayload struct {
	ClientIP   string    `json:"client_ip,omitempty"`
	AccessedAt time.Time `json:"accessed_at"`
}
