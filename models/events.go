package models

import "time"

// Lifecycle event types pushed to dashboards and the event bus.
const (
	EventPickupCreated = "pickup_created"
	EventPickupUpdated = "pickup_updated"
	EventPickupDeleted = "pickup_deleted"
)

// PickupEvent carries the full updated record plus denormalized display names
// so subscribers don't need a follow-up query.
type PickupEvent struct {
	Type         string       `json:"type"`
	Pickup       PickupRecord `json:"pickup"`
	MarketerName string       `json:"marketer_name,omitempty"`
	AdminName    string       `json:"admin_name,omitempty"`
	At           time.Time    `json:"at"`
}
