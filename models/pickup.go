package models

import (
	"time"

	"github.com/google/uuid"
)

// Pickup statuses. A record leaves "pending" exactly once; the other four
// are terminal.
const (
	StatusPending     = "pending"
	StatusSold        = "sold"
	StatusExpired     = "expired"
	StatusReturned    = "returned"
	StatusTransferred = "transferred"
)

// IsTerminal reports whether a status permits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusSold, StatusExpired, StatusReturned, StatusTransferred:
		return true
	}
	return false
}

// PickupRecord is one reservation of dealer stock by a marketer for a bounded
// selling window. AdminID is the marketer's supervisor, denormalized at
// creation time so hierarchy queries don't depend on later reassignments.
type PickupRecord struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MarketerID    string     `json:"marketer_id" gorm:"not null;index"`
	AdminID       string     `json:"admin_id" gorm:"not null;index"`
	DealerID      string     `json:"dealer_id" gorm:"not null;index"`
	DeviceName    string     `json:"device_name" gorm:"not null"`
	DeviceModel   string     `json:"device_model" gorm:"not null"`
	Quantity      int        `json:"quantity" gorm:"not null"`
	PickupDate    time.Time  `json:"pickup_date" gorm:"not null"`
	Deadline      time.Time  `json:"deadline" gorm:"not null;index"`
	Status        string     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Location      string     `json:"location"`
	TransferredTo *uuid.UUID `json:"transferred_to,omitempty" gorm:"type:uuid"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// CreatePickupRequest is the payload for reserving stock.
type CreatePickupRequest struct {
	DealerID    string `json:"dealer_id" binding:"required"`
	DeviceName  string `json:"device_name" binding:"required"`
	DeviceModel string `json:"device_model" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
	Location    string `json:"location"`
}

// TransferPickupRequest reassigns a pending pickup to another marketer.
type TransferPickupRequest struct {
	NewMarketerID string `json:"new_marketer_id" binding:"required"`
}

// PickupFilter narrows hierarchy-scoped listings.
type PickupFilter struct {
	Status   string
	DealerID string
	Page     int
	PageSize int
}
