package models

import "time"

// DeviceStock is the authoritative available quantity for one device SKU at
// one dealer. AvailableQuantity is only ever mutated through the guarded
// updates in the stock repository.
type DeviceStock struct {
	ID                int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	DealerID          string    `json:"dealer_id" gorm:"not null;uniqueIndex:idx_stock_sku"`
	DeviceName        string    `json:"device_name" gorm:"not null;uniqueIndex:idx_stock_sku"`
	DeviceModel       string    `json:"device_model" gorm:"not null;uniqueIndex:idx_stock_sku"`
	AvailableQuantity int       `json:"available_quantity" gorm:"not null;default:0"`
	OverallQuantity   int       `json:"overall_quantity" gorm:"not null;default:0"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// SetStockRequest initializes or overwrites stock for a SKU (catalog bootstrap).
type SetStockRequest struct {
	DealerID          string `json:"dealer_id" binding:"required"`
	DeviceName        string `json:"device_name" binding:"required"`
	DeviceModel       string `json:"device_model" binding:"required"`
	AvailableQuantity int    `json:"available_quantity" binding:"gte=0"`
	OverallQuantity   int    `json:"overall_quantity" binding:"gte=0"`
}
