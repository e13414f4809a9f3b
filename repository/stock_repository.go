package repository

import (
	"context"
	"errors"

	"pickup-service/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRepository defines data access for dealer device stock.
type StockRepository interface {
	Get(ctx context.Context, dealerID, deviceName, deviceModel string) (*models.DeviceStock, error)
	Set(ctx context.Context, stock *models.DeviceStock) error
	ListByDealer(ctx context.Context, dealerID string) ([]models.DeviceStock, error)
}

// GormStockRepository implements StockRepository using GORM.
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GORM backed stock repository.
func NewGormStockRepository(db *gorm.DB) StockRepository {
	return &GormStockRepository{db: db}
}

func (r *GormStockRepository) Get(ctx context.Context, dealerID, deviceName, deviceModel string) (*models.DeviceStock, error) {
	var stock models.DeviceStock
	err := r.db.WithContext(ctx).
		Where("dealer_id = ? AND device_name = ? AND device_model = ?", dealerID, deviceName, deviceModel).
		First(&stock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStockNotFound
		}
		return nil, err
	}
	return &stock, nil
}

// Set upserts a stock row keyed by SKU. Used by catalog bootstrap only; the
// lifecycle engine never writes through this path.
func (r *GormStockRepository) Set(ctx context.Context, stock *models.DeviceStock) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "dealer_id"}, {Name: "device_name"}, {Name: "device_model"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"available_quantity", "overall_quantity", "updated_at",
			}),
		}).
		Create(stock).Error
}

func (r *GormStockRepository) ListByDealer(ctx context.Context, dealerID string) ([]models.DeviceStock, error) {
	var stocks []models.DeviceStock
	err := r.db.WithContext(ctx).
		Where("dealer_id = ?", dealerID).
		Order("device_name, device_model").
		Find(&stocks).Error
	return stocks, err
}

// reserveStockTx atomically decrements available quantity inside tx. The
// quantity guard in the WHERE clause is what prevents overselling under
// concurrent reservations; RowsAffected = 0 means the guard failed.
func reserveStockTx(tx *gorm.DB, dealerID, deviceName, deviceModel string, quantity int) error {
	res := tx.Model(&models.DeviceStock{}).
		Where("dealer_id = ? AND device_name = ? AND device_model = ? AND available_quantity >= ?",
			dealerID, deviceName, deviceModel, quantity).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.DeviceStock{}).
			Where("dealer_id = ? AND device_name = ? AND device_model = ?", dealerID, deviceName, deviceModel).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrStockNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

// restoreStockTx releases a reservation back into available quantity inside
// tx. LEAST keeps the ceiling invariant even if the catalog lowered
// overall_quantity while the pickup was out.
func restoreStockTx(tx *gorm.DB, dealerID, deviceName, deviceModel string, quantity int) error {
	res := tx.Model(&models.DeviceStock{}).
		Where("dealer_id = ? AND device_name = ? AND device_model = ?", dealerID, deviceName, deviceModel).
		UpdateColumn("available_quantity", gorm.Expr("LEAST(available_quantity + ?, overall_quantity)", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockNotFound
	}
	return nil
}
