package repository

import (
	"context"
	"errors"
	"time"

	"pickup-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PickupRepository defines data access for pickup records. The mutating
// operations bundle the stock side effect into the same transaction so a
// reservation is never half-applied.
type PickupRepository interface {
	// CreateWithReservation decrements available stock and inserts the record
	// atomically. Returns ErrInsufficientStock or ErrStockNotFound without
	// side effects when the reservation cannot be made.
	CreateWithReservation(ctx context.Context, record *models.PickupRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PickupRecord, error)
	FindByMarketers(ctx context.Context, marketerIDs []string, filter models.PickupFilter) ([]models.PickupRecord, int64, error)
	FindAll(ctx context.Context, filter models.PickupFilter) ([]models.PickupRecord, int64, error)
	FindOverdue(ctx context.Context, now time.Time, limit int) ([]models.PickupRecord, error)
	// Transition moves a pending record to a terminal status. Returns
	// ErrInvalidTransition when the record is no longer pending.
	Transition(ctx context.Context, id uuid.UUID, to string) (*models.PickupRecord, error)
	// ReturnWithRestore transitions to returned and releases the reserved
	// quantity back to stock in one transaction.
	ReturnWithRestore(ctx context.Context, id uuid.UUID) (*models.PickupRecord, error)
	// Transfer closes the original record and creates the successor pending
	// record in one transaction.
	Transfer(ctx context.Context, id uuid.UUID, successor *models.PickupRecord) (*models.PickupRecord, *models.PickupRecord, error)
}

// GormPickupRepository implements PickupRepository using GORM.
type GormPickupRepository struct {
	db *gorm.DB
}

// NewGormPickupRepository creates a new GORM backed pickup repository.
func NewGormPickupRepository(db *gorm.DB) PickupRepository {
	return &GormPickupRepository{db: db}
}

func (r *GormPickupRepository) CreateWithReservation(ctx context.Context, record *models.PickupRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := reserveStockTx(tx, record.DealerID, record.DeviceName, record.DeviceModel, record.Quantity); err != nil {
			return err
		}
		return tx.Create(record).Error
	})
}

func (r *GormPickupRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.PickupRecord, error) {
	var record models.PickupRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *GormPickupRepository) FindByMarketers(ctx context.Context, marketerIDs []string, filter models.PickupFilter) ([]models.PickupRecord, int64, error) {
	if len(marketerIDs) == 0 {
		return []models.PickupRecord{}, 0, nil
	}
	query := r.db.WithContext(ctx).
		Model(&models.PickupRecord{}).
		Where("marketer_id IN ?", marketerIDs)
	return r.paginate(query, filter)
}

func (r *GormPickupRepository) FindAll(ctx context.Context, filter models.PickupFilter) ([]models.PickupRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PickupRecord{})
	return r.paginate(query, filter)
}

func (r *GormPickupRepository) paginate(query *gorm.DB, filter models.PickupFilter) ([]models.PickupRecord, int64, error) {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DealerID != "" {
		query = query.Where("dealer_id = ?", filter.DealerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	var records []models.PickupRecord
	offset := (filter.Page - 1) * filter.PageSize
	err := query.Order("pickup_date DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&records).Error
	return records, total, err
}

func (r *GormPickupRepository) FindOverdue(ctx context.Context, now time.Time, limit int) ([]models.PickupRecord, error) {
	var records []models.PickupRecord
	query := r.db.WithContext(ctx).
		Where("status = ? AND deadline < ?", models.StatusPending, now).
		Order("deadline")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

// transitionTx is the one-way state machine enforcement point: the status
// guard in the WHERE clause makes racing transitions on the same record
// serialize, with exactly one winner.
func transitionTx(tx *gorm.DB, id uuid.UUID, to string) (*models.PickupRecord, error) {
	res := tx.Model(&models.PickupRecord{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var record models.PickupRecord
		if err := tx.First(&record, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		return &record, ErrInvalidTransition
	}

	var record models.PickupRecord
	if err := tx.First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormPickupRepository) Transition(ctx context.Context, id uuid.UUID, to string) (*models.PickupRecord, error) {
	var record *models.PickupRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		record, txErr = transitionTx(tx, id, to)
		return txErr
	})
	return record, err
}

func (r *GormPickupRepository) ReturnWithRestore(ctx context.Context, id uuid.UUID) (*models.PickupRecord, error) {
	var record *models.PickupRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		record, txErr = transitionTx(tx, id, models.StatusReturned)
		if txErr != nil {
			return txErr
		}
		// Restore happens in the same transaction as the transition, so the
		// reservation is released exactly once.
		return restoreStockTx(tx, record.DealerID, record.DeviceName, record.DeviceModel, record.Quantity)
	})
	return record, err
}

func (r *GormPickupRepository) Transfer(ctx context.Context, id uuid.UUID, successor *models.PickupRecord) (*models.PickupRecord, *models.PickupRecord, error) {
	var original *models.PickupRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		original, txErr = transitionTx(tx, id, models.StatusTransferred)
		if txErr != nil {
			return txErr
		}

		// The successor inherits the reservation; stock is not touched.
		successor.DealerID = original.DealerID
		successor.DeviceName = original.DeviceName
		successor.DeviceModel = original.DeviceModel
		successor.Quantity = original.Quantity
		successor.Status = models.StatusPending
		if err := tx.Create(successor).Error; err != nil {
			return err
		}

		return tx.Model(&models.PickupRecord{}).
			Where("id = ?", original.ID).
			UpdateColumn("transferred_to", successor.ID).Error
	})
	if err != nil {
		// Surface the current record on a lost race so callers can report
		// what actually happened to it.
		if errors.Is(err, ErrInvalidTransition) && original != nil {
			return original, nil, err
		}
		return nil, nil, err
	}
	original.TransferredTo = &successor.ID
	return original, successor, nil
}
