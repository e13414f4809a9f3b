package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pickup-service/events"
	"pickup-service/kafka"
	"pickup-service/models"
	"pickup-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidQuantity is returned for a non-positive pickup quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrForbidden is returned when the actor has no hierarchy authority
	// over the record.
	ErrForbidden = errors.New("actor has no authority over this record")
	// ErrNotOverdue is returned when an expiry is attempted before the
	// deadline has passed.
	ErrNotOverdue = errors.New("pickup deadline has not passed")
)

// PickupService is the lifecycle engine for stock pickups: it owns every
// transition a pickup record can make and the stock side effects tied to
// each one.
type PickupService struct {
	pickupRepo repository.PickupRepository
	stockRepo  repository.StockRepository
	hierarchy  HierarchyResolver
	hub        *events.Hub
	producer   kafka.ProducerAPI
	slaWindow  time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewPickupService wires the lifecycle engine. producer may be nil when no
// broker is configured.
func NewPickupService(
	pickupRepo repository.PickupRepository,
	stockRepo repository.StockRepository,
	hierarchy HierarchyResolver,
	hub *events.Hub,
	producer kafka.ProducerAPI,
	slaWindow time.Duration,
	logger *zap.Logger,
) *PickupService {
	return &PickupService{
		pickupRepo: pickupRepo,
		stockRepo:  stockRepo,
		hierarchy:  hierarchy,
		hub:        hub,
		producer:   producer,
		slaWindow:  slaWindow,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Used by tests and callers that need a
// frozen clock.
func (s *PickupService) WithClock(now func() time.Time) *PickupService {
	s.now = now
	return s
}

// Now returns the engine's current time.
func (s *PickupService) Now() time.Time {
	return s.now()
}

// CreatePickup reserves stock for a marketer and opens a pending record with
// a deadline one SLA window out. The stock decrement and the record insert
// are a single atomic unit.
func (s *PickupService) CreatePickup(ctx context.Context, marketerID string, req *models.CreatePickupRequest) (*models.PickupRecord, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	adminID, err := s.hierarchy.Supervisor(ctx, marketerID)
	if err != nil {
		return nil, fmt.Errorf("resolve supervisor: %w", err)
	}

	now := s.now().UTC()
	record := &models.PickupRecord{
		ID:          uuid.New(),
		MarketerID:  marketerID,
		AdminID:     adminID,
		DealerID:    req.DealerID,
		DeviceName:  req.DeviceName,
		DeviceModel: req.DeviceModel,
		Quantity:    req.Quantity,
		PickupDate:  now,
		Deadline:    now.Add(s.slaWindow),
		Status:      models.StatusPending,
		Location:    req.Location,
	}

	if err := s.pickupRepo.CreateWithReservation(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("pickup created",
		zap.String("pickup_id", record.ID.String()),
		zap.String("marketer_id", marketerID),
		zap.Int("quantity", record.Quantity),
	)
	s.publish(ctx, models.EventPickupCreated, record)
	return record, nil
}

// ConfirmSale marks a pending pickup as sold. Stock is not restored; the
// units are consumed by the sale.
func (s *PickupService) ConfirmSale(ctx context.Context, id uuid.UUID, actorID, actorRole string) (*models.PickupRecord, error) {
	record, err := s.pickupRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, record, actorID, actorRole, false); err != nil {
		return nil, err
	}

	updated, err := s.pickupRepo.Transition(ctx, id, models.StatusSold)
	if err != nil {
		return updated, err
	}

	s.publish(ctx, models.EventPickupUpdated, updated)
	return updated, nil
}

// ReturnPickup marks a pending pickup as returned and releases the reserved
// quantity back into dealer stock. Requires supervisor authority.
func (s *PickupService) ReturnPickup(ctx context.Context, id uuid.UUID, actorID, actorRole string) (*models.PickupRecord, error) {
	record, err := s.pickupRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, record, actorID, actorRole, true); err != nil {
		return nil, err
	}

	updated, err := s.pickupRepo.ReturnWithRestore(ctx, id)
	if err != nil {
		return updated, err
	}

	s.logger.Info("pickup returned, stock restored",
		zap.String("pickup_id", id.String()),
		zap.Int("quantity", updated.Quantity),
	)
	s.publish(ctx, models.EventPickupUpdated, updated)
	return updated, nil
}

// TransferPickup closes a pending pickup and opens a successor for the new
// marketer with a fresh deadline. The reservation moves with the record, so
// stock is untouched and exactly one pending record backs it throughout.
func (s *PickupService) TransferPickup(ctx context.Context, id uuid.UUID, newMarketerID, actorID, actorRole string) (*models.PickupRecord, *models.PickupRecord, error) {
	record, err := s.pickupRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorize(ctx, record, actorID, actorRole, true); err != nil {
		return nil, nil, err
	}

	newAdminID, err := s.hierarchy.Supervisor(ctx, newMarketerID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve supervisor: %w", err)
	}

	now := s.now().UTC()
	successor := &models.PickupRecord{
		ID:         uuid.New(),
		MarketerID: newMarketerID,
		AdminID:    newAdminID,
		PickupDate: now,
		Deadline:   now.Add(s.slaWindow),
		Location:   record.Location,
	}

	original, successor, err := s.pickupRepo.Transfer(ctx, id, successor)
	if err != nil {
		return original, nil, err
	}

	s.logger.Info("pickup transferred",
		zap.String("pickup_id", original.ID.String()),
		zap.String("successor_id", successor.ID.String()),
		zap.String("new_marketer_id", newMarketerID),
	)
	s.publish(ctx, models.EventPickupUpdated, original)
	s.publish(ctx, models.EventPickupCreated, successor)
	return original, successor, nil
}

// ExpirePickup forces an overdue pending record to expired. Stock is not
// restored: expiry marks an SLA breach, the units are still physically with
// the marketer until a supervisor records a return.
func (s *PickupService) ExpirePickup(ctx context.Context, id uuid.UUID) (*models.PickupRecord, error) {
	record, err := s.pickupRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.IsTerminal(record.Status) {
		return record, repository.ErrInvalidTransition
	}
	if !s.now().After(record.Deadline) {
		return record, ErrNotOverdue
	}

	updated, err := s.pickupRepo.Transition(ctx, id, models.StatusExpired)
	if err != nil {
		return updated, err
	}

	s.publish(ctx, models.EventPickupUpdated, updated)
	return updated, nil
}

// ExpireOverdue sweeps every pending record past its deadline into expired.
// Each record is processed independently; a failure on one is logged and the
// sweep continues. Returns the number of records transitioned.
func (s *PickupService) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := s.pickupRepo.FindOverdue(ctx, s.now(), 500)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, record := range overdue {
		if _, err := s.pickupRepo.Transition(ctx, record.ID, models.StatusExpired); err != nil {
			// Lost the race to another transition; nothing left to do for
			// this record.
			if errors.Is(err, repository.ErrInvalidTransition) || errors.Is(err, repository.ErrNotFound) {
				continue
			}
			s.logger.Warn("failed to expire pickup",
				zap.String("pickup_id", record.ID.String()),
				zap.Error(err),
			)
			continue
		}
		count++

		record.Status = models.StatusExpired
		s.publish(ctx, models.EventPickupUpdated, &record)
	}
	return count, nil
}

// ListPickups returns the records visible to the viewer. Overdue pending
// records are expired before they are returned, so no caller ever observes a
// stale pending past its deadline.
func (s *PickupService) ListPickups(ctx context.Context, viewerID, role string, filter models.PickupFilter) ([]models.PickupRecord, int64, error) {
	var (
		records []models.PickupRecord
		total   int64
		err     error
	)

	if SeesEverything(role) {
		records, total, err = s.pickupRepo.FindAll(ctx, filter)
	} else {
		marketerIDs, rerr := s.hierarchy.ResolveVisibleMarketers(ctx, viewerID, role)
		if rerr != nil {
			return nil, 0, fmt.Errorf("resolve visibility: %w", rerr)
		}
		records, total, err = s.pickupRepo.FindByMarketers(ctx, marketerIDs, filter)
	}
	if err != nil {
		return nil, 0, err
	}

	for i := range records {
		records[i] = *s.expireIfOverdue(ctx, &records[i])
	}
	return records, total, nil
}

// GetPickup returns a single record if the viewer may see it, expiring it
// first if it is overdue.
func (s *PickupService) GetPickup(ctx context.Context, id uuid.UUID, viewerID, role string) (*models.PickupRecord, error) {
	record, err := s.pickupRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, record, viewerID, role, false); err != nil {
		return nil, err
	}
	return s.expireIfOverdue(ctx, record), nil
}

// expireIfOverdue applies the read-time expiry guarantee to one record.
func (s *PickupService) expireIfOverdue(ctx context.Context, record *models.PickupRecord) *models.PickupRecord {
	if record.Status != models.StatusPending || !s.now().After(record.Deadline) {
		return record
	}

	updated, err := s.pickupRepo.Transition(ctx, record.ID, models.StatusExpired)
	if err != nil {
		if updated != nil {
			// Another transition landed first; reflect whatever won.
			return updated
		}
		s.logger.Warn("read-time expiry failed",
			zap.String("pickup_id", record.ID.String()),
			zap.Error(err),
		)
		return record
	}

	s.publish(ctx, models.EventPickupUpdated, updated)
	return updated
}

// authorize checks hierarchy authority over a record. Owners may act on
// their own records unless the operation requires supervisor authority.
func (s *PickupService) authorize(ctx context.Context, record *models.PickupRecord, actorID, role string, supervisorOnly bool) error {
	if SeesEverything(role) {
		return nil
	}
	if !supervisorOnly && role == RoleMarketer && actorID == record.MarketerID {
		return nil
	}
	if role == RoleAdmin {
		if actorID == record.AdminID {
			return nil
		}
		visible, err := s.hierarchy.ResolveVisibleMarketers(ctx, actorID, role)
		if err != nil {
			return fmt.Errorf("resolve visibility: %w", err)
		}
		for _, id := range visible {
			if id == record.MarketerID {
				return nil
			}
		}
	}
	return ErrForbidden
}

// publish fans an event out to connected dashboards and the event bus.
// Delivery is best-effort on both paths; state converges through queries.
func (s *PickupService) publish(ctx context.Context, eventType string, record *models.PickupRecord) {
	event := models.PickupEvent{
		Type:   eventType,
		Pickup: *record,
		At:     s.now().UTC(),
	}
	if name, err := s.hierarchy.DisplayName(ctx, record.MarketerID); err == nil {
		event.MarketerName = name
	}
	if name, err := s.hierarchy.DisplayName(ctx, record.AdminID); err == nil {
		event.AdminName = name
	}

	if s.hub != nil {
		s.hub.Publish(event)
	}
	if s.producer != nil {
		if err := s.producer.PublishPickupEvent(ctx, event); err != nil {
			s.logger.Warn("kafka publish failed",
				zap.String("event", eventType),
				zap.String("pickup_id", record.ID.String()),
				zap.Error(err),
			)
		}
	}
}
