package services_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pickup-service/models"
	"pickup-service/repository"

	"github.com/google/uuid"
)

// --- In-memory repository ---

// memRepo implements both repository interfaces over one mutex-guarded store
// so the atomicity the SQL guards provide holds in tests too.
type memRepo struct {
	mu      sync.Mutex
	stocks  map[string]*models.DeviceStock
	pickups map[uuid.UUID]*models.PickupRecord

	// failTransition makes Transition fail for specific ids, for sweep
	// isolation tests.
	failTransition map[uuid.UUID]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		stocks:         make(map[string]*models.DeviceStock),
		pickups:        make(map[uuid.UUID]*models.PickupRecord),
		failTransition: make(map[uuid.UUID]bool),
	}
}

func skuKey(dealerID, name, model string) string {
	return dealerID + "|" + name + "|" + model
}

func (m *memRepo) seedStock(dealerID, name, model string, available, overall int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stocks[skuKey(dealerID, name, model)] = &models.DeviceStock{
		DealerID:          dealerID,
		DeviceName:        name,
		DeviceModel:       model,
		AvailableQuantity: available,
		OverallQuantity:   overall,
	}
}

func (m *memRepo) available(dealerID, name, model string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stocks[skuKey(dealerID, name, model)].AvailableQuantity
}

// StockRepository

func (m *memRepo) Get(_ context.Context, dealerID, name, model string) (*models.DeviceStock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stock, ok := m.stocks[skuKey(dealerID, name, model)]
	if !ok {
		return nil, repository.ErrStockNotFound
	}
	cp := *stock
	return &cp, nil
}

func (m *memRepo) Set(_ context.Context, stock *models.DeviceStock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *stock
	m.stocks[skuKey(stock.DealerID, stock.DeviceName, stock.DeviceModel)] = &cp
	return nil
}

func (m *memRepo) ListByDealer(_ context.Context, dealerID string) ([]models.DeviceStock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DeviceStock
	for _, s := range m.stocks {
		if s.DealerID == dealerID {
			out = append(out, *s)
		}
	}
	return out, nil
}

// PickupRepository

func (m *memRepo) CreateWithReservation(_ context.Context, record *models.PickupRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stock, ok := m.stocks[skuKey(record.DealerID, record.DeviceName, record.DeviceModel)]
	if !ok {
		return repository.ErrStockNotFound
	}
	if stock.AvailableQuantity < record.Quantity {
		return repository.ErrInsufficientStock
	}
	stock.AvailableQuantity -= record.Quantity

	cp := *record
	m.pickups[record.ID] = &cp
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id uuid.UUID) (*models.PickupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.pickups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *record
	return &cp, nil
}

func (m *memRepo) FindByMarketers(_ context.Context, marketerIDs []string, filter models.PickupFilter) ([]models.PickupRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := make(map[string]bool, len(marketerIDs))
	for _, id := range marketerIDs {
		allowed[id] = true
	}

	var out []models.PickupRecord
	for _, record := range m.pickups {
		if !allowed[record.MarketerID] {
			continue
		}
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		if filter.DealerID != "" && record.DealerID != filter.DealerID {
			continue
		}
		out = append(out, *record)
	}
	return out, int64(len(out)), nil
}

func (m *memRepo) FindAll(_ context.Context, filter models.PickupFilter) ([]models.PickupRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.PickupRecord
	for _, record := range m.pickups {
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		if filter.DealerID != "" && record.DealerID != filter.DealerID {
			continue
		}
		out = append(out, *record)
	}
	return out, int64(len(out)), nil
}

func (m *memRepo) FindOverdue(_ context.Context, now time.Time, limit int) ([]models.PickupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.PickupRecord
	for _, record := range m.pickups {
		if record.Status == models.StatusPending && record.Deadline.Before(now) {
			out = append(out, *record)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memRepo) transitionLocked(id uuid.UUID, to string) (*models.PickupRecord, error) {
	if m.failTransition[id] {
		return nil, fmt.Errorf("simulated transition failure")
	}
	record, ok := m.pickups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if record.Status != models.StatusPending {
		cp := *record
		return &cp, repository.ErrInvalidTransition
	}
	record.Status = to
	cp := *record
	return &cp, nil
}

func (m *memRepo) Transition(_ context.Context, id uuid.UUID, to string) (*models.PickupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(id, to)
}

func (m *memRepo) ReturnWithRestore(_ context.Context, id uuid.UUID) (*models.PickupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, err := m.transitionLocked(id, models.StatusReturned)
	if err != nil {
		return record, err
	}

	stock, ok := m.stocks[skuKey(record.DealerID, record.DeviceName, record.DeviceModel)]
	if !ok {
		return nil, repository.ErrStockNotFound
	}
	stock.AvailableQuantity += record.Quantity
	if stock.AvailableQuantity > stock.OverallQuantity {
		stock.AvailableQuantity = stock.OverallQuantity
	}
	return record, nil
}

func (m *memRepo) Transfer(_ context.Context, id uuid.UUID, successor *models.PickupRecord) (*models.PickupRecord, *models.PickupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, err := m.transitionLocked(id, models.StatusTransferred)
	if err != nil {
		return original, nil, err
	}

	successor.DealerID = original.DealerID
	successor.DeviceName = original.DeviceName
	successor.DeviceModel = original.DeviceModel
	successor.Quantity = original.Quantity
	successor.Status = models.StatusPending

	cp := *successor
	m.pickups[successor.ID] = &cp

	m.pickups[original.ID].TransferredTo = &successor.ID
	original.TransferredTo = &successor.ID
	return original, successor, nil
}

// --- Hierarchy stub ---

type stubHierarchy struct {
	supervisors map[string]string
	names       map[string]string
	visible     map[string][]string
}

func newStubHierarchy() *stubHierarchy {
	return &stubHierarchy{
		supervisors: make(map[string]string),
		names:       make(map[string]string),
		visible:     make(map[string][]string),
	}
}

func (h *stubHierarchy) ResolveVisibleMarketers(_ context.Context, viewerID, role string) ([]string, error) {
	if role == "marketer" {
		return []string{viewerID}, nil
	}
	return h.visible[viewerID], nil
}

func (h *stubHierarchy) Supervisor(_ context.Context, marketerID string) (string, error) {
	admin, ok := h.supervisors[marketerID]
	if !ok {
		return "", fmt.Errorf("marketer %s has no supervisor", marketerID)
	}
	return admin, nil
}

func (h *stubHierarchy) DisplayName(_ context.Context, userID string) (string, error) {
	name, ok := h.names[userID]
	if !ok {
		return "", fmt.Errorf("user %s not found", userID)
	}
	return name, nil
}

// --- Producer stub ---

type capturingProducer struct {
	mu     sync.Mutex
	events []models.PickupEvent
}

func (p *capturingProducer) PublishPickupEvent(_ context.Context, event models.PickupEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingProducer) Close() error { return nil }

func (p *capturingProducer) captured() []models.PickupEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.PickupEvent, len(p.events))
	copy(out, p.events)
	return out
}
