package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/fr0stylo/abacate/internal/app/domain"
	"github.com/fr0stylo/abacate/internal/app/ports"
	"github.com/fr0stylo/abacate/pkg/abacatepay"
)

// memoryOrderStore mirrors the sqlite store semantics in memory.
type memoryOrderStore struct {
	mu          sync.Mutex
	orders      map[int64]*domain.Order
	stockDrops  map[int64]int
	findErr     error
	saveErr     error
	saveCalls   int
	panicOnFind bool
}

func newMemoryOrderStore(orders ...domain.Order) *memoryOrderStore {
	store := &memoryOrderStore{orders: make(map[int64]*domain.Order), stockDrops: make(map[int64]int)}
	for _, order := range orders {
		copied := order
		if copied.Meta == nil {
			copied.Meta = map[string]string{}
		}
		store.orders[order.ID] = &copied
	}
	return store
}

func (s *memoryOrderStore) GetOrder(_ context.Context, orderID int64) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, ports.ErrOrderNotFound
	}
	copied := *order
	copied.Meta = make(map[string]string, len(order.Meta))
	for k, v := range order.Meta {
		copied.Meta[k] = v
	}
	copied.Notes = append([]domain.OrderNote(nil), order.Notes...)
	return copied, nil
}

func (s *memoryOrderStore) FindOrdersByMeta(_ context.Context, key, value string, limit int) ([]int64, error) {
	if s.panicOnFind {
		panic("index corrupted")
	}
	if s.findErr != nil {
		return nil, s.findErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, 1)
	for id, order := range s.orders {
		if order.Meta[key] == value {
			ids = append(ids, id)
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

func (s *memoryOrderStore) SetStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	_, err := s.Save(ctx, domain.OrderChange{OrderID: orderID, Status: status})
	return err
}

func (s *memoryOrderStore) AppendNote(ctx context.Context, orderID int64, note string) error {
	_, err := s.Save(ctx, domain.OrderChange{OrderID: orderID, Notes: []string{note}})
	return err
}

func (s *memoryOrderStore) DecrementReservedStock(ctx context.Context, orderID int64) (bool, error) {
	result, err := s.Save(ctx, domain.OrderChange{OrderID: orderID, ReduceStock: true})
	return result.StockReduced, err
}

func (s *memoryOrderStore) SetMetaOnce(ctx context.Context, orderID int64, key, value string) error {
	_, err := s.Save(ctx, domain.OrderChange{OrderID: orderID, Meta: map[string]string{key: value}})
	return err
}

func (s *memoryOrderStore) Save(_ context.Context, change domain.OrderChange) (domain.ChangeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return domain.ChangeResult{}, s.saveErr
	}
	order, ok := s.orders[change.OrderID]
	if !ok {
		return domain.ChangeResult{}, ports.ErrOrderNotFound
	}
	result := domain.ChangeResult{PreviousStatus: order.Status, Status: order.Status}
	if !change.Allows(order.Status) {
		return result, ports.ErrStatusPrecondition
	}
	if change.Status != "" && !domain.CanTransition(order.Status, change.Status) {
		return result, ports.ErrIllegalTransition
	}
	for key, value := range change.Meta {
		if current, set := order.Meta[key]; set && current != value {
			return result, ports.ErrMetaImmutable
		}
		for id, other := range s.orders {
			if id != order.ID && other.Meta[key] == value {
				return result, ports.ErrMetaConflict
			}
		}
	}

	for key, value := range change.Meta {
		order.Meta[key] = value
	}
	if change.Status != "" {
		order.Status = change.Status
		result.Status = change.Status
	}
	for _, note := range change.Notes {
		order.Notes = append(order.Notes, domain.OrderNote{ID: int64(len(order.Notes) + 1), Note: note})
	}
	if change.ReduceStock && !order.StockReduced {
		order.StockReduced = true
		s.stockDrops[order.ID]++
		result.StockReduced = true
	}
	return result, nil
}

func (s *memoryOrderStore) order(id int64) domain.Order {
	order, _ := s.GetOrder(context.Background(), id)
	return order
}

type providerMock struct {
	mock.Mock
}

func (m *providerMock) CreateBilling(ctx context.Context, req abacatepay.CreateBillingRequest) (abacatepay.Billing, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(abacatepay.Billing), args.Error(1)
}

func (m *providerMock) GetBilling(ctx context.Context, id string) (abacatepay.Billing, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(abacatepay.Billing), args.Error(1)
}

func (m *providerMock) CreatePixQRCode(ctx context.Context, req abacatepay.CreatePixQRCodeRequest) (abacatepay.PixQRCode, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(abacatepay.PixQRCode), args.Error(1)
}

func (m *providerMock) SimulatePixPayment(ctx context.Context, id string, metadata map[string]any) (abacatepay.PixQRCode, error) {
	args := m.Called(ctx, id, metadata)
	return args.Get(0).(abacatepay.PixQRCode), args.Error(1)
}

func (m *providerMock) GetStore(ctx context.Context) (abacatepay.Store, error) {
	args := m.Called(ctx)
	return args.Get(0).(abacatepay.Store), args.Error(1)
}

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) NotifyOrderEvent(ctx context.Context, event ports.OrderEvent) error {
	return m.Called(ctx, event).Error(0)
}

type memoryAudit struct {
	mu      sync.Mutex
	records []ports.WebhookEventRecord
	err     error
}

func (a *memoryAudit) RecordWebhookEvent(_ context.Context, record ports.WebhookEventRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.records = append(a.records, record)
	return nil
}

func (a *memoryAudit) ListWebhookEvents(_ context.Context, limit int) ([]ports.WebhookEventRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit > len(a.records) {
		limit = len(a.records)
	}
	return append([]ports.WebhookEventRecord(nil), a.records[:limit]...), nil
}

var (
	_ ports.OrderStore        = (*memoryOrderStore)(nil)
	_ ports.ProviderClient    = (*providerMock)(nil)
	_ ports.OrderNotifier     = (*notifierMock)(nil)
	_ ports.WebhookAuditStore = (*memoryAudit)(nil)
)
