package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"deltarb/internal/exchange"
	"deltarb/internal/models"
	"deltarb/internal/repository"
)

// mockExchange - управляемая площадка для тестов исполнителя.
// failPlace/failClose задают число первых неудачных попыток,
// -1 = отказывать всегда.
type mockExchange struct {
	name      string
	fillPrice float64

	failPlace int
	failClose int

	mu          sync.Mutex
	placeCalls  int
	closeCalls  int
	closeOrders []closeCall
	positions   map[string]*exchange.Position
}

type closeCall struct {
	symbol string
	side   string
	qty    float64
}

var errVenueDown = errors.New("venue unavailable")

func newMockExchange(name string, fillPrice float64) *mockExchange {
	return &mockExchange{
		name:      name,
		fillPrice: fillPrice,
		positions: make(map[string]*exchange.Position),
	}
}

func (m *mockExchange) Connect(apiKey, secret string) error { return nil }
func (m *mockExchange) GetName() string                     { return m.name }
func (m *mockExchange) GetBalance(ctx context.Context) (float64, error) {
	return 100000, nil
}
func (m *mockExchange) GetTicker(ctx context.Context, symbol string) (*exchange.Ticker, error) {
	return &exchange.Ticker{Symbol: symbol, BidPrice: m.fillPrice, AskPrice: m.fillPrice}, nil
}

func (m *mockExchange) PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (*exchange.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.placeCalls++
	if m.failPlace == -1 || m.placeCalls <= m.failPlace {
		return nil, &exchange.ExchangeError{Exchange: m.name, Message: "order rejected", Original: errVenueDown}
	}

	return &exchange.Order{
		ID:           "ord-1",
		Symbol:       symbol,
		Side:         side,
		Quantity:     qty,
		FilledQty:    qty,
		AvgFillPrice: m.fillPrice,
		Status:       exchange.OrderStatusFilled,
		FilledAtMs:   time.Now().UnixMilli(),
	}, nil
}

func (m *mockExchange) ClosePosition(ctx context.Context, symbol, side string, qty float64) (*exchange.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeCalls++
	if m.failClose == -1 || m.closeCalls <= m.failClose {
		return nil, &exchange.ExchangeError{Exchange: m.name, Message: "close rejected", Original: errVenueDown}
	}

	m.closeOrders = append(m.closeOrders, closeCall{symbol: symbol, side: side, qty: qty})
	return &exchange.Order{
		ID:           "close-1",
		Symbol:       symbol,
		FilledQty:    qty,
		AvgFillPrice: m.fillPrice,
		Status:       exchange.OrderStatusFilled,
		ReduceOnly:   true,
	}, nil
}

func (m *mockExchange) GetPosition(ctx context.Context, symbol string) (*exchange.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.positions[symbol]; ok {
		return p, nil
	}
	return nil, nil
}

func (m *mockExchange) GetOpenPositions(ctx context.Context) ([]*exchange.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*exchange.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return nil
}
func (m *mockExchange) SubscribeTicker(symbol string, callback func(*exchange.Ticker)) error {
	return nil
}
func (m *mockExchange) Close() error { return nil }

// memStore - хранилище позиций в памяти с инъекцией недоступности
type memStore struct {
	mu          sync.Mutex
	records     map[string]*models.PositionState
	saves       int
	updates     int
	unavailable bool
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*models.PositionState)}
}

func (s *memStore) setUnavailable(v bool) {
	s.mu.Lock()
	s.unavailable = v
	s.mu.Unlock()
}

func (s *memStore) Save(p *models.PositionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return repository.ErrStorageUnavailable
	}
	s.saves++
	copied := *p
	s.records[p.ID] = &copied
	return nil
}

func (s *memStore) LoadAll() ([]*models.PositionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, repository.ErrStorageUnavailable
	}
	out := make([]*models.PositionState, 0, len(s.records))
	for _, p := range s.records {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (s *memStore) Update(p *models.PositionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return repository.ErrStorageUnavailable
	}
	if _, ok := s.records[p.ID]; !ok {
		return repository.ErrNotFound
	}
	s.updates++
	copied := *p
	s.records[p.ID] = &copied
	return nil
}

func (s *memStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return repository.ErrStorageUnavailable
	}
	delete(s.records, id)
	return nil
}
