package service

import (
	"context"
	"sort"
	"time"

	"deltarb/internal/bot"
	"deltarb/internal/exchange"
	"deltarb/internal/models"
)

// BotStatus - снимок состояния бота для ops-эндпоинта
type BotStatus struct {
	Uptime        string            `json:"uptime"`
	OpenPositions int               `json:"open_positions"`
	QueueDepth    int               `json:"queue_depth"`
	LedgerDirty   bool              `json:"ledger_dirty"` // есть несинхронизированные изменения
	Venues        map[string]*Venue `json:"venues"`
}

// Venue - состояние подключения одной площадки
type Venue struct {
	Connected bool    `json:"connected"`
	Balance   float64 `json:"balance,omitempty"`
}

// StatusService собирает снимок состояния из реестра, движка и площадок
type StatusService struct {
	ledger    LedgerInterface
	engine    EngineInterface
	venues    map[string]exchange.Exchange
	startedAt time.Time
}

// NewStatusService создает сервис статуса
func NewStatusService(ledger LedgerInterface, engine EngineInterface, venues map[string]exchange.Exchange) *StatusService {
	return &StatusService{
		ledger:    ledger,
		engine:    engine,
		venues:    venues,
		startedAt: time.Now(),
	}
}

// Status возвращает текущий снимок. Баланс запрашивается с коротким
// таймаутом: недоступная площадка помечается connected=false, снимок
// всё равно отдаётся.
func (s *StatusService) Status() *BotStatus {
	st := &BotStatus{
		Uptime:        time.Since(s.startedAt).Round(time.Second).String(),
		OpenPositions: s.ledger.Len(),
		QueueDepth:    s.engine.QueueLen(),
		LedgerDirty:   s.ledger.Dirty(),
		Venues:        make(map[string]*Venue, len(s.venues)),
	}

	for name, venue := range s.venues {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		balance, err := venue.GetBalance(ctx)
		cancel()

		v := &Venue{Connected: err == nil}
		if err == nil {
			v.Balance = balance
		}
		bot.UpdateExchangeStatus(name, err == nil, balance)
		st.Venues[name] = v
	}

	return st
}

// PositionService отдаёт снимок незакрытых позиций
type PositionService struct {
	ledger LedgerInterface
}

// NewPositionService создает сервис позиций
func NewPositionService(ledger LedgerInterface) *PositionService {
	return &PositionService{ledger: ledger}
}

// ActivePositions возвращает незакрытые позиции, отсортированные
// по времени создания (свежие первыми)
func (s *PositionService) ActivePositions() []*models.PositionState {
	positions := s.ledger.All()
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].CreatedAt.After(positions[j].CreatedAt)
	})
	return positions
}
