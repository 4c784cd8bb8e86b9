package monitor

import (
	"fmt"
	"sync"
	"time"

	"deltarb/internal/bot"
	"deltarb/internal/exchange"
	"deltarb/internal/models"
	"deltarb/pkg/utils"
)

// Config - параметры наблюдения за парой площадок
type Config struct {
	ExchangeA string // площадка A
	ExchangeB string // площадка B
	SymbolA   string // инструмент на A
	SymbolB   string // инструмент на B

	EntrySpreadPct float64       // порог входа, %
	OrderSize      float64       // размер возможности
	QuoteTTL       time.Duration // котировка старше не участвует в сравнении
}

// venueQuote - последняя котировка одной площадки
type venueQuote struct {
	ticker       *exchange.Ticker
	receivedAtMs int64
}

// SpreadMonitor держит последние котировки двух площадок и на каждом
// тике пересчитывает исполнимый спред. Сравниваются исполнимые цены:
// bid той площадки, где будет шорт, против ask той, где будет лонг.
// Середина спреда дала бы возможности, которые нельзя взять.
type SpreadMonitor struct {
	cfg Config

	mu     sync.Mutex
	quoteA *venueQuote
	quoteB *venueQuote

	// armed не даёт стрелять на каждом тике, пока спред висит над
	// порогом: выстрел один на пересечение, перезарядка при уходе ниже
	armed bool

	onOpportunity func(*models.SpreadOpportunity)
}

// NewSpreadMonitor создает монитор. callback вызывается синхронно из
// обработчика тика и обязан не блокировать.
func NewSpreadMonitor(cfg Config, onOpportunity func(*models.SpreadOpportunity)) *SpreadMonitor {
	if onOpportunity == nil {
		onOpportunity = func(*models.SpreadOpportunity) {}
	}
	return &SpreadMonitor{
		cfg:           cfg,
		armed:         true,
		onOpportunity: onOpportunity,
	}
}

// Start подписывает монитор на тикеры обеих площадок
func (m *SpreadMonitor) Start(venues map[string]exchange.Exchange) error {
	venueA, ok := venues[m.cfg.ExchangeA]
	if !ok {
		return fmt.Errorf("exchange %q not connected", m.cfg.ExchangeA)
	}
	venueB, ok := venues[m.cfg.ExchangeB]
	if !ok {
		return fmt.Errorf("exchange %q not connected", m.cfg.ExchangeB)
	}

	if err := venueA.SubscribeTicker(m.cfg.SymbolA, m.OnTickA); err != nil {
		return fmt.Errorf("subscribe %s %s: %w", m.cfg.ExchangeA, m.cfg.SymbolA, err)
	}
	if err := venueB.SubscribeTicker(m.cfg.SymbolB, m.OnTickB); err != nil {
		return fmt.Errorf("subscribe %s %s: %w", m.cfg.ExchangeB, m.cfg.SymbolB, err)
	}

	utils.Info("spread monitor started",
		utils.Exchange(m.cfg.ExchangeA),
		utils.Symbol(m.cfg.SymbolA),
		utils.String("exchange_b", m.cfg.ExchangeB),
		utils.String("symbol_b", m.cfg.SymbolB),
		utils.Float64("entry_spread_pct", m.cfg.EntrySpreadPct))
	return nil
}

// OnTickA принимает котировку площадки A
func (m *SpreadMonitor) OnTickA(t *exchange.Ticker) {
	m.onTick(t, true)
}

// OnTickB принимает котировку площадки B
func (m *SpreadMonitor) OnTickB(t *exchange.Ticker) {
	m.onTick(t, false)
}

func (m *SpreadMonitor) onTick(t *exchange.Ticker, isA bool) {
	if t == nil || t.BidPrice <= 0 || t.AskPrice <= 0 {
		return
	}

	now := time.Now().UnixMilli()
	q := &venueQuote{ticker: t, receivedAtMs: now}

	m.mu.Lock()
	defer m.mu.Unlock()

	if isA {
		m.quoteA = q
	} else {
		m.quoteB = q
	}

	m.evaluateLocked(now)
}

// evaluateLocked пересчитывает исполнимый спред по свежим котировкам.
// Вызывается под mu.
func (m *SpreadMonitor) evaluateLocked(nowMs int64) {
	if m.quoteA == nil || m.quoteB == nil {
		return
	}
	if m.stale(m.quoteA, nowMs) || m.stale(m.quoteB, nowMs) {
		return
	}

	a, b := m.quoteA.ticker, m.quoteB.ticker

	// A котируется выше: шорт на A по её bid, лонг на B по её ask
	spreadAOverB := utils.CalculateSpread(a.BidPrice, b.AskPrice)
	// B котируется выше: шорт на B, лонг на A
	spreadBOverA := utils.CalculateSpread(b.BidPrice, a.AskPrice)

	spread := spreadAOverB
	direction := models.DirectionAOverB
	priceA, priceB := a.BidPrice, b.AskPrice
	if spreadBOverA > spread {
		spread = spreadBOverA
		direction = models.DirectionBOverA
		priceA, priceB = a.AskPrice, b.BidPrice
	}

	bot.SpreadObserved.Observe(spread)

	if spread < m.cfg.EntrySpreadPct {
		m.armed = true
		return
	}
	if !m.armed {
		bot.RecordOpportunity(false)
		return
	}
	m.armed = false

	opp := &models.SpreadOpportunity{
		SymbolA:    m.cfg.SymbolA,
		SymbolB:    m.cfg.SymbolB,
		ExchangeA:  m.cfg.ExchangeA,
		ExchangeB:  m.cfg.ExchangeB,
		PriceA:     priceA,
		PriceB:     priceB,
		SpreadPct:  spread,
		Direction:  direction,
		Size:       m.cfg.OrderSize,
		DetectedAt: nowMs,
	}

	bot.RecordOpportunity(true)
	utils.Info("spread opportunity detected",
		utils.Pair(m.cfg.SymbolA),
		utils.Spread(spread),
		utils.Direction(string(direction)),
		utils.Price(priceA),
		utils.Float64("price_b", priceB))

	m.onOpportunity(opp)
}

// stale проверяет возраст котировки
func (m *SpreadMonitor) stale(q *venueQuote, nowMs int64) bool {
	if m.cfg.QuoteTTL <= 0 {
		return false
	}
	return nowMs-q.receivedAtMs > m.cfg.QuoteTTL.Milliseconds()
}

// Snapshot возвращает текущие исполнимые спреды для диагностики
func (m *SpreadMonitor) Snapshot() (spreadAOverB, spreadBOverA float64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quoteA == nil || m.quoteB == nil {
		return 0, 0, false
	}
	a, b := m.quoteA.ticker, m.quoteB.ticker
	return utils.CalculateSpread(a.BidPrice, b.AskPrice),
		utils.CalculateSpread(b.BidPrice, a.AskPrice),
		true
}
