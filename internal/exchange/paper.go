package exchange

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Paper реализует симулируемую площадку для прогонов без реальных ордеров.
// Исполняет рыночные ордера по заданной цене с настраиваемым проскальзыванием,
// позиции держит в памяти.
type Paper struct {
	name        string
	slippageBps float64 // проскальзывание на каждое исполнение

	mu        sync.RWMutex
	prices    map[string]*Ticker
	positions map[string]*Position
	balance   float64

	tickerCallbacks map[string]func(*Ticker)

	orderSeq  int64
	connected bool
}

// NewPaper создает симулируемую площадку с начальным балансом
func NewPaper(name string, balance, slippageBps float64) *Paper {
	return &Paper{
		name:            name,
		slippageBps:     slippageBps,
		prices:          make(map[string]*Ticker),
		positions:       make(map[string]*Position),
		balance:         balance,
		tickerCallbacks: make(map[string]func(*Ticker)),
	}
}

// SetPrice задаёт текущую цену символа и рассылает тик подписчикам
func (p *Paper) SetPrice(symbol string, bid, ask float64) {
	ticker := &Ticker{
		Symbol:      symbol,
		BidPrice:    bid,
		AskPrice:    ask,
		LastPrice:   (bid + ask) / 2,
		TimestampMs: time.Now().UnixMilli(),
	}

	p.mu.Lock()
	p.prices[symbol] = ticker
	callback := p.tickerCallbacks[symbol]
	p.mu.Unlock()

	if callback != nil {
		callback(ticker)
	}
}

func (p *Paper) Connect(apiKey, secret string) error {
	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()
	return nil
}

func (p *Paper) GetName() string {
	return p.name
}

func (p *Paper) GetBalance(ctx context.Context) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balance, nil
}

func (p *Paper) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ticker, ok := p.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("no price for %s", symbol)
	}
	return ticker, nil
}

func (p *Paper) PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (*Order, error) {
	return p.fill(symbol, side, qty, false)
}

func (p *Paper) ClosePosition(ctx context.Context, symbol, side string, qty float64) (*Order, error) {
	return p.fill(symbol, CloseSideFor(side), qty, true)
}

// fill исполняет ордер по текущей цене с учётом проскальзывания
func (p *Paper) fill(symbol, side string, qty float64, reduceOnly bool) (*Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ticker, ok := p.prices[symbol]
	if !ok {
		return nil, &ExchangeError{
			Exchange: p.name,
			Message:  "no price for " + symbol,
		}
	}

	// Покупка идёт по ask и дороже, продажа по bid и дешевле
	var price float64
	slip := p.slippageBps / 10000
	if side == SideBuy {
		price = ticker.AskPrice * (1 + slip)
	} else {
		price = ticker.BidPrice * (1 - slip)
	}

	p.applyFill(symbol, side, qty, price, reduceOnly)

	id := atomic.AddInt64(&p.orderSeq, 1)
	return &Order{
		ID:           p.name + "-" + strconv.FormatInt(id, 10),
		Symbol:       symbol,
		Side:         side,
		Type:         "market",
		Quantity:     qty,
		FilledQty:    qty,
		AvgFillPrice: price,
		Status:       OrderStatusFilled,
		ReduceOnly:   reduceOnly,
		FilledAtMs:   time.Now().UnixMilli(),
		CreatedAt:    time.Now(),
	}, nil
}

// applyFill обновляет позицию после исполнения. Вызывается под mu.
func (p *Paper) applyFill(symbol, side string, qty, price float64, reduceOnly bool) {
	pos := p.positions[symbol]

	if pos == nil {
		if reduceOnly {
			return
		}
		posSide := SideLong
		if side == SideSell {
			posSide = SideShort
		}
		p.positions[symbol] = &Position{
			Symbol:     symbol,
			Side:       posSide,
			Size:       qty,
			EntryPrice: price,
			UpdatedAt:  time.Now(),
		}
		return
	}

	closing := (pos.Side == SideLong && side == SideSell) ||
		(pos.Side == SideShort && side == SideBuy)

	if closing {
		if qty >= pos.Size {
			// reduce-only не разворачивает позицию
			delete(p.positions, symbol)
			return
		}
		pos.Size -= qty
		pos.UpdatedAt = time.Now()
		return
	}

	// Увеличение позиции: пересчитываем среднюю цену входа
	total := pos.Size + qty
	pos.EntryPrice = (pos.EntryPrice*pos.Size + price*qty) / total
	pos.Size = total
	pos.UpdatedAt = time.Now()
}

func (p *Paper) GetPosition(ctx context.Context, symbol string) (*Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pos, ok := p.positions[symbol]
	if !ok {
		return nil, nil
	}
	copied := *pos
	return &copied, nil
}

func (p *Paper) GetOpenPositions(ctx context.Context) ([]*Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	positions := make([]*Position, 0, len(p.positions))
	for _, pos := range p.positions {
		copied := *pos
		positions = append(positions, &copied)
	}
	return positions, nil
}

func (p *Paper) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return nil
}

func (p *Paper) SubscribeTicker(symbol string, callback func(*Ticker)) error {
	p.mu.Lock()
	p.tickerCallbacks[symbol] = callback
	p.mu.Unlock()
	return nil
}

func (p *Paper) Close() error {
	return nil
}
