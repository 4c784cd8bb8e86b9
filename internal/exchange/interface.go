package exchange

import (
	"context"
	"time"
)

// Exchange определяет унифицированный интерфейс торговой площадки
type Exchange interface {
	// Connect устанавливает соединение с площадкой
	Connect(apiKey, secret string) error

	// GetName возвращает имя площадки
	GetName() string

	// GetBalance получает equity фьючерсного аккаунта в USD
	GetBalance(ctx context.Context) (float64, error)

	// GetTicker получает текущую цену актива
	GetTicker(ctx context.Context, symbol string) (*Ticker, error)

	// PlaceMarketOrder размещает рыночный ордер
	PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (*Order, error)

	// ClosePosition уменьшает позицию рыночным reduce-only ордером.
	// qty больше размера позиции закрывает её целиком, обратную позицию не открывает.
	ClosePosition(ctx context.Context, symbol, side string, qty float64) (*Order, error)

	// GetPosition возвращает открытую позицию по символу, nil если позиции нет
	GetPosition(ctx context.Context, symbol string) (*Position, error)

	// GetOpenPositions получает список всех открытых позиций
	GetOpenPositions(ctx context.Context) ([]*Position, error)

	// SetLeverage устанавливает плечо для символа
	SetLeverage(ctx context.Context, symbol string, leverage int) error

	// SubscribeTicker подписывается на обновления цен через WebSocket
	SubscribeTicker(symbol string, callback func(*Ticker)) error

	// Close закрывает соединения с площадкой
	Close() error
}

// Ticker содержит информацию о текущей цене
type Ticker struct {
	Symbol      string  `json:"symbol"`
	BidPrice    float64 `json:"bid_price"` // лучшая цена покупки
	AskPrice    float64 `json:"ask_price"` // лучшая цена продажи
	LastPrice   float64 `json:"last_price"`
	TimestampMs int64   `json:"timestamp_ms"` // unix ms по часам площадки
}

// MidPrice возвращает середину спреда bid/ask, LastPrice если стакан пуст
func (t *Ticker) MidPrice() float64 {
	if t.BidPrice > 0 && t.AskPrice > 0 {
		return (t.BidPrice + t.AskPrice) / 2
	}
	return t.LastPrice
}

// Order представляет результат размещения ордера
type Order struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"` // "buy" или "sell"
	Type         string    `json:"type"` // "market"
	Quantity     float64   `json:"quantity"`
	FilledQty    float64   `json:"filled_qty"`
	AvgFillPrice float64   `json:"avg_fill_price"`
	Status       string    `json:"status"`
	ReduceOnly   bool      `json:"reduce_only"`
	FilledAtMs   int64     `json:"filled_at_ms"` // unix ms момента исполнения
	CreatedAt    time.Time `json:"created_at"`
}

// Position представляет открытую позицию на площадке
type Position struct {
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"` // "long" или "short"
	Size          float64   `json:"size"`
	EntryPrice    float64   `json:"entry_price"`
	MarkPrice     float64   `json:"mark_price"`
	Leverage      int       `json:"leverage"`
	UnrealizedPnl float64   `json:"unrealized_pnl"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ExchangeError представляет ошибку от площадки
type ExchangeError struct {
	Exchange string
	Code     string
	Message  string
	Original error
}

func (e *ExchangeError) Error() string {
	return e.Exchange + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *ExchangeError) Unwrap() error {
	return e.Original
}

// Стороны ордеров
const (
	SideBuy  = "buy"  // покупка (открытие long или закрытие short)
	SideSell = "sell" // продажа (открытие short или закрытие long)
)

// Направления позиций
const (
	SideLong  = "long"
	SideShort = "short"
)

// Статусы ордера
const (
	OrderStatusFilled    = "filled"
	OrderStatusPartial   = "partial"
	OrderStatusCancelled = "cancelled"
	OrderStatusRejected  = "rejected"
)

// OpenSideFor возвращает сторону ордера для открытия позиции
func OpenSideFor(positionSide string) string {
	if positionSide == SideShort {
		return SideSell
	}
	return SideBuy
}

// CloseSideFor возвращает сторону ордера для закрытия позиции
func CloseSideFor(positionSide string) string {
	if positionSide == SideShort {
		return SideBuy
	}
	return SideSell
}
