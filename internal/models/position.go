package models

import "time"

// PositionState представляет дельта-нейтральную позицию из двух ног
type PositionState struct {
	ID             string     `json:"id" db:"id"` // UUID
	LongExchange   string     `json:"long_exchange" db:"long_exchange"`
	LongSymbol     string     `json:"long_symbol" db:"long_symbol"`
	ShortExchange  string     `json:"short_exchange" db:"short_exchange"`
	ShortSymbol    string     `json:"short_symbol" db:"short_symbol"`
	LongEntryPrice float64    `json:"long_entry_price" db:"long_entry_price"`
	ShortEntryPrice float64   `json:"short_entry_price" db:"short_entry_price"`
	Size           float64    `json:"size" db:"size"`                     // объём каждой ноги при открытии
	RemainingSize  float64    `json:"remaining_size" db:"remaining_size"` // симметричен для обеих ног
	Status         string     `json:"status" db:"status"`
	DetectedSpread float64    `json:"detected_spread" db:"detected_spread"` // % в момент обнаружения
	CapturedSpread float64    `json:"captured_spread" db:"captured_spread"` // % по ценам исполнения
	SlippageBps    float64    `json:"slippage_bps" db:"slippage_bps"`
	Direction      Direction  `json:"direction" db:"direction"`
	DetectedAtMs   int64      `json:"detected_at_ms" db:"detected_at_ms"`
	LongFilledAtMs int64      `json:"long_filled_at_ms" db:"long_filled_at_ms"`
	ShortFilledAtMs int64     `json:"short_filled_at_ms" db:"short_filled_at_ms"`
	VerifiedAtMs   int64      `json:"verified_at_ms" db:"verified_at_ms"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty" db:"closed_at"`
}

// Статусы позиции
const (
	PositionStatusOpen         = "open"
	PositionStatusPartialClose = "partial_close"
	PositionStatusClosed       = "closed"
)

// CanTransition проверяет допустимость перехода статуса.
// Жизненный цикл строго вперёд: open -> partial_close -> closed,
// open -> closed. Обратные переходы запрещены.
func CanTransition(from, to string) bool {
	switch from {
	case PositionStatusOpen:
		return to == PositionStatusPartialClose || to == PositionStatusClosed
	case PositionStatusPartialClose:
		return to == PositionStatusPartialClose || to == PositionStatusClosed
	default:
		return false
	}
}

// NaturalKey возвращает естественный ключ позиции.
// Среди незакрытых позиций пара (long_symbol, short_symbol) уникальна.
func (p *PositionState) NaturalKey() string {
	return p.LongSymbol + "|" + p.ShortSymbol
}

// IsActive сообщает, участвует ли позиция в проверке уникальности ключа
func (p *PositionState) IsActive() bool {
	return p.Status != PositionStatusClosed
}
