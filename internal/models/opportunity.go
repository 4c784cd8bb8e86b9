package models

// Direction указывает, какая площадка котируется выше в момент обнаружения
type Direction string

const (
	DirectionAOverB Direction = "a_over_b" // площадка A выше: short A, long B
	DirectionBOverA Direction = "b_over_a" // площадка B выше: short B, long A
)

// SpreadOpportunity представляет обнаруженное расхождение цен между площадками
type SpreadOpportunity struct {
	SymbolA    string    `json:"symbol_a"`    // символ на площадке A, например BTC-PERP
	SymbolB    string    `json:"symbol_b"`    // символ на площадке B, например BTC-USD-PERP
	ExchangeA  string    `json:"exchange_a"`
	ExchangeB  string    `json:"exchange_b"`
	PriceA     float64   `json:"price_a"`
	PriceB     float64   `json:"price_b"`
	SpreadPct  float64   `json:"spread_pct"` // (high-low)/low*100
	Direction  Direction `json:"direction"`
	Size       float64   `json:"size"`        // объём в базовом активе
	DetectedAt int64     `json:"detected_at"` // unix ms
}

// ShortExchange возвращает площадку для короткой ноги
func (o *SpreadOpportunity) ShortExchange() string {
	if o.Direction == DirectionAOverB {
		return o.ExchangeA
	}
	return o.ExchangeB
}

// LongExchange возвращает площадку для длинной ноги
func (o *SpreadOpportunity) LongExchange() string {
	if o.Direction == DirectionAOverB {
		return o.ExchangeB
	}
	return o.ExchangeA
}

// ShortSymbol возвращает символ короткой ноги
func (o *SpreadOpportunity) ShortSymbol() string {
	if o.Direction == DirectionAOverB {
		return o.SymbolA
	}
	return o.SymbolB
}

// LongSymbol возвращает символ длинной ноги
func (o *SpreadOpportunity) LongSymbol() string {
	if o.Direction == DirectionAOverB {
		return o.SymbolB
	}
	return o.SymbolA
}
