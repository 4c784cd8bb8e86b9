package models

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"open to partial", PositionStatusOpen, PositionStatusPartialClose, true},
		{"open to closed", PositionStatusOpen, PositionStatusClosed, true},
		{"partial to closed", PositionStatusPartialClose, PositionStatusClosed, true},
		{"partial to partial", PositionStatusPartialClose, PositionStatusPartialClose, true},
		{"closed to open", PositionStatusClosed, PositionStatusOpen, false},
		{"closed to partial", PositionStatusClosed, PositionStatusPartialClose, false},
		{"closed to closed", PositionStatusClosed, PositionStatusClosed, false},
		{"partial to open", PositionStatusPartialClose, PositionStatusOpen, false},
		{"open to open", PositionStatusOpen, PositionStatusOpen, false},
		{"unknown status", "garbage", PositionStatusClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPositionState_NaturalKey(t *testing.T) {
	p := &PositionState{LongSymbol: "BTC-USD-PERP", ShortSymbol: "BTC-PERP"}
	if got := p.NaturalKey(); got != "BTC-USD-PERP|BTC-PERP" {
		t.Errorf("NaturalKey() = %q", got)
	}
}

func TestPositionState_IsActive(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{PositionStatusOpen, true},
		{PositionStatusPartialClose, true},
		{PositionStatusClosed, false},
	}

	for _, tt := range tests {
		p := &PositionState{Status: tt.status}
		if got := p.IsActive(); got != tt.want {
			t.Errorf("IsActive() for %q = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestSpreadOpportunity_Legs(t *testing.T) {
	base := SpreadOpportunity{
		SymbolA:   "BTC-PERP",
		SymbolB:   "BTC-USD-PERP",
		ExchangeA: "hyperliquid",
		ExchangeB: "paradex",
	}

	tests := []struct {
		name          string
		direction     Direction
		wantShortEx   string
		wantLongEx    string
		wantShortSym  string
		wantLongSym   string
	}{
		{
			name:         "A выше: short A, long B",
			direction:    DirectionAOverB,
			wantShortEx:  "hyperliquid",
			wantLongEx:   "paradex",
			wantShortSym: "BTC-PERP",
			wantLongSym:  "BTC-USD-PERP",
		},
		{
			name:         "B выше: short B, long A",
			direction:    DirectionBOverA,
			wantShortEx:  "paradex",
			wantLongEx:   "hyperliquid",
			wantShortSym: "BTC-USD-PERP",
			wantLongSym:  "BTC-PERP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base
			o.Direction = tt.direction

			if got := o.ShortExchange(); got != tt.wantShortEx {
				t.Errorf("ShortExchange() = %q, want %q", got, tt.wantShortEx)
			}
			if got := o.LongExchange(); got != tt.wantLongEx {
				t.Errorf("LongExchange() = %q, want %q", got, tt.wantLongEx)
			}
			if got := o.ShortSymbol(); got != tt.wantShortSym {
				t.Errorf("ShortSymbol() = %q, want %q", got, tt.wantShortSym)
			}
			if got := o.LongSymbol(); got != tt.wantLongSym {
				t.Errorf("LongSymbol() = %q, want %q", got, tt.wantLongSym)
			}
		})
	}
}
