package monitor

import (
	"testing"
	"time"

	"deltarb/internal/exchange"
	"deltarb/internal/models"
)

// ============================================================
// SpreadMonitor Tests
// ============================================================

func testConfig() Config {
	return Config{
		ExchangeA:      "hyperliquid",
		ExchangeB:      "paradex",
		SymbolA:        "BTC-PERP",
		SymbolB:        "BTC-USD-PERP",
		EntrySpreadPct: 0.10,
		OrderSize:      0.5,
	}
}

func collect() (func(*models.SpreadOpportunity), *[]*models.SpreadOpportunity) {
	var out []*models.SpreadOpportunity
	return func(opp *models.SpreadOpportunity) { out = append(out, opp) }, &out
}

func tick(bid, ask float64) *exchange.Ticker {
	return &exchange.Ticker{BidPrice: bid, AskPrice: ask, TimestampMs: time.Now().UnixMilli()}
}

func TestSpreadMonitor_DetectsAOverB(t *testing.T) {
	cb, got := collect()
	m := NewSpreadMonitor(testConfig(), cb)

	// bid A = 42100 против ask B = 42010: исполнимый спред ~0.214%
	m.OnTickB(tick(42000, 42010))
	m.OnTickA(tick(42100, 42110))

	if len(*got) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(*got))
	}
	opp := (*got)[0]
	if opp.Direction != models.DirectionAOverB {
		t.Errorf("Direction = %q", opp.Direction)
	}
	if opp.PriceA != 42100 || opp.PriceB != 42010 {
		t.Errorf("prices = %v/%v, want executable bid A / ask B", opp.PriceA, opp.PriceB)
	}
	if opp.ShortExchange() != "hyperliquid" || opp.LongExchange() != "paradex" {
		t.Errorf("legs: short=%s long=%s", opp.ShortExchange(), opp.LongExchange())
	}
	if opp.Size != 0.5 {
		t.Errorf("Size = %v", opp.Size)
	}
	if opp.DetectedAt == 0 {
		t.Error("DetectedAt not set")
	}
}

func TestSpreadMonitor_DetectsBOverA(t *testing.T) {
	cb, got := collect()
	m := NewSpreadMonitor(testConfig(), cb)

	m.OnTickA(tick(42000, 42010))
	m.OnTickB(tick(42100, 42110))

	if len(*got) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(*got))
	}
	opp := (*got)[0]
	if opp.Direction != models.DirectionBOverA {
		t.Errorf("Direction = %q", opp.Direction)
	}
	// Исполнимые цены: лонг на A по её ask, шорт на B по её bid
	if opp.PriceA != 42010 || opp.PriceB != 42100 {
		t.Errorf("prices = %v/%v", opp.PriceA, opp.PriceB)
	}
	if opp.ShortExchange() != "paradex" || opp.LongExchange() != "hyperliquid" {
		t.Errorf("legs: short=%s long=%s", opp.ShortExchange(), opp.LongExchange())
	}
}

func TestSpreadMonitor_BelowThreshold(t *testing.T) {
	cb, got := collect()
	m := NewSpreadMonitor(testConfig(), cb)

	// Спред ~0.02% - ниже порога 0.10%
	m.OnTickA(tick(42010, 42012))
	m.OnTickB(tick(42000, 42002))

	if len(*got) != 0 {
		t.Errorf("opportunities = %d, want 0", len(*got))
	}
}

func TestSpreadMonitor_SingleVenueSilent(t *testing.T) {
	cb, got := collect()
	m := NewSpreadMonitor(testConfig(), cb)

	// Одной котировки недостаточно, сколько бы тиков ни пришло
	m.OnTickA(tick(42100, 42110))
	m.OnTickA(tick(42200, 42210))

	if len(*got) != 0 {
		t.Errorf("opportunities = %d, want 0", len(*got))
	}
}

func TestSpreadMonitor_FiresOncePerCrossing(t *testing.T) {
	cb, got := collect()
	m := NewSpreadMonitor(testConfig(), cb)

	m.OnTickB(tick(42000, 42010))
	m.OnTickA(tick(42100, 42110)) // пересечение порога
	m.OnTickA(tick(42105, 42115)) // спред всё ещё выше порога
	m.OnTickA(tick(42110, 42120))

	if len(*got) != 1 {
		t.Fatalf("opportunities = %d, want 1 per crossing", len(*got))
	}

	// Спред ушёл под порог - монитор перезаряжается
	m.OnTickA(tick(42011, 42013))
	m.OnTickA(tick(42100, 42110)) // новое пересечение

	if len(*got) != 2 {
		t.Errorf("opportunities = %d, want 2 after re-arm", len(*got))
	}
}

func TestSpreadMonitor_StaleQuoteIgnored(t *testing.T) {
	cfg := testConfig()
	cfg.QuoteTTL = 50 * time.Millisecond

	cb, got := collect()
	m := NewSpreadMonitor(cfg, cb)

	m.OnTickB(tick(42000, 42010))
	time.Sleep(80 * time.Millisecond)

	// Котировка B протухла: сравнение с ней не проводится
	m.OnTickA(tick(42100, 42110))
	if len(*got) != 0 {
		t.Errorf("opportunities = %d, want 0 on stale quote", len(*got))
	}

	// Свежая котировка B возвращает сравнение
	m.OnTickB(tick(42000, 42010))
	if len(*got) != 1 {
		t.Errorf("opportunities = %d, want 1 after refresh", len(*got))
	}
}

func TestSpreadMonitor_InvalidTickIgnored(t *testing.T) {
	cb, got := collect()
	m := NewSpreadMonitor(testConfig(), cb)

	m.OnTickB(tick(42000, 42010))
	m.OnTickA(nil)
	m.OnTickA(tick(0, 42110))
	m.OnTickA(tick(42100, 0))

	if len(*got) != 0 {
		t.Errorf("opportunities = %d, want 0", len(*got))
	}
}

func TestSpreadMonitor_Snapshot(t *testing.T) {
	m := NewSpreadMonitor(testConfig(), nil)

	if _, _, ok := m.Snapshot(); ok {
		t.Error("Snapshot must report not-ready without both quotes")
	}

	m.OnTickA(tick(42100, 42110))
	m.OnTickB(tick(42000, 42010))

	aOverB, bOverA, ok := m.Snapshot()
	if !ok {
		t.Fatal("Snapshot not ready")
	}
	if aOverB <= 0 {
		t.Errorf("spreadAOverB = %v, want > 0", aOverB)
	}
	if bOverA >= 0 {
		// bid B (42000) ниже ask A (42110): спред отрицательный
		t.Errorf("spreadBOverA = %v, want < 0", bOverA)
	}
}
