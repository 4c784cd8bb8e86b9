package bot

import (
	"context"
	"testing"
	"time"

	"deltarb/internal/exchange"
)

// ============================================================
// OrderRetrier Tests
// ============================================================

func testRetrier() *OrderRetrier {
	return NewOrderRetrier(3, time.Millisecond, time.Second)
}

func TestPlaceWithRetry_FirstAttempt(t *testing.T) {
	ex := newMockExchange("paper", 42000)
	res := testRetrier().PlaceWithRetry(context.Background(), ex, OrderRequest{
		Symbol:   "BTC-PERP",
		Side:     exchange.SideBuy,
		Quantity: 0.5,
	})

	if !res.Success {
		t.Fatalf("Success = false, err = %v", res.Err)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
	if res.Response == nil || res.Response.AvgFillPrice != 42000 {
		t.Errorf("Response = %+v", res.Response)
	}
}

func TestPlaceWithRetry_SucceedsAfterFailures(t *testing.T) {
	ex := newMockExchange("paper", 42000)
	ex.failPlace = 2 // первые две попытки падают

	res := testRetrier().PlaceWithRetry(context.Background(), ex, OrderRequest{
		Symbol:   "BTC-PERP",
		Side:     exchange.SideSell,
		Quantity: 0.5,
	})

	if !res.Success {
		t.Fatalf("Success = false, err = %v", res.Err)
	}
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
	if ex.placeCalls != 3 {
		t.Errorf("placeCalls = %d, want 3", ex.placeCalls)
	}
}

func TestPlaceWithRetry_Exhausted(t *testing.T) {
	ex := newMockExchange("paper", 42000)
	ex.failPlace = -1

	res := testRetrier().PlaceWithRetry(context.Background(), ex, OrderRequest{
		Symbol:   "BTC-PERP",
		Side:     exchange.SideBuy,
		Quantity: 0.5,
	})

	if res.Success {
		t.Fatal("Success = true on permanent failure")
	}
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
	if res.Err == nil {
		t.Error("Err must carry the last failure")
	}
	if res.Response != nil {
		t.Error("Response must be nil on failure")
	}
}

func TestPlaceWithRetry_ContextCancelled(t *testing.T) {
	ex := newMockExchange("paper", 42000)
	ex.failPlace = -1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := testRetrier().PlaceWithRetry(ctx, ex, OrderRequest{
		Symbol:   "BTC-PERP",
		Side:     exchange.SideBuy,
		Quantity: 0.5,
	})

	// Отменённый контекст не порождает ни одной попытки
	if res.Success {
		t.Fatal("Success on cancelled context")
	}
	if res.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", res.Attempts)
	}
	if ex.placeCalls != 0 {
		t.Errorf("placeCalls = %d, want 0", ex.placeCalls)
	}
}

func TestCloseWithRetry(t *testing.T) {
	ex := newMockExchange("paper", 42000)
	ex.failClose = 1 // первая попытка падает

	res := testRetrier().CloseWithRetry(context.Background(), ex, "BTC-PERP", exchange.SideShort, 0.5)

	if !res.Success {
		t.Fatalf("Success = false, err = %v", res.Err)
	}
	if res.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", res.Attempts)
	}
	if len(ex.closeOrders) != 1 || ex.closeOrders[0].side != exchange.SideShort {
		t.Errorf("closeOrders = %+v", ex.closeOrders)
	}
	if !res.Response.ReduceOnly {
		t.Error("close order must be reduce-only")
	}
}

func TestLegStatusFrom(t *testing.T) {
	ok := RetryResult{
		Success:  true,
		Attempts: 2,
		Response: &exchange.Order{AvgFillPrice: 42010, FilledQty: 0.4, FilledAtMs: 1700000000123},
	}
	st := LegStatusFrom("paradex", ok)
	if st.Exchange != "paradex" || !st.Success || st.Attempts != 2 {
		t.Errorf("st = %+v", st)
	}
	if st.FillPrice != 42010 || st.Quantity != 0.4 || st.FilledAtMs != 1700000000123 {
		t.Errorf("fill fields = %+v", st)
	}

	// Провал: поля исполнения остаются нулевыми
	failed := RetryResult{Success: false, Attempts: 3, Err: errVenueDown}
	st = LegStatusFrom("hyperliquid", failed)
	if st.Success || st.FillPrice != 0 || st.Quantity != 0 {
		t.Errorf("st = %+v", st)
	}
	if st.Err == nil {
		t.Error("Err must survive the conversion")
	}
}
