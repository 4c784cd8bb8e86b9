package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("connection reset")

// fastConfig короткая задержка для тестов
func fastConfig(maxAttempts int) Config {
	return Config{MaxAttempts: maxAttempts, Delay: time.Millisecond}
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), func() error {
		calls++
		return nil
	}, fastConfig(3))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_SuccessOnAttemptK(t *testing.T) {
	// Свойство: успех на попытке k <= max даёт attempts == k
	for k := 1; k <= 3; k++ {
		k := k
		t.Run("", func(t *testing.T) {
			calls := 0
			attempts, err := Do(context.Background(), func() error {
				calls++
				if calls < k {
					return errTransient
				}
				return nil
			}, fastConfig(3))

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if attempts != k {
				t.Errorf("attempts = %d, want %d", attempts, k)
			}
		})
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), func() error {
		calls++
		return errTransient
	}, fastConfig(3))

	if !errors.Is(err, errTransient) {
		t.Fatalf("expected errTransient, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_MinimumOneAttempt(t *testing.T) {
	// MaxAttempts <= 0 заменяется на дефолт, операция выполняется
	calls := 0
	attempts, err := Do(context.Background(), func() error {
		calls++
		return nil
	}, Config{MaxAttempts: -5, Delay: time.Millisecond})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("attempts=%d calls=%d, want 1/1", attempts, calls)
	}
}

func TestDo_OnAttemptReporting(t *testing.T) {
	type report struct {
		attempt int
		max     int
		final   bool
	}
	var reports []report

	cfg := fastConfig(3)
	cfg.OnAttempt = func(attempt, max int, err error, final bool) {
		reports = append(reports, report{attempt, max, final})
	}

	_, _ = Do(context.Background(), func() error { return errTransient }, cfg)

	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}
	for i, r := range reports {
		if r.attempt != i+1 {
			t.Errorf("report %d: attempt = %d, want %d", i, r.attempt, i+1)
		}
		if r.max != 3 {
			t.Errorf("report %d: max = %d, want 3", i, r.max)
		}
		// final только у последней попытки
		wantFinal := i == 2
		if r.final != wantFinal {
			t.Errorf("report %d: final = %v, want %v", i, r.final, wantFinal)
		}
	}
}

func TestDo_OnAttemptReportsSuccess(t *testing.T) {
	type report struct {
		attempt int
		err     error
		final   bool
	}
	var reports []report

	cfg := fastConfig(3)
	cfg.OnAttempt = func(attempt, max int, err error, final bool) {
		reports = append(reports, report{attempt, err, final})
	}

	calls := 0
	attempts, err := Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errTransient
		}
		return nil
	}, cfg)

	if err != nil || attempts != 2 {
		t.Fatalf("attempts=%d err=%v, want 2/nil", attempts, err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2 (failure then success)", len(reports))
	}
	if reports[0].err == nil || reports[0].final {
		t.Errorf("report 0 = %+v, want transient failure, final=false", reports[0])
	}
	// Успех тоже отчитывается: с номером попытки, err == nil и final=true
	if reports[1].attempt != 2 || reports[1].err != nil || !reports[1].final {
		t.Errorf("report 1 = %+v, want attempt=2, err=nil, final=true", reports[1])
	}
}

func TestDo_PermanentErrorStops(t *testing.T) {
	calls := 0
	permErr := Permanent(errors.New("invalid order size"))

	attempts, err := Do(context.Background(), func() error {
		calls++
		return permErr
	}, fastConfig(5))

	if calls != 1 {
		t.Errorf("calls = %d, want 1 (permanent error must not be retried)", calls)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if !IsPermanent(err) {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestDo_RetryIfFilter(t *testing.T) {
	calls := 0
	cfg := fastConfig(5)
	cfg.RetryIf = func(err error) bool { return false }

	_, err := Do(context.Background(), func() error {
		calls++
		return errTransient
	}, cfg)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDo_ContextCancelDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	cfg := Config{MaxAttempts: 5, Delay: time.Second}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	attempts, err := Do(ctx, func() error {
		calls++
		return errTransient
	}, cfg)
	elapsed := time.Since(start)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("expected last operation error, got %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("cancel did not interrupt delay, elapsed %v", elapsed)
	}
}

func TestDo_ContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	attempts, err := Do(ctx, func() error {
		calls++
		return nil
	}, fastConfig(3))

	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
	if attempts != 0 {
		t.Errorf("attempts = %d, want 0", attempts)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDoWithResult_ReturnsValue(t *testing.T) {
	calls := 0
	result, attempts, err := DoWithResult(context.Background(), func() (string, error) {
		calls++
		if calls < 2 {
			return "", errTransient
		}
		return "filled", nil
	}, fastConfig(3))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "filled" {
		t.Errorf("result = %q, want %q", result, "filled")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDoWithResult_ZeroValueOnFailure(t *testing.T) {
	result, attempts, err := DoWithResult(context.Background(), func() (int, error) {
		return 42, errTransient
	}, fastConfig(2))

	if err == nil {
		t.Fatal("expected error")
	}
	if result != 0 {
		t.Errorf("result = %d, want zero value", result)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestNotContext(t *testing.T) {
	if NotContext(context.Canceled) {
		t.Error("NotContext(context.Canceled) = true, want false")
	}
	if NotContext(context.DeadlineExceeded) {
		t.Error("NotContext(context.DeadlineExceeded) = true, want false")
	}
	if !NotContext(errTransient) {
		t.Error("NotContext(transient) = false, want true")
	}
}

func TestPermanent_NilPassthrough(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestDo_ConstantDelayTiming(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	delay := 30 * time.Millisecond
	cfg := Config{MaxAttempts: 3, Delay: delay}

	start := time.Now()
	_, _ = Do(context.Background(), func() error { return errTransient }, cfg)
	elapsed := time.Since(start)

	// 3 попытки = 2 задержки между ними; без экспоненциального роста
	min := 2 * delay
	max := 2*delay + 100*time.Millisecond
	if elapsed < min || elapsed > max {
		t.Errorf("elapsed = %v, want between %v and %v", elapsed, min, max)
	}
}
