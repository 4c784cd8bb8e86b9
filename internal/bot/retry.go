package bot

import (
	"context"
	"time"

	"deltarb/internal/exchange"
	"deltarb/pkg/retry"
	"deltarb/pkg/utils"
)

// OrderRequest - запрос на размещение ордера на одной площадке
type OrderRequest struct {
	Symbol   string
	Side     string // buy, sell
	Quantity float64
}

// RetryResult - итог серии попыток размещения ордера.
// Никогда не паникует: вызывающий всегда получает значение с описанием исхода.
type RetryResult struct {
	Success  bool
	Attempts int // 0..MaxAttempts; 0 когда контекст отменён до первой попытки
	Response *exchange.Order
	Err      error
}

// LegStatus - детерминированная свёртка RetryResult для одной ноги
type LegStatus struct {
	Exchange   string
	Success    bool
	FillPrice  float64
	Quantity   float64
	Attempts   int
	FilledAtMs int64
	Err        error
}

// LegStatusFrom строит статус ноги из результата серии попыток
func LegStatusFrom(exchangeName string, res RetryResult) LegStatus {
	st := LegStatus{
		Exchange: exchangeName,
		Success:  res.Success,
		Attempts: res.Attempts,
		Err:      res.Err,
	}
	if res.Success && res.Response != nil {
		st.FillPrice = res.Response.AvgFillPrice
		st.Quantity = res.Response.FilledQty
		st.FilledAtMs = res.Response.FilledAtMs
	}
	return st
}

// OrderRetrier размещает ордера с повторами через фиксированную задержку.
// Задержка не растёт: худший случай ограничен MaxAttempts * Delay,
// что держит суммарную латентность ноги предсказуемой.
type OrderRetrier struct {
	maxAttempts int
	delay       time.Duration
	timeout     time.Duration // таймаут одного вызова площадки
}

// NewOrderRetrier создает исполнитель повторов
func NewOrderRetrier(maxAttempts int, delay, timeout time.Duration) *OrderRetrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OrderRetrier{
		maxAttempts: maxAttempts,
		delay:       delay,
		timeout:     timeout,
	}
}

// PlaceWithRetry пытается разместить ордер, повторяя при неудаче.
// Каждая неудачная попытка логируется с её номером и потолком попыток,
// финальный провал отличим от промежуточного.
func (r *OrderRetrier) PlaceWithRetry(ctx context.Context, exch exchange.Exchange, req OrderRequest) RetryResult {
	log := utils.L().With(
		utils.Exchange(exch.GetName()),
		utils.Symbol(req.Symbol),
		utils.Side(req.Side),
	)

	cfg := retry.Config{
		MaxAttempts: r.maxAttempts,
		Delay:       r.delay,
		RetryIf:     retry.NotContext,
		OnAttempt: func(attempt, maxAttempts int, err error, final bool) {
			if err == nil {
				log.Info("order placed",
					utils.Attempt(attempt),
					utils.Int("max_attempts", maxAttempts))
				RecordLegAttempt(exch.GetName(), "success")
				return
			}
			if final {
				log.Error("order failed, attempts exhausted",
					utils.Attempt(attempt),
					utils.Int("max_attempts", maxAttempts),
					utils.Err(err))
				RecordLegAttempt(exch.GetName(), "exhausted")
				return
			}
			log.Warn("order attempt failed, will retry",
				utils.Attempt(attempt),
				utils.Int("max_attempts", maxAttempts),
				utils.Err(err))
			RecordLegAttempt(exch.GetName(), "retry")
		},
	}

	start := time.Now()
	order, attempts, err := retry.DoWithResult(ctx, func() (*exchange.Order, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return exch.PlaceMarketOrder(callCtx, req.Symbol, req.Side, req.Quantity)
	}, cfg)

	OrderExecutionLatency.WithLabelValues(exch.GetName(), req.Side).
		Observe(float64(time.Since(start).Milliseconds()))

	return RetryResult{
		Success:  err == nil,
		Attempts: attempts,
		Response: order,
		Err:      err,
	}
}

// CloseWithRetry закрывает позицию reduce-only ордером с той же политикой повторов
func (r *OrderRetrier) CloseWithRetry(ctx context.Context, exch exchange.Exchange, symbol, positionSide string, qty float64) RetryResult {
	log := utils.L().With(
		utils.Exchange(exch.GetName()),
		utils.Symbol(symbol),
		utils.Side(positionSide),
	)

	cfg := retry.Config{
		MaxAttempts: r.maxAttempts,
		Delay:       r.delay,
		RetryIf:     retry.NotContext,
		OnAttempt: func(attempt, maxAttempts int, err error, final bool) {
			switch {
			case err == nil:
				log.Info("close order placed", utils.Attempt(attempt))
			case final:
				log.Error("close order failed, attempts exhausted",
					utils.Attempt(attempt),
					utils.Int("max_attempts", maxAttempts),
					utils.Err(err))
			default:
				log.Warn("close attempt failed, will retry",
					utils.Attempt(attempt),
					utils.Err(err))
			}
		},
	}

	order, attempts, err := retry.DoWithResult(ctx, func() (*exchange.Order, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return exch.ClosePosition(callCtx, symbol, positionSide, qty)
	}, cfg)

	return RetryResult{
		Success:  err == nil,
		Attempts: attempts,
		Response: order,
		Err:      err,
	}
}
