package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"deltarb/internal/exchange"
	"deltarb/internal/models"
	"deltarb/pkg/utils"
)

// Итоги двуногого исполнения
const (
	ResultOpen          = "open"            // обе ноги открыты
	ResultOneLegUnwound = "one_leg_unwound" // одна нога открылась и была раскручена
	ResultExposure      = "exposure"        // раскрутка не удалась, висит направленная экспозиция
	ResultMissed        = "missed"          // обе ноги провалились, позиции нет
)

// ExecuteResult - итог обработки одной возможности
type ExecuteResult struct {
	Result   string
	Position *models.PositionState // только при Result == ResultOpen
	LongLeg  LegStatus
	ShortLeg LegStatus
	Analysis TradeAnalysis
}

// legLock даёт каждой площадке собственную блокировку: операции на разных
// площадках не конкурируют, глобальной блокировки нет.
type lockedExchange struct {
	exchange.Exchange
	mu sync.Mutex
}

// DualLegExecutor открывает обе ноги одновременно и сводит результат.
// Последовательное исполнение удвоило бы окно, в котором рынок уходит
// от невзятой ноги, и напрямую увеличило бы проскальзывание.
type DualLegExecutor struct {
	venues  map[string]*lockedExchange
	retrier *OrderRetrier
	ledger  *PositionLedger
	notify  func(*models.Notification)
}

// NewDualLegExecutor создает исполнитель поверх пары площадок
func NewDualLegExecutor(venues map[string]exchange.Exchange, retrier *OrderRetrier, ledger *PositionLedger, notify func(*models.Notification)) *DualLegExecutor {
	locked := make(map[string]*lockedExchange, len(venues))
	for name, ex := range venues {
		locked[name] = &lockedExchange{Exchange: ex}
	}
	if notify == nil {
		notify = func(*models.Notification) {}
	}
	return &DualLegExecutor{
		venues:  locked,
		retrier: retrier,
		ledger:  ledger,
		notify:  notify,
	}
}

// Execute обрабатывает одну возможность: строит по ордеру на каждую
// площадку согласно направлению, запускает обе серии попыток одновременно
// и ждёт обе, затем применяет политику сведения.
func (e *DualLegExecutor) Execute(ctx context.Context, opp *models.SpreadOpportunity) (*ExecuteResult, error) {
	signalAtMs := time.Now().UnixMilli()

	longVenue, ok := e.venues[opp.LongExchange()]
	if !ok {
		return nil, fmt.Errorf("unknown exchange %q", opp.LongExchange())
	}
	shortVenue, ok := e.venues[opp.ShortExchange()]
	if !ok {
		return nil, fmt.Errorf("unknown exchange %q", opp.ShortExchange())
	}

	longReq := OrderRequest{
		Symbol:   opp.LongSymbol(),
		Side:     exchange.SideBuy,
		Quantity: opp.Size,
	}
	shortReq := OrderRequest{
		Symbol:   opp.ShortSymbol(),
		Side:     exchange.SideSell,
		Quantity: opp.Size,
	}

	// Обе ноги стартуют в один момент, каждая идёт через собственный
	// цикл повторов и не блокирует прогресс другой
	longCh := make(chan RetryResult, 1)
	shortCh := make(chan RetryResult, 1)
	sentAtMs := time.Now().UnixMilli()

	go func() {
		longVenue.mu.Lock()
		defer longVenue.mu.Unlock()
		longCh <- e.retrier.PlaceWithRetry(ctx, longVenue.Exchange, longReq)
	}()
	go func() {
		shortVenue.mu.Lock()
		defer shortVenue.mu.Unlock()
		shortCh <- e.retrier.PlaceWithRetry(ctx, shortVenue.Exchange, shortReq)
	}()

	var longRes, shortRes RetryResult
	var longDone, shortDone bool
	for !longDone || !shortDone {
		select {
		case longRes = <-longCh:
			longDone = true
		case shortRes = <-shortCh:
			shortDone = true
		}
	}
	confirmedAtMs := time.Now().UnixMilli()

	longLeg := LegStatusFrom(opp.LongExchange(), longRes)
	shortLeg := LegStatusFrom(opp.ShortExchange(), shortRes)
	timing := ComputeTiming(opp.DetectedAt, signalAtMs, sentAtMs, confirmedAtMs)

	switch {
	case longLeg.Success && shortLeg.Success:
		return e.bothFilled(opp, longLeg, shortLeg, timing)
	case longLeg.Success != shortLeg.Success:
		return e.oneFilled(ctx, opp, longLeg, shortLeg, timing)
	default:
		return e.bothFailed(opp, longLeg, shortLeg, timing)
	}
}

// bothFilled создает позицию и передает её в реестр
func (e *DualLegExecutor) bothFilled(opp *models.SpreadOpportunity, longLeg, shortLeg LegStatus, timing TimingBreakdown) (*ExecuteResult, error) {
	capturedSpread := e.capturedSpread(opp, longLeg, shortLeg)
	analysis := NewTradeAnalysis(
		opp.SymbolA, opp.ExchangeA, opp.ExchangeB,
		opp.SpreadPct, capturedSpread, timing, ResultOpen,
	)

	// Ноги могли исполниться с разным объёмом; позиция держит меньший,
	// хвост большей ноги остаётся на сверку
	size := longLeg.Quantity
	if shortLeg.Quantity < size {
		size = shortLeg.Quantity
	}

	position := &models.PositionState{
		ID:              uuid.NewString(),
		LongExchange:    longLeg.Exchange,
		LongSymbol:      opp.LongSymbol(),
		ShortExchange:   shortLeg.Exchange,
		ShortSymbol:     opp.ShortSymbol(),
		LongEntryPrice:  longLeg.FillPrice,
		ShortEntryPrice: shortLeg.FillPrice,
		Size:            size,
		RemainingSize:   size,
		Status:          models.PositionStatusOpen,
		DetectedSpread:  opp.SpreadPct,
		CapturedSpread:  capturedSpread,
		SlippageBps:     analysis.SlippageBps,
		Direction:       opp.Direction,
		DetectedAtMs:    opp.DetectedAt,
		LongFilledAtMs:  longLeg.FilledAtMs,
		ShortFilledAtMs: shortLeg.FilledAtMs,
	}

	if err := e.ledger.Open(position); err != nil {
		return nil, fmt.Errorf("ledger open: %w", err)
	}

	RecordTrade(ResultOpen)
	analysis.Record()

	e.notify(&models.Notification{
		Type:       models.NotificationTypeOpen,
		Severity:   models.SeverityInfo,
		PositionID: &position.ID,
		Message:    fmt.Sprintf("opened %s/%s size %v, captured %.4f%%", position.LongSymbol, position.ShortSymbol, size, capturedSpread),
		Meta: map[string]interface{}{
			"detected_spread": opp.SpreadPct,
			"captured_spread": capturedSpread,
			"slippage_bps":    analysis.SlippageBps,
		},
	})

	if capturedSpread < opp.SpreadPct {
		e.notify(&models.Notification{
			Type:       models.NotificationTypeSlippage,
			Severity:   models.SeverityWarn,
			PositionID: &position.ID,
			Message:    fmt.Sprintf("captured spread %.4f%% below detected %.4f%%", capturedSpread, opp.SpreadPct),
			Meta:       map[string]interface{}{"slippage_bps": analysis.SlippageBps},
		})
	}

	return &ExecuteResult{
		Result:   ResultOpen,
		Position: position,
		LongLeg:  longLeg,
		ShortLeg: shortLeg,
		Analysis: analysis,
	}, nil
}

// oneFilled раскручивает выжившую ногу: бот держит нежелательную
// направленную экспозицию, её надо немедленно снять reduce-only ордером
// с той же политикой повторов.
func (e *DualLegExecutor) oneFilled(ctx context.Context, opp *models.SpreadOpportunity, longLeg, shortLeg LegStatus, timing TimingBreakdown) (*ExecuteResult, error) {
	survived := longLeg
	survivedSide := exchange.SideLong
	if shortLeg.Success {
		survived = shortLeg
		survivedSide = exchange.SideShort
	}
	failed := shortLeg
	if shortLeg.Success {
		failed = longLeg
	}

	venue := e.venues[survived.Exchange]
	symbol := opp.LongSymbol()
	if survivedSide == exchange.SideShort {
		symbol = opp.ShortSymbol()
	}

	utils.Warn("second leg failed, unwinding survivor",
		utils.Exchange(survived.Exchange),
		utils.Symbol(symbol),
		utils.Side(survivedSide),
		utils.Quantity(survived.Quantity),
		utils.Err(failed.Err),
	)

	venue.mu.Lock()
	unwind := e.retrier.CloseWithRetry(ctx, venue.Exchange, symbol, survivedSide, survived.Quantity)
	venue.mu.Unlock()

	RecordUnwind(survived.Exchange, unwind.Success)

	result := ResultOneLegUnwound
	severity := models.SeverityWarn
	msg := fmt.Sprintf("second leg failed on %s, %s leg on %s unwound", failed.Exchange, survivedSide, survived.Exchange)

	if !unwind.Success {
		// Самое тяжёлое состояние во время работы: реальный капитал
		// остался под направленным риском
		result = ResultExposure
		severity = models.SeverityError
		msg = fmt.Sprintf("UNWIND FAILED: directional exposure %s %v %s on %s", survivedSide, survived.Quantity, symbol, survived.Exchange)
		utils.Error("unwind failed, directional exposure remains",
			utils.Exchange(survived.Exchange),
			utils.Symbol(symbol),
			utils.Quantity(survived.Quantity),
			utils.Err(unwind.Err),
		)
	}

	RecordTrade(result)

	e.notify(&models.Notification{
		Type:     models.NotificationTypeSecondLegFail,
		Severity: severity,
		Message:  msg,
		Meta: map[string]interface{}{
			"failed_exchange":   failed.Exchange,
			"survived_exchange": survived.Exchange,
			"unwind_success":    unwind.Success,
			"attempts":          survived.Attempts,
		},
	})
	if result == ResultExposure {
		e.notify(&models.Notification{
			Type:     models.NotificationTypeExposure,
			Severity: models.SeverityError,
			Message:  msg,
			Meta: map[string]interface{}{
				"exchange": survived.Exchange,
				"symbol":   symbol,
				"side":     survivedSide,
				"quantity": survived.Quantity,
			},
		})
	}

	analysis := NewTradeAnalysis(
		opp.SymbolA, opp.ExchangeA, opp.ExchangeB,
		opp.SpreadPct, 0, timing, result,
	)
	analysis.Record()

	return &ExecuteResult{
		Result:   result,
		LongLeg:  longLeg,
		ShortLeg: shortLeg,
		Analysis: analysis,
	}, nil
}

// bothFailed фиксирует упущенную возможность, раскрутка не нужна
func (e *DualLegExecutor) bothFailed(opp *models.SpreadOpportunity, longLeg, shortLeg LegStatus, timing TimingBreakdown) (*ExecuteResult, error) {
	RecordTrade(ResultMissed)

	utils.Warn("both legs failed, opportunity missed",
		utils.Pair(opp.SymbolA),
		utils.Spread(opp.SpreadPct),
		utils.Err(longLeg.Err),
	)

	e.notify(&models.Notification{
		Type:     models.NotificationTypeMissed,
		Severity: models.SeverityWarn,
		Message:  fmt.Sprintf("both legs failed for %s/%s", opp.SymbolA, opp.SymbolB),
		Meta: map[string]interface{}{
			"long_error":  errString(longLeg.Err),
			"short_error": errString(shortLeg.Err),
		},
	})

	analysis := NewTradeAnalysis(
		opp.SymbolA, opp.ExchangeA, opp.ExchangeB,
		opp.SpreadPct, 0, timing, ResultMissed,
	)
	analysis.Record()

	return &ExecuteResult{
		Result:   ResultMissed,
		LongLeg:  longLeg,
		ShortLeg: shortLeg,
		Analysis: analysis,
	}, nil
}

// capturedSpread пересчитывает спред по фактическим ценам исполнения
// той же направленной формулой, что и при обнаружении
func (e *DualLegExecutor) capturedSpread(opp *models.SpreadOpportunity, longLeg, shortLeg LegStatus) float64 {
	// Цена площадки A и площадки B независимо от того, какая нога где
	priceA := shortLeg.FillPrice
	priceB := longLeg.FillPrice
	if opp.Direction == models.DirectionBOverA {
		priceA = longLeg.FillPrice
		priceB = shortLeg.FillPrice
	}
	return utils.DirectionalSpread(priceA, priceB, opp.Direction == models.DirectionAOverB)
}

// VerifyPositions снимает позиции обеих ног и сверяет их.
// Снимки берутся под блокировками площадок, сама сверка - без них.
func (e *DualLegExecutor) VerifyPositions(ctx context.Context, p *models.PositionState, detectedSpread, exitTarget float64) PositionVerification {
	var snapA, snapB *exchange.Position

	// Снимок площадки A = короткая нога при a_over_b
	shortVenue := e.venues[p.ShortExchange]
	longVenue := e.venues[p.LongExchange]

	var shortSnap, longSnap *exchange.Position
	if shortVenue != nil {
		shortVenue.mu.Lock()
		shortSnap, _ = shortVenue.GetPosition(ctx, p.ShortSymbol)
		shortVenue.mu.Unlock()
	}
	if longVenue != nil {
		longVenue.mu.Lock()
		longSnap, _ = longVenue.GetPosition(ctx, p.LongSymbol)
		longVenue.mu.Unlock()
	}

	if p.Direction == models.DirectionAOverB {
		snapA, snapB = shortSnap, longSnap
	} else {
		snapA, snapB = longSnap, shortSnap
	}

	v := Verify(snapA, snapB, p.Direction)
	LogVerificationSummary(v, p.LongSymbol+"/"+p.ShortSymbol, detectedSpread, exitTarget)

	p.VerifiedAtMs = time.Now().UnixMilli()

	if (shortSnap == nil) != (longSnap == nil) {
		e.notify(&models.Notification{
			Type:       models.NotificationTypeVerifyMismatch,
			Severity:   models.SeverityError,
			PositionID: &p.ID,
			Message:    fmt.Sprintf("leg mismatch: long present=%v short present=%v", longSnap != nil, shortSnap != nil),
		})
	}

	return v
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
