package bot

import (
	"deltarb/pkg/utils"
)

// TimingBreakdown - разбивка латентности сделки по фазам.
// Четыре абсолютных момента (unix ms) и производные длительности.
// Вычитание насыщающее: сбой часов никогда не даёт отрицательную фазу.
type TimingBreakdown struct {
	DetectedAtMs  int64 `json:"detected_at_ms"`   // возможность обнаружена
	SignalAtMs    int64 `json:"signal_at_ms"`     // сигнал принят исполнителем
	OrderSentAtMs int64 `json:"order_sent_at_ms"` // ордера отправлены
	ConfirmedAtMs int64 `json:"confirmed_at_ms"`  // обе ноги подтверждены

	SignalDelayMs  int64 `json:"signal_delay_ms"`  // detection -> signal
	SendDelayMs    int64 `json:"send_delay_ms"`    // signal -> order sent
	ConfirmDelayMs int64 `json:"confirm_delay_ms"` // order sent -> confirmed
	TotalMs        int64 `json:"total_ms"`         // сумма трёх фаз
}

// ComputeTiming строит разбивку из четырёх моментов времени.
// Total всегда равен точной сумме трёх фаз.
func ComputeTiming(detectedMs, signalMs, sentMs, confirmedMs int64) TimingBreakdown {
	signal := utils.SaturatingElapsed(detectedMs, signalMs)
	send := utils.SaturatingElapsed(signalMs, sentMs)
	confirm := utils.SaturatingElapsed(sentMs, confirmedMs)

	return TimingBreakdown{
		DetectedAtMs:  detectedMs,
		SignalAtMs:    signalMs,
		OrderSentAtMs: sentMs,
		ConfirmedAtMs: confirmedMs,

		SignalDelayMs:  signal,
		SendDelayMs:    send,
		ConfirmDelayMs: confirm,
		TotalMs:        signal + send + confirm,
	}
}

// TradeAnalysis - итоговая запись по одной попытке сделки.
// Основной сигнал наблюдаемости: где теряется латентность
// и сколько спреда съедает исполнение.
type TradeAnalysis struct {
	Pair           string          `json:"pair"`
	ExchangeA      string          `json:"exchange_a"`
	ExchangeB      string          `json:"exchange_b"`
	DetectedSpread float64         `json:"detected_spread"`
	ExecutedSpread float64         `json:"executed_spread"`
	SlippageBps    float64         `json:"slippage_bps"`
	Timing         TimingBreakdown `json:"timing"`
	Result         string          `json:"result"` // open, one_leg_unwound, exposure, missed
}

// NewTradeAnalysis вычисляет проскальзывание и собирает запись.
// executedSpread пересчитан из фактических цен исполнения, не из свежего
// стакана: лишнее чтение стакана добавило бы латентности.
func NewTradeAnalysis(pair, exchangeA, exchangeB string, detectedSpread, executedSpread float64, timing TimingBreakdown, result string) TradeAnalysis {
	return TradeAnalysis{
		Pair:           pair,
		ExchangeA:      exchangeA,
		ExchangeB:      exchangeB,
		DetectedSpread: detectedSpread,
		ExecutedSpread: executedSpread,
		SlippageBps:    utils.SpreadToBps(detectedSpread, executedSpread),
		Timing:         timing,
		Result:         result,
	}
}

// Record пишет одну структурированную запись анализа и обновляет метрики.
// Вызывается после того как исход сделки уже финален, путь исполнения
// не блокирует.
func (a TradeAnalysis) Record() {
	utils.Info("trade analysis",
		utils.Pair(a.Pair),
		utils.String("exchange_a", a.ExchangeA),
		utils.String("exchange_b", a.ExchangeB),
		utils.Spread(a.DetectedSpread),
		utils.Float64("executed_spread", a.ExecutedSpread),
		utils.SlippageBps(a.SlippageBps),
		utils.Int64("signal_delay_ms", a.Timing.SignalDelayMs),
		utils.Int64("send_delay_ms", a.Timing.SendDelayMs),
		utils.Int64("confirm_delay_ms", a.Timing.ConfirmDelayMs),
		utils.Latency(float64(a.Timing.TotalMs)),
		utils.String("result", a.Result),
	)

	RecordPhases(
		float64(a.Timing.SignalDelayMs),
		float64(a.Timing.SendDelayMs),
		float64(a.Timing.ConfirmDelayMs),
		float64(a.Timing.TotalMs),
	)
	SlippageBps.Observe(a.SlippageBps)
}
