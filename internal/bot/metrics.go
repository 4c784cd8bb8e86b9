package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================

// ============ Метрики латентности ============

// PhaseLatency - длительность фаз жизненного цикла сделки
// detection -> signal -> order_sent -> confirmed
var PhaseLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "deltarb",
		Subsystem: "trading",
		Name:      "phase_latency_ms",
		Help:      "Duration of trade lifecycle phases in milliseconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	},
	[]string{"phase"}, // signal, send, confirm, total
)

// OrderExecutionLatency - время исполнения ордера на площадке
var OrderExecutionLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "deltarb",
		Subsystem: "trading",
		Name:      "order_execution_latency_ms",
		Help:      "Time to execute order on exchange in milliseconds",
		Buckets:   []float64{50, 100, 200, 300, 500, 1000, 2000, 5000},
	},
	[]string{"exchange", "side"},
)

// ============ Счётчики исполнения ============

// LegAttempts - попытки размещения ордеров по ногам
var LegAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "deltarb",
		Subsystem: "trading",
		Name:      "leg_attempts_total",
		Help:      "Total order placement attempts per leg",
	},
	[]string{"exchange", "outcome"}, // outcome: success, retry, exhausted
)

// TradesTotal - исходы двуногих сделок
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "deltarb",
		Subsystem: "trading",
		Name:      "trades_total",
		Help:      "Total dual-leg trade outcomes",
	},
	[]string{"result"}, // open, one_leg_unwound, exposure, missed
)

// UnwindAttempts - раскрутки одиночной ноги
var UnwindAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "deltarb",
		Subsystem: "trading",
		Name:      "unwind_attempts_total",
		Help:      "Auto-close attempts of a single surviving leg",
	},
	[]string{"exchange", "outcome"}, // outcome: success, failed
)

// OpportunitiesDrained - протухшие возможности, сброшенные из очереди
var OpportunitiesDrained = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "deltarb",
		Subsystem: "trading",
		Name:      "opportunities_drained_total",
		Help:      "Stale opportunities discarded from the queue",
	},
)

// OpportunitiesDetected - обнаруженные возможности
var OpportunitiesDetected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "deltarb",
		Subsystem: "trading",
		Name:      "opportunities_detected_total",
		Help:      "Number of arbitrage opportunities detected",
	},
	[]string{"triggered"}, // yes, no
)

// ============ Метрики качества исполнения ============

// SpreadObserved - наблюдаемые спреды
var SpreadObserved = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "deltarb",
		Subsystem: "trading",
		Name:      "spread_observed_percent",
		Help:      "Observed spread values in percent",
		Buckets:   []float64{-0.5, 0, 0.05, 0.1, 0.2, 0.3, 0.5, 1, 2},
	},
)

// SlippageBps - проскальзывание между обнаруженным и исполненным спредом
var SlippageBps = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "deltarb",
		Subsystem: "trading",
		Name:      "slippage_bps",
		Help:      "Slippage between detected and executed spread in basis points",
		Buckets:   []float64{-10, -5, -1, 0, 1, 2, 5, 10, 20, 50},
	},
)

// ============ Метрики состояния ============

// OpenPositions - число незакрытых позиций в реестре
var OpenPositions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "deltarb",
		Subsystem: "trading",
		Name:      "open_positions",
		Help:      "Current number of non-closed positions in the ledger",
	},
)

// LedgerDirty - реестр работает в памяти без синхронизации с хранилищем
var LedgerDirty = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "deltarb",
		Subsystem: "trading",
		Name:      "ledger_dirty",
		Help:      "1 when the ledger has unsynced in-memory state due to storage unavailability",
	},
)

// ExchangeConnections - статус подключений к площадкам
var ExchangeConnections = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "deltarb",
		Subsystem: "exchange",
		Name:      "connection_status",
		Help:      "Exchange connection status (1=connected, 0=disconnected)",
	},
	[]string{"exchange"},
)

// ExchangeBalance - баланс на площадках
var ExchangeBalance = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "deltarb",
		Subsystem: "exchange",
		Name:      "balance_usd",
		Help:      "Exchange balance in USD",
	},
	[]string{"exchange"},
)

// ============ Вспомогательные функции ============

// RecordLegAttempt записывает исход попытки размещения
func RecordLegAttempt(exchange, outcome string) {
	LegAttempts.WithLabelValues(exchange, outcome).Inc()
}

// RecordTrade записывает исход двуногой сделки
func RecordTrade(result string) {
	TradesTotal.WithLabelValues(result).Inc()
}

// RecordUnwind записывает попытку раскрутки одиночной ноги
func RecordUnwind(exchange string, success bool) {
	outcome := "failed"
	if success {
		outcome = "success"
	}
	UnwindAttempts.WithLabelValues(exchange, outcome).Inc()
}

// RecordOpportunity записывает обнаруженную возможность
func RecordOpportunity(triggered bool) {
	triggeredStr := "no"
	if triggered {
		triggeredStr = "yes"
	}
	OpportunitiesDetected.WithLabelValues(triggeredStr).Inc()
}

// RecordPhases записывает длительности фаз сделки
func RecordPhases(signalMs, sendMs, confirmMs, totalMs float64) {
	PhaseLatency.WithLabelValues("signal").Observe(signalMs)
	PhaseLatency.WithLabelValues("send").Observe(sendMs)
	PhaseLatency.WithLabelValues("confirm").Observe(confirmMs)
	PhaseLatency.WithLabelValues("total").Observe(totalMs)
}

// UpdateExchangeStatus обновляет статус площадки
func UpdateExchangeStatus(exchange string, connected bool, balance float64) {
	if connected {
		ExchangeConnections.WithLabelValues(exchange).Set(1)
	} else {
		ExchangeConnections.WithLabelValues(exchange).Set(0)
	}
	ExchangeBalance.WithLabelValues(exchange).Set(balance)
}
