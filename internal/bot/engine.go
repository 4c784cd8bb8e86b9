package bot

import (
	"context"
	"sync"
	"time"

	"deltarb/internal/models"
	"deltarb/pkg/utils"
)

// Engine - потребитель возможностей. Принимает их в ограниченный канал,
// сбрасывает протухшие и гарантирует не больше одного двуногого
// исполнения на пару одновременно.
type Engine struct {
	executor   *DualLegExecutor
	queue      chan *models.SpreadOpportunity
	staleAfter time.Duration

	// inflight по естественному ключу пары: перекрывающиеся исполнения
	// по одному ключу означали бы двойной вход
	inflight   map[string]bool
	inflightMu sync.Mutex

	wg sync.WaitGroup
}

// NewEngine создает движок с ограниченной очередью
func NewEngine(executor *DualLegExecutor, queueSize int, staleAfter time.Duration) *Engine {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Engine{
		executor:   executor,
		queue:      make(chan *models.SpreadOpportunity, queueSize),
		staleAfter: staleAfter,
		inflight:   make(map[string]bool),
	}
}

// Submit ставит возможность в очередь. Не блокирует: при переполнении
// возможность сбрасывается и учитывается - сигнал арбитража обесценивается
// за миллисекунды, ждать места бессмысленно.
func (e *Engine) Submit(opp *models.SpreadOpportunity) bool {
	select {
	case e.queue <- opp:
		return true
	default:
		OpportunitiesDrained.Inc()
		utils.Debug("opportunity dropped, queue full",
			utils.Pair(opp.SymbolA),
			utils.Spread(opp.SpreadPct))
		return false
	}
}

// Run обрабатывает очередь до отмены контекста
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			return
		case opp := <-e.queue:
			opp = e.drainStale(opp)
			if opp == nil {
				continue
			}
			e.dispatch(ctx, opp)
		}
	}
}

// drainStale сбрасывает из очереди возможности старше той, что будет
// обработана: обрабатываем самую свежую, количество сброшенных
// логируется, но ошибкой не считается.
func (e *Engine) drainStale(current *models.SpreadOpportunity) *models.SpreadOpportunity {
	drained := 0

	for {
		select {
		case next := <-e.queue:
			if next.DetectedAt >= current.DetectedAt {
				drained++
				current = next
			} else {
				drained++
			}
			continue
		default:
		}
		break
	}

	// Слишком старый сигнал не исполняем вовсе
	if e.staleAfter > 0 {
		age := time.Now().UnixMilli() - current.DetectedAt
		if age > e.staleAfter.Milliseconds() {
			drained++
			current = nil
		}
	}

	if drained > 0 {
		OpportunitiesDrained.Add(float64(drained))
		utils.Info("stale opportunities drained", utils.Int("count", drained))
	}

	return current
}

// dispatch запускает исполнение, если по этой паре ничего не в полёте
func (e *Engine) dispatch(ctx context.Context, opp *models.SpreadOpportunity) {
	key := opp.LongSymbol() + "|" + opp.ShortSymbol()

	e.inflightMu.Lock()
	if e.inflight[key] {
		e.inflightMu.Unlock()
		OpportunitiesDrained.Inc()
		utils.Debug("execution already in flight for pair", utils.Pair(key))
		return
	}
	e.inflight[key] = true
	e.inflightMu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.inflightMu.Lock()
			delete(e.inflight, key)
			e.inflightMu.Unlock()
		}()

		if _, err := e.executor.Execute(ctx, opp); err != nil {
			utils.Error("execution failed", utils.Pair(key), utils.Err(err))
		}
	}()
}

// QueueLen возвращает текущую глубину очереди
func (e *Engine) QueueLen() int {
	return len(e.queue)
}
