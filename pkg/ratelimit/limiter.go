package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Token Bucket rate limiter для контроля частоты запросов к API площадок.
//
// Ведро наполняется токенами с постоянной скоростью (rate токенов/сек),
// максимальная ёмкость = burst. Каждый запрос потребляет 1 токен.
// Burst важен именно для этого бота: обе ноги арбитража отправляются
// одновременно, то есть нормальный паттерн - 2+ запроса в один момент.

// Limiter token bucket limiter для одной площадки
type Limiter struct {
	rate       float64   // токенов в секунду
	burst      float64   // максимальная ёмкость
	tokens     float64   // текущее количество токенов
	lastRefill time.Time // время последнего пополнения
	mu         sync.Mutex
}

// NewLimiter создаёт limiter
//
// rate - запросов в секунду, burst - максимальный всплеск.
// Типичные лимиты perp-площадок: 10-20 req/sec с burst 2x.
func NewLimiter(rate, burst float64) *Limiter {
	if rate <= 0 {
		rate = 10
	}
	if burst < rate {
		burst = rate * 2
	}

	return &Limiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst, // начинаем с полным ведром
		lastRefill: time.Now(),
	}
}

// refill пополняет токены на основе прошедшего времени.
// Вызывается под lock'ом.
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()

	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.lastRefill = now
}

// Allow неблокирующая проверка: true = токен получен
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// reserve забирает токен и возвращает время ожидания до его доступности
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	l.tokens--
	if l.tokens >= 0 {
		return 0
	}
	// Токенов нет: ждём пока дефицит восполнится
	deficit := -l.tokens
	return time.Duration(deficit / l.rate * float64(time.Second))
}

// Wait блокирует до получения токена или отмены контекста
func (l *Limiter) Wait(ctx context.Context) error {
	wait := l.reserve()
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tokens возвращает текущее количество токенов (для мониторинга)
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}

// Rate возвращает настроенную скорость
func (l *Limiter) Rate() float64 {
	return l.rate
}

// ============================================================
// MultiLimiter - лимитеры по площадкам
// ============================================================

// MultiLimiter хранит независимый limiter на каждую площадку.
// Лимиты площадок не связаны между собой: троттлинг одной
// не должен тормозить ордера на другой.
type MultiLimiter struct {
	limiters map[string]*Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter создаёт пустой MultiLimiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*Limiter),
	}
}

// Add регистрирует limiter для площадки
func (ml *MultiLimiter) Add(exchange string, rate, burst float64) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.limiters[exchange] = NewLimiter(rate, burst)
}

// Wait блокирует до получения токена площадки.
// Для незарегистрированной площадки не ограничивает.
func (ml *MultiLimiter) Wait(ctx context.Context, exchange string) error {
	ml.mu.RLock()
	l, ok := ml.limiters[exchange]
	ml.mu.RUnlock()

	if !ok {
		return nil
	}
	return l.Wait(ctx)
}

// Allow неблокирующая проверка для площадки
func (ml *MultiLimiter) Allow(exchange string) bool {
	ml.mu.RLock()
	l, ok := ml.limiters[exchange]
	ml.mu.RUnlock()

	if !ok {
		return true
	}
	return l.Allow()
}

// Get возвращает limiter площадки (nil если не зарегистрирован)
func (ml *MultiLimiter) Get(exchange string) *Limiter {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	return ml.limiters[exchange]
}
