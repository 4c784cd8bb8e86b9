package retry

import (
	"context"
	"errors"
	"time"
)

// Ограниченный retry с ПОСТОЯННОЙ задержкой.
//
// Экспоненциальный backoff здесь сознательно не используется: для
// latency-чувствительной торговли важна предсказуемая верхняя граница
// времени исполнения. При 3 попытках и задержке 500ms худший случай
// на одну ногу ≈ 1.5s — и он известен заранее.
//
// Номер попытки всегда наблюдаем: и через OnAttempt callback,
// и в возвращаемом значении. Это нужно для метрик и для отчёта
// "успех со второй попытки" vs "успех сразу".

// Значения по умолчанию
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 500 * time.Millisecond
)

// Config конфигурация retry
type Config struct {
	// MaxAttempts - максимальное количество попыток (включая первую).
	// Минимум 1; значения <= 0 заменяются на DefaultMaxAttempts.
	MaxAttempts int

	// Delay - постоянная задержка между попытками.
	// Значения <= 0 заменяются на DefaultDelay.
	Delay time.Duration

	// RetryIf - фильтр ошибок: false = ошибка не ретраится.
	// nil = ретраятся все ошибки кроме Permanent.
	RetryIf func(error) bool

	// OnAttempt - callback после КАЖДОЙ попытки, до ожидания задержки.
	// err == nil у успешной попытки. final=true когда серия завершена:
	// успех, последняя попытка или неповторяемая ошибка.
	OnAttempt func(attempt, maxAttempts int, err error, final bool)
}

// DefaultConfig возвращает конфигурацию по умолчанию: 3 попытки, 500ms
func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
	}
}

// validate проверяет и устанавливает значения по умолчанию
func (c *Config) validate() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
}

// shouldRetry решает, ретраить ли ошибку
func (c *Config) shouldRetry(err error) bool {
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}
	if c.RetryIf != nil {
		return c.RetryIf(err)
	}
	return true
}

// Do выполняет операцию с повторными попытками.
//
// Возвращает номер попытки, на которой операция завершилась
// (успехом или окончательной неудачей), и последнюю ошибку.
// attempts всегда в диапазоне [1, MaxAttempts].
func Do(ctx context.Context, operation func() error, cfg Config) (attempts int, err error) {
	_, attempts, err = DoWithResult(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, cfg)
	return attempts, err
}

// DoWithResult выполняет операцию с результатом и повторными попытками.
//
// Семантика попыток:
//   - успех на попытке k <= MaxAttempts: attempts == k, err == nil
//   - все попытки неудачны: attempts == MaxAttempts, err == последняя ошибка
//   - отмена контекста во время задержки: attempts == номер последней
//     выполненной попытки, err == последняя ошибка операции
func DoWithResult[T any](ctx context.Context, operation func() (T, error), cfg Config) (T, int, error) {
	cfg.validate()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		// Контекст проверяем до попытки: отправлять ордер
		// по отменённому контексту бессмысленно
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return zero, attempt - 1, lastErr
			}
			return zero, attempt - 1, ctx.Err()
		default:
		}

		result, err := operation()
		if err == nil {
			if cfg.OnAttempt != nil {
				cfg.OnAttempt(attempt, cfg.MaxAttempts, nil, true)
			}
			return result, attempt, nil
		}
		lastErr = err

		final := attempt == cfg.MaxAttempts || !cfg.shouldRetry(err)

		if cfg.OnAttempt != nil {
			cfg.OnAttempt(attempt, cfg.MaxAttempts, err, final)
		}

		if final {
			return zero, attempt, lastErr
		}

		// Постоянная задержка с возможностью отмены
		select {
		case <-time.After(cfg.Delay):
		case <-ctx.Done():
			return zero, attempt, lastErr
		}
	}

	return zero, cfg.MaxAttempts, lastErr
}

// ============================================================
// Классификация ошибок
// ============================================================

// PermanentError оборачивает ошибку, которую ретраить не нужно
// (ошибка валидации, отклонение биржей по бизнес-правилу)
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent помечает ошибку как не подлежащую retry
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent проверяет, помечена ли ошибка как постоянная
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// NotContext - RetryIf фильтр: не ретраить ошибки контекста
// (отмена и таймаут транспортного уровня не лечатся повтором
// в том же контексте)
func NotContext(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
