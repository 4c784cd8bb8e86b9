package models

import "time"

// Notification представляет запись журнала событий
type Notification struct {
	ID         int                    `json:"id" db:"id"`
	Timestamp  time.Time              `json:"timestamp" db:"timestamp"`
	Type       string                 `json:"type" db:"type"`
	Severity   string                 `json:"severity" db:"severity"` // info, warn, error
	PositionID *string                `json:"position_id,omitempty" db:"position_id"`
	Message    string                 `json:"message" db:"message"`
	Meta       map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeOpen           = "OPEN"             // обе ноги открыты
	NotificationTypeClose          = "CLOSE"            // позиция закрыта
	NotificationTypePartialClose   = "PARTIAL_CLOSE"    // частичное закрытие
	NotificationTypeSecondLegFail  = "SECOND_LEG_FAIL"  // вторая нога не открылась, первая раскручена
	NotificationTypeExposure       = "EXPOSURE"         // направленная экспозиция: раскрутка не удалась
	NotificationTypeSlippage       = "SLIPPAGE"         // захваченный спред хуже обнаруженного
	NotificationTypeMissed         = "MISSED"           // возможность отброшена (stale / занятая пара)
	NotificationTypeVerifyMismatch = "VERIFY_MISMATCH"  // сверка позиций нашла расхождение
	NotificationTypeRecovery       = "RECOVERY"         // восстановление состояния после рестарта
	NotificationTypeError          = "ERROR"            // ошибка API/ордера
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
