package service

import (
	"time"

	"deltarb/internal/models"
)

// NotificationRepositoryInterface - контракт хранилища уведомлений.
// Интерфейс объявлен на стороне потребителя, конкретная реализация
// живёт в repository.
type NotificationRepositoryInterface interface {
	Create(n *models.Notification) error
	GetRecent(limit int) ([]*models.Notification, error)
	GetByTypes(types []string, limit int) ([]*models.Notification, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// LedgerInterface - доступ к реестру позиций только для чтения
type LedgerInterface interface {
	All() []*models.PositionState
	Len() int
	Dirty() bool
}

// EngineInterface - диагностика движка исполнения
type EngineInterface interface {
	QueueLen() int
}

// NotificationServiceInterface - контракт для API handlers
type NotificationServiceInterface interface {
	GetNotifications(types []string, limit int) ([]*models.Notification, error)
	Record(n *models.Notification)
	Cleanup(retentionDays int) (int64, error)
}

// StatusServiceInterface - контракт статуса бота для API handlers
type StatusServiceInterface interface {
	Status() *BotStatus
}

// PositionServiceInterface - контракт списка позиций для API handlers
type PositionServiceInterface interface {
	ActivePositions() []*models.PositionState
}
