package service

import (
	"strings"
	"time"

	"deltarb/internal/models"
	"deltarb/pkg/utils"
)

// Лимиты выдачи журнала
const (
	DefaultNotificationLimit = 100
	MaxNotificationLimit     = 500
)

// NotificationService - журнал событий бота. Запись не блокирует
// торговый путь: ошибка хранилища логируется, событие не теряет
// исполнение сделки.
type NotificationService struct {
	repo NotificationRepositoryInterface
}

// NewNotificationService создает сервис уведомлений
func NewNotificationService(repo NotificationRepositoryInterface) *NotificationService {
	return &NotificationService{repo: repo}
}

// GetNotifications возвращает журнал с фильтрацией по типам.
// limit <= 0 заменяется на значение по умолчанию, верхняя граница жёсткая.
func (s *NotificationService) GetNotifications(types []string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if limit > MaxNotificationLimit {
		limit = MaxNotificationLimit
	}

	normalized := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			normalized = append(normalized, t)
		}
	}

	if len(normalized) == 0 {
		return s.repo.GetRecent(limit)
	}
	return s.repo.GetByTypes(normalized, limit)
}

// Record сохраняет событие. Используется как notify-сток исполнителя:
// никогда не возвращает ошибку и не паникует.
func (s *NotificationService) Record(n *models.Notification) {
	if n == nil {
		return
	}
	if err := s.repo.Create(n); err != nil {
		utils.Error("failed to persist notification",
			utils.String("type", n.Type),
			utils.Err(err))
	}
}

// Cleanup удаляет события старше retentionDays
func (s *NotificationService) Cleanup(retentionDays int) (int64, error) {
	if retentionDays < 1 {
		retentionDays = 1
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return s.repo.DeleteOlderThan(cutoff)
}
