package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"deltarb/internal/service"
)

// NotificationHandler отвечает за журнал событий бота
//
// Endpoints:
// - GET /api/v1/notifications - получение журнала
// - GET /api/v1/notifications?types=EXPOSURE,ERROR&limit=50 - с фильтрацией
// - DELETE /api/v1/notifications?retention_days=30 - очистка старых записей
type NotificationHandler struct {
	notificationService service.NotificationServiceInterface
}

// NewNotificationHandler создает новый NotificationHandler
func NewNotificationHandler(notificationService service.NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// GetNotificationsResponse представляет ответ списка уведомлений
type GetNotificationsResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	Total         int               `json:"total"`
}

// NotificationDTO представляет уведомление в API
type NotificationDTO struct {
	ID         int                    `json:"id"`
	Timestamp  string                 `json:"timestamp"`
	Type       string                 `json:"type"`
	Severity   string                 `json:"severity"`
	PositionID *string                `json:"position_id,omitempty"`
	Message    string                 `json:"message"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// GetNotifications возвращает журнал с фильтрацией
//
// GET /api/v1/notifications
//
// Query параметры:
// - types (string): фильтр по типам через запятую
//   (OPEN, CLOSE, PARTIAL_CLOSE, SECOND_LEG_FAIL, EXPOSURE, SLIPPAGE,
//   MISSED, VERIFY_MISMATCH, RECOVERY, ERROR)
// - limit (int): количество записей (по умолчанию 100, максимум 500)
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	var types []string
	if typesParam := r.URL.Query().Get("types"); typesParam != "" {
		types = strings.Split(typesParam, ",")
	}

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil {
			limit = parsed
		}
	}

	notifications, err := h.notificationService.GetNotifications(types, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get notifications: "+err.Error())
		return
	}

	dtos := make([]NotificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, NotificationDTO{
			ID:         n.ID,
			Timestamp:  n.Timestamp.Format(time.RFC3339),
			Type:       n.Type,
			Severity:   n.Severity,
			PositionID: n.PositionID,
			Message:    n.Message,
			Meta:       n.Meta,
		})
	}

	respondJSON(w, http.StatusOK, GetNotificationsResponse{
		Notifications: dtos,
		Total:         len(dtos),
	})
}

// CleanupResponse представляет результат очистки журнала
type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

// DeleteNotifications удаляет записи старше retention_days
//
// DELETE /api/v1/notifications?retention_days=30
func (h *NotificationHandler) DeleteNotifications(w http.ResponseWriter, r *http.Request) {
	retentionDays := 30
	if param := r.URL.Query().Get("retention_days"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "retention_days must be a positive integer")
			return
		}
		retentionDays = parsed
	}

	deleted, err := h.notificationService.Cleanup(retentionDays)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to cleanup notifications: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, CleanupResponse{Deleted: deleted})
}
