package handlers

import (
	"net/http"

	"deltarb/internal/service"
)

// StatusHandler отвечает за состояние бота
//
// Endpoints:
// - GET /api/v1/status - снимок состояния (позиции, очередь, площадки)
type StatusHandler struct {
	statusService service.StatusServiceInterface
}

// NewStatusHandler создает новый StatusHandler
func NewStatusHandler(statusService service.StatusServiceInterface) *StatusHandler {
	return &StatusHandler{statusService: statusService}
}

// GetStatus возвращает снимок состояния бота
//
// GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.statusService.Status())
}

// Health - liveness probe, без аутентификации
//
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
