package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deltarb/internal/api/handlers"
	"deltarb/internal/api/middleware"
	"deltarb/internal/service"
)

// Dependencies содержит зависимости для API handlers
type Dependencies struct {
	PositionService     service.PositionServiceInterface
	NotificationService service.NotificationServiceInterface
	StatusService       service.StatusServiceInterface

	// OpsTokenHash - bcrypt-хэш токена доступа к /api/v1
	OpsTokenHash string
}

// SetupRoutes настраивает HTTP маршруты ops-поверхности
//
// Структура маршрутов:
//
//	/health  - liveness probe, без аутентификации
//	/metrics - Prometheus метрики, без аутентификации
//	/api/v1/
//	  ├── GET    /positions     - незакрытые позиции
//	  ├── GET    /notifications - журнал событий
//	  ├── DELETE /notifications - очистка журнала
//	  └── GET    /status        - состояние бота и площадок
//
// Middleware: Recovery и Logging глобально, Auth только для /api/v1
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)

	router.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth(deps.OpsTokenHash))

	if deps.PositionService != nil {
		h := handlers.NewPositionHandler(deps.PositionService)
		api.HandleFunc("/positions", h.GetPositions).Methods(http.MethodGet)
	}

	if deps.NotificationService != nil {
		h := handlers.NewNotificationHandler(deps.NotificationService)
		api.HandleFunc("/notifications", h.GetNotifications).Methods(http.MethodGet)
		api.HandleFunc("/notifications", h.DeleteNotifications).Methods(http.MethodDelete)
	}

	if deps.StatusService != nil {
		h := handlers.NewStatusHandler(deps.StatusService)
		api.HandleFunc("/status", h.GetStatus).Methods(http.MethodGet)
	}

	return router
}
