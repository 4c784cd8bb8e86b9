package handlers

import (
	"time"

	"deltarb/internal/models"
	"deltarb/internal/service"
)

// ============ Mock services для handler-тестов ============

type mockPositionService struct {
	positions []*models.PositionState
}

func (m *mockPositionService) ActivePositions() []*models.PositionState {
	return m.positions
}

type mockNotificationService struct {
	notifications []*models.Notification
	err           error

	lastTypes []string
	lastLimit int
	cleanupN  int64
}

func (m *mockNotificationService) GetNotifications(types []string, limit int) ([]*models.Notification, error) {
	m.lastTypes = types
	m.lastLimit = limit
	return m.notifications, m.err
}

func (m *mockNotificationService) Record(n *models.Notification) {
	m.notifications = append(m.notifications, n)
}

func (m *mockNotificationService) Cleanup(retentionDays int) (int64, error) {
	return m.cleanupN, m.err
}

type mockStatusService struct {
	status *service.BotStatus
}

func (m *mockStatusService) Status() *service.BotStatus {
	return m.status
}

func samplePosition(id string) *models.PositionState {
	return &models.PositionState{
		ID:              id,
		LongExchange:    "paradex",
		LongSymbol:      "BTC-USD-PERP",
		ShortExchange:   "hyperliquid",
		ShortSymbol:     "BTC-PERP",
		LongEntryPrice:  42010,
		ShortEntryPrice: 42090,
		Size:            0.5,
		RemainingSize:   0.5,
		Status:          models.PositionStatusOpen,
		DetectedSpread:  0.238,
		CapturedSpread:  0.19,
		SlippageBps:     4.8,
		Direction:       models.DirectionAOverB,
		CreatedAt:       time.Now(),
	}
}
