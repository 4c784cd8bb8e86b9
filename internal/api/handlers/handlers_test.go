package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deltarb/internal/models"
	"deltarb/internal/service"
)

// ============ PositionHandler Tests ============

func TestPositionHandler_GetPositions(t *testing.T) {
	t.Run("returns empty list", func(t *testing.T) {
		handler := NewPositionHandler(&mockPositionService{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions", nil)
		w := httptest.NewRecorder()

		handler.GetPositions(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}

		var resp GetPositionsResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Total != 0 || len(resp.Positions) != 0 {
			t.Errorf("resp = %+v, want empty", resp)
		}
	})

	t.Run("returns active positions", func(t *testing.T) {
		handler := NewPositionHandler(&mockPositionService{
			positions: []*models.PositionState{samplePosition("pos-1"), samplePosition("pos-2")},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/positions", nil)
		w := httptest.NewRecorder()

		handler.GetPositions(w, req)

		var resp GetPositionsResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Total != 2 {
			t.Errorf("total = %d, want 2", resp.Total)
		}

		p := resp.Positions[0]
		if p.ID != "pos-1" || p.LongExchange != "paradex" || p.ShortExchange != "hyperliquid" {
			t.Errorf("position = %+v", p)
		}
		if p.Direction != "a_over_b" || p.Status != "open" {
			t.Errorf("direction/status = %s/%s", p.Direction, p.Status)
		}
	})
}

// ============ NotificationHandler Tests ============

func TestNotificationHandler_GetNotifications(t *testing.T) {
	t.Run("passes types and limit to service", func(t *testing.T) {
		mockSvc := &mockNotificationService{}
		handler := NewNotificationHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?types=EXPOSURE,ERROR&limit=25", nil)
		w := httptest.NewRecorder()

		handler.GetNotifications(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d", w.Code)
		}
		if len(mockSvc.lastTypes) != 2 || mockSvc.lastTypes[0] != "EXPOSURE" {
			t.Errorf("types = %v", mockSvc.lastTypes)
		}
		if mockSvc.lastLimit != 25 {
			t.Errorf("limit = %d, want 25", mockSvc.lastLimit)
		}
	})

	t.Run("returns notifications", func(t *testing.T) {
		posID := "pos-1"
		mockSvc := &mockNotificationService{notifications: []*models.Notification{
			{
				ID:         1,
				Timestamp:  time.Now(),
				Type:       models.NotificationTypeExposure,
				Severity:   models.SeverityError,
				PositionID: &posID,
				Message:    "unwind failed",
				Meta:       map[string]interface{}{"exchange": "paradex"},
			},
		}}
		handler := NewNotificationHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
		w := httptest.NewRecorder()

		handler.GetNotifications(w, req)

		var resp GetNotificationsResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Total != 1 {
			t.Fatalf("total = %d", resp.Total)
		}
		n := resp.Notifications[0]
		if n.Type != "EXPOSURE" || n.Severity != "error" || n.PositionID == nil || *n.PositionID != "pos-1" {
			t.Errorf("notification = %+v", n)
		}
	})

	t.Run("service error yields 500", func(t *testing.T) {
		handler := NewNotificationHandler(&mockNotificationService{err: errors.New("db down")})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
		w := httptest.NewRecorder()

		handler.GetNotifications(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})
}

func TestNotificationHandler_DeleteNotifications(t *testing.T) {
	t.Run("deletes with default retention", func(t *testing.T) {
		handler := NewNotificationHandler(&mockNotificationService{cleanupN: 12})

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications", nil)
		w := httptest.NewRecorder()

		handler.DeleteNotifications(w, req)

		var resp CleanupResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Deleted != 12 {
			t.Errorf("deleted = %d, want 12", resp.Deleted)
		}
	})

	t.Run("rejects invalid retention", func(t *testing.T) {
		handler := NewNotificationHandler(&mockNotificationService{})

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications?retention_days=-1", nil)
		w := httptest.NewRecorder()

		handler.DeleteNotifications(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

// ============ StatusHandler Tests ============

func TestStatusHandler_GetStatus(t *testing.T) {
	handler := NewStatusHandler(&mockStatusService{status: &service.BotStatus{
		Uptime:        "1h0m0s",
		OpenPositions: 2,
		QueueDepth:    1,
		LedgerDirty:   true,
		Venues: map[string]*service.Venue{
			"hyperliquid": {Connected: true, Balance: 12500},
		},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()

	handler.GetStatus(w, req)

	var resp service.BotStatus
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OpenPositions != 2 || !resp.LedgerDirty {
		t.Errorf("status = %+v", resp)
	}
	if v := resp.Venues["hyperliquid"]; v == nil || !v.Connected {
		t.Errorf("venues = %+v", resp.Venues)
	}
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	Health(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
}
