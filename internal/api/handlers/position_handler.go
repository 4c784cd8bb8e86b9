package handlers

import (
	"net/http"
	"time"

	"deltarb/internal/models"
	"deltarb/internal/service"
)

// PositionHandler отвечает за просмотр позиций
//
// Endpoints:
// - GET /api/v1/positions - незакрытые позиции
type PositionHandler struct {
	positionService service.PositionServiceInterface
}

// NewPositionHandler создает новый PositionHandler
func NewPositionHandler(positionService service.PositionServiceInterface) *PositionHandler {
	return &PositionHandler{positionService: positionService}
}

// GetPositionsResponse представляет ответ списка позиций
type GetPositionsResponse struct {
	Positions []PositionDTO `json:"positions"`
	Total     int           `json:"total"`
}

// PositionDTO представляет позицию в API
type PositionDTO struct {
	ID              string  `json:"id"`
	LongExchange    string  `json:"long_exchange"`
	LongSymbol      string  `json:"long_symbol"`
	ShortExchange   string  `json:"short_exchange"`
	ShortSymbol     string  `json:"short_symbol"`
	LongEntryPrice  float64 `json:"long_entry_price"`
	ShortEntryPrice float64 `json:"short_entry_price"`
	Size            float64 `json:"size"`
	RemainingSize   float64 `json:"remaining_size"`
	Status          string  `json:"status"`
	DetectedSpread  float64 `json:"detected_spread"`
	CapturedSpread  float64 `json:"captured_spread"`
	SlippageBps     float64 `json:"slippage_bps"`
	Direction       string  `json:"direction"`
	CreatedAt       string  `json:"created_at"`
}

// GetPositions возвращает незакрытые позиции
//
// GET /api/v1/positions
//
// HTTP коды:
// - 200 OK: массив позиций (возможно пустой)
func (h *PositionHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.positionService.ActivePositions()

	dtos := make([]PositionDTO, 0, len(positions))
	for _, p := range positions {
		dtos = append(dtos, toPositionDTO(p))
	}

	respondJSON(w, http.StatusOK, GetPositionsResponse{
		Positions: dtos,
		Total:     len(dtos),
	})
}

func toPositionDTO(p *models.PositionState) PositionDTO {
	return PositionDTO{
		ID:              p.ID,
		LongExchange:    p.LongExchange,
		LongSymbol:      p.LongSymbol,
		ShortExchange:   p.ShortExchange,
		ShortSymbol:     p.ShortSymbol,
		LongEntryPrice:  p.LongEntryPrice,
		ShortEntryPrice: p.ShortEntryPrice,
		Size:            p.Size,
		RemainingSize:   p.RemainingSize,
		Status:          p.Status,
		DetectedSpread:  p.DetectedSpread,
		CapturedSpread:  p.CapturedSpread,
		SlippageBps:     p.SlippageBps,
		Direction:       string(p.Direction),
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
}
