package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"deltarb/pkg/ratelimit"
)

const (
	hyperliquidBaseURL  = "https://api.hyperliquid.xyz"
	hyperliquidWSPublic = "wss://api.hyperliquid.xyz/ws"
)

// Hyperliquid реализует интерфейс Exchange для Hyperliquid
type Hyperliquid struct {
	apiKey    string
	secretKey string

	httpClient *http.Client
	limiter    *ratelimit.Limiter
	wsManager  *WSManager

	tickerCallbacks map[string]func(*Ticker)
	callbackMu      sync.RWMutex

	connected bool
}

// NewHyperliquid создает новый экземпляр Hyperliquid.
// Использует глобальный HTTP клиент с connection pooling.
// Лимит REST: 20 req/sec, burst 40 - обе ноги уходят одним всплеском.
func NewHyperliquid() *Hyperliquid {
	return &Hyperliquid{
		httpClient:      GetGlobalHTTPClient().GetClient(),
		limiter:         ratelimit.NewLimiter(20, 40),
		tickerCallbacks: make(map[string]func(*Ticker)),
	}
}

// sign создает HMAC-SHA256 подпись запроса
func (h *Hyperliquid) sign(timestamp, payload string) string {
	mac := hmac.New(sha256.New, []byte(h.secretKey))
	mac.Write([]byte(timestamp + payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// doRequest выполняет POST запрос к API Hyperliquid
func (h *Hyperliquid) doRequest(ctx context.Context, endpoint string, payload interface{}, signed bool) ([]byte, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hyperliquidBaseURL+endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if signed {
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		req.Header.Set("HL-API-KEY", h.apiKey)
		req.Header.Set("HL-TIMESTAMP", timestamp)
		req.Header.Set("HL-SIGNATURE", h.sign(timestamp, string(body)))
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, &ExchangeError{
			Exchange: "hyperliquid",
			Message:  "request failed",
			Original: err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ExchangeError{
			Exchange: "hyperliquid",
			Code:     strconv.Itoa(resp.StatusCode),
			Message:  string(respBody),
		}
	}

	return respBody, nil
}

func (h *Hyperliquid) Connect(apiKey, secret string) error {
	h.apiKey = apiKey
	h.secretKey = secret

	// Проверяем подключение через получение баланса
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := h.GetBalance(ctx); err != nil {
		return fmt.Errorf("failed to connect to hyperliquid: %w", err)
	}

	h.connected = true
	return nil
}

func (h *Hyperliquid) GetName() string {
	return "hyperliquid"
}

func (h *Hyperliquid) GetBalance(ctx context.Context) (float64, error) {
	payload := map[string]string{
		"type": "clearinghouseState",
		"user": h.apiKey,
	}

	body, err := h.doRequest(ctx, "/info", payload, true)
	if err != nil {
		return 0, err
	}

	var resp struct {
		MarginSummary struct {
			AccountValue string `json:"accountValue"`
		} `json:"marginSummary"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, err
	}

	equity, _ := strconv.ParseFloat(resp.MarginSummary.AccountValue, 64)
	return equity, nil
}

func (h *Hyperliquid) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	payload := map[string]string{
		"type": "l2Book",
		"coin": coinFromSymbol(symbol),
	}

	body, err := h.doRequest(ctx, "/info", payload, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Levels [][]struct {
			Px string `json:"px"`
			Sz string `json:"sz"`
		} `json:"levels"`
		Time int64 `json:"time"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Levels) < 2 || len(resp.Levels[0]) == 0 || len(resp.Levels[1]) == 0 {
		return nil, fmt.Errorf("empty order book for %s", symbol)
	}

	bid, _ := strconv.ParseFloat(resp.Levels[0][0].Px, 64)
	ask, _ := strconv.ParseFloat(resp.Levels[1][0].Px, 64)

	return &Ticker{
		Symbol:      symbol,
		BidPrice:    bid,
		AskPrice:    ask,
		LastPrice:   (bid + ask) / 2,
		TimestampMs: resp.Time,
	}, nil
}

func (h *Hyperliquid) PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (*Order, error) {
	return h.placeOrder(ctx, symbol, side, qty, false)
}

func (h *Hyperliquid) ClosePosition(ctx context.Context, symbol, side string, qty float64) (*Order, error) {
	// side здесь направление закрываемой позиции, ордер идёт в противоположную сторону
	return h.placeOrder(ctx, symbol, CloseSideFor(side), qty, true)
}

func (h *Hyperliquid) placeOrder(ctx context.Context, symbol, side string, qty float64, reduceOnly bool) (*Order, error) {
	isBuy := side == SideBuy

	payload := map[string]interface{}{
		"type": "order",
		"orders": []map[string]interface{}{
			{
				"coin":       coinFromSymbol(symbol),
				"is_buy":     isBuy,
				"sz":         strconv.FormatFloat(qty, 'f', -1, 64),
				"order_type": map[string]interface{}{"market": map[string]interface{}{}},
				"reduce_only": reduceOnly,
			},
		},
	}

	body, err := h.doRequest(ctx, "/exchange", payload, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status   string `json:"status"`
		Response struct {
			Data struct {
				Statuses []struct {
					Filled struct {
						Oid     int64  `json:"oid"`
						TotalSz string `json:"totalSz"`
						AvgPx   string `json:"avgPx"`
					} `json:"filled"`
					Error string `json:"error"`
				} `json:"statuses"`
			} `json:"data"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "ok" || len(resp.Response.Data.Statuses) == 0 {
		return nil, &ExchangeError{
			Exchange: "hyperliquid",
			Message:  fmt.Sprintf("order rejected: %s", resp.Status),
		}
	}

	st := resp.Response.Data.Statuses[0]
	if st.Error != "" {
		return nil, &ExchangeError{
			Exchange: "hyperliquid",
			Message:  st.Error,
		}
	}

	filledQty, _ := strconv.ParseFloat(st.Filled.TotalSz, 64)
	avgPrice, _ := strconv.ParseFloat(st.Filled.AvgPx, 64)

	status := OrderStatusFilled
	if filledQty < qty {
		status = OrderStatusPartial
	}

	return &Order{
		ID:           strconv.FormatInt(st.Filled.Oid, 10),
		Symbol:       symbol,
		Side:         side,
		Type:         "market",
		Quantity:     qty,
		FilledQty:    filledQty,
		AvgFillPrice: avgPrice,
		Status:       status,
		ReduceOnly:   reduceOnly,
		FilledAtMs:   time.Now().UnixMilli(),
		CreatedAt:    time.Now(),
	}, nil
}

func (h *Hyperliquid) GetPosition(ctx context.Context, symbol string) (*Position, error) {
	positions, err := h.GetOpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range positions {
		if p.Symbol == symbol {
			return p, nil
		}
	}
	return nil, nil
}

func (h *Hyperliquid) GetOpenPositions(ctx context.Context) ([]*Position, error) {
	payload := map[string]string{
		"type": "clearinghouseState",
		"user": h.apiKey,
	}

	body, err := h.doRequest(ctx, "/info", payload, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		AssetPositions []struct {
			Position struct {
				Coin     string `json:"coin"`
				Szi      string `json:"szi"` // signed size, отрицательный = short
				EntryPx  string `json:"entryPx"`
				Leverage struct {
					Value int `json:"value"`
				} `json:"leverage"`
				UnrealizedPnl string `json:"unrealizedPnl"`
			} `json:"position"`
		} `json:"assetPositions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	positions := make([]*Position, 0, len(resp.AssetPositions))
	for _, ap := range resp.AssetPositions {
		szi, _ := strconv.ParseFloat(ap.Position.Szi, 64)
		if szi == 0 {
			continue
		}

		side := SideLong
		size := szi
		if szi < 0 {
			side = SideShort
			size = -szi
		}

		entryPx, _ := strconv.ParseFloat(ap.Position.EntryPx, 64)
		upnl, _ := strconv.ParseFloat(ap.Position.UnrealizedPnl, 64)

		positions = append(positions, &Position{
			Symbol:        ap.Position.Coin + "-PERP",
			Side:          side,
			Size:          size,
			EntryPrice:    entryPx,
			Leverage:      ap.Position.Leverage.Value,
			UnrealizedPnl: upnl,
			UpdatedAt:     time.Now(),
		})
	}

	return positions, nil
}

func (h *Hyperliquid) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	payload := map[string]interface{}{
		"type":     "updateLeverage",
		"coin":     coinFromSymbol(symbol),
		"isCross":  true,
		"leverage": leverage,
	}

	_, err := h.doRequest(ctx, "/exchange", payload, true)
	return err
}

func (h *Hyperliquid) SubscribeTicker(symbol string, callback func(*Ticker)) error {
	h.callbackMu.Lock()
	h.tickerCallbacks[symbol] = callback
	needConnect := h.wsManager == nil
	if needConnect {
		h.wsManager = NewWSManager("hyperliquid", hyperliquidWSPublic, DefaultWSConfig())
		h.wsManager.SetOnMessage(h.handleWSMessage)
	}
	ws := h.wsManager
	h.callbackMu.Unlock()

	if needConnect {
		if err := ws.Connect(); err != nil {
			return err
		}
	}

	sub := map[string]interface{}{
		"method": "subscribe",
		"subscription": map[string]string{
			"type": "bbo",
			"coin": coinFromSymbol(symbol),
		},
	}
	ws.AddSubscription(sub)
	return ws.Send(sub)
}

// handleWSMessage разбирает кадр канала bbo и вызывает callback подписчика
func (h *Hyperliquid) handleWSMessage(message []byte) {
	var frame struct {
		Channel string `json:"channel"`
		Data    struct {
			Coin string `json:"coin"`
			Time int64  `json:"time"`
			Bbo  []struct {
				Px string `json:"px"`
				Sz string `json:"sz"`
			} `json:"bbo"`
		} `json:"data"`
	}
	if err := json.Unmarshal(message, &frame); err != nil {
		return
	}
	if frame.Channel != "bbo" || len(frame.Data.Bbo) < 2 {
		return
	}

	bid, _ := strconv.ParseFloat(frame.Data.Bbo[0].Px, 64)
	ask, _ := strconv.ParseFloat(frame.Data.Bbo[1].Px, 64)
	symbol := frame.Data.Coin + "-PERP"

	ticker := &Ticker{
		Symbol:      symbol,
		BidPrice:    bid,
		AskPrice:    ask,
		LastPrice:   (bid + ask) / 2,
		TimestampMs: frame.Data.Time,
	}

	h.callbackMu.RLock()
	callback := h.tickerCallbacks[symbol]
	h.callbackMu.RUnlock()

	if callback != nil {
		callback(ticker)
	}
}

func (h *Hyperliquid) Close() error {
	h.callbackMu.Lock()
	ws := h.wsManager
	h.wsManager = nil
	h.callbackMu.Unlock()

	if ws != nil {
		return ws.Close()
	}
	return nil
}

// coinFromSymbol извлекает базовый актив из символа: BTC-PERP -> BTC
func coinFromSymbol(symbol string) string {
	if i := strings.Index(symbol, "-"); i > 0 {
		return symbol[:i]
	}
	return symbol
}
