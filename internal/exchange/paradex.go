package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"deltarb/pkg/ratelimit"
)

const (
	paradexBaseURL  = "https://api.prod.paradex.trade/v1"
	paradexWSPublic = "wss://ws.api.prod.paradex.trade/v1"
)

// Paradex реализует интерфейс Exchange для Paradex
type Paradex struct {
	apiKey    string
	secretKey string

	httpClient *http.Client
	limiter    *ratelimit.Limiter
	wsManager  *WSManager

	tickerCallbacks map[string]func(*Ticker)
	callbackMu      sync.RWMutex

	connected bool
}

// NewParadex создает новый экземпляр Paradex.
// Лимит REST консервативный: 10 req/sec, burst 20.
func NewParadex() *Paradex {
	return &Paradex{
		httpClient:      GetGlobalHTTPClient().GetClient(),
		limiter:         ratelimit.NewLimiter(10, 20),
		tickerCallbacks: make(map[string]func(*Ticker)),
	}
}

func (p *Paradex) sign(timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(p.secretKey))
	mac.Write([]byte(timestamp + method + path + body))
	return hex.EncodeToString(mac.Sum(nil))
}

// doRequest выполняет HTTP запрос к API Paradex
func (p *Paradex) doRequest(ctx context.Context, method, endpoint string, params map[string]string, bodyPayload interface{}, signed bool) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := paradexBaseURL + endpoint
	var reqBody string

	if method == http.MethodGet && len(params) > 0 {
		query := url.Values{}
		for k, v := range params {
			query.Set(k, v)
		}
		reqURL += "?" + query.Encode()
	} else if bodyPayload != nil {
		jsonBytes, err := json.Marshal(bodyPayload)
		if err != nil {
			return nil, err
		}
		reqBody = string(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, strings.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if signed {
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		req.Header.Set("PARADEX-API-KEY", p.apiKey)
		req.Header.Set("PARADEX-TIMESTAMP", timestamp)
		req.Header.Set("PARADEX-SIGNATURE", p.sign(timestamp, method, endpoint, reqBody))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ExchangeError{
			Exchange: "paradex",
			Message:  "request failed",
			Original: err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		json.Unmarshal(respBody, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = string(respBody)
		}
		return nil, &ExchangeError{
			Exchange: "paradex",
			Code:     apiErr.Error,
			Message:  msg,
		}
	}

	return respBody, nil
}

func (p *Paradex) Connect(apiKey, secret string) error {
	p.apiKey = apiKey
	p.secretKey = secret

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := p.GetBalance(ctx); err != nil {
		return fmt.Errorf("failed to connect to paradex: %w", err)
	}

	p.connected = true
	return nil
}

func (p *Paradex) GetName() string {
	return "paradex"
}

func (p *Paradex) GetBalance(ctx context.Context) (float64, error) {
	body, err := p.doRequest(ctx, http.MethodGet, "/account", nil, nil, true)
	if err != nil {
		return 0, err
	}

	var resp struct {
		AccountValue string `json:"account_value"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, err
	}

	equity, _ := strconv.ParseFloat(resp.AccountValue, 64)
	return equity, nil
}

func (p *Paradex) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	params := map[string]string{"market": symbol}

	body, err := p.doRequest(ctx, http.MethodGet, "/bbo/"+symbol, params, nil, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Market    string `json:"market"`
		Bid       string `json:"bid"`
		Ask       string `json:"ask"`
		LastPrice string `json:"last_traded_price"`
		SeqNo     int64  `json:"seq_no"`
		Time      int64  `json:"last_updated_at"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	bid, _ := strconv.ParseFloat(resp.Bid, 64)
	ask, _ := strconv.ParseFloat(resp.Ask, 64)
	last, _ := strconv.ParseFloat(resp.LastPrice, 64)

	return &Ticker{
		Symbol:      symbol,
		BidPrice:    bid,
		AskPrice:    ask,
		LastPrice:   last,
		TimestampMs: resp.Time,
	}, nil
}

func (p *Paradex) PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (*Order, error) {
	return p.placeOrder(ctx, symbol, side, qty, false)
}

func (p *Paradex) ClosePosition(ctx context.Context, symbol, side string, qty float64) (*Order, error) {
	return p.placeOrder(ctx, symbol, CloseSideFor(side), qty, true)
}

func (p *Paradex) placeOrder(ctx context.Context, symbol, side string, qty float64, reduceOnly bool) (*Order, error) {
	paradexSide := "BUY"
	if side == SideSell {
		paradexSide = "SELL"
	}

	payload := map[string]interface{}{
		"market": symbol,
		"side":   paradexSide,
		"type":   "MARKET",
		"size":   strconv.FormatFloat(qty, 'f', -1, 64),
	}
	if reduceOnly {
		payload["flags"] = []string{"REDUCE_ONLY"}
	}

	body, err := p.doRequest(ctx, http.MethodPost, "/orders", nil, payload, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		Size          string `json:"size"`
		RemainingSize string `json:"remaining_size"`
		AvgFillPrice  string `json:"average_fill_price"`
		CreatedAt     int64  `json:"created_at"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	size, _ := strconv.ParseFloat(resp.Size, 64)
	remaining, _ := strconv.ParseFloat(resp.RemainingSize, 64)
	avgPrice, _ := strconv.ParseFloat(resp.AvgFillPrice, 64)
	filledQty := size - remaining

	status := OrderStatusFilled
	switch {
	case resp.Status == "REJECTED":
		return nil, &ExchangeError{
			Exchange: "paradex",
			Message:  "order rejected",
		}
	case remaining > 0:
		status = OrderStatusPartial
	}

	return &Order{
		ID:           resp.ID,
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

func (p *Paradex) GetPosition(ctx context.Context, symbol string) (*Position, error) {
	positions, err := p.GetOpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	for _, pos := range positions {
		if pos.Symbol == symbol {
			return pos, nil
		}
	}
	return nil, nil
}

func (p *Paradex) GetOpenPositions(ctx context.Context) ([]*Position, error) {
	body, err := p.doRequest(ctx, http.MethodGet, "/positions", nil, nil, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []struct {
			Market        string `json:"market"`
			Side          string `json:"side"` // LONG, SHORT
			Size          string `json:"size"`
			AvgEntryPrice string `json:"average_entry_price"`
			UnrealizedPnl string `json:"unrealized_pnl"`
			Status        string `json:"status"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	positions := make([]*Position, 0, len(resp.Results))
	for _, r := range resp.Results {
		size, _ := strconv.ParseFloat(r.Size, 64)
		if size == 0 || r.Status == "CLOSED" {
			continue
		}

		side := SideLong
		if r.Side == "SHORT" {
			side = SideShort
		}

		entryPx, _ := strconv.ParseFloat(r.AvgEntryPrice, 64)
		upnl, _ := strconv.ParseFloat(r.UnrealizedPnl, 64)

		positions = append(positions, &Position{
			Symbol:        r.Market,
			Side:          side,
			Size:          size,
			EntryPrice:    entryPx,
			UnrealizedPnl: upnl,
			UpdatedAt:     time.Now(),
		})
	}

	return positions, nil
}

func (p *Paradex) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	payload := map[string]interface{}{
		"leverage": leverage,
	}

	_, err := p.doRequest(ctx, http.MethodPost, "/account/margin/"+symbol, nil, payload, true)
	return err
}

func (p *Paradex) SubscribeTicker(symbol string, callback func(*Ticker)) error {
	p.callbackMu.Lock()
	p.tickerCallbacks[symbol] = callback
	needConnect := p.wsManager == nil
	if needConnect {
		p.wsManager = NewWSManager("paradex", paradexWSPublic, DefaultWSConfig())
		p.wsManager.SetOnMessage(p.handleWSMessage)
	}
	ws := p.wsManager
	p.callbackMu.Unlock()

	if needConnect {
		if err := ws.Connect(); err != nil {
			return err
		}
	}

	sub := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "subscribe",
		"params": map[string]string{
			"channel": "bbo." + symbol,
		},
	}
	ws.AddSubscription(sub)
	return ws.Send(sub)
}

func (p *Paradex) handleWSMessage(message []byte) {
	var frame struct {
		Params struct {
			Channel string `json:"channel"`
			Data    struct {
				Market string `json:"market"`
				Bid    string `json:"bid"`
				Ask    string `json:"ask"`
				Time   int64  `json:"last_updated_at"`
			} `json:"data"`
		} `json:"params"`
	}
	if err := json.Unmarshal(message, &frame); err != nil {
		return
	}
	if !strings.HasPrefix(frame.Params.Channel, "bbo.") {
		return
	}

	bid, _ := strconv.ParseFloat(frame.Params.Data.Bid, 64)
	ask, _ := strconv.ParseFloat(frame.Params.Data.Ask, 64)
	symbol := frame.Params.Data.Market

	ticker := &Ticker{
		Symbol:      symbol,
		BidPrice:    bid,
		AskPrice:    ask,
		LastPrice:   (bid + ask) / 2,
		TimestampMs: frame.Params.Data.Time,
	}

	p.callbackMu.RLock()
	callback := p.tickerCallbacks[symbol]
	p.callbackMu.RUnlock()

	if callback != nil {
		callback(ticker)
	}
}

func (p *Paradex) Close() error {
	p.callbackMu.Lock()
	ws := p.wsManager
	p.wsManager = nil
	p.callbackMu.Unlock()

	if ws != nil {
		return ws.Close()
	}
	return nil
}
