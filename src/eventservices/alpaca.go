package eventservices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/KyleKCarter/stock-bot/src/models"
)

// AlpacaClient talks to the Alpaca trading and market-data REST APIs. It
// implements both the Broker and BarFetcher collaborator interfaces.
type AlpacaClient struct {
	TradingURL string
	DataURL    string
	APIKey     string
	APISecret  string
}

func NewAlpacaClientFromEnv() (*AlpacaClient, error) {
	apiKey := os.Getenv("ALPACA_API_KEY_ID")
	apiSecret := os.Getenv("ALPACA_API_SECRET_KEY")
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("NewAlpacaClientFromEnv: ALPACA_API_KEY_ID and ALPACA_API_SECRET_KEY must be set")
	}

	tradingURL := os.Getenv("ALPACA_TRADING_URL")
	if tradingURL == "" {
		tradingURL = "https://paper-api.alpaca.markets"
	}

	dataURL := os.Getenv("ALPACA_DATA_URL")
	if dataURL == "" {
		dataURL = "https://data.alpaca.markets"
	}

	return &AlpacaClient{
		TradingURL: tradingURL,
		DataURL:    dataURL,
		APIKey:     apiKey,
		APISecret:  apiSecret,
	}, nil
}

func (c *AlpacaClient) do(ctx context.Context, method, rawURL string, payload any) (*http.Response, error) {
	client := http.Client{
		Timeout: 10 * time.Second,
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("AlpacaClient.do: failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("AlpacaClient.do: failed to create request: %w", err)
	}

	req.Header.Add("Accept", "application/json")
	req.Header.Add("APCA-API-KEY-ID", c.APIKey)
	req.Header.Add("APCA-API-SECRET-KEY", c.APISecret)
	if payload != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("AlpacaClient.do: request failed: %w", err)
	}

	return res, nil
}

type alpacaBarDTO struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
}

type alpacaBarsResponseDTO struct {
	Bars          []alpacaBarDTO `json:"bars"`
	NextPageToken *string        `json:"next_page_token"`
}

// FetchBars returns ascending bars for symbol in [start, end] at the given
// timeframe, e.g. "1Min" or "5Min".
func (c *AlpacaClient) FetchBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	params := url.Values{}
	params.Set("timeframe", timeframe)
	params.Set("start", start.UTC().Format(time.RFC3339))
	params.Set("end", end.UTC().Format(time.RFC3339))
	params.Set("adjustment", "raw")
	params.Set("feed", "iex")
	params.Set("limit", "1000")

	rawURL := fmt.Sprintf("%s/v2/stocks/%s/bars?%s", c.DataURL, symbol, params.Encode())

	var bars []models.Bar
	err := WithRetry(ctx, fmt.Sprintf("FetchBars %s", symbol), func() error {
		res, err := c.do(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(res.Body)
			return &HTTPStatusError{StatusCode: res.StatusCode, Status: res.Status, Body: string(data)}
		}

		var dto alpacaBarsResponseDTO
		if err := json.NewDecoder(res.Body).Decode(&dto); err != nil {
			return fmt.Errorf("FetchBars: failed to decode json: %w", err)
		}

		bars = bars[:0]
		for _, b := range dto.Bars {
			bars = append(bars, models.Bar{
				Timestamp: b.Timestamp,
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    b.Volume,
			})
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("FetchBars: %s: %w", symbol, err)
	}

	return bars, nil
}

type alpacaAccountDTO struct {
	Equity string `json:"equity"`
	Status string `json:"status"`
}

// FetchAccountEquity returns the current account equity in dollars.
func (c *AlpacaClient) FetchAccountEquity(ctx context.Context) (float64, error) {
	rawURL := fmt.Sprintf("%s/v2/account", c.TradingURL)

	var equity float64
	err := WithRetry(ctx, "FetchAccountEquity", func() error {
		res, err := c.do(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(res.Body)
			return &HTTPStatusError{StatusCode: res.StatusCode, Status: res.Status, Body: string(data)}
		}

		var dto alpacaAccountDTO
		if err := json.NewDecoder(res.Body).Decode(&dto); err != nil {
			return fmt.Errorf("FetchAccountEquity: failed to decode json: %w", err)
		}

		equity, err = strconv.ParseFloat(dto.Equity, 64)
		if err != nil {
			return fmt.Errorf("FetchAccountEquity: failed to parse equity %q: %w", dto.Equity, err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return equity, nil
}

type alpacaPositionDTO struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
}

// FetchPosition returns the open position for symbol, or nil when there is
// none. A 404 means no position and is not an error.
func (c *AlpacaClient) FetchPosition(ctx context.Context, symbol string) (*models.Position, error) {
	rawURL := fmt.Sprintf("%s/v2/positions/%s", c.TradingURL, symbol)

	var position *models.Position
	err := WithRetry(ctx, fmt.Sprintf("FetchPosition %s", symbol), func() error {
		res, err := c.do(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode == http.StatusNotFound {
			position = nil
			return nil
		}

		if res.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(res.Body)
			return &HTTPStatusError{StatusCode: res.StatusCode, Status: res.Status, Body: string(data)}
		}

		var dto alpacaPositionDTO
		if err := json.NewDecoder(res.Body).Decode(&dto); err != nil {
			return fmt.Errorf("FetchPosition: failed to decode json: %w", err)
		}

		qty, err := strconv.ParseFloat(dto.Qty, 64)
		if err != nil {
			return fmt.Errorf("FetchPosition: failed to parse qty %q: %w", dto.Qty, err)
		}

		avgEntry, err := strconv.ParseFloat(dto.AvgEntryPrice, 64)
		if err != nil {
			return fmt.Errorf("FetchPosition: failed to parse avg_entry_price %q: %w", dto.AvgEntryPrice, err)
		}

		position = &models.Position{
			Symbol:        dto.Symbol,
			Quantity:      qty,
			AvgEntryPrice: avgEntry,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return position, nil
}

type alpacaOrderDTO struct {
	ID            string           `json:"id"`
	ClientOrderID string           `json:"client_order_id"`
	Symbol        string           `json:"symbol"`
	Side          string           `json:"side"`
	Qty           string           `json:"qty"`
	Type          string           `json:"type"`
	Status        string           `json:"status"`
	OrderClass    string           `json:"order_class"`
	Legs          []alpacaOrderDTO `json:"legs"`
}

func (dto alpacaOrderDTO) toOrder() models.Order {
	qty, _ := strconv.ParseFloat(dto.Qty, 64)

	order := models.Order{
		ID:            dto.ID,
		ClientOrderID: dto.ClientOrderID,
		Symbol:        dto.Symbol,
		Side:          models.OrderSide(dto.Side),
		Type:          models.OrderType(dto.Type),
		Quantity:      int(qty),
		Status:        models.OrderStatus(dto.Status),
		OrderClass:    dto.OrderClass,
	}

	for _, leg := range dto.Legs {
		order.Legs = append(order.Legs, leg.toOrder())
	}

	return order
}

// ListOpenOrders returns the open orders for symbol.
func (c *AlpacaClient) ListOpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	params := url.Values{}
	params.Set("status", "open")
	params.Set("symbols", symbol)
	params.Set("limit", "100")

	rawURL := fmt.Sprintf("%s/v2/orders?%s", c.TradingURL, params.Encode())

	var orders []models.Order
	err := WithRetry(ctx, fmt.Sprintf("ListOpenOrders %s", symbol), func() error {
		res, err := c.do(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(res.Body)
			return &HTTPStatusError{StatusCode: res.StatusCode, Status: res.Status, Body: string(data)}
		}

		var dtos []alpacaOrderDTO
		if err := json.NewDecoder(res.Body).Decode(&dtos); err != nil {
			return fmt.Errorf("ListOpenOrders: failed to decode json: %w", err)
		}

		orders = orders[:0]
		for _, dto := range dtos {
			orders = append(orders, dto.toOrder())
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return orders, nil
}

type alpacaBracketLegDTO struct {
	StopPrice  string `json:"stop_price,omitempty"`
	LimitPrice string `json:"limit_price,omitempty"`
}

type alpacaOrderRequestDTO struct {
	Symbol        string               `json:"symbol"`
	Qty           string               `json:"qty"`
	Side          string               `json:"side"`
	Type          string               `json:"type"`
	TimeInForce   string               `json:"time_in_force"`
	OrderClass    string               `json:"order_class,omitempty"`
	StopPrice     string               `json:"stop_price,omitempty"`
	LimitPrice    string               `json:"limit_price,omitempty"`
	ClientOrderID string               `json:"client_order_id,omitempty"`
	TakeProfit    *alpacaBracketLegDTO `json:"take_profit,omitempty"`
	StopLoss      *alpacaBracketLegDTO `json:"stop_loss,omitempty"`
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// SubmitBracketOrder submits a bracket entry with stop-loss and take-profit
// legs. Submission is never retried: a timeout after the server accepted the
// order would double-submit.
func (c *AlpacaClient) SubmitBracketOrder(ctx context.Context, spec models.BracketOrderSpec) (*models.Order, error) {
	dto := alpacaOrderRequestDTO{
		Symbol:        spec.Symbol,
		Qty:           strconv.Itoa(spec.Quantity),
		Side:          string(spec.Side),
		Type:          string(spec.Type),
		TimeInForce:   spec.TimeInForce,
		OrderClass:    "bracket",
		ClientOrderID: spec.ClientOrderID,
		TakeProfit:    &alpacaBracketLegDTO{LimitPrice: formatPrice(spec.TakeProfit)},
		StopLoss:      &alpacaBracketLegDTO{StopPrice: formatPrice(spec.StopLoss)},
	}

	if spec.Type == models.OrderTypeStopLimit {
		dto.StopPrice = formatPrice(spec.StopPrice)
		dto.LimitPrice = formatPrice(spec.LimitPrice)
	} else if spec.Type == models.OrderTypeLimit {
		dto.LimitPrice = formatPrice(spec.LimitPrice)
	}

	rawURL := fmt.Sprintf("%s/v2/orders", c.TradingURL)

	res, err := c.do(ctx, http.MethodPost, rawURL, dto)
	if err != nil {
		return nil, fmt.Errorf("SubmitBracketOrder: %s: %w", spec.Symbol, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("SubmitBracketOrder: %s: %w", spec.Symbol,
			&HTTPStatusError{StatusCode: res.StatusCode, Status: res.Status, Body: string(data)})
	}

	var orderDTO alpacaOrderDTO
	if err := json.NewDecoder(res.Body).Decode(&orderDTO); err != nil {
		return nil, fmt.Errorf("SubmitBracketOrder: failed to decode json: %w", err)
	}

	order := orderDTO.toOrder()

	log.WithFields(log.Fields{
		"symbol":          order.Symbol,
		"side":            order.Side,
		"qty":             order.Quantity,
		"client_order_id": order.ClientOrderID,
	}).Info("SubmitBracketOrder: order accepted")

	return &order, nil
}

// ClosePosition liquidates the entire position for symbol at market. A 404
// means there was nothing to close.
func (c *AlpacaClient) ClosePosition(ctx context.Context, symbol string) error {
	rawURL := fmt.Sprintf("%s/v2/positions/%s", c.TradingURL, symbol)

	res, err := c.do(ctx, http.MethodDelete, rawURL, nil)
	if err != nil {
		return fmt.Errorf("ClosePosition: %s: %w", symbol, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusMultiStatus {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("ClosePosition: %s: %w", symbol,
			&HTTPStatusError{StatusCode: res.StatusCode, Status: res.Status, Body: string(data)})
	}

	return nil
}

// CancelOpenOrders cancels all open orders for symbol.
func (c *AlpacaClient) CancelOpenOrders(ctx context.Context, symbol string) error {
	orders, err := c.ListOpenOrders(ctx, symbol)
	if err != nil {
		return fmt.Errorf("CancelOpenOrders: %s: %w", symbol, err)
	}

	for _, order := range orders {
		rawURL := fmt.Sprintf("%s/v2/orders/%s", c.TradingURL, order.ID)

		res, err := c.do(ctx, http.MethodDelete, rawURL, nil)
		if err != nil {
			return fmt.Errorf("CancelOpenOrders: %s: %w", symbol, err)
		}
		res.Body.Close()

		if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusNotFound {
			return fmt.Errorf("CancelOpenOrders: %s: unexpected status %s", symbol, res.Status)
		}
	}

	return nil
}
