package eventservices

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	polygonmodels "github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"

	"github.com/KyleKCarter/stock-bot/src/models"
)

// PolygonClient is the alternative market-data backend. It implements the
// BarFetcher interface so the engine can run off Polygon aggregates when
// the brokerage data feed is degraded or rate limited.
type PolygonClient struct {
	Client *polygon.Client
}

func NewPolygonClient(apiKey string) *PolygonClient {
	return &PolygonClient{
		Client: polygon.New(apiKey),
	}
}

// FetchBars returns ascending aggregates for symbol in [start, end].
// Timeframe follows the brokerage spelling, e.g. "1Min" or "5Min".
func (c *PolygonClient) FetchBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	multiplier, err := parseTimeframeMinutes(timeframe)
	if err != nil {
		return nil, fmt.Errorf("FetchBars: %s: %w", symbol, err)
	}

	log.Debugf("fetching polygon aggregates for %s %s", symbol, timeframe)

	params := polygonmodels.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   polygonmodels.Minute,
		From:       polygonmodels.Millis(start),
		To:         polygonmodels.Millis(end),
	}.WithOrder(polygonmodels.Asc).WithAdjusted(true)

	iter := c.Client.ListAggs(ctx, params)

	var bars []models.Bar
	for iter.Next() {
		item := iter.Item()
		bars = append(bars, models.Bar{
			Timestamp: time.Time(item.Timestamp),
			Open:      item.Open,
			High:      item.High,
			Low:       item.Low,
			Close:     item.Close,
			Volume:    item.Volume,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("FetchBars: %s: polygon iterator: %w", symbol, err)
	}

	return bars, nil
}

func parseTimeframeMinutes(timeframe string) (int, error) {
	raw := strings.TrimSuffix(timeframe, "Min")
	if raw == timeframe {
		return 0, fmt.Errorf("parseTimeframeMinutes: unsupported timeframe %q", timeframe)
	}

	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("parseTimeframeMinutes: unsupported timeframe %q", timeframe)
	}

	return minutes, nil
}
