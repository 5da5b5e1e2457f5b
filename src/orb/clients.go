package orb

import (
	"context"
	"time"

	"github.com/KyleKCarter/stock-bot/src/models"
)

// BarFetcher returns bars in ascending timestamp order within the requested
// bounds. An empty result is valid and must be handled by the caller.
type BarFetcher interface {
	FetchBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error)
}

// Broker is the execution venue. FetchPosition returns (nil, nil) when no
// position exists; absence is an expected outcome, not an error.
type Broker interface {
	FetchAccountEquity(ctx context.Context) (float64, error)
	FetchPosition(ctx context.Context, symbol string) (*models.Position, error)
	ListOpenOrders(ctx context.Context, symbol string) ([]models.Order, error)
	SubmitBracketOrder(ctx context.Context, spec models.BracketOrderSpec) (*models.Order, error)
	ClosePosition(ctx context.Context, symbol string) error
	CancelOpenOrders(ctx context.Context, symbol string) error
}

// SessionCalendar answers session-shape questions in exchange time.
type SessionCalendar interface {
	IsTradingDay(t time.Time) bool
	IsPreHoliday(t time.Time) bool
	SessionClose(t time.Time) time.Time
	TradingCutoff(t time.Time) time.Time
}
