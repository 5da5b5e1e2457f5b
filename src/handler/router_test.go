package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyleKCarter/stock-bot/src/models"
	"github.com/KyleKCarter/stock-bot/src/orb"
	"github.com/KyleKCarter/stock-bot/src/utils"
)

type stubCalendar struct{}

func (stubCalendar) IsTradingDay(t time.Time) bool       { return true }
func (stubCalendar) IsPreHoliday(t time.Time) bool       { return false }
func (stubCalendar) SessionClose(t time.Time) time.Time  { return utils.AtTimeOfDay(t, 16, 0) }
func (stubCalendar) TradingCutoff(t time.Time) time.Time { return utils.AtTimeOfDay(t, 14, 0) }

type stubFetcher struct{}

func (stubFetcher) FetchBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	return nil, nil
}

type stubBroker struct {
	mu     sync.Mutex
	closed []string
}

func (b *stubBroker) FetchAccountEquity(ctx context.Context) (float64, error) { return 100000, nil }

func (b *stubBroker) FetchPosition(ctx context.Context, symbol string) (*models.Position, error) {
	return nil, nil
}

func (b *stubBroker) ListOpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	return nil, nil
}

func (b *stubBroker) SubmitBracketOrder(ctx context.Context, spec models.BracketOrderSpec) (*models.Order, error) {
	return &models.Order{ID: "o1"}, nil
}

func (b *stubBroker) ClosePosition(ctx context.Context, symbol string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, symbol)
	return nil
}

func (b *stubBroker) CancelOpenOrders(ctx context.Context, symbol string) error { return nil }

func fixture() (*ControlPlane, *stubBroker, *orb.Coordinator) {
	broker := &stubBroker{}
	coordinator := orb.NewCoordinator(stubFetcher{}, broker, stubCalendar{}, []string{"AAPL", "TSLA"}, orb.DefaultParams())
	return NewControlPlane(coordinator, stubCalendar{}), broker, coordinator
}

func TestSellAllPositions(t *testing.T) {
	plane, broker, coordinator := fixture()

	state := coordinator.Store().Get("AAPL")
	state.InPosition = true

	req := httptest.NewRequest(http.MethodPost, "/api/sell-all-positions", nil)
	rec := httptest.NewRecorder()

	plane.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, broker.closed, 2)
	assert.False(t, state.InPosition)
}

func TestSellPosition(t *testing.T) {
	plane, broker, coordinator := fixture()

	state := coordinator.Store().Get("AAPL")
	state.InPosition = true
	state.PendingRetest = &models.PendingRetest{Direction: models.TradeDirectionLong, BreakoutLevel: 102}

	body := strings.NewReader(`{"symbol":"AAPL"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sell-position", body)
	rec := httptest.NewRecorder()

	plane.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AAPL"}, broker.closed)
	assert.False(t, state.InPosition)
	assert.Nil(t, state.PendingRetest)
}

func TestSellPositionRequiresSymbol(t *testing.T) {
	plane, broker, _ := fixture()

	req := httptest.NewRequest(http.MethodPost, "/api/sell-position", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	plane.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, broker.closed)
}

func TestStatusEndpoint(t *testing.T) {
	plane, _, coordinator := fixture()

	state := coordinator.Store().Get("AAPL")
	state.ORBHigh = 102.0
	state.ORBLow = 100.0

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()

	plane.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "AAPL")
	assert.Contains(t, rec.Body.String(), "102.00")
}

func TestHealth(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	midSession := time.Date(2026, 3, 10, 11, 0, 0, 0, loc)

	t.Run("no sweep yet is informational", func(t *testing.T) {
		plane, _, _ := fixture()
		plane.now = func() time.Time { return midSession }

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		plane.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "no sweep yet")
	})

	t.Run("stale sweep during market hours degrades", func(t *testing.T) {
		plane, _, coordinator := fixture()
		plane.now = func() time.Time { return midSession }

		coordinator.Sweep(context.Background(), midSession.Add(-10*time.Minute))

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		plane.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "degraded")
	})
}
