package eventservices

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyleKCarter/stock-bot/src/models"
)

func TestAlpacaOrderDTOToOrder(t *testing.T) {
	payload := `{
		"id": "parent-1",
		"client_order_id": "orb-AAPL-a1b2c3d4",
		"symbol": "AAPL",
		"side": "buy",
		"qty": "10",
		"type": "stop_limit",
		"status": "new",
		"order_class": "bracket",
		"legs": [
			{"id": "leg-tp", "symbol": "AAPL", "side": "sell", "qty": "10", "type": "limit", "status": "held", "order_class": "bracket"},
			{"id": "leg-sl", "symbol": "AAPL", "side": "sell", "qty": "10", "type": "stop", "status": "held", "order_class": "bracket"}
		]
	}`

	var dto alpacaOrderDTO
	require.NoError(t, json.Unmarshal([]byte(payload), &dto))

	order := dto.toOrder()

	assert.Equal(t, models.OrderTypeStopLimit, order.Type)
	assert.Equal(t, 10, order.Quantity)
	assert.True(t, order.IsWorkingEntry())

	require.Len(t, order.Legs, 2)
	assert.Equal(t, models.OrderTypeLimit, order.Legs[0].Type)
	assert.Equal(t, models.OrderTypeStop, order.Legs[1].Type)

	// once the entry fills, its protective legs go to work but must not
	// count as open entries
	for i := range order.Legs {
		order.Legs[i].Status = models.OrderStatusNew
		assert.False(t, order.Legs[i].IsWorkingEntry())
	}
}
