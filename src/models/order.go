package models

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "new"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
)

// BracketOrderSpec describes an entry order paired with a protective stop
// and a profit target, submitted atomically to the execution venue.
type BracketOrderSpec struct {
	Symbol        string
	Side          OrderSide
	Quantity      int
	Type          OrderType
	StopPrice     float64
	LimitPrice    float64
	StopLoss      float64
	TakeProfit    float64
	TimeInForce   string
	ClientOrderID string
}

// Order is the venue's view of a working or completed order.
type Order struct {
	ID            string
	ClientOrderID string
	Symbol        string
	Side          OrderSide
	Type          OrderType
	Status        OrderStatus
	Quantity      int
	OrderClass    string
	Legs          []Order
}

// IsWorkingEntry reports whether the order counts as an open entry order.
// Stop-loss and take-profit legs do not: once the entry fills they surface
// as bare stop and limit orders under the bracket class, with no legs of
// their own.
func (o Order) IsWorkingEntry() bool {
	if o.Status != OrderStatusNew && o.Status != OrderStatusPartiallyFilled {
		return false
	}
	if o.OrderClass != "" && o.OrderClass != "bracket" {
		return false
	}
	if o.OrderClass == "bracket" && len(o.Legs) == 0 &&
		(o.Type == OrderTypeStop || o.Type == OrderTypeLimit) {
		return false
	}
	return true
}

// Position is an open holding reported by the execution venue.
type Position struct {
	Symbol        string
	Quantity      float64
	AvgEntryPrice float64
}
