package orb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/KyleKCarter/stock-bot/src/eventpubsub"
	"github.com/KyleKCarter/stock-bot/src/models"
)

// OrderExecutor turns an approved entry into a bracket order. It owns the
// last line of duplicate-entry defense: position and open-order checks run
// immediately before submission, against fresh brokerage state.
type OrderExecutor struct {
	broker   Broker
	risk     *RiskEngine
	counters *DailyCounters
	params   StrategyParams
}

func NewOrderExecutor(broker Broker, counters *DailyCounters, params StrategyParams) *OrderExecutor {
	return &OrderExecutor{
		broker:   broker,
		risk:     NewRiskEngine(params),
		counters: counters,
		params:   params,
	}
}

// EntryRequest describes one approved entry attempt.
type EntryRequest struct {
	State       *models.SymbolState
	Direction   models.TradeDirection
	Entry       float64
	ATR         float64
	IsImmediate bool
	TradeType   models.TradeType
	// Market requests a plain market entry instead of the stop-limit shape,
	// used by the retest-timeout fallback.
	Market bool
}

// Execute sizes and submits the entry. A nil error with no state change
// means the attempt was suppressed by a guard, not that it failed.
func (e *OrderExecutor) Execute(ctx context.Context, req EntryRequest, now time.Time) error {
	state := req.State

	if CooldownActive(state, now, e.params.TradeCooldown) {
		log.Debugf("Execute: %s: cooldown active, suppressing entry", state.Symbol)
		e.counters.RecordFiltered(models.FilterReasonCooldown)
		return nil
	}

	// freshest-state duplicate guards, run right before submission
	position, err := e.broker.FetchPosition(ctx, state.Symbol)
	if err != nil {
		e.counters.RecordFiltered(models.FilterReasonData)
		return fmt.Errorf("Execute: %s: position check: %w", state.Symbol, err)
	}
	if position != nil {
		log.Infof("Execute: %s: already in position, suppressing entry", state.Symbol)
		state.InPosition = true
		state.PendingRetest = nil
		return nil
	}

	orders, err := e.broker.ListOpenOrders(ctx, state.Symbol)
	if err != nil {
		e.counters.RecordFiltered(models.FilterReasonData)
		return fmt.Errorf("Execute: %s: open-order check: %w", state.Symbol, err)
	}
	for _, order := range orders {
		if order.IsWorkingEntry() {
			log.Infof("Execute: %s: working entry order %s exists, suppressing", state.Symbol, order.ID)
			return nil
		}
	}

	// let the feed settle before pricing the bracket
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.params.BracketDelay):
	}

	equity, err := e.broker.FetchAccountEquity(ctx)
	if err != nil {
		e.counters.RecordFiltered(models.FilterReasonData)
		return fmt.Errorf("Execute: %s: equity fetch: %w", state.Symbol, err)
	}

	decision := e.risk.Build(state.Symbol, req.Direction, req.Entry, req.ATR, state.RangeWidth(), equity, req.IsImmediate)
	if decision == nil {
		e.counters.RecordFiltered(models.FilterReasonRiskReward)
		e.publishEvent(state.Symbol, "filtered", req, nil, models.FilterReasonRiskReward, now)
		return nil
	}

	spec := e.bracketSpec(decision, req.Market)

	order, err := e.broker.SubmitBracketOrder(ctx, spec)
	if err != nil {
		state.InPosition = false
		state.PendingRetest = nil
		e.resync(ctx, state)
		return fmt.Errorf("Execute: %s: submit: %w", state.Symbol, err)
	}

	state.InPosition = true
	state.HasTradedToday = true
	state.TradeType = req.TradeType
	state.PendingRetest = nil
	state.LastTradeDate = now.Format("2006-01-02")
	state.LastTradeTime = now

	e.resync(ctx, state)
	e.counters.RecordTrade(req.TradeType)
	e.publishEvent(state.Symbol, "submitted", req, decision, "", now)

	log.WithFields(log.Fields{
		"symbol":   state.Symbol,
		"type":     req.TradeType,
		"entry":    decision.Entry,
		"stop":     decision.Stop,
		"target":   decision.Target,
		"quantity": decision.Quantity,
		"rrr":      fmt.Sprintf("%.2f", decision.RiskRewardRatio),
		"order_id": order.ID,
	}).Info("Execute: bracket order submitted")

	return nil
}

func (e *OrderExecutor) bracketSpec(decision *models.TradeDecision, market bool) models.BracketOrderSpec {
	side := models.OrderSideBuy
	if decision.Direction == models.TradeDirectionShort {
		side = models.OrderSideSell
	}

	spec := models.BracketOrderSpec{
		Symbol:        decision.Symbol,
		Side:          side,
		Quantity:      decision.Quantity,
		StopLoss:      decision.Stop,
		TakeProfit:    decision.Target,
		TimeInForce:   "gtc",
		ClientOrderID: fmt.Sprintf("orb-%s-%s", decision.Symbol, uuid.NewString()[:8]),
	}

	if market {
		spec.Type = models.OrderTypeMarket
		return spec
	}

	spec.Type = models.OrderTypeStopLimit
	spec.StopPrice = decision.Entry
	if decision.Direction == models.TradeDirectionLong {
		spec.LimitPrice = decision.Entry + e.params.StopLimitOffset
	} else {
		spec.LimitPrice = decision.Entry - e.params.StopLimitOffset
	}

	return spec
}

// resync reads the brokerage's view of the position back into local state.
// The local write is never trusted on its own.
func (e *OrderExecutor) resync(ctx context.Context, state *models.SymbolState) {
	position, err := e.broker.FetchPosition(ctx, state.Symbol)
	if err != nil {
		log.Warnf("resync: %s: %v", state.Symbol, err)
		return
	}

	state.InPosition = position != nil
}

func (e *OrderExecutor) publishEvent(symbol, kind string, req EntryRequest, decision *models.TradeDecision, reason models.FilterReason, now time.Time) {
	event := models.TradeEvent{
		Timestamp: now,
		Symbol:    symbol,
		Kind:      kind,
		Direction: string(req.Direction),
		Reason:    reason,
	}

	if decision != nil {
		event.Entry = decision.Entry
		event.Stop = decision.Stop
		event.Target = decision.Target
		event.Quantity = decision.Quantity
		event.RRR = decision.RiskRewardRatio
	}

	eventpubsub.Publish(eventpubsub.TopicTradeEvents, event)
}
