package orb

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/KyleKCarter/stock-bot/src/models"
)

// StateStore owns every SymbolState. Access goes through the accessors so
// the map itself never escapes; mutation of a single symbol's state is
// confined to that symbol's evaluation path under the sweep guard.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]*models.SymbolState
}

func NewStateStore(symbols []string) *StateStore {
	states := make(map[string]*models.SymbolState, len(symbols))
	for _, symbol := range symbols {
		states[symbol] = &models.SymbolState{
			Symbol:    symbol,
			TradeType: models.TradeTypeNone,
		}
	}

	return &StateStore{states: states}
}

// Get returns the state for symbol, creating it lazily.
func (s *StateStore) Get(symbol string) *models.SymbolState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[symbol]
	if !ok {
		state = &models.SymbolState{
			Symbol:    symbol,
			TradeType: models.TradeTypeNone,
		}
		s.states[symbol] = state
	}

	return state
}

// Symbols returns the tracked symbols. Order is not guaranteed; callers
// sort when presenting.
func (s *StateStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.states))
	for symbol := range s.states {
		symbols = append(symbols, symbol)
	}

	return symbols
}

// ResetDaily clears the date-keyed fields of every state whose last trade
// was on a previous day. Range values are cleared unconditionally; they are
// recomputed after the opening window.
func (s *StateStore) ResetDaily(today string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, state := range s.states {
		if state.LastTradeDate == today {
			continue
		}

		state.ORBHigh = 0
		state.ORBLow = 0
		state.HasTradedToday = false
		state.TradeType = models.TradeTypeNone
		state.PendingRetest = nil
		state.InPosition = false

		log.Debugf("ResetDaily: %s reset for %s", state.Symbol, today)
	}
}

// CooldownActive reports whether a trade happened within window of now.
func CooldownActive(state *models.SymbolState, now time.Time, window time.Duration) bool {
	if state.LastTradeTime.IsZero() {
		return false
	}
	return now.Sub(state.LastTradeTime) < window
}
