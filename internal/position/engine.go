package position

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bigbit0987/stock-trans/internal/cache"
	"github.com/bigbit0987/stock-trans/internal/contracts"
	"github.com/bigbit0987/stock-trans/internal/indicator"
	"github.com/bigbit0987/stock-trans/internal/strategyconfig"
	"github.com/bigbit0987/stock-trans/pkg/logger"
)

var (
	ErrSameDayClose     = errors.New("position: cannot close on entry day (T+1), use force to override")
	ErrPositionNotFound = errors.New("position: not found")
	ErrAlreadyClosed    = errors.New("position: already closed")
	ErrMaxPositions     = errors.New("position: max open positions reached")
	ErrDuplicateSymbol  = errors.New("position: symbol already held")
)

// Engine owns the position lifecycle: open, evaluate, close. All state
// changes funnel through the ledger's locked mutation path.
type Engine struct {
	ledger *Ledger
	store  *cache.Store
	risk   strategyconfig.Risk
	log    *logger.Logger
	now    func() time.Time
}

// NewEngine builds a position Engine.
func NewEngine(ledger *Ledger, store *cache.Store, risk strategyconfig.Risk, log *logger.Logger) *Engine {
	return &Engine{
		ledger: ledger,
		store:  store,
		risk:   risk,
		log:    log.WithField("module", "position"),
		now:    time.Now,
	}
}

// OpenParams describe a new holding.
type OpenParams struct {
	Symbol   string
	Name     string
	Price    float64
	Quantity int
	Grade    contracts.Grade
	// ATR is the 14-day average true range at entry; the initial stop
	// is fixed from it and never recomputed.
	ATR float64
}

// Open records a new position. The ATR stop is locked in at entry and
// the high-water mark starts at the entry price.
func (e *Engine) Open(ctx context.Context, p OpenParams) (*contracts.Position, error) {
	if p.Price <= 0 || p.Quantity <= 0 {
		return nil, fmt.Errorf("position: invalid entry price %v or quantity %d", p.Price, p.Quantity)
	}
	if p.ATR <= 0 {
		return nil, fmt.Errorf("position: invalid ATR %v", p.ATR)
	}

	params := e.risk.GradeParams(p.Grade)
	pos := contracts.Position{
		ID:            uuid.NewString(),
		Symbol:        p.Symbol,
		Name:          p.Name,
		EntryPrice:    p.Price,
		EntryDate:     e.now(),
		Quantity:      p.Quantity,
		ATRAtEntry:    p.ATR,
		ATRStopPrice:  p.Price - params.ATRMultiplier*p.ATR,
		HighWaterMark: p.Price,
		Grade:         p.Grade,
		Status:        contracts.PositionOpen,
	}

	err := e.ledger.Mutate(ctx, func(positions []contracts.Position) ([]contracts.Position, error) {
		open := 0
		for _, existing := range positions {
			if existing.Status != contracts.PositionOpen {
				continue
			}
			open++
			if existing.Symbol == p.Symbol {
				return nil, ErrDuplicateSymbol
			}
		}
		if e.risk.MaxPositions > 0 && open >= e.risk.MaxPositions {
			return nil, ErrMaxPositions
		}
		return append(positions, pos), nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(map[string]interface{}{
		"symbol":   pos.Symbol,
		"grade":    string(pos.Grade),
		"entry":    pos.EntryPrice,
		"atr_stop": pos.ATRStopPrice,
	}).Info("Position opened")
	return &pos, nil
}

// Close sells fraction (0 < fraction <= 1) of a position at price.
// Closing on the entry day violates the T+1 rule and is rejected
// unless force is set. A full close archives the trade; a partial
// close shrinks the quantity and archives the sold slice.
func (e *Engine) Close(ctx context.Context, id string, price, fraction float64, reason contracts.ExitReason, force bool) (*contracts.Trade, error) {
	if price <= 0 {
		return nil, fmt.Errorf("position: invalid exit price %v", price)
	}
	if fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("position: invalid close fraction %v", fraction)
	}
	if reason == "" {
		reason = contracts.ExitManual
	}

	now := e.now()
	var trade contracts.Trade

	err := e.ledger.Mutate(ctx, func(positions []contracts.Position) ([]contracts.Position, error) {
		i := findPosition(positions, id)
		if i < 0 {
			return nil, ErrPositionNotFound
		}
		pos := positions[i]
		if pos.Status == contracts.PositionClosed {
			return nil, ErrAlreadyClosed
		}
		if sameDay(pos.EntryDate, now) && !force {
			return nil, ErrSameDayClose
		}

		soldQty := pos.Quantity
		if fraction < 1 {
			soldQty = int(float64(pos.Quantity) * fraction)
			if soldQty <= 0 {
				return nil, fmt.Errorf("position: fraction %v of %d shares sells nothing", fraction, pos.Quantity)
			}
		}

		trade = contracts.Trade{
			PositionID:  pos.ID,
			Symbol:      pos.Symbol,
			Name:        pos.Name,
			Grade:       pos.Grade,
			EntryPrice:  pos.EntryPrice,
			EntryDate:   pos.EntryDate,
			ExitPrice:   price,
			ExitDate:    now,
			Quantity:    soldQty,
			RealizedPnL: (price - pos.EntryPrice) * float64(soldQty),
			PnLPct:      price/pos.EntryPrice - 1,
			Reason:      reason,
			DaysHeld:    daysBetween(pos.EntryDate, now),
		}

		if soldQty >= pos.Quantity {
			pos.Status = contracts.PositionClosed
			pos.Quantity = 0
			pos.ExitPrice = price
			exitDate := now
			pos.ExitDate = &exitDate
			pos.ExitReason = reason
			pos.RealizedPnL = trade.RealizedPnL
		} else {
			pos.Quantity -= soldQty
		}
		positions[i] = pos

		// Journal the trade before the positions commit, inside the
		// same critical section. A crash between the two leaves a
		// journal row for a close that must be retried, never a
		// silently missing trade record.
		if err := e.ledger.AppendTrade(ctx, trade); err != nil {
			return nil, err
		}
		return positions, nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(map[string]interface{}{
		"symbol": trade.Symbol,
		"reason": string(trade.Reason),
		"pnl":    trade.RealizedPnL,
	}).Info("Position closed")
	return &trade, nil
}

// Evaluation pairs one open position with its exit decision at the
// given price.
type Evaluation struct {
	Position contracts.Position
	Price    float64
	Decision contracts.ExitDecision
}

// Evaluate raises high-water marks from the live quotes and runs the
// exit rules over every open position. The HWM updates are committed
// in one locked write; decisions are returned, not auto-executed.
// Symbols missing from quotes are skipped.
func (e *Engine) Evaluate(ctx context.Context, quotes map[string]float64) ([]Evaluation, error) {
	now := e.now()
	var evals []Evaluation

	err := e.ledger.Mutate(ctx, func(positions []contracts.Position) ([]contracts.Position, error) {
		evals = evals[:0]
		for i, pos := range positions {
			if pos.Status != contracts.PositionOpen {
				continue
			}
			price, ok := quotes[pos.Symbol]
			if !ok || price <= 0 {
				continue
			}
			if price > pos.HighWaterMark {
				pos.HighWaterMark = price
				positions[i] = pos
			}

			params := e.risk.GradeParams(pos.Grade)
			maValue, maOK := 0.0, false
			if params.UseMAStop {
				bars := e.store.GetBefore(pos.Symbol, now)
				maValue, maOK = indicator.RealtimeMA(bars, params.MAStopWindow, price)
			}

			evals = append(evals, Evaluation{
				Position: pos,
				Price:    price,
				Decision: decideExit(pos, price, maValue, maOK, params),
			})
		}
		return positions, nil
	})
	if err != nil {
		return nil, err
	}

	for _, ev := range evals {
		if ev.Decision.Reason == contracts.ExitNone {
			continue
		}
		e.log.WithFields(map[string]interface{}{
			"symbol": ev.Position.Symbol,
			"reason": string(ev.Decision.Reason),
			"close":  ev.Decision.Close,
			"note":   ev.Decision.Note,
		}).Warn("Exit rule triggered")
	}
	return evals, nil
}

func findPosition(positions []contracts.Position, id string) int {
	for i, p := range positions {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func daysBetween(a, b time.Time) int {
	d := int(b.Sub(a).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
