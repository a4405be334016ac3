package position

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigbit0987/stock-trans/internal/cache"
	"github.com/bigbit0987/stock-trans/internal/contracts"
	"github.com/bigbit0987/stock-trans/internal/strategyconfig"
	"github.com/bigbit0987/stock-trans/pkg/logger"
)

func newTestEngine(t *testing.T) (*Engine, *Ledger) {
	t.Helper()
	dir := t.TempDir()
	ledger := NewLedger(
		filepath.Join(dir, "positions.json"),
		filepath.Join(dir, "trades.json"),
		time.Second,
		logger.NewNop(),
	)
	store, err := cache.NewStore(filepath.Join(dir, "cache"), logger.NewNop())
	require.NoError(t, err)

	e := NewEngine(ledger, store, strategyconfig.Default().Risk, logger.NewNop())
	return e, ledger
}

func openTestPosition(t *testing.T, e *Engine, symbol string, entry float64, grade contracts.Grade) *contracts.Position {
	t.Helper()
	pos, err := e.Open(context.Background(), OpenParams{
		Symbol:   symbol,
		Name:     "test " + symbol,
		Price:    entry,
		Quantity: 1000,
		Grade:    grade,
		ATR:      0.5,
	})
	require.NoError(t, err)
	return pos
}

func TestOpenFixesATRStop(t *testing.T) {
	e, ledger := newTestEngine(t)

	pos := openTestPosition(t, e, "600000", 10.0, contracts.GradeB)
	assert.InDelta(t, 9.0, pos.ATRStopPrice, 1e-9, "entry 10, ATR 0.5, k=2")
	assert.InDelta(t, 10.0, pos.HighWaterMark, 1e-9)
	assert.NotEmpty(t, pos.ID)

	stored, err := ledger.Open()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, pos.ID, stored[0].ID)
}

func TestOpenUsesGradeMultiplier(t *testing.T) {
	e, _ := newTestEngine(t)
	pos := openTestPosition(t, e, "600519", 100.0, contracts.GradeA)
	assert.InDelta(t, 98.75, pos.ATRStopPrice, 1e-9, "grade A uses k=2.5")
}

func TestOpenRejectsDuplicateSymbol(t *testing.T) {
	e, _ := newTestEngine(t)
	openTestPosition(t, e, "600000", 10.0, contracts.GradeB)

	_, err := e.Open(context.Background(), OpenParams{
		Symbol: "600000", Name: "dup", Price: 10.5, Quantity: 100,
		Grade: contracts.GradeB, ATR: 0.5,
	})
	assert.ErrorIs(t, err, ErrDuplicateSymbol)
}

func TestOpenEnforcesMaxPositions(t *testing.T) {
	e, _ := newTestEngine(t)
	e.risk.MaxPositions = 2

	openTestPosition(t, e, "600000", 10.0, contracts.GradeB)
	openTestPosition(t, e, "600001", 11.0, contracts.GradeB)

	_, err := e.Open(context.Background(), OpenParams{
		Symbol: "600002", Name: "three", Price: 12.0, Quantity: 100,
		Grade: contracts.GradeB, ATR: 0.5,
	})
	assert.ErrorIs(t, err, ErrMaxPositions)
}

func TestCloseSameDayRequiresForce(t *testing.T) {
	e, ledger := newTestEngine(t)
	pos := openTestPosition(t, e, "600000", 10.0, contracts.GradeB)

	_, err := e.Close(context.Background(), pos.ID, 10.5, 1.0, contracts.ExitManual, false)
	assert.ErrorIs(t, err, ErrSameDayClose)

	open, err := ledger.Open()
	require.NoError(t, err)
	assert.Len(t, open, 1, "rejected close must not touch the ledger")

	trade, err := e.Close(context.Background(), pos.ID, 10.5, 1.0, contracts.ExitManual, true)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, trade.RealizedPnL, 1e-9)

	open, err = ledger.Open()
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestCloseNextDayNeedsNoForce(t *testing.T) {
	e, ledger := newTestEngine(t)
	pos := openTestPosition(t, e, "600000", 10.0, contracts.GradeB)

	e.now = func() time.Time { return time.Now().AddDate(0, 0, 1) }
	trade, err := e.Close(context.Background(), pos.ID, 9.5, 1.0, contracts.ExitATRStop, false)
	require.NoError(t, err)
	assert.Equal(t, contracts.ExitATRStop, trade.Reason)
	assert.InDelta(t, -500.0, trade.RealizedPnL, 1e-9)
	assert.Equal(t, 1, trade.DaysHeld)

	trades, err := ledger.Trades()
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestClosePartialShrinksQuantity(t *testing.T) {
	e, ledger := newTestEngine(t)
	pos := openTestPosition(t, e, "600000", 10.0, contracts.GradeB)
	e.now = func() time.Time { return time.Now().AddDate(0, 0, 1) }

	trade, err := e.Close(context.Background(), pos.ID, 10.6, 0.5, contracts.ExitTakeProfit, false)
	require.NoError(t, err)
	assert.Equal(t, 500, trade.Quantity)

	open, err := ledger.Open()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 500, open[0].Quantity)
	assert.Equal(t, contracts.PositionOpen, open[0].Status)

	// Closing the remainder archives a second trade and frees the slot.
	_, err = e.Close(context.Background(), pos.ID, 10.8, 1.0, contracts.ExitManual, false)
	require.NoError(t, err)

	open, err = ledger.Open()
	require.NoError(t, err)
	assert.Empty(t, open)

	trades, err := ledger.Trades()
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestClosePartialRejectsFractionSellingNothing(t *testing.T) {
	e, ledger := newTestEngine(t)
	pos, err := e.Open(context.Background(), OpenParams{
		Symbol:   "600000",
		Name:     "test 600000",
		Price:    10.0,
		Quantity: 1,
		Grade:    contracts.GradeB,
		ATR:      0.5,
	})
	require.NoError(t, err)
	e.now = func() time.Time { return time.Now().AddDate(0, 0, 1) }

	// Half of one share rounds to zero; it must not become a full close.
	_, err = e.Close(context.Background(), pos.ID, 10.6, 0.5, contracts.ExitTakeProfit, false)
	require.Error(t, err)

	open, err := ledger.Open()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 1, open[0].Quantity)

	trades, err := ledger.Trades()
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestCloseTwiceFails(t *testing.T) {
	e, _ := newTestEngine(t)
	pos := openTestPosition(t, e, "600000", 10.0, contracts.GradeB)
	e.now = func() time.Time { return time.Now().AddDate(0, 0, 1) }

	_, err := e.Close(context.Background(), pos.ID, 10.5, 1.0, contracts.ExitManual, false)
	require.NoError(t, err)

	_, err = e.Close(context.Background(), pos.ID, 10.5, 1.0, contracts.ExitManual, false)
	assert.ErrorIs(t, err, ErrAlreadyClosed)
}

func TestCloseUnknownID(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Close(context.Background(), "nope", 10.0, 1.0, contracts.ExitManual, true)
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestEvaluateRaisesHighWaterMarkMonotonically(t *testing.T) {
	e, ledger := newTestEngine(t)
	pos := openTestPosition(t, e, "600000", 10.0, contracts.GradeB)

	_, err := e.Evaluate(context.Background(), map[string]float64{"600000": 10.4})
	require.NoError(t, err)

	stored, err := ledger.Open()
	require.NoError(t, err)
	assert.InDelta(t, 10.4, stored[0].HighWaterMark, 1e-9)

	// A lower quote must never lower the mark.
	_, err = e.Evaluate(context.Background(), map[string]float64{"600000": 10.1})
	require.NoError(t, err)

	stored, err = ledger.Open()
	require.NoError(t, err)
	assert.Equal(t, pos.ID, stored[0].ID)
	assert.InDelta(t, 10.4, stored[0].HighWaterMark, 1e-9)
}

func TestEvaluateEmitsDecisions(t *testing.T) {
	e, _ := newTestEngine(t)
	openTestPosition(t, e, "600000", 10.0, contracts.GradeB)
	openTestPosition(t, e, "600001", 20.0, contracts.GradeB)

	evals, err := e.Evaluate(context.Background(), map[string]float64{
		"600000": 8.9,  // through the ATR stop at 9.0
		"600001": 20.1, // inside all bands
	})
	require.NoError(t, err)
	require.Len(t, evals, 2)

	bySymbol := map[string]Evaluation{}
	for _, ev := range evals {
		bySymbol[ev.Position.Symbol] = ev
	}
	assert.Equal(t, contracts.ExitATRStop, bySymbol["600000"].Decision.Reason)
	assert.Equal(t, contracts.ExitNone, bySymbol["600001"].Decision.Reason)
}

func TestEvaluateSkipsMissingQuotes(t *testing.T) {
	e, _ := newTestEngine(t)
	openTestPosition(t, e, "600000", 10.0, contracts.GradeB)

	evals, err := e.Evaluate(context.Background(), map[string]float64{"000001": 5.0})
	require.NoError(t, err)
	assert.Empty(t, evals)
}
