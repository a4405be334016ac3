package position

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bigbit0987/stock-trans/internal/contracts"
)

func gradeB() contracts.GradeParams {
	return contracts.DefaultGradeParams()[contracts.GradeB]
}

func openPos(entry, stop, hwm float64) contracts.Position {
	return contracts.Position{
		ID:            "test",
		Symbol:        "600000",
		EntryPrice:    entry,
		Quantity:      1000,
		ATRAtEntry:    0.5,
		ATRStopPrice:  stop,
		HighWaterMark: hwm,
		Grade:         contracts.GradeB,
		Status:        contracts.PositionOpen,
	}
}

func TestATRStopFiresFirst(t *testing.T) {
	// Entry 10.0, ATR 0.5, k=2 puts the stop at 9.0. A quote of 8.9
	// also satisfies the MA stop and loss-attention conditions, but
	// only the highest-priority rule may fire.
	pos := openPos(10.0, 9.0, 10.0)
	d := decideExit(pos, 8.9, 9.5, true, gradeB())

	assert.Equal(t, contracts.ExitATRStop, d.Reason)
	assert.True(t, d.Close)
	assert.Equal(t, 1.0, d.CloseFraction)
}

func TestMAStopFiresBelowMA(t *testing.T) {
	pos := openPos(10.0, 9.0, 10.0)
	d := decideExit(pos, 9.4, 9.5, true, gradeB())

	assert.Equal(t, contracts.ExitMAStop, d.Reason)
	assert.True(t, d.Close)
}

func TestMAStopSkippedWithoutHistory(t *testing.T) {
	pos := openPos(10.0, 9.0, 10.0)
	d := decideExit(pos, 9.4, 0, false, gradeB())

	// Without an MA the next rule in priority order is consulted; a
	// 6% loss trips loss attention.
	assert.Equal(t, contracts.ExitLossAttention, d.Reason)
	assert.False(t, d.Close)
}

func TestMAStopDisabledForGradeC(t *testing.T) {
	params := contracts.DefaultGradeParams()[contracts.GradeC]
	pos := openPos(10.0, 9.0, 10.0)
	pos.Grade = contracts.GradeC

	d := decideExit(pos, 9.4, 9.5, true, params)
	assert.NotEqual(t, contracts.ExitMAStop, d.Reason)
}

func TestDrawdownProtectNeedsActivation(t *testing.T) {
	params := gradeB()

	// Peak gain below 5%: protection not armed, give-back tolerated.
	pos := openPos(10.0, 9.0, 10.4)
	d := decideExit(pos, 10.0, 9.8, true, params)
	assert.NotEqual(t, contracts.ExitDrawdownProtect, d.Reason)

	// Peak gain 8%: armed. A 4% give-back from the high closes it.
	pos = openPos(10.0, 9.0, 10.8)
	d = decideExit(pos, 10.36, 10.2, true, params)
	assert.Equal(t, contracts.ExitDrawdownProtect, d.Reason)
	assert.True(t, d.Close)
}

func TestTakeProfitHalfCloseForGradeB(t *testing.T) {
	pos := openPos(10.0, 9.0, 10.6)
	d := decideExit(pos, 10.55, 10.2, true, gradeB())

	assert.Equal(t, contracts.ExitTakeProfit, d.Reason)
	assert.True(t, d.Close)
	assert.Equal(t, 0.5, d.CloseFraction)
}

func TestTakeProfitAlertOnlyForGradeA(t *testing.T) {
	params := contracts.DefaultGradeParams()[contracts.GradeA]
	pos := openPos(10.0, 8.75, 11.2)
	pos.Grade = contracts.GradeA

	d := decideExit(pos, 11.1, 10.5, true, params)
	assert.Equal(t, contracts.ExitTakeProfit, d.Reason)
	assert.False(t, d.Close, "grade A take-profit only alerts")
}

func TestLossAttentionDoesNotClose(t *testing.T) {
	pos := openPos(10.0, 9.0, 10.0)
	d := decideExit(pos, 9.65, 9.6, true, gradeB())

	assert.Equal(t, contracts.ExitLossAttention, d.Reason)
	assert.False(t, d.Close)
}

func TestNoActionInsideBands(t *testing.T) {
	pos := openPos(10.0, 9.0, 10.2)
	d := decideExit(pos, 10.1, 9.9, true, gradeB())

	assert.Equal(t, contracts.ExitNone, d.Reason)
	assert.False(t, d.Close)
}
