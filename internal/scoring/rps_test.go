package scoring

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigbit0987/stock-trans/internal/cache"
	"github.com/bigbit0987/stock-trans/internal/contracts"
	"github.com/bigbit0987/stock-trans/pkg/logger"
)

// seedSeries writes count daily bars ending the day before asOf,
// rising linearly from start by step per bar.
func seedSeries(t *testing.T, store *cache.Store, symbol string, asOf time.Time, count int, start, step float64) {
	t.Helper()
	bars := make([]contracts.PriceBar, count)
	for i := 0; i < count; i++ {
		c := start + step*float64(i)
		bars[i] = contracts.PriceBar{
			Symbol: symbol,
			Date:   asOf.AddDate(0, 0, i-count),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 10000,
		}
	}
	_, err := store.Update(context.Background(), symbol, bars)
	require.NoError(t, err)
}

func rpsStore(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.NewStore(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	return s
}

func TestComputeRPSOrdersByReturn(t *testing.T) {
	store := rpsStore(t)
	asOf := time.Date(2026, 8, 31, 14, 35, 0, 0, time.UTC)

	// Five symbols with strictly increasing 120-day returns.
	steps := []float64{0.00, 0.01, 0.02, 0.03, 0.04}
	symbols := make([]string, len(steps))
	for i, step := range steps {
		symbols[i] = fmt.Sprintf("60000%d", i)
		seedSeries(t, store, symbols[i], asOf, 130, 10, step)
	}

	table := ComputeRPS(store, symbols, asOf, 120, 20, 70, 90)
	require.Len(t, table.Results, 5)

	assert.InDelta(t, 0, table.Results["600000"].Long, 1e-9)
	assert.InDelta(t, 25, table.Results["600001"].Long, 1e-9)
	assert.InDelta(t, 100, table.Results["600004"].Long, 1e-9)
}

func TestComputeRPSTieBreakIsDeterministic(t *testing.T) {
	store := rpsStore(t)
	asOf := time.Date(2026, 8, 31, 14, 35, 0, 0, time.UTC)

	// Identical flat series: returns tie, ranks fall back to symbol
	// code ascending.
	for _, sym := range []string{"600002", "600000", "600001"} {
		seedSeries(t, store, sym, asOf, 130, 10, 0)
	}

	table := ComputeRPS(store, []string{"600002", "600000", "600001"}, asOf, 120, 20, 70, 90)
	assert.InDelta(t, 0, table.Results["600000"].Long, 1e-9)
	assert.InDelta(t, 50, table.Results["600001"].Long, 1e-9)
	assert.InDelta(t, 100, table.Results["600002"].Long, 1e-9)
}

func TestComputeRPSSkipsShortHistory(t *testing.T) {
	store := rpsStore(t)
	asOf := time.Date(2026, 8, 31, 14, 35, 0, 0, time.UTC)

	seedSeries(t, store, "600000", asOf, 130, 10, 0.01)
	seedSeries(t, store, "600001", asOf, 30, 10, 0.01) // too short for 120d

	table := ComputeRPS(store, []string{"600000", "600001"}, asOf, 120, 20, 70, 90)
	_, ok := table.Results["600001"]
	assert.False(t, ok, "symbol without 120d history must be omitted from the long rank")
	_, ok = table.Results["600000"]
	assert.True(t, ok)
}

func TestWeakToStrongBoundsAreStrict(t *testing.T) {
	store := rpsStore(t)
	asOf := time.Date(2026, 8, 31, 14, 35, 0, 0, time.UTC)

	// 11 symbols: long returns increasing with i, short returns
	// decreasing with i, so symbol 0 is long-weakest and
	// short-strongest.
	symbols := make([]string, 11)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("6000%02d", i)
		bars := make([]contracts.PriceBar, 130)
		for d := range bars {
			c := 10 + float64(i)*float64(d)/130
			if d >= 110 {
				// Last 20 days: reverse the ordering.
				c += float64(10-i) * 0.2 * float64(d-110) / 20
			}
			bars[d] = contracts.PriceBar{
				Symbol: symbols[i],
				Date:   asOf.AddDate(0, 0, d-130),
				Close:  c, High: c, Low: c, Open: c, Volume: 1000,
			}
		}
		_, err := store.Update(context.Background(), symbols[i], bars)
		require.NoError(t, err)
	}

	table := ComputeRPS(store, symbols, asOf, 120, 20, 70, 90)

	r0 := table.Results[symbols[0]]
	assert.Less(t, r0.Long, 70.0)
	assert.Greater(t, r0.Short, 90.0)
	assert.True(t, r0.WeakToStrong)

	// The long-strongest symbol can never be weak-to-strong.
	r10 := table.Results[symbols[10]]
	assert.False(t, r10.WeakToStrong)

	// Both bounds are exclusive: sitting exactly on a threshold is
	// not enough.
	r7 := table.Results[symbols[7]]
	assert.Equal(t, 70.0, r7.Long)
	assert.False(t, r7.WeakToStrong)

	r1 := table.Results[symbols[1]]
	assert.Equal(t, 90.0, r1.Short)
	assert.Less(t, r1.Long, 70.0)
	assert.False(t, r1.WeakToStrong)
}
