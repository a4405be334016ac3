package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigbit0987/stock-trans/internal/cache"
	"github.com/bigbit0987/stock-trans/internal/contracts"
	"github.com/bigbit0987/stock-trans/internal/datasource"
	"github.com/bigbit0987/stock-trans/pkg/logger"
)

type fakeSource struct {
	mu           sync.Mutex
	historyCalls map[string]int
	snapCalls    int
	// failures[symbol] is consumed one error per call before success.
	failures map[string][]error
	bars     map[string][]contracts.PriceBar
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		historyCalls: make(map[string]int),
		failures:     make(map[string][]error),
		bars:         make(map[string][]contracts.PriceBar),
	}
}

func (f *fakeSource) FetchSnapshot(ctx context.Context) (*contracts.MarketSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapCalls++
	return &contracts.MarketSnapshot{FetchedAt: time.Now()}, nil
}

func (f *fakeSource) FetchHistory(ctx context.Context, symbol string, limit int) ([]contracts.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls[symbol]++
	if errs := f.failures[symbol]; len(errs) > 0 {
		err := errs[0]
		f.failures[symbol] = errs[1:]
		return nil, err
	}
	return f.bars[symbol], nil
}

func (f *fakeSource) calls(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyCalls[symbol]
}

func freshBar(symbol string) []contracts.PriceBar {
	return []contracts.PriceBar{{
		Symbol: symbol,
		Date:   cache.LastTradingDay(time.Now()),
		Close:  10,
		High:   10,
		Low:    10,
		Volume: 100,
	}}
}

func newOrchestrator(t *testing.T, src Source, cfg Config) (*Orchestrator, *cache.Store) {
	t.Helper()
	store, err := cache.NewStore(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	return New(src, store, cfg, logger.NewNop()), store
}

func TestRefreshStatuses(t *testing.T) {
	src := newFakeSource()
	src.bars["600000"] = freshBar("600000")
	src.failures["000001"] = []error{&datasource.PermanentError{Op: "history", Err: errors.New("unknown symbol")}}

	o, store := newOrchestrator(t, src, Config{Workers: 2})

	// Pre-seed 600036 so it is already current and gets skipped.
	_, err := store.Update(context.Background(), "600036", freshBar("600036"))
	require.NoError(t, err)

	sum := o.Refresh(context.Background(), []string{"600000", "000001", "600036"}, time.Now())

	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, 1, sum.Unchanged)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 0, src.calls("600036"), "current symbol must not be refetched")
	assert.Len(t, store.Get("600000"), 1)
}

func TestRefreshJudgesStalenessAgainstAsOf(t *testing.T) {
	src := newFakeSource()
	o, store := newOrchestrator(t, src, Config{Workers: 1})

	// Cache holds the last completed bar for a past trading day.
	asOf := time.Date(2026, 8, 12, 16, 0, 0, 0, time.UTC)
	_, err := store.Update(context.Background(), "600000", []contracts.PriceBar{{
		Symbol: "600000",
		Date:   cache.LastTradingDay(asOf),
		Close:  10, High: 10, Low: 10, Volume: 100,
	}})
	require.NoError(t, err)

	// Replaying that day must skip the symbol, even though the cache
	// is stale by the wall clock.
	sum := o.Refresh(context.Background(), []string{"600000"}, asOf)
	assert.Equal(t, 1, sum.Unchanged)
	assert.Equal(t, 0, src.calls("600000"))
}

func TestRefreshRetriesTransientOnly(t *testing.T) {
	src := newFakeSource()
	src.bars["600000"] = freshBar("600000")
	src.failures["600000"] = []error{
		&datasource.TransientError{Op: "history", Err: errors.New("timeout")},
		&datasource.TransientError{Op: "history", Err: errors.New("http 500")},
	}
	src.failures["000001"] = []error{
		&datasource.PermanentError{Op: "history", Err: errors.New("http 404")},
	}

	o, _ := newOrchestrator(t, src, Config{Workers: 1, Retries: 3, BaseBackoff: time.Millisecond})
	sum := o.Refresh(context.Background(), []string{"600000", "000001"}, time.Now())

	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 3, src.calls("600000"), "two transient failures then success")
	assert.Equal(t, 1, src.calls("000001"), "permanent failure must not be retried")
}

func TestRefreshExhaustsRetries(t *testing.T) {
	src := newFakeSource()
	src.failures["600000"] = []error{
		&datasource.TransientError{Op: "history", Err: errors.New("t1")},
		&datasource.TransientError{Op: "history", Err: errors.New("t2")},
		&datasource.TransientError{Op: "history", Err: errors.New("t3")},
	}

	o, _ := newOrchestrator(t, src, Config{Workers: 1, Retries: 2, BaseBackoff: time.Millisecond})
	sum := o.Refresh(context.Background(), []string{"600000"}, time.Now())

	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 3, src.calls("600000"), "initial attempt plus two retries")
	require.Len(t, sum.Results, 1)
	assert.Equal(t, contracts.RefreshFailed, sum.Results[0].Status)
	assert.True(t, datasource.IsTransient(sum.Results[0].Err))
}

func TestRefreshStopsDispatchOnCancel(t *testing.T) {
	src := newFakeSource()
	symbols := make([]string, 50)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("6%05d", i)
		src.bars[symbols[i]] = freshBar(symbols[i])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, _ := newOrchestrator(t, src, Config{Workers: 1})
	sum := o.Refresh(ctx, symbols, time.Now())

	assert.Less(t, len(sum.Results), len(symbols), "canceled context must stop dispatch")
}

func TestSnapshotPersists(t *testing.T) {
	src := newFakeSource()
	o, store := newOrchestrator(t, src, Config{})

	snap, err := o.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 1, src.snapCalls)
	assert.NotNil(t, store.LoadSnapshot())
}
