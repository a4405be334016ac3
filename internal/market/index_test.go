package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigbit0987/stock-trans/internal/contracts"
)

func testSnapshot() *contracts.MarketSnapshot {
	return &contracts.MarketSnapshot{
		FetchedAt: time.Date(2026, 8, 31, 14, 35, 0, 0, time.UTC),
		Rows: []contracts.SnapshotRow{
			{Symbol: "600519", Sector: "酿酒行业", PctChange: 0.02},
			{Symbol: "000858", Sector: "酿酒行业", PctChange: 0.01},
			{Symbol: "000001", Sector: "银行", PctChange: -0.005},
			{Symbol: "600036", Sector: "银行", PctChange: 0.003},
		},
	}
}

func TestLookup(t *testing.T) {
	idx := NewIndex(testSnapshot())

	row, ok := idx.Lookup("600519")
	require.True(t, ok)
	assert.Equal(t, "酿酒行业", row.Sector)

	_, ok = idx.Lookup("999999")
	assert.False(t, ok)
}

func TestSectorMembers(t *testing.T) {
	idx := NewIndex(testSnapshot())
	assert.ElementsMatch(t, []string{"600519", "000858"}, idx.SectorMembers("酿酒行业"))
	assert.Empty(t, idx.SectorMembers("无"))
}

func TestSectorGain(t *testing.T) {
	idx := NewIndex(testSnapshot())
	assert.InDelta(t, 0.015, idx.SectorGain("酿酒行业"), 1e-9)
	assert.Zero(t, idx.SectorGain("无"))
}

func TestBreadth(t *testing.T) {
	idx := NewIndex(testSnapshot())
	assert.InDelta(t, 0.75, idx.Breadth(), 1e-9)
	assert.Equal(t, 4, idx.Size())
}
