package scoring

import (
	"github.com/bigbit0987/stock-trans/internal/contracts"
	"github.com/bigbit0987/stock-trans/internal/strategyconfig"
)

// MarkSectorResonance flags candidates whose sector shows up in force.
// A sector resonates when it contributes at least MinMembers
// candidates, or at least MinShare of the whole candidate set. A lone
// strong stock in a dead sector is more likely noise than a theme.
func MarkSectorResonance(cands []contracts.Candidate, cfg strategyconfig.Sector) {
	if len(cands) == 0 {
		return
	}
	counts := make(map[string]int)
	for _, c := range cands {
		if c.Sector != "" {
			counts[c.Sector]++
		}
	}
	total := len(cands)
	for i := range cands {
		n := counts[cands[i].Sector]
		if cands[i].Sector == "" {
			continue
		}
		if n >= cfg.MinMembers || float64(n)/float64(total) >= cfg.MinShare {
			cands[i].SectorResonant = true
		}
	}
}
