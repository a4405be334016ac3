package position

import (
	"fmt"

	"github.com/bigbit0987/stock-trans/internal/contracts"
)

// decideExit evaluates one open position against the current price and
// returns at most one decision. The rules are checked in a fixed
// priority order and the first hit wins:
//
//	ATR stop > MA stop > drawdown protect > take profit > loss attention
//
// maValue is the live MA for the grade's stop window; maOK is false
// when the cached history is too short to compute it, which simply
// skips the MA rule.
func decideExit(pos contracts.Position, price, maValue float64, maOK bool, p contracts.GradeParams) contracts.ExitDecision {
	if price <= pos.ATRStopPrice {
		return contracts.ExitDecision{
			Reason:        contracts.ExitATRStop,
			Close:         true,
			CloseFraction: 1.0,
			Note:          fmt.Sprintf("price %.2f broke ATR stop %.2f", price, pos.ATRStopPrice),
		}
	}

	if p.UseMAStop && maOK && price < maValue {
		return contracts.ExitDecision{
			Reason:        contracts.ExitMAStop,
			Close:         true,
			CloseFraction: 1.0,
			Note:          fmt.Sprintf("price %.2f below MA%d %.2f", price, p.MAStopWindow, maValue),
		}
	}

	// Trailing protection arms only once the position has run far
	// enough above entry; afterwards a give-back beyond the tolerance
	// closes the position.
	gainAtPeak := pos.HighWaterMark/pos.EntryPrice - 1
	if gainAtPeak >= p.DrawdownActivationPct {
		drawdown := 1 - price/pos.HighWaterMark
		if drawdown >= p.DrawdownTolerancePct {
			return contracts.ExitDecision{
				Reason:        contracts.ExitDrawdownProtect,
				Close:         true,
				CloseFraction: 1.0,
				Note:          fmt.Sprintf("%.1f%% off high %.2f", drawdown*100, pos.HighWaterMark),
			}
		}
	}

	gain := price/pos.EntryPrice - 1
	if gain >= p.TakeProfitPct {
		d := contracts.ExitDecision{
			Reason: contracts.ExitTakeProfit,
			Note:   fmt.Sprintf("gain %.1f%% reached target %.1f%%", gain*100, p.TakeProfitPct*100),
		}
		if p.TakeProfitCloseFraction > 0 {
			d.Close = true
			d.CloseFraction = p.TakeProfitCloseFraction
		}
		return d
	}

	if loss := -gain; loss >= p.LossAttentionPct {
		return contracts.ExitDecision{
			Reason: contracts.ExitLossAttention,
			Note:   fmt.Sprintf("down %.1f%% from entry, stop at %.2f", loss*100, pos.ATRStopPrice),
		}
	}

	return contracts.ExitDecision{Reason: contracts.ExitNone}
}
