package contracts

// ExitReason identifies which rule produced an exit decision. At most
// one reason is emitted per evaluation; the rule order is fixed in the
// position engine.
type ExitReason string

const (
	ExitATRStop         ExitReason = "ATR_STOP"
	ExitMAStop          ExitReason = "MA_STOP"
	ExitDrawdownProtect ExitReason = "DRAWDOWN_PROTECT"
	ExitTakeProfit      ExitReason = "TAKE_PROFIT"
	ExitLossAttention   ExitReason = "LOSS_ATTENTION" // advisory only, no close
	ExitNone            ExitReason = "NONE"
	ExitManual          ExitReason = "MANUAL"
)

// ExitDecision is the outcome of evaluating one open position against
// the current price.
type ExitDecision struct {
	Reason ExitReason `json:"reason"`
	// Close signals whether any quantity should actually be sold.
	Close bool `json:"close"`
	// CloseFraction is the fraction of the remaining quantity to sell
	// when Close is true (1.0 means a full exit).
	CloseFraction float64 `json:"close_fraction,omitempty"`
	Note          string  `json:"note,omitempty"`
}

// GradeParams are the per-grade risk parameters applied by the exit
// rules. Percentages are expressed as fractions (0.05 == 5%).
type GradeParams struct {
	ATRMultiplier         float64 `yaml:"atr_multiplier" json:"atr_multiplier"`
	UseMAStop             bool    `yaml:"use_ma_stop" json:"use_ma_stop"`
	MAStopWindow          int     `yaml:"ma_stop_window" json:"ma_stop_window"`
	DrawdownActivationPct float64 `yaml:"drawdown_activation_pct" json:"drawdown_activation_pct"`
	DrawdownTolerancePct  float64 `yaml:"drawdown_tolerance_pct" json:"drawdown_tolerance_pct"`
	TakeProfitPct         float64 `yaml:"take_profit_pct" json:"take_profit_pct"`
	// TakeProfitCloseFraction of 0 means the take-profit level only
	// raises an alert and never sells.
	TakeProfitCloseFraction float64 `yaml:"take_profit_close_fraction" json:"take_profit_close_fraction"`
	LossAttentionPct        float64 `yaml:"loss_attention_pct" json:"loss_attention_pct"`
}

// DefaultGradeParams returns the built-in per-grade presets, used when
// the strategy file does not override them.
func DefaultGradeParams() map[Grade]GradeParams {
	return map[Grade]GradeParams{
		GradeA: {
			ATRMultiplier:           2.5,
			UseMAStop:               true,
			MAStopWindow:            10,
			DrawdownActivationPct:   0.05,
			DrawdownTolerancePct:    0.05,
			TakeProfitPct:           0.10,
			TakeProfitCloseFraction: 0, // alert only
			LossAttentionPct:        0.03,
		},
		GradeB: {
			ATRMultiplier:           2.0,
			UseMAStop:               true,
			MAStopWindow:            5,
			DrawdownActivationPct:   0.05,
			DrawdownTolerancePct:    0.04,
			TakeProfitPct:           0.05,
			TakeProfitCloseFraction: 0.5,
			LossAttentionPct:        0.03,
		},
		GradeC: {
			ATRMultiplier:           2.0,
			UseMAStop:               false,
			MAStopWindow:            5,
			DrawdownActivationPct:   0.05,
			DrawdownTolerancePct:    0.03,
			TakeProfitPct:           0.03,
			TakeProfitCloseFraction: 0.5,
			LossAttentionPct:        0.03,
		},
	}
}
