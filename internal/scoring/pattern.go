package scoring

import (
	"github.com/bigbit0987/stock-trans/internal/contracts"
	"github.com/bigbit0987/stock-trans/internal/strategyconfig"
)

// ClassifyVolumePattern assigns exactly one volume/price pattern.
// Rules are checked in a fixed order and the first match wins:
//
//  1. stagnant high volume: barely up but volume well above normal,
//     the classic churn-at-the-top distribution shape
//  2. low-volume pullback: small dip or flat on shrinking volume
//  3. healthy advance: a real move on moderately elevated volume
//  4. extreme low volume: interest has dried up
func ClassifyVolumePattern(pctChange, volumeRatio float64, p strategyconfig.Patterns) contracts.VolumePattern {
	switch {
	case pctChange >= 0 && pctChange <= p.StagnantGainMax && volumeRatio > p.StagnantVolumeRatio:
		return contracts.PatternStagnantHighVolume
	case pctChange >= -p.PullbackGainMax && pctChange <= p.PullbackGainMax && volumeRatio > 0 && volumeRatio < p.PullbackVolumeRatio:
		return contracts.PatternLowVolumePullback
	case pctChange >= p.HealthyGainMin && volumeRatio >= p.HealthyVolumeMin && volumeRatio <= p.HealthyVolumeMax:
		return contracts.PatternHealthyAdvance
	case volumeRatio > 0 && volumeRatio < p.ExtremeLowVolumeMax:
		return contracts.PatternExtremeLowVolume
	default:
		return contracts.PatternUnclassified
	}
}

// PatternScore maps a pattern to its technical sub-score contribution.
// Pullbacks on drying volume are the setup this strategy buys, so they
// score highest; churny distribution shapes are penalized.
func PatternScore(p contracts.VolumePattern) float64 {
	switch p {
	case contracts.PatternLowVolumePullback:
		return 90
	case contracts.PatternHealthyAdvance:
		return 75
	case contracts.PatternExtremeLowVolume:
		return 40
	case contracts.PatternStagnantHighVolume:
		return 10
	default:
		return 50
	}
}
