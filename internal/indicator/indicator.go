// Package indicator computes the technical indicators used by scoring
// and exit evaluation. All series are daily bars ordered ascending by
// date; functions return ok=false when the series is too short.
package indicator

import "github.com/bigbit0987/stock-trans/internal/contracts"

// MA returns the simple moving average of the last window closes.
func MA(bars []contracts.PriceBar, window int) (float64, bool) {
	if window <= 0 || len(bars) < window {
		return 0, false
	}
	var sum float64
	for _, b := range bars[len(bars)-window:] {
		sum += b.Close
	}
	return sum / float64(window), true
}

// RealtimeMA returns the moving average with the live price substituted
// for today's not-yet-written close. The last window-1 cached closes
// are combined with price.
func RealtimeMA(bars []contracts.PriceBar, window int, price float64) (float64, bool) {
	if window <= 0 || len(bars) < window-1 {
		return 0, false
	}
	sum := price
	for _, b := range bars[len(bars)-(window-1):] {
		sum += b.Close
	}
	return sum / float64(window), true
}

// ATR returns the Wilder average true range over the given window,
// computed as the simple mean of the last window true ranges. Needs
// window+1 bars so every TR has a previous close.
func ATR(bars []contracts.PriceBar, window int) (float64, bool) {
	if window <= 0 || len(bars) < window+1 {
		return 0, false
	}
	var sum float64
	start := len(bars) - window
	for i := start; i < len(bars); i++ {
		sum += trueRange(bars[i], bars[i-1].Close)
	}
	return sum / float64(window), true
}

func trueRange(b contracts.PriceBar, prevClose float64) float64 {
	tr := b.High - b.Low
	if hc := abs(b.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := abs(b.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// VolumeRatio returns today's volume divided by the mean volume of the
// preceding window bars. todayVolume is the live cumulative volume.
func VolumeRatio(bars []contracts.PriceBar, window int, todayVolume int64) (float64, bool) {
	if window <= 0 || len(bars) < window {
		return 0, false
	}
	var sum int64
	for _, b := range bars[len(bars)-window:] {
		sum += b.Volume
	}
	if sum == 0 {
		return 0, false
	}
	mean := float64(sum) / float64(window)
	return float64(todayVolume) / mean, true
}

// WindowReturn returns the fractional price change over the last window
// bars: close[t] / close[t-window] - 1.
func WindowReturn(bars []contracts.PriceBar, window int) (float64, bool) {
	if window <= 0 || len(bars) < window+1 {
		return 0, false
	}
	base := bars[len(bars)-1-window].Close
	if base <= 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close/base - 1, true
}
