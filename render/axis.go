package render

import (
	"math"
	"strconv"
)

// symlogThreshold is C2 in Hz; below it the frequency axis is linear
const symlogThreshold = 65.40639132514966

// symlog maps a frequency to the base-2 symmetric-log axis coordinate.
// The linear segment has unit slope and joins the log segment at the threshold.
func symlog(f float64) float64 {
	if f <= symlogThreshold {
		return f
	}
	return symlogThreshold * (1 + math.Log2(f/symlogThreshold))
}

// symexp inverts symlog
func symexp(y float64) float64 {
	if y <= symlogThreshold {
		return y
	}
	return symlogThreshold * math.Exp2(y/symlogThreshold-1)
}

type tick struct {
	value float64
	label string
}

// frequencyTicks returns 0 and the powers of two up to nyquist
func frequencyTicks(nyquist float64) []tick {
	ticks := []tick{{value: 0, label: "0"}}
	for f := 64.0; f <= nyquist; f *= 2 {
		ticks = append(ticks, tick{value: f, label: strconv.FormatFloat(f, 'f', -1, 64)})
	}
	return ticks
}

var timeSteps = []float64{0.1, 0.2, 0.5, 1, 2, 5, 10, 15, 30, 60, 120, 300}

// timeTicks returns evenly spaced ticks across [0, duration] with at most maxTicks entries
func timeTicks(duration float64, maxTicks int) []tick {
	if duration <= 0 || maxTicks < 2 {
		return []tick{{value: 0, label: "0"}}
	}

	step := timeSteps[len(timeSteps)-1]
	for _, s := range timeSteps {
		if duration/s <= float64(maxTicks-1) {
			step = s
			break
		}
	}

	var ticks []tick
	for i := 0; ; i++ {
		v := math.Round(float64(i)*step*1000) / 1000
		if v > duration+1e-9 {
			break
		}
		ticks = append(ticks, tick{value: v, label: strconv.FormatFloat(v, 'g', -1, 64)})
	}
	return ticks
}
