package blast

import (
	"gonum.org/v1/gonum/stat"
)

// warmupDetector decides, from the stream of delivered flits, whether a
// terminal's enroute count has reached steady state or is growing without
// bound. Every interval delivered flits it samples the enroute flit count
// into a cyclic window; once the window is full it fits a least-squares
// slope over the window and applies a fast-fail ratio against the first
// full window's maximum.
type warmupDetector struct {
	interval    uint32
	window      uint32
	maxAttempts uint32

	flitsReceived uint32
	sampleTimes   []float64
	sampleValues  []float64
	samplePos     int

	fastFailSample float64
	fastFailSet    bool
	attempts       uint32
}

func newWarmupDetector(interval, window, maxAttempts uint32) *warmupDetector {
	return &warmupDetector{
		interval:    interval,
		window:      window,
		maxAttempts: maxAttempts,
	}
}

// observe accounts numFlits newly delivered flits. When a sample boundary
// is crossed it records (sampleCycle, enrouteFlits) and reevaluates.
// Exactly one of the results may be true.
func (d *warmupDetector) observe(
	numFlits int,
	sampleCycle uint64,
	enrouteFlits int,
) (warmed, saturated bool) {
	if d.interval == 0 {
		return true, false
	}

	d.flitsReceived += uint32(numFlits)
	if d.flitsReceived < d.interval {
		return false, false
	}
	d.flitsReceived %= d.interval

	if uint32(len(d.sampleTimes)) < d.window {
		d.sampleTimes = append(d.sampleTimes, float64(sampleCycle))
		d.sampleValues = append(d.sampleValues, float64(enrouteFlits))
	} else {
		d.sampleTimes[d.samplePos] = float64(sampleCycle)
		d.sampleValues[d.samplePos] = float64(enrouteFlits)
		d.samplePos = (d.samplePos + 1) % int(d.window)
	}

	if uint32(len(d.sampleTimes)) < d.window {
		return false, false
	}

	// Fast fail: the first full window's maximum sets the baseline; any
	// later sample three times over it means unbounded growth.
	if !d.fastFailSet {
		d.fastFailSet = true
		d.fastFailSample = d.sampleValues[0]
		for _, v := range d.sampleValues[1:] {
			if v > d.fastFailSample {
				d.fastFailSample = v
			}
		}
	} else if float64(enrouteFlits) > 3*d.fastFailSample {
		return false, true
	}

	d.attempts++
	_, slope := stat.LinearRegression(d.sampleTimes, d.sampleValues, nil, false)
	if slope <= 0 {
		return true, false
	}
	if d.attempts == d.maxAttempts {
		return false, true
	}

	return false, false
}

// clear drops the collected samples.
func (d *warmupDetector) clear() {
	d.sampleTimes = nil
	d.sampleValues = nil
	d.samplePos = 0
}
