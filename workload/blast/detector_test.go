package blast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func feed(
	d *warmupDetector,
	flitsPerMsg int,
	cycleStep uint64,
	enroute []int,
) (warmed, saturated bool, samplesTaken int) {
	cycle := uint64(0)
	for _, e := range enroute {
		cycle += cycleStep
		w, s := d.observe(flitsPerMsg, cycle, e)
		samplesTaken++
		if w || s {
			return w, s, samplesTaken
		}
	}
	return false, false, samplesTaken
}

func TestDetectorWarmsImmediatelyWithoutInterval(t *testing.T) {
	d := newWarmupDetector(0, 5, 3)

	warmed, saturated := d.observe(4, 100, 10)
	assert.True(t, warmed)
	assert.False(t, saturated)
	assert.Empty(t, d.sampleTimes)
}

func TestDetectorAccumulatesFlitsUntilTheInterval(t *testing.T) {
	d := newWarmupDetector(100, 5, 3)

	for i := 0; i < 9; i++ {
		warmed, saturated := d.observe(10, uint64(i), 50)
		assert.False(t, warmed)
		assert.False(t, saturated)
	}
	assert.Empty(t, d.sampleTimes, "no sample before the interval fills")

	d.observe(10, 10, 50)
	assert.Len(t, d.sampleTimes, 1)
}

func TestDetectorWarmsOnFlatEnrouteCount(t *testing.T) {
	d := newWarmupDetector(10, 5, 3)

	// Constant enroute count: the first full-window regression sees slope 0.
	warmed, saturated, samples := feed(d, 10, 100, []int{50, 50, 50, 50, 50})
	assert.True(t, warmed)
	assert.False(t, saturated)
	assert.Equal(t, 5, samples)
}

func TestDetectorWarmsOnFallingEnrouteCount(t *testing.T) {
	d := newWarmupDetector(10, 5, 3)

	warmed, saturated, _ := feed(d, 10, 100, []int{90, 80, 70, 60, 50})
	assert.True(t, warmed)
	assert.False(t, saturated)
}

func TestDetectorSaturatesAfterMaxAttempts(t *testing.T) {
	d := newWarmupDetector(10, 5, 3)

	// Gently growing: positive slope on every attempt, never three times
	// the first window's maximum.
	warmed, saturated, samples := feed(d, 10, 100,
		[]int{100, 101, 102, 103, 104, 105, 106})
	assert.False(t, warmed)
	assert.True(t, saturated)
	assert.Equal(t, 7, samples,
		"window fill, whose sample is the first attempt, plus two more")
}

func TestDetectorFastFailsOnExplosiveGrowth(t *testing.T) {
	d := newWarmupDetector(10, 5, 100)

	// The first window tops out at 104; the next sample blows through
	// three times that.
	warmed, saturated, samples := feed(d, 10, 100,
		[]int{100, 101, 102, 103, 104, 400})
	assert.False(t, warmed)
	assert.True(t, saturated)
	assert.Equal(t, 6, samples)
}

func TestDetectorClearDropsSamples(t *testing.T) {
	d := newWarmupDetector(10, 5, 3)

	feed(d, 10, 100, []int{1, 2, 3})
	d.clear()
	assert.Empty(t, d.sampleTimes)
	assert.Empty(t, d.sampleValues)
}
