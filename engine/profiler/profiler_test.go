package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by step on every read.
func fakeClock(step time.Duration) func() time.Time {
	t := time.Unix(0, 0)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestMeasureRecordsStages(t *testing.T) {
	p := NewProfiler()
	p.now = fakeClock(5 * time.Millisecond)

	p.Measure("swapchain")()
	p.Measure("pipeline")()
	p.Measure("swapchain")()

	s, ok := p.Stats("swapchain")
	require.True(t, ok)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 5*time.Millisecond, s.Last)
	assert.Equal(t, 10*time.Millisecond, s.Total)
	assert.Equal(t, 5*time.Millisecond, s.Mean())
	assert.Equal(t, []string{"swapchain", "pipeline"}, p.Stages())

	_, ok = p.Stats("render_target")
	assert.False(t, ok)
}

func TestRecordTracksMax(t *testing.T) {
	p := NewProfiler()
	p.Record("negotiate", 2*time.Millisecond)
	p.Record("negotiate", 9*time.Millisecond)
	p.Record("negotiate", 4*time.Millisecond)

	s, _ := p.Stats("negotiate")
	assert.Equal(t, 9*time.Millisecond, s.Max)
	assert.Equal(t, 4*time.Millisecond, s.Last)
}

func TestNilProfilerIsSafe(t *testing.T) {
	var p *Profiler
	assert.NotPanics(t, func() {
		p.Measure("x")()
		p.Record("x", time.Second)
		p.Report()
		assert.False(t, p.Tick())
		_, ok := p.Stats("x")
		assert.False(t, ok)
		assert.Nil(t, p.Stages())
	})
}

func TestTickReportsAfterInterval(t *testing.T) {
	p := NewProfiler()
	p.now = fakeClock(400 * time.Millisecond)
	p.lastTime = time.Unix(0, 0)

	assert.False(t, p.Tick())
	assert.False(t, p.Tick())
	assert.True(t, p.Tick())
	assert.Zero(t, p.frameCount)
}

func TestStatsMeanEmpty(t *testing.T) {
	assert.Zero(t, Stats{}.Mean())
}
