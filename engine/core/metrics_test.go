package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameMetrics(t *testing.T) {
	m := NewFrameMetrics()
	for i := 0; i < int(AVG_COUNT)-1; i++ {
		m.Update(10 * time.Millisecond)
	}
	// the average is only published once the window is full
	assert.Zero(t, m.FrameTime())
	m.Update(10 * time.Millisecond)
	assert.InDelta(t, 10, m.FrameTime(), 1e-9)

	assert.Zero(t, m.FPS())
	for i := 0; i < 70; i++ {
		m.Update(10 * time.Millisecond)
	}
	assert.EqualValues(t, 100, m.FPS())
	assert.EqualValues(t, 100, m.TotalFrames())
}

func TestClock(t *testing.T) {
	now := time.Unix(100, 0)
	c := NewClock()
	c.now = func() time.Time { return now }

	c.Update()
	assert.Zero(t, c.Elapsed())

	c.Start()
	now = now.Add(1500 * time.Millisecond)
	c.Update()
	assert.Equal(t, 1500*time.Millisecond, c.Elapsed())

	c.Stop()
	now = now.Add(time.Second)
	c.Update()
	assert.Equal(t, 1500*time.Millisecond, c.Elapsed())
}
