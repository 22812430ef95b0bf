package core

import "time"

const AVG_COUNT uint8 = 30

// FrameMetrics keeps a rolling average of frame times and the frames per second
// measured over the last full second.
type FrameMetrics struct {
	frameAVGCounter    uint8
	msTimes            [AVG_COUNT]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
	totalFrames        uint64
}

func NewFrameMetrics() *FrameMetrics {
	return &FrameMetrics{}
}

func (m *FrameMetrics) Update(frameElapsed time.Duration) {
	// Calculate frame ms average
	frameMS := float64(frameElapsed) / float64(time.Millisecond)
	m.msTimes[m.frameAVGCounter] = frameMS
	if m.frameAVGCounter == AVG_COUNT-1 {
		m.msAvg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			m.msAvg += m.msTimes[i]
		}
		m.msAvg /= float64(AVG_COUNT)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= AVG_COUNT

	// Calculate frames per second.
	m.accumulatedFrameMS += frameMS
	m.frames++
	if m.accumulatedFrameMS >= 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	m.totalFrames++
}

func (m *FrameMetrics) FPS() float64 {
	return m.fps
}

// FrameTime is the average frame time in milliseconds over the last AVG_COUNT frames.
func (m *FrameMetrics) FrameTime() float64 {
	return m.msAvg
}

func (m *FrameMetrics) TotalFrames() uint64 {
	return m.totalFrames
}
