// Package audiolevel derives a speech-presence boolean from the recognizer's
// audio amplitude stream.
//
// Amplitude samples arrive at per-audio-buffer frequency from a producer
// that may run on its own goroutine; they are held in a fixed-capacity,
// drop-oldest ring. The derived signal has no interaction with alignment
// correctness — it only feeds listening indicators.
package audiolevel

import "sync"

// Default monitor parameters.
const (
	defaultCapacity  = 32
	defaultThreshold = 0.01
	defaultMinFrames = 3
)

// Monitor is a bounded ring of RMS amplitude samples with a threshold-based
// speech detector. When the ring is full the oldest sample is dropped.
//
// All methods are safe for concurrent use; Push may be called from a
// different goroutine than SpeechDetected.
type Monitor struct {
	mu      sync.RWMutex
	samples []float64
	head    int
	count   int

	threshold float64
	minFrames int
}

// Option is a functional option for configuring a [Monitor].
type Option func(*Monitor)

// WithCapacity sets the ring capacity in samples. Default: 32.
func WithCapacity(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.samples = make([]float64, n)
		}
	}
}

// WithThreshold sets the RMS level above which a sample counts as speech.
// Typical values are 0.001–0.1; lower is more sensitive. Default: 0.01.
func WithThreshold(t float64) Option {
	return func(m *Monitor) {
		if t > 0 {
			m.threshold = t
		}
	}
}

// WithMinFrames sets how many of the buffered samples must exceed the
// threshold before speech is reported, smoothing over single noisy buffers.
// Default: 3.
func WithMinFrames(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.minFrames = n
		}
	}
}

// NewMonitor returns a [Monitor] with the supplied options applied.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		samples:   make([]float64, defaultCapacity),
		threshold: defaultThreshold,
		minFrames: defaultMinFrames,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Push records one RMS sample, dropping the oldest if the ring is full.
func (m *Monitor) Push(rms float64) {
	m.mu.Lock()
	m.samples[m.head] = rms
	m.head = (m.head + 1) % len(m.samples)
	if m.count < len(m.samples) {
		m.count++
	}
	m.mu.Unlock()
}

// SpeechDetected reports whether at least minFrames of the buffered samples
// exceed the threshold.
func (m *Monitor) SpeechDetected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hot := 0
	for i := 0; i < m.count; i++ {
		if m.samples[i] > m.threshold {
			hot++
			if hot >= m.minFrames {
				return true
			}
		}
	}
	return false
}

// Len returns the number of samples currently buffered.
func (m *Monitor) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// Reset clears all buffered samples.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.head = 0
	m.count = 0
	m.mu.Unlock()
}
