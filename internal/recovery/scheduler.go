// Package recovery implements the capped, coalesced restart policy for the
// upstream recognizer.
//
// The [Scheduler] only decides — it owns no timers. The session event loop
// asks it for a restart delay on each recoverable failure and arms a single
// pending restart timer with the result; scheduling a new restart replaces
// any pending one, so at most one restart is ever in flight. A successful
// recognized result or an explicit jump resets the retry budget.
package recovery

import (
	"errors"
	"sync"
	"time"

	"github.com/MrWong99/scriptpace/pkg/recognizer"
)

// Default policy parameters.
const (
	defaultMaxRetries        = 5
	defaultStepDelay         = 500 * time.Millisecond
	defaultMaxDelay          = 1500 * time.Millisecond
	defaultAudioFormatDelay  = 250 * time.Millisecond
	defaultDeviceChangeDelay = time.Second
)

// ErrRetriesExhausted is returned by [Scheduler.Next] once the retry budget
// is spent. The session must surface an error and stop; no further restarts
// are scheduled.
var ErrRetriesExhausted = errors.New("recovery: retries exhausted")

// ErrNotRecoverable is returned by [Scheduler.Next] for failure classes that
// must never be retried (permission denied, recognizer unavailable).
var ErrNotRecoverable = errors.New("recovery: failure class is not recoverable")

// Config holds the tuning knobs for a [Scheduler]. Zero values select the
// package defaults.
type Config struct {
	// MaxRetries is the number of consecutive recoverable failures allowed
	// before the session goes terminal. Default: 5.
	MaxRetries int

	// StepDelay is the per-retry backoff increment for stream errors: the
	// n-th retry waits n*StepDelay, capped at MaxDelay. Default: 500ms.
	StepDelay time.Duration

	// MaxDelay caps the stream-error backoff. Default: 1.5s.
	MaxDelay time.Duration

	// AudioFormatDelay is the fixed delay before restarting after a
	// transient invalid-audio-format failure. Default: 250ms.
	AudioFormatDelay time.Duration

	// DeviceChangeDelay is the fixed delay before restarting after a device
	// configuration change. Default: 1s.
	DeviceChangeDelay time.Duration
}

// Scheduler tracks the retry budget and computes restart delays per failure
// class. All methods are safe for concurrent use, though in practice every
// call arrives from a single session event loop.
type Scheduler struct {
	cfg Config

	mu         sync.Mutex
	retryCount int
	lastClass  recognizer.FailureClass
}

// NewScheduler returns a [Scheduler] with zero fields of cfg replaced by the
// package defaults.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = defaultStepDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.AudioFormatDelay <= 0 {
		cfg.AudioFormatDelay = defaultAudioFormatDelay
	}
	if cfg.DeviceChangeDelay <= 0 {
		cfg.DeviceChangeDelay = defaultDeviceChangeDelay
	}
	return &Scheduler{cfg: cfg}
}

// Next consumes one retry for a failure of the given class and returns the
// delay after which the recognizer should be restarted.
//
// It returns [ErrNotRecoverable] for fatal classes and [ErrRetriesExhausted]
// when the budget is spent; in both cases no retry is consumed and the
// caller must not reschedule.
func (s *Scheduler) Next(class recognizer.FailureClass) (time.Duration, error) {
	if !class.Recoverable() {
		return 0, ErrNotRecoverable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retryCount >= s.cfg.MaxRetries {
		return 0, ErrRetriesExhausted
	}
	s.retryCount++
	s.lastClass = class

	switch class {
	case recognizer.FailureAudioFormat:
		return s.cfg.AudioFormatDelay, nil
	case recognizer.FailureDeviceChange:
		return s.cfg.DeviceChangeDelay, nil
	default:
		delay := time.Duration(s.retryCount) * s.cfg.StepDelay
		if delay > s.cfg.MaxDelay {
			delay = s.cfg.MaxDelay
		}
		return delay, nil
	}
}

// Reset clears the retry budget. Called when a session produces a recognized
// result or the user performs an explicit jump.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.retryCount = 0
	s.mu.Unlock()
}

// RetryCount returns the number of retries consumed since the last reset.
func (s *Scheduler) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCount
}

// LastFailure returns the class of the most recent failure that consumed a
// retry.
func (s *Scheduler) LastFailure() recognizer.FailureClass {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastClass
}
