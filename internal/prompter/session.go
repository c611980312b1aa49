package prompter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/scriptpace/internal/audiolevel"
	"github.com/MrWong99/scriptpace/internal/observe"
	"github.com/MrWong99/scriptpace/internal/recovery"
	"github.com/MrWong99/scriptpace/pkg/recognizer"
)

// SessionConfig holds the dependencies and tuning for a teleprompter
// [Session].
type SessionConfig struct {
	// Factory opens recognition sessions. Required.
	Factory recognizer.SourceFactory

	// Recovery tunes the restart policy.
	Recovery recovery.Config

	// TrackerOptions configure the aligners of each new tracker.
	TrackerOptions []TrackerOption

	// Metrics overrides the metrics instance. Default: observe.DefaultMetrics().
	Metrics *observe.Metrics

	// Levels overrides the audio-level monitor. Default: a fresh monitor
	// with package defaults.
	Levels *audiolevel.Monitor
}

// Session drives a [Tracker] from a recognizer source. All alignment state
// is mutated by a single event-loop goroutine that serializes recognizer
// events, restart-timer firings, and user commands (jump); the exported
// methods only read synchronized snapshots or enqueue commands.
//
// All exported methods are safe for concurrent use.
type Session struct {
	cfg     SessionConfig
	sched   *recovery.Scheduler
	metrics *observe.Metrics
	levels  *audiolevel.Monitor

	mu        sync.Mutex
	tracker   *Tracker
	confirmed int
	running   bool
	listening bool
	lastErr   error
	cancel    context.CancelFunc
	done      chan struct{}
	cmds      chan func()
}

// NewSession creates a teleprompter session. The session owns no goroutines
// until [Session.Start] is called.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Factory == nil {
		return nil, errors.New("prompter: SessionConfig.Factory is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Levels == nil {
		cfg.Levels = audiolevel.NewMonitor()
	}
	return &Session{
		cfg:     cfg,
		sched:   recovery.NewScheduler(cfg.Recovery),
		metrics: cfg.Metrics,
		levels:  cfg.Levels,
	}, nil
}

// Start begins a new reading session against referenceText, resetting all
// alignment state. Returns an error if the session is already listening.
func (s *Session) Start(ctx context.Context, referenceText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("prompter: session is already listening")
	}
	s.tracker = NewTracker(NewScript(referenceText), s.cfg.TrackerOptions...)
	s.confirmed = 0
	s.sched.Reset()
	return s.launchLocked(ctx)
}

// Resume restarts listening after a [Session.Stop], keeping the reference
// script and all alignment progress. Returns an error if no session was
// started or the session is already listening.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return errors.New("prompter: no session to resume")
	}
	if s.running {
		return errors.New("prompter: session is already listening")
	}
	return s.launchLocked(ctx)
}

// launchLocked starts the event loop. Caller holds s.mu.
func (s *Session) launchLocked(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.listening = true
	s.lastErr = nil
	s.cancel = cancel
	s.done = make(chan struct{})
	s.cmds = make(chan func(), 8)
	go s.run(runCtx, s.done, s.cmds)
	return nil
}

// Stop tears down the event loop. Pending restart timers are cancelled
// before state is released. Alignment progress survives; use
// [Session.Resume] to continue or [Session.Start] for a fresh script.
// Safe to call when not listening.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.running = false
	s.listening = false
	s.mu.Unlock()
}

// JumpTo moves the progress cursor to offset (runes into the display form
// of the reference). This is the only sanctioned regression path; it also
// resets the retry budget. When the session is listening the jump is
// serialized through the event loop so it cannot race an alignment pass.
func (s *Session) JumpTo(offset int) {
	s.mu.Lock()
	if !s.running {
		if s.tracker != nil {
			s.tracker.JumpTo(offset)
			s.confirmed = s.tracker.ConfirmedOffset()
			s.sched.Reset()
		}
		s.mu.Unlock()
		return
	}
	cmds, done := s.cmds, s.done
	s.mu.Unlock()

	select {
	case cmds <- func() {
		s.applyJump(offset)
	}:
	case <-done:
		s.mu.Lock()
		if s.tracker != nil {
			s.tracker.JumpTo(offset)
			s.confirmed = s.tracker.ConfirmedOffset()
		}
		s.mu.Unlock()
		s.sched.Reset()
	}
}

// applyJump runs on the event loop goroutine.
func (s *Session) applyJump(offset int) {
	s.mu.Lock()
	s.tracker.JumpTo(offset)
	s.confirmed = s.tracker.ConfirmedOffset()
	s.mu.Unlock()
	s.sched.Reset()
	slog.Info("progress jump", "offset", offset)
}

// ConfirmedOffset returns the current progress cursor: the highest offset
// reached, in runes into the display form of the reference.
func (s *Session) ConfirmedOffset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

// ScriptLen returns the reference length the cursor is bounded by, or 0
// when no session was started.
func (s *Session) ScriptLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return 0
	}
	return s.tracker.Script().Len()
}

// IsListening reports whether the event loop is running and not in a
// terminal error state.
func (s *Session) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Err returns the terminal error, if the session entered one.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// SpeechDetected reports whether the audio-level monitor currently sees
// speech.
func (s *Session) SpeechDetected() bool {
	return s.levels.SpeechDetected()
}

// terminal records a terminal error and forces the listening flag false.
func (s *Session) terminal(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.listening = false
	s.mu.Unlock()
	slog.Error("prompter session terminal", "error", err)
}

// run is the session event loop: the sole mutator of the tracker and the
// sole owner of the restart timer.
func (s *Session) run(ctx context.Context, done chan struct{}, cmds chan func()) {
	defer close(done)

	s.metrics.ActiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveSessions.Add(context.Background(), -1)

	var (
		src    recognizer.Source
		events <-chan recognizer.Event
		levels <-chan float64

		restart  *time.Timer
		restartC <-chan time.Time
	)

	stopTimer := func(t *time.Timer, c <-chan time.Time) {
		if t != nil && !t.Stop() && c != nil {
			select {
			case <-c:
			default:
			}
		}
	}

	closeSource := func() {
		if src != nil {
			if err := src.Close(); err != nil {
				slog.Debug("recognizer close failed", "error", err)
			}
			src = nil
			events = nil
			levels = nil
		}
	}

	defer func() {
		stopTimer(restart, restartC)
		closeSource()
	}()

	open := func() bool {
		var err error
		src, err = s.cfg.Factory(ctx)
		if err != nil {
			slog.Warn("recognizer open failed", "error", err)
			return false
		}
		events = src.Events()
		levels = src.Levels()
		return true
	}

	scheduleRestart := func(class recognizer.FailureClass, cause error) bool {
		delay, err := s.sched.Next(class)
		if err != nil {
			if cause == nil {
				cause = err
			}
			s.terminal(fmt.Errorf("prompter: recognizer failure (%s): %w", class, cause))
			return false
		}
		s.metrics.RecordRestart(ctx, class.String())
		slog.Info("recognizer restart scheduled",
			"class", class.String(),
			"attempt", s.sched.RetryCount(),
			"delay", delay,
		)
		if restart == nil {
			restart = time.NewTimer(delay)
		} else {
			stopTimer(restart, restartC)
			restart.Reset(delay)
		}
		restartC = restart.C
		return true
	}

	if !open() {
		if !scheduleRestart(recognizer.FailureStream, nil) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case fn := <-cmds:
			fn()

		case ev, ok := <-events:
			if !ok {
				// A source that ends without a preceding failure event is
				// still a dead stream; recover the same way.
				s.metrics.RecordFailure(ctx, recognizer.FailureStream.String())
				closeSource()
				if !scheduleRestart(recognizer.FailureStream, errors.New("event stream closed")) {
					return
				}
				continue
			}
			switch ev.Kind {
			case recognizer.KindPartial, recognizer.KindFinal:
				s.sched.Reset()
				start := time.Now()
				s.mu.Lock()
				s.confirmed = s.tracker.OnRecognized(ev.Text, ev.Kind == recognizer.KindFinal)
				s.mu.Unlock()
				s.metrics.AlignDuration.Record(ctx, time.Since(start).Seconds())

			case recognizer.KindFailure:
				s.metrics.RecordFailure(ctx, ev.Class.String())
				closeSource()
				if !scheduleRestart(ev.Class, ev.Err) {
					return
				}
			}

		case <-restartC:
			restartC = nil
			if !open() {
				if !scheduleRestart(recognizer.FailureStream, nil) {
					return
				}
			}

		case lvl, ok := <-levels:
			if !ok {
				levels = nil
				continue
			}
			s.levels.Push(lvl)
		}
	}
}
