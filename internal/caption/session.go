package caption

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/scriptpace/internal/audiolevel"
	"github.com/MrWong99/scriptpace/internal/observe"
	"github.com/MrWong99/scriptpace/internal/recovery"
	"github.com/MrWong99/scriptpace/pkg/recognizer"
	"github.com/MrWong99/scriptpace/pkg/translate"
)

// defaultSilenceTimeout is how long a partial transcript must stay unchanged
// before it is committed. This is the principal defense against a recognizer
// that never emits a final result.
const defaultSilenceTimeout = 1100 * time.Millisecond

// downstreamTimeout bounds fire-and-forget translation and archive calls.
const downstreamTimeout = 15 * time.Second

// Archiver persists committed segments. Implementations are called
// fire-and-forget; errors are logged and counted, never propagated.
type Archiver interface {
	Save(ctx context.Context, seg Segment) error
}

// Sink receives the joined translated text of the currently visible segment
// window on every commit and every translation arrival. Best-effort.
type Sink interface {
	WriteWindow(text string) error
}

// SessionConfig holds the dependencies and tuning for a captioning [Session].
type SessionConfig struct {
	// Factory opens recognition sessions. Required.
	Factory recognizer.SourceFactory

	// Segmenter tunes the finalize triggers.
	Segmenter SegmenterConfig

	// SilenceTimeout overrides the silence-commit window. Default: 1.1s.
	SilenceTimeout time.Duration

	// Recovery tunes the restart policy.
	Recovery recovery.Config

	// MaxSegments bounds the display store. Default: 6.
	MaxSegments int

	// Translator translates committed segments. Optional; when nil the
	// sink receives source text instead.
	Translator translate.Provider

	// SourceLang is the BCP-47 source language tag, or empty for
	// auto-detection by the translator.
	SourceLang string

	// TargetLang is the BCP-47 target language tag. Required when
	// Translator is set.
	TargetLang string

	// Sink receives the caption window. Optional.
	Sink Sink

	// Archive persists committed segments. Optional.
	Archive Archiver

	// Metrics overrides the metrics instance. Default: observe.DefaultMetrics().
	Metrics *observe.Metrics

	// Levels overrides the audio-level monitor. Default: a fresh monitor
	// with package defaults.
	Levels *audiolevel.Monitor
}

// translated carries an asynchronous translation result back into the
// session event loop.
type translated struct {
	sequence int
	text     string
}

// Session drives a [Segmenter] from a recognizer source. All segmentation
// state is mutated by a single event-loop goroutine that serializes
// recognizer events, silence-timer firings, restart-timer firings, and
// translation completions; timers are single-shot and coalesced (arming one
// cancels the pending one).
//
// All exported methods are safe for concurrent use.
type Session struct {
	cfg     SessionConfig
	seg     *Segmenter
	store   *Store
	sched   *recovery.Scheduler
	metrics *observe.Metrics
	levels  *audiolevel.Monitor

	mu        sync.Mutex
	running   bool
	listening bool
	lastErr   error
	cancel    context.CancelFunc
	done      chan struct{}
	results   chan translated
}

// NewSession creates a captioning session. The session owns no goroutines
// until [Session.StartListening] is called.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Factory == nil {
		return nil, errors.New("caption: SessionConfig.Factory is required")
	}
	if cfg.Translator != nil && cfg.TargetLang == "" {
		return nil, errors.New("caption: TargetLang is required when a Translator is set")
	}
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = defaultSilenceTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Levels == nil {
		cfg.Levels = audiolevel.NewMonitor()
	}
	return &Session{
		cfg:     cfg,
		seg:     NewSegmenter(cfg.Segmenter),
		store:   NewStore(cfg.MaxSegments),
		sched:   recovery.NewScheduler(cfg.Recovery),
		metrics: cfg.Metrics,
		levels:  cfg.Levels,
	}, nil
}

// StartListening opens a recognition session and starts the event loop.
// Returns an error if the session is already listening. Segments and
// sequence numbering survive across stop/start cycles.
func (s *Session) StartListening(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("caption: session is already listening")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.listening = true
	s.lastErr = nil
	s.cancel = cancel
	s.done = make(chan struct{})
	// Unbuffered on purpose: a send succeeds only when the event loop
	// actually consumes the result, so a translation finishing after
	// teardown always takes the done branch instead of vanishing into a
	// buffer nobody drains.
	s.results = make(chan translated)

	go s.run(runCtx, s.done, s.results)
	return nil
}

// StopListening tears down the event loop, force-committing any non-empty
// pending buffer first. Pending timers are cancelled before state is
// released, so no stale firing can mutate a stopped session. Safe to call
// when not listening.
func (s *Session) StopListening() {
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

// ClearOutput drops all displayed segments and blanks the sink. Sequence
// numbering continues from where it was.
func (s *Session) ClearOutput() {
	s.store.Clear()
	if s.cfg.Sink != nil {
		if err := s.cfg.Sink.WriteWindow(""); err != nil {
			slog.Warn("caption sink clear failed", "error", err)
		}
	}
}

// Segments returns the currently visible committed segments, oldest first.
func (s *Session) Segments() []Segment {
	return s.store.Window()
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
// The event loop exits right after calling it.
func (s *Session) terminal(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.listening = false
	s.mu.Unlock()
	slog.Error("caption session terminal", "error", err)
}

// run is the session event loop. It is the sole mutator of the segmenter
// and the sole owner of the silence and restart timers.
func (s *Session) run(ctx context.Context, done chan struct{}, results chan translated) {
	defer close(done)

	s.metrics.ActiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveSessions.Add(context.Background(), -1)

	var (
		src    recognizer.Source
		events <-chan recognizer.Event
		levels <-chan float64

		silence   *time.Timer
		silenceC  <-chan time.Time
		scheduled string

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
		// Cancel timers before touching state so a stale firing cannot
		// race the flush.
		stopTimer(silence, silenceC)
		stopTimer(restart, restartC)
		closeSource()
		if seg := s.seg.Flush(time.Now()); seg != nil {
			s.dispatch(*seg)
		}
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

	// scheduleRestart arms the single pending restart timer, replacing any
	// pending one. Returns false when the session must go terminal.
	scheduleRestart := func(class recognizer.FailureClass, cause error) bool {
		delay, err := s.sched.Next(class)
		if err != nil {
			if cause == nil {
				cause = fmt.Errorf("caption: recognizer failure (%s): %w", class, err)
			} else {
				cause = fmt.Errorf("caption: recognizer failure (%s): %w", class, cause)
			}
			s.terminal(cause)
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

		case ev, ok := <-events:
			if !ok {
				// A source that ends without a preceding failure event is
				// still a dead stream; recover the same way.
				s.metrics.RecordFailure(ctx, recognizer.FailureStream.String())
				closeSource()
				stopTimer(silence, silenceC)
				silenceC = nil
				if !scheduleRestart(recognizer.FailureStream, errors.New("event stream closed")) {
					return
				}
				continue
			}
			switch ev.Kind {
			case recognizer.KindPartial, recognizer.KindFinal:
				s.sched.Reset()
				isFinal := ev.Kind == recognizer.KindFinal
				if seg := s.seg.Process(ev.Text, isFinal, time.Now()); seg != nil {
					s.dispatch(*seg)
				}
				if isFinal {
					stopTimer(silence, silenceC)
					silenceC = nil
					continue
				}
				// Arm (or re-arm) the coalesced silence timer with
				// a snapshot of the transcript it vouches for.
				scheduled = ev.Text
				if silence == nil {
					silence = time.NewTimer(s.cfg.SilenceTimeout)
				} else {
					stopTimer(silence, silenceC)
					silence.Reset(s.cfg.SilenceTimeout)
				}
				silenceC = silence.C

			case recognizer.KindFailure:
				s.metrics.RecordFailure(ctx, ev.Class.String())
				closeSource()
				stopTimer(silence, silenceC)
				silenceC = nil
				if !scheduleRestart(ev.Class, ev.Err) {
					return
				}
			}

		case <-silenceC:
			silenceC = nil
			if seg := s.seg.CommitOnSilence(scheduled, time.Now()); seg != nil {
				s.dispatch(*seg)
			}

		case <-restartC:
			restartC = nil
			if !open() {
				if !scheduleRestart(recognizer.FailureStream, nil) {
					return
				}
			}

		case res := <-results:
			s.store.SetTranslation(res.sequence, res.text)
			s.writeWindow()

		case lvl, ok := <-levels:
			if !ok {
				levels = nil
				continue
			}
			s.levels.Push(lvl)
		}
	}
}

// dispatch publishes a committed segment: display store, metrics, sink, and
// the fire-and-forget translation and archive collaborators. Downstream
// failures are logged and counted only.
func (s *Session) dispatch(seg Segment) {
	s.store.Add(seg)
	s.metrics.RecordCommit(context.Background(), string(seg.Reason))
	slog.Info("caption segment committed",
		"sequence", seg.Sequence,
		"reason", string(seg.Reason),
		"text", seg.SourceText,
	)
	s.writeWindow()

	s.mu.Lock()
	done, results := s.done, s.results
	s.mu.Unlock()

	if s.cfg.Translator != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), downstreamTimeout)
			defer cancel()
			out, err := s.cfg.Translator.Translate(ctx, seg.SourceText, s.cfg.SourceLang, s.cfg.TargetLang)
			if err != nil {
				s.metrics.RecordDownstreamError(ctx, "translate")
				slog.Warn("translation failed", "sequence", seg.Sequence, "error", err)
				return
			}
			// results is unbuffered: either the event loop receives the
			// result, or done closes once the loop has exited and the
			// translation is applied against the synchronized store.
			select {
			case results <- translated{sequence: seg.Sequence, text: out}:
			case <-done:
				s.store.SetTranslation(seg.Sequence, out)
				s.writeWindow()
			}
		}()
	}

	if s.cfg.Archive != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), downstreamTimeout)
			defer cancel()
			if err := s.cfg.Archive.Save(ctx, seg); err != nil {
				s.metrics.RecordDownstreamError(ctx, "archive")
				slog.Warn("segment archive failed", "sequence", seg.Sequence, "error", err)
			}
		}()
	}
}

// writeWindow pushes the joined visible window to the sink. Segments whose
// translation has not arrived yet are skipped; without a translator the
// source text is used.
func (s *Session) writeWindow() {
	if s.cfg.Sink == nil {
		return
	}
	segs := s.store.Window()
	parts := make([]string, 0, len(segs))
	for _, seg := range segs {
		text := seg.TranslatedText
		if text == "" && s.cfg.Translator == nil {
			text = seg.SourceText
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	if err := s.cfg.Sink.WriteWindow(strings.Join(parts, "\n")); err != nil {
		s.metrics.RecordDownstreamError(context.Background(), "sink")
		slog.Warn("caption sink write failed", "error", err)
	}
}
