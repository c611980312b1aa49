// Package mock provides a scripted test double for the recognizer package.
//
// Pre-populate EventsCh (and optionally LevelsCh) with the values the
// consumer should receive, or use the Emit helpers to feed events while the
// consumer is running. Close the channels via Finish when done.
//
// Example:
//
//	src := mock.New(8)
//	src.EmitPartial("hello wor")
//	src.EmitFinal("hello world")
//	src.Finish()
package mock

import (
	"sync"

	"github.com/MrWong99/scriptpace/pkg/recognizer"
)

// Source is a scripted implementation of [recognizer.Source].
type Source struct {
	// EventsCh delivers the scripted events. Created by [New]; may also be
	// supplied directly for full control over buffering.
	EventsCh chan recognizer.Event

	// LevelsCh delivers scripted RMS samples. May be nil.
	LevelsCh chan float64

	mu       sync.Mutex
	closed   bool
	finished bool

	// CloseCalls counts invocations of Close.
	CloseCalls int
}

// New returns a Source whose event channel is buffered to depth buf and
// whose level channel is buffered to the same depth.
func New(buf int) *Source {
	return &Source{
		EventsCh: make(chan recognizer.Event, buf),
		LevelsCh: make(chan float64, buf),
	}
}

// Events implements [recognizer.Source].
func (s *Source) Events() <-chan recognizer.Event { return s.EventsCh }

// Levels implements [recognizer.Source].
func (s *Source) Levels() <-chan float64 { return s.LevelsCh }

// Close implements [recognizer.Source]. It closes the channels on first call.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	if !s.closed {
		s.closed = true
		s.finishLocked()
	}
	return nil
}

// EmitPartial queues a partial transcript event.
func (s *Source) EmitPartial(text string) {
	s.EventsCh <- recognizer.Event{Kind: recognizer.KindPartial, Text: text}
}

// EmitFinal queues a final transcript event.
func (s *Source) EmitFinal(text string) {
	s.EventsCh <- recognizer.Event{Kind: recognizer.KindFinal, Text: text}
}

// EmitFailure queues a failure event of the given class.
func (s *Source) EmitFailure(class recognizer.FailureClass, err error) {
	s.EventsCh <- recognizer.Event{Kind: recognizer.KindFailure, Class: class, Err: err}
}

// EmitLevel queues an RMS amplitude sample.
func (s *Source) EmitLevel(rms float64) {
	if s.LevelsCh != nil {
		s.LevelsCh <- rms
	}
}

// Finish closes the event and level channels without marking the source
// closed. Safe to call at most once; Close after Finish is still safe.
func (s *Source) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked()
}

func (s *Source) finishLocked() {
	if s.finished {
		return
	}
	s.finished = true
	close(s.EventsCh)
	if s.LevelsCh != nil {
		close(s.LevelsCh)
	}
}

// Compile-time assertion that Source satisfies recognizer.Source.
var _ recognizer.Source = (*Source)(nil)
