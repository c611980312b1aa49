// Package wsstream provides a recognizer.Source backed by a streaming
// WebSocket transcript feed.
//
// The feed is a recognizer sidecar (or gateway in front of a cloud ASR
// service) that pushes JSON frames, one per message:
//
//	{"type":"partial","text":"he went to"}
//	{"type":"final","text":"he went to the store"}
//	{"type":"level","rms":0.031}
//	{"type":"error","class":"stream","message":"upstream reset"}
//
// Unknown frame types are ignored so the feed can evolve without breaking
// older clients. A transport-level read error is surfaced as a stream
// failure event before the channels close, so sessions can schedule a
// restart through their recovery policy.
package wsstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"

	"github.com/MrWong99/scriptpace/pkg/recognizer"
)

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithToken sets a bearer token sent in the Authorization header.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithLanguage sets the BCP-47 language tag requested from the feed.
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = language
	}
}

// WithEventBuffer sets the event channel buffer depth. Default: 64.
func WithEventBuffer(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.eventBuf = n
		}
	}
}

// Client dials streaming transcript sessions against a fixed endpoint. It
// is the production [recognizer.SourceFactory] backend: each call to
// [Client.Open] establishes a fresh WebSocket session.
type Client struct {
	endpoint string
	token    string
	language string
	eventBuf int
}

// New creates a Client for the given ws:// or wss:// endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("wsstream: endpoint must not be empty")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("wsstream: parse endpoint: %w", err)
	}
	c := &Client{endpoint: endpoint, eventBuf: 64}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Open dials the feed and returns a live [recognizer.Source]. It has the
// signature of a [recognizer.SourceFactory].
func (c *Client) Open(ctx context.Context) (recognizer.Source, error) {
	wsURL, err := c.buildURL()
	if err != nil {
		return nil, fmt.Errorf("wsstream: build URL: %w", err)
	}

	headers := http.Header{}
	if c.token != "" {
		headers.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("wsstream: dial: %w", err)
	}

	s := &session{
		conn:   conn,
		events: make(chan recognizer.Event, c.eventBuf),
		levels: make(chan float64, c.eventBuf),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.readLoop(ctx)
	return s, nil
}

// buildURL attaches the language query parameter to the endpoint.
func (c *Client) buildURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	if c.language != "" {
		q := u.Query()
		q.Set("language", c.language)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// frame is the JSON structure of one feed message.
type frame struct {
	Type    string  `json:"type"`
	Text    string  `json:"text"`
	Class   string  `json:"class"`
	Message string  `json:"message"`
	RMS     float64 `json:"rms"`
}

// session is a live feed connection. It implements recognizer.Source.
type session struct {
	conn   *websocket.Conn
	events chan recognizer.Event
	levels chan float64

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// Events implements recognizer.Source.
func (s *session) Events() <-chan recognizer.Event { return s.events }

// Levels implements recognizer.Source.
func (s *session) Levels() <-chan float64 { return s.levels }

// Close terminates the session. Safe to call more than once.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
		s.wg.Wait()
	})
	return nil
}

// readLoop receives feed frames and dispatches them to the event and level
// channels.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)
	defer close(s.levels)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			select {
			case <-s.done:
				// Intentional close; not a failure.
			default:
				s.deliver(recognizer.Event{
					Kind:  recognizer.KindFailure,
					Class: recognizer.FailureStream,
					Err:   fmt.Errorf("wsstream: read: %w", err),
				})
			}
			return
		}

		ev, lvl, kind := parseFrame(msg)
		switch kind {
		case frameEvent:
			s.deliver(ev)
		case frameLevel:
			select {
			case s.levels <- lvl:
			case <-s.done:
				return
			default:
				// Level samples are droppable; never block transcripts
				// behind a slow amplitude consumer.
			}
		}
	}
}

// deliver sends an event unless the session is closing.
func (s *session) deliver(ev recognizer.Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

type frameKind int

const (
	frameIgnore frameKind = iota
	frameEvent
	frameLevel
)

// parseFrame decodes one feed message. Malformed or unknown frames are
// ignored.
func parseFrame(data []byte) (recognizer.Event, float64, frameKind) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return recognizer.Event{}, 0, frameIgnore
	}

	switch f.Type {
	case "partial":
		return recognizer.Event{Kind: recognizer.KindPartial, Text: f.Text}, 0, frameEvent
	case "final":
		return recognizer.Event{Kind: recognizer.KindFinal, Text: f.Text}, 0, frameEvent
	case "level":
		return recognizer.Event{}, f.RMS, frameLevel
	case "error":
		ev := recognizer.Event{
			Kind:  recognizer.KindFailure,
			Class: classFromString(f.Class),
		}
		if f.Message != "" {
			ev.Err = errors.New(f.Message)
		}
		return ev, 0, frameEvent
	default:
		return recognizer.Event{}, 0, frameIgnore
	}
}

// classFromString maps a feed error class string to a FailureClass.
func classFromString(s string) recognizer.FailureClass {
	switch s {
	case "permission-denied":
		return recognizer.FailurePermissionDenied
	case "unavailable":
		return recognizer.FailureUnavailable
	case "audio-format":
		return recognizer.FailureAudioFormat
	case "device-change":
		return recognizer.FailureDeviceChange
	case "stream":
		return recognizer.FailureStream
	default:
		return recognizer.FailureUnknown
	}
}
