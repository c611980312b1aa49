// Package mock provides a test double for the translate package.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/scriptpace/pkg/translate"
)

// TranslateCall records a single invocation of Provider.Translate.
type TranslateCall struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Provider is a mock implementation of translate.Provider. The zero value
// echoes the input text prefixed with the target language tag.
type Provider struct {
	mu sync.Mutex

	// Responses maps source text to the translation to return. Texts not in
	// the map fall back to the default echo behaviour.
	Responses map[string]string

	// Err, if non-nil, is returned from every Translate call.
	Err error

	// Delay, if positive, is waited before responding, honoring ctx
	// cancellation. Simulates a slow translation backend.
	Delay time.Duration

	// Calls records every invocation.
	Calls []TranslateCall
}

// Translate records the call and returns the configured response.
func (p *Provider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, TranslateCall{Text: text, SourceLang: sourceLang, TargetLang: targetLang})
	err := p.Err
	resp, scripted := p.Responses[text]
	delay := p.Delay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if scripted {
		return resp, nil
	}
	return "[" + targetLang + "] " + text, nil
}

// CallCount returns the number of recorded Translate calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Compile-time assertion that Provider satisfies translate.Provider.
var _ translate.Provider = (*Provider)(nil)
