// Package translate defines the Provider interface for machine translation
// of committed caption segments.
//
// Translation is a fire-and-forget collaborator: the captioning session
// invokes it exactly once per committed segment, asynchronously, and a
// translation failure never affects segmentation state.
package translate

import "context"

// Provider is the abstraction over any translation backend.
//
// Implementations must be safe for concurrent use; the captioning session
// may have several translations in flight at once.
type Provider interface {
	// Translate returns text rendered into targetLang. sourceLang is a
	// BCP-47 tag or empty to let the provider detect the source language.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
