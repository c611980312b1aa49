package openai

import (
	"context"
	"testing"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("expected an error for an empty API key")
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	p, err := New("test-key")
	if err != nil {
		t.Fatal(err)
	}
	if p.model != defaultModel {
		t.Errorf("model = %q, want %q", p.model, defaultModel)
	}
}

func TestNew_WithModel(t *testing.T) {
	t.Parallel()

	p, err := New("test-key", WithModel("gpt-4o"))
	if err != nil {
		t.Fatal(err)
	}
	if p.model != "gpt-4o" {
		t.Errorf("model = %q", p.model)
	}
}

func TestTranslate_EmptyTextShortCircuits(t *testing.T) {
	t.Parallel()

	p, err := New("test-key")
	if err != nil {
		t.Fatal(err)
	}
	// Must return without issuing a request.
	out, err := p.Translate(context.Background(), "   ", "en", "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("out = %q, want empty", out)
	}
}

func TestTranslate_RequiresTargetLang(t *testing.T) {
	t.Parallel()

	p, err := New("test-key")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Translate(context.Background(), "hello", "en", ""); err == nil {
		t.Error("expected an error for an empty target language")
	}
}

func TestDetectLang(t *testing.T) {
	t.Parallel()

	if got := detectLang("Der schnelle braune Fuchs springt über den faulen Hund und läuft davon"); got != "de" {
		t.Errorf("detectLang = %q, want %q", got, "de")
	}
	// Short fragments defeat reliable detection.
	if got := detectLang("ok"); got != "" {
		t.Errorf("detectLang(short) = %q, want empty", got)
	}
}
