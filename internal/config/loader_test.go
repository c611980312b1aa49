package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validCaptionYAML = `
mode: caption
server:
  metrics_addr: ":9090"
  log_level: debug
recognizer:
  endpoint: "wss://stt.example.com/v1/stream"
  token: "secret"
  language: "en"
segmenter:
  target_words: 7
  silence_ms: 900
translate:
  provider: openai
  api_key: "key"
  target_lang: "de"
`

func TestLoadFromReader_ValidCaption(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(validCaptionYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeCaption {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("LogLevel = %q", cfg.Server.LogLevel)
	}
	if cfg.Recognizer.Endpoint != "wss://stt.example.com/v1/stream" {
		t.Errorf("Endpoint = %q", cfg.Recognizer.Endpoint)
	}
	if cfg.Segmenter.TargetWords != 7 {
		t.Errorf("TargetWords = %d", cfg.Segmenter.TargetWords)
	}
	if cfg.Translate.TargetLang != "de" {
		t.Errorf("TargetLang = %q", cfg.Translate.TargetLang)
	}
}

func TestLoadFromReader_ValidPrompter(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(`
mode: prompter
recognizer:
  endpoint: "ws://localhost:8080/stream"
reference:
  path: "script.txt"
matching:
  phonetic_fallback: true
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModePrompter {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	if !cfg.Matching.PhoneticFallback {
		t.Error("PhoneticFallback = false, want true")
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader(`
mode: caption
recognizer:
  endpoint: "ws://localhost/stream"
typo_field: true
`))
	if err == nil {
		t.Fatal("expected unknown fields to be rejected")
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing mode",
			yaml: `
recognizer:
  endpoint: "ws://host/stream"
`,
			want: "mode",
		},
		{
			name: "missing endpoint",
			yaml: `
mode: caption
`,
			want: "recognizer.endpoint",
		},
		{
			name: "non-websocket endpoint",
			yaml: `
mode: caption
recognizer:
  endpoint: "https://host/stream"
`,
			want: "ws://",
		},
		{
			name: "prompter without reference",
			yaml: `
mode: prompter
recognizer:
  endpoint: "ws://host/stream"
`,
			want: "reference.path",
		},
		{
			name: "unknown translate provider",
			yaml: `
mode: caption
recognizer:
  endpoint: "ws://host/stream"
translate:
  provider: deepl
  api_key: "k"
  target_lang: "de"
`,
			want: "translate.provider",
		},
		{
			name: "provider without api key",
			yaml: `
mode: caption
recognizer:
  endpoint: "ws://host/stream"
translate:
  provider: openai
  target_lang: "de"
`,
			want: "translate.api_key",
		},
		{
			name: "invalid log level",
			yaml: `
mode: caption
server:
  log_level: verbose
recognizer:
  endpoint: "ws://host/stream"
`,
			want: "server.log_level",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader(`
mode: prompter
server:
  log_level: loud
`))
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"log_level", "recognizer.endpoint", "reference.path"} {
		if !strings.Contains(msg, want) {
			t.Errorf("joined error %q missing %q", msg, want)
		}
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(validCaptionYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeCaption {
		t.Errorf("Mode = %q", cfg.Mode)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
