// Package config provides the configuration schema and loader for the
// scriptpace server. Configuration is loaded once and passed explicitly
// into each session; nothing in this module reads ambient process-wide
// settings.
package config

// LogLevel controls log verbosity for the scriptpace server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Mode selects which session type the server runs.
type Mode string

const (
	// ModePrompter tracks reading progress against a fixed reference script.
	ModePrompter Mode = "prompter"

	// ModeCaption segments an unbounded utterance stream into committed,
	// translated caption segments.
	ModeCaption Mode = "caption"
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool {
	return m == ModePrompter || m == ModeCaption
}

// Config is the root configuration structure for scriptpace.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Mode       Mode             `yaml:"mode"`
	Server     ServerConfig     `yaml:"server"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Reference  ReferenceConfig  `yaml:"reference"`
	Matching   MatchingConfig   `yaml:"matching"`
	Segmenter  SegmenterConfig  `yaml:"segmenter"`
	Recovery   RecoveryConfig   `yaml:"recovery"`
	Translate  TranslateConfig  `yaml:"translate"`
	Sink       SinkConfig       `yaml:"sink"`
	Archive    ArchiveConfig    `yaml:"archive"`
	AudioLevel AudioLevelConfig `yaml:"audio_level"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	// MetricsAddr is the TCP address the Prometheus /metrics endpoint
	// listens on (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// RecognizerConfig describes the streaming transcript feed.
type RecognizerConfig struct {
	// Endpoint is the ws:// or wss:// URL of the transcript feed. Required.
	Endpoint string `yaml:"endpoint"`

	// Token is an optional bearer token for the feed.
	Token string `yaml:"token"`

	// Language is the BCP-47 language tag requested from the recognizer.
	// Empty lets the recognizer auto-detect, if supported.
	Language string `yaml:"language"`
}

// ReferenceConfig locates the fixed reference script (prompter mode only).
type ReferenceConfig struct {
	// Path is the file containing the reference text.
	Path string `yaml:"path"`
}

// MatchingConfig tunes the fuzzy aligners (prompter mode).
type MatchingConfig struct {
	// CharLookahead is the character resynchronization window. Default: 3.
	CharLookahead int `yaml:"char_lookahead"`

	// WordLookahead is the token resynchronization window. Default: 3.
	WordLookahead int `yaml:"word_lookahead"`

	// PhoneticFallback additionally accepts words that share a Double
	// Metaphone code. Catches homophones at the cost of more false
	// positives. Default: false.
	PhoneticFallback bool `yaml:"phonetic_fallback"`
}

// SegmenterConfig tunes the captioning finalize triggers. All durations are
// in milliseconds.
type SegmenterConfig struct {
	// TargetWords commits the pending buffer at this word count. Default: 9.
	TargetWords int `yaml:"target_words"`

	// SilenceMs commits an unchanged partial after this long. Default: 1100.
	SilenceMs int `yaml:"silence_ms"`

	// PhrasePauseMs commits a buffer of ≥2 words this long after the last
	// commit. Default: 1500.
	PhrasePauseMs int `yaml:"phrase_pause_ms"`

	// HardTimeoutMs commits any non-empty buffer this long after the last
	// commit. Default: 3000.
	HardTimeoutMs int `yaml:"hard_timeout_ms"`

	// MaxSegments bounds the visible caption window. Default: 6.
	MaxSegments int `yaml:"max_segments"`
}

// RecoveryConfig tunes the recognizer restart policy. All durations are in
// milliseconds.
type RecoveryConfig struct {
	// MaxRetries is the consecutive-failure budget before the session goes
	// terminal. Default: 5.
	MaxRetries int `yaml:"max_retries"`

	// StepDelayMs is the per-retry backoff increment for stream errors.
	// Default: 500.
	StepDelayMs int `yaml:"step_delay_ms"`

	// MaxDelayMs caps the stream-error backoff. Default: 1500.
	MaxDelayMs int `yaml:"max_delay_ms"`

	// AudioFormatDelayMs is the fixed restart delay after a transient
	// audio-format failure. Default: 250.
	AudioFormatDelayMs int `yaml:"audio_format_delay_ms"`

	// DeviceChangeDelayMs is the fixed restart delay after a device
	// configuration change. Default: 1000.
	DeviceChangeDelayMs int `yaml:"device_change_delay_ms"`
}

// TranslateConfig selects the translation collaborator (caption mode).
type TranslateConfig struct {
	// Provider is "openai" or empty to disable translation.
	Provider string `yaml:"provider"`

	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// SourceLang is the BCP-47 source language, or empty for detection.
	SourceLang string `yaml:"source_lang"`

	// TargetLang is the BCP-47 target language. Required when Provider is
	// set.
	TargetLang string `yaml:"target_lang"`
}

// SinkConfig locates the plain-text caption window file.
type SinkConfig struct {
	// Path is the output file. Empty disables the sink.
	Path string `yaml:"path"`
}

// ArchiveConfig enables the PostgreSQL segment archive.
type ArchiveConfig struct {
	// DSN is the PostgreSQL connection string. Empty disables archiving.
	DSN string `yaml:"dsn"`

	// SessionID scopes archived rows. Defaults to a timestamp-derived ID.
	SessionID string `yaml:"session_id"`
}

// AudioLevelConfig tunes the speech-presence detector.
type AudioLevelConfig struct {
	// Threshold is the RMS level above which a sample counts as speech.
	// Default: 0.01.
	Threshold float64 `yaml:"threshold"`

	// Capacity is the amplitude ring size in samples. Default: 32.
	Capacity int `yaml:"capacity"`

	// MinFrames is how many buffered samples must exceed the threshold
	// before speech is reported. Default: 3.
	MinFrames int `yaml:"min_frames"`
}
