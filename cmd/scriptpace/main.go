// Command scriptpace runs the live transcript alignment server: teleprompter
// progress tracking or live caption segmentation over a streaming recognizer
// feed, selected by configuration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/scriptpace/internal/align"
	archivepg "github.com/MrWong99/scriptpace/internal/archive/postgres"
	"github.com/MrWong99/scriptpace/internal/audiolevel"
	"github.com/MrWong99/scriptpace/internal/caption"
	"github.com/MrWong99/scriptpace/internal/config"
	"github.com/MrWong99/scriptpace/internal/observe"
	"github.com/MrWong99/scriptpace/internal/prompter"
	"github.com/MrWong99/scriptpace/internal/recovery"
	"github.com/MrWong99/scriptpace/internal/sink"
	"github.com/MrWong99/scriptpace/pkg/recognizer"
	"github.com/MrWong99/scriptpace/pkg/recognizer/wsstream"
	"github.com/MrWong99/scriptpace/pkg/translate"
	translateoai "github.com/MrWong99/scriptpace/pkg/translate/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "scriptpace: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "scriptpace: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	slog.Info("scriptpace starting",
		"config", *configPath,
		"mode", string(cfg.Mode),
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Recognizer feed ───────────────────────────────────────────────────────
	var wsOpts []wsstream.Option
	if cfg.Recognizer.Token != "" {
		wsOpts = append(wsOpts, wsstream.WithToken(cfg.Recognizer.Token))
	}
	if cfg.Recognizer.Language != "" {
		wsOpts = append(wsOpts, wsstream.WithLanguage(cfg.Recognizer.Language))
	}
	client, err := wsstream.New(cfg.Recognizer.Endpoint, wsOpts...)
	if err != nil {
		slog.Error("failed to create recognizer client", "err", err)
		return 1
	}
	factory := recognizer.SourceFactory(client.Open)

	levels := audiolevel.NewMonitor(audioLevelOptions(cfg.AudioLevel)...)

	g, gctx := errgroup.WithContext(ctx)

	// ── Metrics endpoint ──────────────────────────────────────────────────────
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}

		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", cfg.Server.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// ── Session ───────────────────────────────────────────────────────────────
	switch cfg.Mode {
	case config.ModePrompter:
		g.Go(func() error {
			return runPrompter(gctx, cfg, factory, levels)
		})
	case config.ModeCaption:
		g.Go(func() error {
			return runCaption(gctx, cfg, factory, levels)
		})
	}

	slog.Info("ready — press Ctrl+C to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("shutdown complete")
	return 0
}

// runPrompter drives a teleprompter session until the context is cancelled,
// logging the progress cursor once per second.
func runPrompter(ctx context.Context, cfg *config.Config, factory recognizer.SourceFactory, levels *audiolevel.Monitor) error {
	ref, err := os.ReadFile(cfg.Reference.Path)
	if err != nil {
		return fmt.Errorf("read reference script: %w", err)
	}

	sess, err := prompter.NewSession(prompter.SessionConfig{
		Factory:        factory,
		Recovery:       recoveryConfig(cfg.Recovery),
		TrackerOptions: trackerOptions(cfg.Matching),
		Levels:         levels,
	})
	if err != nil {
		return err
	}
	if err := sess.Start(ctx, string(ref)); err != nil {
		return err
	}
	defer sess.Stop()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := sess.Err(); err != nil {
				return err
			}
			slog.Info("progress",
				"confirmed", sess.ConfirmedOffset(),
				"length", sess.ScriptLen(),
				"speech", sess.SpeechDetected(),
			)
		}
	}
}

// runCaption drives a captioning session until the context is cancelled.
func runCaption(ctx context.Context, cfg *config.Config, factory recognizer.SourceFactory, levels *audiolevel.Monitor) error {
	sessCfg := caption.SessionConfig{
		Factory: factory,
		Segmenter: caption.SegmenterConfig{
			TargetWords: cfg.Segmenter.TargetWords,
			PhrasePause: msDuration(cfg.Segmenter.PhrasePauseMs),
			HardTimeout: msDuration(cfg.Segmenter.HardTimeoutMs),
		},
		SilenceTimeout: msDuration(cfg.Segmenter.SilenceMs),
		Recovery:       recoveryConfig(cfg.Recovery),
		MaxSegments:    cfg.Segmenter.MaxSegments,
		SourceLang:     cfg.Translate.SourceLang,
		TargetLang:     cfg.Translate.TargetLang,
		Levels:         levels,
	}

	translator, err := buildTranslator(cfg.Translate)
	if err != nil {
		return err
	}
	sessCfg.Translator = translator

	if cfg.Sink.Path != "" {
		sessCfg.Sink = sink.NewFile(cfg.Sink.Path)
	}

	if cfg.Archive.DSN != "" {
		sessionID := cfg.Archive.SessionID
		if sessionID == "" {
			sessionID = time.Now().UTC().Format("20060102-150405")
		}
		store, err := archivepg.New(ctx, cfg.Archive.DSN, sessionID)
		if err != nil {
			return err
		}
		defer store.Close()
		sessCfg.Archive = store
	}

	sess, err := caption.NewSession(sessCfg)
	if err != nil {
		return err
	}
	if err := sess.StartListening(ctx); err != nil {
		return err
	}
	defer sess.StopListening()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := sess.Err(); err != nil {
				return err
			}
		}
	}
}

// buildTranslator constructs the configured translation provider, or nil
// when translation is disabled.
func buildTranslator(cfg config.TranslateConfig) (translate.Provider, error) {
	if cfg.Provider == "" {
		return nil, nil
	}
	var opts []translateoai.Option
	if cfg.Model != "" {
		opts = append(opts, translateoai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, translateoai.WithBaseURL(cfg.BaseURL))
	}
	p, err := translateoai.New(cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("build translator: %w", err)
	}
	return p, nil
}

// trackerOptions maps the matching config onto tracker options.
func trackerOptions(cfg config.MatchingConfig) []prompter.TrackerOption {
	var matcherOpts []align.MatcherOption
	if cfg.PhoneticFallback {
		matcherOpts = append(matcherOpts, align.WithPhoneticFallback())
	}
	matcher := align.NewMatcher(matcherOpts...)

	var charOpts []align.CharAlignerOption
	if cfg.CharLookahead > 0 {
		charOpts = append(charOpts, align.WithCharLookahead(cfg.CharLookahead))
	}
	wordOpts := []align.WordAlignerOption{align.WithMatcher(matcher)}
	if cfg.WordLookahead > 0 {
		wordOpts = append(wordOpts, align.WithWordLookahead(cfg.WordLookahead))
	}

	return []prompter.TrackerOption{
		prompter.WithCharAligner(align.NewCharAligner(charOpts...)),
		prompter.WithWordAligner(align.NewWordAligner(wordOpts...)),
	}
}

// recoveryConfig maps millisecond config fields onto the scheduler config.
func recoveryConfig(cfg config.RecoveryConfig) recovery.Config {
	return recovery.Config{
		MaxRetries:        cfg.MaxRetries,
		StepDelay:         msDuration(cfg.StepDelayMs),
		MaxDelay:          msDuration(cfg.MaxDelayMs),
		AudioFormatDelay:  msDuration(cfg.AudioFormatDelayMs),
		DeviceChangeDelay: msDuration(cfg.DeviceChangeDelayMs),
	}
}

// audioLevelOptions maps the audio-level config onto monitor options.
func audioLevelOptions(cfg config.AudioLevelConfig) []audiolevel.Option {
	var opts []audiolevel.Option
	if cfg.Threshold > 0 {
		opts = append(opts, audiolevel.WithThreshold(cfg.Threshold))
	}
	if cfg.Capacity > 0 {
		opts = append(opts, audiolevel.WithCapacity(cfg.Capacity))
	}
	if cfg.MinFrames > 0 {
		opts = append(opts, audiolevel.WithMinFrames(cfg.MinFrames))
	}
	return opts
}

// msDuration converts a millisecond count to a duration; zero stays zero so
// downstream defaulting applies.
func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// newLogger builds the default text logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
