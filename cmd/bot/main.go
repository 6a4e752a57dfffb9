package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tutordesk/tutordesk-agent/internal/api"
	"github.com/tutordesk/tutordesk-agent/internal/config"
	"github.com/tutordesk/tutordesk-agent/internal/delivery"
	"github.com/tutordesk/tutordesk-agent/internal/engine"
	"github.com/tutordesk/tutordesk-agent/internal/health"
	"github.com/tutordesk/tutordesk-agent/internal/intent"
	"github.com/tutordesk/tutordesk-agent/internal/metrics"
	"github.com/tutordesk/tutordesk-agent/internal/notify"
	"github.com/tutordesk/tutordesk-agent/internal/session"
	"github.com/tutordesk/tutordesk-agent/internal/store"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Set log level
	if level, lerr := zerolog.ParseLevel(cfg.LogLevel); lerr == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Int("http_port", cfg.HTTPPort).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Msg("starting tutordesk agent")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Persistent records + notification outbox
	st, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()
	records := store.NewCached(st, 1024)

	// Health checker
	checker := health.NewChecker(logger)
	checker.Register("db", func(ctx context.Context) health.Status {
		if err := st.Ping(); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	m := metrics.New()

	// Intent rules (built-in unless overridden from file)
	extractor := intent.NewExtractor()
	if cfg.IntentRulesPath != "" {
		data, rerr := os.ReadFile(cfg.IntentRulesPath)
		if rerr != nil {
			logger.Fatal().Err(rerr).Str("path", cfg.IntentRulesPath).Msg("failed to read intent rules")
		}
		rules, rerr := intent.RulesFromYAML(data)
		if rerr != nil {
			logger.Fatal().Err(rerr).Msg("failed to parse intent rules")
		}
		extractor = intent.NewExtractorWithRules(rules)
		logger.Info().Int("rules", len(rules)).Msg("intent rules loaded from file")
	}

	// Notification templates
	templates := notify.DefaultTemplates()
	if cfg.TemplatesPath != "" {
		data, terr := os.ReadFile(cfg.TemplatesPath)
		if terr != nil {
			logger.Fatal().Err(terr).Str("path", cfg.TemplatesPath).Msg("failed to read templates")
		}
		templates, terr = notify.TemplatesFromYAML(data)
		if terr != nil {
			logger.Fatal().Err(terr).Msg("failed to parse templates")
		}
		logger.Info().Int("templates", len(templates)).Msg("notification templates loaded from file")
	}

	// Delivery channel: Slack when a token is configured, log-only otherwise
	var channel delivery.Channel
	if cfg.SlackEnabled() {
		channel = delivery.NewSlackChannel(cfg.SlackBotToken, logger)
		logger.Info().Msg("Slack delivery enabled")
	} else {
		channel = delivery.NewLogChannel(logger)
		logger.Info().Msg("Slack not configured — notifications go to the log")
	}

	// Notification pipeline
	policy, err := cfg.RetryPolicy()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid retry policy")
	}

	emitter := notify.NewEmitter(templates, notify.EmitterConfig{
		OperatorTarget: cfg.OperatorChannel,
		MaxRetries:     cfg.NotifyMaxRetries,
	}, records, m, logger)

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Workers:   cfg.DispatchWorkers,
		QueueSize: cfg.DispatchQueueSize,
	}, channel, policy, st, m, logger)
	dispatcher.Start(ctx)

	notifier := notify.NewNotifier(emitter, dispatcher)

	// Conversation engine
	sessions := session.NewStore(cfg.SessionIdleTimeout, logger)
	eng := engine.New(sessions, extractor, records, notifier, m, engine.Config{
		KeepPartialDataOnCancel: cfg.KeepPartialDataOnCancel,
	}, logger)

	// HTTP server
	handlers := api.NewHandlers(eng, sessions, dispatcher, st, checker, logger)
	server := api.NewServer(api.ServerConfig{
		ListenAddr: fmt.Sprintf(":%d", cfg.HTTPPort),
	}, handlers, m, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("api server error")
		}
	}()

	// Session gauge refresh
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.SetSessionsActive(float64(sessions.Len()))
			}
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("api server shutdown error")
	}

	dispatcher.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("tutordesk agent stopped")
}
