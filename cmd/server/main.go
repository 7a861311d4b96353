package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avvvet/coffeebuddy/internal/catalog"
	"github.com/avvvet/coffeebuddy/internal/config"
	"github.com/avvvet/coffeebuddy/internal/delivery"
	"github.com/avvvet/coffeebuddy/internal/handlers"
	"github.com/avvvet/coffeebuddy/internal/llm"
	"github.com/avvvet/coffeebuddy/internal/memory"
	"github.com/avvvet/coffeebuddy/internal/prompts"
	"github.com/avvvet/coffeebuddy/internal/transport"
	logx "github.com/avvvet/coffeebuddy/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
)

type sink interface {
	delivery.OrderSink
	delivery.AuditLog
}

func main() {
	// Load .env file if it exists (for development)
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.Init()
		logx.Fatal().Err(err).Msg("failed to load config")
	}

	logx.Init(logx.LoggerOpts{Environment: cfg.Env(), Service: cfg.ServiceName})
	if envErr != nil {
		logx.Debug().Msg("no .env file found, using environment variables")
	}

	logx.Info().
		Str("environment", cfg.Env().String()).
		Str("model", cfg.Anthropic.Model).
		Str("transport", cfg.Transport).
		Str("delivery", cfg.Delivery.Backend).
		Msg("starting coffeebuddy")

	menu := catalog.LoadOrDefault(cfg.Catalog.Path)
	template, err := prompts.LoadTemplate(cfg.Catalog.TemplatePath)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to load prompt template")
	}

	var natsConn *nats.Conn
	if cfg.NeedsNATS() {
		natsConn, err = transport.Connect(cfg)
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer natsConn.Close()
	}

	var out sink = delivery.LogSink{}
	switch cfg.Delivery.Backend {
	case config.DeliveryNATS:
		out = delivery.NewNATSPublisher(natsConn, cfg.Nats.OrderSubject, cfg.Nats.AuditSubject)
	case config.DeliveryRedis:
		rdb, err := delivery.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		out = delivery.NewRedisJournal(rdb, cfg.Redis.TTL)
	}

	sessions := memory.NewManager()
	defer sessions.Close()

	provider := llm.NewAnthropicProvider(llm.Options{
		URL:          cfg.Anthropic.URL,
		APIKey:       cfg.Anthropic.APIKey,
		Version:      cfg.Anthropic.Version,
		Model:        cfg.Anthropic.Model,
		MaxTokens:    cfg.Anthropic.MaxTokens,
		Temperature:  cfg.Anthropic.Temperature,
		TopP:         cfg.Anthropic.TopP,
		Timeout:      cfg.Anthropic.Timeout,
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
	})

	handler := handlers.NewMessageHandler(sessions, provider, prompts.TagParser{}, out, out, handlers.Config{
		Template: template,
		Catalog:  menu,
		Timeout:  cfg.PipelineTimeout,
	})

	var natsTransport *transport.NATSTransport
	if cfg.Transport != config.TransportHTTP {
		natsTransport = transport.NewNATSTransport(natsConn, cfg.Nats.RequestSubject, handler, cfg.Nats.MaxInFlight)
		if err := natsTransport.Start(); err != nil {
			logx.Fatal().Err(err).Msg("failed to start NATS transport")
		}
	}

	var webhook *transport.WebhookServer
	if cfg.Transport != config.TransportNATS {
		webhook = transport.NewWebhookServer(cfg.HTTPAddr, handler)
		go func() {
			if err := webhook.Start(); err != nil {
				logx.Fatal().Err(err).Msg("webhook server stopped")
			}
		}()
	}

	logx.Info().Int("active_sessions", sessions.ActiveSessionCount()).Msg("coffeebuddy is running")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logx.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	if webhook != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := webhook.Shutdown(ctx); err != nil {
			logx.Warn().Err(err).Msg("error shutting down webhook server")
		}
		cancel()
	}

	if natsTransport != nil {
		if err := natsTransport.Close(); err != nil {
			logx.Warn().Err(err).Msg("error closing NATS transport")
		}
	}

	logx.Info().Int("final_sessions", sessions.ActiveSessionCount()).Msg("coffeebuddy stopped")
}
