package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Fatalf("unexpected api key: %q", cfg.Anthropic.APIKey)
	}
	if cfg.Anthropic.MaxTokens != 500 {
		t.Fatalf("expected max tokens 500, got %d", cfg.Anthropic.MaxTokens)
	}
	if cfg.Anthropic.TopP != 0.1 {
		t.Fatalf("expected top_p 0.1, got %v", cfg.Anthropic.TopP)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.InitialDelay != time.Second {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Transport != TransportHTTP || cfg.Delivery.Backend != DeliveryLog {
		t.Fatalf("unexpected transport/delivery defaults: %s/%s", cfg.Transport, cfg.Delivery.Backend)
	}
	if cfg.Nats.MaxInFlight != 64 {
		t.Fatalf("expected 64 in-flight pipelines, got %d", cfg.Nats.MaxInFlight)
	}
	if cfg.NeedsNATS() {
		t.Fatal("default config should not need NATS")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "k")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_INITIAL_DELAY", "250ms")
	t.Setenv("DELIVERY_BACKEND", "nats")
	t.Setenv("NATS_ORDER_SUBJECT", "orders.new")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.InitialDelay != 250*time.Millisecond {
		t.Fatalf("unexpected retry config: %+v", cfg.Retry)
	}
	if cfg.Nats.OrderSubject != "orders.new" {
		t.Fatalf("unexpected order subject: %q", cfg.Nats.OrderSubject)
	}
	if !cfg.NeedsNATS() {
		t.Fatal("nats delivery should need NATS")
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without ANTHROPIC_API_KEY")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "k")
	t.Setenv("DELIVERY_BACKEND", "carrier-pigeon")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "DELIVERY_BACKEND") {
		t.Fatalf("expected delivery backend error, got %v", err)
	}
}

func TestValidateRejectsZeroAttempts(t *testing.T) {
	cfg := &Config{
		Transport: TransportHTTP,
		Anthropic: AnthropicConfig{APIKey: "k"},
		Retry:     RetryConfig{MaxAttempts: 0},
		Delivery:  DeliveryConfig{Backend: DeliveryLog},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero attempts")
	}
}

func TestValidateRejectsNonPositiveInitialDelay(t *testing.T) {
	for _, delay := range []string{"0", "0s", "-1s"} {
		t.Run(delay, func(t *testing.T) {
			t.Setenv("ANTHROPIC_API_KEY", "k")
			t.Setenv("RETRY_INITIAL_DELAY", delay)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), "RETRY_INITIAL_DELAY") {
				t.Fatalf("expected initial delay error for %q, got %v", delay, err)
			}
		})
	}
}

func TestValidateRejectsZeroInFlight(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "k")
	t.Setenv("NATS_MAX_IN_FLIGHT", "0")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "NATS_MAX_IN_FLIGHT") {
		t.Fatalf("expected in-flight error, got %v", err)
	}
}
