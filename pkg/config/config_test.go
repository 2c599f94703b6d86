package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("unexpected port %d", cfg.Server.Port)
	}
	if cfg.Scheduler.PollInterval != 30*time.Second {
		t.Fatalf("unexpected poll interval %v", cfg.Scheduler.PollInterval)
	}
	if cfg.Scheduler.Tier2Divisor != 5 {
		t.Fatalf("unexpected tier2 divisor %d", cfg.Scheduler.Tier2Divisor)
	}
	if cfg.Analysis.DivergencePolicy != "exclude" {
		t.Fatalf("unexpected divergence policy %q", cfg.Analysis.DivergencePolicy)
	}
	if cfg.Gate.Cooldown != 30*time.Minute {
		t.Fatalf("unexpected gate cooldown %v", cfg.Gate.Cooldown)
	}
	if cfg.Kafka.Topic != "archantum.alerts" {
		t.Fatalf("unexpected kafka topic %q", cfg.Kafka.Topic)
	}
}

func TestParseOverrides(t *testing.T) {
	raw := `
scheduler:
  poll_interval: 10s
  tier2_divisor: 3
analysis:
  min_profit_cents: 1.0
gate:
  cooldown: 5m
`
	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Scheduler.PollInterval != 10*time.Second {
		t.Fatalf("unexpected poll interval %v", cfg.Scheduler.PollInterval)
	}
	if cfg.Scheduler.Tier2Divisor != 3 {
		t.Fatalf("unexpected tier2 divisor %d", cfg.Scheduler.Tier2Divisor)
	}
	if cfg.Analysis.MinProfitCents != 1.0 {
		t.Fatalf("unexpected min profit %v", cfg.Analysis.MinProfitCents)
	}
	if cfg.Gate.Cooldown != 5*time.Minute {
		t.Fatalf("unexpected cooldown %v", cfg.Gate.Cooldown)
	}
}

func TestValidateWeightsMustSum(t *testing.T) {
	raw := `
scorer:
  liquidity_weight: 0.5
  stability_weight: 0.5
  time_weight: 0.25
  complexity_weight: 0.15
`
	_, err := Parse([]byte(raw))
	if err == nil || !strings.Contains(err.Error(), "sum to 1.0") {
		t.Fatalf("expected weight sum error, got %v", err)
	}
}

func TestValidateResolutionBand(t *testing.T) {
	raw := `
analysis:
  resolution_band_low: 0.8
  resolution_band_high: 0.2
`
	if _, err := Parse([]byte(raw)); err == nil {
		t.Fatalf("expected band order error")
	}
}

func TestValidateKafkaBrokers(t *testing.T) {
	raw := `
kafka:
  enabled: true
`
	_, err := Parse([]byte(raw))
	if err == nil || !strings.Contains(err.Error(), "brokers") {
		t.Fatalf("expected brokers error, got %v", err)
	}
}

func TestValidateDivergencePolicy(t *testing.T) {
	raw := `
analysis:
  divergence_policy: ignore
`
	if _, err := Parse([]byte(raw)); err == nil {
		t.Fatalf("expected policy error")
	}
}
