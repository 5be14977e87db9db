package config

import (
	"strings"
	"testing"
)

func TestValidatorNoErrors(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("name", "deskflow").
		RequirePositive("limit", 3).
		ValidatePort("port", 8080).
		ValidateOneOf("backend", "redis", "inmemory", "redis")

	if v.HasErrors() {
		t.Fatalf("expected no errors, got %v", v.Errors())
	}
	if err := v.Error(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestValidatorCollectsErrors(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("name", "").
		RequirePositive("limit", 0).
		ValidatePort("port", 70000).
		ValidateOneOf("backend", "sqlite", "inmemory", "redis")

	if got := len(v.Errors()); got != 4 {
		t.Fatalf("expected 4 errors, got %d", got)
	}
	err := v.Error()
	if err == nil {
		t.Fatal("expected combined error")
	}
	if !strings.Contains(err.Error(), "name") || !strings.Contains(err.Error(), "backend") {
		t.Errorf("combined error missing fields: %v", err)
	}
}

func TestValidateFloatRange(t *testing.T) {
	v := NewValidator()
	v.ValidateFloatRange("temperature", 2.5, 0.0, 2.0)
	if !v.HasErrors() {
		t.Fatal("expected out-of-range temperature to fail")
	}
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	if cfg.RefinementAttemptLimit != 3 {
		t.Errorf("expected default refinement attempt limit 3, got %d", cfg.RefinementAttemptLimit)
	}
	if cfg.Provider != "openai" {
		t.Errorf("expected default provider openai, got %s", cfg.Provider)
	}
}

func TestConfigValidateRejectsBadBackend(t *testing.T) {
	t.Setenv("DESKFLOW_TICKET_BACKEND", "dynamo")
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for unknown ticket backend")
	}
}
