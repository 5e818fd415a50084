package config

import "testing"

func TestManagerAppliesDefaults(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := m.GetConfig()
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Classify.Concurrency != 8 {
		t.Errorf("Classify.Concurrency = %d, want 8", cfg.Classify.Concurrency)
	}
	if cfg.Rules.DisableBuiltin {
		t.Errorf("Rules.DisableBuiltin = true, want false by default")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	m := &Manager{config: &Config{
		Logging: LoggingConfig{Level: "verbose", Format: "json"},
	}}
	if err := m.Validate(); err == nil {
		t.Error("expected an error for an unrecognized log level")
	}
}

func TestValidateRejectsDisableBuiltinWithoutPaths(t *testing.T) {
	m := &Manager{config: &Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Rules:   RulesConfig{DisableBuiltin: true},
	}}
	if err := m.Validate(); err == nil {
		t.Error("expected an error when disabling built-in rulesets with no replacement paths")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("unexpected validation error on defaults: %v", err)
	}
}

func TestIsDevelopmentDefaultsTrueWhenUnset(t *testing.T) {
	m := &Manager{config: &Config{}}
	if !m.IsDevelopment() {
		t.Error("expected IsDevelopment to be true when environment is unset")
	}
	if m.IsProduction() {
		t.Error("expected IsProduction to be false when environment is unset")
	}
}
