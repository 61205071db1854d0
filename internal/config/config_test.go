package config

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.HTTPAddress != "0.0.0.0:8080" {
		t.Fatalf("unexpected http address: %q", cfg.HTTPAddress)
	}
	if cfg.CachePath != "quill.db" {
		t.Fatalf("unexpected cache path: %q", cfg.CachePath)
	}
	if cfg.RemoteBaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected remote base url: %q", cfg.RemoteBaseURL)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
}

func TestLoadRejectsBlankRequiredSettings(t *testing.T) {
	v := NewViper()
	v.Set("cache.path", "  ")
	if _, err := Load(v); err == nil {
		t.Fatalf("expected error for a blank cache path")
	}

	v = NewViper()
	v.Set("remote.base_url", "")
	if _, err := Load(v); err == nil {
		t.Fatalf("expected error for a blank remote base url")
	}
}

func TestValidateServerRequiresSigningSecretAndDatabase(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if err := cfg.ValidateServer(); err == nil {
		t.Fatalf("expected error without a signing secret")
	}

	cfg.SessionSigningSecret = "secret"
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("unexpected server validation error: %v", err)
	}

	cfg.BackendDatabasePath = " "
	if err := cfg.ValidateServer(); err == nil {
		t.Fatalf("expected error for a blank database path")
	}
}
