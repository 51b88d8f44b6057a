package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
listen: " :6000 "
tls:
  allow_insecure: true
auth:
  hmac_secret: " 0123456789abcdef "
  clock_skew: 30s
cors:
  allowed_origins: [" https://app.example ", " "]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddress != ":6000" {
		t.Fatalf("unexpected listen address: %q", cfg.ListenAddress)
	}
	if cfg.Protocol != defaultProtocolPath {
		t.Fatalf("unexpected protocol path: %q", cfg.Protocol)
	}
	if cfg.Auth.HMACSecret != "0123456789abcdef" || cfg.Auth.AdminScope != "admin" {
		t.Fatalf("unexpected auth config: %+v", cfg.Auth)
	}
	if cfg.Auth.ClockSkew != 30*time.Second {
		t.Fatalf("unexpected clock skew: %s", cfg.Auth.ClockSkew)
	}
	if cfg.RateLimit.RequestsPerMinute != defaultRequestsPerMinute || cfg.RateLimit.Burst != defaultBurst {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if cfg.Events.Retain != defaultEventRetention {
		t.Fatalf("unexpected event retention: %d", cfg.Events.Retain)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "https://app.example" {
		t.Fatalf("unexpected origins: %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadConfigRequiresSecretUnlessDisabled(t *testing.T) {
	path := writeConfig(t, `
tls:
  allow_insecure: true
auth:
  hmac_secret: short
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for a short hmac secret")
	}

	path = writeConfig(t, `
tls:
  allow_insecure: true
auth:
  disabled: true
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("expected disabled auth to load: %v", err)
	}
}

func TestLoadConfigValidatesTLS(t *testing.T) {
	path := writeConfig(t, `
tls:
  cert: "server.crt"
auth:
  disabled: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error when tls key is missing")
	}
}

func TestLoadConfigRequiresTLSMaterialUnlessInsecure(t *testing.T) {
	path := writeConfig(t, `
auth:
  disabled: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error when tls material missing without allow_insecure")
	}
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
tls:
  allow_insecure: true
auth:
  disabled: true
grpc: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}
