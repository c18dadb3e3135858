package config

import (
	"os"
	"strings"
	"testing"
)

// scrubEnv clears every variable Load reads so tests see only what they
// set themselves. t.Setenv registers restoration at cleanup.
func scrubEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"DATABASE_URL", "PORT", "CORS_ORIGINS", "JWT_SECRET", "REDIS_ADDR",
		"ORDER_CREATION_POLICY", "MAX_BATCH_SIZE", "METADATA_APPROVAL_THRESHOLD",
		"BOOTSTRAP_ADMIN_ACCOUNT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	scrubEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.OrderCreationPolicy != PolicyOpen {
		t.Fatalf("expected default policy %q, got %q", PolicyOpen, cfg.OrderCreationPolicy)
	}
	if cfg.MaxBatchSize != 100 {
		t.Fatalf("expected default batch size 100, got %d", cfg.MaxBatchSize)
	}
	if cfg.MetadataThreshold != 2 {
		t.Fatalf("expected default threshold 2, got %d", cfg.MetadataThreshold)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected cache disabled by default, got %q", cfg.RedisAddr)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("expected 2 default origins, got %v", cfg.CORSOrigins)
	}
}

func TestLoadSplitsOrigins(t *testing.T) {
	scrubEnv(t)
	t.Setenv("CORS_ORIGINS", "https://app.example.com,https://admin.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"https://app.example.com", "https://admin.example.com"}
	if len(cfg.CORSOrigins) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.CORSOrigins)
	}
	for i := range want {
		if cfg.CORSOrigins[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cfg.CORSOrigins)
		}
	}
}

func TestLoadParseError(t *testing.T) {
	scrubEnv(t)
	t.Setenv("MAX_BATCH_SIZE", "not-an-int")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		OrderCreationPolicy: PolicyOpen,
		MaxBatchSize:        10,
		MetadataThreshold:   2,
		BootstrapAdmin:      "admin",
	}

	t.Run("valid", func(t *testing.T) {
		if err := base.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("unknown policy", func(t *testing.T) {
		cfg := base
		cfg.OrderCreationPolicy = "invite-only"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("zero batch size", func(t *testing.T) {
		cfg := base
		cfg.MaxBatchSize = 0
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("zero threshold", func(t *testing.T) {
		cfg := base
		cfg.MetadataThreshold = 0
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty bootstrap admin", func(t *testing.T) {
		cfg := base
		cfg.BootstrapAdmin = ""
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})
}
