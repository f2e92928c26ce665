package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL should be optional, got %q", cfg.DatabaseURL)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("MaxUploadBytes mismatch: got %d", cfg.MaxUploadBytes)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("SessionTTL mismatch: got %s", cfg.SessionTTL)
	}
	if len(cfg.UnlimitedPlanKeys) != 3 || cfg.UnlimitedPlanKeys[0] != "unlimited_plan" {
		t.Fatalf("UnlimitedPlanKeys mismatch: %#v", cfg.UnlimitedPlanKeys)
	}
	if len(cfg.StandardPlanKeys) != 2 || cfg.StandardPlanKeys[1] != "standard-plan" {
		t.Fatalf("StandardPlanKeys mismatch: %#v", cfg.StandardPlanKeys)
	}
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig expected error without JWT_SECRET")
	}
}

func TestLoadConfigPlanKeysFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PLANS_UNLIMITED", "pro_unlimited, unlimited ")
	t.Setenv("PLANS_STANDARD", "basic")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"pro_unlimited", "unlimited"}
	if len(cfg.UnlimitedPlanKeys) != len(expected) {
		t.Fatalf("UnlimitedPlanKeys mismatch: got %#v want %#v", cfg.UnlimitedPlanKeys, expected)
	}
	for i, key := range expected {
		if cfg.UnlimitedPlanKeys[i] != key {
			t.Fatalf("UnlimitedPlanKeys[%d] = %q, want %q", i, cfg.UnlimitedPlanKeys[i], key)
		}
	}
	if len(cfg.StandardPlanKeys) != 1 || cfg.StandardPlanKeys[0] != "basic" {
		t.Fatalf("StandardPlanKeys mismatch: %#v", cfg.StandardPlanKeys)
	}
}

func TestLoadConfigPlanKeyWithSpaces(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PLANS_UNLIMITED", "Unlimited AI Headshots,unlimited_plan")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.UnlimitedPlanKeys) != 2 || cfg.UnlimitedPlanKeys[0] != "Unlimited AI Headshots" {
		t.Fatalf("UnlimitedPlanKeys mismatch: %#v", cfg.UnlimitedPlanKeys)
	}
}
