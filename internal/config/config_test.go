package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	_ = os.Unsetenv(key)
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	// 环境变量设置后，应优先返回环境变量
	if err := os.Setenv(key, "8080"); err != nil {
		t.Fatalf("Setenv error: %v", err)
	}
	defer os.Unsetenv(key)
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestGetEnvIntRejectsInvalid(t *testing.T) {
	const key = "TEST_MAX_CONCURRENCY"
	defer os.Unsetenv(key)

	_ = os.Setenv(key, "abc")
	if got := getEnvInt(key, 20); got != 20 {
		t.Fatalf("invalid value should fall back to default, got %d", got)
	}
	_ = os.Setenv(key, "-3")
	if got := getEnvInt(key, 20); got != 20 {
		t.Fatalf("non-positive value should fall back to default, got %d", got)
	}
	_ = os.Setenv(key, "8")
	if got := getEnvInt(key, 20); got != 8 {
		t.Fatalf("valid value should win, got %d", got)
	}
}

func TestGetEnvDuration(t *testing.T) {
	const key = "TEST_RUN_TIMEOUT"
	defer os.Unsetenv(key)

	_ = os.Unsetenv(key)
	if got := getEnvDuration(key, 30*time.Minute); got != 30*time.Minute {
		t.Fatalf("expected default duration, got %s", got)
	}
	_ = os.Setenv(key, "15m")
	if got := getEnvDuration(key, 30*time.Minute); got != 15*time.Minute {
		t.Fatalf("expected 15m, got %s", got)
	}
	_ = os.Setenv(key, "nope")
	if got := getEnvDuration(key, 30*time.Minute); got != 30*time.Minute {
		t.Fatalf("invalid duration should fall back, got %s", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "OPENAI_API_KEY", "MAX_CONCURRENCY", "MAX_PER_DOMAIN", "FRESHNESS_DAYS", "MIN_REPORT_SCORE"} {
		_ = os.Unsetenv(key)
	}

	cfg := Load()
	if cfg.AppPort != "9000" {
		t.Fatalf("AppPort default = %q", cfg.AppPort)
	}
	if cfg.MaxConcurrency != 20 || cfg.MaxPerDomain != 2 {
		t.Fatalf("concurrency defaults wrong: %d/%d", cfg.MaxConcurrency, cfg.MaxPerDomain)
	}
	if cfg.FreshnessDays != 2 || cfg.MinReportScore != 3 {
		t.Fatalf("filter defaults wrong: %d/%d", cfg.FreshnessDays, cfg.MinReportScore)
	}
	if cfg.LLMBatchSize != 15 {
		t.Fatalf("LLMBatchSize default = %d", cfg.LLMBatchSize)
	}
}
