package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	BasicAuthUser string
	BasicAuthPass string

	CronSpec    string
	SourcesFile string

	// LLM（OpenAI 兼容接口），APIKey 为空时走关键词降级方案
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	LLMBatchSize  int

	// 采集并发控制
	MaxConcurrency int
	MaxPerDomain   int

	// 筛选参数
	FreshnessDays  int
	MinReportScore int

	// 报告基准日期（YYYY-MM-DD），留空取当天，用于补采历史报告
	ReportDate string

	// 单轮流水线的总超时，超时后返回已采集到的部分结果
	RunTimeout time.Duration
}

func Load() *Config {
	cfg := &Config{
		AppPort:     getEnv("APP_PORT", "9000"),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=briefhub password=briefhub dbname=briefhub port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6380"),

		BasicAuthUser: getEnv("APP_BASIC_USER", ""),
		BasicAuthPass: getEnv("APP_BASIC_PASS", ""),

		CronSpec:    getEnv("CRON_SPEC", "0 6 * * *"),
		SourcesFile: getEnv("SOURCES_FILE", "configs/sources.yaml"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMBatchSize:  getEnvInt("LLM_BATCH_SIZE", 15),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 20),
		MaxPerDomain:   getEnvInt("MAX_PER_DOMAIN", 2),

		FreshnessDays:  getEnvInt("FRESHNESS_DAYS", 2),
		MinReportScore: getEnvInt("MIN_REPORT_SCORE", 3),
		ReportDate:     getEnv("REPORT_DATE", ""),

		RunTimeout: getEnvDuration("RUN_TIMEOUT", 30*time.Minute),
	}

	log.Printf("config loaded: port=%s cron=%s sources=%s concurrency=%d/%d",
		cfg.AppPort, cfg.CronSpec, cfg.SourcesFile, cfg.MaxConcurrency, cfg.MaxPerDomain)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("warn: invalid %s=%q, use default %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("warn: invalid %s=%q, use default %s", key, v, def)
		return def
	}
	return d
}
