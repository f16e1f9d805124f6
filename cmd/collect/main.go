package main

import (
	"log"
	"time"

	"github.com/LJTian/AIBriefHub/internal/collector"
	"github.com/LJTian/AIBriefHub/internal/config"
	"github.com/LJTian/AIBriefHub/internal/curator"
	"github.com/LJTian/AIBriefHub/internal/llm"
	"github.com/LJTian/AIBriefHub/internal/scheduler"
	"github.com/LJTian/AIBriefHub/internal/source"
	"github.com/LJTian/AIBriefHub/internal/storage"
)

// 一个仅执行一轮完整管线的命令行入口：适合手动触发或容器定时任务
func main() {
	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	sources, err := source.Load(cfg.SourcesFile)
	if err != nil {
		log.Fatalf("load sources failed: %v", err)
	}
	log.Printf("loaded %d sources from %s", len(sources), cfg.SourcesFile)

	browser := collector.NewBrowserCollector(collector.NewTesseractOCR())
	defer browser.Close()

	collect := collector.NewCommander(
		collector.NewHTTPCollector(),
		browser,
		cfg.MaxConcurrency,
		cfg.MaxPerDomain,
	)

	oracle := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.LLMBatchSize)
	curate := curator.NewCommander(oracle, curator.NewGoogleTranslator(), cfg.FreshnessDays, cfg.MinReportScore)
	if cfg.ReportDate != "" {
		ref, err := time.Parse("2006-01-02", cfg.ReportDate)
		if err != nil {
			log.Fatalf("invalid REPORT_DATE %q: %v", cfg.ReportDate, err)
		}
		curate.SetReferenceTime(func() time.Time { return ref })
		log.Printf("report date pinned to %s", cfg.ReportDate)
	}

	s, err := scheduler.New(cfg.CronSpec, collect, curate, store, sources, cfg.RunTimeout)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}

	// 只执行一轮后退出
	s.RunBlocking()
}
