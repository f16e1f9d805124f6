package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/LJTian/AIBriefHub/internal/collector"
	"github.com/LJTian/AIBriefHub/internal/curator"
	"github.com/LJTian/AIBriefHub/internal/source"
	"github.com/robfig/cron/v3"
)

// Store 管线落库需要的能力，由 storage.Store 满足
type Store interface {
	SaveRawBatch(items []collector.RawArticle) error
	SaveBriefBatch(items []curator.CuratedArticle) error
}

// Scheduler 定时驱动 采集 → 落原始表 → 策展 → 落简报表 的完整管线
type Scheduler struct {
	cron       *cron.Cron
	collect    *collector.Commander
	curate     *curator.Commander
	store      Store
	sources    []source.Source
	runTimeout time.Duration

	mu      sync.Mutex
	running bool
	last    RunStatus
}

// RunStatus 最近一轮管线的执行情况快照
type RunStatus struct {
	Running    bool                  `json:"running"`
	StartedAt  time.Time             `json:"startedAt"`
	FinishedAt time.Time             `json:"finishedAt"`
	Collect    collector.Stats       `json:"collect"`
	Curate     curator.CurationStats `json:"curate"`
	Saved      int                   `json:"saved"`
}

// Status 返回最近一轮的统计快照，管线进行中时 Running 为 true
func (s *Scheduler) Status() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.last
	st.Running = s.running
	return st
}

func New(spec string, collect *collector.Commander, curate *curator.Commander, store Store, sources []source.Source, runTimeout time.Duration) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:       c,
		collect:    collect,
		curate:     curate,
		store:      store,
		sources:    sources,
		runTimeout: runTimeout,
	}

	_, err := c.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮采集，避免与服务启动期的请求争抢资源
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		go s.runOnce()
	})
}

// RunOnce 对外暴露的单次执行入口，方便手动触发采集。
// 已有任务在跑时直接返回 false，不排队。
func (s *Scheduler) RunOnce() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()
		s.run()
	}()
	return true
}

func (s *Scheduler) runOnce() {
	if !s.RunOnce() {
		log.Println("pipeline already running, skip this trigger")
	}
}

// RunBlocking 同步执行一轮管线，供一次性命令行入口使用
func (s *Scheduler) RunBlocking() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("pipeline already running, skip")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()
	s.run()
}

func (s *Scheduler) run() {
	log.Println("start pipeline run...")
	s.mu.Lock()
	s.last = RunStatus{StartedAt: time.Now()}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.last.FinishedAt = time.Now()
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	raws, cstats := s.collect.Execute(ctx, s.sources)
	s.mu.Lock()
	s.last.Collect = cstats
	s.mu.Unlock()
	log.Printf("collect done: sources=%d/%d (fallback=%d failed=%d) articles=%d elapsed=%s",
		cstats.SuccessSources, cstats.TotalSources, cstats.FallbackSources, cstats.FailedSources,
		cstats.TotalArticles, cstats.Elapsed.Round(time.Second))

	if len(raws) == 0 {
		log.Println("pipeline done: no articles collected")
		return
	}

	if err := s.store.SaveRawBatch(raws); err != nil {
		log.Printf("save raw batch error: %v", err)
		// 原始表只是审计，落库失败不阻断策展
	}

	briefs, qstats := s.curate.Execute(ctx, raws)
	s.mu.Lock()
	s.last.Curate = qstats
	s.mu.Unlock()
	log.Printf("curate done: input=%d dedup=%d fresh=%d relevant=%d selected=%d elapsed=%s",
		qstats.Input, qstats.AfterDedup, qstats.AfterFresh, qstats.AfterRelevant, qstats.Selected,
		qstats.Elapsed.Round(time.Second))

	if len(briefs) == 0 {
		log.Println("pipeline done: no briefs curated")
		return
	}

	if err := s.store.SaveBriefBatch(briefs); err != nil {
		log.Printf("save brief batch error: %v", err)
		return
	}
	s.mu.Lock()
	s.last.Saved = len(briefs)
	s.mu.Unlock()
	log.Printf("pipeline done: %d briefs saved", len(briefs))
}
