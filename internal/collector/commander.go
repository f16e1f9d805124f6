package collector

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/LJTian/AIBriefHub/internal/source"
)

// Stats 采集总指挥的统计结果，任务结束后一次性返回，不用全局计数器
type Stats struct {
	TotalSources    int
	TotalURLs       int
	SuccessSources  int
	FailedSources   int
	FallbackSources int // HTTP 失败后降级到 Browser 的源数
	TotalArticles   int
	Elapsed         time.Duration
}

// Commander 采集总指挥：在全局与单域名两级并发限制下编排所有采集任务
type Commander struct {
	httpCollector    Collector
	browserCollector Collector
	maxConcurrency   int
	maxPerDomain     int
}

func NewCommander(httpC, browserC Collector, maxConcurrency, maxPerDomain int) *Commander {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	if maxPerDomain <= 0 {
		maxPerDomain = 1
	}
	return &Commander{
		httpCollector:    httpC,
		browserCollector: browserC,
		maxConcurrency:   maxConcurrency,
		maxPerDomain:     maxPerDomain,
	}
}

// indexedSource 带注册顺序的源，采集结果上会盖上该序号用于稳定排序
type indexedSource struct {
	src   source.Source
	index int
}

// Execute 执行一轮完整采集。
// 先按声明策略分组采集，HTTP 零产出的源再用 Browser 做一轮显式降级采集。
// 单个源失败不影响其它源；ctx 超时/取消后返回已有的部分结果。
func (c *Commander) Execute(ctx context.Context, sources []source.Source) ([]RawArticle, Stats) {
	start := time.Now()

	stats := Stats{TotalSources: len(sources)}
	for _, s := range sources {
		stats.TotalURLs += len(s.URLs)
	}

	var httpSources, browserSources []indexedSource
	for i, s := range sources {
		is := indexedSource{src: s, index: i}
		if s.Strategy == source.StrategyBrowser {
			browserSources = append(browserSources, is)
		} else {
			httpSources = append(httpSources, is)
		}
	}

	log.Printf("collect commander start: sources=%d urls=%d http=%d browser=%d concurrency=%d/%d",
		stats.TotalSources, stats.TotalURLs, len(httpSources), len(browserSources),
		c.maxConcurrency, c.maxPerDomain)

	var all []RawArticle

	httpArticles, failedHTTP := c.collectGroup(ctx, httpSources, c.httpCollector, "HTTP", &stats)
	all = append(all, httpArticles...)

	browserArticles, _ := c.collectGroup(ctx, browserSources, c.browserCollector, "Browser", &stats)
	all = append(all, browserArticles...)

	// 显式降级：HTTP 全程零产出的源换 Browser 再采一轮。
	// 这是策略升级，不是同策略重试；降级成功的源从失败统计挪到降级统计。
	if len(failedHTTP) > 0 && ctx.Err() == nil {
		log.Printf("collect commander: escalate %d failed http sources to browser", len(failedHTTP))
		stats.FallbackSources = len(failedHTTP)
		fallbackArticles, _ := c.collectGroup(ctx, failedHTTP, c.browserCollector, "Fallback-Browser", &stats)
		all = append(all, fallbackArticles...)
		// 第一轮已经给这些源记过一次失败，以降级轮的结果为准
		stats.FailedSources -= len(failedHTTP)
	}

	stats.TotalArticles = len(all)
	stats.Elapsed = time.Since(start)

	log.Printf("collect commander done: success=%d/%d fallback=%d articles=%d elapsed=%.1fs",
		stats.SuccessSources, stats.TotalSources, stats.FallbackSources,
		stats.TotalArticles, stats.Elapsed.Seconds())

	return all, stats
}

// collectGroup 并发控制下采集一组源，返回产出与零产出（含出错）的源列表
func (c *Commander) collectGroup(
	ctx context.Context,
	sources []indexedSource,
	col Collector,
	label string,
	stats *Stats,
) ([]RawArticle, []indexedSource) {
	if len(sources) == 0 || col == nil {
		return nil, nil
	}

	// 高优先级先拿到并发槽位，只影响争抢顺序不影响正确性
	sorted := make([]indexedSource, len(sources))
	copy(sorted, sources)
	stableSortByPriority(sorted)

	globalSem := make(chan struct{}, c.maxConcurrency)

	var domainMu sync.Mutex
	domainSems := make(map[string]chan struct{})
	domainSem := func(domain string) chan struct{} {
		domainMu.Lock()
		defer domainMu.Unlock()
		sem, ok := domainSems[domain]
		if !ok {
			sem = make(chan struct{}, c.maxPerDomain)
			domainSems[domain] = sem
		}
		return sem
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []RawArticle
		failed  []indexedSource
	)

	for _, is := range sorted {
		is := is
		wg.Add(1)
		go func() {
			defer wg.Done()

			domain := "unknown"
			if len(is.src.URLs) > 0 {
				domain = extractDomain(is.src.URLs[0])
			}

			// 先全局后域名，两级许可都拿到才开始网络请求；所有退出路径都会释放
			select {
			case globalSem <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				failed = append(failed, is)
				stats.FailedSources++
				mu.Unlock()
				return
			}
			defer func() { <-globalSem }()

			sem := domainSem(domain)
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				failed = append(failed, is)
				stats.FailedSources++
				mu.Unlock()
				return
			}
			defer func() { <-sem }()

			articles, err := col.Collect(ctx, is.src)
			for k := range articles {
				articles[k].SourceIndex = is.index
			}

			// 唯一的临界区：O(1) 追加结果与计数
			mu.Lock()
			results = append(results, articles...)
			if len(articles) > 0 {
				stats.SuccessSources++
			} else {
				stats.FailedSources++
				failed = append(failed, is)
			}
			mu.Unlock()

			if err != nil {
				log.Printf("[%s] x %s: %v", label, is.src.Name, err)
			} else {
				log.Printf("[%s] ok %s: %d articles", label, is.src.Name, len(articles))
			}
		}()
	}

	wg.Wait()
	return results, failed
}

func stableSortByPriority(list []indexedSource) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].src.Priority > list[j].src.Priority
	})
}
