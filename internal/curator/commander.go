package curator

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/LJTian/AIBriefHub/internal/collector"
	"github.com/LJTian/AIBriefHub/internal/llm"
)

// CuratedArticle 经过去重、筛选、分类、评分后的成品条目
type CuratedArticle struct {
	RawFingerprint string
	Title          string
	TitleZH        string
	Summary        string
	Category       string
	Score          int
	Selected       bool
	SourceName     string
	SourceURL      string
	PublishedDate  string
	ReportDate     string
}

// CurationStats 管线各阶段的计数
type CurationStats struct {
	Input         int
	AfterDedup    int
	AfterFresh    int
	AfterRelevant int
	Selected      int

	DroppedByURL         int
	DroppedByFingerprint int
	DroppedBySimilarity  int
	DroppedPlaceholders  int
	DroppedEmptyTitle    int
	DroppedStale         int
	DroppedIrrelevant    int

	Elapsed time.Duration
}

// Oracle 批量语义判断接口，三个方法的返回长度必须与输入一致
type Oracle interface {
	FilterRelevance(ctx context.Context, items []llm.Item) []bool
	Classify(ctx context.Context, items []llm.Item) []string
	ScoreImportance(ctx context.Context, items []llm.Item) []int
}

const maxSummaryRunes = 200

// Commander 策展管线：排序 → 去重 → 时效过滤 → 相关性筛选 → 分类 → 评分
type Commander struct {
	oracle     Oracle
	translator Translator
	dedupOpts  DedupOptions
	freshness  FreshnessFilter
	minScore   int
	now        func() time.Time
}

func NewCommander(oracle Oracle, translator Translator, freshnessDays, minScore int) *Commander {
	if minScore < minImportance || minScore > maxImportance {
		minScore = 3
	}
	return &Commander{
		oracle:     oracle,
		translator: translator,
		dedupOpts:  DedupOptions{},
		freshness:  FreshnessFilter{Days: freshnessDays},
		minScore:   minScore,
	}
}

// SetReferenceTime 注入运行基准时间，报告日期和时效窗口都以它为准。
// 不调用时默认取当前时间，主要用于补采历史日期的报告。
func (c *Commander) SetReferenceTime(now func() time.Time) {
	c.now = now
	c.freshness.Now = now
}

// Execute 执行完整策展流程，返回成品条目与各阶段计数。
// 入口先按来源优先级排序，之后所有阶段保序，保证同一批输入产出确定。
func (c *Commander) Execute(ctx context.Context, articles []collector.RawArticle) ([]CuratedArticle, CurationStats) {
	start := time.Now()
	stats := CurationStats{Input: len(articles)}

	// 高优先级来源排前面，去重时先到先得
	sorted := make([]collector.RawArticle, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SourcePriority != sorted[j].SourcePriority {
			return sorted[i].SourcePriority > sorted[j].SourcePriority
		}
		if sorted[i].SourceIndex != sorted[j].SourceIndex {
			return sorted[i].SourceIndex < sorted[j].SourceIndex
		}
		return sorted[i].URLIndex < sorted[j].URLIndex
	})

	dedup := Deduplicate(sorted, c.dedupOpts)
	stats.DroppedByURL = dedup.DroppedByURL
	stats.DroppedByFingerprint = dedup.DroppedByFingerprint
	stats.DroppedBySimilarity = dedup.DroppedBySimilarity
	stats.DroppedPlaceholders = dedup.DroppedPlaceholders
	stats.DroppedEmptyTitle = dedup.DroppedEmptyTitle
	stats.AfterDedup = len(dedup.Kept)
	log.Printf("curator: dedup %d -> %d (url=%d fp=%d sim=%d placeholder=%d empty=%d)",
		stats.Input, stats.AfterDedup,
		dedup.DroppedByURL, dedup.DroppedByFingerprint, dedup.DroppedBySimilarity,
		dedup.DroppedPlaceholders, dedup.DroppedEmptyTitle)

	fresh, stale := c.freshness.Filter(dedup.Kept)
	stats.DroppedStale = stale
	stats.AfterFresh = len(fresh)
	log.Printf("curator: freshness %d -> %d", stats.AfterDedup, stats.AfterFresh)

	if len(fresh) == 0 {
		stats.Elapsed = time.Since(start)
		return nil, stats
	}

	items := make([]llm.Item, len(fresh))
	for i, a := range fresh {
		items[i] = llm.Item{Title: a.Title, Snippet: a.Snippet, Source: a.SourceName, Category: a.SourceCategory}
	}

	relevant := c.oracle.FilterRelevance(ctx, items)
	var keptArticles []collector.RawArticle
	var keptItems []llm.Item
	for i, a := range fresh {
		if i < len(relevant) && !relevant[i] {
			stats.DroppedIrrelevant++
			continue
		}
		keptArticles = append(keptArticles, a)
		keptItems = append(keptItems, items[i])
	}
	stats.AfterRelevant = len(keptArticles)
	log.Printf("curator: relevance %d -> %d", stats.AfterFresh, stats.AfterRelevant)

	if len(keptArticles) == 0 {
		stats.Elapsed = time.Since(start)
		return nil, stats
	}

	labels := c.oracle.Classify(ctx, keptItems)
	scores := c.oracle.ScoreImportance(ctx, keptItems)

	ref := time.Now()
	if c.now != nil {
		ref = c.now()
	}
	reportDate := ref.Format("2006-01-02")
	curated := make([]CuratedArticle, 0, len(keptArticles))
	for i, a := range keptArticles {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		base := 3
		if i < len(scores) && scores[i] >= minImportance && scores[i] <= maxImportance {
			base = scores[i]
		}
		score := AdjustScore(base, a)

		ca := CuratedArticle{
			RawFingerprint: a.Fingerprint,
			Title:          a.Title,
			Summary:        truncateSummary(a.Snippet),
			Category:       CoerceCategory(label, a.SourceSubCategory),
			Score:          score,
			Selected:       score >= c.minScore,
			SourceName:     a.SourceName,
			SourceURL:      a.URL,
			PublishedDate:  a.PublishedDate,
			ReportDate:     reportDate,
		}
		// 入选条目才花翻译配额
		if c.translator != nil && ca.Selected {
			ca.TitleZH = c.translator.ToChinese(ca.Title)
		}
		if ca.Selected {
			stats.Selected++
		}
		curated = append(curated, ca)
	}

	stats.Elapsed = time.Since(start)
	log.Printf("curator: done, %d curated, %d selected (score >= %d), elapsed %s",
		len(curated), stats.Selected, c.minScore, stats.Elapsed.Round(time.Millisecond))
	return curated, stats
}

func truncateSummary(s string) string {
	rs := []rune(s)
	if len(rs) > maxSummaryRunes {
		return string(rs[:maxSummaryRunes])
	}
	return s
}
