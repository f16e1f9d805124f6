package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/AIBriefHub/internal/source"
)

// fakeCollector 按源名返回预设结果，并记录被调用的源
type fakeCollector struct {
	name    string
	results map[string][]RawArticle
	errs    map[string]error

	mu     sync.Mutex
	called []string
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Collect(_ context.Context, src source.Source) ([]RawArticle, error) {
	f.mu.Lock()
	f.called = append(f.called, src.Name)
	f.mu.Unlock()
	if err, ok := f.errs[src.Name]; ok {
		return nil, err
	}
	return f.results[src.Name], nil
}

func (f *fakeCollector) calledNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.called))
	copy(out, f.called)
	return out
}

func testSource(name string, strategy source.Strategy, priority int) source.Source {
	return source.Source{
		Name:     name,
		URLs:     []string{"https://" + name + ".example.com/"},
		Strategy: strategy,
		Priority: priority,
	}
}

func articleFor(name string) []RawArticle {
	return []RawArticle{{
		SourceName:  name,
		Title:       "article from " + name + " with enough words",
		URL:         "https://" + name + ".example.com/1",
		CollectedAt: time.Now(),
	}}
}

func TestCommanderExecuteSplitsByStrategy(t *testing.T) {
	httpC := &fakeCollector{name: "HTTP", results: map[string][]RawArticle{
		"alpha": articleFor("alpha"),
	}}
	browserC := &fakeCollector{name: "Browser", results: map[string][]RawArticle{
		"beta": articleFor("beta"),
	}}
	c := NewCommander(httpC, browserC, 4, 2)

	sources := []source.Source{
		testSource("alpha", source.StrategyHTTP, 3),
		testSource("beta", source.StrategyBrowser, 3),
	}
	articles, stats := c.Execute(context.Background(), sources)

	if stats.TotalSources != 2 || stats.TotalURLs != 2 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.SuccessSources != 2 || stats.FailedSources != 0 {
		t.Fatalf("expected 2 success, got %+v", stats)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if got := httpC.calledNames(); len(got) != 1 || got[0] != "alpha" {
		t.Fatalf("http collector should only see http sources, got %v", got)
	}
	if got := browserC.calledNames(); len(got) != 1 || got[0] != "beta" {
		t.Fatalf("browser collector should only see browser sources, got %v", got)
	}
}

func TestCommanderEscalatesFailedHTTPToBrowser(t *testing.T) {
	httpC := &fakeCollector{name: "HTTP", errs: map[string]error{
		"hard": errors.New("blocked"),
	}}
	browserC := &fakeCollector{name: "Browser", results: map[string][]RawArticle{
		"hard": articleFor("hard"),
	}}
	c := NewCommander(httpC, browserC, 4, 2)

	sources := []source.Source{testSource("hard", source.StrategyHTTP, 3)}
	articles, stats := c.Execute(context.Background(), sources)

	if len(articles) != 1 {
		t.Fatalf("expected escalated collect to produce 1 article, got %d", len(articles))
	}
	if stats.FallbackSources != 1 {
		t.Fatalf("expected 1 fallback source, got %d", stats.FallbackSources)
	}
	// 降级成功后不再计为失败
	if stats.FailedSources != 0 || stats.SuccessSources != 1 {
		t.Fatalf("unexpected accounting after escalation: %+v", stats)
	}
	if got := browserC.calledNames(); len(got) != 1 || got[0] != "hard" {
		t.Fatalf("browser collector should see escalated source, got %v", got)
	}
}

func TestCommanderEscalationStillFails(t *testing.T) {
	httpC := &fakeCollector{name: "HTTP", errs: map[string]error{
		"dead": errors.New("blocked"),
	}}
	browserC := &fakeCollector{name: "Browser"} // 零产出
	c := NewCommander(httpC, browserC, 4, 2)

	sources := []source.Source{testSource("dead", source.StrategyHTTP, 3)}
	articles, stats := c.Execute(context.Background(), sources)

	if len(articles) != 0 {
		t.Fatalf("expected no articles, got %d", len(articles))
	}
	// 降级轮也失败：记一次失败 + 一次降级
	if stats.FailedSources != 1 || stats.FallbackSources != 1 || stats.SuccessSources != 0 {
		t.Fatalf("unexpected accounting: %+v", stats)
	}
}

func TestCommanderStampsSourceIndex(t *testing.T) {
	httpC := &fakeCollector{name: "HTTP", results: map[string][]RawArticle{
		"first":  articleFor("first"),
		"second": articleFor("second"),
	}}
	c := NewCommander(httpC, &fakeCollector{name: "Browser"}, 4, 2)

	sources := []source.Source{
		testSource("first", source.StrategyHTTP, 1),
		testSource("second", source.StrategyHTTP, 5),
	}
	articles, _ := c.Execute(context.Background(), sources)
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	// SourceIndex 是注册顺序，与调度顺序（优先级）无关
	for _, a := range articles {
		switch a.SourceName {
		case "first":
			if a.SourceIndex != 0 {
				t.Fatalf("expected index 0 for first, got %d", a.SourceIndex)
			}
		case "second":
			if a.SourceIndex != 1 {
				t.Fatalf("expected index 1 for second, got %d", a.SourceIndex)
			}
		}
	}
}

func TestCommanderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	httpC := &fakeCollector{name: "HTTP", results: map[string][]RawArticle{
		"alpha": articleFor("alpha"),
	}}
	c := NewCommander(httpC, &fakeCollector{name: "Browser"}, 1, 1)

	sources := []source.Source{
		testSource("alpha", source.StrategyHTTP, 3),
		testSource("beta", source.StrategyHTTP, 3),
	}
	_, stats := c.Execute(ctx, sources)
	// 已取消的 ctx 下不做降级轮，失败数与源数一致或部分源仍可能抢到许可
	if stats.FailedSources+stats.SuccessSources != 2 {
		t.Fatalf("every source must be accounted exactly once: %+v", stats)
	}
}
