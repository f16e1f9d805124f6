package curator

import (
	"testing"

	"github.com/LJTian/AIBriefHub/internal/collector"
)

func rawArticle(title, url string) collector.RawArticle {
	return collector.RawArticle{
		Title:       title,
		URL:         url,
		Fingerprint: collector.ComputeFingerprint(title, url),
	}
}

func TestDeduplicateByURL(t *testing.T) {
	// 同一 URL 的大小写与跟踪参数变体应视为重复，保留第一条
	in := []collector.RawArticle{
		rawArticle("OpenAI releases new model", "https://example.com/news/1"),
		rawArticle("OpenAI 发布新模型", "https://Example.com/news/1?utm_source=rss&utm_medium=feed"),
		rawArticle("OpenAI 新闻二手转载", "https://example.com/news/1/"),
	}
	res := Deduplicate(in, DedupOptions{})
	if len(res.Kept) != 1 {
		t.Fatalf("expected 1 kept, got %d", len(res.Kept))
	}
	if res.Kept[0].Title != "OpenAI releases new model" {
		t.Fatalf("expected first article kept, got %q", res.Kept[0].Title)
	}
	if res.DroppedByURL != 2 {
		t.Fatalf("expected 2 dropped by url, got %d", res.DroppedByURL)
	}
}

func TestDeduplicateByFingerprint(t *testing.T) {
	a := rawArticle("Same title", "https://a.example.com/x")
	b := rawArticle("Same title", "https://b.example.com/y")
	// 人为构造指纹冲突
	b.Fingerprint = a.Fingerprint

	res := Deduplicate([]collector.RawArticle{a, b}, DedupOptions{})
	if len(res.Kept) != 1 {
		t.Fatalf("expected 1 kept, got %d", len(res.Kept))
	}
	if res.DroppedByFingerprint != 1 {
		t.Fatalf("expected 1 dropped by fingerprint, got %d", res.DroppedByFingerprint)
	}
}

func TestDeduplicateBySimilarity(t *testing.T) {
	in := []collector.RawArticle{
		rawArticle("Google announces Gemini 3 flagship model today", "https://a.example.com/1"),
		rawArticle("Google announces Gemini 3 flagship model", "https://b.example.com/2"),
		rawArticle("Meta lays off AI infrastructure team", "https://c.example.com/3"),
	}
	res := Deduplicate(in, DedupOptions{})
	if len(res.Kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(res.Kept))
	}
	if res.DroppedBySimilarity != 1 {
		t.Fatalf("expected 1 dropped by similarity, got %d", res.DroppedBySimilarity)
	}
	// 先到先得：保留的是第一条
	if res.Kept[0].URL != "https://a.example.com/1" {
		t.Fatalf("expected first variant kept, got %s", res.Kept[0].URL)
	}
}

func TestDeduplicateShortTitleExemption(t *testing.T) {
	// 词数低于下限的标题不参与相似度比较，即便词集完全相同
	in := []collector.RawArticle{
		rawArticle("GPT 5", "https://a.example.com/1"),
		rawArticle("5 GPT", "https://b.example.com/2"),
	}
	res := Deduplicate(in, DedupOptions{})
	if len(res.Kept) != 2 {
		t.Fatalf("expected short titles exempt from similarity, got %d kept", len(res.Kept))
	}
}

func TestDeduplicateDropsShortTitles(t *testing.T) {
	// 空标题、纯空白和不足 3 个字符的标题直接丢弃，不进入任何比较
	in := []collector.RawArticle{
		rawArticle("a", "https://a.example.com/1"),
		rawArticle("  ", "https://b.example.com/2"),
		rawArticle("", "https://c.example.com/3"),
		rawArticle("AI chip demand keeps climbing", "https://d.example.com/4"),
	}
	res := Deduplicate(in, DedupOptions{})
	if len(res.Kept) != 1 {
		t.Fatalf("expected 1 kept, got %d", len(res.Kept))
	}
	if res.Kept[0].Title != "AI chip demand keeps climbing" {
		t.Fatalf("unexpected survivor %q", res.Kept[0].Title)
	}
	if res.DroppedEmptyTitle != 3 {
		t.Fatalf("expected 3 dropped by empty title, got %d", res.DroppedEmptyTitle)
	}
}

func TestDeduplicateDropsPlaceholders(t *testing.T) {
	in := []collector.RawArticle{
		rawArticle("[截图采集] Example - 需要人工处理", "https://a.example.com/1"),
		rawArticle("Normal AI article about robotics", "https://b.example.com/2"),
	}
	res := Deduplicate(in, DedupOptions{})
	if len(res.Kept) != 1 {
		t.Fatalf("expected 1 kept, got %d", len(res.Kept))
	}
	if res.DroppedPlaceholders != 1 {
		t.Fatalf("expected 1 placeholder dropped, got %d", res.DroppedPlaceholders)
	}
}

func TestDeduplicateDeterministic(t *testing.T) {
	in := []collector.RawArticle{
		rawArticle("Anthropic releases Claude update with new features", "https://a.example.com/1"),
		rawArticle("Anthropic releases Claude update with new features today", "https://b.example.com/2"),
		rawArticle("EU parliament passes AI act amendments", "https://c.example.com/3"),
	}
	first := Deduplicate(in, DedupOptions{})
	second := Deduplicate(in, DedupOptions{})
	if len(first.Kept) != len(second.Kept) {
		t.Fatalf("expected deterministic result, got %d vs %d", len(first.Kept), len(second.Kept))
	}
	for i := range first.Kept {
		if first.Kept[i].URL != second.Kept[i].URL {
			t.Fatalf("expected stable order at %d: %s vs %s", i, first.Kept[i].URL, second.Kept[i].URL)
		}
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	// 去重结果再过一遍去重应当是不动点：全部保留、顺序不变、各项计数为零
	in := []collector.RawArticle{
		rawArticle("OpenAI releases new model", "https://a.example.com/1"),
		rawArticle("OpenAI releases new flagship model", "https://b.example.com/2"),
		rawArticle("Meta lays off AI infrastructure team", "https://c.example.com/3"),
		rawArticle("Meta lays off AI infrastructure team", "https://c.example.com/3?utm_source=rss"),
	}
	first := Deduplicate(in, DedupOptions{})
	second := Deduplicate(first.Kept, DedupOptions{})

	if len(second.Kept) != len(first.Kept) {
		t.Fatalf("expected fixed point, got %d -> %d", len(first.Kept), len(second.Kept))
	}
	for i := range first.Kept {
		if second.Kept[i].URL != first.Kept[i].URL {
			t.Fatalf("order changed at %d: %s vs %s", i, first.Kept[i].URL, second.Kept[i].URL)
		}
	}
	if second.DroppedByURL != 0 || second.DroppedByFingerprint != 0 ||
		second.DroppedBySimilarity != 0 || second.DroppedPlaceholders != 0 ||
		second.DroppedEmptyTitle != 0 {
		t.Fatalf("second pass must drop nothing, got %+v", second)
	}
}

func TestNormalizeURL(t *testing.T) {
	got := normalizeURL("https://Example.com/path/?utm_source=x&utm_campaign=y&ref=home")
	if got != "https://example.com/path" {
		t.Fatalf("unexpected normalized url: %q", got)
	}
}

func TestJaccard(t *testing.T) {
	a := titleWordSet("openai releases new model")
	b := titleWordSet("openai releases new model today")
	sim := jaccard(a, b)
	if sim < 0.79 || sim > 0.81 {
		t.Fatalf("expected jaccard 0.8, got %f", sim)
	}
	if jaccard(a, nil) != 0 {
		t.Fatalf("expected 0 for empty set")
	}
}
