package extractor

import (
	"strings"
	"testing"
)

func TestExtractFromArticleTags(t *testing.T) {
	html := `<html><body>
		<article>
			<h2><a href="/news/1">First AI article title</a></h2>
			<p>Summary paragraph one for the first article.</p>
			<time datetime="2026-08-27T10:00:00Z">Aug 27</time>
		</article>
		<article>
			<h2><a href="https://other.example.com/news/2">Second AI article title</a></h2>
			<p>Summary for the second article.</p>
		</article>
	</body></html>`

	got := Extract(html, "https://example.com/blog", "Example")
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Title != "First AI article title" {
		t.Fatalf("unexpected title: %q", got[0].Title)
	}
	// 相对链接应基于页面 URL 解析为绝对链接
	if got[0].URL != "https://example.com/news/1" {
		t.Fatalf("unexpected resolved url: %q", got[0].URL)
	}
	if got[0].Date != "2026-08-27" {
		t.Fatalf("unexpected date: %q", got[0].Date)
	}
	if got[1].URL != "https://other.example.com/news/2" {
		t.Fatalf("absolute url should pass through, got %q", got[1].URL)
	}
}

func TestExtractFromListSelectors(t *testing.T) {
	// 没有 article 标签时退到列表选择器
	html := `<html><body>
		<ul>
			<li><h3><a href="/post/1">A reasonably long headline one</a></h3><p>snippet one</p></li>
			<li><h3><a href="/post/2">A reasonably long headline two</a></h3></li>
			<li><h3><a href="/post/1">A reasonably long headline one</a></h3></li>
			<li><h3><a href="#">skip</a></h3></li>
			<li><h3><a href="/x">ab</a></h3></li>
		</ul>
	</body></html>`

	got := Extract(html, "https://example.com", "Example")
	// 重复 URL、锚点链接与过短标题都应被跳过
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	if got[0].URL != "https://example.com/post/1" || got[1].URL != "https://example.com/post/2" {
		t.Fatalf("unexpected urls: %q %q", got[0].URL, got[1].URL)
	}
}

func TestExtractSingleArticleFallback(t *testing.T) {
	// 无列表结构的详情页：页面标题 + 正文段落
	long := strings.Repeat("正文内容，", 20)
	html := `<html><head><title>Deep dive into model training | Example Site</title></head><body>
		<div><p>` + long + `</p></div>
	</body></html>`

	got := Extract(html, "https://example.com/post", "Example")
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	// 站名后缀应被清理
	if got[0].Title != "Deep dive into model training" {
		t.Fatalf("unexpected title: %q", got[0].Title)
	}
	if got[0].URL != "https://example.com/post" {
		t.Fatalf("unexpected url: %q", got[0].URL)
	}
	if got[0].Snippet == "" {
		t.Fatalf("expected snippet from paragraphs")
	}
}

func TestExtractEmptyAndScriptOnly(t *testing.T) {
	if got := Extract("", "https://example.com", "Example"); got != nil {
		t.Fatalf("expected nil for empty html, got %+v", got)
	}
	// 只有脚本与导航的页面不应产出候选
	html := `<html><head><title>t</title></head><body>
		<script>var a = 1;</script><nav><a href="/m">menu item text</a></nav>
	</body></html>`
	if got := Extract(html, "https://example.com", "Example"); len(got) != 0 {
		t.Fatalf("expected no candidates, got %+v", got)
	}
}

func TestExtractCapsAtMaxArticles(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 30; i++ {
		b.WriteString(`<article><h2><a href="/n/`)
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString(`">Generated headline number entry</a></h2></article>`)
	}
	b.WriteString("</body></html>")

	got := Extract(b.String(), "https://example.com", "Example")
	if len(got) != MaxArticlesPerPage {
		t.Fatalf("expected cap at %d, got %d", MaxArticlesPerPage, len(got))
	}
}

func TestExtractDateFromClass(t *testing.T) {
	html := `<html><body><article>
		<h2><a href="/n/1">Headline with class based date</a></h2>
		<span class="post-date">2026-08-26</span>
	</article></body></html>`
	got := Extract(html, "https://example.com", "Example")
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Date != "2026-08-26" {
		t.Fatalf("unexpected date: %q", got[0].Date)
	}
}

func TestCleanTitleSuffix(t *testing.T) {
	cases := map[string]string{
		"Headline | Site":      "Headline",
		"Headline - Site":      "Headline",
		"Headline":             "Headline",
		"Headline · Some Site": "Headline",
	}
	for in, want := range cases {
		if got := cleanTitleSuffix(in); got != want {
			t.Fatalf("cleanTitleSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("中文标题测试", 3); got != "中文标" {
		t.Fatalf("rune truncation broken: %q", got)
	}
	if got := truncateRunes("short", 100); got != "short" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
