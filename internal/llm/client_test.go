package llm

import (
	"context"
	"testing"
)

func TestParseIndexedLines(t *testing.T) {
	resp := "1:是\n2：否\n3. 技术突破\n\n无效行\nx:跳过\n4: 5 "
	got := parseIndexedLines(resp)
	if got[0] != "是" {
		t.Fatalf("expected index 0 = 是, got %q", got[0])
	}
	if got[1] != "否" {
		t.Fatalf("expected index 1 = 否 (中文冒号), got %q", got[1])
	}
	if got[2] != "技术突破" {
		t.Fatalf("expected index 2 = 技术突破 (点号分隔), got %q", got[2])
	}
	if got[3] != "5" {
		t.Fatalf("expected index 3 = 5, got %q", got[3])
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 parsed lines, got %d", len(got))
	}
}

func TestFallbackRelevance(t *testing.T) {
	items := []Item{
		{Title: "OpenAI releases new reasoning model"},
		{Title: "本地餐厅推出新菜单"},
		{Title: "英伟达发布新一代芯片", Snippet: "算力翻倍"},
	}
	got := fallbackRelevance(items)
	if !got[0] || got[1] || !got[2] {
		t.Fatalf("unexpected relevance: %v", got)
	}
}

func TestFallbackClassify(t *testing.T) {
	items := []Item{
		{Title: "某公司完成新一轮融资，估值翻倍"},
		{Title: "新论文研究 transformer 架构", Snippet: "arxiv 实验结果"},
		{Title: "没有任何信号词的标题"},
	}
	got := fallbackClassify(items)
	if got[0] != "投融资" {
		t.Fatalf("expected 投融资, got %q", got[0])
	}
	if got[1] != "研究前沿" {
		t.Fatalf("expected 研究前沿, got %q", got[1])
	}
	if got[2] != "企业动态" {
		t.Fatalf("expected default 企业动态, got %q", got[2])
	}
}

func TestFallbackScore(t *testing.T) {
	items := []Item{
		{Title: "plain article"},
		{Title: "OpenAI announces something"},
		{Title: "OpenAI 完成 billion 级收购"}, // 机构 + 事件词
	}
	got := fallbackScore(items)
	if got[0] != 3 {
		t.Fatalf("expected base 3, got %d", got[0])
	}
	if got[1] != 4 {
		t.Fatalf("expected 4 with entity bonus, got %d", got[1])
	}
	if got[2] != 5 {
		t.Fatalf("expected 5 with both bonuses, got %d", got[2])
	}
}

func TestClientUnavailableUsesFallback(t *testing.T) {
	c := NewClient("", "", "", 15)
	if c.Available() {
		t.Fatalf("client without key should be unavailable")
	}
	items := []Item{{Title: "机器学习新进展"}, {Title: "毫不相关的内容"}}
	rel := c.FilterRelevance(context.Background(), items)
	if len(rel) != 2 || !rel[0] || rel[1] {
		t.Fatalf("unexpected fallback relevance: %v", rel)
	}
	labels := c.Classify(context.Background(), items)
	if len(labels) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(labels))
	}
	scores := c.ScoreImportance(context.Background(), items)
	for _, s := range scores {
		if s < minScore || s > maxScore {
			t.Fatalf("score out of range: %d", s)
		}
	}
}
