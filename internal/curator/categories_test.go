package curator

import "testing"

func TestCoerceCategoryValidLabel(t *testing.T) {
	for _, c := range Categories {
		if got := CoerceCategory(c, ""); got != c {
			t.Fatalf("valid label %q coerced to %q", c, got)
		}
	}
}

func TestCoerceCategoryFuzzyMatch(t *testing.T) {
	// LLM 偶尔会带序号或多余前后缀
	cases := map[string]string{
		"3. 企业动态":   "企业动态",
		"分类：政策监管":   "政策监管",
		"芯片":        "芯片与算力",
		" 投融资 ":     "投融资",
	}
	for in, want := range cases {
		if got := CoerceCategory(in, ""); got != want {
			t.Fatalf("CoerceCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCoerceCategorySubCategoryFallback(t *testing.T) {
	if got := CoerceCategory("不存在的分类", "学术前沿"); got != "研究前沿" {
		t.Fatalf("expected sub-category fallback 研究前沿, got %q", got)
	}
	if got := CoerceCategory("", "官方博客"); got != "产品发布" {
		t.Fatalf("expected sub-category fallback 产品发布, got %q", got)
	}
}

func TestCoerceCategoryFinalFallback(t *testing.T) {
	if got := CoerceCategory("乱七八糟", "未知来源"); got != FallbackCategory {
		t.Fatalf("expected final fallback %q, got %q", FallbackCategory, got)
	}
}
