package curator

import "strings"

// FallbackCategory 无法归入任何预定义分类时的兜底
const FallbackCategory = "企业动态"

// Categories 简报使用的十大分类闭集，入库前所有分类必须落在这个集合内
var Categories = []string{
	"技术突破",
	"产品发布",
	"企业动态",
	"政策监管",
	"投融资",
	"研究前沿",
	"行业应用",
	"人才市场",
	"安全伦理",
	"芯片与算力",
}

var categorySet = func() map[string]bool {
	m := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		m[c] = true
	}
	return m
}()

// subCategoryFallback 源配置中的二级分类到简报分类的映射，
// 用于 LLM 返回非法标签时按来源猜测分类
var subCategoryFallback = map[string]string{
	"官方博客": "产品发布",
	"科技媒体": "企业动态",
	"学术前沿": "研究前沿",
	"政策监管": "政策监管",
	"投资并购": "投融资",
	"芯片算力": "芯片与算力",
	"安全伦理": "安全伦理",
	"开源社区": "技术突破",
	"行业报告": "行业应用",
	"人物观点": "企业动态",
}

// CoerceCategory 把任意标签收敛到分类闭集：
// 合法标签原样返回；前缀/包含匹配尝试修复 LLM 的轻微跑偏；
// 仍不合法时按来源二级分类猜测，最后兜底为 FallbackCategory。
func CoerceCategory(label, subCategory string) string {
	label = strings.TrimSpace(label)
	if categorySet[label] {
		return label
	}
	for _, c := range Categories {
		if label != "" && (strings.Contains(label, c) || strings.Contains(c, label)) {
			return c
		}
	}
	if c, ok := subCategoryFallback[strings.TrimSpace(subCategory)]; ok {
		return c
	}
	return FallbackCategory
}
