package curator

import (
	"strings"

	"github.com/LJTian/AIBriefHub/internal/collector"
)

const (
	minImportance = 1
	maxImportance = 5
	maxRuleBonus  = 2
)

// tier1Sources 一线来源，命中加 1 分
var tier1Sources = []string{
	"openai", "anthropic", "google", "deepmind", "meta ai", "microsoft",
	"nvidia", "英伟达", "reuters", "路透", "bloomberg", "彭博",
}

// policySignals 政策监管信号词，命中加 1 分
var policySignals = []string{
	"法案", "立法", "监管", "regulation", "executive order", "行政令",
	"ai act", "禁令", "合规", "eu ai", "白宫", "white house", "国务院",
}

// keyFigures 关键人物，命中加 1 分
var keyFigures = []string{
	"altman", "奥特曼", "hinton", "lecun", "bengio", "黄仁勋", "jensen huang",
	"musk", "马斯克", "sundar pichai", "nadella", "amodei", "hassabis",
}

// impactKeywords 重大影响信号词，命中两个及以上加 1 分
var impactKeywords = []string{
	"billion", "亿美元", "亿元", "breakthrough", "突破", "首次", "first",
	"收购", "acquisition", "ipo", "record", "纪录", "sota", "里程碑", "milestone",
}

func countHits(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// AdjustScore 在 LLM 基础分上叠加规则加分。
// 各规则独立加分，总加分封顶 maxRuleBonus，结果收敛到 [1,5]。
func AdjustScore(base int, article collector.RawArticle) int {
	text := strings.ToLower(article.Title + " " + article.Snippet)
	sourceText := strings.ToLower(article.SourceName + " " + article.URL)

	bonus := 0
	if countHits(sourceText, tier1Sources) > 0 || countHits(text, tier1Sources) > 0 {
		bonus++
	}
	if countHits(text, policySignals) > 0 {
		bonus++
	}
	if countHits(text, keyFigures) > 0 {
		bonus++
	}
	if countHits(text, impactKeywords) >= 2 {
		bonus++
	}
	if bonus > maxRuleBonus {
		bonus = maxRuleBonus
	}

	score := base + bonus
	if score < minImportance {
		score = minImportance
	}
	if score > maxImportance {
		score = maxImportance
	}
	return score
}
