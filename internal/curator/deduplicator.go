package curator

import (
	"regexp"
	"strings"

	"github.com/LJTian/AIBriefHub/internal/collector"
)

const (
	// DefaultSimilarityThreshold 标题 Jaccard 相似度达到该值视为重复
	DefaultSimilarityThreshold = 0.8
	// DefaultMinTitleWords 标题去重词数下限，低于时跳过相似度比较（短标题易误伤）
	DefaultMinTitleWords = 3
)

// DedupOptions 去重参数，零值字段回落到默认值
type DedupOptions struct {
	SimilarityThreshold float64
	MinTitleWords       int
}

// DedupResult 去重结果与分项计数
type DedupResult struct {
	Kept []collector.RawArticle

	DroppedByURL         int
	DroppedByFingerprint int
	DroppedBySimilarity  int
	DroppedPlaceholders  int
	DroppedEmptyTitle    int
}

var trackingParamPattern = regexp.MustCompile(`[?&](utm_\w+|ref|source|campaign)=[^&]*`)

// normalizeURL 去掉跟踪参数、末尾斜杠并统一小写，用于 URL 级去重
func normalizeURL(rawURL string) string {
	u := trackingParamPattern.ReplaceAllString(rawURL, "")
	u = strings.TrimSuffix(u, "?")
	u = strings.TrimSuffix(u, "/")
	return strings.ToLower(u)
}

// normalizeTitle 小写并压缩空白，标点替换为空格
func normalizeTitle(title string) string {
	title = strings.ToLower(title)
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r >= 0x4E00 && r <= 0x9FFF:
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func titleWordSet(title string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(normalizeTitle(title)) {
		set[w] = true
	}
	return set
}

// jaccard 两个词集的交并比，任一为空时返回 0
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func isPlaceholderTitle(title string) bool {
	for _, m := range collector.PlaceholderMarkers {
		if strings.Contains(title, m) {
			return true
		}
	}
	return false
}

// Deduplicate 单遍贪心去重：依次按规范化 URL、指纹、标题相似度判重，
// 先到先得，输入顺序即保留优先级。截图占位条目直接丢弃，不参与比较。
func Deduplicate(articles []collector.RawArticle, opts DedupOptions) DedupResult {
	threshold := opts.SimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	minWords := opts.MinTitleWords
	if minWords <= 0 {
		minWords = DefaultMinTitleWords
	}

	var res DedupResult
	seenURLs := make(map[string]bool)
	seenFingerprints := make(map[string]bool)
	var keptTitleSets []map[string]bool

	for _, a := range articles {
		// 空标题或不足 3 个字符的标题没有比较价值，直接丢弃
		if len([]rune(strings.TrimSpace(a.Title))) < 3 {
			res.DroppedEmptyTitle++
			continue
		}
		if isPlaceholderTitle(a.Title) {
			res.DroppedPlaceholders++
			continue
		}

		nu := normalizeURL(a.URL)
		if nu != "" && seenURLs[nu] {
			res.DroppedByURL++
			continue
		}

		fp := a.Fingerprint
		if fp == "" {
			fp = collector.ComputeFingerprint(a.Title, a.URL)
		}
		if seenFingerprints[fp] {
			res.DroppedByFingerprint++
			continue
		}

		words := titleWordSet(a.Title)
		duplicate := false
		// 词数不足的标题跳过相似度比较
		if len(words) >= minWords {
			for _, kept := range keptTitleSets {
				if jaccard(words, kept) >= threshold {
					duplicate = true
					break
				}
			}
		}
		if duplicate {
			res.DroppedBySimilarity++
			continue
		}

		if nu != "" {
			seenURLs[nu] = true
		}
		seenFingerprints[fp] = true
		keptTitleSets = append(keptTitleSets, words)
		a.Fingerprint = fp
		res.Kept = append(res.Kept, a)
	}
	return res
}
