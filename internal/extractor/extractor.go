package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	MaxTitleLen        = 300 // 标题最大字符数（rune）
	MaxSnippetLen      = 500 // 摘要最大字符数（rune）
	MaxArticlesPerPage = 20  // 每个页面最多提取的条目数
	minListTitleLen    = 5
	minFullPageTextLen = 100
)

// Candidate 从页面中提取出的候选文章条目
type Candidate struct {
	Title   string
	URL     string
	Date    string // 原始日期文本，可能为空
	Snippet string
}

// 列表/卡片类页面的常见选择器，按命中率排序
var listSelectors = []string{
	"li h2 a", "li h3 a", "li h4 a",
	".card a", ".post a", ".item a",
	".news-item a", ".article-item a", ".entry a",
	".blog-post a", ".research-item a",
	"h2 a", "h3 a",
}

// Extract 从 HTML 中提取候选文章列表，纯函数、无 I/O。
// 提取策略逐级降级：article 标签 → 列表选择器 → 单文章整页提取 → 全页文本兜底。
// 任一级产出 ≥1 条即停止。
func Extract(html, baseURL, sourceName string) []Candidate {
	if strings.TrimSpace(html) == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	// 去掉脚本、样式与页面骨架，避免提取到导航文字
	doc.Find("script, style, nav, footer, header").Remove()

	base, _ := url.Parse(baseURL)

	articles := extractFromArticleTags(doc, base)
	if len(articles) == 0 {
		articles = extractFromListSelectors(doc, base)
	}
	if len(articles) == 0 {
		articles = extractSingleArticle(doc, baseURL, sourceName)
	}
	if len(articles) == 0 {
		articles = extractWholePage(doc, baseURL)
	}

	if len(articles) > MaxArticlesPerPage {
		articles = articles[:MaxArticlesPerPage]
	}
	return articles
}

// 策略1：语义化 article 标签
func extractFromArticleTags(doc *goquery.Document, base *url.URL) []Candidate {
	var out []Candidate
	doc.Find("article").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		cand := extractFromContainer(sel, base)
		if cand.Title != "" {
			out = append(out, cand)
		}
		return len(out) < MaxArticlesPerPage
	})
	return out
}

// 策略2：常见列表项模式，带页面内 URL 去重
func extractFromListSelectors(doc *goquery.Document, base *url.URL) []Candidate {
	var out []Candidate
	seen := make(map[string]struct{})

	for _, selector := range listSelectors {
		doc.Find(selector).EachWithBreak(func(_ int, link *goquery.Selection) bool {
			href, _ := link.Attr("href")
			href = strings.TrimSpace(href)
			if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
				return true
			}
			full := resolveURL(base, href)
			if _, ok := seen[full]; ok {
				return true
			}
			seen[full] = struct{}{}

			title := strings.TrimSpace(link.Text())
			if len(title) < minListTitleLen {
				return true
			}

			// 借助父容器补充摘要和日期
			parent := link.Closest("li, div, article, section")
			snippet := ""
			date := ""
			if parent.Length() > 0 {
				snippet = firstParagraphs(parent, 2)
				date = extractDate(parent)
			}

			out = append(out, Candidate{
				Title:   truncateRunes(title, MaxTitleLen),
				URL:     full,
				Date:    date,
				Snippet: truncateRunes(snippet, MaxSnippetLen),
			})
			return len(out) < MaxArticlesPerPage
		})

		// 已经有一定数量就不再尝试更宽松的选择器
		if len(out) >= 5 {
			break
		}
	}
	return out
}

// 策略3：整页只有一篇文章时，用页面标题加正文段落
func extractSingleArticle(doc *goquery.Document, baseURL, sourceName string) []Candidate {
	title := extractPageTitle(doc)
	if title == "" {
		title = sourceName
	}

	var pieces []string
	total := 0
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		t := strings.TrimSpace(p.Text())
		if len(t) >= 40 {
			pieces = append(pieces, t)
			total += len(t)
		}
		return total < 4000
	})
	if title == "" || len(pieces) == 0 {
		return nil
	}

	return []Candidate{{
		Title:   truncateRunes(title, MaxTitleLen),
		URL:     baseURL,
		Date:    extractDate(doc.Selection),
		Snippet: truncateRunes(strings.Join(pieces, " "), MaxSnippetLen),
	}}
}

// 策略4：全页文本兜底，只有正文足够长时才产出
func extractWholePage(doc *goquery.Document, baseURL string) []Candidate {
	title := extractPageTitle(doc)
	text := strings.Join(strings.Fields(doc.Text()), " ")
	if title == "" || len(text) <= minFullPageTextLen {
		return nil
	}
	return []Candidate{{
		Title:   truncateRunes(title, MaxTitleLen),
		URL:     baseURL,
		Snippet: truncateRunes(text, MaxSnippetLen),
	}}
}

// extractFromContainer 从一个文章容器里提取标题、链接、摘要、日期
func extractFromContainer(sel *goquery.Selection, base *url.URL) Candidate {
	var cand Candidate

	heading := sel.Find("h1, h2, h3, h4").First()
	if heading.Length() > 0 {
		link := heading.Find("a").First()
		if link.Length() > 0 {
			cand.Title = strings.TrimSpace(link.Text())
			if href, ok := link.Attr("href"); ok {
				cand.URL = resolveURL(base, href)
			}
		} else {
			cand.Title = strings.TrimSpace(heading.Text())
		}
	}
	if cand.Title == "" {
		link := sel.Find("a").First()
		if link.Length() > 0 {
			cand.Title = strings.TrimSpace(link.Text())
			if href, ok := link.Attr("href"); ok {
				cand.URL = resolveURL(base, href)
			}
		}
	}
	if cand.URL == "" && base != nil {
		cand.URL = base.String()
	}

	cand.Title = truncateRunes(cand.Title, MaxTitleLen)
	cand.Snippet = truncateRunes(firstParagraphs(sel, 2), MaxSnippetLen)
	cand.Date = extractDate(sel)
	return cand
}

var dateClassRe = regexp.MustCompile(`(?i)(date|time|published|posted|datetime|timestamp)`)

// extractDate 从容器中提取日期文本，依次尝试 time 标签、日期 class、meta 标签。
// 提取不到返回空串，从不报错。
func extractDate(sel *goquery.Selection) string {
	timeTag := sel.Find("time").First()
	if timeTag.Length() > 0 {
		if dt, ok := timeTag.Attr("datetime"); ok && dt != "" {
			return truncateRunes(dt, 10)
		}
		if t := strings.TrimSpace(timeTag.Text()); t != "" {
			return truncateRunes(t, 10)
		}
	}

	var byClass string
	sel.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		cls, _ := s.Attr("class")
		if !dateClassRe.MatchString(cls) {
			return true
		}
		t := strings.TrimSpace(s.Text())
		if t != "" && len(t) < 50 {
			byClass = t
			return false
		}
		return true
	})
	if byClass != "" {
		return byClass
	}

	var byMeta string
	sel.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !dateClassRe.MatchString(name) {
			return true
		}
		if content, ok := s.Attr("content"); ok && content != "" {
			byMeta = truncateRunes(content, 10)
			return false
		}
		return true
	})
	return byMeta
}

// extractPageTitle 提取页面标题：<title> → h1 → og:title，并清理站名后缀
func extractPageTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return cleanTitleSuffix(t)
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		return strings.TrimSpace(og)
	}
	return ""
}

// cleanTitleSuffix 去掉 "文章标题 | 站名" 这类后缀
func cleanTitleSuffix(title string) string {
	for _, sep := range []string{" | ", " - ", " — ", " :: ", " · "} {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
		}
	}
	return strings.TrimSpace(title)
}

func firstParagraphs(sel *goquery.Selection, n int) string {
	var parts []string
	sel.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if t := strings.TrimSpace(p.Text()); t != "" {
			parts = append(parts, t)
		}
		return len(parts) < n
	})
	return strings.Join(parts, " ")
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// truncateRunes 按 rune 数截断，避免把多字节字符截成半个
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
