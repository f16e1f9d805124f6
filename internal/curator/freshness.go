package curator

import (
	"regexp"
	"strings"
	"time"

	"github.com/LJTian/AIBriefHub/internal/collector"
)

// FreshnessFilter 按发布日期过滤过期文章。
// Days 为保留窗口（含当天），Now 便于测试注入，默认 time.Now。
type FreshnessFilter struct {
	Days int
	Now  func() time.Time
}

// dateFormats ParseArticleDate 依次尝试的常见日期格式
var dateFormats = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006年01月02日",
	"2006年1月2日",
}

var looseDatePattern = regexp.MustCompile(`(\d{4})[-/年](\d{1,2})[-/月](\d{1,2})`)

// ParseArticleDate 尽力解析站点五花八门的日期字符串，失败返回零值
func ParseArticleDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	// 带时间后缀的字符串截前 10 位再试
	if len(raw) > 10 {
		head := raw[:10]
		for _, layout := range []string{"2006-01-02", "2006/01/02"} {
			if t, err := time.Parse(layout, head); err == nil {
				return t
			}
		}
	}
	if m := looseDatePattern.FindStringSubmatch(raw); m != nil {
		if t, err := time.Parse("2006-1-2", m[1]+"-"+m[2]+"-"+m[3]); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Filter 丢弃发布日期早于保留窗口的文章。
// 发布日期解析失败时退回采集时间；两者都拿不到的保留，宁多勿漏。
// 返回保留列表和丢弃数。
func (f *FreshnessFilter) Filter(articles []collector.RawArticle) ([]collector.RawArticle, int) {
	now := time.Now()
	if f.Now != nil {
		now = f.Now()
	}
	days := f.Days
	if days <= 0 {
		days = 2
	}
	// 按日期粒度比较，当天零点起算，避免时分秒导致边界日被误伤
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := today.AddDate(0, 0, -days)

	kept := make([]collector.RawArticle, 0, len(articles))
	dropped := 0
	for _, a := range articles {
		t := ParseArticleDate(a.PublishedDate)
		if t.IsZero() {
			t = a.CollectedAt
		}
		if t.IsZero() || !t.Before(cutoff) {
			kept = append(kept, a)
			continue
		}
		dropped++
	}
	return kept, dropped
}
