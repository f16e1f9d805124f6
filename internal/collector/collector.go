package collector

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/LJTian/AIBriefHub/internal/source"
)

const (
	maxRetries   = 3
	retryBackoff = 2 * time.Second // 指数退避基数
)

// 采集失败的两类终态：被反爬拦截、重试耗尽
var (
	ErrBlocked   = errors.New("blocked by anti-bot")
	ErrExhausted = errors.New("retries exhausted")
)

// RawArticle 采集阶段的原始文章，创建后不再修改
type RawArticle struct {
	SourceName        string
	SourceCategory    string
	SourceSubCategory string
	URL               string
	Title             string
	Snippet           string
	PublishedDate     string // 页面上的原始日期文本，未解析
	CollectedAt       time.Time
	Fingerprint       string

	// 用于去重前的稳定排序，避免依赖任务完成顺序
	SourcePriority int
	SourceIndex    int
	URLIndex       int
}

// Collector 抽象一种采集策略
type Collector interface {
	Name() string
	Collect(ctx context.Context, src source.Source) ([]RawArticle, error)
}

// ComputeFingerprint 基于标准化的标题和 URL 计算内容指纹，作为精确去重键
func ComputeFingerprint(title, url string) string {
	content := strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(url))
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// User-Agent 轮换列表，每次请求随机取一个
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.0.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// sleepCtx 可被取消的 sleep，用于重试退避和同源礼貌间隔
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoffDuration 第 attempt 次失败后的等待时间（attempt 从 0 开始）
func backoffDuration(attempt int) time.Duration {
	d := retryBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	// 加一点抖动，避免多个任务同步重试
	return d + time.Duration(rand.Int63n(int64(time.Second)))
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

const minVisibleText = 200

// 常见反爬拦截页的标志短语
var blockIndicators = []string{
	"access denied",
	"403 forbidden",
	"captcha",
	"cloudflare",
	"please verify you are human",
	"bot detection",
	"automated access",
	"rate limited",
	"too many requests",
	"please enable javascript",
	"challenge-platform",
}

// isBlockedPage 判断页面是否为反爬拦截页。
// 正文过短直接判拦截；否则要求至少命中两个独立标志，避免误伤本来就短的正常页面。
func isBlockedPage(html string) bool {
	if strings.TrimSpace(html) == "" {
		return true
	}
	text := strings.TrimSpace(tagRe.ReplaceAllString(html, ""))
	if len(text) < minVisibleText {
		return true
	}
	lower := strings.ToLower(html)
	hits := 0
	for _, ind := range blockIndicators {
		if strings.Contains(lower, ind) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

// extractDomain 取 URL 的主域名，用于按域名限并发
func extractDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.ToLower(u.Host)
}

func wrapExhausted(lastErr error, url string) error {
	if lastErr == nil {
		lastErr = ErrExhausted
	}
	return fmt.Errorf("fetch %s after %d attempts: %w", url, maxRetries, lastErr)
}
