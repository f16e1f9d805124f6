package collector

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/LJTian/AIBriefHub/internal/extractor"
	"github.com/LJTian/AIBriefHub/internal/source"
)

const (
	httpRequestTimeout = 30 * time.Second
	httpMaxBodyBytes   = 4 << 20 // 4MB，防止超大 HTML 拖垮解析
)

// HTTPCollector 基于 colly 的普通 HTTP 采集器，适用于大多数静态 HTML 站点
type HTTPCollector struct{}

func NewHTTPCollector() *HTTPCollector {
	return &HTTPCollector{}
}

func (h *HTTPCollector) Name() string {
	return "http"
}

// Collect 顺序采集单个信息源的所有 URL。
// 单个 URL 失败只跳过该 URL，不影响同源的其它 URL（源内部分成功是允许的）。
func (h *HTTPCollector) Collect(ctx context.Context, src source.Source) ([]RawArticle, error) {
	all := make([]RawArticle, 0, 16)
	collectedAt := time.Now().UTC()

	for i, u := range src.URLs {
		if ctx.Err() != nil {
			return all, ctx.Err()
		}

		html, err := h.fetchURL(ctx, u)
		if err != nil {
			log.Printf("[HTTP] %s skip url %s: %v", src.Name, u, err)
			continue
		}

		for _, cand := range extractor.Extract(html, u, src.Name) {
			if cand.Title == "" {
				continue
			}
			all = append(all, RawArticle{
				SourceName:        src.Name,
				SourceCategory:    src.Category,
				SourceSubCategory: src.SubCategory,
				URL:               cand.URL,
				Title:             cand.Title,
				Snippet:           cand.Snippet,
				PublishedDate:     cand.Date,
				CollectedAt:       collectedAt,
				Fingerprint:       ComputeFingerprint(cand.Title, cand.URL),
				SourcePriority:    src.Priority,
				URLIndex:          i,
			})
		}

		// 同源 URL 之间加随机礼貌间隔，避免过快请求同一域名
		if i < len(src.URLs)-1 {
			delay := 500*time.Millisecond + time.Duration(rand.Int63n(int64(time.Second)))
			if err := sleepCtx(ctx, delay); err != nil {
				return all, err
			}
		}
	}

	log.Printf("[HTTP] %s: %d urls -> %d articles", src.Name, len(src.URLs), len(all))
	return all, nil
}

// fetchURL 抓取单个 URL 的 HTML，带指数退避重试。
// 拦截页视为失败参与重试；重试耗尽后返回终态错误，由上层决定是否降级。
func (h *HTTPCollector) fetchURL(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		html, err := h.doFetch(url)
		if err == nil {
			if !isBlockedPage(html) {
				return html, nil
			}
			err = ErrBlocked
		}
		lastErr = err

		if attempt < maxRetries-1 {
			wait := backoffDuration(attempt)
			log.Printf("[HTTP] fetch %s failed (%d/%d): %v, wait %s", url, attempt+1, maxRetries, err, wait)
			if serr := sleepCtx(ctx, wait); serr != nil {
				return "", serr
			}
		}
	}

	return "", wrapExhausted(lastErr, url)
}

// doFetch 单次请求。每次请求新建 collector 并随机轮换 User-Agent
func (h *HTTPCollector) doFetch(url string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(randomUserAgent()),
		colly.MaxBodySize(httpMaxBodyBytes),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(httpRequestTimeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9,zh-CN;q=0.8,zh;q=0.7")
		r.Headers.Set("Cache-Control", "no-cache")
	})

	var (
		body     string
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	if body == "" {
		return "", errors.New("empty response body")
	}
	return body, nil
}
