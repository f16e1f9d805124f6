package collector

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/LJTian/AIBriefHub/internal/extractor"
	"github.com/LJTian/AIBriefHub/internal/source"
)

const (
	browserTimeout       = 60 * time.Second
	screenshotQuality    = 80
	minOCRTextLen        = 50 // OCR 文字少于该值时视为提取失败，降级为占位条目
	browserPolitenessMin = 2 * time.Second
)

// 注入到每个页面的反检测脚本，隐藏无头浏览器痕迹
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = { runtime: {}, loadTimes: function(){}, csi: function(){} };
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });
`

// 模拟真人缓慢滚动，部分站点靠滚动行为判断是否真人
const humanScrollScript = `
(function () {
  var step = document.body.scrollHeight / 10;
  for (var i = 0; i < 3; i++) { window.scrollBy(0, step); }
  return true;
})();`

// BrowserCollector 基于 chromedp 的无头浏览器采集器。
// 适用于 JS 动态渲染和反爬较严的站点；被拦截时还有截图+OCR 的最后兜底。
type BrowserCollector struct {
	ocr OCREngine

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func NewBrowserCollector(ocr OCREngine) *BrowserCollector {
	return &BrowserCollector{ocr: ocr}
}

func (b *BrowserCollector) Name() string {
	return "browser"
}

// ensureBrowser 懒启动 headless 实例，整个采集周期复用同一个浏览器
func (b *BrowserCollector) ensureBrowser() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil && b.browserCtx.Err() == nil {
		return b.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// 预热，启动失败时尽早暴露
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start headless browser: %w", err)
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	return browserCtx, nil
}

// Close 关闭浏览器实例，释放 Chrome 进程
func (b *BrowserCollector) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browserCancel != nil {
		b.browserCancel()
		b.browserCancel = nil
	}
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
	}
	b.browserCtx = nil
}

// Collect 采集单个信息源，三级降级：渲染后 HTML 解析 → 截图 OCR → 占位条目
func (b *BrowserCollector) Collect(ctx context.Context, src source.Source) ([]RawArticle, error) {
	all := make([]RawArticle, 0, 16)
	collectedAt := time.Now().UTC()

	for i, u := range src.URLs {
		if ctx.Err() != nil {
			return all, ctx.Err()
		}

		html, screenshot, err := b.fetchPage(ctx, u)
		if err != nil {
			log.Printf("[Browser] %s skip url %s: %v", src.Name, u, err)
		}

		var cands []extractor.Candidate
		if html != "" {
			cands = extractor.Extract(html, u, src.Name)
		}

		// HTML 没有产出但有截图时，启用 OCR 兜底
		if len(cands) == 0 && len(screenshot) > 0 {
			log.Printf("[Browser] %s no html result, try screenshot OCR: %s", src.Name, u)
			cands = b.extractFromScreenshot(ctx, screenshot, u, src.Name)
		}

		for _, cand := range cands {
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

		// 浏览器采集间隔比 HTTP 更长，模拟真人浏览节奏
		if i < len(src.URLs)-1 {
			delay := browserPolitenessMin + time.Duration(rand.Int63n(int64(2*time.Second)))
			if err := sleepCtx(ctx, delay); err != nil {
				return all, err
			}
		}
	}

	log.Printf("[Browser] %s: %d urls -> %d articles", src.Name, len(src.URLs), len(all))
	return all, nil
}

// fetchPage 渲染页面并返回 HTML 与整页截图。
// 被拦截或出错时带退避重试；重试耗尽后 HTML 为空，但尽量保留最后一次截图供 OCR 使用。
func (b *BrowserCollector) fetchPage(ctx context.Context, url string) (string, []byte, error) {
	browserCtx, err := b.ensureBrowser()
	if err != nil {
		return "", nil, err
	}

	var (
		lastErr  error
		lastShot []byte
	)

	for attempt := 0; attempt < maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", lastShot, ctx.Err()
		}

		html, shot, err := b.renderOnce(browserCtx, url)
		if len(shot) > 0 {
			lastShot = shot
		}
		if err == nil {
			if !isBlockedPage(html) {
				return html, shot, nil
			}
			log.Printf("[Browser] %s looks blocked, keep screenshot for OCR", url)
			err = ErrBlocked
		}
		lastErr = err

		if attempt < maxRetries-1 {
			wait := backoffDuration(attempt)
			log.Printf("[Browser] fetch %s failed (%d/%d): %v, wait %s", url, attempt+1, maxRetries, err, wait)
			if serr := sleepCtx(ctx, wait); serr != nil {
				return "", lastShot, serr
			}
		}
	}

	return "", lastShot, wrapExhausted(lastErr, url)
}

// renderOnce 单次渲染：新开一个 tab，注入反检测脚本后导航、滚动、取 HTML 和截图
func (b *BrowserCollector) renderOnce(browserCtx context.Context, url string) (string, []byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	runCtx, cancel := context.WithTimeout(tabCtx, browserTimeout)
	defer cancel()

	settle := time.Duration(2000+rand.Intn(2000)) * time.Millisecond

	var (
		html string
		shot []byte
	)
	err := chromedp.Run(runCtx,
		emulation.SetUserAgentOverride(randomUserAgent()),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, e := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return e
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settle),
		chromedp.Evaluate(humanScrollScript, nil),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.FullScreenshot(&shot, screenshotQuality),
	)
	if err != nil {
		return "", shot, err
	}
	return html, shot, nil
}

// extractFromScreenshot OCR 提取截图文字；文字过少时产出一条占位条目，
// 占位条目会在去重阶段被过滤，永远不会进入最终简报。
func (b *BrowserCollector) extractFromScreenshot(ctx context.Context, screenshot []byte, url, sourceName string) []extractor.Candidate {
	if b.ocr == nil {
		return []extractor.Candidate{placeholderCandidate(url, sourceName)}
	}

	text, err := b.ocr.ExtractText(ctx, screenshot)
	if err != nil {
		log.Printf("[OCR] %s extract error: %v", url, err)
		return []extractor.Candidate{placeholderCandidate(url, sourceName)}
	}
	if len([]rune(text)) < minOCRTextLen {
		log.Printf("[OCR] %s too little text (%d chars)", url, len([]rune(text)))
		return []extractor.Candidate{placeholderCandidate(url, sourceName)}
	}

	cands := parseOCRText(text, url)
	log.Printf("[OCR] %s: %d candidates from OCR text", sourceName, len(cands))
	if len(cands) == 0 {
		return []extractor.Candidate{placeholderCandidate(url, sourceName)}
	}
	return cands
}
