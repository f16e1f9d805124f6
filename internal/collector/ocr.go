package collector

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/LJTian/AIBriefHub/internal/extractor"
)

// OCREngine 从截图中提取文字的能力，方便在测试中替换
type OCREngine interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// TesseractOCR 调用本机 tesseract 命令做 OCR。
// 未安装 tesseract 时 ExtractText 返回错误，上层会降级为占位条目。
type TesseractOCR struct {
	Lang string // 例如 "eng+chi_sim"，为空时只用英文
}

func NewTesseractOCR() *TesseractOCR {
	return &TesseractOCR{Lang: "eng+chi_sim"}
}

func (t *TesseractOCR) ExtractText(ctx context.Context, image []byte) (string, error) {
	lang := t.Lang
	if lang == "" {
		lang = "eng"
	}

	out, err := runTesseract(ctx, image, lang)
	if err != nil && lang != "eng" {
		// 中文语言包可能未安装，退回纯英文再试一次
		out, err = runTesseract(ctx, image, "eng")
	}
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return out, nil
}

func runTesseract(ctx context.Context, image []byte, lang string) (string, error) {
	cmd := exec.CommandContext(ctx, "tesseract", "stdin", "stdout", "-l", lang)
	cmd.Stdin = bytes.NewReader(image)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s: %w", msg, err)
		}
		return "", err
	}
	return stdout.String(), nil
}

// PlaceholderMarkers 占位条目的识别标记，去重阶段用它把占位条目挡在简报之外
var PlaceholderMarkers = []string{
	"[截图采集]",
	"需要人工处理",
	"反爬保护",
}

func placeholderCandidate(url, sourceName string) extractor.Candidate {
	return extractor.Candidate{
		Title:   fmt.Sprintf("[截图采集] %s - 需要人工处理", sourceName),
		URL:     url,
		Snippet: "此信息源的页面疑似有反爬保护，OCR 未能提取到足够文字，需要人工确认。",
	}
}

// OCR 文字行里常见的导航/菜单/版权行，解析时跳过
var ocrSkipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(home|about|contact|menu|search|login|sign|cookie|privacy)`),
	regexp.MustCompile(`(?i)^(©|copyright|all rights)`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`^[.\-_=]+$`),
}

const (
	ocrMinLineLen  = 5
	ocrMinTitleLen = 10
	ocrMaxTitleLen = 200
)

// parseOCRText 从 OCR 文字中解析候选条目：
// 筛掉导航类行，长度适中的行视为标题，紧随其后的几行拼成摘要。
func parseOCRText(text, url string) []extractor.Candidate {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > ocrMinLineLen {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	var out []extractor.Candidate
	i := 0
	for i < len(lines) && len(out) < extractor.MaxArticlesPerPage {
		line := lines[i]

		if ocrLineSkippable(line) {
			i++
			continue
		}

		n := len([]rune(line))
		if n < ocrMinTitleLen || n > ocrMaxTitleLen {
			i++
			continue
		}

		var snippetLines []string
		j := i + 1
		for j < len(lines) && j < i+4 {
			if len(lines[j]) > 10 {
				snippetLines = append(snippetLines, lines[j])
			}
			j++
		}

		snippet := strings.Join(snippetLines, " ")
		if rs := []rune(snippet); len(rs) > extractor.MaxSnippetLen {
			snippet = string(rs[:extractor.MaxSnippetLen])
		}
		out = append(out, extractor.Candidate{
			Title:   line,
			URL:     url,
			Snippet: snippet,
		})
		i = j
	}
	return out
}

func ocrLineSkippable(line string) bool {
	for _, re := range ocrSkipPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
