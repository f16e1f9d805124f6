package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultBatchSize   = 15
	llmMaxRetries      = 3
	llmRetryBackoff    = 2 * time.Second
	llmRequestTimeout  = 60 * time.Second
	llmMaxResponseSize = 1 << 20 // 1MB
	maxSnippetInPrompt = 200
)

// Item 发送给 LLM 的单条文章输入，三个批量接口共用
type Item struct {
	Title    string
	Snippet  string
	Source   string
	Category string
}

// Client OpenAI 兼容接口的 LLM 客户端。
// APIKey 为空或请求持续失败时自动走关键词降级方案，输出形状保持不变。
type Client struct {
	apiKey    string
	baseURL   string
	model     string
	batchSize int

	httpClient *http.Client

	// 降级提示整轮只打一次，避免刷屏
	fallbackOnce sync.Once
}

func NewClient(apiKey, baseURL, model string, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		batchSize:  batchSize,
		httpClient: &http.Client{Timeout: llmRequestTimeout},
	}
	if !c.Available() {
		log.Printf("llm: OPENAI_API_KEY not set, keyword fallback will be used")
	}
	return c
}

// Available LLM 是否可用（仅检查配置，不实际探测网络）
func (c *Client) Available() bool {
	return c.apiKey != "" && c.baseURL != "" && c.model != ""
}

func (c *Client) noteFallback() {
	c.fallbackOnce.Do(func() {
		log.Printf("llm: unavailable, using deterministic keyword fallback for this run")
	})
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chat 发送单次对话请求，带指数退避重试；全部失败时返回错误由调用方降级
func (c *Client) chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < llmMaxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		content, err := c.doChat(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if attempt < llmMaxRetries-1 {
			wait := llmRetryBackoff << attempt
			log.Printf("llm: request failed (%d/%d): %v, wait %s", attempt+1, llmMaxRetries, err, wait)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return "", fmt.Errorf("llm: request failed after %d attempts: %w", llmMaxRetries, lastErr)
}

func (c *Client) doChat(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, llmMaxResponseSize)).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return out.Choices[0].Message.Content, nil
}

// FilterRelevance 批量判断文章是否与 AI 领域相关。
// LLM 失败或不可用时降级为关键词匹配；单批失败时该批默认全部相关（宁多勿漏）。
func (c *Client) FilterRelevance(ctx context.Context, items []Item) []bool {
	if len(items) == 0 {
		return nil
	}
	if !c.Available() {
		c.noteFallback()
		return fallbackRelevance(items)
	}

	systemPrompt := "你是一个AI领域动态筛选专家。你的任务是判断新闻是否与" +
		"人工智能(AI)、机器学习、深度学习、大语言模型、AI芯片、" +
		"AI政策监管、AI安全、AI应用等领域直接相关。\n" +
		"对于每条新闻，回答'是'或'否'。\n" +
		"输出格式：每行一个结果，格式为 '序号:是' 或 '序号:否'"

	result := make([]bool, len(items))
	for i := range result {
		result[i] = true // 默认相关
	}

	c.forEachBatch(items, func(offset int, batch []Item) {
		var lines []string
		for j, it := range batch {
			lines = append(lines, fmt.Sprintf("%d. 标题：%s\n   摘要：%s",
				offset+j+1, it.Title, truncateForPrompt(it.Snippet)))
		}
		resp, err := c.chat(ctx, systemPrompt, "请判断以下新闻是否与AI相关：\n\n"+strings.Join(lines, "\n\n"))
		if err != nil {
			log.Printf("llm: relevance batch at %d failed, keep all: %v", offset, err)
			return
		}
		for idx, val := range parseIndexedLines(resp) {
			if idx >= offset && idx < offset+len(batch) {
				result[idx] = strings.Contains(val, "是")
			}
		}
	})
	return result
}

// Classify 批量将文章分入十大预定义类别，返回原始标签；
// 标签是否在闭集内由上层校验与兜底。
func (c *Client) Classify(ctx context.Context, items []Item) []string {
	if len(items) == 0 {
		return nil
	}
	if !c.Available() {
		c.noteFallback()
		return fallbackClassify(items)
	}

	systemPrompt := "你是一个AI新闻分类专家。根据新闻标题和摘要，将每条新闻分入最合适的一个分类。\n" +
		"可选分类：\n" +
		"1. 技术突破 - 新模型、新算法、技术里程碑\n" +
		"2. 产品发布 - 新产品、功能更新、版本发布\n" +
		"3. 企业动态 - 并购、合作、组织调整、战略布局\n" +
		"4. 政策监管 - 各国AI政策、法规、标准、治理\n" +
		"5. 投融资 - 融资、IPO、估值、市场交易\n" +
		"6. 研究前沿 - 学术论文、研究成果、实验突破\n" +
		"7. 行业应用 - AI落地案例、行业解决方案\n" +
		"8. 人才市场 - 人才流动、劳动力影响、教育培训\n" +
		"9. 安全伦理 - AI安全、对齐、伦理、风险\n" +
		"10. 芯片与算力 - AI芯片、数据中心、算力基建、半导体\n" +
		"输出格式：每行一个结果，格式为 '序号:分类名称'"

	result := make([]string, len(items))

	c.forEachBatch(items, func(offset int, batch []Item) {
		var lines []string
		for j, it := range batch {
			lines = append(lines, fmt.Sprintf("%d. 标题：%s\n   摘要：%s",
				offset+j+1, it.Title, truncateForPrompt(it.Snippet)))
		}
		resp, err := c.chat(ctx, systemPrompt, "请对以下新闻进行分类：\n\n"+strings.Join(lines, "\n\n"))
		if err != nil {
			log.Printf("llm: classify batch at %d failed, fallback: %v", offset, err)
			fb := fallbackClassify(batch)
			copy(result[offset:], fb)
			return
		}
		for idx, val := range parseIndexedLines(resp) {
			if idx >= offset && idx < offset+len(batch) {
				result[idx] = strings.TrimSpace(val)
			}
		}
	})
	return result
}

// ScoreImportance 批量评估重要性（1-5 分），越界和缺失项回落到默认 3 分
func (c *Client) ScoreImportance(ctx context.Context, items []Item) []int {
	if len(items) == 0 {
		return nil
	}
	if !c.Available() {
		c.noteFallback()
		return fallbackScore(items)
	}

	systemPrompt := "你是一位AI行业动态简报编辑，请评估每条新闻对决策层的重要性（1-5分）。\n" +
		"5分：改变行业格局的重大事件（新一代旗舰模型发布、主要国家AI立法、百亿级交易）\n" +
		"4分：业界广泛关注的重要事件（头部企业重大发布、关键人物重要表态、大额融资）\n" +
		"3分：值得了解的行业动态（中等规模事件、区域性政策、行业趋势）\n" +
		"2分：一般性行业新闻（常规更新、小型合作、普通研究成果）\n" +
		"1分：无需关注（纯学术论文、个别技术细节、小型活动、招聘信息）\n" +
		"评分从严，普通学术论文和小型产品更新一律1-2分。\n" +
		"输出格式：每行一个结果，格式为 '序号:分数'"

	result := make([]int, len(items))
	for i := range result {
		result[i] = defaultScore
	}

	c.forEachBatch(items, func(offset int, batch []Item) {
		var lines []string
		for j, it := range batch {
			lines = append(lines, fmt.Sprintf("%d. [%s] %s\n   摘要：%s",
				offset+j+1, it.Source, it.Title, truncateForPrompt(it.Snippet)))
		}
		resp, err := c.chat(ctx, systemPrompt, "请评估以下新闻的重要性：\n\n"+strings.Join(lines, "\n\n"))
		if err != nil {
			log.Printf("llm: score batch at %d failed, fallback: %v", offset, err)
			fb := fallbackScore(batch)
			copy(result[offset:], fb)
			return
		}
		for idx, val := range parseIndexedLines(resp) {
			if idx < offset || idx >= offset+len(batch) {
				continue
			}
			if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && n >= minScore && n <= maxScore {
				result[idx] = n
			}
		}
	})
	return result
}

// forEachBatch 按批次大小切分顺序处理
func (c *Client) forEachBatch(items []Item, fn func(offset int, batch []Item)) {
	for i := 0; i < len(items); i += c.batchSize {
		end := i + c.batchSize
		if end > len(items) {
			end = len(items)
		}
		fn(i, items[i:end])
	}
}

// parseIndexedLines 解析 "序号:值" 格式的多行响应，序号转为 0 基索引。
// 容忍中英文冒号和 "1. 值" 的变体。
func parseIndexedLines(response string) map[int]string {
	out := make(map[int]string)
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, sep := range []string{":", "：", "."} {
			pos := strings.Index(line, sep)
			if pos <= 0 {
				continue
			}
			n, err := strconv.Atoi(strings.TrimSpace(line[:pos]))
			if err != nil {
				continue
			}
			out[n-1] = strings.TrimSpace(line[pos+len(sep):])
			break
		}
	}
	return out
}

func truncateForPrompt(s string) string {
	rs := []rune(s)
	if len(rs) > maxSnippetInPrompt {
		return string(rs[:maxSnippetInPrompt])
	}
	return s
}
