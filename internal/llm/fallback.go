package llm

import "strings"

const (
	minScore     = 1
	maxScore     = 5
	defaultScore = 3
)

// aiKeywords 降级相关性判断使用的关键词表，命中任意一个即视为相关
var aiKeywords = []string{
	"ai", "人工智能", "机器学习", "machine learning", "深度学习", "deep learning",
	"大模型", "llm", "gpt", "chatgpt", "claude", "gemini", "llama", "qwen", "deepseek",
	"openai", "anthropic", "deepmind", "neural", "神经网络", "transformer",
	"生成式", "generative", "agent", "智能体", "多模态", "multimodal",
	"算力", "芯片", "nvidia", "英伟达", "cuda", "推理", "inference",
	"训练", "微调", "fine-tun", "对齐", "alignment", "robot", "机器人",
	"autonomous", "自动驾驶", "computer vision", "nlp", "语音识别",
}

// classificationKeywords 降级分类的关键词表，按命中数取最高者
var classificationKeywords = map[string][]string{
	"技术突破":  {"突破", "breakthrough", "新模型", "sota", "milestone", "里程碑", "首次"},
	"产品发布":  {"发布", "launch", "release", "上线", "推出", "版本", "update", "新功能"},
	"政策监管":  {"政策", "监管", "法案", "regulation", "法规", "act", "治理", "合规", "立法", "禁令"},
	"投融资":   {"融资", "funding", "投资", "ipo", "估值", "valuation", "收购", "acquisition", "轮"},
	"研究前沿":  {"论文", "paper", "研究", "research", "arxiv", "实验", "study", "学术"},
	"行业应用":  {"落地", "应用", "deployment", "案例", "解决方案", "adopt", "行业"},
	"人才市场":  {"招聘", "裁员", "layoff", "人才", "hiring", "薪资", "跳槽", "离职"},
	"安全伦理":  {"安全", "safety", "伦理", "ethics", "风险", "偏见", "bias", "深度伪造", "deepfake"},
	"芯片与算力": {"芯片", "chip", "gpu", "算力", "数据中心", "data center", "半导体", "晶圆", "tpu"},
}

// highPriorityEntities 降级评分的加分项：头部机构与关键人物
var highPriorityEntities = []string{
	"openai", "anthropic", "google", "deepmind", "meta", "microsoft", "nvidia",
	"苹果", "apple", "amazon", "百度", "阿里", "腾讯", "字节", "华为", "deepseek",
	"altman", "奥特曼", "hinton", "lecun", "黄仁勋", "musk", "马斯克",
}

// majorEventKeywords 降级评分的加分项：重大事件信号词
var majorEventKeywords = []string{
	"billion", "亿美元", "亿元", "发布", "launch", "监管", "法案", "收购",
	"breakthrough", "突破", "ipo", "立法",
}

func itemText(it Item) string {
	return strings.ToLower(it.Title + " " + it.Snippet)
}

func fallbackRelevance(items []Item) []bool {
	out := make([]bool, len(items))
	for i, it := range items {
		text := itemText(it)
		for _, kw := range aiKeywords {
			if strings.Contains(text, kw) {
				out[i] = true
				break
			}
		}
	}
	return out
}

func fallbackClassify(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		text := itemText(it)
		best, bestHits := "", 0
		for category, kws := range classificationKeywords {
			hits := 0
			for _, kw := range kws {
				if strings.Contains(text, kw) {
					hits++
				}
			}
			// 并列时按稳定规则取字典序小的，保证确定性
			if hits > bestHits || (hits == bestHits && hits > 0 && category < best) {
				best, bestHits = category, hits
			}
		}
		if best == "" {
			best = "企业动态"
		}
		out[i] = best
	}
	return out
}

func fallbackScore(items []Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		score := defaultScore
		text := itemText(it)
		for _, e := range highPriorityEntities {
			if strings.Contains(text, e) {
				score++
				break
			}
		}
		for _, kw := range majorEventKeywords {
			if strings.Contains(text, kw) {
				score++
				break
			}
		}
		if score > maxScore {
			score = maxScore
		}
		out[i] = score
	}
	return out
}
