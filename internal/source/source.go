package source

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy 采集策略：http 为普通抓取，browser 为无头浏览器渲染
type Strategy string

const (
	StrategyHTTP    Strategy = "http"
	StrategyBrowser Strategy = "browser"
)

const defaultPriority = 3

// Source 信息源定义，启动时从 yaml 一次性加载，运行期不可变
type Source struct {
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	SubCategory string   `yaml:"subCategory"`
	URLs        []string `yaml:"urls"`
	Strategy    Strategy `yaml:"strategy"`
	Priority    int      `yaml:"priority"` // 1-5，5 最高，只影响调度顺序
	Notes       string   `yaml:"notes"`
}

type registryFile struct {
	Sources []Source `yaml:"sources"`
}

// Load 从 yaml 文件加载信息源清单，保持文件中的注册顺序
func Load(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 yaml 内容并做基础清洗：去掉无名源、空 URL，补默认策略与优先级
func Parse(data []byte) ([]Source, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("source: unmarshal: %w", err)
	}

	out := make([]Source, 0, len(file.Sources))
	for _, s := range file.Sources {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}

		urls := make([]string, 0, len(s.URLs))
		for _, u := range s.URLs {
			// 配置里偶尔会带行尾分号，采集前统一清掉
			u = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(u), ";"))
			if u != "" {
				urls = append(urls, u)
			}
		}
		s.URLs = urls

		switch s.Strategy {
		case StrategyHTTP, StrategyBrowser:
		default:
			s.Strategy = StrategyHTTP
		}
		if s.Priority < 1 || s.Priority > 5 {
			s.Priority = defaultPriority
		}

		out = append(out, s)
	}
	return out, nil
}
