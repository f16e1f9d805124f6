package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LJTian/AIBriefHub/internal/collector"
	"github.com/LJTian/AIBriefHub/internal/curator"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// RawArticle 原始采集记录，按指纹幂等，供审计与回溯
type RawArticle struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	Fingerprint       string `gorm:"size:40;uniqueIndex" json:"fingerprint"`
	SourceName        string `gorm:"size:128;index" json:"sourceName"`
	SourceCategory    string `gorm:"size:64" json:"sourceCategory"`
	SourceSubCategory string `gorm:"size:64" json:"sourceSubCategory"`
	URL               string `gorm:"size:1024" json:"url"`
	Title             string `gorm:"size:512" json:"title"`
	// 摘要长度在采集侧按 rune 截断，这里的字段长度留出余量
	Snippet       string            `gorm:"size:800" json:"snippet"`
	PublishedDate string            `gorm:"size:64" json:"publishedDate"`
	CollectedAt   time.Time         `gorm:"index" json:"collectedAt"`
	ExtraData     datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Brief 策展后的简报条目，同一指纹每天只保留一条
type Brief struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	RawFingerprint string `gorm:"size:40;index:idx_brief_fp_date,unique" json:"rawFingerprint"`
	ReportDate     string `gorm:"size:10;index:idx_brief_fp_date,unique;index" json:"reportDate"`
	Title          string `gorm:"size:512" json:"title"`
	TitleZH        string `gorm:"size:512" json:"titleZh"`
	Summary        string `gorm:"size:600" json:"summary"`
	Category       string `gorm:"size:32;index" json:"category"`
	Score          int    `gorm:"index" json:"score"`
	Selected       bool   `gorm:"index" json:"selected"`
	SourceName     string `gorm:"size:128" json:"sourceName"`
	SourceURL      string `gorm:"size:1024" json:"sourceUrl"`
	PublishedDate  string `gorm:"size:64" json:"publishedDate"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&RawArticle{}, &Brief{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// 东八区，用于报告日期展示与筛选
var locEast8 *time.Location

func init() {
	locEast8, _ = time.LoadLocation("Asia/Shanghai")
	if locEast8 == nil {
		locEast8 = time.FixedZone("CST", 8*3600)
	}
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度。
// 这是对上游采集/策展的双保险，防止异常长文本导致入库失败。
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

// SaveRawBatch 保存一批原始采集记录，以指纹作为幂等键，已存在的跳过
func (s *Store) SaveRawBatch(items []collector.RawArticle) error {
	for _, it := range items {
		if it.Fingerprint == "" {
			continue
		}
		r := &RawArticle{
			Fingerprint:       it.Fingerprint,
			SourceName:        toValidUTF8(it.SourceName),
			SourceCategory:    it.SourceCategory,
			SourceSubCategory: it.SourceSubCategory,
			URL:               truncateRunesDB(it.URL, 1024),
			Title:             truncateRunesDB(toValidUTF8(it.Title), 512),
			Snippet:           truncateRunesDB(toValidUTF8(it.Snippet), 800),
			PublishedDate:     truncateRunesDB(it.PublishedDate, 64),
			CollectedAt:       it.CollectedAt,
			ExtraData: datatypes.JSONMap{
				"source_priority": it.SourcePriority,
				"source_index":    it.SourceIndex,
				"url_index":       it.URLIndex,
			},
		}
		if err := s.DB.Where("fingerprint = ?", it.Fingerprint).FirstOrCreate(r).Error; err != nil {
			return fmt.Errorf("storage: save raw %s: %w", it.Fingerprint, err)
		}
	}
	return nil
}

// SaveBriefBatch 保存一批简报条目，(指纹, 报告日期) 幂等；
// 已存在的更新分类与分数，便于同日重跑后刷新结果
func (s *Store) SaveBriefBatch(items []curator.CuratedArticle) error {
	for _, it := range items {
		title := truncateRunesDB(toValidUTF8(it.Title), 512)
		titleZH := truncateRunesDB(toValidUTF8(it.TitleZH), 512)
		summary := truncateRunesDB(toValidUTF8(it.Summary), 600)
		b := &Brief{
			RawFingerprint: it.RawFingerprint,
			ReportDate:     it.ReportDate,
			Title:          title,
			TitleZH:        titleZH,
			Summary:        summary,
			Category:       it.Category,
			Score:          it.Score,
			Selected:       it.Selected,
			SourceName:     toValidUTF8(it.SourceName),
			SourceURL:      truncateRunesDB(it.SourceURL, 1024),
			PublishedDate:  truncateRunesDB(it.PublishedDate, 64),
		}
		if err := s.DB.Where("raw_fingerprint = ? AND report_date = ?", it.RawFingerprint, it.ReportDate).
			FirstOrCreate(b).Error; err != nil {
			return fmt.Errorf("storage: save brief %s: %w", it.RawFingerprint, err)
		}
		_ = s.DB.Model(b).Updates(map[string]any{
			"title":    title,
			"title_zh": titleZH,
			"summary":  summary,
			"category": it.Category,
			"score":    it.Score,
			"selected": it.Selected,
		}).Error
	}

	// 缓存依赖短 TTL 自然过期，不做按 key 通配删除
	return nil
}

// ListBriefs 按日期、分类返回简报列表，并使用 Redis 做简单缓存。
// date 为空时取最近的报告日期；selectedOnly 只返回入选条目
func (s *Store) ListBriefs(date, category string, limit int, selectedOnly bool) ([]Brief, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if date == "" {
		dates, err := s.ListReportDates(1)
		if err != nil || len(dates) == 0 {
			date = time.Now().In(locEast8).Format("2006-01-02")
		} else {
			date = dates[0]
		}
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("briefs:list:%s:%s:%d:%t", date, category, limit, selectedOnly)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Brief
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []Brief
	db := s.DB.Model(&Brief{}).Where("report_date = ?", date)
	if category != "" {
		db = db.Where("category = ?", category)
	}
	if selectedOnly {
		db = db.Where("selected = ?", true)
	}
	if err := db.Order("score DESC").Order("id ASC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	// 回写缓存（5 分钟，减轻每天首次打开时的 DB 压力）
	const listCacheTTL = 5 * time.Minute
	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}

// ListReportDates 返回有简报数据的日期列表（倒序），结果缓存 5 分钟
func (s *Store) ListReportDates(limit int) ([]string, error) {
	if limit <= 0 || limit > 365 {
		limit = 31
	}
	ctx := context.Background()
	cacheKey := fmt.Sprintf("briefs:dates:%d", limit)
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []string
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var rows []struct{ D string }
	sql := `SELECT DISTINCT report_date AS d FROM briefs ORDER BY d DESC LIMIT ?`
	if err := s.DB.Raw(sql, limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.D != "" {
			dates = append(dates, r.D)
		}
	}
	if s.Redis != nil && len(dates) > 0 {
		if bs, err := json.Marshal(dates); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, 5*time.Minute).Err()
		}
	}
	return dates, nil
}
