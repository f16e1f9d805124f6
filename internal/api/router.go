package api

import (
	"net/http"
	"strconv"

	"github.com/LJTian/AIBriefHub/internal/scheduler"
	"github.com/LJTian/AIBriefHub/internal/storage"
	"github.com/gin-gonic/gin"
)

// Trigger 手动触发一轮采集管线并查询执行状态，由 scheduler 实现
type Trigger interface {
	RunOnce() bool
	Status() scheduler.RunStatus
}

type Server struct {
	store   *storage.Store
	trigger Trigger
}

func NewServer(store *storage.Store, trigger Trigger) *Server {
	return &Server{store: store, trigger: trigger}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/briefs", s.listBriefs)
		v1.GET("/briefs/dates", s.listDates)
		v1.POST("/collect", s.collect)
		v1.GET("/stats", s.stats)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listBriefs(c *gin.Context) {
	date := c.Query("date")
	category := c.Query("category")
	selectedOnly := c.DefaultQuery("selected", "true") == "true"

	limitStr := c.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 100
	}

	items, err := s.store.ListBriefs(date, category, limit, selectedOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) listDates(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "31")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 31
	}

	dates, err := s.store.ListReportDates(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    dates,
	})
}

// collect 异步触发，立即返回；任务在跑时返回 409
func (s *Server) collect(c *gin.Context) {
	if s.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "unavailable",
			"message": "pipeline trigger not configured",
		})
		return
	}
	if !s.trigger.RunOnce() {
		c.JSON(http.StatusConflict, gin.H{
			"code":    "busy",
			"message": "pipeline already running",
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"code":    "ok",
		"message": "pipeline started",
	})
}

// stats 最近一轮管线的统计快照（采集 + 策展 + 落库条数）
func (s *Server) stats(c *gin.Context) {
	if s.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "unavailable",
			"message": "pipeline not configured",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    s.trigger.Status(),
	})
}
