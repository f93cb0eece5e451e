// Package web HTTP 查询接口
// 对外暴露评分、榜单、资金流、板块、持股成本与预警的只读查询，
// 以及 /metrics、/healthz 和 pprof。
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockinsight/cache"
	"stockinsight/config"
	"stockinsight/database"
	"stockinsight/logger"
	"stockinsight/scoring"
)

// Server Web 服务器
type Server struct {
	server *http.Server
	cfg    *config.Config
	db     database.Database
	cache  *cache.ReportCache
	model  *scoring.Model
}

// NewServer 创建 Web 服务器；Web 未启用时返回 nil
func NewServer(cfg *config.Config, db database.Database, reportCache *cache.ReportCache, model *scoring.Model) *Server {
	if !cfg.Web.Enabled {
		return nil
	}

	// 设置Gin模式
	if cfg.Web.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(GinLoggerMiddleware(cfg.Web.Mode == "debug"))
	if cfg.Web.RateLimit > 0 {
		r.Use(RateLimitMiddleware(cfg.Web.RateLimit, cfg.Web.RateBurst))
	}

	s := &Server{
		cfg:   cfg,
		db:    db,
		cache: reportCache,
		model: model,
	}
	s.setupRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start 启动Web服务器，context 取消后自动优雅关闭
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}

	go func() {
		logger.Info("🌐 Web服务器启动在 http://%s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("❌ Web服务器启动失败: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("❌ Web服务器关闭失败: %v", err)
		} else {
			logger.Info("✅ Web服务器已关闭")
		}
	}()

	return nil
}

// Stop 停止Web服务器
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("❌ Web服务器关闭失败: %v", err)
	}
}
