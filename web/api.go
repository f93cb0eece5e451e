package web

import (
	"errors"
	"net/http"
	"net/http/pprof"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stockinsight/alert"
	"stockinsight/cache"
	"stockinsight/capital"
	"stockinsight/cost"
	"stockinsight/logger"
	"stockinsight/metrics"
	"stockinsight/utils"
)

// setupRoutes 注册路由
func (s *Server) setupRoutes(r *gin.Engine) {
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// pprof
	debug := r.Group("/debug/pprof")
	{
		debug.GET("/", gin.WrapF(pprof.Index))
		debug.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		debug.GET("/profile", gin.WrapF(pprof.Profile))
		debug.GET("/symbol", gin.WrapF(pprof.Symbol))
		debug.GET("/trace", gin.WrapF(pprof.Trace))
		debug.GET("/heap", gin.WrapH(pprof.Handler("heap")))
		debug.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/ranking", s.handleRanking)
		v1.GET("/blocks/flow", s.handleBlockFlow)
		v1.GET("/stocks/:code/score", s.handleStockScore)
		v1.GET("/stocks/:code/flow", s.handleStockFlow)
		v1.GET("/stocks/:code/cost", s.handleStockCost)
		v1.GET("/stocks/:code/alerts", s.handleStockAlerts)
	}
}

// handleHealth 健康检查
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStockScore 个股单日评分
// 优先读缓存，未命中时现场装配输入并评分
func (s *Server) handleStockScore(c *gin.Context) {
	stockCode := c.Param("code")
	tradeDate := c.DefaultQuery("date", utils.Today())

	var cached map[string]interface{}
	if err := s.cache.Get(c.Request.Context(), "score", stockCode, tradeDate, &cached); err == nil {
		metrics.RecordCacheHit()
		c.JSON(http.StatusOK, cached)
		return
	} else if !errors.Is(err, cache.ErrMiss) {
		logger.Warn("读取评分缓存失败: %v", err)
	}
	metrics.RecordCacheMiss()

	input, err := s.db.LoadScoreInput(c.Request.Context(), stockCode, tradeDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	input.StockCode = stockCode
	input.TradeDate = tradeDate

	report := s.model.Score(input)
	s.cache.Set(c.Request.Context(), "score", stockCode, tradeDate, report)
	c.JSON(http.StatusOK, report)
}

// handleRanking 当日评分榜单
func (s *Server) handleRanking(c *gin.Context) {
	tradeDate := c.DefaultQuery("date", utils.Today())
	limit := intQuery(c, "limit", s.cfg.Analysis.TopStocks)

	rows, err := s.db.GetTopScoringRows(c.Request.Context(), tradeDate, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trade_date": tradeDate, "ranking": rows})
}

// handleStockFlow 个股区间资金流分析
func (s *Server) handleStockFlow(c *gin.Context) {
	stockCode := c.Param("code")
	endDate := c.DefaultQuery("end", utils.Today())
	startDate := c.DefaultQuery("start", utils.ShiftDate(endDate, -29))

	records, err := s.db.GetFlowRecords(c.Request.Context(), stockCode, startDate, endDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := capital.AnalyzeStockFlow(stockCode, records, startDate, endDate)
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"stock_code": stockCode, "message": "区间内无资金流数据"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleBlockFlow 板块资金流排行
func (s *Server) handleBlockFlow(c *gin.Context) {
	tradeDate := c.DefaultQuery("date", utils.Today())
	days := intQuery(c, "days", s.cfg.Analysis.BlockFlowDays)
	topN := intQuery(c, "top", s.cfg.Analysis.TopBlocks)

	startDate := utils.ShiftDate(tradeDate, -(days - 1))
	rows, err := s.db.GetBlockDayFlows(c.Request.Context(), startDate, tradeDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := capital.AnalyzeBlockFlow(rows, tradeDate, days, topN)
	c.JSON(http.StatusOK, gin.H{"trade_date": tradeDate, "lookback_days": days, "blocks": results})
}

// handleStockCost 个股持股成本报告
func (s *Server) handleStockCost(c *gin.Context) {
	stockCode := c.Param("code")
	days := intQuery(c, "days", s.cfg.Analysis.CostLookbackDays)
	tradeDate := c.DefaultQuery("date", utils.Today())

	var cached map[string]interface{}
	if err := s.cache.Get(c.Request.Context(), "cost", stockCode, tradeDate, &cached); err == nil {
		metrics.RecordCacheHit()
		c.JSON(http.StatusOK, cached)
		return
	}
	metrics.RecordCacheMiss()

	history, err := s.db.GetHoldingCostHistory(c.Request.Context(), stockCode, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := make([]cost.Result, len(history))
	for i, row := range history {
		results[i] = cost.Result{
			Date:            row.TradeDate,
			BuyVWAP:         row.BuyVWAP,
			SellVWAP:        row.SellVWAP,
			VWAPSpread:      row.VWAPSpread,
			PriceMedian:     row.PriceMedian,
			BuyMedianDiff:   row.BuyMedianDiff,
			CostPressure:    row.CostPressure,
			TotalBuyAmount:  row.TotalBuyAmount,
			TotalSellAmount: row.TotalSellAmount,
		}
	}

	report := cost.BuildReport(stockCode, days, results)
	s.cache.Set(c.Request.Context(), "cost", stockCode, tradeDate, report)
	c.JSON(http.StatusOK, report)
}

// handleStockAlerts 个股当日预警
func (s *Server) handleStockAlerts(c *gin.Context) {
	stockCode := c.Param("code")
	tradeDate := c.DefaultQuery("date", utils.Today())

	current, err := s.db.GetFlowRecord(c.Request.Context(), stockCode, tradeDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if current == nil {
		c.JSON(http.StatusOK, gin.H{"stock_code": stockCode, "trade_date": tradeDate, "alerts": []alert.Alert{}})
		return
	}

	prev, err := s.db.GetFlowRecord(c.Request.Context(), stockCode, utils.ShiftDate(tradeDate, -1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	alerts := alert.Evaluate(*current, prev, s.cfg.Alert)

	// 行情风险预警
	bar, err := s.db.GetDailyBar(c.Request.Context(), stockCode, tradeDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if bar != nil {
		alerts = append(alerts, alert.EvaluateRisk(bar.Amplitude, bar.TurnoverRate, bar.TotalAmount, s.cfg.Alert)...)
	}

	c.JSON(http.StatusOK, gin.H{"stock_code": stockCode, "trade_date": tradeDate, "alerts": alerts})
}

// intQuery 读取整型查询参数，缺失或非法时取默认值
func intQuery(c *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
