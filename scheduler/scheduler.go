// Package scheduler 每日任务调度
// 收盘后跑批量评分与板块聚合，次日早间跑持股成本分析。
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"stockinsight/alert"
	"stockinsight/cache"
	"stockinsight/capital"
	"stockinsight/config"
	"stockinsight/cost"
	"stockinsight/database"
	"stockinsight/logger"
	"stockinsight/metrics"
	"stockinsight/scoring"
	"stockinsight/utils"
)

// Scheduler 定时任务调度器
type Scheduler struct {
	cfg    *config.Config
	db     database.Database
	cache  *cache.ReportCache
	model  *scoring.Model
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New 创建调度器
func New(cfg *config.Config, db database.Database, reportCache *cache.ReportCache, model *scoring.Model) *Scheduler {
	return &Scheduler{
		cfg:   cfg,
		db:    db,
		cache: reportCache,
		model: model,
	}
}

// Start 启动调度循环；Scheduler 未启用时不做任何事
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Scheduler.Enabled {
		logger.Info("定时任务未启用")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.runLoop(ctx, "每日评分", s.cfg.Scheduler.DailyScoreTime, func(ctx context.Context) error {
		return s.RunDailyAnalysis(ctx, utils.Today())
	})
	go s.runLoop(ctx, "持股成本", s.cfg.Scheduler.HoldingCostTime, func(ctx context.Context) error {
		return s.RunHoldingCost(ctx, utils.Yesterday())
	})

	logger.Info("✅ 定时任务已启动: 评分 %s, 持股成本 %s",
		s.cfg.Scheduler.DailyScoreTime, s.cfg.Scheduler.HoldingCostTime)
}

// Stop 停止调度并等待任务退出
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// runLoop 每天在固定时刻执行一次任务
func (s *Scheduler) runLoop(ctx context.Context, name, at string, task func(context.Context) error) {
	defer s.wg.Done()

	for {
		wait := utils.NextRunAt(utils.NowConfiguredTimezone(), at)
		logger.Debug("任务 [%s] 下次执行: %v 后", name, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := task(ctx); err != nil {
			logger.Error("❌ 任务 [%s] 执行失败: %v", name, err)
		}
	}
}

// RunDailyAnalysis 执行单日全量分析：板块聚合、批量评分、预警
// 手动补数时可直接用历史日期调用
func (s *Scheduler) RunDailyAnalysis(ctx context.Context, tradeDate string) error {
	logger.Info("📊 开始每日分析: %s", tradeDate)

	stockCodes, err := s.db.GetActiveStockCodes(ctx, tradeDate)
	if err != nil {
		return fmt.Errorf("获取活跃股票列表失败: %w", err)
	}
	if len(stockCodes) == 0 {
		logger.Warn("⚠️ %s 无资金流数据，跳过每日分析", tradeDate)
		return nil
	}

	flows, err := s.aggregateBlockFlows(ctx, tradeDate, stockCodes)
	if err != nil {
		logger.Error("❌ 板块聚合失败: %v", err)
	} else {
		logger.Info("✅ 板块聚合完成: %d 个板块", len(flows))
	}

	// 批量评分
	batch := s.model.ScoreBatch(ctx, tradeDate, stockCodes, func(code string) (scoring.Input, error) {
		return s.db.LoadScoreInput(ctx, code, tradeDate)
	}, s.cfg.Analysis.ScoreWorkers)

	metrics.ObserveBatchDuration(batch.Elapsed.Seconds())
	for _, r := range batch.Reports {
		metrics.RecordStockScored(r.Signal.Type)
	}
	for range batch.Failures {
		metrics.RecordStockFailed()
	}

	// 预警在持久化前跑一遍，顺带收集股票名称
	names := s.evaluateAlerts(ctx, tradeDate, stockCodes)

	if err := s.persistScores(ctx, batch, names); err != nil {
		return fmt.Errorf("保存评分结果失败: %w", err)
	}

	// 当日评分已更新，作废缓存
	for _, r := range batch.Reports {
		s.cache.Invalidate(ctx, "score", r.StockCode, tradeDate)
	}

	logger.Info("✅ 每日分析完成: %s, 评分 %d 只, 失败 %d 只",
		tradeDate, len(batch.Reports), len(batch.Failures))
	return nil
}

// aggregateBlockFlows 把个股资金流按所属板块聚合成板块单日行并入库
func (s *Scheduler) aggregateBlockFlows(ctx context.Context, tradeDate string, stockCodes []string) ([]*database.BlockFlowRow, error) {
	byBlock := make(map[string]*database.BlockFlowRow)
	order := make([]string, 0)

	for _, code := range stockCodes {
		flow, err := s.db.GetFlowRecord(ctx, code, tradeDate)
		if err != nil {
			return nil, err
		}
		if flow == nil {
			continue
		}

		membership, err := s.db.GetBlockMembership(ctx, code)
		if err != nil {
			return nil, err
		}
		if membership == nil {
			continue
		}

		row, ok := byBlock[membership.BlockCode]
		if !ok {
			row = &database.BlockFlowRow{
				TradeDate: tradeDate,
				BlockCode: membership.BlockCode,
				BlockName: membership.BlockName,
				BlockType: membership.BlockType,
			}
			byBlock[membership.BlockCode] = row
			order = append(order, membership.BlockCode)
		}

		row.TotalBuyAmount += flow.TotalBuyAmount
		row.TotalSellAmount += flow.TotalSellAmount
		row.NetInflow += flow.NetInflow
		row.TotalAmount += flow.TotalAmount
		row.StockCount++
		if flow.NetInflow > 0 {
			row.InflowStocks++
		}
	}

	rows := make([]*database.BlockFlowRow, 0, len(byBlock))
	prevDate := utils.ShiftDate(tradeDate, -1)
	for _, code := range order {
		row := byBlock[code]
		row.InflowRatio = capital.InflowRatio(row.NetInflow, row.TotalAmount)

		// 连续净流入天数：接续前一日的计数，净流出则清零
		if row.NetInflow > 0 {
			row.ContinuityDays = 1
			if prev, err := s.db.GetBlockFlowRow(ctx, row.BlockCode, prevDate); err == nil && prev != nil {
				row.ContinuityDays = prev.ContinuityDays + 1
			}
		}
		rows = append(rows, row)
	}

	// 流入比例降序定排名
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].InflowRatio > rows[j].InflowRatio
	})
	for i, row := range rows {
		row.Ranking = i + 1
	}

	if len(rows) == 0 {
		return rows, nil
	}
	return rows, s.db.SaveBlockFlowRows(ctx, rows)
}

// evaluateAlerts 逐只股票评估资金流与行情风险预警
// 返回股票代码到名称的映射，供评分入库时补全名称
func (s *Scheduler) evaluateAlerts(ctx context.Context, tradeDate string, stockCodes []string) map[string]string {
	names := make(map[string]string, len(stockCodes))
	prevDate := utils.ShiftDate(tradeDate, -1)
	fired := 0

	for _, code := range stockCodes {
		current, err := s.db.GetFlowRecord(ctx, code, tradeDate)
		if err != nil || current == nil {
			continue
		}
		prev, err := s.db.GetFlowRecord(ctx, code, prevDate)
		if err != nil {
			prev = nil
		}

		alerts := alert.Evaluate(*current, prev, s.cfg.Alert)

		bar, err := s.db.GetDailyBar(ctx, code, tradeDate)
		if err == nil && bar != nil {
			names[code] = bar.StockName
			alerts = append(alerts, alert.EvaluateRisk(bar.Amplitude, bar.TurnoverRate, bar.TotalAmount, s.cfg.Alert)...)
		}

		for _, a := range alerts {
			metrics.RecordAlert(a.Type, a.Level)
			logger.Warn("⚠️ [%s] %s: %s（%s）", code, a.Type, a.Message, a.Suggestion)
			fired++
		}
	}

	if fired > 0 {
		logger.Info("📢 %s 共触发 %d 条预警", tradeDate, fired)
	}
	return names
}

// persistScores 将批量评分结果落库
func (s *Scheduler) persistScores(ctx context.Context, batch *scoring.BatchReport, names map[string]string) error {
	ranked := batch.Rank()
	rows := make([]*database.ScoringRow, 0, len(ranked))
	for _, r := range ranked {
		summary, err := json.Marshal(r.Analysis)
		if err != nil {
			logger.Warn("⚠️ 股票 %s 分析摘要序列化失败: %v", r.StockCode, err)
			summary = []byte("{}")
		}

		rows = append(rows, &database.ScoringRow{
			TradeDate:        batch.TradeDate,
			StockCode:        r.StockCode,
			StockName:        names[r.StockCode],
			CapitalScore:     r.Scores.Capital,
			TechnicalScore:   r.Scores.Technical,
			FundamentalScore: r.Scores.Fundamental,
			RiskScore:        r.Scores.Risk,
			TotalScore:       r.Scores.Total,
			SignalType:       r.Signal.Type,
			SignalStrength:   r.Signal.Strength,
			Ranking:          r.Ranking,
			AnalysisSummary:  string(summary),
		})
	}

	if len(rows) == 0 {
		return nil
	}
	return s.db.SaveScoringRows(ctx, rows)
}

// RunHoldingCost 对指定交易日逐只股票做持股成本分析并落库
func (s *Scheduler) RunHoldingCost(ctx context.Context, tradeDate string) error {
	logger.Info("📊 开始持股成本分析: %s", tradeDate)

	stockCodes, err := s.db.GetActiveStockCodes(ctx, tradeDate)
	if err != nil {
		return fmt.Errorf("获取活跃股票列表失败: %w", err)
	}

	analyzed, skipped := 0, 0
	for _, code := range stockCodes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.analyzeStockCost(ctx, code, tradeDate); err != nil {
			logger.Warn("⚠️ 股票 %s 持股成本分析失败: %v", code, err)
			metrics.RecordCostAnalysis("failed")
			skipped++
			continue
		}
		analyzed++
	}

	logger.Info("✅ 持股成本分析完成: %s, 成功 %d, 失败/跳过 %d", tradeDate, analyzed, skipped)
	return nil
}

// analyzeStockCost 单只股票的成本分析与入库
func (s *Scheduler) analyzeStockCost(ctx context.Context, stockCode, tradeDate string) error {
	snapshot, err := s.db.GetSnapshot(ctx, stockCode, tradeDate)
	if err != nil {
		return err
	}

	result := cost.AnalyzeDaily(snapshot)
	if result == nil {
		// 无价格分布数据，常见于停牌日
		metrics.RecordCostAnalysis("no_data")
		return nil
	}

	// 拼接历史（新到旧），当日结果放最前，用于多窗口均值
	history, err := s.db.GetHoldingCostHistory(ctx, stockCode, 60)
	if err != nil {
		return err
	}
	results := make([]cost.Result, 0, len(history)+1)
	results = append(results, *result)
	for _, row := range history {
		if row.TradeDate == tradeDate {
			continue
		}
		results = append(results, cost.Result{
			Date:            row.TradeDate,
			BuyVWAP:         row.BuyVWAP,
			SellVWAP:        row.SellVWAP,
			VWAPSpread:      row.VWAPSpread,
			PriceMedian:     row.PriceMedian,
			BuyMedianDiff:   row.BuyMedianDiff,
			CostPressure:    row.CostPressure,
			TotalBuyAmount:  row.TotalBuyAmount,
			TotalSellAmount: row.TotalSellAmount,
		})
	}

	averages := cost.MultiWindowAverage(results, nil)

	row := &database.HoldingCostRow{
		TradeDate:       tradeDate,
		StockCode:       stockCode,
		BuyVWAP:         result.BuyVWAP,
		SellVWAP:        result.SellVWAP,
		VWAPSpread:      result.VWAPSpread,
		PriceMedian:     result.PriceMedian,
		BuyMedianDiff:   result.BuyMedianDiff,
		CostPressure:    result.CostPressure,
		TotalBuyAmount:  result.TotalBuyAmount,
		TotalSellAmount: result.TotalSellAmount,
		AvgCost2D:       averages["2d"].AvgBuyVWAP,
		AvgCost5D:       averages["5d"].AvgBuyVWAP,
		AvgCost20D:      averages["20d"].AvgBuyVWAP,
		AvgCost60D:      averages["60d"].AvgBuyVWAP,
		CostTrend:       costTrendOf(averages),
	}
	if err := s.db.SaveHoldingCostRow(ctx, row); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, "cost", stockCode, tradeDate)
	metrics.RecordCostAnalysis("ok")
	return nil
}

// costTrendOf 取最短可用窗口之外、样本更充分的 5 日趋势；不足时退化
func costTrendOf(averages map[string]cost.WindowAverage) string {
	if w, ok := averages["5d"]; ok {
		return w.CostTrend
	}
	if w, ok := averages["2d"]; ok {
		return w.CostTrend
	}
	return "stable"
}
