package scheduler

import (
	"context"
	"path/filepath"
	"testing"

	"stockinsight/cache"
	"stockinsight/config"
	"stockinsight/cost"
	"stockinsight/database"
	"stockinsight/scoring"
)

func newTestScheduler(t *testing.T) (*Scheduler, database.Database) {
	t.Helper()

	cfg, err := config.LoadConfigFromBytes([]byte("{}"))
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	db, err := database.NewDatabase(&database.Config{
		Type: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("创建测试数据库失败: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reportCache := cache.NewReportCache(context.Background(), cache.Config{})
	model := scoring.NewModel(cfg.Scoring)
	return New(cfg, db, reportCache, model), db
}

func TestRunDailyAnalysis(t *testing.T) {
	s, db := newTestScheduler(t)
	ctx := context.Background()
	tradeDate := "2025-08-29"

	// 两只同板块股票：一只净流入，一只净流出
	if err := db.BatchSaveFlowRows(ctx, []*database.FlowRow{
		{TradeDate: tradeDate, StockCode: "600001", TotalBuyAmount: 6e7, TotalSellAmount: 4e7,
			NetInflow: 2e7, TotalAmount: 1e8, InflowRatio: 20, LargeNetInflow: 1e7, LargeInflowRatio: 10},
		{TradeDate: tradeDate, StockCode: "600002", TotalBuyAmount: 3e7, TotalSellAmount: 5e7,
			NetInflow: -2e7, TotalAmount: 8e7, InflowRatio: -25, LargeNetInflow: -1e7, LargeInflowRatio: -12.5},
	}); err != nil {
		t.Fatalf("保存资金流失败: %v", err)
	}
	if err := db.BatchSaveDailyBars(ctx, []*database.DailyBar{
		{TradeDate: tradeDate, StockCode: "600001", StockName: "测试一", Close: 11, MA5: 10.5, MA20: 10, MA60: 9.5,
			Volume: 1.2e6, VMA5: 1e6, ChangePct: 2.5, Amplitude: 3, TurnoverRate: 4, TotalAmount: 1e8},
		{TradeDate: tradeDate, StockCode: "600002", StockName: "测试二", Close: 9, MA5: 9.5, MA20: 10, MA60: 10.5,
			Volume: 8e5, VMA5: 1e6, ChangePct: -1.5, Amplitude: 2, TurnoverRate: 3, TotalAmount: 8e7},
	}); err != nil {
		t.Fatalf("保存行情失败: %v", err)
	}
	if err := db.SaveBlockMemberships(ctx, []*database.BlockMembership{
		{StockCode: "600001", BlockCode: "880001", BlockName: "测试板块", BlockType: "concept"},
		{StockCode: "600002", BlockCode: "880001", BlockName: "测试板块", BlockType: "concept"},
	}); err != nil {
		t.Fatalf("保存板块归属失败: %v", err)
	}

	if err := s.RunDailyAnalysis(ctx, tradeDate); err != nil {
		t.Fatalf("每日分析失败: %v", err)
	}

	// 板块聚合：两只股票汇入同一板块
	blockRow, err := db.GetBlockFlowRow(ctx, "880001", tradeDate)
	if err != nil {
		t.Fatalf("查询板块资金流失败: %v", err)
	}
	if blockRow == nil {
		t.Fatal("板块聚合结果未入库")
	}
	if blockRow.StockCount != 2 {
		t.Errorf("板块成分股数错误: got %d, want 2", blockRow.StockCount)
	}
	if blockRow.InflowStocks != 1 {
		t.Errorf("净流入股票数错误: got %d, want 1", blockRow.InflowStocks)
	}
	if blockRow.NetInflow != 0 {
		t.Errorf("板块净流入错误: got %v, want 0", blockRow.NetInflow)
	}
	if blockRow.Ranking != 1 {
		t.Errorf("板块排名错误: got %d, want 1", blockRow.Ranking)
	}

	// 评分结果：两只都应入库，流入股评分更高
	row1, err := db.GetScoringRow(ctx, "600001", tradeDate)
	if err != nil || row1 == nil {
		t.Fatalf("600001 评分未入库: %v", err)
	}
	row2, err := db.GetScoringRow(ctx, "600002", tradeDate)
	if err != nil || row2 == nil {
		t.Fatalf("600002 评分未入库: %v", err)
	}
	if row1.TotalScore <= row2.TotalScore {
		t.Errorf("评分排序错误: 600001=%v 应高于 600002=%v", row1.TotalScore, row2.TotalScore)
	}
	if row1.Ranking != 1 || row2.Ranking != 2 {
		t.Errorf("排名错误: got %d/%d, want 1/2", row1.Ranking, row2.Ranking)
	}
	if row1.StockName != "测试一" {
		t.Errorf("股票名称未补全: got %q", row1.StockName)
	}
	if row1.SignalType == "" {
		t.Error("信号类型为空")
	}
	if row1.AnalysisSummary == "" {
		t.Error("分析摘要为空")
	}
}

func TestRunDailyAnalysis_NoData(t *testing.T) {
	s, _ := newTestScheduler(t)
	if err := s.RunDailyAnalysis(context.Background(), "2025-08-29"); err != nil {
		t.Fatalf("无数据时应跳过而非报错: %v", err)
	}
}

func TestRunHoldingCost(t *testing.T) {
	s, db := newTestScheduler(t)
	ctx := context.Background()
	tradeDate := "2025-08-29"

	dist, err := database.EncodePriceDistribution([]cost.PriceLevel{
		{Price: 10.0, BuyVolume: 1000, SellVolume: 500, BuyAmount: 10000, SellAmount: 5000},
		{Price: 10.5, BuyVolume: 800, SellVolume: 900, BuyAmount: 8400, SellAmount: 9450},
		{Price: 11.0, BuyVolume: 200, SellVolume: 600, BuyAmount: 2200, SellAmount: 6600},
	})
	if err != nil {
		t.Fatalf("编码价格分布失败: %v", err)
	}

	if err := db.SaveFlowRow(ctx, &database.FlowRow{
		TradeDate: tradeDate, StockCode: "600001",
		TotalBuyAmount: 20600, TotalSellAmount: 21050, NetInflow: -450,
		TotalAmount: 41650, PriceDistribution: dist,
	}); err != nil {
		t.Fatalf("保存资金流失败: %v", err)
	}

	if err := s.RunHoldingCost(ctx, tradeDate); err != nil {
		t.Fatalf("持股成本分析失败: %v", err)
	}

	history, err := db.GetHoldingCostHistory(ctx, "600001", 10)
	if err != nil {
		t.Fatalf("查询持股成本历史失败: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("持股成本结果数错误: got %d, want 1", len(history))
	}

	row := history[0]
	if row.BuyVWAP <= 0 {
		t.Errorf("买方成本应为正: got %v", row.BuyVWAP)
	}
	if row.CostTrend != "stable" {
		t.Errorf("单日数据趋势应为 stable: got %q", row.CostTrend)
	}
	if row.TotalBuyAmount != 20600 {
		t.Errorf("买入总额错误: got %v, want 20600", row.TotalBuyAmount)
	}
}

func TestRunHoldingCost_NoDistribution(t *testing.T) {
	s, db := newTestScheduler(t)
	ctx := context.Background()
	tradeDate := "2025-08-29"

	// 有资金流但无价格分布，应跳过而非报错
	if err := db.SaveFlowRow(ctx, &database.FlowRow{
		TradeDate: tradeDate, StockCode: "600001", NetInflow: 1e6, TotalAmount: 1e7,
	}); err != nil {
		t.Fatalf("保存资金流失败: %v", err)
	}

	if err := s.RunHoldingCost(ctx, tradeDate); err != nil {
		t.Fatalf("无分布数据时应跳过: %v", err)
	}

	history, err := db.GetHoldingCostHistory(ctx, "600001", 10)
	if err != nil {
		t.Fatalf("查询持股成本历史失败: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("无分布数据不应产生结果: got %d 条", len(history))
	}
}

func TestCostTrendOf(t *testing.T) {
	if got := costTrendOf(nil); got != "stable" {
		t.Errorf("空窗口应为 stable: got %q", got)
	}
}
