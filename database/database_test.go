package database

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *GormDatabase {
	t.Helper()
	db, err := NewGormDatabase(&DBConfig{
		Type:     "sqlite",
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("创建测试数据库失败: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestParsePriceDistribution(t *testing.T) {
	raw := `{"p":[10.0,10.5],"bv":[100,200],"sv":[50,100],"ba":[1000,2100],"sa":[500,1050]}`
	levels, err := ParsePriceDistribution(raw)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("期望 2 个价位档, 得到 %d", len(levels))
	}
	if levels[1].Price != 10.5 || levels[1].BuyVolume != 200 || levels[1].SellAmount != 1050 {
		t.Errorf("价位档字段错误: %+v", levels[1])
	}

	// 空串视为无分布数据
	if levels, err := ParsePriceDistribution(""); err != nil || levels != nil {
		t.Errorf("空串应返回 (nil, nil), 得到 %v / %v", levels, err)
	}

	// 数组长度不齐时缺失的量额按 0 处理
	short, err := ParsePriceDistribution(`{"p":[10,11,12],"bv":[100]}`)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if short[1].BuyVolume != 0 || short[2].SellVolume != 0 {
		t.Errorf("缺失数据应为 0: %+v", short)
	}

	// 非法 JSON 报错
	if _, err := ParsePriceDistribution("{bad"); err == nil {
		t.Error("非法 JSON 应返回错误")
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	levels, _ := ParsePriceDistribution(`{"p":[9.9],"bv":[10],"sv":[20],"ba":[99],"sa":[198]}`)
	encoded, err := EncodePriceDistribution(levels)
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}
	decoded, err := ParsePriceDistribution(encoded)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(decoded) != 1 || decoded[0] != levels[0] {
		t.Errorf("编解码不一致: %+v vs %+v", decoded, levels)
	}
}

func TestFlowRowRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	row := &FlowRow{
		TradeDate:         "2025-08-08",
		StockCode:         "600000",
		TotalBuyAmount:    5_200_000,
		TotalSellAmount:   4_800_000,
		NetInflow:         400_000,
		TotalAmount:       10_000_000,
		InflowRatio:       4,
		LargeNetInflow:    100_000,
		LargeInflowRatio:  1,
		PriceDistribution: `{"p":[10.0,10.5],"bv":[100,200],"sv":[50,100],"ba":[1000,2100],"sa":[500,1050]}`,
	}
	if err := db.SaveFlowRow(ctx, row); err != nil {
		t.Fatalf("保存资金流失败: %v", err)
	}

	record, err := db.GetFlowRecord(ctx, "600000", "2025-08-08")
	if err != nil {
		t.Fatalf("查询资金流失败: %v", err)
	}
	if record == nil || record.NetInflow != 400_000 || record.InflowRatio != 4 {
		t.Errorf("资金流记录错误: %+v", record)
	}

	snapshot, err := db.GetSnapshot(ctx, "600000", "2025-08-08")
	if err != nil {
		t.Fatalf("查询快照失败: %v", err)
	}
	if snapshot == nil || len(snapshot.Levels) != 2 {
		t.Fatalf("快照应有 2 个价位档: %+v", snapshot)
	}

	// 无数据时返回 (nil, nil) 而不是错误
	missing, err := db.GetFlowRecord(ctx, "600000", "2025-01-01")
	if err != nil || missing != nil {
		t.Errorf("无数据应返回 (nil, nil), 得到 %v / %v", missing, err)
	}

	// 同日重复保存走更新
	row.NetInflow = -100
	if err := db.SaveFlowRow(ctx, &FlowRow{
		TradeDate: "2025-08-08", StockCode: "600000", NetInflow: -100,
	}); err != nil {
		t.Fatalf("重复保存失败: %v", err)
	}
	updated, _ := db.GetFlowRecord(ctx, "600000", "2025-08-08")
	if updated.NetInflow != -100 {
		t.Errorf("重复保存应更新记录, 得到 %f", updated.NetInflow)
	}
}

func TestGetActiveStockCodes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rows := []*FlowRow{
		{TradeDate: "2025-08-08", StockCode: "600002"},
		{TradeDate: "2025-08-08", StockCode: "600001"},
		{TradeDate: "2025-08-07", StockCode: "600003"},
	}
	if err := db.BatchSaveFlowRows(ctx, rows); err != nil {
		t.Fatalf("批量保存失败: %v", err)
	}

	codes, err := db.GetActiveStockCodes(ctx, "2025-08-08")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(codes) != 2 || codes[0] != "600001" || codes[1] != "600002" {
		t.Errorf("活跃代码应为 [600001 600002], 得到 %v", codes)
	}
}

func TestScoringRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rows := []*ScoringRow{
		{TradeDate: "2025-08-08", StockCode: "600001", TotalScore: 82, SignalType: "strong_buy", Ranking: 1},
		{TradeDate: "2025-08-08", StockCode: "600002", TotalScore: 61, SignalType: "watch", Ranking: 2},
		{TradeDate: "2025-08-08", StockCode: "600003", TotalScore: 45, SignalType: "reduce", Ranking: 3},
	}
	if err := db.SaveScoringRows(ctx, rows); err != nil {
		t.Fatalf("保存评分失败: %v", err)
	}

	top, err := db.GetTopScoringRows(ctx, "2025-08-08", 2)
	if err != nil {
		t.Fatalf("查询榜单失败: %v", err)
	}
	if len(top) != 2 || top[0].StockCode != "600001" || top[1].StockCode != "600002" {
		t.Errorf("榜单应按总分降序取前 2, 得到 %+v", top)
	}

	row, err := db.GetScoringRow(ctx, "600003", "2025-08-08")
	if err != nil || row == nil || row.SignalType != "reduce" {
		t.Errorf("单条评分查询错误: %+v / %v", row, err)
	}
}

func TestLoadScoreInput(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// 资金流：近 5 日 3 天净流入为正
	flows := []*FlowRow{
		{TradeDate: "2025-08-04", StockCode: "600000", NetInflow: 100},
		{TradeDate: "2025-08-05", StockCode: "600000", NetInflow: -50},
		{TradeDate: "2025-08-06", StockCode: "600000", NetInflow: 200},
		{TradeDate: "2025-08-08", StockCode: "600000", NetInflow: 300, InflowRatio: 3, TotalAmount: 1e8},
	}
	if err := db.BatchSaveFlowRows(ctx, flows); err != nil {
		t.Fatalf("保存资金流失败: %v", err)
	}

	// 行情：两天涨跌幅用于波动率
	bars := []*DailyBar{
		{TradeDate: "2025-08-07", StockCode: "600000", Close: 10, ChangePct: 1},
		{TradeDate: "2025-08-08", StockCode: "600000", Close: 10.3, ChangePct: 3, MA5: 10.1, MA20: 9.8, MA60: 9.5, Amplitude: 4},
	}
	if err := db.BatchSaveDailyBars(ctx, bars); err != nil {
		t.Fatalf("保存行情失败: %v", err)
	}

	// 板块归属与板块资金流
	if err := db.SaveBlockMemberships(ctx, []*BlockMembership{
		{StockCode: "600000", BlockCode: "880001", BlockName: "银行", BlockType: "industry"},
	}); err != nil {
		t.Fatalf("保存板块归属失败: %v", err)
	}
	if err := db.SaveBlockFlowRows(ctx, []*BlockFlowRow{
		{TradeDate: "2025-08-08", BlockCode: "880001", BlockName: "银行", BlockType: "industry",
			InflowRatio: 2, Ranking: 3, ContinuityDays: 2},
	}); err != nil {
		t.Fatalf("保存板块资金流失败: %v", err)
	}

	input, err := db.LoadScoreInput(ctx, "600000", "2025-08-08")
	if err != nil {
		t.Fatalf("装配评分输入失败: %v", err)
	}

	if input.Capital == nil || input.Capital.NetInflow != 300 {
		t.Fatalf("资金面数据错误: %+v", input.Capital)
	}
	if input.Capital.PositiveDays5 != 3 {
		t.Errorf("近 5 日净流入天数应为 3, 得到 %d", input.Capital.PositiveDays5)
	}
	if input.Bar == nil || input.Bar.MA5 != 10.1 {
		t.Errorf("行情数据错误: %+v", input.Bar)
	}
	if input.Volatility20 == nil {
		t.Error("两天历史应产生波动率")
	}
	if input.Block == nil || input.Block.Ranking != 3 || input.Block.BlockType != "industry" {
		t.Errorf("板块数据错误: %+v", input.Block)
	}

	// 完全无数据的股票：各部分均为 nil，不报错
	empty, err := db.LoadScoreInput(ctx, "999999", "2025-08-08")
	if err != nil {
		t.Fatalf("无数据股票不应报错: %v", err)
	}
	if empty.Capital != nil || empty.Bar != nil || empty.Block != nil {
		t.Errorf("无数据股票各部分应为 nil: %+v", empty)
	}
}

func TestHoldingCostRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, date := range []string{"2025-08-06", "2025-08-07", "2025-08-08"} {
		if err := db.SaveHoldingCostRow(ctx, &HoldingCostRow{
			TradeDate: date, StockCode: "600000", BuyVWAP: 10, CostTrend: "stable",
		}); err != nil {
			t.Fatalf("保存持股成本失败: %v", err)
		}
	}

	history, err := db.GetHoldingCostHistory(ctx, "600000", 2)
	if err != nil {
		t.Fatalf("查询历史失败: %v", err)
	}
	if len(history) != 2 || history[0].TradeDate != "2025-08-08" {
		t.Errorf("历史应从新到旧取 2 条, 得到 %+v", history)
	}
}
