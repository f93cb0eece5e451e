package database

import (
	"context"

	"stockinsight/capital"
	"stockinsight/cost"
	"stockinsight/scoring"
)

// Database 数据库接口
type Database interface {
	// 日线行情
	SaveDailyBar(ctx context.Context, bar *DailyBar) error
	BatchSaveDailyBars(ctx context.Context, bars []*DailyBar) error
	GetDailyBar(ctx context.Context, stockCode, tradeDate string) (*DailyBar, error)
	GetDailyBars(ctx context.Context, stockCode, startDate, endDate string) ([]*DailyBar, error)

	// 资金流与价格分布
	SaveFlowRow(ctx context.Context, row *FlowRow) error
	BatchSaveFlowRows(ctx context.Context, rows []*FlowRow) error
	GetFlowRecord(ctx context.Context, stockCode, tradeDate string) (*capital.FlowRecord, error)
	GetFlowRecords(ctx context.Context, stockCode, startDate, endDate string) ([]capital.FlowRecord, error)
	GetSnapshot(ctx context.Context, stockCode, tradeDate string) (*cost.Snapshot, error)
	GetActiveStockCodes(ctx context.Context, tradeDate string) ([]string, error)

	// 板块
	SaveBlockFlowRows(ctx context.Context, rows []*BlockFlowRow) error
	SaveBlockMemberships(ctx context.Context, rows []*BlockMembership) error
	GetBlockDayFlows(ctx context.Context, startDate, endDate string) ([]capital.BlockDayFlow, error)
	GetBlockMembership(ctx context.Context, stockCode string) (*BlockMembership, error)
	GetBlockFlowRow(ctx context.Context, blockCode, tradeDate string) (*BlockFlowRow, error)
	GetBlockMembers(ctx context.Context, blockCode string) ([]string, error)

	// 评分结果
	SaveScoringRows(ctx context.Context, rows []*ScoringRow) error
	GetScoringRow(ctx context.Context, stockCode, tradeDate string) (*ScoringRow, error)
	GetTopScoringRows(ctx context.Context, tradeDate string, limit int) ([]*ScoringRow, error)

	// 持股成本结果
	SaveHoldingCostRow(ctx context.Context, row *HoldingCostRow) error
	GetHoldingCostHistory(ctx context.Context, stockCode string, days int) ([]*HoldingCostRow, error)

	// 评分输入装配
	LoadScoreInput(ctx context.Context, stockCode, tradeDate string) (scoring.Input, error)

	// 应用日志
	SaveLogEntry(ctx context.Context, entry *LogEntry) error

	// 健康检查
	Ping(ctx context.Context) error

	// 关闭连接
	Close() error
}
