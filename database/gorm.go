package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"stockinsight/capital"
	"stockinsight/cost"
	"stockinsight/indicators"
	"stockinsight/scoring"
	"stockinsight/utils"
)

// GormDatabase GORM 数据库实现
type GormDatabase struct {
	db *gorm.DB
}

// DBConfig 数据库配置
type DBConfig struct {
	Type            string        // sqlite, postgres, mysql
	DSN             string        // 数据源名称
	MaxOpenConns    int           // 最大打开连接数
	MaxIdleConns    int           // 最大空闲连接数
	ConnMaxLifetime time.Duration // 连接最大生命周期
	LogLevel        string        // 日志级别: silent, error, warn, info
}

// NewGormDatabase 创建 GORM 数据库实例
func NewGormDatabase(config *DBConfig) (*GormDatabase, error) {
	var dialector gorm.Dialector

	switch config.Type {
	case "sqlite":
		dialector = sqlite.Open(config.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(config.DSN)
	case "mysql":
		dialector = mysql.Open(config.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	// 日志级别
	logLevel := gormlogger.Silent
	switch config.LogLevel {
	case "error":
		logLevel = gormlogger.Error
	case "warn":
		logLevel = gormlogger.Warn
	case "info":
		logLevel = gormlogger.Info
	}

	// 打开数据库
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	// 自动迁移
	if err := db.AutoMigrate(
		&DailyBar{},
		&FlowRow{},
		&BlockFlowRow{},
		&BlockMembership{},
		&ScoringRow{},
		&HoldingCostRow{},
		&LogEntry{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return &GormDatabase{db: db}, nil
}

// SaveDailyBar 保存日线行情（按交易日+代码去重）
func (g *GormDatabase) SaveDailyBar(ctx context.Context, bar *DailyBar) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_date"}, {Name: "stock_code"}},
		UpdateAll: true,
	}).Create(bar).Error
}

// BatchSaveDailyBars 批量保存日线行情
func (g *GormDatabase) BatchSaveDailyBars(ctx context.Context, bars []*DailyBar) error {
	if len(bars) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_date"}, {Name: "stock_code"}},
		UpdateAll: true,
	}).CreateInBatches(bars, 100).Error
}

// GetDailyBar 获取单日行情，无数据时返回 (nil, nil)
func (g *GormDatabase) GetDailyBar(ctx context.Context, stockCode, tradeDate string) (*DailyBar, error) {
	var bar DailyBar
	err := g.db.WithContext(ctx).
		Where("stock_code = ? AND trade_date = ?", stockCode, tradeDate).
		First(&bar).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bar, nil
}

// GetDailyBars 获取区间行情，按日期升序
func (g *GormDatabase) GetDailyBars(ctx context.Context, stockCode, startDate, endDate string) ([]*DailyBar, error) {
	var bars []*DailyBar
	err := g.db.WithContext(ctx).
		Where("stock_code = ? AND trade_date BETWEEN ? AND ?", stockCode, startDate, endDate).
		Order("trade_date ASC").
		Find(&bars).Error
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// SaveFlowRow 保存资金流记录
func (g *GormDatabase) SaveFlowRow(ctx context.Context, row *FlowRow) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_date"}, {Name: "stock_code"}},
		UpdateAll: true,
	}).Create(row).Error
}

// BatchSaveFlowRows 批量保存资金流记录
func (g *GormDatabase) BatchSaveFlowRows(ctx context.Context, rows []*FlowRow) error {
	if len(rows) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_date"}, {Name: "stock_code"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 100).Error
}

// GetFlowRecord 获取单日资金流记录，无数据时返回 (nil, nil)
func (g *GormDatabase) GetFlowRecord(ctx context.Context, stockCode, tradeDate string) (*capital.FlowRecord, error) {
	var row FlowRow
	err := g.db.WithContext(ctx).
		Where("stock_code = ? AND trade_date = ?", stockCode, tradeDate).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record := flowRowToRecord(&row)
	return &record, nil
}

// GetFlowRecords 获取区间资金流记录，按日期升序
func (g *GormDatabase) GetFlowRecords(ctx context.Context, stockCode, startDate, endDate string) ([]capital.FlowRecord, error) {
	var rows []FlowRow
	err := g.db.WithContext(ctx).
		Where("stock_code = ? AND trade_date BETWEEN ? AND ?", stockCode, startDate, endDate).
		Order("trade_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]capital.FlowRecord, len(rows))
	for i := range rows {
		records[i] = flowRowToRecord(&rows[i])
	}
	return records, nil
}

// GetSnapshot 获取单日价格分布快照，无数据时返回 (nil, nil)
func (g *GormDatabase) GetSnapshot(ctx context.Context, stockCode, tradeDate string) (*cost.Snapshot, error) {
	var row FlowRow
	err := g.db.WithContext(ctx).
		Where("stock_code = ? AND trade_date = ?", stockCode, tradeDate).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	levels, err := ParsePriceDistribution(row.PriceDistribution)
	if err != nil {
		return nil, err
	}
	return &cost.Snapshot{
		TradeDate: row.TradeDate,
		StockCode: row.StockCode,
		Levels:    levels,
	}, nil
}

// GetActiveStockCodes 获取某交易日有资金流数据的全部股票代码
func (g *GormDatabase) GetActiveStockCodes(ctx context.Context, tradeDate string) ([]string, error) {
	var codes []string
	err := g.db.WithContext(ctx).Model(&FlowRow{}).
		Where("trade_date = ?", tradeDate).
		Order("stock_code ASC").
		Pluck("stock_code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// SaveBlockFlowRows 批量保存板块资金流
func (g *GormDatabase) SaveBlockFlowRows(ctx context.Context, rows []*BlockFlowRow) error {
	if len(rows) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_date"}, {Name: "block_code"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 100).Error
}

// GetBlockDayFlows 获取区间内的板块单日资金流
func (g *GormDatabase) GetBlockDayFlows(ctx context.Context, startDate, endDate string) ([]capital.BlockDayFlow, error) {
	var rows []BlockFlowRow
	err := g.db.WithContext(ctx).
		Where("trade_date BETWEEN ? AND ?", startDate, endDate).
		Order("trade_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	flows := make([]capital.BlockDayFlow, len(rows))
	for i, row := range rows {
		flows[i] = capital.BlockDayFlow{
			TradeDate:    row.TradeDate,
			BlockCode:    row.BlockCode,
			BlockName:    row.BlockName,
			BlockType:    row.BlockType,
			NetInflow:    row.NetInflow,
			TotalAmount:  row.TotalAmount,
			StockCount:   row.StockCount,
			InflowStocks: row.InflowStocks,
		}
	}
	return flows, nil
}

// SaveBlockMemberships 批量保存板块成分股映射
func (g *GormDatabase) SaveBlockMemberships(ctx context.Context, rows []*BlockMembership) error {
	if len(rows) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_code"}, {Name: "block_code"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 100).Error
}

// GetBlockMembership 获取个股所属板块（取第一条），无数据时返回 (nil, nil)
func (g *GormDatabase) GetBlockMembership(ctx context.Context, stockCode string) (*BlockMembership, error) {
	var member BlockMembership
	err := g.db.WithContext(ctx).
		Where("stock_code = ?", stockCode).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetBlockFlowRow 获取板块单日资金流，无数据时返回 (nil, nil)
func (g *GormDatabase) GetBlockFlowRow(ctx context.Context, blockCode, tradeDate string) (*BlockFlowRow, error) {
	var row BlockFlowRow
	err := g.db.WithContext(ctx).
		Where("block_code = ? AND trade_date = ?", blockCode, tradeDate).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetBlockMembers 获取板块成分股代码
func (g *GormDatabase) GetBlockMembers(ctx context.Context, blockCode string) ([]string, error) {
	var codes []string
	err := g.db.WithContext(ctx).Model(&BlockMembership{}).
		Where("block_code = ?", blockCode).
		Order("stock_code ASC").
		Pluck("stock_code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// SaveScoringRows 批量保存评分结果
func (g *GormDatabase) SaveScoringRows(ctx context.Context, rows []*ScoringRow) error {
	if len(rows) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_date"}, {Name: "stock_code"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 100).Error
}

// GetScoringRow 获取个股单日评分结果，无数据时返回 (nil, nil)
func (g *GormDatabase) GetScoringRow(ctx context.Context, stockCode, tradeDate string) (*ScoringRow, error) {
	var row ScoringRow
	err := g.db.WithContext(ctx).
		Where("stock_code = ? AND trade_date = ?", stockCode, tradeDate).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetTopScoringRows 获取某交易日评分榜单，按总分降序
func (g *GormDatabase) GetTopScoringRows(ctx context.Context, tradeDate string, limit int) ([]*ScoringRow, error) {
	query := g.db.WithContext(ctx).
		Where("trade_date = ?", tradeDate).
		Order("total_score DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []*ScoringRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveHoldingCostRow 保存持股成本分析结果
func (g *GormDatabase) SaveHoldingCostRow(ctx context.Context, row *HoldingCostRow) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_date"}, {Name: "stock_code"}},
		UpdateAll: true,
	}).Create(row).Error
}

// GetHoldingCostHistory 获取最近 days 天的持股成本结果，按日期从新到旧
func (g *GormDatabase) GetHoldingCostHistory(ctx context.Context, stockCode string, days int) ([]*HoldingCostRow, error) {
	query := g.db.WithContext(ctx).
		Where("stock_code = ?", stockCode).
		Order("trade_date DESC")
	if days > 0 {
		query = query.Limit(days)
	}

	var rows []*HoldingCostRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// LoadScoreInput 装配个股单日评分输入
// 资金流、行情、板块三部分独立缺失时对应字段为 nil，评分模型自行退化
func (g *GormDatabase) LoadScoreInput(ctx context.Context, stockCode, tradeDate string) (scoring.Input, error) {
	input := scoring.Input{StockCode: stockCode, TradeDate: tradeDate}

	// 资金面：当日资金流 + 近 5 日净流入为正的天数
	flow, err := g.GetFlowRecord(ctx, stockCode, tradeDate)
	if err != nil {
		return input, fmt.Errorf("加载资金流数据失败: %w", err)
	}
	if flow != nil {
		start5 := utils.ShiftDate(tradeDate, -4)
		var positiveDays int64
		err = g.db.WithContext(ctx).Model(&FlowRow{}).
			Where("stock_code = ? AND trade_date BETWEEN ? AND ? AND net_inflow > 0",
				stockCode, start5, tradeDate).
			Count(&positiveDays).Error
		if err != nil {
			return input, fmt.Errorf("统计净流入天数失败: %w", err)
		}
		input.Capital = &scoring.CapitalData{
			NetInflow:        flow.NetInflow,
			InflowRatio:      flow.InflowRatio,
			LargeNetInflow:   flow.LargeNetInflow,
			LargeInflowRatio: flow.LargeInflowRatio,
			TotalAmount:      flow.TotalAmount,
			PositiveDays5:    int(positiveDays),
		}
	}

	// 技术面与风险面：当日行情 + 近 20 日涨跌幅标准差
	bar, err := g.GetDailyBar(ctx, stockCode, tradeDate)
	if err != nil {
		return input, fmt.Errorf("加载行情数据失败: %w", err)
	}
	if bar != nil {
		input.Bar = &scoring.DailyBar{
			Close:        bar.Close,
			MA5:          bar.MA5,
			MA20:         bar.MA20,
			MA60:         bar.MA60,
			Volume:       bar.Volume,
			VMA5:         bar.VMA5,
			ChangePct:    bar.ChangePct,
			Amplitude:    bar.Amplitude,
			TurnoverRate: bar.TurnoverRate,
			TotalAmount:  bar.TotalAmount,
		}

		start20 := utils.ShiftDate(tradeDate, -19)
		bars, err := g.GetDailyBars(ctx, stockCode, start20, tradeDate)
		if err != nil {
			return input, fmt.Errorf("加载历史行情失败: %w", err)
		}
		if len(bars) >= 2 {
			changes := make([]float64, len(bars))
			for i, b := range bars {
				changes[i] = b.ChangePct
			}
			volatility := indicators.StdDev(changes)
			input.Volatility20 = &volatility
		}
	}

	// 基本面：所属板块的当日资金流排名
	member, err := g.GetBlockMembership(ctx, stockCode)
	if err != nil {
		return input, fmt.Errorf("加载板块归属失败: %w", err)
	}
	if member != nil {
		blockFlow, err := g.GetBlockFlowRow(ctx, member.BlockCode, tradeDate)
		if err != nil {
			return input, fmt.Errorf("加载板块资金流失败: %w", err)
		}
		block := &scoring.BlockData{
			BlockCode: member.BlockCode,
			BlockName: member.BlockName,
			BlockType: member.BlockType,
		}
		if blockFlow != nil {
			block.InflowRatio = blockFlow.InflowRatio
			block.Ranking = blockFlow.Ranking
			block.ContinuityDays = blockFlow.ContinuityDays
		}
		input.Block = block
	}

	return input, nil
}

// SaveLogEntry 保存应用日志
func (g *GormDatabase) SaveLogEntry(ctx context.Context, entry *LogEntry) error {
	return g.db.WithContext(ctx).Create(entry).Error
}

// Ping 健康检查
func (g *GormDatabase) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (g *GormDatabase) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// flowRowToRecord 物化为分析层的资金流记录
func flowRowToRecord(row *FlowRow) capital.FlowRecord {
	return capital.FlowRecord{
		TradeDate:        row.TradeDate,
		StockCode:        row.StockCode,
		TotalBuyAmount:   row.TotalBuyAmount,
		TotalSellAmount:  row.TotalSellAmount,
		NetInflow:        row.NetInflow,
		TotalAmount:      row.TotalAmount,
		InflowRatio:      row.InflowRatio,
		LargeNetInflow:   row.LargeNetInflow,
		LargeInflowRatio: row.LargeInflowRatio,
	}
}
