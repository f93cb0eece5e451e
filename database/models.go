package database

import (
	"encoding/json"
	"fmt"
	"time"

	"stockinsight/cost"
)

// DailyBar 个股日线行情
type DailyBar struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TradeDate    string    `gorm:"index:idx_bar_date_code,unique;size:10" json:"trade_date"`
	StockCode    string    `gorm:"index:idx_bar_date_code,unique;size:10" json:"stock_code"`
	StockName    string    `gorm:"size:50" json:"stock_name"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       float64   `json:"volume"`
	TotalAmount  float64   `json:"total_amount"`
	ChangePct    float64   `json:"change_pct"`
	Amplitude    float64   `json:"amplitude"`
	TurnoverRate float64   `json:"turnover_rate"`
	MA5          float64   `json:"ma5"`
	MA20         float64   `json:"ma20"`
	MA60         float64   `json:"ma60"`
	VMA5         float64   `json:"vma5"`
	VMA20        float64   `json:"vma20"`
	CreatedAt    time.Time `json:"created_at"`
}

// FlowRow 个股单日资金流与价格分布
// PriceDistribution 为压缩 JSON：{"p":[价位],"bv":[买量],"sv":[卖量],"ba":[买额],"sa":[卖额]}
type FlowRow struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TradeDate         string    `gorm:"index:idx_flow_date_code,unique;size:10" json:"trade_date"`
	StockCode         string    `gorm:"index:idx_flow_date_code,unique;size:10" json:"stock_code"`
	TotalBuyAmount    float64   `json:"total_buy_amount"`
	TotalSellAmount   float64   `json:"total_sell_amount"`
	NetInflow         float64   `json:"net_inflow"`
	TotalAmount       float64   `json:"total_amount"`
	InflowRatio       float64   `json:"inflow_ratio"`
	LargeNetInflow    float64   `json:"large_net_inflow"`
	LargeInflowRatio  float64   `json:"large_inflow_ratio"`
	PriceDistribution string    `gorm:"type:text" json:"price_distribution"`
	CreatedAt         time.Time `json:"created_at"`
}

// BlockFlowRow 板块单日聚合资金流
type BlockFlowRow struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TradeDate       string    `gorm:"index:idx_block_date_code,unique;size:10" json:"trade_date"`
	BlockCode       string    `gorm:"index:idx_block_date_code,unique;size:6" json:"block_code"`
	BlockName       string    `gorm:"size:100" json:"block_name"`
	BlockType       string    `gorm:"size:20" json:"block_type"`
	TotalBuyAmount  float64   `json:"total_buy_amount"`
	TotalSellAmount float64   `json:"total_sell_amount"`
	NetInflow       float64   `json:"net_inflow"`
	TotalAmount     float64   `json:"total_amount"`
	InflowRatio     float64   `json:"inflow_ratio"`
	StockCount      int       `json:"stock_count"`
	InflowStocks    int       `json:"inflow_stock_count"`
	ContinuityDays  int       `json:"continuity_days"`
	Ranking         int       `json:"ranking"`
	CreatedAt       time.Time `json:"created_at"`
}

// BlockMembership 个股所属板块
type BlockMembership struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	StockCode string `gorm:"index:idx_member_stock_block,unique;size:10" json:"stock_code"`
	BlockCode string `gorm:"index:idx_member_stock_block,unique;size:6" json:"block_code"`
	BlockName string `gorm:"size:100" json:"block_name"`
	BlockType string `gorm:"size:20" json:"block_type"`
}

// ScoringRow 个股单日评分结果
type ScoringRow struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TradeDate        string    `gorm:"index:idx_score_date_code,unique;size:10" json:"trade_date"`
	StockCode        string    `gorm:"index:idx_score_date_code,unique;size:10" json:"stock_code"`
	StockName        string    `gorm:"size:50" json:"stock_name"`
	CapitalScore     float64   `json:"capital_score"`
	TechnicalScore   float64   `json:"technical_score"`
	FundamentalScore float64   `json:"fundamental_score"`
	RiskScore        float64   `json:"risk_score"`
	TotalScore       float64   `gorm:"index" json:"total_score"`
	SignalType       string    `gorm:"size:20" json:"signal_type"`
	SignalStrength   int       `json:"signal_strength"`
	Ranking          int       `json:"ranking"`
	AnalysisSummary  string    `gorm:"type:text" json:"analysis_summary"` // JSON
	CreatedAt        time.Time `json:"created_at"`
}

// HoldingCostRow 个股单日持股成本分析结果
type HoldingCostRow struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TradeDate     string    `gorm:"index:idx_cost_date_code,unique;size:10" json:"trade_date"`
	StockCode     string    `gorm:"index:idx_cost_date_code,unique;size:10" json:"stock_code"`
	BuyVWAP       float64   `json:"buy_vwap"`
	SellVWAP      float64   `json:"sell_vwap"`
	VWAPSpread    float64   `json:"vwap_spread"`
	PriceMedian   float64   `json:"price_median"`
	BuyMedianDiff float64   `json:"buy_median_diff"`
	CostPressure  float64   `json:"cost_pressure"`
	TotalBuyAmount  float64 `json:"total_buy_amount"`
	TotalSellAmount float64 `json:"total_sell_amount"`
	AvgCost2D     float64   `json:"avg_cost_2d"`
	AvgCost5D     float64   `json:"avg_cost_5d"`
	AvgCost20D    float64   `json:"avg_cost_20d"`
	AvgCost60D    float64   `json:"avg_cost_60d"`
	CostTrend     string    `gorm:"size:10" json:"cost_trend"`
	CreatedAt     time.Time `json:"created_at"`
}

// LogEntry 应用日志
type LogEntry struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Level     string    `gorm:"index;size:10" json:"level"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// priceDistributionPayload 价格分布 JSON 的线格式
type priceDistributionPayload struct {
	Prices      []float64 `json:"p"`
	BuyVolumes  []float64 `json:"bv"`
	SellVolumes []float64 `json:"sv"`
	BuyAmounts  []float64 `json:"ba"`
	SellAmounts []float64 `json:"sa"`
}

// ParsePriceDistribution 解析价格分布 JSON 为快照价位档
// 各数组按索引对齐，长度以价位数组为准，缺失的量额按 0 处理
func ParsePriceDistribution(raw string) ([]cost.PriceLevel, error) {
	if raw == "" {
		return nil, nil
	}

	var payload priceDistributionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("解析价格分布数据失败: %w", err)
	}

	at := func(values []float64, i int) float64 {
		if i < len(values) {
			return values[i]
		}
		return 0
	}

	levels := make([]cost.PriceLevel, len(payload.Prices))
	for i, price := range payload.Prices {
		levels[i] = cost.PriceLevel{
			Price:      price,
			BuyVolume:  at(payload.BuyVolumes, i),
			SellVolume: at(payload.SellVolumes, i),
			BuyAmount:  at(payload.BuyAmounts, i),
			SellAmount: at(payload.SellAmounts, i),
		}
	}
	return levels, nil
}

// EncodePriceDistribution 将价位档编码为压缩 JSON
func EncodePriceDistribution(levels []cost.PriceLevel) (string, error) {
	payload := priceDistributionPayload{
		Prices:      make([]float64, len(levels)),
		BuyVolumes:  make([]float64, len(levels)),
		SellVolumes: make([]float64, len(levels)),
		BuyAmounts:  make([]float64, len(levels)),
		SellAmounts: make([]float64, len(levels)),
	}
	for i, l := range levels {
		payload.Prices[i] = l.Price
		payload.BuyVolumes[i] = l.BuyVolume
		payload.SellVolumes[i] = l.SellVolume
		payload.BuyAmounts[i] = l.BuyAmount
		payload.SellAmounts[i] = l.SellAmount
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("编码价格分布数据失败: %w", err)
	}
	return string(data), nil
}
