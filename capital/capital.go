// Package capital 资金流向分析
// 消费已排序的每日资金流记录，计算流入比例、连续性、稳定性与短期趋势。
package capital

import (
	"sort"

	"stockinsight/indicators"
	"stockinsight/utils"
)

// FlowRecord 个股单日资金流记录
// 由数据访问层物化，分析过程只读不改
type FlowRecord struct {
	TradeDate       string  `json:"trade_date"` // YYYY-MM-DD
	StockCode       string  `json:"stock_code"`
	TotalBuyAmount  float64 `json:"total_buy_amount"`
	TotalSellAmount float64 `json:"total_sell_amount"`
	NetInflow       float64 `json:"net_inflow"`
	TotalAmount     float64 `json:"total_amount"`
	InflowRatio     float64 `json:"inflow_ratio"`
	LargeNetInflow  float64 `json:"large_net_inflow"`
	LargeInflowRatio float64 `json:"large_inflow_ratio"`
}

// BlockDayFlow 板块单日聚合资金流（成分股按日汇总后的行）
type BlockDayFlow struct {
	TradeDate    string  `json:"trade_date"`
	BlockCode    string  `json:"block_code"`
	BlockName    string  `json:"block_name"`
	BlockType    string  `json:"block_type"` // concept / industry
	NetInflow    float64 `json:"net_inflow"`
	TotalAmount  float64 `json:"total_amount"`
	StockCount   int     `json:"stock_count"`
	InflowStocks int     `json:"inflow_stocks"`
}

// DailyFlowDetail 窗口内单日明细
type DailyFlowDetail struct {
	Date        string  `json:"date"`
	NetInflow   float64 `json:"net_inflow"`
	InflowRatio float64 `json:"inflow_ratio"`
	TotalAmount float64 `json:"total_amount"`
}

// BlockFlowResult 板块窗口分析结果
type BlockFlowResult struct {
	BlockCode      string            `json:"block_code"`
	BlockName      string            `json:"block_name"`
	BlockType      string            `json:"block_type"`
	ContinuityDays int               `json:"continuity_days"`
	AvgInflowRatio float64           `json:"avg_inflow_ratio"`
	DailyFlows     []DailyFlowDetail `json:"daily_flows"`
	LatestFlow     *DailyFlowDetail  `json:"latest_flow,omitempty"`
}

// Continuity 连续性指标
type Continuity struct {
	PositiveDays    int     `json:"positive_days"`
	NegativeDays    int     `json:"negative_days"`
	ContinuityScore float64 `json:"continuity_score"` // 正流入天数 / 总天数
}

// StockFlowResult 个股区间分析结果
type StockFlowResult struct {
	StockCode      string       `json:"stock_code"`
	StartDate      string       `json:"start_date"`
	EndDate        string       `json:"end_date"`
	TotalNetInflow float64      `json:"total_net_inflow"`
	AvgDailyInflow float64      `json:"avg_daily_inflow"`
	MaxInflow      float64      `json:"max_inflow"`
	MinInflow      float64      `json:"min_inflow"`
	Continuity     Continuity   `json:"inflow_continuity"`
	Stability      float64      `json:"inflow_stability"`
	RecentTrend    string       `json:"recent_trend"` // improving / deteriorating / stable
	DailyDetails   []FlowRecord `json:"daily_details"`
}

// InflowRatio 净流入占总成交额的百分比
// 总成交额非正时约定为 0（新股或停牌日的常态，不作为错误）
func InflowRatio(netInflow, totalAmount float64) float64 {
	if totalAmount <= 0 {
		return 0
	}
	return netInflow / totalAmount * 100
}

// AnalyzeBlockFlow 计算板块资金流向
// rows 为按 (板块, 日期) 聚合后的明细，窗口为 [tradeDate-(lookbackDays-1), tradeDate]；
// 结果按平均流入比例降序排列，topN > 0 时截断到前 topN
func AnalyzeBlockFlow(rows []BlockDayFlow, tradeDate string, lookbackDays, topN int) []BlockFlowResult {
	startDate := utils.ShiftDate(tradeDate, -(lookbackDays - 1))

	// 按板块分组
	blocks := make(map[string]*BlockFlowResult)
	order := make([]string, 0)
	for _, row := range rows {
		if row.TradeDate < startDate || row.TradeDate > tradeDate {
			continue
		}
		result, ok := blocks[row.BlockCode]
		if !ok {
			result = &BlockFlowResult{
				BlockCode: row.BlockCode,
				BlockName: row.BlockName,
				BlockType: row.BlockType,
			}
			blocks[row.BlockCode] = result
			order = append(order, row.BlockCode)
		}
		result.DailyFlows = append(result.DailyFlows, DailyFlowDetail{
			Date:        row.TradeDate,
			NetInflow:   row.NetInflow,
			InflowRatio: InflowRatio(row.NetInflow, row.TotalAmount),
			TotalAmount: row.TotalAmount,
		})
	}

	results := make([]BlockFlowResult, 0, len(blocks))
	for _, code := range order {
		result := blocks[code]

		// 窗口内按日期升序
		sort.Slice(result.DailyFlows, func(i, j int) bool {
			return result.DailyFlows[i].Date < result.DailyFlows[j].Date
		})

		// 从最近一天向前数连续净流入天数，遇到非正即停
		for i := len(result.DailyFlows) - 1; i >= 0; i-- {
			if result.DailyFlows[i].NetInflow > 0 {
				result.ContinuityDays++
			} else {
				break
			}
		}

		ratios := make([]float64, len(result.DailyFlows))
		for i, f := range result.DailyFlows {
			ratios[i] = f.InflowRatio
		}
		result.AvgInflowRatio = indicators.Mean(ratios)

		if len(result.DailyFlows) > 0 {
			latest := result.DailyFlows[len(result.DailyFlows)-1]
			result.LatestFlow = &latest
		}

		results = append(results, *result)
	}

	// 平均流入比例降序；稳定排序保证同分板块顺序可复现
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AvgInflowRatio > results[j].AvgInflowRatio
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}

// AnalyzeStockFlow 分析个股区间资金流向
// records 按日期升序；区间内无记录时返回 nil，调用方据此区分"无数据"和"无信号"
func AnalyzeStockFlow(stockCode string, records []FlowRecord, startDate, endDate string) *StockFlowResult {
	window := make([]FlowRecord, 0, len(records))
	for _, r := range records {
		if r.TradeDate >= startDate && r.TradeDate <= endDate {
			window = append(window, r)
		}
	}
	if len(window) == 0 {
		return nil
	}

	inflows := make([]float64, len(window))
	for i, r := range window {
		inflows[i] = r.NetInflow
	}

	result := &StockFlowResult{
		StockCode:      stockCode,
		StartDate:      startDate,
		EndDate:        endDate,
		TotalNetInflow: indicators.Sum(inflows),
		AvgDailyInflow: indicators.Mean(inflows),
		MaxInflow:      indicators.Max(inflows),
		MinInflow:      indicators.Min(inflows),
		Continuity:     calculateContinuity(inflows),
		Stability:      calculateStability(inflows),
		DailyDetails:   window,
	}

	// 近 5 日趋势
	recent := inflows
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	result.RecentTrend = analyzeTrend(recent)

	return result
}

// calculateContinuity 统计正负流入天数
func calculateContinuity(flows []float64) Continuity {
	c := Continuity{}
	for _, f := range flows {
		if f > 0 {
			c.PositiveDays++
		} else if f < 0 {
			c.NegativeDays++
		}
	}
	if len(flows) > 0 {
		c.ContinuityScore = float64(c.PositiveDays) / float64(len(flows))
	}
	return c
}

// calculateStability 稳定性 = 1 - std/|mean|
// 点数不足 2 或均值为 0 时约定为 1.0（退化情形视为完全稳定）
func calculateStability(flows []float64) float64 {
	if len(flows) < 2 {
		return 1.0
	}
	mean := indicators.Mean(flows)
	if mean == 0 {
		return 1.0
	}
	std := indicators.StdDev(flows)
	return 1 - std/abs(mean)
}

// analyzeTrend 用线性回归斜率给出近期趋势标签
// 斜率 > 0.1 改善，< -0.1 恶化，其余（含回归失败）为 stable
func analyzeTrend(flows []float64) string {
	slope, _, ok := indicators.LinearRegression(flows)
	if !ok {
		return "stable"
	}
	if slope > 0.1 {
		return "improving"
	}
	if slope < -0.1 {
		return "deteriorating"
	}
	return "stable"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
