// Package cost 持股成本分析
// 消费盘中价格分布快照，计算买卖双方加权成本、成本压力、多窗口均值与支撑/阻力位。
package cost

import (
	"fmt"

	"stockinsight/indicators"
)

// PriceLevel 单个价位档的成交分布
type PriceLevel struct {
	Price      float64 `json:"price"`
	BuyVolume  float64 `json:"buy_volume"`
	SellVolume float64 `json:"sell_volume"`
	BuyAmount  float64 `json:"buy_amount"`
	SellAmount float64 `json:"sell_amount"`
}

// Snapshot 个股单日价格分布快照，生成后只读
type Snapshot struct {
	TradeDate string       `json:"trade_date"`
	StockCode string       `json:"stock_code"`
	Levels    []PriceLevel `json:"levels"`
}

// Concentration 成本集中度指标
type Concentration struct {
	Top20PriceRange     float64 `json:"top20_price_range"`    // 头部价格区间占比（固定 2/10）
	VolumeConcentration float64 `json:"volume_concentration"` // 头部区间成交量占比
	PriceDispersion     float64 `json:"price_dispersion"`     // (max-min)/mean
}

// Result 单日成本分析结果，计算后不再修改
type Result struct {
	Date            string        `json:"date"`
	BuyVWAP         float64       `json:"buy_vwap"`
	SellVWAP        float64       `json:"sell_vwap"`
	VWAPSpread      float64       `json:"vwap_spread"`
	PriceMedian     float64       `json:"price_median"`
	BuyMedianDiff   float64       `json:"buy_median_diff"`
	SellMedianDiff  float64       `json:"sell_median_diff"`
	CostPressure    float64       `json:"cost_pressure"`
	Concentration   Concentration `json:"cost_concentration"`
	TotalBuyAmount  float64       `json:"total_buy_amount"`
	TotalSellAmount float64       `json:"total_sell_amount"`
}

// WindowAverage 时间窗口内的平均成本
type WindowAverage struct {
	AvgBuyVWAP      float64 `json:"avg_buy_vwap"`
	AvgSellVWAP     float64 `json:"avg_sell_vwap"`
	AvgCostPressure float64 `json:"avg_cost_pressure"`
	CostTrend       string  `json:"cost_trend"` // rising / falling / stable
}

// Level 聚类得到的成本密集区
type Level struct {
	PriceLevel      float64 `json:"price_level"`
	FrequencyWeight float64 `json:"frequency_weight"` // 落入该簇的天数占比
	VolumeWeight    float64 `json:"volume_weight"`    // 该簇买入金额占比
	SampleCount     int     `json:"sample_count"`
	Kind            string  `json:"type"` // support / resistance
}

// Report 持股成本报告
type Report struct {
	StockCode               string                   `json:"stock_code"`
	AnalysisDays            int                      `json:"analysis_days"`
	LatestCost              *Result                  `json:"latest_cost,omitempty"`
	CostHistory             []Result                 `json:"cost_history"`
	MultiDayAverages        map[string]WindowAverage `json:"multi_day_averages"`
	SupportResistanceLevels []Level                  `json:"support_resistance_levels"`
}

// DefaultWindows 多窗口平均成本的默认窗口
var DefaultWindows = []int{2, 5, 20, 60}

// AnalyzeDaily 分析单日持股成本
// 空快照返回 nil（结构性缺失输入的哨兵结果）；零成交量不报错，集中度全 0
func AnalyzeDaily(snapshot *Snapshot) *Result {
	if snapshot == nil || len(snapshot.Levels) == 0 {
		return nil
	}

	prices := make([]float64, len(snapshot.Levels))
	var totalBuyVolume, totalSellVolume, totalBuyAmount, totalSellAmount float64
	for i, l := range snapshot.Levels {
		prices[i] = l.Price
		totalBuyVolume += l.BuyVolume
		totalSellVolume += l.SellVolume
		totalBuyAmount += l.BuyAmount
		totalSellAmount += l.SellAmount
	}

	buyVWAP := 0.0
	if totalBuyVolume > 0 {
		buyVWAP = totalBuyAmount / totalBuyVolume
	}
	sellVWAP := 0.0
	if totalSellVolume > 0 {
		sellVWAP = totalSellAmount / totalSellVolume
	}

	priceMedian := indicators.Median(prices)
	costPressure := 0.0
	if priceMedian > 0 {
		costPressure = (buyVWAP - sellVWAP) / priceMedian * 100
	}

	return &Result{
		Date:            snapshot.TradeDate,
		BuyVWAP:         buyVWAP,
		SellVWAP:        sellVWAP,
		VWAPSpread:      buyVWAP - sellVWAP,
		PriceMedian:     priceMedian,
		BuyMedianDiff:   buyVWAP - priceMedian,
		SellMedianDiff:  sellVWAP - priceMedian,
		CostPressure:    costPressure,
		Concentration:   calculateConcentration(snapshot.Levels),
		TotalBuyAmount:  totalBuyAmount,
		TotalSellAmount: totalSellAmount,
	}
}

// calculateConcentration 成本集中度
// 把价位分入 10 个等宽桶，取成交量最大的 2 桶计算占比
func calculateConcentration(levels []PriceLevel) Concentration {
	const bins = 10
	topCount := bins / 5 // 前 20% 的桶数

	var totalVolume float64
	for _, l := range levels {
		totalVolume += l.BuyVolume + l.SellVolume
	}
	if totalVolume == 0 {
		return Concentration{}
	}

	prices := make([]float64, len(levels))
	for i, l := range levels {
		prices[i] = l.Price
	}
	priceMin := indicators.Min(prices)
	priceMax := indicators.Max(prices)
	priceRange := priceMax - priceMin

	volumeByBin := make([]float64, bins)
	if priceRange > 0 {
		for _, l := range levels {
			bin := int((l.Price - priceMin) / priceRange * float64(bins-1))
			if bin > bins-1 {
				bin = bins - 1
			}
			volumeByBin[bin] += l.BuyVolume + l.SellVolume
		}
	}

	// 取体量最大的 topCount 个桶
	topVolume := 0.0
	for i := 0; i < topCount; i++ {
		maxIdx := -1
		for j, v := range volumeByBin {
			if maxIdx < 0 || v > volumeByBin[maxIdx] {
				maxIdx = j
			}
		}
		topVolume += volumeByBin[maxIdx]
		volumeByBin[maxIdx] = -1
	}

	dispersion := 0.0
	if mean := indicators.Mean(prices); mean > 0 {
		dispersion = priceRange / mean
	}

	return Concentration{
		Top20PriceRange:     float64(topCount) / float64(bins),
		VolumeConcentration: topVolume / totalVolume,
		PriceDispersion:     dispersion,
	}
}

// MultiWindowAverage 多窗口平均成本
// results 按日期从新到旧排列；每个不超过可用长度的窗口取最近 w 天求均值，
// 并对窗口内买方成本序列做趋势判定
func MultiWindowAverage(results []Result, windows []int) map[string]WindowAverage {
	if len(windows) == 0 {
		windows = DefaultWindows
	}

	averages := make(map[string]WindowAverage)
	for _, w := range windows {
		if len(results) < w || w <= 0 {
			continue
		}
		window := results[:w]

		buyVWAPs := make([]float64, w)
		sellVWAPs := make([]float64, w)
		pressures := make([]float64, w)
		for i, r := range window {
			buyVWAPs[i] = r.BuyVWAP
			sellVWAPs[i] = r.SellVWAP
			pressures[i] = r.CostPressure
		}

		averages[fmt.Sprintf("%dd", w)] = WindowAverage{
			AvgBuyVWAP:      indicators.Mean(buyVWAPs),
			AvgSellVWAP:     indicators.Mean(sellVWAPs),
			AvgCostPressure: indicators.Mean(pressures),
			CostTrend:       determineCostTrend(buyVWAPs),
		}
	}
	return averages
}

// determineCostTrend 成本趋势判定
// 一次拟合的 R² > 0.5 且斜率幅度超过 0.01 才给出方向，
// 否则一律 stable——避免在噪声主导的低置信度回归上误报趋势
func determineCostTrend(history []float64) string {
	if len(history) < 2 {
		return "stable"
	}

	slope, _, ok := indicators.LinearRegression(history)
	if !ok {
		return "stable"
	}
	if indicators.RSquared(history) > 0.5 {
		if slope > 0.01 {
			return "rising"
		}
		if slope < -0.01 {
			return "falling"
		}
	}
	return "stable"
}

// BuildReport 汇总持股成本报告
// results 按日期从新到旧排列
func BuildReport(stockCode string, lookbackDays int, results []Result) *Report {
	report := &Report{
		StockCode:               stockCode,
		AnalysisDays:            lookbackDays,
		CostHistory:             results,
		MultiDayAverages:        MultiWindowAverage(results, nil),
		SupportResistanceLevels: FindCostLevels(results),
	}
	if len(results) > 0 {
		report.LatestCost = &results[0]
	}
	return report
}
