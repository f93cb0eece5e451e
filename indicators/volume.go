package indicators

import "math"

// ========== 量能指标 ==========

// VWAP 成交量加权平均价 Σ(price×volume)/Σ(volume)
// 输入为空、长度不一致或总成交量为 0 时返回 0（下游评分把 0 当作"无信号"而非错误）
func VWAP(prices, volumes []float64) float64 {
	if len(prices) == 0 || len(prices) != len(volumes) {
		return 0
	}

	totalValue := 0.0
	totalVolume := 0.0
	for i := range prices {
		totalValue += prices[i] * volumes[i]
		totalVolume += volumes[i]
	}
	if totalVolume == 0 {
		return 0
	}
	return totalValue / totalVolume
}

// VolumeResult 成交量指标
type VolumeResult struct {
	VMA         []float64 // 量均线
	VolumeRatio []float64 // 量比（当日量 / 量均线）
	OBV         []float64 // 能量潮
}

// VolumeIndicators 计算成交量指标
// closes 用于 OBV 的涨跌方向判定；量均线未定义或为 0 处量比为 NaN
func VolumeIndicators(closes, volumes []float64, period int) *VolumeResult {
	vma := MA(volumes, period)

	ratio := nanSlice(len(volumes))
	for i, v := range volumes {
		if !math.IsNaN(vma[i]) && vma[i] > 0 {
			ratio[i] = v / vma[i]
		}
	}

	obv := make([]float64, len(volumes))
	for i := 1; i < len(volumes) && i < len(closes); i++ {
		obv[i] = obv[i-1]
		if closes[i] > closes[i-1] {
			obv[i] += volumes[i]
		} else if closes[i] < closes[i-1] {
			obv[i] -= volumes[i]
		}
	}

	return &VolumeResult{VMA: vma, VolumeRatio: ratio, OBV: obv}
}
