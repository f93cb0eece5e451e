// Package indicators 序列指标计算库
// 所有函数接收按时间升序排列的数值序列，返回等长序列（未定义前缀用 NaN 填充）或标量。
// 退化输入（序列过短、零方差、零成交量）一律返回约定的回退值，不返回错误。
package indicators

import (
	"math"
)

// ========== 均线与趋势指标 ==========

// nanSlice 生成全 NaN 序列
func nanSlice(n int) []float64 {
	result := make([]float64, n)
	for i := range result {
		result[i] = math.NaN()
	}
	return result
}

// MA 简单移动平均
// 前 period-1 个位置未定义（NaN）；序列长度不足 period 时全部返回 NaN
func MA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nanSlice(len(values))
	}

	result := nanSlice(len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			result[i] = sum / float64(period)
		}
	}
	return result
}

// EMA 指数移动平均
// 平滑系数 α = 2/(period+1)，首值作为种子，无 NaN 前缀；
// 序列长度不足 period 时全部返回 NaN
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nanSlice(len(values))
	}

	result := make([]float64, len(values))
	alpha := 2.0 / (float64(period) + 1.0)
	result[0] = values[0]
	for i := 1; i < len(values); i++ {
		result[i] = alpha*values[i] + (1-alpha)*result[i-1]
	}
	return result
}

// RSI 相对强弱指数（Wilder 平滑）
// 前 period 个位置未定义；序列长度不足 period+1 时全部返回 NaN；
// 平均跌幅为 0 时 RSI 取 100
func RSI(values []float64, period int) []float64 {
	result := nanSlice(len(values))
	if period <= 0 || len(values) < period+1 {
		return result
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	result[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain := 0.0
		loss := 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		result[i] = rsiValue(avgGain, avgLoss)
	}
	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult MACD 三线
type MACDResult struct {
	MACD      []float64 // DIF 快慢线差
	Signal    []float64 // DEA 信号线
	Histogram []float64 // 柱状图
}

// MACD 指数平滑异同移动平均线
// 任一输入 EMA 未定义处 MACD 线为 NaN；信号线为 MACD 线的 EMA
func MACD(values []float64, fastPeriod, slowPeriod, signalPeriod int) *MACDResult {
	emaFast := EMA(values, fastPeriod)
	emaSlow := EMA(values, slowPeriod)

	macdLine := make([]float64, len(values))
	for i := range values {
		if math.IsNaN(emaFast[i]) || math.IsNaN(emaSlow[i]) {
			macdLine[i] = math.NaN()
		} else {
			macdLine[i] = emaFast[i] - emaSlow[i]
		}
	}

	signalLine := EMA(macdLine, signalPeriod)

	histogram := make([]float64, len(values))
	for i := range values {
		if math.IsNaN(macdLine[i]) || math.IsNaN(signalLine[i]) {
			histogram[i] = math.NaN()
		} else {
			histogram[i] = macdLine[i] - signalLine[i]
		}
	}

	return &MACDResult{MACD: macdLine, Signal: signalLine, Histogram: histogram}
}

// BollingerResult 布林带三轨
type BollingerResult struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// BollingerBands 布林带
// 中轨为简单移动平均，上下轨为中轨 ± k 倍窗口内总体标准差
func BollingerBands(values []float64, period int, k float64) *BollingerResult {
	middle := MA(values, period)
	upper := nanSlice(len(values))
	lower := nanSlice(len(values))

	for i := period - 1; i < len(values); i++ {
		if math.IsNaN(middle[i]) {
			continue
		}
		std := StdDev(values[i-period+1 : i+1])
		upper[i] = middle[i] + k*std
		lower[i] = middle[i] - k*std
	}

	return &BollingerResult{Middle: middle, Upper: upper, Lower: lower}
}

// ATR 平均真实波幅（Wilder 平滑）
// 真实波幅 TR = max(high-low, |high-prevClose|, |low-prevClose|)；
// 前 period 个位置未定义；长度不足 period+1 时全部返回 NaN
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(highs)
	result := nanSlice(n)
	if period <= 0 || n < period+1 || len(lows) != n || len(closes) != n {
		return result
	}

	trs := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		trs = append(trs, math.Max(hl, math.Max(hc, lc)))
	}

	atr := Mean(trs[:period])
	result[period] = atr
	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
		result[i+1] = atr
	}
	return result
}
