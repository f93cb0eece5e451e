package indicators

import (
	"math"
	"sort"
)

// ========== 基础统计工具 ==========

// Mean 平均值
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Sum 求和
func Sum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// Min 最小值
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max 最大值
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Median 中位数
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// StdDev 总体标准差
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)))
}

// ========== 归一化与相关性 ==========

// Normalize 数据归一化
// method 为 "minmax" 时映射到 [0,1]（所有值相等时全部返回 0.5），
// "zscore" 时映射到均值 0 方差 1（标准差为 0 时全部返回 0），
// 其他 method 原样返回副本
func Normalize(values []float64, method string) []float64 {
	if len(values) == 0 {
		return []float64{}
	}

	result := make([]float64, len(values))

	switch method {
	case "minmax":
		min := Min(values)
		max := Max(values)
		if max == min {
			for i := range result {
				result[i] = 0.5
			}
			return result
		}
		for i, v := range values {
			result[i] = (v - min) / (max - min)
		}
		return result

	case "zscore":
		mean := Mean(values)
		std := StdDev(values)
		if std == 0 {
			return result
		}
		for i, v := range values {
			result[i] = (v - mean) / std
		}
		return result

	default:
		copy(result, values)
		return result
	}
}

// Correlation 皮尔逊相关系数
// 长度不一致、点数不足 2 或任一序列零方差时返回 0
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}

	meanX := Mean(x)
	meanY := Mean(y)

	var covXY, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		covXY += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0
	}
	return covXY / math.Sqrt(varX*varY)
}

// DetectAnomalies 基于 z-score 的异常值检测
// 返回 |z| > threshold 的布尔掩码；点数不足 3 或标准差为 0 时全部为 false
func DetectAnomalies(values []float64, threshold float64) []bool {
	result := make([]bool, len(values))
	if len(values) < 3 {
		return result
	}

	mean := Mean(values)
	std := StdDev(values)
	if std == 0 {
		return result
	}

	for i, v := range values {
		if math.Abs((v-mean)/std) > threshold {
			result[i] = true
		}
	}
	return result
}

// ========== 缺失值填充 ==========

// FillMissing 填充序列中的 NaN 位置
// method 支持 linear（按下标线性插值）、forward（前向填充）、
// backward（后向填充）、mean（总体均值填充）；无有效值时原样返回副本
func FillMissing(values []float64, method string) []float64 {
	result := make([]float64, len(values))
	copy(result, values)

	hasValid := false
	for _, v := range result {
		if !math.IsNaN(v) {
			hasValid = true
			break
		}
	}
	if !hasValid {
		return result
	}

	switch method {
	case "forward":
		last := math.NaN()
		for i, v := range result {
			if math.IsNaN(v) {
				result[i] = last
			} else {
				last = v
			}
		}

	case "backward":
		next := math.NaN()
		for i := len(result) - 1; i >= 0; i-- {
			if math.IsNaN(result[i]) {
				result[i] = next
			} else {
				next = result[i]
			}
		}

	case "mean":
		sum := 0.0
		count := 0
		for _, v := range result {
			if !math.IsNaN(v) {
				sum += v
				count++
			}
		}
		mean := sum / float64(count)
		for i, v := range result {
			if math.IsNaN(v) {
				result[i] = mean
			}
		}

	default: // linear
		for i, v := range result {
			if !math.IsNaN(v) {
				continue
			}
			// 向两侧找最近的有效值，按下标线性插值；边界处退化为最近值
			prev, next := -1, -1
			for j := i - 1; j >= 0; j-- {
				if !math.IsNaN(result[j]) {
					prev = j
					break
				}
			}
			for j := i + 1; j < len(result); j++ {
				if !math.IsNaN(result[j]) {
					next = j
					break
				}
			}
			switch {
			case prev >= 0 && next >= 0:
				weight := float64(i-prev) / float64(next-prev)
				result[i] = result[prev] + weight*(result[next]-result[prev])
			case prev >= 0:
				result[i] = result[prev]
			case next >= 0:
				result[i] = result[next]
			}
		}
	}

	return result
}

// ========== 线性回归 ==========

// LinearRegression 对 (下标, 值) 做一次多项式拟合
// 返回斜率与截距；点数不足 2 时 ok 为 false
func LinearRegression(values []float64) (slope, intercept float64, ok bool) {
	n := len(values)
	if n < 2 {
		return 0, 0, false
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0, false
	}

	slope = (fn*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / fn
	return slope, intercept, true
}

// RSquared 一次拟合的决定系数 R²
// 总平方和为 0 或拟合失败时返回 0
func RSquared(values []float64) float64 {
	slope, intercept, ok := LinearRegression(values)
	if !ok {
		return 0
	}

	mean := Mean(values)
	var ssRes, ssTot float64
	for i, y := range values {
		fit := slope*float64(i) + intercept
		ssRes += (y - fit) * (y - fit)
		ssTot += (y - mean) * (y - mean)
	}

	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
