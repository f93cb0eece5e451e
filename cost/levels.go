package cost

import (
	"sort"

	"stockinsight/indicators"
)

// FindCostLevels 找出重要的成本支撑位和阻力位
// 对历史买方成本做一维 k-means 聚类（k ≤ 3，取决于不同取值的个数），
// 价格最低的簇标记为支撑位，其余为阻力位，结果按价格升序排列。
// 历史不足 3 天时返回空列表。
func FindCostLevels(results []Result) []Level {
	if len(results) < 3 {
		return []Level{}
	}

	costs := make([]float64, len(results))
	volumes := make([]float64, len(results))
	for i, r := range results {
		costs[i] = r.BuyVWAP
		volumes[i] = r.TotalBuyAmount
	}

	distinct := make(map[float64]struct{})
	for _, c := range costs {
		distinct[c] = struct{}{}
	}
	k := 3
	if len(distinct) < k {
		k = len(distinct)
	}

	_, assignments := kmeans1D(costs, k)

	totalVolume := indicators.Sum(volumes)
	levels := make([]Level, 0, k)
	for cluster := 0; cluster < k; cluster++ {
		var members []float64
		clusterVolume := 0.0
		for i, a := range assignments {
			if a == cluster {
				members = append(members, costs[i])
				clusterVolume += volumes[i]
			}
		}
		if len(members) == 0 {
			continue
		}

		volumeWeight := 0.0
		if totalVolume > 0 {
			volumeWeight = clusterVolume / totalVolume
		}

		levels = append(levels, Level{
			PriceLevel:      indicators.Mean(members),
			FrequencyWeight: float64(len(members)) / float64(len(costs)),
			VolumeWeight:    volumeWeight,
			SampleCount:     len(members),
			Kind:            "resistance",
		})
	}

	if len(levels) == 0 {
		return levels
	}

	// 价格最低的簇是支撑位
	minIdx := 0
	for i, l := range levels {
		if l.PriceLevel < levels[minIdx].PriceLevel {
			minIdx = i
		}
	}
	levels[minIdx].Kind = "support"

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].PriceLevel < levels[j].PriceLevel
	})
	return levels
}

// kmeans1D 一维 k-means
// 输入是标量序列，直接按分位点确定初始中心，迭代至收敛；
// 结果确定可复现，不引入通用聚类依赖
func kmeans1D(values []float64, k int) (centers []float64, assignments []int) {
	const maxIterations = 100

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	// 分位点初始化
	centers = make([]float64, k)
	for i := 0; i < k; i++ {
		idx := (2*i + 1) * len(sorted) / (2 * k)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		centers[i] = sorted[idx]
	}

	assignments = make([]int, len(values))
	for iter := 0; iter < maxIterations; iter++ {
		changed := false

		// 分配到最近中心
		for i, v := range values {
			best := 0
			bestDist := distance(v, centers[0])
			for c := 1; c < k; c++ {
				if d := distance(v, centers[c]); d < bestDist {
					best = c
					bestDist = d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		// 重算中心；空簇保留旧中心
		for c := 0; c < k; c++ {
			sum := 0.0
			count := 0
			for i, a := range assignments {
				if a == c {
					sum += values[i]
					count++
				}
			}
			if count > 0 {
				centers[c] = sum / float64(count)
			}
		}

		if !changed {
			break
		}
	}
	return centers, assignments
}

func distance(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
