package indicators

import (
	"math"
	"testing"
)

func TestNormalizeMinMax(t *testing.T) {
	data := []float64{2, 4, 6, 8}
	norm := Normalize(data, "minmax")
	if !almostEqual(norm[0], 0, 1e-9) || !almostEqual(norm[3], 1, 1e-9) {
		t.Errorf("minmax 端点应为 0 和 1, 得到 %f / %f", norm[0], norm[3])
	}

	// 反向缩放还原原始极值
	min, max := Min(data), Max(data)
	for i, v := range norm {
		restored := v*(max-min) + min
		if !almostEqual(restored, data[i], 1e-9) {
			t.Errorf("位置 %d 还原失败: 期望 %f, 得到 %f", i, data[i], restored)
		}
	}

	// 所有值相等时返回全 0.5，避免除零
	flat := Normalize([]float64{3, 3, 3}, "minmax")
	for i, v := range flat {
		if !almostEqual(v, 0.5, 1e-9) {
			t.Errorf("常数序列位置 %d 应为 0.5, 得到 %f", i, v)
		}
	}
}

func TestNormalizeZScore(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	norm := Normalize(data, "zscore")

	// 归一化后均值 0、标准差 1
	if !almostEqual(Mean(norm), 0, 1e-9) {
		t.Errorf("zscore 均值应为 0, 得到 %f", Mean(norm))
	}
	if !almostEqual(StdDev(norm), 1, 1e-9) {
		t.Errorf("zscore 标准差应为 1, 得到 %f", StdDev(norm))
	}

	// 零方差返回全 0
	flat := Normalize([]float64{7, 7, 7}, "zscore")
	for i, v := range flat {
		if v != 0 {
			t.Errorf("零方差位置 %d 应为 0, 得到 %f", i, v)
		}
	}
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}
	if c := Correlation(x, y); !almostEqual(c, 1, 1e-9) {
		t.Errorf("完全正相关应为 1, 得到 %f", c)
	}

	yNeg := []float64{10, 8, 6, 4, 2}
	if c := Correlation(x, yNeg); !almostEqual(c, -1, 1e-9) {
		t.Errorf("完全负相关应为 -1, 得到 %f", c)
	}

	// 长度不一致、点数不足、零方差都返回 0
	if c := Correlation(x, []float64{1, 2}); c != 0 {
		t.Errorf("长度不一致应返回 0, 得到 %f", c)
	}
	if c := Correlation([]float64{1}, []float64{2}); c != 0 {
		t.Errorf("点数不足应返回 0, 得到 %f", c)
	}
	if c := Correlation(x, []float64{5, 5, 5, 5, 5}); c != 0 {
		t.Errorf("零方差应返回 0, 得到 %f", c)
	}
}

func TestDetectAnomalies(t *testing.T) {
	// 明显离群点
	data := []float64{1, 1.1, 0.9, 1.05, 0.95, 1, 100}
	mask := DetectAnomalies(data, 2)
	if !mask[len(mask)-1] {
		t.Error("末位离群点应被标记")
	}
	for i := 0; i < len(mask)-1; i++ {
		if mask[i] {
			t.Errorf("正常点 %d 不应被标记", i)
		}
	}

	// 点数不足或零方差时全 false
	mask = DetectAnomalies([]float64{1, 2}, 3)
	for i, m := range mask {
		if m {
			t.Errorf("点数不足时位置 %d 应为 false", i)
		}
	}
	mask = DetectAnomalies([]float64{5, 5, 5, 5}, 3)
	for i, m := range mask {
		if m {
			t.Errorf("零方差时位置 %d 应为 false", i)
		}
	}
}

func TestFillMissing(t *testing.T) {
	nan := math.NaN()

	// 线性插值
	data := []float64{1, nan, 3, nan, 5}
	filled := FillMissing(data, "linear")
	if !almostEqual(filled[1], 2, 1e-9) || !almostEqual(filled[3], 4, 1e-9) {
		t.Errorf("线性插值应为 2 和 4, 得到 %f / %f", filled[1], filled[3])
	}

	// 前向填充
	filled = FillMissing([]float64{1, nan, nan, 4}, "forward")
	if !almostEqual(filled[1], 1, 1e-9) || !almostEqual(filled[2], 1, 1e-9) {
		t.Errorf("前向填充应复制 1, 得到 %f / %f", filled[1], filled[2])
	}

	// 后向填充
	filled = FillMissing([]float64{nan, 2, nan, 4}, "backward")
	if !almostEqual(filled[0], 2, 1e-9) || !almostEqual(filled[2], 4, 1e-9) {
		t.Errorf("后向填充应为 2 和 4, 得到 %f / %f", filled[0], filled[2])
	}

	// 均值填充
	filled = FillMissing([]float64{1, nan, 3}, "mean")
	if !almostEqual(filled[1], 2, 1e-9) {
		t.Errorf("均值填充应为 2, 得到 %f", filled[1])
	}

	// 原序列不被修改
	src := []float64{1, nan, 3}
	_ = FillMissing(src, "linear")
	if !math.IsNaN(src[1]) {
		t.Error("FillMissing 不应修改原序列")
	}
}

func TestLinearRegression(t *testing.T) {
	// 完美线性序列
	slope, intercept, ok := LinearRegression([]float64{10, 11, 12, 13, 14})
	if !ok {
		t.Fatal("拟合应成功")
	}
	if !almostEqual(slope, 1, 1e-9) || !almostEqual(intercept, 10, 1e-9) {
		t.Errorf("期望斜率 1 截距 10, 得到 %f / %f", slope, intercept)
	}

	// 点数不足
	if _, _, ok := LinearRegression([]float64{1}); ok {
		t.Error("单点拟合应失败")
	}
}

func TestRSquared(t *testing.T) {
	// 完美拟合 R² = 1
	if r2 := RSquared([]float64{10, 11, 12, 13, 14}); !almostEqual(r2, 1, 1e-9) {
		t.Errorf("完美线性 R² 应为 1, 得到 %f", r2)
	}

	// 常数序列 SS_tot = 0，约定返回 0
	if r2 := RSquared([]float64{5, 5, 5, 5}); r2 != 0 {
		t.Errorf("常数序列 R² 应为 0, 得到 %f", r2)
	}

	// 噪声主导的序列 R² 较低
	if r2 := RSquared([]float64{10, 14, 9, 13, 10, 14, 9}); r2 > 0.5 {
		t.Errorf("噪声序列 R² 不应超过 0.5, 得到 %f", r2)
	}
}

func TestMedianAndStdDev(t *testing.T) {
	if m := Median([]float64{3, 1, 2}); !almostEqual(m, 2, 1e-9) {
		t.Errorf("奇数个中位数应为 2, 得到 %f", m)
	}
	if m := Median([]float64{1, 2, 3, 4}); !almostEqual(m, 2.5, 1e-9) {
		t.Errorf("偶数个中位数应为 2.5, 得到 %f", m)
	}
	if m := Median(nil); m != 0 {
		t.Errorf("空序列中位数应为 0, 得到 %f", m)
	}

	// 总体标准差（除以 n）
	if s := StdDev([]float64{2, 4}); !almostEqual(s, 1, 1e-9) {
		t.Errorf("总体标准差应为 1, 得到 %f", s)
	}
}
