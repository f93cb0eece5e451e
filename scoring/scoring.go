// Package scoring 股票综合评分模型
// 资金面、技术面、基本面（板块）、风险面四个子分加权合成总分，
// 并映射为离散买卖信号与文字分析摘要。
package scoring

import (
	"math"
)

// Weights 评分权重配置
// 模型不校验权重和为 1，由配置层负责
type Weights struct {
	Capital     float64 `yaml:"capital" json:"capital"`
	Technical   float64 `yaml:"technical" json:"technical"`
	Fundamental float64 `yaml:"fundamental" json:"fundamental"`
	Risk        float64 `yaml:"risk" json:"risk"`
}

// DefaultWeights 默认权重：资金面 40%，技术面 30%，基本面 20%，风险面 10%
func DefaultWeights() Weights {
	return Weights{Capital: 0.40, Technical: 0.30, Fundamental: 0.20, Risk: 0.10}
}

// CapitalData 当日资金流字段（数据访问层物化）
type CapitalData struct {
	NetInflow        float64 `json:"net_inflow"`
	InflowRatio      float64 `json:"inflow_ratio"`
	LargeNetInflow   float64 `json:"large_net_inflow"`
	LargeInflowRatio float64 `json:"large_inflow_ratio"`
	TotalAmount      float64 `json:"total_amount"`
	PositiveDays5    int     `json:"positive_days_5"` // 近 5 日净流入为正的天数
}

// DailyBar 当日行情与均线字段
type DailyBar struct {
	Close        float64 `json:"close"`
	MA5          float64 `json:"ma5"`
	MA20         float64 `json:"ma20"`
	MA60         float64 `json:"ma60"`
	Volume       float64 `json:"volume"`
	VMA5         float64 `json:"vma5"`
	ChangePct    float64 `json:"change_pct"`
	Amplitude    float64 `json:"amplitude"`
	TurnoverRate float64 `json:"turnover_rate"`
	TotalAmount  float64 `json:"total_amount"`
}

// BlockData 个股所属板块的当日资金流排名
type BlockData struct {
	BlockCode      string  `json:"block_code"`
	BlockName      string  `json:"block_name"`
	BlockType      string  `json:"block_type"` // concept / industry
	InflowRatio    float64 `json:"inflow_ratio"`
	Ranking        int     `json:"ranking"`
	ContinuityDays int     `json:"continuity_days"`
}

// Input 单只股票单日评分输入
// 各部分可独立缺失（nil），缺失的子分退化为中性默认值
type Input struct {
	StockCode    string       `json:"stock_code"`
	TradeDate    string       `json:"trade_date"`
	Capital      *CapitalData `json:"capital,omitempty"`
	Bar          *DailyBar    `json:"bar,omitempty"`
	Block        *BlockData   `json:"block,omitempty"`
	Volatility20 *float64     `json:"volatility_20d,omitempty"` // 近 20 日涨跌幅标准差
}

// Scores 四个子分与总分
type Scores struct {
	Capital     float64 `json:"capital"`
	Technical   float64 `json:"technical"`
	Fundamental float64 `json:"fundamental"`
	Risk        float64 `json:"risk"`
	Total       float64 `json:"total"`
}

// Report 单只股票单日评分报告
type Report struct {
	StockCode string   `json:"stock_code"`
	TradeDate string   `json:"trade_date"`
	Scores    Scores   `json:"scores"`
	Weights   Weights  `json:"weights"`
	Signal    Signal   `json:"signal"`
	Analysis  Analysis `json:"analysis"`
}

// Model 综合评分模型，权重构造后不变，可并发使用
type Model struct {
	weights Weights
}

// NewModel 创建评分模型；零值权重退化为默认权重
func NewModel(weights Weights) *Model {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Model{weights: weights}
}

// Score 对单只股票单日输入做综合评分
func (m *Model) Score(input Input) *Report {
	capitalScore := m.calculateCapitalScore(input.Capital)
	technicalScore := m.calculateTechnicalScore(input.Bar)
	fundamentalScore := m.calculateFundamentalScore(input.Block)
	riskScore := m.calculateRiskScore(input.Bar, input.Volatility20)

	totalScore := capitalScore*m.weights.Capital +
		technicalScore*m.weights.Technical +
		fundamentalScore*m.weights.Fundamental +
		riskScore*m.weights.Risk

	return &Report{
		StockCode: input.StockCode,
		TradeDate: input.TradeDate,
		Scores: Scores{
			Capital:     round2(capitalScore),
			Technical:   round2(technicalScore),
			Fundamental: round2(fundamentalScore),
			Risk:        round2(riskScore),
			Total:       round2(totalScore),
		},
		Weights:  m.weights,
		Signal:   generateSignal(totalScore, capitalScore, technicalScore),
		Analysis: generateAnalysis(capitalScore, technicalScore, fundamentalScore, riskScore),
	}
}

// calculateCapitalScore 资金面评分
// 基础 50 分 + 净流入/大单/持续性加分 + 资金规模调整，缺失数据取中性 50
func (m *Model) calculateCapitalScore(data *CapitalData) float64 {
	if data == nil {
		return 50.0
	}

	score := 50.0

	// 净流入评分 (0-25分)
	if data.NetInflow > 0 {
		score += math.Min(data.InflowRatio*2, 25)
	}

	// 大单净流入评分 (0-25分)
	if data.LargeNetInflow > 0 {
		score += math.Min(data.LargeInflowRatio*2, 25)
	}

	// 持续性评分 (0-20分)
	score += math.Min(float64(data.PositiveDays5)*4, 20)

	// 资金规模调整：log10(成交额)-6，上限 10 分，小盘可为负
	score += math.Min(math.Log10(math.Max(data.TotalAmount, 1))-6, 10)

	return clamp(score, 0, 100)
}

// calculateTechnicalScore 技术面评分
func (m *Model) calculateTechnicalScore(bar *DailyBar) float64 {
	if bar == nil {
		return 50.0
	}

	score := 50.0

	// 均线排列评分 (0-30分)
	if bar.MA5 > 0 && bar.MA20 > 0 && bar.MA60 > 0 {
		switch {
		case bar.MA5 > bar.MA20 && bar.MA20 > bar.MA60:
			score += 30
		case bar.MA5 > bar.MA20:
			score += 20
		case bar.Close > bar.MA5:
			score += 10
		}
	}

	// 量价配合评分 (0-20分)
	if bar.Volume > 0 && bar.VMA5 > 0 {
		volumeRatio := bar.Volume / bar.VMA5
		if bar.ChangePct > 0 && volumeRatio > 1.2 {
			score += 20
		} else if bar.ChangePct > 0 && volumeRatio > 1.0 {
			score += 10
		}
	}

	// 趋势强度评分 (0-15分)
	if bar.MA5 > 0 && bar.MA20 > 0 {
		trendStrength := math.Abs((bar.MA5 - bar.MA20) / bar.MA20 * 100)
		score += math.Min(trendStrength, 15)
	}

	// 超买超卖调整：接近涨停扣分，接近跌停视作超卖反弹信号
	if bar.ChangePct > 9 {
		score -= 10
	} else if bar.ChangePct < -9 {
		score += 5
	}

	return clamp(score, 0, 100)
}

// calculateFundamentalScore 基本面评分（基于所属板块）
func (m *Model) calculateFundamentalScore(block *BlockData) float64 {
	if block == nil {
		return 50.0
	}

	score := 50.0

	// 板块资金流入评分 (0-25分)
	if block.InflowRatio > 0 {
		score += math.Min(block.InflowRatio*5, 25)
	}

	// 板块排名评分 (0-20分)
	if block.Ranking > 0 {
		score += math.Max(0, 20-float64(block.Ranking)/5)
	}

	// 板块持续性评分 (0-15分)
	if block.ContinuityDays > 0 {
		score += math.Min(float64(block.ContinuityDays)*3, 15)
	}

	// 板块类型调整：概念板块波动大，行业板块相对稳定
	switch block.BlockType {
	case "concept":
		score += 5
	case "industry":
		score += 10
	}

	return clamp(score, 0, 100)
}

// calculateRiskScore 风险面评分，越高表示风险越低
// 从 100 分开始按波动率、换手率、流动性、历史波动率逐项扣分；
// 缺失数据返回 100（没有风险证据时不惩罚）
func (m *Model) calculateRiskScore(bar *DailyBar, volatility20 *float64) float64 {
	if bar == nil {
		return 100.0
	}

	score := 100.0

	// 振幅扣分 (0-30分)
	switch {
	case bar.Amplitude > 10:
		score -= 30
	case bar.Amplitude > 7:
		score -= 20
	case bar.Amplitude > 5:
		score -= 10
	}

	// 换手率扣分 (0-25分)
	switch {
	case bar.TurnoverRate > 20:
		score -= 25
	case bar.TurnoverRate > 10:
		score -= 15
	case bar.TurnoverRate > 5:
		score -= 5
	}

	// 流动性扣分 (0-20分)
	if bar.TotalAmount > 0 {
		if bar.TotalAmount < 10_000_000 {
			score -= 20
		} else if bar.TotalAmount < 50_000_000 {
			score -= 10
		}
	}

	// 历史波动率扣分 (0-15分)
	if volatility20 != nil {
		if *volatility20 > 3 {
			score -= 15
		} else if *volatility20 > 2 {
			score -= 10
		}
	}

	return clamp(score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
