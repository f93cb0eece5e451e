package scoring

// Analysis 文字分析摘要
type Analysis struct {
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	Recommendation    string   `json:"recommendation"`
	KeyConsiderations []string `json:"key_considerations"`
}

// generateAnalysis 按固定分数带生成优劣势与操作建议
// 纯阈值映射，同样的子分永远产生同样的文字
func generateAnalysis(capitalScore, technicalScore, fundamentalScore, riskScore float64) Analysis {
	strengths := []string{}
	weaknesses := []string{}

	if capitalScore >= 70 {
		strengths = append(strengths, "资金面强劲，主力资金持续流入")
	} else if capitalScore >= 60 {
		strengths = append(strengths, "资金面良好，有资金关注")
	}

	if technicalScore >= 70 {
		strengths = append(strengths, "技术形态良好，趋势向上")
	} else if technicalScore >= 60 {
		strengths = append(strengths, "技术面稳健，处于上升通道")
	}

	if fundamentalScore >= 70 {
		strengths = append(strengths, "板块效应明显，属于热点板块")
	}

	if riskScore >= 80 {
		strengths = append(strengths, "风险控制良好，波动性较低")
	}

	if capitalScore <= 40 {
		weaknesses = append(weaknesses, "资金面疲弱，主力资金流出")
	}
	if technicalScore <= 40 {
		weaknesses = append(weaknesses, "技术形态走弱，存在下行风险")
	}
	if riskScore <= 40 {
		weaknesses = append(weaknesses, "风险较高，波动性较大")
	}

	return Analysis{
		Strengths:         strengths,
		Weaknesses:        weaknesses,
		Recommendation:    generateRecommendation(capitalScore, technicalScore, riskScore),
		KeyConsiderations: keyConsiderations(capitalScore, technicalScore, fundamentalScore, riskScore),
	}
}

// generateRecommendation 资金面、技术面、风险面三者共同决定操作建议
func generateRecommendation(capitalScore, technicalScore, riskScore float64) string {
	switch {
	case capitalScore >= 70 && technicalScore >= 70 && riskScore >= 60:
		return "资金与技术共振，可积极参与，注意设置止损"
	case capitalScore >= 60 && technicalScore >= 60:
		return "整体偏多，可逢低分批布局"
	case riskScore <= 40:
		return "波动风险较高，建议控制仓位或观望"
	case capitalScore <= 40 && technicalScore <= 40:
		return "资金撤离且形态走弱，建议回避"
	default:
		return "信号不明确，建议继续观察"
	}
}

func keyConsiderations(capitalScore, technicalScore, fundamentalScore, riskScore float64) []string {
	considerations := []string{}
	if capitalScore >= 70 && riskScore <= 50 {
		considerations = append(considerations, "资金流入伴随高波动，警惕短线资金快进快出")
	}
	if fundamentalScore >= 70 && capitalScore <= 50 {
		considerations = append(considerations, "板块热度高但个股资金未跟进，可能是板块补涨标的")
	}
	if technicalScore >= 70 && capitalScore <= 40 {
		considerations = append(considerations, "技术形态与资金流向背离，上涨缺乏资金支撑")
	}
	if riskScore <= 40 {
		considerations = append(considerations, "近期波动率显著放大，适合降低单笔仓位")
	}
	return considerations
}
