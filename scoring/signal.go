package scoring

import "math"

// Signal 买卖信号
type Signal struct {
	Type        string  `json:"type"`
	Strength    int     `json:"strength"` // 0-3
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// 信号档位按分数带从低到高排列，左闭右开，最高档右端闭合
type signalBand struct {
	name string
	low  float64
	high float64
}

var signalBands = []signalBand{
	{"strong_sell", 0, 30},
	{"sell", 30, 40},
	{"reduce", 40, 50},
	{"hold", 50, 60},
	{"watch", 60, 70},
	{"buy", 70, 80},
	{"strong_buy", 80, 100},
}

// generateSignal 由总分映射信号档位并计算信号强度
// 资金面与技术面分差超过 0.3（归一化）视为不协调，强度降一档
func generateSignal(totalScore, capitalScore, technicalScore float64) Signal {
	signalType := "hold"
	for _, band := range signalBands {
		if totalScore >= band.low && totalScore < band.high {
			signalType = band.name
			break
		}
	}
	if totalScore >= 100 {
		signalType = "strong_buy"
	}

	strength := 0
	switch signalType {
	case "strong_buy", "strong_sell":
		strength = 3
	case "buy", "sell":
		strength = 2
	case "watch", "reduce":
		strength = 1
	}

	// 资金与技术面的协调性
	if math.Abs(capitalScore-technicalScore)/100 > 0.3 && strength > 0 {
		strength--
	}

	return Signal{
		Type:        signalType,
		Strength:    strength,
		Confidence:  math.Min(100, totalScore),
		Description: signalDescription(signalType, strength),
	}
}

func signalDescription(signalType string, strength int) string {
	descriptions := map[string]string{
		"strong_buy":  "强烈买入信号，多项指标共振向好",
		"buy":         "买入信号，综合表现良好",
		"watch":       "关注信号，可列入观察名单",
		"hold":        "持有信号，暂无明确方向",
		"reduce":      "减仓信号，综合表现偏弱",
		"sell":        "卖出信号，多项指标走弱",
		"strong_sell": "强烈卖出信号，风险集中释放",
	}
	description := descriptions[signalType]
	if strength == 0 && (signalType != "hold") {
		description += "（资金面与技术面分歧，信号置信度较低）"
	}
	return description
}
