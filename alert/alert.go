// Package alert 资金异动预警
// 对单日资金流记录做无状态规则扫描，多条规则可同时命中，按求值顺序返回。
package alert

import (
	"fmt"
	"math"

	"stockinsight/capital"
)

// 预警级别
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// Thresholds 预警阈值配置
type Thresholds struct {
	LargeOutflow  float64 `yaml:"large_outflow" json:"large_outflow"`   // 净流出预警线（负数）
	HighAmplitude float64 `yaml:"high_amplitude" json:"high_amplitude"` // 振幅预警线（百分比）
	HighTurnover  float64 `yaml:"high_turnover" json:"high_turnover"`   // 换手率预警线（百分比）
	LowLiquidity  float64 `yaml:"low_liquidity" json:"low_liquidity"`   // 流动性预警线（成交额）
}

// DefaultThresholds 默认阈值：净流出 1000 万，振幅 10%，换手 20%，成交额 1000 万
func DefaultThresholds() Thresholds {
	return Thresholds{
		LargeOutflow:  -10_000_000,
		HighAmplitude: 10,
		HighTurnover:  20,
		LowLiquidity:  10_000_000,
	}
}

// Alert 单条预警
type Alert struct {
	Type       string `json:"type"`
	Level      string `json:"level"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// Evaluate 对当日资金流记录做规则扫描
// prev 为前一交易日记录，可为 nil（如新股首日）；规则之间互不屏蔽
func Evaluate(current capital.FlowRecord, prev *capital.FlowRecord, thresholds Thresholds) []Alert {
	alerts := []Alert{}

	// 资金大幅流出
	if current.NetInflow < thresholds.LargeOutflow {
		alerts = append(alerts, Alert{
			Type:       "capital_outflow",
			Level:      LevelWarning,
			Message:    fmt.Sprintf("资金大幅流出，净流出%.0f万元", math.Abs(current.NetInflow)/10000),
			Suggestion: "注意风险，考虑减仓",
		})
	}

	// 主力资金背离：整体净流入但大单净流出
	if current.NetInflow > 0 && current.LargeNetInflow < 0 {
		alerts = append(alerts, Alert{
			Type:       "capital_divergence",
			Level:      LevelWarning,
			Message:    "主力资金流出但散户资金流入，存在背离",
			Suggestion: "谨慎对待，观察后续",
		})
	}

	// 资金流入加速：当日净流入超过前一日两倍
	if prev != nil && prev.NetInflow != 0 && current.NetInflow > prev.NetInflow*2 {
		alerts = append(alerts, Alert{
			Type:       "capital_acceleration",
			Level:      LevelInfo,
			Message:    "资金流入加速，关注度提升",
			Suggestion: "可适当关注",
		})
	}

	return alerts
}

// EvaluateRisk 对当日行情做风险规则扫描
// 与资金规则独立，供调度器在收盘后一并触发
func EvaluateRisk(amplitude, turnoverRate, totalAmount float64, thresholds Thresholds) []Alert {
	alerts := []Alert{}

	if amplitude > thresholds.HighAmplitude {
		alerts = append(alerts, Alert{
			Type:       "high_amplitude",
			Level:      LevelWarning,
			Message:    fmt.Sprintf("当日振幅%.1f%%，波动剧烈", amplitude),
			Suggestion: "波动放大，控制仓位",
		})
	}

	if turnoverRate > thresholds.HighTurnover {
		alerts = append(alerts, Alert{
			Type:       "high_turnover",
			Level:      LevelWarning,
			Message:    fmt.Sprintf("换手率%.1f%%，筹码交换剧烈", turnoverRate),
			Suggestion: "短线资金活跃，注意追高风险",
		})
	}

	if totalAmount > 0 && totalAmount < thresholds.LowLiquidity {
		alerts = append(alerts, Alert{
			Type:       "low_liquidity",
			Level:      LevelInfo,
			Message:    fmt.Sprintf("成交额仅%.0f万元，流动性不足", totalAmount/10000),
			Suggestion: "进出困难，谨慎参与",
		})
	}

	return alerts
}
