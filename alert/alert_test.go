package alert

import (
	"strings"
	"testing"

	"stockinsight/capital"
)

func TestEvaluate_CapitalOutflow(t *testing.T) {
	thresholds := DefaultThresholds()

	// 净流出 2000 万触发预警
	current := capital.FlowRecord{NetInflow: -20_000_000}
	alerts := Evaluate(current, nil, thresholds)
	if len(alerts) != 1 || alerts[0].Type != "capital_outflow" {
		t.Fatalf("期望 capital_outflow, 得到 %+v", alerts)
	}
	if alerts[0].Level != LevelWarning {
		t.Errorf("级别应为 warning, 得到 %s", alerts[0].Level)
	}
	if !strings.Contains(alerts[0].Message, "2000万") {
		t.Errorf("消息应包含流出金额, 得到 %s", alerts[0].Message)
	}

	// 恰好在阈值上不触发（严格小于）
	boundary := capital.FlowRecord{NetInflow: -10_000_000}
	if alerts := Evaluate(boundary, nil, thresholds); len(alerts) != 0 {
		t.Errorf("阈值边界不应触发, 得到 %+v", alerts)
	}
}

func TestEvaluate_Divergence(t *testing.T) {
	// 整体净流入但大单净流出
	current := capital.FlowRecord{NetInflow: 5_000_000, LargeNetInflow: -1_000_000}
	alerts := Evaluate(current, nil, DefaultThresholds())
	if len(alerts) != 1 || alerts[0].Type != "capital_divergence" {
		t.Fatalf("期望 capital_divergence, 得到 %+v", alerts)
	}
}

func TestEvaluate_Acceleration(t *testing.T) {
	thresholds := DefaultThresholds()
	prev := capital.FlowRecord{NetInflow: 1_000_000}

	// 当日超过前日两倍
	current := capital.FlowRecord{NetInflow: 2_500_000}
	alerts := Evaluate(current, &prev, thresholds)
	if len(alerts) != 1 || alerts[0].Type != "capital_acceleration" {
		t.Fatalf("期望 capital_acceleration, 得到 %+v", alerts)
	}
	if alerts[0].Level != LevelInfo {
		t.Errorf("级别应为 info, 得到 %s", alerts[0].Level)
	}

	// 恰好两倍不触发（严格大于）
	twice := capital.FlowRecord{NetInflow: 2_000_000}
	if alerts := Evaluate(twice, &prev, thresholds); len(alerts) != 0 {
		t.Errorf("恰好两倍不应触发, 得到 %+v", alerts)
	}

	// 无前日记录或前日为 0 时跳过规则
	if alerts := Evaluate(current, nil, thresholds); len(alerts) != 0 {
		t.Errorf("无前日记录不应触发, 得到 %+v", alerts)
	}
	zero := capital.FlowRecord{NetInflow: 0}
	if alerts := Evaluate(current, &zero, thresholds); len(alerts) != 0 {
		t.Errorf("前日为 0 不应触发, 得到 %+v", alerts)
	}
}

func TestEvaluate_MultipleRules(t *testing.T) {
	// 大单流出 + 净流入加速可以同时命中
	prev := capital.FlowRecord{NetInflow: 1_000_000}
	current := capital.FlowRecord{NetInflow: 5_000_000, LargeNetInflow: -2_000_000}
	alerts := Evaluate(current, &prev, DefaultThresholds())
	if len(alerts) != 2 {
		t.Fatalf("期望 2 条预警, 得到 %d", len(alerts))
	}
	// 按求值顺序返回
	if alerts[0].Type != "capital_divergence" || alerts[1].Type != "capital_acceleration" {
		t.Errorf("预警顺序错误: %s, %s", alerts[0].Type, alerts[1].Type)
	}
}

func TestEvaluateRisk(t *testing.T) {
	thresholds := DefaultThresholds()

	// 三条风险规则全部命中
	alerts := EvaluateRisk(12, 25, 5_000_000, thresholds)
	if len(alerts) != 3 {
		t.Fatalf("期望 3 条风险预警, 得到 %d", len(alerts))
	}
	types := map[string]bool{}
	for _, a := range alerts {
		types[a.Type] = true
	}
	for _, expected := range []string{"high_amplitude", "high_turnover", "low_liquidity"} {
		if !types[expected] {
			t.Errorf("缺少预警类型 %s", expected)
		}
	}

	// 平静行情无预警
	if alerts := EvaluateRisk(3, 2, 1e8, thresholds); len(alerts) != 0 {
		t.Errorf("平静行情不应触发, 得到 %+v", alerts)
	}

	// 成交额为 0（停牌）不触发流动性预警
	if alerts := EvaluateRisk(0, 0, 0, thresholds); len(alerts) != 0 {
		t.Errorf("停牌日不应触发, 得到 %+v", alerts)
	}
}
