// Package utils 通用工具
package utils

import "time"

// DateLayout 交易日期的统一格式
const DateLayout = "2006-01-02"

// ShiftDate 交易日期平移 days 天（负数向前）
// 解析失败时原样返回，调用方的窗口过滤自然退化为不过滤
func ShiftDate(date string, days int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, days).Format(DateLayout)
}

// Today 当前日期（配置时区）
func Today() string {
	return NowConfiguredTimezone().Format(DateLayout)
}

// Yesterday 昨日日期，定时刷新默认处理 T+1 数据
func Yesterday() string {
	return NowConfiguredTimezone().AddDate(0, 0, -1).Format(DateLayout)
}

// NextRunAt 计算下一次到达 HH:MM 的等待时长
// at 解析失败时返回 24h，避免调度循环空转
func NextRunAt(now time.Time, at string) time.Duration {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return 24 * time.Hour
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
