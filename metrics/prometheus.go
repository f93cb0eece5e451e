// Package metrics Prometheus 指标
// 暴露批量评分、信号分布与进程资源占用，经 web 包的 /metrics 端点抓取。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 评分指标
	stocksScoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockinsight_stocks_scored_total",
			Help: "Total number of stocks scored successfully",
		},
	)

	stocksFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockinsight_stocks_failed_total",
			Help: "Total number of stocks that failed scoring",
		},
	)

	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockinsight_batch_duration_seconds",
			Help:    "Daily batch scoring duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	signalTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockinsight_signal_total",
			Help: "Number of signals produced by type",
		},
		[]string{"type"},
	)

	// 持股成本分析指标
	costAnalysisTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockinsight_cost_analysis_total",
			Help: "Number of holding-cost analyses by result",
		},
		[]string{"result"}, // ok / empty / error
	)

	// 预警指标
	alertsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockinsight_alerts_fired_total",
			Help: "Number of alerts fired by type",
		},
		[]string{"type", "level"},
	)

	// 缓存指标
	cacheHitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockinsight_cache_total",
			Help: "Report cache lookups by outcome",
		},
		[]string{"outcome"}, // hit / miss
	)

	// 进程资源指标
	processCPUPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockinsight_process_cpu_percent",
			Help: "Process CPU usage percent",
		},
	)

	processMemoryMB = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockinsight_process_memory_mb",
			Help: "Process resident memory in MB",
		},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockinsight_goroutines",
			Help: "Number of goroutines",
		},
	)
)

// RecordStockScored 记录一次成功评分并累计信号分布
func RecordStockScored(signalType string) {
	stocksScoredTotal.Inc()
	signalTotal.WithLabelValues(signalType).Inc()
}

// RecordStockFailed 记录一次评分失败
func RecordStockFailed() {
	stocksFailedTotal.Inc()
}

// ObserveBatchDuration 记录批量评分耗时（秒）
func ObserveBatchDuration(seconds float64) {
	batchDuration.Observe(seconds)
}

// RecordCostAnalysis 记录一次持股成本分析结果
func RecordCostAnalysis(result string) {
	costAnalysisTotal.WithLabelValues(result).Inc()
}

// RecordAlert 记录一次预警触发
func RecordAlert(alertType, level string) {
	alertsFiredTotal.WithLabelValues(alertType, level).Inc()
}

// RecordCacheHit 记录缓存命中
func RecordCacheHit() {
	cacheHitTotal.WithLabelValues("hit").Inc()
}

// RecordCacheMiss 记录缓存未命中
func RecordCacheMiss() {
	cacheHitTotal.WithLabelValues("miss").Inc()
}
