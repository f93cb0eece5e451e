package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"stockinsight/logger"
)

// SystemMetrics 系统监控指标
type SystemMetrics struct {
	Timestamp     time.Time `json:"timestamp"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryMB      float64   `json:"memory_mb"`
	MemoryPercent float64   `json:"memory_percent"` // 系统内存占用百分比
	Goroutines    int       `json:"goroutines"`
	ProcessID     int       `json:"process_id"`
}

// CollectSystemMetrics 采集系统资源指标
func CollectSystemMetrics() (*SystemMetrics, error) {
	pid := os.Getpid()
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("获取进程失败: %w", err)
	}

	// 采集CPU占用率
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		// 如果获取失败，尝试使用系统CPU使用率
		cpuPercent, err = getSystemCPUPercent()
		if err != nil {
			return nil, fmt.Errorf("获取CPU占用率失败: %w", err)
		}
	}

	// 采集内存占用（RSS - Resident Set Size，实际物理内存）
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return nil, fmt.Errorf("获取内存信息失败: %w", err)
	}

	memoryMB := float64(memInfo.RSS) / 1024 / 1024

	// 获取系统总内存，计算内存占用百分比
	memStat, err := mem.VirtualMemory()
	if err != nil {
		memStat = nil
	}

	var memoryPercent float64
	if memStat != nil && memStat.Total > 0 {
		memoryPercent = (float64(memInfo.RSS) / float64(memStat.Total)) * 100
	}

	return &SystemMetrics{
		Timestamp:     time.Now(),
		CPUPercent:    cpuPercent,
		MemoryMB:      memoryMB,
		MemoryPercent: memoryPercent,
		Goroutines:    runtime.NumGoroutine(),
		ProcessID:     pid,
	}, nil
}

// getSystemCPUPercent 获取系统CPU使用率（备用方法）
func getSystemCPUPercent() (float64, error) {
	percentages, err := cpu.Percent(time.Second, false)
	if err != nil {
		return 0, err
	}

	if len(percentages) == 0 {
		return 0, fmt.Errorf("无法获取CPU使用率")
	}

	return percentages[0], nil
}

// SystemCollector 周期性采集进程资源并写入 Prometheus 指标
type SystemCollector struct {
	interval time.Duration
	cancel   context.CancelFunc
}

// NewSystemCollector 创建系统指标采集器
func NewSystemCollector(interval time.Duration) *SystemCollector {
	return &SystemCollector{interval: interval}
}

// Start 启动采集
func (sc *SystemCollector) Start(ctx context.Context) {
	ctx, sc.cancel = context.WithCancel(ctx)
	go sc.collectLoop(ctx)
}

// Stop 停止采集
func (sc *SystemCollector) Stop() {
	if sc.cancel != nil {
		sc.cancel()
	}
}

// collectLoop 采集循环
func (sc *SystemCollector) collectLoop(ctx context.Context) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	// 立即采集一次
	sc.collect()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sc.collect()
		}
	}
}

// collect 采集并更新 Prometheus 指标
func (sc *SystemCollector) collect() {
	m, err := CollectSystemMetrics()
	if err != nil {
		logger.Debug("系统指标采集失败: %v", err)
		return
	}

	processCPUPercent.Set(m.CPUPercent)
	processMemoryMB.Set(m.MemoryMB)
	goroutineCount.Set(float64(m.Goroutines))
}
