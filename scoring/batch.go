package scoring

import (
	"context"
	"sort"
	"sync"
	"time"

	"stockinsight/logger"
)

// InputLoader 按股票代码加载单日评分输入
type InputLoader func(stockCode string) (Input, error)

// Failure 批量评分中单只股票的失败明细
type Failure struct {
	StockCode string `json:"stock_code"`
	Reason    string `json:"reason"`
}

// BatchReport 批量评分结果
// Reports 按总分降序排列，Ranking 从 1 开始
type BatchReport struct {
	TradeDate string        `json:"trade_date"`
	Reports   []*Report     `json:"reports"`
	Failures  []Failure     `json:"failures"`
	Elapsed   time.Duration `json:"elapsed"`
}

// RankedReport 附带排名的评分报告
type RankedReport struct {
	*Report
	Ranking int `json:"ranking"`
}

// ScoreBatch 对一批股票并发评分
// workers 控制并发度（<=0 时取 4）；单只股票加载失败只记入 Failures，
// 不中断整批；ctx 取消后不再派发新任务
func (m *Model) ScoreBatch(ctx context.Context, tradeDate string, stockCodes []string, load InputLoader, workers int) *BatchReport {
	if workers <= 0 {
		workers = 4
	}
	start := time.Now()
	logger.Info("📊 开始批量评分: %s, 共 %d 只股票, 并发 %d", tradeDate, len(stockCodes), workers)

	type outcome struct {
		report  *Report
		failure *Failure
	}

	jobs := make(chan string)
	outcomes := make(chan outcome, len(stockCodes))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range jobs {
				input, err := load(code)
				if err != nil {
					outcomes <- outcome{failure: &Failure{StockCode: code, Reason: err.Error()}}
					continue
				}
				input.StockCode = code
				input.TradeDate = tradeDate
				outcomes <- outcome{report: m.Score(input)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, code := range stockCodes {
			select {
			case jobs <- code:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	report := &BatchReport{TradeDate: tradeDate}
	for o := range outcomes {
		if o.failure != nil {
			logger.Warn("⚠️ 股票 %s 评分失败: %s", o.failure.StockCode, o.failure.Reason)
			report.Failures = append(report.Failures, *o.failure)
			continue
		}
		report.Reports = append(report.Reports, o.report)
	}

	// 总分降序；稳定排序保证同分股票的顺序可复现
	sort.SliceStable(report.Reports, func(i, j int) bool {
		return report.Reports[i].Scores.Total > report.Reports[j].Scores.Total
	})

	report.Elapsed = time.Since(start)
	logger.Info("✅ 批量评分完成: 成功 %d, 失败 %d, 耗时 %v",
		len(report.Reports), len(report.Failures), report.Elapsed)
	return report
}

// Rank 给按总分降序的报告附加 1 起始的排名
func (b *BatchReport) Rank() []RankedReport {
	ranked := make([]RankedReport, len(b.Reports))
	for i, r := range b.Reports {
		ranked[i] = RankedReport{Report: r, Ranking: i + 1}
	}
	return ranked
}
