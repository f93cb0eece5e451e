package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"stockinsight/cache"
	"stockinsight/config"
	"stockinsight/database"
	"stockinsight/scoring"
)

func newTestServer(t *testing.T) (*Server, database.Database) {
	t.Helper()

	cfg, err := config.LoadConfigFromBytes([]byte(`
web:
  enabled: true
  mode: release
`))
	if err != nil {
		t.Fatalf("加载测试配置失败: %v", err)
	}

	db, err := database.NewDatabase(&database.Config{
		Type: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("创建测试数据库失败: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reportCache := cache.NewReportCache(context.Background(), cache.Config{})
	model := scoring.NewModel(cfg.Scoring)

	s := NewServer(cfg, db, reportCache, model)
	if s == nil {
		t.Fatal("启用 Web 时 NewServer 不应返回 nil")
	}
	return s, db
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("健康检查状态码错误: got %d, want 200", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("健康状态错误: got %q, want ok", body["status"])
	}
}

func TestStockScoreEndpoint(t *testing.T) {
	s, db := newTestServer(t)
	ctx := context.Background()
	tradeDate := "2025-08-29"

	if err := db.SaveFlowRow(ctx, &database.FlowRow{
		TradeDate: tradeDate, StockCode: "600001",
		NetInflow: 2e7, TotalAmount: 1e8, InflowRatio: 20,
		LargeNetInflow: 1e7, LargeInflowRatio: 10,
	}); err != nil {
		t.Fatalf("保存资金流失败: %v", err)
	}

	w := doRequest(t, s, "/api/v1/stocks/600001/score?date="+tradeDate)
	if w.Code != http.StatusOK {
		t.Fatalf("评分接口状态码错误: got %d, body=%s", w.Code, w.Body.String())
	}

	var report scoring.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("解析评分报告失败: %v", err)
	}
	if report.StockCode != "600001" {
		t.Errorf("股票代码错误: got %q", report.StockCode)
	}
	if report.Scores.Total <= 0 {
		t.Errorf("总分应为正: got %v", report.Scores.Total)
	}
	if report.Signal.Type == "" {
		t.Error("信号类型为空")
	}
}

func TestRankingEndpoint_Empty(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, "/api/v1/ranking?date=2025-08-29")
	if w.Code != http.StatusOK {
		t.Fatalf("榜单接口状态码错误: got %d", w.Code)
	}

	var body struct {
		TradeDate string                 `json:"trade_date"`
		Ranking   []*database.ScoringRow `json:"ranking"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(body.Ranking) != 0 {
		t.Errorf("空库榜单应为空: got %d 条", len(body.Ranking))
	}
}

func TestStockFlowEndpoint_NoData(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, "/api/v1/stocks/600001/flow?start=2025-08-01&end=2025-08-29")
	if w.Code != http.StatusOK {
		t.Fatalf("资金流接口状态码错误: got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if _, ok := body["message"]; !ok {
		t.Error("无数据时应返回提示信息")
	}
}

func TestAlertsEndpoint_NoFlow(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, "/api/v1/stocks/600001/alerts?date=2025-08-29")
	if w.Code != http.StatusOK {
		t.Fatalf("预警接口状态码错误: got %d", w.Code)
	}

	var body struct {
		Alerts []json.RawMessage `json:"alerts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(body.Alerts) != 0 {
		t.Errorf("无资金流时不应有预警: got %d 条", len(body.Alerts))
	}
}

func TestNewServer_Disabled(t *testing.T) {
	cfg, err := config.LoadConfigFromBytes([]byte("{}"))
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}
	cfg.Web.Enabled = false

	if s := NewServer(cfg, nil, nil, nil); s != nil {
		t.Error("Web 未启用时 NewServer 应返回 nil")
	}
}

func TestIntQuery(t *testing.T) {
	s, _ := newTestServer(t)

	// days=abc 非法，应退化为配置默认值
	w := doRequest(t, s, "/api/v1/blocks/flow?date=2025-08-29&days=abc")
	if w.Code != http.StatusOK {
		t.Fatalf("板块接口状态码错误: got %d", w.Code)
	}

	var body struct {
		LookbackDays int `json:"lookback_days"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if body.LookbackDays != 7 {
		t.Errorf("非法参数应取默认回看天数: got %d, want 7", body.LookbackDays)
	}
}
