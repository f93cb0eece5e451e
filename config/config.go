package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"stockinsight/alert"
	"stockinsight/scoring"
)

// Config 股票分析系统配置
type Config struct {
	// 应用配置
	App struct {
		Name string `yaml:"name"`
	} `yaml:"app"`

	System struct {
		LogLevel string `yaml:"log_level"`
		Timezone string `yaml:"timezone"` // 时区，如 "Asia/Shanghai"
	} `yaml:"system"`

	// 数据库配置
	Database struct {
		Type            string `yaml:"type"` // sqlite / mysql / postgres
		DSN             string `yaml:"dsn"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 秒
		LogLevel        string `yaml:"log_level"`         // silent / error / warn / info
	} `yaml:"database"`

	// Web 服务配置
	Web struct {
		Enabled   bool    `yaml:"enabled"`
		Host      string  `yaml:"host"`
		Port      int     `yaml:"port"`
		Mode      string  `yaml:"mode"`       // debug / release
		RateLimit float64 `yaml:"rate_limit"` // 每秒请求数，0 表示不限流
		RateBurst int     `yaml:"rate_burst"`
	} `yaml:"web"`

	// Redis 报告缓存配置
	Cache struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      int    `yaml:"ttl"` // 秒
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"cache"`

	// 分析参数
	Analysis struct {
		BlockFlowDays    int `yaml:"block_flow_days"`    // 板块资金流回看天数
		TopBlocks        int `yaml:"top_blocks"`         // 热点板块数量
		TopStocks        int `yaml:"top_stocks"`         // 榜单股票数量
		CostLookbackDays int `yaml:"cost_lookback_days"` // 持股成本回看天数
		ScoreWorkers     int `yaml:"score_workers"`      // 批量评分并发度
	} `yaml:"analysis"`

	// 评分权重
	Scoring scoring.Weights `yaml:"scoring"`

	// 预警阈值
	Alert alert.Thresholds `yaml:"alert"`

	// 指标采集配置
	Metrics struct {
		Enabled         bool `yaml:"enabled"`
		CollectInterval int  `yaml:"collect_interval"` // 系统指标采集间隔（秒）
	} `yaml:"metrics"`

	// 定时任务配置
	Scheduler struct {
		Enabled         bool   `yaml:"enabled"`
		DailyScoreTime  string `yaml:"daily_score_time"`  // 每日评分时间，如 "18:00"
		HoldingCostTime string `yaml:"holding_cost_time"` // 持股成本分析时间，如 "09:00"
	} `yaml:"scheduler"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}
	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes 从字节数组加载配置（用于测试）
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %v", err)
	}

	return &cfg, nil
}

// applyDefaults 填充缺省值
func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "stockinsight"
	}
	if c.System.LogLevel == "" {
		c.System.LogLevel = "INFO"
	}
	if c.System.Timezone == "" {
		c.System.Timezone = "Asia/Shanghai"
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Type == "sqlite" {
		c.Database.DSN = "./data/stockinsight.db"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 3600
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}

	if c.Web.Host == "" {
		c.Web.Host = "0.0.0.0"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 28080
	}
	if c.Web.Mode == "" {
		c.Web.Mode = "release"
	}
	if c.Web.RateBurst == 0 {
		c.Web.RateBurst = 20
	}

	if c.Cache.Addr == "" {
		c.Cache.Addr = "localhost:6379"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 3600
	}
	if c.Cache.PoolSize == 0 {
		c.Cache.PoolSize = 10
	}

	if c.Analysis.BlockFlowDays == 0 {
		c.Analysis.BlockFlowDays = 7
	}
	if c.Analysis.TopBlocks == 0 {
		c.Analysis.TopBlocks = 20
	}
	if c.Analysis.TopStocks == 0 {
		c.Analysis.TopStocks = 10
	}
	if c.Analysis.CostLookbackDays == 0 {
		c.Analysis.CostLookbackDays = 60
	}
	if c.Analysis.ScoreWorkers == 0 {
		c.Analysis.ScoreWorkers = 4
	}

	if c.Scoring == (scoring.Weights{}) {
		c.Scoring = scoring.DefaultWeights()
	}
	if c.Alert == (alert.Thresholds{}) {
		c.Alert = alert.DefaultThresholds()
	}

	if c.Metrics.CollectInterval == 0 {
		c.Metrics.CollectInterval = 60
	}

	if c.Scheduler.DailyScoreTime == "" {
		c.Scheduler.DailyScoreTime = "18:00"
	}
	if c.Scheduler.HoldingCostTime == "" {
		c.Scheduler.HoldingCostTime = "09:00"
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("不支持的数据库类型: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("数据库 DSN 不能为空")
	}

	if c.Web.Enabled {
		if c.Web.Port <= 0 || c.Web.Port > 65535 {
			return fmt.Errorf("无效的 Web 端口: %d", c.Web.Port)
		}
		if c.Web.Mode != "debug" && c.Web.Mode != "release" {
			return fmt.Errorf("无效的 Web 模式: %s", c.Web.Mode)
		}
		if c.Web.RateLimit < 0 {
			return fmt.Errorf("限流速率不能为负: %f", c.Web.RateLimit)
		}
	}

	if c.Analysis.BlockFlowDays < 1 {
		return fmt.Errorf("板块资金流回看天数必须大于 0: %d", c.Analysis.BlockFlowDays)
	}
	if c.Analysis.ScoreWorkers < 1 {
		return fmt.Errorf("评分并发度必须大于 0: %d", c.Analysis.ScoreWorkers)
	}

	weightSum := c.Scoring.Capital + c.Scoring.Technical + c.Scoring.Fundamental + c.Scoring.Risk
	if weightSum < 0.99 || weightSum > 1.01 {
		return fmt.Errorf("评分权重之和应为 1.0, 当前为 %.2f", weightSum)
	}

	if c.Alert.LargeOutflow > 0 {
		return fmt.Errorf("净流出预警线应为负数: %f", c.Alert.LargeOutflow)
	}

	return nil
}

// SaveConfig 保存配置到文件
func SaveConfig(cfg *Config, configPath string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %v", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %v", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %v", err)
	}

	return nil
}
