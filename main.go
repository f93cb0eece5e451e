package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockinsight/cache"
	"stockinsight/config"
	"stockinsight/database"
	"stockinsight/logger"
	"stockinsight/metrics"
	"stockinsight/scheduler"
	"stockinsight/scoring"
	"stockinsight/utils"
	"stockinsight/web"
)

// Version 版本号
var Version = "1.2.0"

func main() {
	// 检查版本参数
	if len(os.Args) > 1 && (os.Args[1] == "-version" || os.Args[1] == "--version") {
		fmt.Printf("StockInsight Daily Analyzer\n")
		fmt.Printf("Version: %s\n", Version)
		os.Exit(0)
	}

	// 解析调试参数（-debug / --debug）
	debugMode := false
	filteredArgs := []string{os.Args[0]}
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-debug", "--debug":
			debugMode = true
		default:
			filteredArgs = append(filteredArgs, arg)
		}
	}
	if debugMode {
		log.Printf("[INFO] Debug 模式已启用：输出全量请求日志")
	}
	os.Args = filteredArgs

	// 1. 加载配置；文件不存在时写出默认配置再加载
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg, _ := config.LoadConfigFromBytes([]byte("{}"))
		if err := config.SaveConfig(cfg, configPath); err != nil {
			log.Fatalf("[ERROR] 创建默认配置文件失败: %v", err)
		}
		log.Printf("[INFO] 已创建默认配置文件: %s，请按需修改后重启", configPath)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("[ERROR] 加载配置失败: %v", err)
	}

	// 2. 时区与日志
	if err := utils.SetLocation(cfg.System.Timezone); err != nil {
		log.Printf("[WARN] 加载时区 %s 失败: %v，使用默认时区", cfg.System.Timezone, err)
	}
	logger.SetLocation(utils.GlobalLocation)

	if debugMode {
		logger.SetLevel(logger.DEBUG)
	} else {
		logger.SetLevel(logger.ParseLogLevel(cfg.System.LogLevel))
	}

	logger.Info("🚀 %s v%s 启动中...", cfg.App.Name, Version)

	// 3. 数据库
	db, err := database.NewDatabase(&database.Config{
		Type:            cfg.Database.Type,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal("❌ 初始化数据库失败: %v", err)
	}
	logger.Info("✅ 数据库已连接: %s", cfg.Database.Type)

	// 应用日志异步落库
	logCtx, cancelLogWriter := context.WithCancel(context.Background())
	logger.InitLogStorage(func(level, message string) {
		ctx, cancel := context.WithTimeout(logCtx, 3*time.Second)
		defer cancel()
		if err := db.SaveLogEntry(ctx, &database.LogEntry{Level: level, Message: message}); err != nil {
			log.Printf("[WARN] 写入日志表失败: %v", err)
		}
	})

	if cfg.Web.Enabled {
		if err := logger.InitWebLogger(); err != nil {
			logger.Warn("⚠️ 初始化 Web 日志失败: %v", err)
		}
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// 4. 报告缓存（可降级）
	reportCache := cache.NewReportCache(rootCtx, cache.Config{
		Enabled:  cfg.Cache.Enabled,
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		TTL:      time.Duration(cfg.Cache.TTL) * time.Second,
		PoolSize: cfg.Cache.PoolSize,
	})

	// 5. 评分模型
	model := scoring.NewModel(cfg.Scoring)

	// 6. 系统指标采集
	var collector *metrics.SystemCollector
	if cfg.Metrics.Enabled {
		interval := time.Duration(cfg.Metrics.CollectInterval) * time.Second
		if interval <= 0 {
			interval = 30 * time.Second
		}
		collector = metrics.NewSystemCollector(interval)
		collector.Start(rootCtx)
		logger.Info("✅ 系统指标采集已启动，间隔 %v", interval)
	}

	// 7. Web 服务
	server := web.NewServer(cfg, db, reportCache, model)
	if err := server.Start(rootCtx); err != nil {
		logger.Fatal("❌ 启动 Web 服务失败: %v", err)
	}

	// 8. 定时任务
	sched := scheduler.New(cfg, db, reportCache, model)
	sched.Start(rootCtx)

	// 9. 配置热更新：只接管日志级别等运行时可变项，其余改动需重启生效
	watcher, err := config.NewWatcher(configPath, func(updated *config.Config) {
		logger.SetLevel(logger.ParseLogLevel(updated.System.LogLevel))
		cfg.Analysis = updated.Analysis
		cfg.Alert = updated.Alert
		logger.Info("✅ 配置热更新完成（日志级别/分析参数/预警阈值）")
	})
	if err != nil {
		logger.Warn("⚠️ 初始化配置监听失败: %v", err)
	} else if err := watcher.Start(rootCtx); err != nil {
		logger.Warn("⚠️ 启动配置监听失败: %v", err)
	}

	logger.Info("✅ 启动完成")

	// 等待退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("收到信号 %v，开始优雅关闭...", sig)

	cancelRoot()
	sched.Stop()
	server.Stop()
	if watcher != nil {
		watcher.Stop()
	}
	if collector != nil {
		collector.Stop()
	}
	reportCache.Close()

	cancelLogWriter()
	logger.Close()
	if err := db.Close(); err != nil {
		log.Printf("[WARN] 关闭数据库失败: %v", err)
	}

	log.Printf("[INFO] 已退出")
}
