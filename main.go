package main

import (
	"assessment_engine_backend/internal/app"
	"assessment_engine_backend/internal/config"
	"assessment_engine_backend/pkg/configwatcher"
	"assessment_engine_backend/pkg/logger"
	"context"
	"flag"
	"log"
	"path/filepath"

	"go.uber.org/zap"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		logger.Log.Info("Database migration finished, exiting")
		return
	}

	// 配置热更新：限流与后台任务参数
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		path := filepath.Join(*configDir, "config.yaml")
		if err := configwatcher.WatchConfig(ctx, path, application.ApplyConfig); err != nil {
			logger.Log.Warn("Config watcher disabled", zap.Error(err))
		}
	}()

	application.Run()
}
