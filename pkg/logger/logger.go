package logger

import (
	"assessment_engine_backend/internal/config"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 在 InitLogger 之前为空实现，测试中无需初始化
var Log = zap.NewNop()

// level 由 InitLogger 创建的所有 core 共享，SetLevel 运行时调整
var level = zap.NewAtomicLevel()

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.MessageKey = "msg"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	ec.EncodeDuration = zapcore.SecondsDurationEncoder
	return ec
}

// parseLevel 空字符串按运行模式取默认级别
func parseLevel(name, mode string) (zapcore.Level, error) {
	if strings.TrimSpace(name) == "" {
		if mode == "debug" {
			return zap.DebugLevel, nil
		}
		return zap.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return l, nil
}

// New 文件输出 JSON 并按大小轮转，Console 为 true 时同时输出到标准输出
func New(cfg config.LogConfig, lvl zap.AtomicLevel) *zap.Logger {
	var cores []zapcore.Core
	if cfg.File != "" {
		rotate := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(rotate), lvl))
	}
	if cfg.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stdout), lvl))
	}
	if len(cores) == 0 {
		return zap.NewNop()
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)).
		With(zap.String("service", "assessment-engine"))
}

func InitLogger(cfg *config.Config) {
	l, err := parseLevel(cfg.Log.Level, cfg.Server.Mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		l = zap.InfoLevel
	}
	level.SetLevel(l)
	Log = New(cfg.Log, level)
}

// SetLevel 配置热更新时调用，非法级别保持原值
func SetLevel(name, mode string) error {
	l, err := parseLevel(name, mode)
	if err != nil {
		return err
	}
	level.SetLevel(l)
	return nil
}
