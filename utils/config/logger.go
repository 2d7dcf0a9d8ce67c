package config

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kris-hansen/tagup/utils/fileutil"
)

var (
	loggerMu sync.RWMutex
	logger   = zap.NewNop()
)

// NewLogger builds the process logger. The console core logs warnings by
// default, info with Verbose and everything with Debug. When cfg.File is set a
// rotating JSON file core is teed in at debug level.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	switch {
	case Debug:
		level = zapcore.DebugLevel
	case Verbose:
		level = zapcore.InfoLevel
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	var consoleEncoder zapcore.Encoder
	if cfg.JSON {
		consoleEncoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(consoleConfig)
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), level),
	}

	logFile := cfg.File
	if env := os.Getenv("TAGUP_LOG_FILE"); env != "" {
		logFile = env
	}
	if logFile != "" {
		path, err := fileutil.ExpandPath(logFile)
		if err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 30),
			Compress:   true,
		}
		fileEncoder := zap.NewProductionEncoderConfig()
		fileEncoder.TimeKey = "timestamp"
		fileEncoder.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoder),
			zapcore.AddSync(rotator),
			zapcore.DebugLevel,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// SetLogger installs l as the logger used by DebugLog and VerboseLog
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// Logger returns the process logger. It is never nil.
func Logger() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// DebugLog logs a formatted message when debug mode is enabled
func DebugLog(format string, args ...interface{}) {
	if !Debug {
		return
	}
	Logger().WithOptions(zap.AddCallerSkip(1)).Sugar().Debugf(format, args...)
}

// VerboseLog logs a formatted message when verbose or debug mode is enabled
func VerboseLog(format string, args ...interface{}) {
	if !Verbose && !Debug {
		return
	}
	Logger().WithOptions(zap.AddCallerSkip(1)).Sugar().Infof(format, args...)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
