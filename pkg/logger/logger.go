package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

// 进程启动时先使用生产配置，加载配置后再调用 Init 或 InitCLI
func init() {
	logger = build(zap.NewProduction)
}

// Init installs the server logger: development output when debug is set,
// JSON production output otherwise. It returns a func restoring the previous one.
func Init(debug bool) func() {
	if debug {
		return Replace(build(zap.NewDevelopment))
	}
	return Replace(build(zap.NewProduction))
}

// InitCLI installs a console logger on stderr for interactive tools. Only
// warnings and errors are shown unless debug is set.
func InitCLI(debug bool) func() {
	level := zapcore.WarnLevel
	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Development = false
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	return Replace(build(func(opts ...zap.Option) (*zap.Logger, error) {
		return cfg.Build(opts...)
	}))
}

func build(ctor func(...zap.Option) (*zap.Logger, error)) *zap.Logger {
	l, err := ctor()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// L returns the process-wide logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Replace swaps the process-wide logger and returns a func restoring the previous one.
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prev := logger
	logger = l
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

// With returns a child logger carrying the given fields.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// WithSession returns a child logger scoped to one conversation session.
func WithSession(sessionID string) *zap.Logger {
	return L().With(zap.String("session_id", sessionID))
}

// Sync flushes buffered entries; call it before the process exits.
func Sync() {
	_ = L().Sync()
}
