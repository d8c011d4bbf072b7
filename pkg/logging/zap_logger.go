package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

type ZapLogger struct {
	logger *zap.Logger
}

var _ Logger = (*ZapLogger)(nil)

// NewZapLogger creates a new logger wrapping zap.Logger. In development
// mode logs go to both stdout and a timestamped file; in production mode
// only to the file.
func NewZapLogger(cfg LoggerConfig) (Logger, error) {
	if cfg.ProcessName == "" {
		return nil, fmt.Errorf("process name cannot be empty")
	}

	logDir := cfg.LogDir
	if logDir == "" {
		logDir = BaseDataDir
	}
	logDir = filepath.Join(logDir, LogsDir, string(cfg.ProcessName))
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15-04-05Z")
	logPath := filepath.Join(logDir, fmt.Sprintf("%s.log", timestamp))

	var config zap.Config
	if cfg.IsDevelopment {
		config = zap.NewDevelopmentConfig()
		config.OutputPaths = []string{"stdout", logPath}
	} else {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{logPath}
	}

	logger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	return &ZapLogger{logger: logger}, nil
}

func (z *ZapLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (z *ZapLogger) Info(msg string, keysAndValues ...interface{}) {
	z.logger.Sugar().Infow(msg, keysAndValues...)
}

func (z *ZapLogger) Warn(msg string, keysAndValues ...interface{}) {
	z.logger.Sugar().Warnw(msg, keysAndValues...)
}

func (z *ZapLogger) Error(msg string, keysAndValues ...interface{}) {
	z.logger.Sugar().Errorw(msg, keysAndValues...)
}

func (z *ZapLogger) Fatal(msg string, keysAndValues ...interface{}) {
	z.logger.Sugar().Fatalw(msg, keysAndValues...)
}

func (z *ZapLogger) Debugf(template string, args ...interface{}) {
	z.logger.Sugar().Debugf(template, args...)
}

func (z *ZapLogger) Infof(template string, args ...interface{}) {
	z.logger.Sugar().Infof(template, args...)
}

func (z *ZapLogger) Warnf(template string, args ...interface{}) {
	z.logger.Sugar().Warnf(template, args...)
}

func (z *ZapLogger) Errorf(template string, args ...interface{}) {
	z.logger.Sugar().Errorf(template, args...)
}

func (z *ZapLogger) Fatalf(template string, args ...interface{}) {
	z.logger.Sugar().Fatalf(template, args...)
}

func (z *ZapLogger) With(keysAndValues ...interface{}) Logger {
	return &ZapLogger{
		logger: z.logger.Sugar().With(keysAndValues...).Desugar(),
	}
}

// Sync flushes buffered log entries. Sync errors on stdout are expected
// and ignored by callers at shutdown.
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
