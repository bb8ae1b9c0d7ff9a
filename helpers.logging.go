package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LoggerContextKey ContextKey = "request.logger"
	megabyte                    = 1 << 20
	logFilePrefix               = "books-catalog."
)

var _ zapcore.WriteSyncer = (*LogFileWriter)(nil)

// LogFileWriter writes the catalog logs into size bounded files under a
// single folder. Once a record would overflow the current file, a new file
// named after the clock time is opened and the oldest ones beyond maxFiles
// are removed. A zero maxFiles keeps every file.
type LogFileWriter struct {
	mu       sync.Mutex
	clock    Clocker
	file     *os.File
	folder   string
	maxBytes int64
	maxFiles int
	written  int64
	env      string
}

func NewLogFileWriter(config *Config, clock Clocker) *LogFileWriter {
	env := "dev"
	if config.IsProduction {
		env = "prod"
	}
	return &LogFileWriter{
		clock:    clock,
		folder:   config.LogFolder,
		maxBytes: int64(config.LogMaxSize) * megabyte,
		maxFiles: config.LogMaxFiles,
		env:      env,
	}
}

// Write appends p to the current file and rotates beforehand when needed.
func (lw *LogFileWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	size := int64(len(p))
	if size > lw.maxBytes {
		return 0, fmt.Errorf("logging: record of %d bytes exceeds the %d bytes file limit", size, lw.maxBytes)
	}
	if lw.file == nil || lw.written+size > lw.maxBytes {
		if err := lw.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := lw.file.Write(p)
	lw.written += int64(n)
	return n, err
}

func (lw *LogFileWriter) rotate() error {
	if lw.file != nil {
		if err := lw.file.Close(); err != nil {
			return err
		}
		lw.file = nil
	}
	file, err := os.OpenFile(LogFileName(lw.folder, lw.env, lw.clock.Now()), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	lw.file = file
	lw.written = 0
	return lw.prune()
}

// prune removes the oldest catalog log files above the retention limit.
func (lw *LogFileWriter) prune() error {
	if lw.maxFiles <= 0 {
		return nil
	}
	entries, err := os.ReadDir(lw.folder)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), logFilePrefix) && strings.HasSuffix(e.Name(), ".log") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= lw.maxFiles {
		return nil
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-lw.maxFiles] {
		if err := os.Remove(filepath.Join(lw.folder, name)); err != nil {
			return err
		}
	}
	return nil
}

func (lw *LogFileWriter) Sync() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.file == nil {
		return nil
	}
	return lw.file.Sync()
}

// Close closes the current log file. A later write opens a new one.
func (lw *LogFileWriter) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.file == nil {
		return nil
	}
	err := lw.file.Close()
	lw.file = nil
	return err
}

// LogFileName builds the path of a log file opened at t. Names sort in
// chronological order.
func LogFileName(folder, env string, t time.Time) string {
	return filepath.Join(folder, logFilePrefix+t.UTC().Format("20060102.150405.000000000")+"."+env+".log")
}

// consoleSyncer ignores Sync calls since stdout may not support them.
type consoleSyncer struct {
	*os.File
}

func (consoleSyncer) Sync() error { return nil }

// SetupLogging builds the service logger. Records are always written as json
// into w. Outside production they are also printed on stdout in console format.
// Every record carries the service name and build details.
func SetupLogging(config *Config, w zapcore.WriteSyncer, clock zapcore.Clock) (*zap.Logger, func() error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	if !config.IsProduction {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = "lvl"
	encoderConfig.MessageKey = "msg"
	encoderConfig.StacktraceKey = "skt"

	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), w, config.LogLevel)}
	if !config.IsProduction {
		console := zapcore.Lock(consoleSyncer{os.Stdout})
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), console, config.LogLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.FatalLevel), zap.WithClock(clock)).
		Named("books-catalog").
		With(
			zap.String("build.commit", config.GitCommit),
			zap.String("build.tag", config.GitTag),
			zap.String("build.time", config.BuildTime),
			zap.String("storage.driver", config.Storage.Driver),
		)

	flusher := func() error {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("flush logs: %w", err)
		}
		return nil
	}
	return logger, flusher
}

// GetLoggerFromContext returns the request scoped logger stored by the core
// middleware or the service logger when none is set.
func (api *APIHandler) GetLoggerFromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*zap.Logger); ok {
		return logger
	}
	return api.logger
}
