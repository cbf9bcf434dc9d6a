package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxLogSize = 10 * 1024 * 1024

var (
	debugLog *os.File
	logPath  string
)

// Options 日志配置
type Options struct {
	Level   string // debug/info/warn/error
	Console bool   // 同时输出到 stderr
	File    string // 为空时写入 ~/.forsale/client.log
}

// Init initializes the global zerolog logger backed by the debug log file
func Init(opts Options) (zerolog.Logger, error) {
	path := opts.File
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".forsale", "client.log")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := openRotated(path)
	if err != nil {
		return zerolog.Nop(), err
	}
	debugLog = f
	logPath = path

	var out io.Writer = f
	if opts.Console {
		out = zerolog.MultiLevelWriter(f, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	l := zerolog.New(out).Level(ParseLevel(opts.Level)).With().Timestamp().Logger()
	log.Logger = l

	l.Info().Str("path", logPath).Msg("logger initialized")
	return l, nil
}

// openRotated opens path for append, rotating it first if it is too large (> 10MB)
func openRotated(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	if info, err := f.Stat(); err == nil && info.Size() > maxLogSize {
		_ = f.Close()
		backupPath := fmt.Sprintf("%s.%d", path, time.Now().Unix())
		_ = os.Rename(path, backupPath)
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to create new log file: %w", err)
		}
	}
	return f, nil
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Close closes the debug log file
func Close() {
	if debugLog != nil {
		_ = debugLog.Close()
		debugLog = nil
	}
}

// LogPanic logs a panic with stack trace
func LogPanic(r any) {
	log.Error().Str("stack", string(debug.Stack())).Msgf("panic: %v", r)
}

// GetLogPath returns the current log file path
func GetLogPath() string {
	return logPath
}
