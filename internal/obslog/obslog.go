// Package obslog owns the process-wide zap logger. Console output goes to
// stderr so it never interleaves with the board drawn on stdout.
package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects sinks and encoding. Format is one of legacy, json, console.
type Options struct {
	Level   string `env:"LOG_LEVEL" env-default:"info"`
	Format  string `env:"LOG_FORMAT" env-default:"legacy"`
	Console bool   `env:"LOG_TO_CONSOLE" env-default:"false"`
	ToFile  bool   `env:"LOG_TO_FILE" env-default:"true"`
	File    string `env:"LOG_FILE" env-default:"logs/connect4.log"`
	Caller  bool   `env:"LOG_CALLER" env-default:"false"`
}

var global atomic.Pointer[zap.Logger]

func init() { global.Store(zap.NewNop()) }

// L returns the global logger.
func L() *zap.Logger { return global.Load() }

// Set replaces the global logger. nil restores the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	global.Store(l)
}

// InitFromEnv reads LOG_* variables and installs the resulting logger.
func InitFromEnv() error {
	var opts Options
	if err := cleanenv.ReadEnv(&opts); err != nil {
		return fmt.Errorf("read log env: %w", err)
	}
	l, err := New(opts)
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// New builds a logger from opts. With no sink enabled it returns a no-op logger.
func New(opts Options) (*zap.Logger, error) {
	level := parseLevel(opts.Level)
	format := normalizeFormat(opts.Format)
	enc := encoders[format]

	var cores []zapcore.Core
	if opts.Console {
		cores = append(cores, zapcore.NewCore(enc(), zapcore.Lock(os.Stderr), level))
	}
	if opts.ToFile {
		sink, err := openFile(opts.File)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(enc(), sink, level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	zopts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if opts.Caller || format == "legacy" {
		zopts = append(zopts, zap.AddCaller())
	}
	return zap.New(zapcore.NewTee(cores...), zopts...), nil
}

func openFile(path string) (zapcore.WriteSyncer, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("logs", "connect4.log")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	sink, _, err := zap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return sink, nil
}

func parseLevel(s string) zapcore.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func normalizeFormat(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := encoders[s]; ok {
		return s
	}
	return "legacy"
}

var encoders = map[string]func() zapcore.Encoder{
	"legacy": func() zapcore.Encoder {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.ConsoleSeparator = " | "
		return zapcore.NewConsoleEncoder(cfg)
	},
	"console": func() zapcore.Encoder {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(cfg)
	},
	"json": func() zapcore.Encoder {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(cfg)
	},
}
