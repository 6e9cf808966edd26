package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/ogurasousui/minijobber-sync/internal/platform/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New は設定に従って slog.Logger を構築します。
// log.file が指定されている場合はローテーション付きのファイルへ出力し、返却される io.Closer で閉じます。
func New(cfg config.LogConfig, stderr io.Writer) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = stderr
		closer io.Closer = nopCloser{}
	)
	if out == nil {
		out = os.Stderr
	}

	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		out = rotating
		closer = rotating
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closer
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
