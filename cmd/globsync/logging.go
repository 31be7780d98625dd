package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/globsync/internal/utils"
)

var (
	logLevel = new(slog.LevelVar)

	logFileMu sync.Mutex
	logFile   *os.File
)

func newConsoleHandler(f *os.File) slog.Handler {
	return tint.NewHandler(f, &tint.Options{
		Level:      logLevel,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(f.Fd()),
	})
}

// enableLogFile tees the default logger into path. Calling it again replaces the previous file.
func enableLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	logFileMu.Lock()
	defer logFileMu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = file

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(
		newConsoleHandler(os.Stderr),
		newFileHandler(file),
	)))
	return nil
}

func newFileHandler(w io.Writer) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})
}

func closeLogFile() {
	logFileMu.Lock()
	defer logFileMu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
