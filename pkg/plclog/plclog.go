// Package plclog provides the per-PLC file logger (A4). The process-wide
// console logger stays on k8s.io/klog/v2; klog is a single global sink,
// unsuited to N independent per-PLC file handlers, so each acquisition loop
// gets its own log/slog logger writing to logs/<plc_name>.log instead.
package plclog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Logger pairs a slog.Logger with the file backing it so the acquisition
// loop can close it on the way into TERMINATED.
type Logger struct {
	*slog.Logger
	file *os.File
}

// Open creates (or appends to) logs/<plcName>.log and returns a Logger
// writing structured text records to it.
func Open(plcName string) (*Logger, error) {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return nil, fmt.Errorf("plclog: mkdir logs: %w", err)
	}

	path := filepath.Join("logs", plcName+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("plclog: open %s: %w", path, err)
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(handler).With("plc", plcName)

	return &Logger{Logger: logger, file: f}, nil
}

// Close closes the backing file.
func (l *Logger) Close() error {
	return l.file.Close()
}
