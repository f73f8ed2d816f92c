package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Environment variables configuring the log file path and debug output.
const (
	envLogPath = "SHOWTIME_MCP_LOG"
	envDebug   = "SHOWTIME_MCP_DEBUG"
)

var (
	mu      sync.Mutex
	std     *log.Logger
	logFile *os.File
	debug   = os.Getenv(envDebug) != ""
)

// InitFromEnv initializes the logger using SHOWTIME_MCP_LOG or a default path
// next to the executable. The MCP server owns stdout, so logs never go there.
func InitFromEnv() error {
	path := os.Getenv(envLogPath)
	if path == "" {
		if exePath, err := os.Executable(); err == nil {
			path = filepath.Join(filepath.Dir(exePath), "showtime-mcp.log")
		} else {
			path = "./showtime-mcp.log"
		}
	}
	return Init(path)
}

// Init initializes the logger to write to the provided file path.
// It creates parent directories if needed and opens the file in append mode.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if std != nil {
		return nil
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = f
	std = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	return nil
}

// SetOutput redirects logging to w, replacing any file opened by Init.
// The CLI uses it to log to stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	std = log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)
}

// SetDebug toggles Debugf output.
func SetDebug(on bool) {
	mu.Lock()
	debug = on
	mu.Unlock()
}

// Close closes the underlying log file, if open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		std = nil
		return err
	}
	return nil
}

// Printf logs a formatted message at info level.
func Printf(format string, args ...any) { write("INFO", "", format, args...) }

// Debugf logs only when debug output is enabled.
func Debugf(format string, args ...any) { write("DEBUG", "", format, args...) }

// Infof logs informational messages.
func Infof(format string, args ...any) { write("INFO", "", format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { write("WARN", "", format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { write("ERROR", "", format, args...) }

// Logger prefixes every line with a component name, e.g. "[megaplex]".
type Logger struct {
	name string
}

// Named returns a Logger scoped to a component.
func Named(name string) Logger { return Logger{name: name} }

// With returns a Logger whose scope is extended, e.g. "aggregator req=1f3a".
func (l Logger) With(scope string) Logger {
	if l.name == "" {
		return Logger{name: scope}
	}
	return Logger{name: l.name + " " + scope}
}

func (l Logger) Debugf(format string, args ...any) { write("DEBUG", l.name, format, args...) }
func (l Logger) Infof(format string, args ...any) { write("INFO", l.name, format, args...) }
func (l Logger) Warnf(format string, args ...any) { write("WARN", l.name, format, args...) }
func (l Logger) Errorf(format string, args ...any) { write("ERROR", l.name, format, args...) }

func write(level, name, format string, args ...any) {
	mu.Lock()
	ready, dbg := std != nil, debug
	mu.Unlock()
	if level == "DEBUG" && !dbg {
		return
	}
	if !ready {
		_ = InitFromEnv()
	}
	mu.Lock()
	l := std
	mu.Unlock()
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if name != "" {
		l.Printf("[%s] [%s] %s", level, name, msg)
		return
	}
	l.Printf("[%s] %s", level, msg)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
