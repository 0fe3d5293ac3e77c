package logger

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	Info    *log.Logger
	Warn    *log.Logger
	Debug   *log.Logger
	Verbose *log.Logger
	Error   *log.Logger
	Always  *log.Logger // Always logs to file regardless of log level

	// Current log level for filtering
	currentLogLevel string

	mu      sync.Mutex
	logFile *os.File
)

// Loggers are usable before Init so engines can be driven from tests and
// library callers; everything but Error is discarded until configured.
func init() {
	setup("error", io.Discard, os.Stderr)
}

func Init() error {
	return InitWithLevel("info")
}

func InitWithLevel(logLevel string) error {
	return InitWithConfig(logLevel, "fdmc.log")
}

// InitWithConfig routes output to logFilePath. An empty path logs to stderr.
func InitWithConfig(logLevel, logFilePath string) error {
	mu.Lock()
	defer mu.Unlock()

	var out io.Writer = os.Stderr
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		if logFile != nil {
			logFile.Close()
		}
		logFile = f
		out = f
	}

	errOut := out
	if out != io.Writer(os.Stderr) {
		errOut = io.MultiWriter(os.Stderr, out)
	}
	setup(logLevel, out, errOut)
	return nil
}

// Close flushes and releases the log file, reverting to the quiet defaults
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	setup("error", io.Discard, os.Stderr)
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// Level returns the active level name
func Level() string {
	return currentLogLevel
}

func setup(logLevel string, out, errOut io.Writer) {
	currentLogLevel = logLevel
	nullWriter := io.Discard

	Info = log.New(getWriter("info", out, nullWriter), "ℹ️  INFO: ", log.Ldate|log.Ltime)
	Warn = log.New(getWriter("warn", out, nullWriter), "⚠️  WARN: ", log.Ldate|log.Ltime|log.Lshortfile)
	Debug = log.New(getWriter("debug", out, nullWriter), "🐛 DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
	Verbose = log.New(getWriter("verbose", out, nullWriter), "🔍 VERBOSE: ", log.Ldate|log.Ltime|log.Lshortfile)
	Error = log.New(errOut, "❌ ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
	Always = log.New(out, "📝 ALWAYS: ", log.Ldate|log.Ltime) // bypasses level filtering
}

// getWriter returns the appropriate writer based on log level
func getWriter(level string, activeWriter, disabledWriter io.Writer) io.Writer {
	if shouldLog(level) {
		return activeWriter
	}
	return disabledWriter
}

// shouldLog determines if a log level should be active
func shouldLog(level string) bool {
	levels := map[string]int{
		"error":   0,
		"warn":    1,
		"info":    2,
		"debug":   3,
		"verbose": 4,
	}

	currentLevel, exists := levels[currentLogLevel]
	if !exists {
		currentLevel = 2 // default to info
	}

	requiredLevel, exists := levels[level]
	if !exists {
		return false
	}

	return currentLevel >= requiredLevel
}
