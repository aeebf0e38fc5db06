package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

var (
	globalMu       sync.RWMutex
	globalProvider LoggerProvider
	// defaultWriter receives the output of the lazily created provider.
	defaultWriter io.Writer = os.Stderr
)

// ToLogLevel converts a level name ("debug", "info", "warn", "error") to a Level.
// It panics on an unknown name; configuration validates the name beforehand.
func ToLogLevel(level string) Level {
	switch strings.ToLower(level) {
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		panic(fmt.Sprintf("invalid log level :%s", level))
	}
}

// SetProvider replaces the process-wide provider and routes library warnings
// (errors.Warn) through it. A nil provider restores the lazily created default.
func SetProvider(p LoggerProvider) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalProvider = p
	wireWarnings(p)
}

// wireWarnings points errors.Warn at the "warnings" logger of p.
// Callers hold globalMu.
func wireWarnings(p LoggerProvider) {
	if p == nil {
		errors.SetZerologWarnFunc(nil)
		return
	}
	warnLogger := p.GetLoggerWithName("warnings")
	errors.SetZerologWarnFunc(func(w error) {
		warnLogger.Warn(w.Error(), ErrorTypeKey, fmt.Sprintf("%T", w))
	})
}

// provider returns the global provider, creating a zerolog one at info level
// on first use. The created provider receives library warnings as well.
func provider() LoggerProvider {
	globalMu.RLock()
	p := globalProvider
	globalMu.RUnlock()
	if p != nil {
		return p
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalProvider == nil {
		globalProvider = NewZerologProviderWithWriter(defaultWriter, LevelInfo)
		wireWarnings(globalProvider)
	}
	return globalProvider
}

// GetLogger returns the default logger of the global provider.
func GetLogger() Logger {
	return provider().GetLogger()
}

// GetLoggerWithName returns a component logger of the global provider.
func GetLoggerWithName(name string) Logger {
	return provider().GetLoggerWithName(name)
}
