// In-memory logger for tests. Records are written as one JSON object per line
// so tests can assert on fields the same way they would on zerolog output.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// sink is the buffer shared by a TestLogger and every logger derived from it.
type sink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *sink) write(entry map[string]interface{}) {
	line, _ := json.Marshal(entry)
	s.mu.Lock()
	s.buf.Write(line)
	s.buf.WriteByte('\n')
	s.mu.Unlock()
}

func (s *sink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// TestLogger captures records at or above its level.
type TestLogger struct {
	sink   *sink
	level  *Level
	fields map[string]interface{}
}

// NewTestLogger returns a logger and the buffer it writes JSON lines to.
//
//	logger, buf := log.NewTestLogger(log.LevelDebug)
//	logger.Info("fitted", log.SamplesKey, 100)
//	strings.Contains(buf.String(), "fitted") // true
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	s := &sink{}
	return &TestLogger{sink: s, level: &level, fields: map[string]interface{}{}}, &s.buf
}

// putFields copies key/value pairs into entry. Error values are stored as
// their message so entries stay JSON encodable.
func putFields(entry map[string]interface{}, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		value := fields[i+1]
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		entry[fmt.Sprint(fields[i])] = value
	}
}

func (t *TestLogger) log(level Level, name, msg string, fields []any) {
	if level < *t.level {
		return
	}
	entry := make(map[string]interface{}, len(t.fields)+len(fields)/2+3)
	for k, v := range t.fields {
		entry[k] = v
	}
	entry["level"] = name
	entry["message"] = msg
	// A leading error goes under "error", as in the zerolog logger.
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			entry["error"] = err.Error()
			fields = fields[1:]
		}
	}
	putFields(entry, fields)
	t.sink.write(entry)
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.log(LevelDebug, "DEBUG", msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.log(LevelInfo, "INFO", msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.log(LevelWarn, "WARN", msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.log(LevelError, "ERROR", msg, fields) }

// With returns a logger writing to the same buffer with extra fields.
func (t *TestLogger) With(fields ...any) Logger {
	merged := make(map[string]interface{}, len(t.fields)+len(fields)/2)
	for k, v := range t.fields {
		merged[k] = v
	}
	putFields(merged, fields)
	return &TestLogger{sink: t.sink, level: t.level, fields: merged}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return level >= *t.level
}

// GetBuffer returns the captured output.
func (t *TestLogger) GetBuffer() *bytes.Buffer {
	return &t.sink.buf
}

// GetLogEntries decodes every captured record.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(t.sink.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether message appears anywhere in the output.
func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.sink.String(), message)
}

// ContainsField reports whether some record has key set to value. Numbers
// compare as float64 after the JSON round trip.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear drops everything captured so far.
func (t *TestLogger) Clear() {
	t.sink.mu.Lock()
	t.sink.buf.Reset()
	t.sink.mu.Unlock()
}

// TestLoggerProvider hands out TestLoggers sharing one buffer. Named loggers
// carry the name under ComponentKey.
type TestLoggerProvider struct {
	logger *TestLogger
}

// NewTestLoggerProvider returns a provider and the buffer its loggers write to.
func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *bytes.Buffer) {
	logger, buf := NewTestLogger(level)
	return &TestLoggerProvider{logger: logger}, buf
}

func (p *TestLoggerProvider) GetLogger() Logger {
	return p.logger
}

func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.logger.With(ComponentKey, name)
}

// SetLevel changes the level of every logger the provider has handed out.
func (p *TestLoggerProvider) SetLevel(level Level) {
	*p.logger.level = level
}

// GetBuffer returns the shared buffer.
func (p *TestLoggerProvider) GetBuffer() *bytes.Buffer {
	return p.logger.GetBuffer()
}
