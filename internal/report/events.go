package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventImport   EventType = "import"   // one entity file imported
	EventValidate EventType = "validate" // rows rejected before any write
	EventWipe     EventType = "wipe"
	EventCommit   EventType = "commit"
	EventWrite    EventType = "write" // single-row mutation from the CLI
	EventImage    EventType = "image"
	EventError    EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single line of the audit log
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Table     string            `json:"table,omitempty"`
	Source    string            `json:"source,omitempty"`
	RowID     int64             `json:"row_id,omitempty"`
	Action    string            `json:"action,omitempty"`
	Rows      int               `json:"rows,omitempty"`
	Inserted  int               `json:"inserted,omitempty"`
	Skipped   int               `json:"skipped,omitempty"`
	Path      string            `json:"path,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(outputDir, fmt.Sprintf("events-%s.jsonl", timestamp))

	// Two runs within the same second share a file
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogImport logs the outcome of importing one entity file
func (l *EventLogger) LogImport(table, source string, rows, inserted, skipped int, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventImport,
		Table:    table,
		Source:   source,
		Rows:     rows,
		Inserted: inserted,
		Skipped:  skipped,
		Duration: duration.Milliseconds(),
	})
}

// LogValidation logs rows rejected before any write
func (l *EventLogger) LogValidation(table, source string, err error) error {
	return l.Log(&Event{
		Level:  LevelError,
		Event:  EventValidate,
		Table:  table,
		Source: source,
		Error:  err.Error(),
	})
}

// LogWipe logs the removal of every catalog row
func (l *EventLogger) LogWipe(rowsBefore int) error {
	return l.Log(&Event{
		Level: LevelWarning,
		Event: EventWipe,
		Rows:  rowsBefore,
	})
}

// LogCommit logs the final table sizes after a committed import
func (l *EventLogger) LogCommit(counts map[string]int, duration time.Duration) error {
	extra := make(map[string]string, len(counts))
	total := 0
	for table, n := range counts {
		extra[table] = fmt.Sprintf("%d", n)
		total += n
	}
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventCommit,
		Rows:     total,
		Duration: duration.Milliseconds(),
		Extra:    extra,
	})
}

// LogWrite logs a single-row mutation such as a delete from the CLI
func (l *EventLogger) LogWrite(table, action string, rowID int64, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:  level,
		Event:  EventWrite,
		Table:  table,
		Action: action,
		RowID:  rowID,
		Error:  errMsg,
	})
}

// LogImage logs a stored picture
func (l *EventLogger) LogImage(table string, rowID int64, source, path string) error {
	return l.Log(&Event{
		Level:  LevelInfo,
		Event:  EventImage,
		Table:  table,
		RowID:  rowID,
		Source: source,
		Path:   path,
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, table string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		Table: table,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}

// ReadEvents decodes every event in a JSONL file, skipping malformed lines
func ReadEvents(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		events = append(events, e)
	}

	return events, scanner.Err()
}

// LatestEventLog returns the newest events-*.jsonl file in dir, or "" if
// there is none. With types given, only logs holding one of those event
// types are considered.
func LatestEventLog(dir string, types ...EventType) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "events-*.jsonl"))
	if err != nil {
		return "", err
	}
	// the timestamped names sort chronologically
	sort.Strings(matches)

	for i := len(matches) - 1; i >= 0; i-- {
		if len(types) == 0 {
			return matches[i], nil
		}
		events, err := ReadEvents(matches[i])
		if err != nil {
			return "", err
		}
		for _, e := range events {
			if slices.Contains(types, e.Event) {
				return matches[i], nil
			}
		}
	}
	return "", nil
}
