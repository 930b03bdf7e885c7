package observability

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Logger is the minimal progress output used across packages.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Observer defines the interface for structured observability during an upgrade.
type Observer interface {
	Logger

	// Event emits a structured event
	Event(event Event)

	// Progress reports progress for a step, e.g. bytes transferred
	Progress(step string, current, total int64)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured upgrade event.
type Event struct {
	Type      EventType
	Step      string // e.g. "Transfer", "FinalFailover"
	Device    string // device address if applicable
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// EventType represents the type of upgrade event.
type EventType string

const (
	EventStepStarted   EventType = "step.started"
	EventStepCompleted EventType = "step.completed"
	EventStepFailed    EventType = "step.failed"
	EventStepSkipped   EventType = "step.skipped"

	// EventDeviceWarning is a condition worth reporting that does not stop the job.
	EventDeviceWarning EventType = "device.warning"

	EventJobCompleted EventType = "job.completed"
	EventJobFailed    EventType = "job.failed"

	EventProgress EventType = "progress"
)

// ConsoleObserver implements Observer using the standard log package.
type ConsoleObserver struct {
	logger        *log.Logger
	contextFields map[string]string
}

// NewConsoleObserver creates an observer writing to the default logger.
func NewConsoleObserver() *ConsoleObserver {
	return NewConsoleObserverWithLogger(log.Default())
}

// NewConsoleObserverWithLogger creates an observer writing to logger.
func NewConsoleObserverWithLogger(logger *log.Logger) *ConsoleObserver {
	return &ConsoleObserver{
		logger:        logger,
		contextFields: make(map[string]string),
	}
}

// Printf implements Logger.
func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	o.logger.Printf(format, v...)
}

// Event implements Observer.
func (o *ConsoleObserver) Event(event Event) {
	event = withContext(event, o.contextFields)
	o.logger.Print(formatEvent(event))
}

// Progress implements Observer.
func (o *ConsoleObserver) Progress(step string, current, total int64) {
	if total == 0 {
		o.logger.Printf("[%s] Progress: %d/%d", step, current, total)
		return
	}
	o.logger.Printf("[%s] Progress: %d/%d (%d%%)", step, current, total, current*100/total)
}

// WithFields implements Observer.
func (o *ConsoleObserver) WithFields(fields map[string]string) Observer {
	return &ConsoleObserver{
		logger:        o.logger,
		contextFields: mergeFields(o.contextFields, fields),
	}
}

func withContext(event Event, contextFields map[string]string) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Fields == nil {
		event.Fields = make(map[string]string)
	}
	for k, v := range contextFields {
		if _, exists := event.Fields[k]; !exists {
			event.Fields[k] = v
		}
	}
	return event
}

func mergeFields(base, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// formatEvent renders "[Step] device: message (k=v, ...)".
func formatEvent(event Event) string {
	var b strings.Builder

	if event.Step != "" {
		fmt.Fprintf(&b, "[%s] ", event.Step)
	}
	if event.Type == EventDeviceWarning {
		b.WriteString("WARNING ")
	}
	if event.Device != "" {
		fmt.Fprintf(&b, "%s: ", event.Device)
	}
	b.WriteString(event.Message)

	if len(event.Fields) > 0 {
		keys := make([]string, 0, len(event.Fields))
		for k := range event.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, event.Fields[k]))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}

	return b.String()
}

// LogStepStart logs a step start event.
func LogStepStart(observer Observer, step, device string) {
	observer.Event(Event{
		Type:    EventStepStarted,
		Step:    step,
		Device:  device,
		Message: "starting",
	})
}

// LogStepComplete logs a step completion event.
func LogStepComplete(observer Observer, step, device string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventStepCompleted,
		Step:    step,
		Device:  device,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogStepFailed logs a step failure event.
func LogStepFailed(observer Observer, step, device string, err error) {
	observer.Event(Event{
		Type:    EventStepFailed,
		Step:    step,
		Device:  device,
		Message: fmt.Sprintf("failed: %v", err),
	})
}

// LogStepSkipped logs a step that was deliberately not executed.
func LogStepSkipped(observer Observer, step, device, reason string) {
	observer.Event(Event{
		Type:    EventStepSkipped,
		Step:    step,
		Device:  device,
		Message: "skipped: " + reason,
	})
}

// LogWarning logs a non-fatal condition.
func LogWarning(observer Observer, step, device, message string) {
	observer.Event(Event{
		Type:    EventDeviceWarning,
		Step:    step,
		Device:  device,
		Message: message,
	})
}
