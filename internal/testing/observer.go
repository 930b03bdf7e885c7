package testing

import (
	"fmt"
	"sync"

	"github.com/imamik/fwupgrade/internal/observability"
)

// MemoryObserver records everything emitted through it.
type MemoryObserver struct {
	mu     sync.Mutex
	Lines  []string
	Events []observability.Event
}

// NewMemoryObserver creates an empty MemoryObserver.
func NewMemoryObserver() *MemoryObserver {
	return &MemoryObserver{}
}

// Printf records a formatted line.
func (o *MemoryObserver) Printf(format string, v ...interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Lines = append(o.Lines, fmt.Sprintf(format, v...))
}

// Event records event.
func (o *MemoryObserver) Event(event observability.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Events = append(o.Events, event)
}

// Progress is ignored.
func (o *MemoryObserver) Progress(string, int64, int64) {}

// WithFields returns the same observer.
func (o *MemoryObserver) WithFields(map[string]string) observability.Observer {
	return o
}

// EventsOfType returns recorded events of type t.
func (o *MemoryObserver) EventsOfType(t observability.EventType) []observability.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []observability.Event
	for _, e := range o.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
