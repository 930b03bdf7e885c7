package handlers

import (
	"fmt"
	"io"
	"log"

	"github.com/go-logr/logr/funcr"

	"github.com/imamik/fwupgrade/internal/observability"
)

// Log formats accepted by --log-format.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// newObserver builds the progress output for the chosen format.
func newObserver(format string, w io.Writer) (observability.Observer, error) {
	switch format {
	case "", LogFormatText:
		return observability.NewConsoleObserverWithLogger(log.New(w, "", log.LstdFlags)), nil
	case LogFormatJSON:
		logger := funcr.NewJSON(func(obj string) {
			fmt.Fprintln(w, obj)
		}, funcr.Options{LogTimestamp: true})
		return observability.NewLogrObserver(logger.WithName("fwupgrade")), nil
	default:
		return nil, fmt.Errorf("unknown log format %q: must be %s or %s", format, LogFormatText, LogFormatJSON)
	}
}
