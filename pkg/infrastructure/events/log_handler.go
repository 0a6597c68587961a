package events

import (
	"log/slog"
)

// LogHandler writes every event it receives to a logger at debug level
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a handler; a nil logger uses slog.Default()
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger}
}

func (h *LogHandler) Handle(event Event) error {
	h.logger.Debug("events: "+event.Type(),
		"stream", event.StreamID(),
		"version", event.Version(),
		"data", event.Data(),
	)
	return nil
}

func (h *LogHandler) CanHandle(string) bool {
	return true
}
