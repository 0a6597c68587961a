package events

import (
	"log/slog"
	"slices"
	"sync"
)

// InMemoryEventStore keeps every run's events for the life of the process.
// Handlers are invoked synchronously, in subscription order, after the
// event is stored.
type InMemoryEventStore struct {
	streams     map[string][]Event
	subscribers map[string][]EventHandler
	allEvents   []Event
	logger      *slog.Logger
	mutex       sync.RWMutex
}

// NewInMemoryEventStore creates an empty store; a nil logger uses slog.Default()
func NewInMemoryEventStore(logger *slog.Logger) *InMemoryEventStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[string][]EventHandler),
		logger:      logger,
	}
}

var _ EventStore = (*InMemoryEventStore)(nil)

// AppendEvent stores the event under streamID with the next stream version
func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	stored := BaseEvent{
		EventType:    event.Type(),
		Stream:       streamID,
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: len(s.streams[streamID]) + 1,
	}
	s.streams[streamID] = append(s.streams[streamID], stored)
	s.allEvents = append(s.allEvents, stored)
	handlers := slices.Clone(s.subscribers[stored.EventType])
	s.mutex.Unlock()

	for _, h := range handlers {
		if !h.CanHandle(stored.EventType) {
			continue
		}
		if err := h.Handle(stored); err != nil {
			s.logger.Warn("events: handler failed", "type", stored.EventType, "stream", streamID, "error", err)
		}
	}
	return nil
}

// ReadEvents returns a stream's events starting at fromVersion (1-based)
func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events := s.streams[streamID]
	fromVersion = max(fromVersion, 1)
	if fromVersion > len(events) {
		return []Event{}, nil
	}
	return slices.Clone(events[fromVersion-1:]), nil
}

// ReadAllEvents returns events of every stream from a global position
func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	fromPosition = max(fromPosition, 0)
	if fromPosition >= len(s.allEvents) {
		return []Event{}, nil
	}
	return slices.Clone(s.allEvents[fromPosition:]), nil
}

// Subscribe registers handler for the given event types
func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}
	return nil
}

// Unsubscribe removes handler from every event type
func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for eventType, handlers := range s.subscribers {
		s.subscribers[eventType] = slices.DeleteFunc(slices.Clone(handlers), func(h EventHandler) bool {
			return h == handler
		})
	}
	return nil
}
