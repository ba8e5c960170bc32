package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
)

// Message is one Server-Sent Event.
type Message struct {
	Event string
	Data  string
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]map[chan<- Message]struct{} // SessionID -> Set of Channels
}

// NewStreamManager creates an empty stream manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		logger:      logger,
		subscribers: make(map[string]map[chan<- Message]struct{}),
	}
}

// Subscribe registers a listener for a session. Call the returned func to leave.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan Message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Message, 16)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- Message]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Broadcast delivers msg to every listener of the session. Slow listeners
// lose messages rather than block the sender.
func (sm *StreamManager) Broadcast(sessionID string, msg Message) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Hooks forwards every lifecycle event to the session's listeners.
// They never block and are safe to chain into a session manager.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	send := func(_ context.Context, e *domain.NavigationEvent) {
		data, err := json.Marshal(e)
		if err != nil {
			return
		}
		sm.Broadcast(e.SessionID, Message{Event: string(e.Type), Data: string(data)})
	}
	return domain.LifecycleHooks{
		OnSessionStart:  send,
		OnWaypointEnter: send,
		OnArrived:       send,
		OnSessionEnd:    send,
	}
}

func writeEvent(w http.ResponseWriter, f http.Flusher, msg Message) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
	f.Flush()
}

// SubscribeEvents handles GET /events.
//
// With ?session_id= it streams that session's lifecycle events and diffs,
// optionally filtered by ?events=arrived,session_end. Without it, it streams
// route ids as the route repository reports changes.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.streamRouteChanges(w, r, flusher)
		return
	}

	filter := make(map[string]bool)
	if raw := r.URL.Query().Get("events"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			filter[strings.TrimSpace(name)] = true
		}
	}

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	writeEvent(w, flusher, Message{Event: "ping", Data: "connected"})
	s.logger.Debug("SSE subscribed", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(filter) > 0 && !filter[msg.Event] {
				continue
			}
			writeEvent(w, flusher, msg)
		}
	}
}

func (s *Server) streamRouteChanges(w http.ResponseWriter, r *http.Request, flusher http.Flusher) {
	watchable, ok := s.Sessions.Routes().(ports.Watchable)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "route repository cannot be watched"})
		return
	}
	events, err := watchable.Watch(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	writeEvent(w, flusher, Message{Event: "ping", Data: "connected"})

	for {
		select {
		case <-r.Context().Done():
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, flusher, Message{Event: "route_changed", Data: id})
		}
	}
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
