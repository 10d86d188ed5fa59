package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cwbudde/clargs/internal/store"
)

// pingInterval keeps idle SSE connections open through proxies.
var pingInterval = 30 * time.Second

// EventBroadcaster fans extraction events out to SSE clients
type EventBroadcaster struct {
	mu        sync.Mutex
	clients   map[chan store.HistoryEntry]bool
	lastEvent *store.HistoryEntry
	closed    bool
}

// NewEventBroadcaster creates a new event broadcaster
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		clients: make(map[chan store.HistoryEntry]bool),
	}
}

// Subscribe adds a client. The most recent event, if any, is delivered
// first. The channel is closed by Unsubscribe or Close.
func (eb *EventBroadcaster) Subscribe() chan store.HistoryEntry {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan store.HistoryEntry, 10) // Buffered to prevent blocking
	if eb.closed {
		close(ch)
		return ch
	}
	eb.clients[ch] = true

	if eb.lastEvent != nil {
		ch <- *eb.lastEvent
	}

	slog.Debug("SSE client subscribed", "total_clients", len(eb.clients))
	return ch
}

// Unsubscribe removes a client from receiving events
func (eb *EventBroadcaster) Unsubscribe(ch chan store.HistoryEntry) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.clients[ch] {
		delete(eb.clients, ch)
		close(ch)
	}

	slog.Debug("SSE client unsubscribed", "total_clients", len(eb.clients))
}

// Broadcast sends an event to all subscribed clients. Slow clients miss
// events instead of blocking the sender.
func (eb *EventBroadcaster) Broadcast(event store.HistoryEntry) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.lastEvent = &event

	for ch := range eb.clients {
		select {
		case ch <- event:
		default:
			slog.Warn("SSE channel full, skipping event")
		}
	}
}

// Close disconnects every client. Later subscriptions get a closed channel.
func (eb *EventBroadcaster) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for ch := range eb.clients {
		close(ch)
	}
	eb.clients = make(map[chan store.HistoryEntry]bool)
	eb.closed = true
}

// handleEvents handles GET /api/v1/events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "SSE not supported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(events)

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("SSE client disconnected")
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				slog.Error("Failed to write SSE event", "error", err)
				return
			}
			flusher.Flush()

		case <-pingTicker.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes an event in SSE format
func writeSSEEvent(w http.ResponseWriter, event store.HistoryEntry) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "event: extraction\ndata: %s\n\n", data)
	return err
}
