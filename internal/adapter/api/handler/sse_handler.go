package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/V4T54L/defect-lens/internal/adapter/metrics"
)

const clientBuffer = 8

// ViewBroker pushes the rendered report view to SSE clients whenever the
// session changes. Bursts of changes are coalesced into one render.
type ViewBroker struct {
	logger  *slog.Logger
	render  func() any
	metrics *metrics.LensMetrics
	clients map[chan []byte]struct{}
	mu      sync.RWMutex
	changes chan struct{}
}

// NewViewBroker creates a ViewBroker and starts its processing loop. m may be nil.
func NewViewBroker(ctx context.Context, render func() any, m *metrics.LensMetrics, logger *slog.Logger) *ViewBroker {
	broker := &ViewBroker{
		logger:  logger.With("component", "view_broker"),
		render:  render,
		metrics: m,
		clients: make(map[chan []byte]struct{}),
		changes: make(chan struct{}, 1),
	}
	go broker.run(ctx)
	return broker
}

// Notify signals a session change. It never blocks.
func (b *ViewBroker) Notify() {
	select {
	case b.changes <- struct{}{}:
	default:
		// A render is already pending and will pick up this change.
	}
}

// ServeHTTP streams the current view, then every subsequent one.
func (b *ViewBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	initial, err := b.snapshot()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	messageChan := make(chan []byte, clientBuffer)
	b.addClient(messageChan)
	defer b.removeClient(messageChan)

	fmt.Fprintf(w, "data: %s\n\n", initial)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messageChan:
			if !ok {
				return // Channel was closed
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// Clients returns the number of connected clients.
func (b *ViewBroker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *ViewBroker) snapshot() ([]byte, error) {
	data, err := json.Marshal(b.render())
	if err != nil {
		b.logger.Error("Failed to marshal view", "error", err)
		return nil, err
	}
	return data, nil
}

func (b *ViewBroker) addClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
	if b.metrics != nil {
		b.metrics.StreamClients.Inc()
	}
	b.logger.Info("SSE client connected")
}

func (b *ViewBroker) removeClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
		if b.metrics != nil {
			b.metrics.StreamClients.Dec()
		}
		b.logger.Info("SSE client disconnected")
	}
}

func (b *ViewBroker) broadcast(msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- msg:
		default:
			b.logger.Warn("SSE client is not keeping up, dropping view update")
		}
	}
}

// run is the main processing loop for the broker.
func (b *ViewBroker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.changes:
			data, err := b.snapshot()
			if err != nil {
				continue
			}
			b.broadcast(data)
		}
	}
}
