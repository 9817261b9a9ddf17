package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/internal/service/logger"
)

// Streamer forwards the store's change feed to dashboard clients over
// Server-Sent Events, one stream per project.
type Streamer struct {
	feed ports.ChangeFeed
	log  logger.Logger

	mu      sync.Mutex
	clients map[string]map[string]chan []byte
	detach  map[string]func()

	heartbeat time.Duration
}

// NewStreamer creates an SSE streamer over the change feed
func NewStreamer(feed ports.ChangeFeed, log logger.Logger) *Streamer {
	return &Streamer{
		feed:      feed,
		log:       log,
		clients:   make(map[string]map[string]chan []byte),
		detach:    make(map[string]func()),
		heartbeat: 15 * time.Second,
	}
}

// ServeProject streams a project's change events until the client goes away
func (s *Streamer) ServeProject(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	projectID := mux.Vars(r)["id"]

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientID := uuid.NewString()
	ch := s.attach(projectID, clientID)
	defer s.release(projectID, clientID)

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// attach registers a client channel, subscribing to the feed on the first
// client of a project.
func (s *Streamer) attach(projectID, clientID string) chan []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan []byte, 64)
	if s.clients[projectID] == nil {
		s.clients[projectID] = make(map[string]chan []byte)
		unsub, err := s.feed.Subscribe(projectID, func(event ports.ChangeEvent) {
			s.broadcast(projectID, event)
		})
		if err == nil {
			s.detach[projectID] = unsub
		}
	}
	s.clients[projectID][clientID] = ch
	return ch
}

func (s *Streamer) release(projectID, clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.clients[projectID][clientID]; ok {
		delete(s.clients[projectID], clientID)
		close(ch)
	}
	if len(s.clients[projectID]) == 0 {
		delete(s.clients, projectID)
		if unsub, ok := s.detach[projectID]; ok {
			unsub()
			delete(s.detach, projectID)
		}
	}
}

// broadcast runs on the feed dispatch goroutine and must not block: a
// client whose buffer is full misses the event and catches up on the next
// explicit load.
func (s *Streamer) broadcast(projectID string, event ports.ChangeEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.clients[projectID] {
		select {
		case ch <- data:
		default:
		}
	}
}
