package persistence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/internal/service/logger"
)

// notifyChannel is the postgres NOTIFY channel the row triggers publish to
const notifyChannel = "siteledger_changes"

// ChangeListener implements the store's subscription primitive on top of
// postgres LISTEN/NOTIFY. Row triggers publish one JSON payload per
// insert/update/delete; the listener fans events out to per-project
// handlers. Handlers run on the dispatch goroutine and must not block.
type ChangeListener struct {
	listener *pq.Listener
	log      logger.Logger

	mu       sync.RWMutex
	handlers map[string]map[int]func(ports.ChangeEvent)
	nextID   int

	done chan struct{}
}

// NewChangeListener connects a listener to the database's change channel
func NewChangeListener(connStr string, log logger.Logger) (*ChangeListener, error) {
	l := &ChangeListener{
		log:      log,
		handlers: make(map[string]map[int]func(ports.ChangeEvent)),
		done:     make(chan struct{}),
	}
	l.listener = pq.NewListener(connStr, 10*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn(context.Background(), "change listener connection event", map[string]interface{}{
				"event": int(event), "error": err.Error(),
			})
		}
	})
	if err := l.listener.Listen(notifyChannel); err != nil {
		return nil, err
	}
	go l.dispatch()
	return l, nil
}

// Subscribe registers a handler for one project's change events
func (l *ChangeListener) Subscribe(projectID string, handler func(ports.ChangeEvent)) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handlers[projectID] == nil {
		l.handlers[projectID] = make(map[int]func(ports.ChangeEvent))
	}
	id := l.nextID
	l.nextID++
	l.handlers[projectID][id] = handler

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.handlers[projectID], id)
		if len(l.handlers[projectID]) == 0 {
			delete(l.handlers, projectID)
		}
	}, nil
}

// Close stops the feed
func (l *ChangeListener) Close() error {
	close(l.done)
	return l.listener.Close()
}

func (l *ChangeListener) dispatch() {
	for {
		select {
		case <-l.done:
			return
		case notification := <-l.listener.Notify:
			if notification == nil {
				// Reconnect signal; events during the gap are lost, the
				// next explicit load re-reads the full collection.
				continue
			}
			var event ports.ChangeEvent
			if err := json.Unmarshal([]byte(notification.Extra), &event); err != nil {
				l.log.Warn(context.Background(), "malformed change notification", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			l.deliver(event)
		case <-time.After(90 * time.Second):
			go l.listener.Ping()
		}
	}
}

func (l *ChangeListener) deliver(event ports.ChangeEvent) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, handler := range l.handlers[event.ProjectID] {
		handler(event)
	}
}
