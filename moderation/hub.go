// Package moderation pushes brigade flags to connected moderators.
package moderation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/soonab/Soonab-sub000/schema"
)

const (
	logPrefix = "moderation"

	subscriberBuffer = 16
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

// Hub fans flags out to subscribers. A subscriber that falls behind misses
// pushes instead of blocking the publisher.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan schema.BrigadeFlag
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]chan schema.BrigadeFlag),
	}
}

// Subscribe registers a subscriber under id.
func (h *Hub) Subscribe(id string) <-chan schema.BrigadeFlag {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		close(ch)
	}
	ch := make(chan schema.BrigadeFlag, subscriberBuffer)
	h.subscribers[id] = ch
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Publish implements reputation.FlagNotifier.
func (h *Hub) Publish(flag schema.BrigadeFlag) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- flag:
		default:
			log.WithFields(log.Fields{
				"prefix":     logPrefix,
				"subscriber": id,
			}).Warn("subscriber too slow, skipping push")
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close drops every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}

// ServeConn streams flags to a websocket connection as JSON until the peer
// goes away or the hub is closed. It owns conn and closes it on return.
func (h *Hub) ServeConn(conn *websocket.Conn) {
	id := uuid.New().String()
	flags := h.Subscribe(id)
	defer h.Unsubscribe(id)
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case flag, ok := <-flags:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(flag); err != nil {
				log.WithFields(log.Fields{
					"prefix":     logPrefix,
					"subscriber": id,
					"error":      err,
				}).Debug("write flag")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
