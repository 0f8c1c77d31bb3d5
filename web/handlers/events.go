package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// Analysis lifecycle event types broadcast to dashboard subscribers.
const (
	EventAnalysisStarted   = "analysis_started"
	EventAnalysisCompleted = "analysis_completed"
)

// AnalysisEvent is one lifecycle notification.
type AnalysisEvent struct {
	Type      string    `json:"type"`
	Mode      string    `json:"mode"`
	Filename  string    `json:"filename,omitempty"`
	Username  string    `json:"username,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type subscriber interface {
	sendChannel() chan []byte
	close()
}

// EventHub fans analysis lifecycle events out to WebSocket subscribers.
type EventHub struct {
	subscribers map[subscriber]bool
	broadcast   chan AnalysisEvent
	register    chan subscriber
	unregister  chan subscriber
	mu          sync.Mutex
	log         zerolog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewEventHub creates a hub; call Run on its own goroutine.
func NewEventHub(log zerolog.Logger) *EventHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventHub{
		subscribers: make(map[subscriber]bool),
		broadcast:   make(chan AnalysisEvent, 256),
		register:    make(chan subscriber),
		unregister:  make(chan subscriber),
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *EventHub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub] = true
			count := len(h.subscribers)
			h.mu.Unlock()
			h.log.Debug().Int("subscribers", count).Msg("event subscriber connected")

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.sendChannel())
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Error().Err(err).Msg("failed to marshal event")
				continue
			}
			h.mu.Lock()
			for sub := range h.subscribers {
				select {
				case sub.sendChannel() <- data:
				default:
					// Slow subscriber, drop it.
					close(sub.sendChannel())
					delete(h.subscribers, sub)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			return
		}
	}
}

// Stop shuts the hub down and disconnects every subscriber.
func (h *EventHub) Stop() {
	h.cancel()
	h.mu.Lock()
	for sub := range h.subscribers {
		close(sub.sendChannel())
		sub.close()
	}
	h.subscribers = make(map[subscriber]bool)
	h.mu.Unlock()
}

// Publish broadcasts an event; it never blocks the caller.
func (h *EventHub) Publish(event AnalysisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn().Msg("event broadcast channel full, dropping event")
	}
}

type wsSubscriber struct {
	hub  *EventHub
	conn *websocket.Conn
	send chan []byte
}

func (s *wsSubscriber) sendChannel() chan []byte { return s.send }

func (s *wsSubscriber) close() {
	if s.conn != nil {
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
	}
}

// ServeHTTP upgrades GET /ws requests into event subscriptions.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := &wsSubscriber{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- sub

	go sub.writePump()
	go sub.readPump()
}

func (s *wsSubscriber) writePump() {
	defer func() {
		s.hub.unregister <- s
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for message := range s.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := s.conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			return
		}
	}
}

// readPump drains client messages to detect disconnects.
func (s *wsSubscriber) readPump() {
	defer func() {
		s.hub.unregister <- s
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := s.conn.Read(context.Background()); err != nil {
			return
		}
	}
}
