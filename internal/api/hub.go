package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/openusage/openusage/internal/channels"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	subscriberSize = 64
)

// WsMessage is one frame on the probe event stream
type WsMessage struct {
	Event     string    `json:"event"`
	BatchID   string    `json:"batchId"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Loopback only; CORS guards the REST routes
	CheckOrigin: func(*http.Request) bool { return true },
}

// subscriber is one connected UI
type subscriber struct {
	conn   *websocket.Conn
	frames chan []byte
}

// Hub fans probe events out to every connected subscriber.
// The subscriber set is owned by the Run goroutine.
type Hub struct {
	subscribers map[*subscriber]struct{}

	frames chan []byte
	join   chan *subscriber
	leave  chan *subscriber

	done     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

// NewHub creates an idle hub; start it with Run
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		frames:      make(chan []byte, 256),
		join:        make(chan *subscriber),
		leave:       make(chan *subscriber),
		done:        make(chan struct{}),
		logger:      logger.With("component", "event_hub"),
	}
}

// Run owns the subscriber set until Stop
func (h *Hub) Run() {
	for {
		select {
		case s := <-h.join:
			h.subscribers[s] = struct{}{}
			h.logger.Debug("Event subscriber joined", "subscribers", len(h.subscribers))
		case s := <-h.leave:
			h.drop(s)
		case frame := <-h.frames:
			for s := range h.subscribers {
				select {
				case s.frames <- frame:
				default:
					h.logger.Warn("Dropping slow event subscriber", "remote", s.conn.RemoteAddr().String())
					h.drop(s)
				}
			}
		case <-h.done:
			for s := range h.subscribers {
				h.drop(s)
			}
			return
		}
	}
}

func (h *Hub) drop(s *subscriber) {
	if _, ok := h.subscribers[s]; !ok {
		return
	}
	delete(h.subscribers, s)
	close(s.frames)
}

// Stop disconnects every subscriber; Publish becomes a no-op
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish is a channels.Sink that encodes the event as one frame
func (h *Hub) Publish(event channels.ProbeEvent) {
	frame, err := json.Marshal(WsMessage{
		Event:     event.Type,
		BatchID:   event.BatchID,
		Payload:   event.Payload(),
		Timestamp: event.Timestamp,
	})
	if err != nil {
		h.logger.Error("Failed to encode probe event", "event", event.Type, "error", err)
		return
	}

	select {
	case h.frames <- frame:
	case <-h.done:
	}
}

// ServeWs handles GET /api/v1/events. It returns once the subscriber is
// registered, so no event published afterwards is missed.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	s := &subscriber{conn: conn, frames: make(chan []byte, subscriberSize)}
	select {
	case h.join <- s:
	case <-h.done:
		conn.Close()
		return
	}

	go h.write(s)
	go h.read(s)
}

// read discards client messages; it exists to process pongs and notice disconnects
func (h *Hub) read(s *subscriber) {
	defer func() {
		select {
		case h.leave <- s:
		case <-h.done:
		}
		s.conn.Close()
	}()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Event subscriber disconnected", "error", err)
			}
			return
		}
	}
}

// write sends each frame as its own text message and pings while idle
func (h *Hub) write(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.frames:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
