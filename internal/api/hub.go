package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"linkview/internal/models"
	"linkview/internal/selection"
)

const (
	sendBuffer   = 16
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes state events to websocket clients. Publish never blocks: a
// client whose buffer is full misses the event and catches up on the next.
type Hub struct {
	log      *logrus.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
	stop    chan struct{}
	once    sync.Once
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
		stop:    make(chan struct{}),
	}
}

func encodeEvent(st selection.State) ([]byte, error) {
	return json.Marshal(models.StateEvent{Type: "state", Version: st.Version, Selected: st.Selection.Len()})
}

// Publish queues st for every connected client.
func (h *Hub) Publish(st selection.State) {
	data, err := encodeEvent(st)
	if err != nil {
		h.log.WithError(err).Error("encode state event")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.WithField("client", c.id).Debug("client slow, event dropped")
		}
	}
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.stop) })
}

// Serve upgrades the request and streams events until the client leaves.
// initial, if not nil, is sent first.
func (h *Hub) Serve(c echo.Context, initial *selection.State) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already answered the request.
		h.log.WithError(err).Warn("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	cl := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	if initial != nil {
		if data, err := encodeEvent(*initial); err == nil {
			cl.send <- data
		}
	}
	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, cl.id)
		h.mu.Unlock()
	}()
	log := h.log.WithField("client", cl.id)
	log.Debug("websocket client connected")

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	// Reads only detect disconnects; clients send nothing we act on.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Warn("websocket read")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case data := <-cl.send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.WithError(err).Debug("websocket write")
				return nil
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-readDone:
			log.Debug("websocket client left")
			return nil
		case <-h.stop:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
	}
}
