package ramose

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/opencitations/ramose/pkg/logger"
)

// LiveLog broadcasts one event per served operation to every connected
// /ramose/live client, replacing the original dashboard's server-rendered
// request log with a push feed a client can tail.
type LiveLog struct {
	upgrader websocket.Upgrader
	bufSize  int

	mu      sync.RWMutex
	clients map[string]chan []byte
}

// LiveLogEvent is one broadcast entry.
type LiveLogEvent struct {
	Method string    `json:"method"`
	Path   string    `json:"path"`
	Status int       `json:"status"`
	At     time.Time `json:"at"`
}

// NewLiveLog returns a LiveLog whose per-client buffer holds bufSize
// pending events before a slow client starts dropping them.
func NewLiveLog(bufSize int) *LiveLog {
	return &LiveLog{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		bufSize: bufSize,
		clients: make(map[string]chan []byte),
	}
}

// Publish broadcasts one event to every connected client, dropping it
// for clients whose buffer is full rather than blocking the request
// that triggered it.
func (l *LiveLog) Publish(method, path string, status int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.clients) == 0 {
		return
	}

	payload, err := json.Marshal(LiveLogEvent{Method: method, Path: path, Status: status, At: time.Now()})
	if err != nil {
		logger.Warn("live log: failed to marshal event: %v", err)
		return
	}

	for id, ch := range l.clients {
		select {
		case ch <- payload:
		default:
			logger.Debug("live log: dropping event for slow client %s", id)
		}
	}
}

// HandleWebSocket upgrades the connection and streams events until the
// client disconnects.
func (l *LiveLog) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("live log: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	ch := make(chan []byte, l.bufSize)

	l.mu.Lock()
	l.clients[id] = ch
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.clients, id)
		l.mu.Unlock()
	}()

	go l.drainPings(conn, id)

	for payload := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// drainPings reads and discards client frames purely to detect when the
// peer closes the connection, at which point it closes ch so the write
// loop in HandleWebSocket returns.
func (l *LiveLog) drainPings(conn *websocket.Conn, id string) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			l.mu.Lock()
			if ch, ok := l.clients[id]; ok {
				delete(l.clients, id)
				close(ch)
			}
			l.mu.Unlock()
			return
		}
	}
}
