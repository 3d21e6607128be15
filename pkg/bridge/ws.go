package bridge

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// wsClient is one WebSocket subscriber. Status pushes that outrun the
// connection are dropped rather than stalling the push loop.
type wsClient struct {
	id     int64
	conn   *websocket.Conn
	server *Server
	sendCh chan any
	done   chan struct{}
	mu     sync.Mutex
}

// statusNotification is the message pushed to WebSocket subscribers.
type statusNotification struct {
	Method string       `json:"method"`
	Params StatusReport `json:"params"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade: %v", err)
		return
	}

	c := &wsClient{
		id:     atomic.AddInt64(&s.nextWSID, 1),
		conn:   conn,
		server: s,
		sendCh: make(chan any, 16),
		done:   make(chan struct{}),
	}

	s.wsClientMu.Lock()
	s.wsClients[c.id] = c
	s.wsClientMu.Unlock()
	s.log.Info("websocket client %d connected", c.id)

	go c.writePump()

	// Push the current state right away so the client does not wait
	// for the first tick.
	c.send(statusNotification{Method: "notify_status", Params: s.statusReport()})

	c.readPump()
}

func (c *wsClient) send(msg any) {
	select {
	case c.sendCh <- msg:
	case <-c.done:
	default:
		c.server.log.Warn("dropping message to websocket client %d", c.id)
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}
	c.conn.Close()
}

func (c *wsClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.close()
	}()

	c.conn.SetReadLimit(4 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Inbound traffic is ignored, the socket is push-only. Reading
	// still runs so close frames and pongs are processed.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.log.Warn("websocket read: %v", err)
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (s *Server) removeClient(c *wsClient) {
	s.wsClientMu.Lock()
	delete(s.wsClients, c.id)
	s.wsClientMu.Unlock()
	s.log.Info("websocket client %d disconnected", c.id)
}

// pushLoop broadcasts the status to all subscribers at the configured
// rate.
func (s *Server) pushLoop() {
	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	for s.running.Load() {
		<-ticker.C

		s.wsClientMu.Lock()
		clients := make([]*wsClient, 0, len(s.wsClients))
		for _, c := range s.wsClients {
			clients = append(clients, c)
		}
		s.wsClientMu.Unlock()

		if len(clients) == 0 {
			continue
		}

		note := statusNotification{Method: "notify_status", Params: s.statusReport()}
		for _, c := range clients {
			c.send(note)
		}
	}
}
