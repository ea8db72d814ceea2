package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"blackjack-ql/apps/server/internal/lobby"
	"blackjack-ql/apps/server/internal/table"
	"blackjack-ql/blackjack"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	readLimit    = 4096
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 256
)

// Connection is one WebSocket client and the table it plays at.
type Connection struct {
	ID       string
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway
	Table    *table.Table
	LastPing time.Time
}

// Gateway manages WebSocket connections
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	lobby       *lobby.Lobby
	upgrader    websocket.Upgrader
	logger      *log.Logger
}

type clientMessage struct {
	Type string `json:"type"`
}

// New creates a gateway. allowedOrigins of "*" (or empty) accepts any origin.
func New(lby *lobby.Lobby, allowedOrigins []string, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.Default()
	}
	g := &Gateway{
		connections: make(map[string]*Connection),
		lobby:       lby,
		logger:      logger.WithPrefix("gateway"),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return g
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

// HandleWebSocket upgrades the request and seats the client at a fresh table.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("upgrade failed", "err", err)
		return
	}

	c := &Connection{
		ID:       uuid.NewString(),
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		Gateway:  g,
		LastPing: time.Now(),
	}
	t, err := g.lobby.OpenTable(c.enqueue)
	if err != nil {
		g.logger.Error("open table failed", "err", err)
		_ = conn.Close()
		return
	}
	c.Table = t

	g.mu.Lock()
	g.connections[c.ID] = c
	total := len(g.connections)
	g.mu.Unlock()

	g.logger.Info("client connected", "conn", c.ID, "table", t.ID, "total", total)

	go c.readPump()
	go c.writePump()
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.LastPing = time.Now()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Gateway.logger.Warn("read error", "conn", c.ID, "err", err)
			}
			break
		}
		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid_message", "invalid message format")
		return
	}
	eventType, err := table.ParseEventType(strings.ToLower(strings.TrimSpace(msg.Type)))
	if err != nil {
		c.sendError("unknown_type", err.Error())
		return
	}
	c.Gateway.logger.Debug("received", "conn", c.ID, "type", eventType)

	if err := c.Table.SubmitEvent(table.Event{Type: eventType}); err != nil {
		c.sendError(errorCode(err), err.Error())
	}
}

func errorCode(err error) string {
	var invalid blackjack.InvalidStateError
	switch {
	case errors.Is(err, blackjack.ErrRoundNotDealt):
		return "not_dealt"
	case errors.Is(err, blackjack.ErrRoundFinished):
		return "hand_over"
	case errors.Is(err, blackjack.ErrPlayerBusted):
		return "busted"
	case errors.Is(err, table.ErrHandActive), errors.As(err, &invalid):
		return "hand_active"
	case errors.Is(err, table.ErrTableClosed):
		return "table_closed"
	default:
		return "internal"
	}
}

func (c *Connection) sendError(code, msg string) {
	data, err := json.Marshal(table.Message{
		Type:  table.MessageError,
		Error: &table.ErrorBody{Code: code, Message: msg},
	})
	if err != nil {
		return
	}
	c.enqueue(data)
}

// enqueue never blocks the table actor; frames are dropped if the client lags.
func (c *Connection) enqueue(data []byte) {
	select {
	case c.Send <- data:
	default:
		c.Gateway.logger.Warn("send buffer full, dropping frame", "conn", c.ID)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeConnection stops the client's table before closing Send, so the
// actor can no longer enqueue onto a closed channel.
func (g *Gateway) removeConnection(c *Connection) {
	c.Table.Stop()
	g.lobby.CloseTable(c.Table.ID)

	g.mu.Lock()
	delete(g.connections, c.ID)
	total := len(g.connections)
	g.mu.Unlock()

	close(c.Send)
	g.logger.Info("client disconnected", "conn", c.ID, "total", total)
}

// Connections is the number of open clients.
func (g *Gateway) Connections() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}
