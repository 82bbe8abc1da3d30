package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/yegors/skytrack/pkg/logger"
)

// Message types sent by the browser
const (
	MessageTypeViewUpdate     = "view_update"
	MessageTypeSelect         = "select"
	MessageTypeClearSelection = "clear_selection"
)

// Message types sent to the browser
const (
	MessageTypeFlights       = "flights"
	MessageTypeAirports      = "airports"
	MessageTypeFlightDetail  = "flight_detail"
	MessageTypeAirportDetail = "airport_detail"
	MessageTypeFlightPath    = "flight_path"
	MessageTypeError         = "error"
)

// Frame encodings
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// Message is an outgoing frame
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// inbound is an incoming frame. Browsers always send JSON text frames.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Handler owns the per-connection lifecycle. Connect runs before the first
// message is read and Disconnect after the last one.
type Handler interface {
	Connect(client *Client)
	HandleMessage(client *Client, messageType string, data json.RawMessage) error
	Disconnect(client *Client)
}

// Client represents a WebSocket client
type Client struct {
	id        string
	format    string
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	mu        sync.Mutex
	closed    bool
	closeChan chan struct{}
}

// Server accepts WebSocket connections and tracks connected clients
type Server struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	upgrader   websocket.Upgrader
	handler    Handler
	logger     *logger.Logger
	mu         sync.RWMutex
	done       chan struct{}
}

// NewServer creates a new WebSocket server. allowOrigin decides which
// browser origins may connect; nil allows all.
func NewServer(handler Handler, allowOrigin func(origin string) bool, loggerObj *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowOrigin == nil || allowOrigin(origin)
			},
		},
		handler: handler,
		logger:  loggerObj.Named("web-socket"),
		done:    make(chan struct{}),
	}
}

// Run serves registrations until ctx is done, then closes every client
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("Starting WebSocket server")
	defer close(s.done)

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client registered", logger.String("client", client.id), logger.Int("client_count", clientCount))

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.mu.Lock()
				client.closed = true
				client.mu.Unlock()
				close(client.send)
			}
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client unregistered", logger.String("client", client.id), logger.Int("client_count", clientCount))

		case <-ctx.Done():
			s.mu.RLock()
			for client := range s.clients {
				client.Close()
			}
			s.mu.RUnlock()
			s.logger.Info("WebSocket server stopped")
			return
		}
	}
}

// ClientCount returns the number of registered clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleConnection upgrades the request and starts the client pumps.
// ?format=msgpack switches outgoing frames to binary msgpack.
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	format := FormatJSON
	if r.URL.Query().Get("format") == FormatMsgpack {
		format = FormatMsgpack
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			logger.Error(err),
			logger.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		id:        uuid.NewString(),
		format:    format,
		conn:      conn,
		send:      make(chan *Message, sendBufferSize),
		server:    s,
		closeChan: make(chan struct{}),
	}

	s.logger.Info("View connected",
		logger.String("client", client.id),
		logger.String("remote_addr", r.RemoteAddr),
		logger.String("format", format),
		logger.String("user_agent", r.UserAgent()))

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ID identifies the client in logs
func (c *Client) ID() string { return c.id }

// Send queues a message for this client. It never blocks; a full buffer
// drops the message.
func (c *Client) Send(messageType string, data any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- &Message{Type: messageType, Data: data}:
		return true
	default:
		c.server.logger.Warn("Send buffer full, dropping message",
			logger.String("client", c.id),
			logger.String("message_type", messageType))
		return false
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.closeChan)
	c.conn.Close()
}

// readPump pumps messages from the connection to the handler
func (c *Client) readPump() {
	if c.server.handler != nil {
		c.server.handler.Connect(c)
	}

	defer func() {
		if c.server.handler != nil {
			c.server.handler.Disconnect(c)
		}
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
		c.server.logger.Info("View disconnected", logger.String("client", c.id))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", logger.Error(err))
			}
			return
		}

		var message inbound
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.server.logger.Error("Failed to parse WebSocket message", logger.Error(err))
			continue
		}

		c.server.logger.Debug("Received WebSocket message",
			logger.String("type", message.Type),
			logger.String("client", c.id))

		if c.server.handler != nil {
			if err := c.server.handler.HandleMessage(c, message.Type, message.Data); err != nil {
				c.server.logger.Error("Failed to handle WebSocket message",
					logger.Error(err),
					logger.String("type", message.Type))
				c.Send(MessageTypeError, map[string]string{"type": message.Type, "error": err.Error()})
			}
		}
	}
}

// writePump pumps queued messages to the connection and keeps it alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			frameType, data, err := encode(c.format, message)
			if err != nil {
				c.server.logger.Error("Failed to encode message", logger.Error(err), logger.String("message_type", message.Type))
				continue
			}

			if err := c.conn.WriteMessage(frameType, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

// encode renders a message as a JSON text frame or a msgpack binary frame.
// msgpack reuses the json tags so both encodings share field names.
func encode(format string, message *Message) (int, []byte, error) {
	if format != FormatMsgpack {
		data, err := json.Marshal(message)
		return websocket.TextMessage, data, err
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(message); err != nil {
		return 0, nil, err
	}
	return websocket.BinaryMessage, buf.Bytes(), nil
}
