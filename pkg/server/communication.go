package server

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/comms"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type requestKind int

const (
	registerRequest requestKind = iota
	messageRequest
	disconnectRequest
	statsRequest
)

// Request is a unit of work for the server's event loop.
type Request struct {
	kind       requestKind
	Connection *Connection
	Message    comms.Message
	reply      chan Stats
}

// Connection wraps a client websocket, handling communication. Outbound
// messages are queued on a bounded channel and written by a dedicated pump.
type Connection struct {
	ID     comms.ConnectionID
	log    *zap.Logger
	socket *websocket.Conn
	send   chan comms.Message

	// evicted is set by the event loop once the connection is being dropped
	// for falling behind.
	evicted   bool
	closeOnce sync.Once
}

func newConnection(log *zap.Logger, socket *websocket.Conn, bufferSize int) *Connection {
	id := comms.NewConnectionID()
	return &Connection{
		ID:     id,
		log:    log.With(zap.String("conn", string(id))),
		socket: socket,
		send:   make(chan comms.Message, bufferSize),
	}
}

// enqueue reports false when the outbound queue is full.
func (c *Connection) enqueue(message comms.Message) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Close closes the underlying socket. The read pump then reports the
// disconnection.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if c.socket == nil {
			return
		}
		if err := c.socket.Close(); err != nil {
			c.log.Debug("Error closing socket", zap.Error(err))
		}
	})
}

func (c *Connection) ReadMessage() (comms.Message, error) {
	var message comms.Message
	err := c.socket.ReadJSON(&message)
	return message, err
}

// readPump forwards client messages to the event loop until the socket
// fails, then reports the disconnection.
func (c *Connection) readPump(s *Server) {
	defer func() {
		s.submit(Request{kind: disconnectRequest, Connection: c})
		c.Close()
	}()

	c.socket.SetReadLimit(s.cfg.MaxMessageSize)
	c.socket.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		message, err := c.ReadMessage()
		if isDecodeError(err) {
			// Malformed frame; the connection itself is still usable
			c.log.Debug("Discarding malformed message", zap.Error(err))
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("Client errored or disconnected", zap.Error(err))
			} else {
				c.log.Debug("Connection closed", zap.Error(err))
			}
			return
		}
		if !s.submit(Request{kind: messageRequest, Connection: c, Message: message}) {
			return
		}
	}
}

// writePump writes queued messages and keepalive pings until the send
// channel is closed by the event loop.
func (c *Connection) writePump(s *Server) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(message); err != nil {
				c.log.Debug("ERROR writing message", zap.String("type", message.Type), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("ERROR writing ping", zap.Error(err))
				return
			}
		}
	}
}

// isDecodeError reports whether err came from decoding a complete frame
// rather than from the connection.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}
