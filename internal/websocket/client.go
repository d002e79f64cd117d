package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// pongWait is how long a client may stay silent, pong frames included.
	// Pings go out at half that interval.
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second
	readLimit  = 512 * 1024
	sendBuffer = 32
)

type WSClient struct {
	Conn     *websocket.Conn
	Message  chan *WSMessage
	ID       string
	AdminID  string
	RoomID   string
	done     chan struct{}
	mu       sync.Mutex
	isClosed bool
	pongWait time.Duration
	logger   *slog.Logger
}

func newClient(conn *websocket.Conn, id, adminID, roomID string, wait time.Duration, logger *slog.Logger) *WSClient {
	return &WSClient{
		Conn:     conn,
		Message:  make(chan *WSMessage, sendBuffer),
		ID:       id,
		AdminID:  adminID,
		RoomID:   roomID,
		done:     make(chan struct{}),
		pongWait: wait,
		logger:   logger.With("client", id, "admin", adminID, "room", roomID),
	}
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(cl.pongWait / 2)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			cl.mu.Unlock()

			if err != nil {
				cl.logger.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}

func (cl *WSClient) writeMessage() {
	defer cl.close()

	for {
		select {
		case <-cl.done:
			return
		case msg, ok := <-cl.Message:
			if !ok {
				return
			}

			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err == nil {
				err = cl.Conn.WriteMessage(websocket.TextMessage, []byte(msg.Content))
			}
			cl.mu.Unlock()

			if err != nil {
				cl.logger.Warn("websocket write failed", "error", err)
				return
			}
		}
	}
}

// readMessage drains client frames so control messages are processed.
// Admin clients have nothing to say after joining.
func (cl *WSClient) readMessage(hub *Hub) {
	defer func() {
		if r := recover(); r != nil {
			cl.logger.Error("recovered from panic in websocket reader", "panic", r)
		}
		close(cl.done)
		select {
		case hub.Unregister <- cl:
		case <-hub.Stopped():
		}
		cl.close()
		cl.logger.Info("websocket client disconnected")
	}()

	_ = cl.Conn.SetReadDeadline(time.Now().Add(cl.pongWait))
	cl.Conn.SetPongHandler(func(string) error {
		return cl.Conn.SetReadDeadline(time.Now().Add(cl.pongWait))
	})

	for {
		if _, _, err := cl.Conn.ReadMessage(); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) &&
				(closeErr.Code == websocket.CloseNormalClosure ||
					closeErr.Code == websocket.CloseGoingAway ||
					closeErr.Code == websocket.CloseNoStatusReceived) {
				return
			}
			cl.logger.Debug("websocket read ended", "error", err)
			return
		}
	}
}

func (cl *WSClient) close() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.isClosed {
		return
	}
	cl.isClosed = true
	cl.Conn.Close()
}
