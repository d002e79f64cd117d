package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"botpos-chat-backend/internal/logging"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const joinTimeout = 10 * time.Second

type Handler struct {
	hub         *Hub
	redisClient *redis.Client
	upgrader    websocket.Upgrader
	pongWait    time.Duration
	logger      *slog.Logger
}

// NewHandler serves admin websocket clients from hub. rdb may be nil when
// events are published in-process. Origins containing "*" or empty allow
// any origin.
func NewHandler(hub *Hub, rdb *redis.Client, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		hub:         hub,
		redisClient: rdb,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		pongWait: pongWait,
		logger:   logging.OrDefault(logger),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *Handler) CreateRoom(id string) {
	if h.hub.EnsureRoom(id) {
		h.logger.Info("websocket room created", "room", id)
	}
}

// ServeAdmin upgrades the request and waits for the client to announce
// which group it joins. Only existing rooms can be joined.
func (h *Handler) ServeAdmin(w http.ResponseWriter, r *http.Request, adminID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("websocket upgrade failed", "error", err, "admin", adminID)
		return
	}
	conn.SetReadLimit(readLimit)

	roomID, err := h.awaitJoin(conn)
	if err != nil {
		h.logger.Warn("websocket join rejected", "error", err, "admin", adminID)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	cl := newClient(conn, uuid.NewString(), adminID, roomID, h.pongWait, h.logger)
	select {
	case h.hub.Register <- cl:
	case <-h.hub.Stopped():
		conn.Close()
		return
	}
	cl.logger.Info("websocket client joined")

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.hub)
}

func (h *Handler) awaitJoin(conn *websocket.Conn) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(joinTimeout)); err != nil {
		return "", err
	}
	_, frame, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read join: %w", err)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return "", err
	}

	var req joinRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		return "", fmt.Errorf("join frame is not json")
	}
	group, ok := strings.CutPrefix(req.Event, joinPrefix)
	if !ok || group == "" {
		return "", fmt.Errorf("expected %sgroup, got %q", joinPrefix, req.Event)
	}
	if !h.hub.HasRoom(group) {
		return "", fmt.Errorf("unknown group %q", group)
	}
	return group, nil
}

func (h *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.hub.Rooms())
}

// Subscribe relays the group's Redis channel into the hub until ctx ends,
// re-subscribing with capped exponential backoff whenever the
// subscription fails.
func (h *Handler) Subscribe(ctx context.Context, group string) error {
	if h.redisClient == nil {
		return fmt.Errorf("websocket subscribe: redis client not configured")
	}
	h.CreateRoom(group)

	channel := ChannelName(group)
	var backoff Backoff
	for {
		err := h.subscribeOnce(ctx, group, channel, backoff.Reset)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay := backoff.Next()
		h.logger.Warn("redis subscription lost", "channel", channel, "error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (h *Handler) subscribeOnce(ctx context.Context, group, channel string, onSubscribed func()) error {
	sub := h.redisClient.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	onSubscribed()
	h.logger.Info("subscribed to redis channel", "channel", channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription to %s closed", channel)
			}
			if err := h.hub.send(ctx, &WSMessage{
				Content:   msg.Payload,
				RoomID:    group,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				return err
			}
		}
	}
}
