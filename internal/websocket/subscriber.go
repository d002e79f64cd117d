package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"botpos-chat-backend/internal/logging"

	"github.com/gorilla/websocket"
)

// Subscriber is an admin-side client of the realtime stream. The stream
// carries no replay, so OnResync runs after every successful connect and
// is where callers refetch sessions and unread counts.
type Subscriber struct {
	URL      string
	Token    string
	Group    string
	Dialer   *websocket.Dialer
	Backoff  Backoff
	OnEvent  func(Envelope)
	OnResync func(ctx context.Context) error
	Logger   *slog.Logger
}

// Run connects and reconnects until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	logger := logging.OrDefault(s.Logger)
	for {
		err := s.session(ctx, logger)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay := s.Backoff.Next()
		logger.Warn("realtime connection lost", "error", err, "retry_in", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Subscriber) dialURL() (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	if s.Token != "" {
		q := u.Query()
		q.Set("token", s.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (s *Subscriber) session(ctx context.Context, logger *slog.Logger) error {
	target, err := s.dialURL()
	if err != nil {
		return err
	}
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, target, http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %s: %w", s.URL, resp.Status, err)
		}
		return fmt.Errorf("dial %s: %w", s.URL, err)
	}
	defer conn.Close()

	group := s.Group
	if group == "" {
		group = GroupAdmin
	}
	if err := conn.WriteJSON(joinRequest{Event: joinPrefix + group}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	s.Backoff.Reset()
	logger.Info("realtime connected", "url", s.URL, "group", group)

	if s.OnResync != nil {
		if err := s.OnResync(ctx); err != nil {
			logger.Warn("resync failed", "error", err)
		}
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			logger.Warn("discarding malformed realtime frame", "error", err)
			continue
		}
		if s.OnEvent != nil {
			s.OnEvent(env)
		}
	}
}
