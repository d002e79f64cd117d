package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"botpos-chat-backend/internal/env"
	"botpos-chat-backend/internal/websocket"

	"github.com/spf13/cobra"
)

func runTail(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	sub := &websocket.Subscriber{
		URL:      flagOrEnv(wsURL, env.InboxWSURL, "ws://localhost:83/api/ws/v1/admin"),
		Token:    client.Token,
		Group:    websocket.GroupAdmin,
		Backoff:  websocket.Backoff{Min: 500 * time.Millisecond, Max: 30 * time.Second},
		OnEvent:  func(e websocket.Envelope) { fmt.Fprintln(out, FormatEvent(e)) },
		OnResync: resync(client, out),
		Logger:   logger,
	}

	err := sub.Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// resync refetches what the stream cannot replay.
func resync(c *Client, out io.Writer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sessions, err := c.Sessions(ctx)
		if err != nil {
			return fmt.Errorf("fetch sessions: %w", err)
		}
		unread, err := c.UnreadCount(ctx)
		if err != nil {
			return fmt.Errorf("fetch unread count: %w", err)
		}
		PrintSnapshot(out, sessions, unread)
		return nil
	}
}
