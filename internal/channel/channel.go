// Package channel describes the bridge between the inbox and the external
// messaging platforms. Platform adapters live outside this repository; they
// post inbound traffic to the channel server and receive outbound text over
// HTTP.
package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Channel string

const (
	Telegram  Channel = "telegram"
	Viber     Channel = "viber"
	Messenger Channel = "messenger"
)

var All = []Channel{Telegram, Viber, Messenger}

// ErrUnavailable is returned when an outbound send did not reach the platform.
var ErrUnavailable = errors.New("channel unavailable")

func Parse(raw string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown channel %q", raw)
	}
	return c, nil
}

func (c Channel) Valid() bool {
	switch c {
	case Telegram, Viber, Messenger:
		return true
	}
	return false
}

func (c Channel) String() string {
	return string(c)
}

// Sender delivers admin-authored text to a customer on a platform.
type Sender interface {
	SendOutbound(ctx context.Context, channel Channel, externalCustomerID, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, channel Channel, externalCustomerID, text string) error

func (f SenderFunc) SendOutbound(ctx context.Context, channel Channel, externalCustomerID, text string) error {
	return f(ctx, channel, externalCustomerID, text)
}

// Registry routes outbound sends to the sender configured for each channel.
type Registry struct {
	senders map[Channel]Sender
}

func NewRegistry() *Registry {
	return &Registry{senders: make(map[Channel]Sender)}
}

func (r *Registry) Register(c Channel, s Sender) {
	r.senders[c] = s
}

func (r *Registry) Has(c Channel) bool {
	_, ok := r.senders[c]
	return ok
}

func (r *Registry) SendOutbound(ctx context.Context, c Channel, externalCustomerID, text string) error {
	s, ok := r.senders[c]
	if !ok {
		return fmt.Errorf("%w: no adapter configured for %s", ErrUnavailable, c)
	}
	if err := s.SendOutbound(ctx, c, externalCustomerID, text); err != nil {
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, c, err)
	}
	return nil
}
