package websocket

import "time"

const (
	DefaultMinBackoff = 250 * time.Millisecond
	DefaultMaxBackoff = 30 * time.Second
)

// Backoff doubles from Min up to Max. The zero value uses the defaults.
type Backoff struct {
	Min     time.Duration
	Max     time.Duration
	attempt int
}

func (b *Backoff) Next() time.Duration {
	lo, hi := b.Min, b.Max
	if lo <= 0 {
		lo = DefaultMinBackoff
	}
	if hi <= 0 {
		hi = DefaultMaxBackoff
	}
	if b.attempt >= 32 {
		return hi
	}
	d := lo << b.attempt
	if d <= 0 || d > hi {
		return hi
	}
	b.attempt++
	return d
}

func (b *Backoff) Reset() {
	b.attempt = 0
}
