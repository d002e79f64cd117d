package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParse(t *testing.T) {
	c, err := Parse(" Telegram ")
	if err != nil || c != Telegram {
		t.Fatalf("Parse returned %q, %v", c, err)
	}
	if _, err := Parse("line"); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}

func TestRegistryWithoutAdapterIsUnavailable(t *testing.T) {
	reg := NewRegistry()
	err := reg.SendOutbound(context.Background(), Viber, "v-1", "hi")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRegistryWrapsSenderErrors(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Telegram, SenderFunc(func(ctx context.Context, c Channel, id, text string) error {
		return errors.New("bot blocked by user")
	}))
	err := reg.SendOutbound(context.Background(), Telegram, "t-1", "hi")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable wrap, got %v", err)
	}
}

func TestHTTPSenderPostsPayload(t *testing.T) {
	var got outboundPayload
	var secret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret = r.Header.Get(SecretHeader)
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewHTTPSender(srv.URL, "s3cret")
	if err := sender.SendOutbound(context.Background(), Messenger, "m-9", "Mingalaba"); err != nil {
		t.Fatalf("SendOutbound error: %v", err)
	}
	if got.Channel != Messenger || got.ExternalID != "m-9" || got.Text != "Mingalaba" {
		t.Fatalf("unexpected payload: %#v", got)
	}
	if secret != "s3cret" {
		t.Fatalf("expected secret header, got %q", secret)
	}
}

func TestHTTPSenderNon2xxIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewHTTPSender(srv.URL, "").SendOutbound(context.Background(), Telegram, "t-1", "hi")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
