package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const SecretHeader = "X-Channel-Secret"

type outboundPayload struct {
	Channel    Channel `json:"channel"`
	ExternalID string  `json:"externalId"`
	Text       string  `json:"text"`
}

// HTTPSender posts outbound messages to a platform adapter.
type HTTPSender struct {
	url    string
	secret string
	client *http.Client
}

func NewHTTPSender(url, secret string) *HTTPSender {
	return &HTTPSender{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSender) SendOutbound(ctx context.Context, c Channel, externalCustomerID, text string) error {
	body, err := json.Marshal(outboundPayload{
		Channel:    c,
		ExternalID: externalCustomerID,
		Text:       text,
	})
	if err != nil {
		return fmt.Errorf("marshal outbound: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build outbound request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.secret != "" {
		req.Header.Set(SecretHeader, s.secret)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: adapter returned %s body=%s", ErrUnavailable, resp.Status, string(respBody))
	}
	return nil
}
