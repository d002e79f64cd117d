package cli

import (
	"encoding/json"
	"testing"

	"botpos-chat-backend/internal/dto"
	"botpos-chat-backend/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelopeOf(t *testing.T, event websocket.Event) websocket.Envelope {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	var env websocket.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestFormatEvent(t *testing.T) {
	msg := dto.MessageResponse{
		MessageID:  "m-1",
		CustomerID: "c-1",
		Channel:    "viber",
		SenderType: "customer",
		Text:       "mingalaba",
		Attachment: &dto.AttachmentResponse{Name: "receipt.jpg"},
	}

	cases := []struct {
		name  string
		event websocket.Event
		want  string
	}{
		{"message", websocket.NewMessage("c-1", msg), "viber/c-1 customer: mingalaba [receipt.jpg]"},
		{"typing", websocket.Typing("c-1", true), "c-1 is typing"},
		{"read all", websocket.MessagesRead("c-1", nil), "c-1 read all"},
		{"read ids", websocket.MessagesRead("c-1", []string{"m-1", "m-2"}), "c-1 read 2 message(s)"},
		{"unread", websocket.UnreadCount(7), "total=7"},
		{"session", websocket.SessionUpdate(dto.SessionResponse{
			CustomerID: "c-1", Channel: "telegram", CustomerName: "Ma Hla", IsClosed: true,
			Tags: []dto.TagResponse{{Name: "vip"}},
		}), `telegram/c-1 "Ma Hla" unread=0 (closed, #vip)`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line := FormatEvent(envelopeOf(t, tc.event))
			assert.Contains(t, line, "["+tc.event.Name+"]")
			assert.Contains(t, line, tc.want)
		})
	}
}

func TestFormatEventUnknownFallsBackToRaw(t *testing.T) {
	line := FormatEvent(envelopeOf(t, websocket.NewEvent("custom", map[string]int{"n": 1})))
	assert.Contains(t, line, `[custom] {"n":1}`)
}
