package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"botpos-chat-backend/internal/dto"
	"botpos-chat-backend/internal/websocket"
)

// FormatEvent renders one realtime event as a single line.
func FormatEvent(env websocket.Envelope) string {
	ts := time.UnixMilli(env.Timestamp).Format("15:04:05")

	switch env.Name {
	case websocket.EventNewMessage:
		var p struct {
			CustomerID string              `json:"customerId"`
			Message    dto.MessageResponse `json:"message"`
		}
		if json.Unmarshal(env.Data, &p) == nil {
			return fmt.Sprintf("%s [%s] %s/%s %s: %s", ts, env.Name, p.Message.Channel, p.CustomerID, p.Message.SenderType, messageText(p.Message))
		}
	case websocket.EventTyping:
		var p websocket.TypingPayload
		if json.Unmarshal(env.Data, &p) == nil {
			state := "stopped typing"
			if p.IsTyping {
				state = "is typing"
			}
			return fmt.Sprintf("%s [%s] %s %s", ts, env.Name, p.CustomerID, state)
		}
	case websocket.EventMessagesRead:
		var p struct {
			CustomerID string          `json:"customerId"`
			MessageIDs json.RawMessage `json:"messageIds"`
		}
		if json.Unmarshal(env.Data, &p) == nil {
			return fmt.Sprintf("%s [%s] %s %s", ts, env.Name, p.CustomerID, readSummary(p.MessageIDs))
		}
	case websocket.EventUnreadCount:
		var p websocket.UnreadCountPayload
		if json.Unmarshal(env.Data, &p) == nil {
			return fmt.Sprintf("%s [%s] total=%d", ts, env.Name, p.Total)
		}
	case websocket.EventSessionUpdate:
		var p struct {
			Session dto.SessionResponse `json:"session"`
		}
		if json.Unmarshal(env.Data, &p) == nil {
			return fmt.Sprintf("%s [%s] %s", ts, env.Name, sessionLine(p.Session))
		}
	}
	return fmt.Sprintf("%s [%s] %s", ts, env.Name, string(env.Data))
}

func messageText(m dto.MessageResponse) string {
	text := m.Text
	if m.Attachment != nil {
		text = strings.TrimSpace(text + " [" + m.Attachment.Name + "]")
	}
	return text
}

func readSummary(raw json.RawMessage) string {
	var all string
	if json.Unmarshal(raw, &all) == nil {
		return "read " + all
	}
	var ids []string
	if json.Unmarshal(raw, &ids) == nil {
		return fmt.Sprintf("read %d message(s)", len(ids))
	}
	return "read"
}

func sessionLine(s dto.SessionResponse) string {
	var flags []string
	if s.IsClosed {
		flags = append(flags, "closed")
	}
	if s.IsTyping {
		flags = append(flags, "typing")
	}
	for _, t := range s.Tags {
		flags = append(flags, "#"+t.Name)
	}
	line := fmt.Sprintf("%s/%s %q unread=%d", s.Channel, s.CustomerID, s.CustomerName, s.UnreadCount)
	if len(flags) > 0 {
		line += " (" + strings.Join(flags, ", ") + ")"
	}
	return line
}

// PrintSnapshot writes the session list and unread total fetched on resync.
func PrintSnapshot(w io.Writer, sessions []dto.SessionResponse, unread int) {
	fmt.Fprintf(w, "-- %d session(s), %d unread --\n", len(sessions), unread)
	for _, s := range sessions {
		fmt.Fprintln(w, "  "+sessionLine(s))
	}
}
