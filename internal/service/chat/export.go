package chat

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"botpos-chat-backend/internal/apperror"
	"botpos-chat-backend/internal/model"
)

const (
	ExportCSV = "csv"
	ExportTXT = "txt"
)

type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportConversation renders a session's full history as a download.
func (s *Service) ExportConversation(ctx context.Context, customerID, ch, format string) (Export, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportCSV
	}
	if format != ExportCSV && format != ExportTXT {
		return Export{}, apperror.Validation("format must be csv or txt")
	}

	session, err := s.resolveSession(ctx, customerID, ch)
	if err != nil {
		return Export{}, err
	}
	messages, err := s.repo.ListMessages(ctx, session.PK)
	if err != nil {
		return Export{}, apperror.Internal("failed to list messages", err)
	}
	s.signAttachments(ctx, messages)

	now := s.now().UTC()
	filename := fmt.Sprintf("conversation-%s-%s-%s.%s", session.CustomerID, session.Channel, now.Format("20060102"), format)

	if format == ExportTXT {
		return Export{
			Filename:    filename,
			ContentType: "text/plain; charset=utf-8",
			Body:        renderText(session, messages, now),
		}, nil
	}

	body, err := renderCSV(messages)
	if err != nil {
		return Export{}, apperror.Internal("failed to render export", err)
	}
	return Export{Filename: filename, ContentType: "text/csv; charset=utf-8", Body: body}, nil
}

func renderCSV(messages []model.MessageItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"seq", "created_at", "sender_type", "sender_id", "text", "attachment_name", "attachment_url", "is_read"}); err != nil {
		return nil, err
	}
	for _, m := range messages {
		var attName, attURL string
		if m.Attachment != nil {
			attName, attURL = m.Attachment.Name, m.Attachment.URL
		}
		record := []string{
			strconv.FormatInt(m.Seq, 10),
			m.CreatedAt,
			string(m.SenderType),
			m.SenderID,
			m.Body,
			attName,
			attURL,
			strconv.FormatBool(m.IsRead),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func renderText(session model.SessionItem, messages []model.MessageItem, now time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation with %s (%s)\n", session.CustomerName, session.Channel)
	fmt.Fprintf(&b, "Exported %s\n\n", now.Format("2006-01-02 15:04:05 MST"))
	for _, m := range messages {
		stamp := m.CreatedAt
		if t := parseTime(m.CreatedAt); !t.IsZero() {
			stamp = t.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", stamp, senderLabel(m.SenderType), m.Body)
		if m.Attachment != nil {
			fmt.Fprintf(&b, "    attachment: %s <%s>\n", m.Attachment.Name, m.Attachment.URL)
		}
	}
	return []byte(b.String())
}

func senderLabel(t model.SenderType) string {
	switch t {
	case model.SenderCustomer:
		return "Customer"
	case model.SenderAdmin:
		return "Admin"
	case model.SenderBot:
		return "Bot"
	}
	return string(t)
}
