// Package chat owns customer sessions and their message log: ordering,
// unread state, typing, tags, search and export, plus the calls the
// channel bridge makes for inbound and outbound traffic.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"botpos-chat-backend/internal/apperror"
	"botpos-chat-backend/internal/channel"
	"botpos-chat-backend/internal/database"
	"botpos-chat-backend/internal/dto"
	"botpos-chat-backend/internal/logging"
	"botpos-chat-backend/internal/model"
	"botpos-chat-backend/internal/websocket"

	"github.com/google/uuid"
)

const (
	// TypingTTL is how long a typing flag stays true without a refresh.
	TypingTTL = 3 * time.Second

	maxWriteAttempts = 5
	publishTimeout   = 2 * time.Second
	defaultSearchCap = 50
	maxSearchCap     = 200
)

// Notifier delivers realtime events to a broadcast group.
type Notifier interface {
	Publish(ctx context.Context, group string, event websocket.Event) error
}

// AttachmentSigner issues a fresh download URL for a stored object key.
type AttachmentSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

type Deps struct {
	Sender   channel.Sender
	Notifier Notifier
	Signer   AttachmentSigner
	Metrics  *Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

type Service struct {
	repo     Repository
	sender   channel.Sender
	notifier Notifier
	signer   AttachmentSigner
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
	locks    *keyedMutex
}

func New(db *database.Database, deps Deps) *Service {
	return NewWithRepository(NewDynamoRepository(db), deps)
}

func NewWithRepository(repo Repository, deps Deps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     repo,
		sender:   deps.Sender,
		notifier: deps.Notifier,
		signer:   deps.Signer,
		metrics:  deps.Metrics,
		logger:   logging.OrDefault(deps.Logger),
		now:      now,
		locks:    newKeyedMutex(),
	}
}

// Session is a session row with its tags. IsTyping is already aged out.
type Session struct {
	model.SessionItem
	Tags []model.TagItem
}

type AppendParams struct {
	CustomerID string
	Channel    string
	SenderType model.SenderType
	SenderID   string
	Text       string
	Attachment *model.Attachment
}

type MarkReadResult struct {
	MessageIDs  []string
	UnreadTotal int
}

type SearchResult struct {
	Message      model.MessageItem
	CustomerName string
}

func sessionNotFound(err error) error {
	return apperror.NotFound("session not found", err)
}

// resolveSession finds the customer's session on ch, or the most recently
// active one when ch is empty.
func (s *Service) resolveSession(ctx context.Context, customerID, ch string) (model.SessionItem, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return model.SessionItem{}, apperror.Validation("customerId is required")
	}

	if ch = strings.TrimSpace(ch); ch != "" {
		parsed, err := channel.Parse(ch)
		if err != nil {
			return model.SessionItem{}, apperror.Validation(err.Error())
		}
		session, err := s.repo.GetSession(ctx, model.SessionKey(customerID, parsed.String()))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return model.SessionItem{}, sessionNotFound(err)
			}
			return model.SessionItem{}, apperror.Internal("failed to load session", err)
		}
		return session, nil
	}

	sessions, err := s.repo.ListCustomerSessions(ctx, customerID)
	if err != nil {
		return model.SessionItem{}, apperror.Internal("failed to load sessions", err)
	}
	if len(sessions) == 0 {
		return model.SessionItem{}, sessionNotFound(ErrNotFound)
	}
	sortByActivity(sessions)
	return sessions[0], nil
}

func (s *Service) GetSession(ctx context.Context, customerID, ch string) (Session, error) {
	session, err := s.resolveSession(ctx, customerID, ch)
	if err != nil {
		return Session{}, err
	}
	return s.decorate(ctx, session)
}

func (s *Service) decorate(ctx context.Context, session model.SessionItem) (Session, error) {
	tags, err := s.tagsForSession(ctx, session.PK)
	if err != nil {
		return Session{}, apperror.Internal("failed to load session tags", err)
	}
	session.IsTyping = s.typingActive(session)
	return Session{SessionItem: session, Tags: tags}, nil
}

func (s *Service) ListSessions(ctx context.Context) ([]Session, error) {
	sessions, err := s.repo.ListSessions(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list sessions", err)
	}
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list tags", err)
	}
	links, err := s.repo.ListAllSessionTags(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list session tags", err)
	}

	tagByID := make(map[string]model.TagItem, len(tags))
	for _, t := range tags {
		tagByID[t.TagID] = t
	}
	sort.SliceStable(links, func(i, j int) bool { return parseTime(links[i].CreatedAt).Before(parseTime(links[j].CreatedAt)) })
	tagsBySession := make(map[string][]model.TagItem)
	for _, link := range links {
		if t, ok := tagByID[link.TagID]; ok {
			tagsBySession[link.SessionKey] = append(tagsBySession[link.SessionKey], t)
		}
	}

	sortByActivity(sessions)
	out := make([]Session, 0, len(sessions))
	for _, session := range sessions {
		session.IsTyping = s.typingActive(session)
		out = append(out, Session{SessionItem: session, Tags: tagsBySession[session.PK]})
	}
	return out, nil
}

// GetMessages returns the session history in order. A non-empty search
// keeps only messages containing it, compared case-insensitively.
func (s *Service) GetMessages(ctx context.Context, customerID, search, ch string) ([]model.MessageItem, error) {
	session, err := s.resolveSession(ctx, customerID, ch)
	if err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessages(ctx, session.PK)
	if err != nil {
		return nil, apperror.Internal("failed to list messages", err)
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	if needle != "" {
		filtered := messages[:0]
		for _, m := range messages {
			if strings.Contains(strings.ToLower(m.Body), needle) {
				filtered = append(filtered, m)
			}
		}
		messages = filtered
	}
	s.signAttachments(ctx, messages)
	return messages, nil
}

// signAttachments swaps stored attachment URLs, which expire, for freshly
// signed ones. Attachments are copied so repository rows stay untouched.
// Messages without an object key keep the URL they came with.
func (s *Service) signAttachments(ctx context.Context, messages []model.MessageItem) {
	if s.signer == nil {
		return
	}
	for i := range messages {
		att := messages[i].Attachment
		if att == nil || att.Key == "" {
			continue
		}
		url, err := s.signer.SignedURL(ctx, att.Key)
		if err != nil {
			s.logger.Warn("failed to sign attachment url", "messageId", messages[i].MessageID, "key", att.Key, "error", err)
			continue
		}
		signed := *att
		signed.URL = url
		messages[i].Attachment = &signed
	}
}

func validateContent(senderType model.SenderType, text string, attachment *model.Attachment) error {
	if !senderType.Valid() {
		return apperror.Validation("unknown sender type")
	}
	if strings.TrimSpace(text) == "" && attachment == nil {
		return apperror.Validation("message text or attachment is required")
	}
	return nil
}

func (s *Service) AppendMessage(ctx context.Context, p AppendParams) (model.MessageItem, error) {
	if err := validateContent(p.SenderType, p.Text, p.Attachment); err != nil {
		return model.MessageItem{}, err
	}
	session, err := s.resolveSession(ctx, p.CustomerID, p.Channel)
	if err != nil {
		return model.MessageItem{}, err
	}
	return s.appendAndPublish(ctx, session, p)
}

func (s *Service) appendAndPublish(ctx context.Context, session model.SessionItem, p AppendParams) (model.MessageItem, error) {
	msg, session, err := s.appendToSession(ctx, session, p)
	if err != nil {
		return model.MessageItem{}, err
	}
	s.metrics.messageAppended(string(msg.SenderType))

	events := []websocket.Event{
		websocket.NewMessage(msg.CustomerID, dto.NewMessageResponse(msg)),
		s.sessionEvent(ctx, session),
	}
	if msg.SenderType == model.SenderCustomer {
		if ev, ok := s.unreadEvent(ctx); ok {
			events = append(events, ev)
		}
	}
	s.publish(ctx, events...)
	return msg, nil
}

// appendToSession writes one message under the session lock. The sequence
// number orders messages; createdAt never goes backwards within a session.
func (s *Service) appendToSession(ctx context.Context, session model.SessionItem, p AppendParams) (model.MessageItem, model.SessionItem, error) {
	unlock := s.locks.Lock(session.PK)
	defer unlock()

	text := strings.TrimSpace(p.Text)
	for attempt := 1; ; attempt++ {
		now := s.now().UTC()
		if last := parseTime(session.LastMessageAt); now.Before(last) {
			now = last
		}
		at := now.Format(time.RFC3339Nano)

		messageID := uuid.NewString()
		msg := model.MessageItem{
			PK:         model.MessagePK(session.PK, messageID),
			SessionKey: session.PK,
			MessageID:  messageID,
			CustomerID: session.CustomerID,
			Channel:    session.Channel,
			SenderType: p.SenderType,
			SenderID:   strings.TrimSpace(p.SenderID),
			Body:       text,
			SearchText: searchText(text, p.Attachment),
			Attachment: p.Attachment,
			Seq:        session.MessageSeq + 1,
			CreatedAt:  at,
		}

		err := s.repo.AppendMessage(ctx, msg, session.MessageSeq)
		if err == nil {
			session.MessageSeq = msg.Seq
			session.LastMessageAt = at
			session.UpdatedAt = at
			if msg.SenderType == model.SenderCustomer {
				session.UnreadCount++
				session.IsClosed = false
			}
			return msg, session, nil
		}

		switch {
		case errors.Is(err, ErrNotFound):
			return model.MessageItem{}, session, sessionNotFound(err)
		case errors.Is(err, ErrStaleSession) && attempt < maxWriteAttempts:
			// Another process appended first; take its sequence and go again.
			fresh, getErr := s.repo.GetSession(ctx, session.PK)
			if getErr != nil {
				return model.MessageItem{}, session, apperror.PersistFailed("failed to store message", getErr)
			}
			session = fresh
		default:
			return model.MessageItem{}, session, apperror.PersistFailed("failed to store message", err)
		}
	}
}

func searchText(text string, attachment *model.Attachment) string {
	parts := []string{text}
	if attachment != nil && attachment.Name != "" {
		parts = append(parts, attachment.Name)
	}
	return strings.ToLower(strings.TrimSpace(strings.Join(parts, " ")))
}

// MarkRead flags every unread customer message read and zeroes the
// session's counter. Calling it again changes nothing and publishes nothing.
func (s *Service) MarkRead(ctx context.Context, customerID, ch string) (MarkReadResult, error) {
	session, err := s.resolveSession(ctx, customerID, ch)
	if err != nil {
		return MarkReadResult{}, err
	}

	marked, changed, session, err := s.markReadLocked(ctx, session)
	if err != nil {
		return MarkReadResult{}, err
	}

	total, err := s.unreadTotal(ctx)
	if err != nil {
		return MarkReadResult{}, apperror.Internal("failed to count unread messages", err)
	}
	result := MarkReadResult{MessageIDs: marked, UnreadTotal: total}
	if !changed {
		return result, nil
	}

	s.publish(ctx,
		websocket.MessagesRead(session.CustomerID, marked),
		websocket.UnreadCount(total),
		s.sessionEvent(ctx, session),
	)
	return result, nil
}

func (s *Service) markReadLocked(ctx context.Context, session model.SessionItem) ([]string, bool, model.SessionItem, error) {
	unlock := s.locks.Lock(session.PK)
	defer unlock()

	var marked []string
	for attempt := 1; ; attempt++ {
		messages, err := s.repo.ListMessages(ctx, session.PK)
		if err != nil {
			return nil, false, session, apperror.Internal("failed to list messages", err)
		}
		var unread []model.MessageItem
		for _, m := range messages {
			if m.SenderType == model.SenderCustomer && !m.IsRead {
				unread = append(unread, m)
			}
		}
		if len(unread) == 0 && session.UnreadCount == 0 {
			return marked, len(marked) > 0, session, nil
		}

		at := s.now().UTC().Format(time.RFC3339Nano)
		err = s.repo.MarkRead(ctx, session.PK, unread, session.MessageSeq, at)
		for _, m := range unread {
			marked = append(marked, m.MessageID)
		}
		if err == nil {
			session.UnreadCount = 0
			session.UpdatedAt = at
			return marked, true, session, nil
		}

		switch {
		case errors.Is(err, ErrNotFound):
			return nil, false, session, sessionNotFound(err)
		case errors.Is(err, ErrStaleSession) && attempt < maxWriteAttempts:
			fresh, getErr := s.repo.GetSession(ctx, session.PK)
			if getErr != nil {
				return nil, false, session, apperror.PersistFailed("failed to mark messages read", getErr)
			}
			session = fresh
		default:
			return nil, false, session, apperror.PersistFailed("failed to mark messages read", err)
		}
	}
}

// SetTyping records the typing flag. Writes race freely; the last one wins.
func (s *Service) SetTyping(ctx context.Context, customerID, ch string, isTyping bool) error {
	session, err := s.resolveSession(ctx, customerID, ch)
	if err != nil {
		return err
	}
	at := s.now().UTC().Format(time.RFC3339Nano)
	if err := s.repo.UpdateTyping(ctx, session.PK, isTyping, at); err != nil {
		if errors.Is(err, ErrNotFound) {
			return sessionNotFound(err)
		}
		return apperror.PersistFailed("failed to update typing state", err)
	}
	s.publish(ctx, websocket.Typing(session.CustomerID, isTyping))
	return nil
}

func (s *Service) typingActive(session model.SessionItem) bool {
	if !session.IsTyping {
		return false
	}
	at := parseTime(session.TypingAt)
	if at.IsZero() {
		return false
	}
	return s.now().Sub(at) < TypingTTL
}

func (s *Service) UnreadTotal(ctx context.Context) (int, error) {
	total, err := s.unreadTotal(ctx)
	if err != nil {
		return 0, apperror.Internal("failed to count unread messages", err)
	}
	return total, nil
}

func (s *Service) unreadTotal(ctx context.Context) (int, error) {
	sessions, err := s.repo.ListSessions(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, session := range sessions {
		total += session.UnreadCount
	}
	return total, nil
}

// SearchMessages looks through every session, newest first.
func (s *Service) SearchMessages(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, apperror.Validation("search query is required")
	}
	if limit <= 0 {
		limit = defaultSearchCap
	}
	if limit > maxSearchCap {
		limit = maxSearchCap
	}

	messages, err := s.repo.ListAllMessages(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to search messages", err)
	}
	sessions, err := s.repo.ListSessions(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list sessions", err)
	}
	names := make(map[string]string, len(sessions))
	for _, session := range sessions {
		names[session.PK] = session.CustomerName
	}

	var hits []model.MessageItem
	for _, m := range messages {
		haystack := m.SearchText
		if haystack == "" {
			haystack = strings.ToLower(m.Body)
		}
		if strings.Contains(haystack, needle) {
			hits = append(hits, m)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		ti, tj := parseTime(hits[i].CreatedAt), parseTime(hits[j].CreatedAt)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return hits[i].Seq > hits[j].Seq
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	s.signAttachments(ctx, hits)

	results := make([]SearchResult, 0, len(hits))
	for _, m := range hits {
		results = append(results, SearchResult{Message: m, CustomerName: names[m.SessionKey]})
	}
	return results, nil
}

// CloseSession marks the session closed. The next customer message
// reopens it.
func (s *Service) CloseSession(ctx context.Context, customerID, ch string) (Session, error) {
	session, err := s.resolveSession(ctx, customerID, ch)
	if err != nil {
		return Session{}, err
	}
	at := s.now().UTC().Format(time.RFC3339Nano)
	if err := s.repo.SetClosed(ctx, session.PK, true, at); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, sessionNotFound(err)
		}
		return Session{}, apperror.PersistFailed("failed to close session", err)
	}
	session.IsClosed = true
	session.UpdatedAt = at

	out, err := s.decorate(ctx, session)
	if err != nil {
		return Session{}, err
	}
	s.publish(ctx, websocket.SessionUpdate(dto.NewSessionResponse(out.SessionItem, out.Tags)))
	return out, nil
}

func (s *Service) sessionEvent(ctx context.Context, session model.SessionItem) websocket.Event {
	tags, err := s.tagsForSession(ctx, session.PK)
	if err != nil {
		s.logger.Warn("session snapshot without tags", "session", session.PK, "error", err)
	}
	session.IsTyping = s.typingActive(session)
	return websocket.SessionUpdate(dto.NewSessionResponse(session, tags))
}

func (s *Service) unreadEvent(ctx context.Context) (websocket.Event, bool) {
	total, err := s.unreadTotal(ctx)
	if err != nil {
		s.logger.Warn("failed to count unread messages for event", "error", err)
		return websocket.Event{}, false
	}
	return websocket.UnreadCount(total), true
}

// publish is best effort: failures are logged and counted and never undo
// the write that caused the event.
func (s *Service) publish(ctx context.Context, events ...websocket.Event) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	for _, ev := range events {
		if err := s.notifier.Publish(ctx, websocket.GroupAdmin, ev); err != nil {
			s.metrics.publishFailed()
			s.logger.Warn("failed to publish realtime event", "event", ev.Name, "error", err)
		}
	}
}

func sortByActivity(sessions []model.SessionItem) {
	sort.SliceStable(sessions, func(i, j int) bool {
		ti, tj := parseTime(sessions[i].LastMessageAt), parseTime(sessions[j].LastMessageAt)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return sessions[i].PK < sessions[j].PK
	})
}

func parseTime(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
