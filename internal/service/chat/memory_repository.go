package chat

import (
	"context"
	"sort"
	"sync"

	"botpos-chat-backend/internal/model"
)

// MemoryRepository keeps everything in process. It backs local runs with
// STORAGE_BACKEND=memory and the tests.
type MemoryRepository struct {
	mu          sync.Mutex
	customers   map[string]model.CustomerItem
	identities  map[string]model.ChannelIdentityItem
	sessions    map[string]model.SessionItem
	messages    map[string][]model.MessageItem
	tags        map[string]model.TagItem
	sessionTags map[string]model.SessionTagItem
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		customers:   make(map[string]model.CustomerItem),
		identities:  make(map[string]model.ChannelIdentityItem),
		sessions:    make(map[string]model.SessionItem),
		messages:    make(map[string][]model.MessageItem),
		tags:        make(map[string]model.TagItem),
		sessionTags: make(map[string]model.SessionTagItem),
	}
}

func (m *MemoryRepository) GetCustomer(ctx context.Context, customerID string) (model.CustomerItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok {
		return model.CustomerItem{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryRepository) PutCustomer(ctx context.Context, customer model.CustomerItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[customer.CustomerID] = customer
	return nil
}

func (m *MemoryRepository) GetChannelIdentity(ctx context.Context, channel, externalID string) (model.ChannelIdentityItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[model.ChannelIdentityPK(channel, externalID)]
	if !ok {
		return model.ChannelIdentityItem{}, ErrNotFound
	}
	return id, nil
}

func (m *MemoryRepository) CreateChannelIdentity(ctx context.Context, identity model.ChannelIdentityItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.identities[identity.PK]; exists {
		return ErrExists
	}
	m.identities[identity.PK] = identity
	return nil
}

func (m *MemoryRepository) GetSession(ctx context.Context, sessionKey string) (model.SessionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey]
	if !ok {
		return model.SessionItem{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryRepository) CreateSession(ctx context.Context, session model.SessionItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[session.PK]; exists {
		return ErrExists
	}
	m.sessions[session.PK] = session
	return nil
}

func (m *MemoryRepository) ListSessions(ctx context.Context) ([]model.SessionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SessionItem, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryRepository) ListCustomerSessions(ctx context.Context, customerID string) ([]model.SessionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SessionItem
	for _, s := range m.sessions {
		if s.CustomerID == customerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryRepository) UpdateTyping(ctx context.Context, sessionKey string, isTyping bool, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey]
	if !ok {
		return ErrNotFound
	}
	s.IsTyping = isTyping
	s.TypingAt = at
	m.sessions[sessionKey] = s
	return nil
}

func (m *MemoryRepository) SetClosed(ctx context.Context, sessionKey string, closed bool, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey]
	if !ok {
		return ErrNotFound
	}
	s.IsClosed = closed
	s.UpdatedAt = at
	m.sessions[sessionKey] = s
	return nil
}

func (m *MemoryRepository) AppendMessage(ctx context.Context, msg model.MessageItem, prevSeq int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[msg.SessionKey]
	if !ok {
		return ErrNotFound
	}
	if s.MessageSeq != prevSeq {
		return ErrStaleSession
	}
	s.MessageSeq = msg.Seq
	s.LastMessageAt = msg.CreatedAt
	s.UpdatedAt = msg.CreatedAt
	if msg.SenderType == model.SenderCustomer {
		s.UnreadCount++
		s.IsClosed = false
	}
	m.sessions[msg.SessionKey] = s
	m.messages[msg.SessionKey] = append(m.messages[msg.SessionKey], msg)
	return nil
}

func (m *MemoryRepository) ListMessages(ctx context.Context, sessionKey string) ([]model.MessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.MessageItem, len(m.messages[sessionKey]))
	copy(out, m.messages[sessionKey])
	sortBySeq(out)
	return out, nil
}

func (m *MemoryRepository) ListAllMessages(ctx context.Context) ([]model.MessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.MessageItem
	for _, msgs := range m.messages {
		out = append(out, msgs...)
	}
	return out, nil
}

func (m *MemoryRepository) MarkRead(ctx context.Context, sessionKey string, msgs []model.MessageItem, seq int64, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey]
	if !ok {
		return ErrNotFound
	}
	ids := make(map[string]struct{}, len(msgs))
	for _, msg := range msgs {
		ids[msg.MessageID] = struct{}{}
	}
	stored := m.messages[sessionKey]
	for i := range stored {
		if _, hit := ids[stored[i].MessageID]; hit {
			stored[i].IsRead = true
		}
	}
	if s.MessageSeq != seq {
		return ErrStaleSession
	}
	s.UnreadCount = 0
	s.UpdatedAt = at
	m.sessions[sessionKey] = s
	return nil
}

func (m *MemoryRepository) ListTags(ctx context.Context) ([]model.TagItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TagItem, 0, len(m.tags))
	for _, t := range m.tags {
		out = append(out, t)
	}
	return out, nil
}

func (m *MemoryRepository) GetTag(ctx context.Context, tagID string) (model.TagItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[tagID]
	if !ok {
		return model.TagItem{}, ErrNotFound
	}
	return t, nil
}

func (m *MemoryRepository) CreateTag(ctx context.Context, tag model.TagItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tags[tag.TagID]; exists {
		return ErrExists
	}
	m.tags[tag.TagID] = tag
	return nil
}

func (m *MemoryRepository) ListSessionTags(ctx context.Context, sessionKey string) ([]model.SessionTagItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SessionTagItem
	for _, st := range m.sessionTags {
		if st.SessionKey == sessionKey {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return parseTime(out[i].CreatedAt).Before(parseTime(out[j].CreatedAt)) })
	return out, nil
}

func (m *MemoryRepository) ListAllSessionTags(ctx context.Context) ([]model.SessionTagItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SessionTagItem, 0, len(m.sessionTags))
	for _, st := range m.sessionTags {
		out = append(out, st)
	}
	return out, nil
}

func (m *MemoryRepository) PutSessionTag(ctx context.Context, item model.SessionTagItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionTags[item.PK] = item
	return nil
}

func (m *MemoryRepository) DeleteSessionTag(ctx context.Context, sessionKey, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessionTags, model.SessionTagPK(sessionKey, tagID))
	return nil
}

func sortBySeq(messages []model.MessageItem) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Seq < messages[j].Seq
	})
}
