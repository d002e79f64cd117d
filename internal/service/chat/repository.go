package chat

import (
	"context"
	"errors"

	"botpos-chat-backend/internal/database"
	"botpos-chat-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrNotFound = errors.New("chat repository: not found")
	// ErrStaleSession means the session changed since it was read.
	ErrStaleSession = errors.New("chat repository: session changed concurrently")
	ErrExists       = errors.New("chat repository: already exists")
)

type Repository interface {
	GetCustomer(ctx context.Context, customerID string) (model.CustomerItem, error)
	PutCustomer(ctx context.Context, customer model.CustomerItem) error
	GetChannelIdentity(ctx context.Context, channel, externalID string) (model.ChannelIdentityItem, error)
	CreateChannelIdentity(ctx context.Context, identity model.ChannelIdentityItem) error

	GetSession(ctx context.Context, sessionKey string) (model.SessionItem, error)
	CreateSession(ctx context.Context, session model.SessionItem) error
	ListSessions(ctx context.Context) ([]model.SessionItem, error)
	ListCustomerSessions(ctx context.Context, customerID string) ([]model.SessionItem, error)
	UpdateTyping(ctx context.Context, sessionKey string, isTyping bool, at string) error
	SetClosed(ctx context.Context, sessionKey string, closed bool, at string) error

	// AppendMessage stores msg and advances its session from prevSeq to
	// msg.Seq in one write. It fails with ErrStaleSession when the session's
	// sequence is no longer prevSeq.
	AppendMessage(ctx context.Context, msg model.MessageItem, prevSeq int64) error
	ListMessages(ctx context.Context, sessionKey string) ([]model.MessageItem, error)
	ListAllMessages(ctx context.Context) ([]model.MessageItem, error)
	// MarkRead flags msgs read and zeroes the unread counter, provided the
	// session is still at seq. The message flags are written first and stay
	// set when it fails with ErrStaleSession; callers retrying after that
	// error count those messages as already marked.
	MarkRead(ctx context.Context, sessionKey string, msgs []model.MessageItem, seq int64, at string) error

	ListTags(ctx context.Context) ([]model.TagItem, error)
	GetTag(ctx context.Context, tagID string) (model.TagItem, error)
	CreateTag(ctx context.Context, tag model.TagItem) error
	ListSessionTags(ctx context.Context, sessionKey string) ([]model.SessionTagItem, error)
	ListAllSessionTags(ctx context.Context) ([]model.SessionTagItem, error)
	PutSessionTag(ctx context.Context, item model.SessionTagItem) error
	DeleteSessionTag(ctx context.Context, sessionKey, tagID string) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) GetCustomer(ctx context.Context, customerID string) (model.CustomerItem, error) {
	var customer model.CustomerItem
	err := r.db.Client.GetItem(ctx, model.CustomersTable, database.StringKey("customerId", customerID), &customer)
	if err != nil {
		if database.IsNotFound(err) {
			return model.CustomerItem{}, ErrNotFound
		}
		return model.CustomerItem{}, err
	}
	return customer, nil
}

func (r *DynamoRepository) PutCustomer(ctx context.Context, customer model.CustomerItem) error {
	return r.db.Client.PutItem(ctx, model.CustomersTable, customer)
}

func (r *DynamoRepository) GetChannelIdentity(ctx context.Context, channel, externalID string) (model.ChannelIdentityItem, error) {
	var identity model.ChannelIdentityItem
	err := r.db.Client.GetItem(ctx, model.ChannelIdentitiesTable,
		database.StringKey("pk", model.ChannelIdentityPK(channel, externalID)), &identity)
	if err != nil {
		if database.IsNotFound(err) {
			return model.ChannelIdentityItem{}, ErrNotFound
		}
		return model.ChannelIdentityItem{}, err
	}
	return identity, nil
}

func (r *DynamoRepository) CreateChannelIdentity(ctx context.Context, identity model.ChannelIdentityItem) error {
	err := r.db.Client.PutItemIfAbsent(ctx, model.ChannelIdentitiesTable, "pk", identity)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrExists
	}
	return err
}

func (r *DynamoRepository) GetSession(ctx context.Context, sessionKey string) (model.SessionItem, error) {
	var session model.SessionItem
	err := r.db.Client.GetItem(ctx, model.SessionsTable, database.StringKey("pk", sessionKey), &session)
	if err != nil {
		if database.IsNotFound(err) {
			return model.SessionItem{}, ErrNotFound
		}
		return model.SessionItem{}, err
	}
	return session, nil
}

func (r *DynamoRepository) CreateSession(ctx context.Context, session model.SessionItem) error {
	err := r.db.Client.PutItemIfAbsent(ctx, model.SessionsTable, "pk", session)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrExists
	}
	return err
}

func (r *DynamoRepository) ListSessions(ctx context.Context) ([]model.SessionItem, error) {
	items, err := r.db.Client.ScanAll(ctx, model.SessionsTable)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalAll[model.SessionItem](items)
}

func (r *DynamoRepository) ListCustomerSessions(ctx context.Context, customerID string) ([]model.SessionItem, error) {
	items, err := r.db.Client.QueryIndexOrScan(ctx, model.SessionsTable, model.SessionsByCustomer, "customerId", customerID)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalAll[model.SessionItem](items)
}

func (r *DynamoRepository) UpdateTyping(ctx context.Context, sessionKey string, isTyping bool, at string) error {
	err := r.db.Client.UpdateItemConditional(
		ctx,
		model.SessionsTable,
		database.StringKey("pk", sessionKey),
		"SET #isTyping = :isTyping, #typingAt = :typingAt",
		"attribute_exists(pk)",
		map[string]types.AttributeValue{
			":isTyping": database.AttrBool(isTyping),
			":typingAt": database.AttrString(at),
		},
		map[string]string{
			"#isTyping": "isTyping",
			"#typingAt": "typingAt",
		},
		nil,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

func (r *DynamoRepository) SetClosed(ctx context.Context, sessionKey string, closed bool, at string) error {
	err := r.db.Client.UpdateItemConditional(
		ctx,
		model.SessionsTable,
		database.StringKey("pk", sessionKey),
		"SET #isClosed = :isClosed, #updatedAt = :updatedAt",
		"attribute_exists(pk)",
		map[string]types.AttributeValue{
			":isClosed":  database.AttrBool(closed),
			":updatedAt": database.AttrString(at),
		},
		map[string]string{
			"#isClosed":  "isClosed",
			"#updatedAt": "updatedAt",
		},
		nil,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

func (r *DynamoRepository) AppendMessage(ctx context.Context, msg model.MessageItem, prevSeq int64) error {
	update := "SET #messageSeq = :seq, #lastMessageAt = :at, #updatedAt = :at"
	values := map[string]types.AttributeValue{
		":seq":  database.AttrNumber(msg.Seq),
		":prev": database.AttrNumber(prevSeq),
		":at":   database.AttrString(msg.CreatedAt),
	}
	names := map[string]string{
		"#messageSeq":    "messageSeq",
		"#lastMessageAt": "lastMessageAt",
		"#updatedAt":     "updatedAt",
	}
	if msg.SenderType == model.SenderCustomer {
		update += ", #unreadCount = #unreadCount + :one, #isClosed = :open"
		values[":one"] = database.AttrNumber(1)
		values[":open"] = database.AttrBool(false)
		names["#unreadCount"] = "unreadCount"
		names["#isClosed"] = "isClosed"
	}

	err := r.db.Client.TransactWriteItems(ctx,
		database.TransactWrite{
			Table:     model.MessagesTable,
			Item:      msg,
			Condition: "attribute_not_exists(pk)",
		},
		database.TransactWrite{
			Table:     model.SessionsTable,
			Key:       database.StringKey("pk", msg.SessionKey),
			Update:    update,
			Condition: "#messageSeq = :prev",
			Values:    values,
			Names:     names,
		},
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrStaleSession
	}
	return err
}

func (r *DynamoRepository) ListMessages(ctx context.Context, sessionKey string) ([]model.MessageItem, error) {
	items, err := r.db.Client.QueryIndexOrScan(ctx, model.MessagesTable, model.MessagesBySessionIndex, "sessionKey", sessionKey)
	if err != nil {
		return nil, err
	}
	messages, err := database.UnmarshalAll[model.MessageItem](items)
	if err != nil {
		return nil, err
	}
	sortBySeq(messages)
	return messages, nil
}

func (r *DynamoRepository) ListAllMessages(ctx context.Context) ([]model.MessageItem, error) {
	items, err := r.db.Client.ScanAll(ctx, model.MessagesTable)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalAll[model.MessageItem](items)
}

func (r *DynamoRepository) MarkRead(ctx context.Context, sessionKey string, msgs []model.MessageItem, seq int64, at string) error {
	puts := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		m.IsRead = true
		puts = append(puts, m)
	}
	if err := r.db.Client.BatchWriteItem(ctx, model.MessagesTable, puts, nil); err != nil {
		return err
	}

	err := r.db.Client.UpdateItemConditional(
		ctx,
		model.SessionsTable,
		database.StringKey("pk", sessionKey),
		"SET #unreadCount = :zero, #updatedAt = :at",
		"#messageSeq = :seq",
		map[string]types.AttributeValue{
			":zero": database.AttrNumber(0),
			":at":   database.AttrString(at),
			":seq":  database.AttrNumber(seq),
		},
		map[string]string{
			"#unreadCount": "unreadCount",
			"#updatedAt":   "updatedAt",
			"#messageSeq":  "messageSeq",
		},
		nil,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrStaleSession
	}
	return err
}

func (r *DynamoRepository) ListTags(ctx context.Context) ([]model.TagItem, error) {
	items, err := r.db.Client.ScanAll(ctx, model.TagsTable)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalAll[model.TagItem](items)
}

func (r *DynamoRepository) GetTag(ctx context.Context, tagID string) (model.TagItem, error) {
	var tag model.TagItem
	err := r.db.Client.GetItem(ctx, model.TagsTable, database.StringKey("tagId", tagID), &tag)
	if err != nil {
		if database.IsNotFound(err) {
			return model.TagItem{}, ErrNotFound
		}
		return model.TagItem{}, err
	}
	return tag, nil
}

func (r *DynamoRepository) CreateTag(ctx context.Context, tag model.TagItem) error {
	err := r.db.Client.PutItemIfAbsent(ctx, model.TagsTable, "tagId", tag)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrExists
	}
	return err
}

func (r *DynamoRepository) ListSessionTags(ctx context.Context, sessionKey string) ([]model.SessionTagItem, error) {
	items, err := r.db.Client.QueryIndexOrScan(ctx, model.SessionTagsTable, model.SessionTagsBySession, "sessionKey", sessionKey)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalAll[model.SessionTagItem](items)
}

func (r *DynamoRepository) ListAllSessionTags(ctx context.Context) ([]model.SessionTagItem, error) {
	items, err := r.db.Client.ScanAll(ctx, model.SessionTagsTable)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalAll[model.SessionTagItem](items)
}

func (r *DynamoRepository) PutSessionTag(ctx context.Context, item model.SessionTagItem) error {
	return r.db.Client.PutItem(ctx, model.SessionTagsTable, item)
}

func (r *DynamoRepository) DeleteSessionTag(ctx context.Context, sessionKey, tagID string) error {
	return r.db.Client.DeleteItem(ctx, model.SessionTagsTable,
		database.StringKey("pk", model.SessionTagPK(sessionKey, tagID)))
}
