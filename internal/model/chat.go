package model

type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderAdmin    SenderType = "admin"
	SenderBot      SenderType = "bot"
)

func (s SenderType) Valid() bool {
	switch s {
	case SenderCustomer, SenderAdmin, SenderBot:
		return true
	}
	return false
}

func SessionKey(customerID, channel string) string {
	return compositeKey(customerID, channel)
}

func MessagePK(sessionKey, messageID string) string {
	return compositeKey(sessionKey, messageID)
}

func ChannelIdentityPK(channel, externalID string) string {
	return compositeKey(channel, externalID)
}

type CustomerItem struct {
	CustomerID  string `dynamodbav:"customerId"`
	Name        string `dynamodbav:"name"`
	Phone       string `dynamodbav:"phone,omitempty"`
	Email       string `dynamodbav:"email,omitempty"`
	TelegramID  string `dynamodbav:"telegramId,omitempty"`
	ViberID     string `dynamodbav:"viberId,omitempty"`
	MessengerID string `dynamodbav:"messengerId,omitempty"`
	CreatedAt   string `dynamodbav:"createdAt"`
	UpdatedAt   string `dynamodbav:"updatedAt"`
}

type ChannelIdentityItem struct {
	PK         string `dynamodbav:"pk"`
	Channel    string `dynamodbav:"channel"`
	ExternalID string `dynamodbav:"externalId"`
	CustomerID string `dynamodbav:"customerId"`
	CreatedAt  string `dynamodbav:"createdAt"`
}

type SessionItem struct {
	PK            string `dynamodbav:"pk"`
	CustomerID    string `dynamodbav:"customerId"`
	Channel       string `dynamodbav:"channel"`
	ExternalID    string `dynamodbav:"externalId"`
	CustomerName  string `dynamodbav:"customerName,omitempty"`
	UnreadCount   int    `dynamodbav:"unreadCount"`
	LastMessageAt string `dynamodbav:"lastMessageAt"`
	IsTyping      bool   `dynamodbav:"isTyping"`
	TypingAt      string `dynamodbav:"typingAt,omitempty"`
	IsClosed      bool   `dynamodbav:"isClosed"`
	MessageSeq    int64  `dynamodbav:"messageSeq"`
	CreatedAt     string `dynamodbav:"createdAt"`
	UpdatedAt     string `dynamodbav:"updatedAt"`
}

type Attachment struct {
	URL      string `dynamodbav:"url" json:"url"`
	MimeType string `dynamodbav:"mimeType" json:"mimeType"`
	Name     string `dynamodbav:"name" json:"name"`
	Size     int64  `dynamodbav:"size" json:"size"`
	Key      string `dynamodbav:"key,omitempty" json:"-"`
}

type MessageItem struct {
	PK         string      `dynamodbav:"pk"`
	SessionKey string      `dynamodbav:"sessionKey"`
	MessageID  string      `dynamodbav:"messageId"`
	CustomerID string      `dynamodbav:"customerId"`
	Channel    string      `dynamodbav:"channel"`
	SenderType SenderType  `dynamodbav:"senderType"`
	SenderID   string      `dynamodbav:"senderId,omitempty"`
	Body       string      `dynamodbav:"body"`
	SearchText string      `dynamodbav:"searchText"`
	Attachment *Attachment `dynamodbav:"attachment,omitempty"`
	IsRead     bool        `dynamodbav:"isRead"`
	Seq        int64       `dynamodbav:"seq"`
	CreatedAt  string      `dynamodbav:"createdAt"`
}

type TagItem struct {
	TagID     string `dynamodbav:"tagId"`
	Name      string `dynamodbav:"name"`
	NameKey   string `dynamodbav:"nameKey"`
	Color     string `dynamodbav:"color"`
	CreatedAt string `dynamodbav:"createdAt"`
}

func SessionTagPK(sessionKey, tagID string) string {
	return compositeKey(sessionKey, tagID)
}

type SessionTagItem struct {
	PK         string `dynamodbav:"pk"`
	SessionKey string `dynamodbav:"sessionKey"`
	TagID      string `dynamodbav:"tagId"`
	CustomerID string `dynamodbav:"customerId"`
	CreatedAt  string `dynamodbav:"createdAt"`
}
