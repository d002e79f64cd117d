package dto

type AttachmentResponse struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
}

type MessageResponse struct {
	MessageID  string              `json:"messageId"`
	CustomerID string              `json:"customerId"`
	Channel    string              `json:"channel"`
	SenderType string              `json:"senderType"`
	SenderID   string              `json:"senderId,omitempty"`
	Text       string              `json:"text"`
	Attachment *AttachmentResponse `json:"attachment,omitempty"`
	IsRead     bool                `json:"isRead"`
	Seq        int64               `json:"seq"`
	CreatedAt  string              `json:"createdAt"`
}

type TagResponse struct {
	TagID     string `json:"tagId"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type SessionResponse struct {
	CustomerID    string        `json:"customerId"`
	CustomerName  string        `json:"customerName"`
	Channel       string        `json:"channel"`
	ExternalID    string        `json:"externalId"`
	UnreadCount   int           `json:"unreadCount"`
	LastMessageAt string        `json:"lastMessageAt"`
	IsTyping      bool          `json:"isTyping"`
	IsClosed      bool          `json:"isClosed"`
	Tags          []TagResponse `json:"tags"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
}

type SendMessageRequest struct {
	Text    string `json:"text"`
	Channel string `json:"channel,omitempty"`
}

type SendMessageResponse struct {
	Message   MessageResponse `json:"message"`
	Delivered bool            `json:"delivered"`
}

type TypingRequest struct {
	IsTyping bool   `json:"isTyping"`
	Channel  string `json:"channel,omitempty"`
}

type MarkReadResponse struct {
	MessageIDs  []string `json:"messageIds"`
	UnreadTotal int      `json:"unreadTotal"`
}

type UnreadCountResponse struct {
	Total int `json:"total"`
}

type SearchResultResponse struct {
	Message      MessageResponse `json:"message"`
	CustomerName string          `json:"customerName"`
}

type CreateTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type AttachTagRequest struct {
	TagID   string `json:"tagId"`
	Channel string `json:"channel,omitempty"`
}

// Channel bridge payloads.

type OpenSessionRequest struct {
	Channel    string `json:"channel"`
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

type InboundMessageRequest struct {
	Channel    string              `json:"channel"`
	ExternalID string              `json:"externalId"`
	Text       string              `json:"text"`
	Attachment *AttachmentResponse `json:"attachment,omitempty"`
}
