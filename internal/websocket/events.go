package websocket

import (
	"encoding/json"
	"time"
)

// GroupAdmin is the broadcast group every admin client joins.
const GroupAdmin = "admin"

const (
	EventNewMessage    = "new-message"
	EventTyping        = "typing"
	EventMessagesRead  = "messages-read"
	EventUnreadCount   = "unread-count"
	EventSessionUpdate = "session-update"
)

// joinPrefix starts the first frame a client must send, e.g. "join:admin".
const joinPrefix = "join:"

// Event is the envelope written to clients.
type Event struct {
	Name      string `json:"event"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Envelope is an Event as read back by a client, with the payload left raw.
type Envelope struct {
	Name      string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func NewEvent(name string, data any) Event {
	return Event{Name: name, Data: data, Timestamp: time.Now().UnixMilli()}
}

type NewMessagePayload struct {
	CustomerID string `json:"customerId"`
	Message    any    `json:"message"`
}

type TypingPayload struct {
	CustomerID string `json:"customerId"`
	IsTyping   bool   `json:"isTyping"`
}

// MessagesReadPayload carries either the ids marked read or the string "all".
type MessagesReadPayload struct {
	CustomerID string `json:"customerId"`
	MessageIDs any    `json:"messageIds"`
}

type UnreadCountPayload struct {
	Total int `json:"total"`
}

type SessionUpdatePayload struct {
	Session any `json:"session"`
}

func NewMessage(customerID string, message any) Event {
	return NewEvent(EventNewMessage, NewMessagePayload{CustomerID: customerID, Message: message})
}

func Typing(customerID string, isTyping bool) Event {
	return NewEvent(EventTyping, TypingPayload{CustomerID: customerID, IsTyping: isTyping})
}

// MessagesRead lists ids when known and falls back to "all".
func MessagesRead(customerID string, ids []string) Event {
	var payload any = "all"
	if len(ids) > 0 {
		payload = ids
	}
	return NewEvent(EventMessagesRead, MessagesReadPayload{CustomerID: customerID, MessageIDs: payload})
}

func UnreadCount(total int) Event {
	return NewEvent(EventUnreadCount, UnreadCountPayload{Total: total})
}

func SessionUpdate(session any) Event {
	return NewEvent(EventSessionUpdate, SessionUpdatePayload{Session: session})
}

type Room struct {
	Id      string               `json:"id"`
	Clients map[string]*WSClient `json:"-"`
}

// WSMessage is a frame queued for every client in a room.
type WSMessage struct {
	Content   string `json:"content"`
	RoomID    string `json:"roomId"`
	Timestamp int64  `json:"timestamp"`
}

type joinRequest struct {
	Event string `json:"event"`
}

type RoomRes struct {
	ID      string `json:"id"`
	Clients int    `json:"clients"`
}
