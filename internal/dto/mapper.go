package dto

import (
	"botpos-chat-backend/internal/model"
)

func NewMessageResponse(m model.MessageItem) MessageResponse {
	res := MessageResponse{
		MessageID:  m.MessageID,
		CustomerID: m.CustomerID,
		Channel:    m.Channel,
		SenderType: string(m.SenderType),
		SenderID:   m.SenderID,
		Text:       m.Body,
		IsRead:     m.IsRead,
		Seq:        m.Seq,
		CreatedAt:  m.CreatedAt,
	}
	if m.Attachment != nil {
		res.Attachment = &AttachmentResponse{
			URL:      m.Attachment.URL,
			MimeType: m.Attachment.MimeType,
			Name:     m.Attachment.Name,
			Size:     m.Attachment.Size,
		}
	}
	return res
}

func NewMessageResponses(items []model.MessageItem) []MessageResponse {
	out := make([]MessageResponse, 0, len(items))
	for _, m := range items {
		out = append(out, NewMessageResponse(m))
	}
	return out
}

func NewTagResponse(t model.TagItem) TagResponse {
	return TagResponse{TagID: t.TagID, Name: t.Name, Color: t.Color, CreatedAt: t.CreatedAt}
}

func NewTagResponses(tags []model.TagItem) []TagResponse {
	out := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, NewTagResponse(t))
	}
	return out
}

func NewSessionResponse(s model.SessionItem, tags []model.TagItem) SessionResponse {
	return SessionResponse{
		CustomerID:    s.CustomerID,
		CustomerName:  s.CustomerName,
		Channel:       s.Channel,
		ExternalID:    s.ExternalID,
		UnreadCount:   s.UnreadCount,
		LastMessageAt: s.LastMessageAt,
		IsTyping:      s.IsTyping,
		IsClosed:      s.IsClosed,
		Tags:          NewTagResponses(tags),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func NewTemplateResponse(t model.TemplateItem) TemplateResponse {
	return TemplateResponse{
		TemplateID: t.TemplateID,
		Name:       t.Name,
		Content:    t.Content,
		Shortcut:   t.Shortcut,
		UsageCount: t.UsageCount,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func NewNoteResponse(n model.NoteItem) NoteResponse {
	return NoteResponse{
		NoteID:     n.NoteID,
		CustomerID: n.CustomerID,
		AuthorID:   n.AuthorID,
		Content:    n.Content,
		CreatedAt:  n.CreatedAt,
	}
}

func NewFlowResponse(f model.FlowItem) FlowResponse {
	return FlowResponse{
		FlowID:       f.FlowID,
		Name:         f.Name,
		Description:  f.Description,
		Channel:      string(f.Channel),
		TriggerType:  string(f.TriggerType),
		TriggerValue: f.TriggerValue,
		IsActive:     f.IsActive,
		Revision:     f.GraphRevision,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func NewAdminResponse(a model.AdminItem) AdminResponse {
	return AdminResponse{
		AdminID:   a.AdminID,
		Email:     a.Email,
		Name:      a.Name,
		CreatedAt: a.CreatedAt,
	}
}
