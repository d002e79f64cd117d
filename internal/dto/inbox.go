package dto

type TemplateResponse struct {
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Shortcut   string `json:"shortcut,omitempty"`
	UsageCount int    `json:"usageCount"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

type CreateTemplateRequest struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	Shortcut string `json:"shortcut,omitempty"`
}

type ApplyTemplateRequest struct {
	CustomerID string `json:"customerId"`
	Channel    string `json:"channel,omitempty"`
}

type NoteResponse struct {
	NoteID     string `json:"noteId"`
	CustomerID string `json:"customerId"`
	AuthorID   string `json:"authorId"`
	Content    string `json:"content"`
	CreatedAt  string `json:"createdAt"`
}

type CreateNoteRequest struct {
	Content string `json:"content"`
}
