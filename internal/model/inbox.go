package model

type TemplateItem struct {
	TemplateID string `dynamodbav:"templateId"`
	Name       string `dynamodbav:"name"`
	Content    string `dynamodbav:"content"`
	Shortcut   string `dynamodbav:"shortcut,omitempty"`
	UsageCount int    `dynamodbav:"usageCount"`
	CreatedAt  string `dynamodbav:"createdAt"`
	UpdatedAt  string `dynamodbav:"updatedAt"`
}

type NoteItem struct {
	NoteID     string `dynamodbav:"noteId"`
	CustomerID string `dynamodbav:"customerId"`
	AuthorID   string `dynamodbav:"authorId"`
	Content    string `dynamodbav:"content"`
	CreatedAt  string `dynamodbav:"createdAt"`
}

type AdminItem struct {
	AdminID      string `dynamodbav:"adminId"`
	Email        string `dynamodbav:"email"`
	Name         string `dynamodbav:"name"`
	PasswordHash string `dynamodbav:"passwordHash"`
	CreatedAt    string `dynamodbav:"createdAt"`
}
