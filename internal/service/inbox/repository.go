package inbox

import (
	"context"
	"errors"

	"botpos-chat-backend/internal/database"
	"botpos-chat-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("inbox repository: not found")

type Repository interface {
	ListTemplates(ctx context.Context) ([]model.TemplateItem, error)
	GetTemplate(ctx context.Context, templateID string) (model.TemplateItem, error)
	PutTemplate(ctx context.Context, template model.TemplateItem) error
	DeleteTemplate(ctx context.Context, templateID string) error
	IncrementTemplateUsage(ctx context.Context, templateID, at string) error

	CustomerExists(ctx context.Context, customerID string) (bool, error)
	ListNotes(ctx context.Context, customerID string) ([]model.NoteItem, error)
	GetNote(ctx context.Context, noteID string) (model.NoteItem, error)
	PutNote(ctx context.Context, note model.NoteItem) error
	DeleteNote(ctx context.Context, noteID string) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) ListTemplates(ctx context.Context) ([]model.TemplateItem, error) {
	items, err := r.db.Client.ScanAll(ctx, model.TemplatesTable)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalAll[model.TemplateItem](items)
}

func (r *DynamoRepository) GetTemplate(ctx context.Context, templateID string) (model.TemplateItem, error) {
	var template model.TemplateItem
	err := r.db.Client.GetItem(ctx, model.TemplatesTable, database.StringKey("templateId", templateID), &template)
	if err != nil {
		if database.IsNotFound(err) {
			return model.TemplateItem{}, ErrNotFound
		}
		return model.TemplateItem{}, err
	}
	return template, nil
}

func (r *DynamoRepository) PutTemplate(ctx context.Context, template model.TemplateItem) error {
	return r.db.Client.PutItem(ctx, model.TemplatesTable, template)
}

func (r *DynamoRepository) DeleteTemplate(ctx context.Context, templateID string) error {
	return r.db.Client.DeleteItem(ctx, model.TemplatesTable, database.StringKey("templateId", templateID))
}

func (r *DynamoRepository) IncrementTemplateUsage(ctx context.Context, templateID, at string) error {
	err := r.db.Client.UpdateItemConditional(
		ctx,
		model.TemplatesTable,
		database.StringKey("templateId", templateID),
		"SET #usageCount = if_not_exists(#usageCount, :zero) + :one, #updatedAt = :at",
		"attribute_exists(templateId)",
		map[string]types.AttributeValue{
			":zero": database.AttrNumber(0),
			":one":  database.AttrNumber(1),
			":at":   database.AttrString(at),
		},
		map[string]string{
			"#usageCount": "usageCount",
			"#updatedAt":  "updatedAt",
		},
		nil,
	)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

func (r *DynamoRepository) CustomerExists(ctx context.Context, customerID string) (bool, error) {
	var customer model.CustomerItem
	err := r.db.Client.GetItem(ctx, model.CustomersTable, database.StringKey("customerId", customerID), &customer)
	if err != nil {
		if database.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *DynamoRepository) ListNotes(ctx context.Context, customerID string) ([]model.NoteItem, error) {
	items, err := r.db.Client.QueryIndexOrScan(ctx, model.NotesTable, model.NotesByCustomerIndex, "customerId", customerID)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalAll[model.NoteItem](items)
}

func (r *DynamoRepository) GetNote(ctx context.Context, noteID string) (model.NoteItem, error) {
	var note model.NoteItem
	err := r.db.Client.GetItem(ctx, model.NotesTable, database.StringKey("noteId", noteID), &note)
	if err != nil {
		if database.IsNotFound(err) {
			return model.NoteItem{}, ErrNotFound
		}
		return model.NoteItem{}, err
	}
	return note, nil
}

func (r *DynamoRepository) PutNote(ctx context.Context, note model.NoteItem) error {
	return r.db.Client.PutItem(ctx, model.NotesTable, note)
}

func (r *DynamoRepository) DeleteNote(ctx context.Context, noteID string) error {
	return r.db.Client.DeleteItem(ctx, model.NotesTable, database.StringKey("noteId", noteID))
}
