package auth

import (
	"context"
	"errors"
	"strings"

	"botpos-chat-backend/internal/database"
	"botpos-chat-backend/internal/model"
)

var (
	ErrNotFound = errors.New("auth repository: not found")
	ErrExists   = errors.New("auth repository: already exists")
)

type Repository interface {
	CreateAdmin(ctx context.Context, admin model.AdminItem) error
	GetAdmin(ctx context.Context, adminID string) (model.AdminItem, error)
	FindAdminByEmail(ctx context.Context, email string) (model.AdminItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateAdmin(ctx context.Context, admin model.AdminItem) error {
	if _, err := r.FindAdminByEmail(ctx, admin.Email); err == nil {
		return ErrExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	err := r.db.Client.PutItemIfAbsent(ctx, model.AdminsTable, "adminId", admin)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrExists
	}
	return err
}

func (r *DynamoRepository) GetAdmin(ctx context.Context, adminID string) (model.AdminItem, error) {
	var admin model.AdminItem
	err := r.db.Client.GetItem(ctx, model.AdminsTable, database.StringKey("adminId", adminID), &admin)
	if err != nil {
		if database.IsNotFound(err) {
			return model.AdminItem{}, ErrNotFound
		}
		return model.AdminItem{}, err
	}
	return admin, nil
}

func (r *DynamoRepository) FindAdminByEmail(ctx context.Context, email string) (model.AdminItem, error) {
	items, err := r.db.Client.QueryIndexOrScan(ctx, model.AdminsTable, model.AdminsByEmailIndex, "email", email)
	if err != nil {
		return model.AdminItem{}, err
	}
	admins, err := database.UnmarshalAll[model.AdminItem](items)
	if err != nil {
		return model.AdminItem{}, err
	}
	for _, a := range admins {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return model.AdminItem{}, ErrNotFound
}
