package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"co2_monitor/internal/models"
)

// TokenStore is the durable key-value store holding credentials, device
// selection and preferences.
type TokenStore interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, values map[string]any) error
	OnChange(fn ChangeListener)
}

type NotificationRepo interface {
	Append(ctx context.Context, n models.Notification) error
	List(ctx context.Context, f NotificationFilter) ([]models.Notification, error)
}

type Repository struct {
	Store         TokenStore
	Notifications NotificationRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Store:         NewKVSQLite(db),
		Notifications: NewNotificationSQLite(db),
	}
}
