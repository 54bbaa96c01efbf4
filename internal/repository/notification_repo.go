package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"co2_monitor/internal/models"
)

const (
	insertNotificationSQL = `
		INSERT INTO notifications (id, occurred_at, kind, tier, title, message, device_id, module_id, co2, window_hint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectNotificationsSQL = `SELECT id, occurred_at, kind, tier, title, message, device_id, module_id, co2, window_hint FROM notifications`

	defaultNotificationLimit = 100
)

type NotificationSQLite struct {
	db *sql.DB
}

func NewNotificationSQLite(db *sql.DB) *NotificationSQLite { return &NotificationSQLite{db: db} }

// Append stores n. Missing ID and OccurredAt are filled in.
func (r *NotificationSQLite) Append(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	} else {
		n.OccurredAt = n.OccurredAt.UTC()
	}

	var moduleID *string
	if n.ModuleID != "" {
		moduleID = &n.ModuleID
	}

	_, err := r.db.ExecContext(ctx, insertNotificationSQL,
		n.ID,
		n.OccurredAt,
		string(n.Kind),
		n.Tier.String(),
		n.Title,
		n.Message,
		n.DeviceID,
		moduleID,
		n.CO2,
		n.WindowHint,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// NotificationFilter narrows List. Zero fields do not filter.
type NotificationFilter struct {
	From  time.Time
	To    time.Time
	Tier  string
	Limit int
}

// List returns the newest notifications first.
func (r *NotificationSQLite) List(ctx context.Context, f NotificationFilter) ([]models.Notification, error) {
	var (
		conds []string
		args  []any
	)

	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, f.To.UTC())
	}
	if tier := strings.ToLower(strings.TrimSpace(f.Tier)); tier != "" {
		conds = append(conds, "tier = ?")
		args = append(args, tier)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}

	q := selectNotificationsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	out := make([]models.Notification, 0, limit)
	for rows.Next() {
		var (
			n        models.Notification
			kind     string
			tier     string
			moduleID sql.NullString
			co2      sql.NullFloat64
		)
		if err := rows.Scan(&n.ID, &n.OccurredAt, &kind, &tier, &n.Title, &n.Message,
			&n.DeviceID, &moduleID, &co2, &n.WindowHint); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.OccurredAt = n.OccurredAt.UTC()
		n.Kind = models.NotificationKind(kind)
		n.Tier = models.ParseTier(tier)
		n.ModuleID = moduleID.String
		n.CO2 = co2.Float64
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}
