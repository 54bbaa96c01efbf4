package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"co2_monitor/internal/models"
)

const (
	selectKVSQL = `SELECT value FROM kv_store WHERE key = ?`

	selectAllKVSQL = `SELECT key, value FROM kv_store`

	upsertKVSQL = `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at
	`

	deleteKVSQL = `DELETE FROM kv_store WHERE key = ?`
)

// ChangeListener receives every committed change set, in commit order.
type ChangeListener func(ctx context.Context, changes models.ChangeSet)

// KVSQLite is a JSON key-value store with synchronous change notification.
type KVSQLite struct {
	db  *sql.DB
	now func() time.Time

	writeMu sync.Mutex

	mu        sync.RWMutex
	listeners []ChangeListener
}

func NewKVSQLite(db *sql.DB) *KVSQLite {
	return &KVSQLite{db: db, now: time.Now}
}

// Get returns the stored values of keys. Absent keys are left out of the
// map. With no keys, everything is returned.
func (r *KVSQLite) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	q := selectAllKVSQL
	args := make([]any, 0, len(keys))
	if len(keys) > 0 {
		q += " WHERE key IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ") + ")"
		for _, k := range keys {
			args = append(args, k)
		}
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select kv: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage, len(keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan kv: %w", err)
		}
		out[k] = json.RawMessage(v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kv: %w", err)
	}
	return out, nil
}

// Set writes values in one transaction. A nil value deletes the key. Keys
// whose stored value does not change are not reported to listeners.
func (r *KVSQLite) Set(ctx context.Context, values map[string]any) error {
	changes, err := r.write(ctx, values)
	if err != nil {
		return err
	}
	if len(changes) > 0 {
		r.notify(ctx, changes)
	}
	return nil
}

// OnChange registers fn for every later change set. Listeners run on the
// writer's goroutine after commit and may call Set themselves.
func (r *KVSQLite) OnChange(fn ChangeListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *KVSQLite) write(ctx context.Context, values map[string]any) (models.ChangeSet, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin kv transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	ts := r.now().UTC()
	changes := models.ChangeSet{}
	for _, k := range keys {
		var old json.RawMessage
		var stored string
		switch err := tx.QueryRowContext(ctx, selectKVSQL, k).Scan(&stored); {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, fmt.Errorf("read %q: %w", k, err)
		default:
			old = json.RawMessage(stored)
		}

		next, err := encodeValue(values[k])
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		if bytes.Equal(old, next) {
			continue
		}

		if next == nil {
			if _, err := tx.ExecContext(ctx, deleteKVSQL, k); err != nil {
				return nil, fmt.Errorf("delete %q: %w", k, err)
			}
		} else if _, err := tx.ExecContext(ctx, upsertKVSQL, k, string(next), ts); err != nil {
			return nil, fmt.Errorf("upsert %q: %w", k, err)
		}
		changes[k] = models.Change{OldValue: old, NewValue: next}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit kv transaction: %w", err)
	}
	return changes, nil
}

func (r *KVSQLite) notify(ctx context.Context, changes models.ChangeSet) {
	r.mu.RLock()
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, changes)
	}
}

// encodeValue compacts v to its JSON form. nil and JSON null both mean
// "absent".
func encodeValue(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	var b []byte
	switch val := v.(type) {
	case json.RawMessage:
		b = val
	default:
		enc, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		b = enc
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return nil, err
	}
	if models.IsNull(buf.Bytes()) {
		return nil, nil
	}
	return buf.Bytes(), nil
}
