// Package store persists notification records and push subscriptions for
// the beacond backend.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oakledger/beacon/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Insert stores a record, assigning an id and creation time when missing,
// and returns the stored form.
func (s *NotificationStore) Insert(r model.Record) (model.Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(r.Metadata)
	if err != nil {
		return model.Record{}, fmt.Errorf("marshal metadata: %w", err)
	}

	var silent any
	if r.Silent != nil {
		if *r.Silent {
			silent = 1
		} else {
			silent = 0
		}
	}

	_, err = s.db.Exec(
		`INSERT INTO notifications (id, user_id, type, text, icon, link, read, template_id, priority, category, metadata, silent, action, target, entity_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Type, r.Text, r.Icon, r.Link, boolToInt(r.Read), r.TemplateID,
		r.Priority, r.Category, string(meta), silent, r.Action, r.Target, r.EntityID, r.CreatedAt,
	)
	if err != nil {
		return model.Record{}, fmt.Errorf("insert notification: %w", err)
	}
	return r, nil
}

// ListByUser returns up to limit records for userID, newest first. A limit
// of zero or less means no limit.
func (s *NotificationStore) ListByUser(userID string, limit int) ([]model.Record, error) {
	query := `SELECT id, user_id, type, text, icon, link, read, template_id, priority, category, metadata, silent, action, target, entity_id, created_at
		 FROM notifications WHERE user_id = ? ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Page returns one page of the user's browsable log plus the total count.
// Silent rows are excluded; they exist for the feed only and are never
// shown to the user.
func (s *NotificationStore) Page(userID string, offset, limit int) ([]model.Record, int, error) {
	var total int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND (silent IS NULL OR silent = 0)`,
		userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT id, user_id, type, text, icon, link, read, template_id, priority, category, metadata, silent, action, target, entity_id, created_at
		 FROM notifications WHERE user_id = ? AND (silent IS NULL OR silent = 0)
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("page notifications: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SetRead updates the read flag on the given ids for userID. Ids belonging
// to other users are ignored.
func (s *NotificationStore) SetRead(userID string, ids []string, read bool) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := []any{boolToInt(read), userID}
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.Exec(
		`UPDATE notifications SET read = ? WHERE user_id = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("set read: %w", err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]model.Record, error) {
	var records []model.Record
	for rows.Next() {
		var r model.Record
		var readInt int
		var silent sql.NullInt64
		var meta string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Type, &r.Text, &r.Icon, &r.Link, &readInt, &r.TemplateID,
			&r.Priority, &r.Category, &meta, &silent, &r.Action, &r.Target, &r.EntityID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		r.Read = readInt != 0
		if silent.Valid {
			v := silent.Int64 != 0
			r.Silent = &v
		}
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
