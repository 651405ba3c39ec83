package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oakledger/beacon/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

// Upsert registers a subscription for userID, reactivating it when the
// endpoint was previously deactivated.
func (s *PushStore) Upsert(userID string, sub model.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (endpoint, user_id, p256dh_key, auth_key, user_agent, active, created_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET
			user_id = excluded.user_id,
			p256dh_key = excluded.p256dh_key,
			auth_key = excluded.auth_key,
			user_agent = excluded.user_agent,
			active = 1`,
		sub.Endpoint, userID, sub.P256dhKey, sub.AuthKey, sub.UserAgent, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert push subscription: %w", err)
	}
	return nil
}

// Deactivate marks the endpoint inactive. Deactivating an unknown endpoint
// is not an error.
func (s *PushStore) Deactivate(endpoint string) error {
	_, err := s.db.Exec(`UPDATE push_subscriptions SET active = 0 WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("deactivate push subscription: %w", err)
	}
	return nil
}

// ListActiveByUser returns the user's active subscriptions.
func (s *PushStore) ListActiveByUser(userID string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT endpoint, p256dh_key, auth_key, user_agent, active, created_at
		 FROM push_subscriptions WHERE user_id = ? AND active = 1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		var sub model.PushSubscription
		var active int
		if err := rows.Scan(&sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.UserAgent, &active, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		sub.Active = active != 0
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
