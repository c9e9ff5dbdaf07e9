package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"chat-client/internal/domain/conversation"
	"chat-client/internal/utils/platformerrors"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	user_id  TEXT PRIMARY KEY,
	data     TEXT NOT NULL,
	saved_at TIMESTAMP NOT NULL
);`

// Store persists one conversation snapshot per user in a local sqlite
// database. It backs hydration on startup and survives backend outages.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "open snapshot db")
	}
	// sqlite allows one writer; serialize access through a single conn.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "create snapshot schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the snapshot for its user.
func (s *Store) Save(ctx context.Context, snap conversation.Snapshot) error {
	if snap.UserID == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeValidation,
			"snapshot has no user id", nil, "d5f2a8c1-4e7b-4d0a-9c3f-6b1e8a5d2f90")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "encode snapshot")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (user_id, data, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
		snap.UserID, string(data), time.Now().UTC())
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "save snapshot")
	}
	return nil
}

// Load fetches the snapshot for userID. The second return is false when no
// snapshot exists yet.
func (s *Store) Load(ctx context.Context, userID string) (conversation.Snapshot, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return conversation.Snapshot{}, false, nil
	}
	if err != nil {
		return conversation.Snapshot{}, false, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "load snapshot")
	}

	var snap conversation.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		// A corrupt row must not block startup; hydration treats it as absent.
		return conversation.Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Delete removes the stored snapshot for userID.
func (s *Store) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE user_id = ?`, userID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "delete snapshot")
	}
	return nil
}
