package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/soyeahso/proxychat/internal/domain"
	"github.com/soyeahso/proxychat/internal/logging"
)

// SQLiteSession implements agent.Session backed by SQLite. Each item is one
// JSON row in agent_messages, ordered by row id.
type SQLiteSession struct {
	id    string
	db    *DB
	owned bool

	closeOnce sync.Once
	closeErr  error
}

// NewSQLiteSession binds a session id to an open database. Closing the
// session leaves the database open.
func NewSQLiteSession(db *DB, id string) *SQLiteSession {
	return &SQLiteSession{id: id, db: db}
}

// OpenSession opens the database at path and binds id to it. The session
// owns the database and closes it on Close.
func OpenSession(path, id string, log *logging.Logger) (*SQLiteSession, error) {
	db, err := Open(path, log)
	if err != nil {
		return nil, err
	}
	return &SQLiteSession{id: id, db: db, owned: true}, nil
}

func (s *SQLiteSession) ID() string { return s.id }

// Items returns the newest limit items in chronological order; limit <= 0
// returns all of them. Rows that are not valid items are skipped.
func (s *SQLiteSession) Items(ctx context.Context, limit int) ([]domain.Item, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.sql.QueryContext(ctx,
			`SELECT id, message_data FROM agent_messages
			 WHERE session_id = ? ORDER BY id DESC LIMIT ?`, s.id, limit)
	} else {
		rows, err = s.db.sql.QueryContext(ctx,
			`SELECT id, message_data FROM agent_messages
			 WHERE session_id = ? ORDER BY id ASC`, s.id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var rowID int64
		var data string
		if err := rows.Scan(&rowID, &data); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it, err := domain.ParseItem([]byte(data))
		if err != nil {
			s.db.log.Warn().Err(err).Int64("row", rowID).Str("session", s.id).Msg("skipping unreadable item")
			continue
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}

	if limit > 0 {
		slices.Reverse(items)
	}
	return items, nil
}

// AddItems appends items in one transaction, creating the session row on
// first write and bumping its updated_at.
func (s *SQLiteSession) AddItems(ctx context.Context, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := s.db.timestamp()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO agent_sessions (session_id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (session_id) DO NOTHING`, s.id, now, now); err != nil {
		return fmt.Errorf("creating session %s: %w", s.id, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO agent_messages (session_id, message_data, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, it := range items {
		if it.IsZero() {
			return fmt.Errorf("item %d is empty", i)
		}
		if _, err := stmt.ExecContext(ctx, s.id, string(it.Raw()), now); err != nil {
			return fmt.Errorf("inserting item %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE agent_sessions SET updated_at = ? WHERE session_id = ?`, now, s.id); err != nil {
		return fmt.Errorf("touching session %s: %w", s.id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.db.log.Debug().Str("session", s.id).Int("items", len(items)).Msg("items stored")
	return nil
}

// PopItem deletes and returns the newest item.
func (s *SQLiteSession) PopItem(ctx context.Context) (domain.Item, bool, error) {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return domain.Item{}, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var rowID int64
	var data string
	err = tx.QueryRowContext(ctx,
		`SELECT id, message_data FROM agent_messages
		 WHERE session_id = ? ORDER BY id DESC LIMIT 1`, s.id).Scan(&rowID, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, false, nil
	}
	if err != nil {
		return domain.Item{}, false, fmt.Errorf("selecting newest item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM agent_messages WHERE id = ?`, rowID); err != nil {
		return domain.Item{}, false, fmt.Errorf("deleting item: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE agent_sessions SET updated_at = ? WHERE session_id = ?`, s.db.timestamp(), s.id); err != nil {
		return domain.Item{}, false, fmt.Errorf("touching session %s: %w", s.id, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Item{}, false, fmt.Errorf("commit: %w", err)
	}

	it, err := domain.ParseItem([]byte(data))
	if err != nil {
		return domain.Item{}, true, fmt.Errorf("removed unreadable item %d: %w", rowID, err)
	}
	return it, true, nil
}

// Clear deletes the session and all of its items.
func (s *SQLiteSession) Clear(ctx context.Context) error {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM agent_messages WHERE session_id = ?`, s.id); err != nil {
		return fmt.Errorf("deleting items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM agent_sessions WHERE session_id = ?`, s.id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return tx.Commit()
}

// Close closes the database when the session owns it. It is safe to call
// more than once.
func (s *SQLiteSession) Close() error {
	s.closeOnce.Do(func() {
		if s.owned {
			s.closeErr = s.db.Close()
		}
	})
	return s.closeErr
}

// ListSessions returns every stored session, most recently updated first.
func ListSessions(ctx context.Context, db *DB) ([]domain.SessionInfo, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT s.session_id, s.created_at, s.updated_at, COUNT(m.id)
		FROM agent_sessions s
		LEFT JOIN agent_messages m ON m.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.updated_at DESC, s.session_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.SessionInfo
	for rows.Next() {
		var info domain.SessionInfo
		var created, updated sqlTime
		if err := rows.Scan(&info.ID, &created, &updated, &info.Items); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		info.CreatedAt = created.t
		info.UpdatedAt = updated.t
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}
