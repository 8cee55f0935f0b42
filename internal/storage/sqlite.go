package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"herald_bot/internal/model"
	"herald_bot/migrations"
)

// Fixed-width UTC layout: lexicographic order on stored values matches
// chronological order, which AdvanceWatermark relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite implements Store backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// AddBinding binds an entity to a chat. The tracked entity is created with a
// watermark of "now" on first binding, so a fresh subscription never receives
// backlog items.
func (s *SQLite) AddBinding(ctx context.Context, family, entityKey string, chatID int64) (model.AddResult, error) {
	now := time.Now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO tracked_entities (family, entity_key, watermark, created_at)
		 VALUES (?, ?, ?, ?)`,
		family, entityKey, now, now,
	); err != nil {
		return 0, fmt.Errorf("insert entity: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO bindings (family, entity_key, chat_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		family, entityKey, chatID, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert binding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	if n == 0 {
		return model.BindAlreadyExists, nil
	}
	return model.BindCreated, nil
}

// RemoveBinding unbinds an entity from a chat. The tracked entity row is
// dropped once its last binding goes away.
func (s *SQLite) RemoveBinding(ctx context.Context, family, entityKey string, chatID int64) (model.RemoveResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM bindings WHERE family = ? AND entity_key = ? AND chat_id = ?`,
		family, entityKey, chatID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete binding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return model.BindNotFound, nil
	}

	var remaining int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bindings WHERE family = ? AND entity_key = ?`,
		family, entityKey,
	).Scan(&remaining)
	if err != nil {
		return 0, fmt.Errorf("count bindings: %w", err)
	}
	if remaining == 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tracked_entities WHERE family = ? AND entity_key = ?`,
			family, entityKey,
		); err != nil {
			return 0, fmt.Errorf("delete entity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return model.BindRemoved, nil
}

// RemoveAllBindings drops every binding of a chat across all families and
// garbage-collects entities left without bindings.
func (s *SQLite) RemoveAllBindings(ctx context.Context, chatID int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM bindings WHERE chat_id = ?`, chatID)
	if err != nil {
		return 0, fmt.Errorf("delete bindings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tracked_entities
		 WHERE NOT EXISTS (SELECT 1 FROM bindings b
		                   WHERE b.family = tracked_entities.family
		                     AND b.entity_key = tracked_entities.entity_key)`,
	); err != nil {
		return 0, fmt.Errorf("gc entities: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(n), nil
}

// ListBindings returns all bindings of the given chat ordered by family and key.
func (s *SQLite) ListBindings(ctx context.Context, chatID int64) ([]model.Binding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT family, entity_key, chat_id, created_at FROM bindings
		 WHERE chat_id = ? ORDER BY family, entity_key`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query bindings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var bindings []model.Binding
	for rows.Next() {
		var b model.Binding
		var created string
		if err := rows.Scan(&b.Family, &b.EntityKey, &b.ChatID, &created); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		b.CreatedAt, _ = time.Parse(timeLayout, created)
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

// ListTracked returns all tracked entities of a family with their watermarks
// and bound chats.
func (s *SQLite) ListTracked(ctx context.Context, family string) ([]model.TrackedEntity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.entity_key, e.watermark, e.created_at, b.chat_id
		 FROM tracked_entities e
		 JOIN bindings b ON b.family = e.family AND b.entity_key = e.entity_key
		 WHERE e.family = ?
		 ORDER BY e.entity_key, b.chat_id`, family,
	)
	if err != nil {
		return nil, fmt.Errorf("query tracked entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []model.TrackedEntity
	for rows.Next() {
		var key, watermark, created string
		var chatID int64
		if err := rows.Scan(&key, &watermark, &created, &chatID); err != nil {
			return nil, fmt.Errorf("scan tracked entity: %w", err)
		}
		if len(entities) == 0 || entities[len(entities)-1].Key != key {
			e := model.TrackedEntity{Family: family, Key: key}
			e.Watermark, _ = time.Parse(timeLayout, watermark)
			e.CreatedAt, _ = time.Parse(timeLayout, created)
			entities = append(entities, e)
		}
		last := &entities[len(entities)-1]
		last.ChatIDs = append(last.ChatIDs, chatID)
	}
	return entities, rows.Err()
}

// AdvanceWatermark sets the entity's watermark to max(current, t) in a single
// UPDATE; it never regresses.
func (s *SQLite) AdvanceWatermark(ctx context.Context, family, entityKey string, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tracked_entities SET watermark = MAX(watermark, ?)
		 WHERE family = ? AND entity_key = ?`,
		t.UTC().Format(timeLayout), family, entityKey,
	)
	if err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}

// ExemptChannel opts a chat out of spam-guard checks.
func (s *SQLite) ExemptChannel(ctx context.Context, chatID int64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO spam_exempt_channels (chat_id, created_at) VALUES (?, ?)`,
		chatID, now,
	)
	if err != nil {
		return fmt.Errorf("exempt channel: %w", err)
	}
	return nil
}

// UnexemptChannel re-enables spam-guard checks for a chat.
func (s *SQLite) UnexemptChannel(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM spam_exempt_channels WHERE chat_id = ?`, chatID,
	)
	if err != nil {
		return fmt.Errorf("unexempt channel: %w", err)
	}
	return nil
}

// IsChannelExempt reports whether a chat has opted out of spam-guard checks.
func (s *SQLite) IsChannelExempt(ctx context.Context, chatID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM spam_exempt_channels WHERE chat_id = ?`, chatID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check exempt: %w", err)
	}
	return count > 0, nil
}

// AddBadWord records a forbidden word or pattern for a chat. Duplicate
// entries are ignored.
func (s *SQLite) AddBadWord(ctx context.Context, w *model.BadWord) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO bad_words (chat_id, kind, entry, created_at) VALUES (?, ?, ?, ?)`,
		w.ChatID, string(w.Kind), w.Entry, now,
	)
	if err != nil {
		return fmt.Errorf("insert bad word: %w", err)
	}
	w.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// RemoveBadWord deletes one bad-word entry of a chat.
func (s *SQLite) RemoveBadWord(ctx context.Context, chatID int64, entry string) (model.RemoveResult, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bad_words WHERE chat_id = ? AND entry = ?`, chatID, entry,
	)
	if err != nil {
		return 0, fmt.Errorf("delete bad word: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return model.BindNotFound, nil
	}
	return model.BindRemoved, nil
}

// ListBadWords returns all bad-word entries of a chat.
func (s *SQLite) ListBadWords(ctx context.Context, chatID int64) ([]model.BadWord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, kind, entry, created_at FROM bad_words
		 WHERE chat_id = ? ORDER BY entry`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query bad words: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var words []model.BadWord
	for rows.Next() {
		var w model.BadWord
		var kind, created string
		if err := rows.Scan(&w.ChatID, &kind, &w.Entry, &created); err != nil {
			return nil, fmt.Errorf("scan bad word: %w", err)
		}
		w.Kind = model.BadWordKind(kind)
		w.CreatedAt, _ = time.Parse(timeLayout, created)
		words = append(words, w)
	}
	return words, rows.Err()
}
