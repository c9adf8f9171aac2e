package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/fudbot/internal/memory"
)

// postRow is the SQL shape of memory.Post. Timestamps are stored as
// RFC 3339 text so they round-trip exactly.
type postRow struct {
	InternalID int64          `db:"internal_id"`
	ExternalID sql.NullString `db:"external_id"`
	Text       string         `db:"text"`
	Prompt     string         `db:"prompt"`
	CreatedAt  string         `db:"created_at"`
	Kind       string         `db:"kind"`
	ReplyTo    sql.NullString `db:"reply_to"`
}

type stateRow struct {
	NextID    int64          `db:"next_id"`
	NextPost  sql.NullString `db:"next_post"`
	DebugMode bool           `db:"debug_mode"`
	TweetMode bool           `db:"tweet_mode"`
}

// SQLiteStore implements memory.Store on SQLite.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	saved  *savedRows
}

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := NewDB(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStoreFromDB(db, logger), nil
}

// NewSQLiteStoreFromDB wraps an already migrated connection.
func NewSQLiteStoreFromDB(db *sqlx.DB, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{db: db, logger: logger.With("component", "sqlite_store"), saved: newSavedRows()}
}

// LoadMemory reads every post and the state row.
func (s *SQLiteStore) LoadMemory(ctx context.Context) (*memory.Memory, error) {
	mem := memory.NewMemory()

	var state stateRow
	err := s.db.GetContext(ctx, &state, `SELECT next_id, next_post, debug_mode, tweet_mode FROM bot_state WHERE id = 1`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to load bot state: %w", err)
	default:
		mem.NextID = uint64(state.NextID)
		mem.DebugMode = state.DebugMode
		mem.TweetMode = state.TweetMode
		if state.NextPost.Valid {
			t, err := time.Parse(time.RFC3339Nano, state.NextPost.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse next post time: %w", err)
			}
			mem.NextPost = &t
		}
	}

	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT internal_id, external_id, text, prompt, created_at, kind, reply_to
		FROM posts ORDER BY internal_id`); err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	for _, r := range rows {
		p, err := r.toPost()
		if err != nil {
			return nil, err
		}
		mem.Posts = append(mem.Posts, p)
	}

	mem.Normalize()
	s.saved.resetPosts(mem.Posts)
	return mem, nil
}

// SaveMemory upserts the posts that changed since the last load or save
// and replaces the state row in one transaction.
func (s *SQLiteStore) SaveMemory(ctx context.Context, m *memory.Memory) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	const upsertPost = `
		INSERT INTO posts (internal_id, external_id, text, prompt, created_at, kind, reply_to)
		VALUES (:internal_id, :external_id, :text, :prompt, :created_at, :kind, :reply_to)
		ON CONFLICT(internal_id) DO UPDATE SET
			external_id = excluded.external_id,
			text = excluded.text,
			prompt = excluded.prompt,
			created_at = excluded.created_at,
			kind = excluded.kind,
			reply_to = excluded.reply_to`

	changed := s.saved.changedPosts(m.Posts)
	for _, p := range changed {
		if _, err := tx.NamedExecContext(ctx, upsertPost, fromPost(p)); err != nil {
			return fmt.Errorf("failed to save post %d: %w", p.InternalID, err)
		}
	}

	state := stateRow{
		NextID:    int64(m.NextID),
		DebugMode: m.DebugMode,
		TweetMode: m.TweetMode,
	}
	if m.NextPost != nil {
		state.NextPost = sql.NullString{String: m.NextPost.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO bot_state (id, next_id, next_post, debug_mode, tweet_mode)
		VALUES (1, :next_id, :next_post, :debug_mode, :tweet_mode)
		ON CONFLICT(id) DO UPDATE SET
			next_id = excluded.next_id,
			next_post = excluded.next_post,
			debug_mode = excluded.debug_mode,
			tweet_mode = excluded.tweet_mode`, state); err != nil {
		return fmt.Errorf("failed to save bot state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit memory: %w", err)
	}
	s.saved.markPosts(changed)
	return nil
}

// LoadProcessed reads the processed notification IDs.
func (s *SQLiteStore) LoadProcessed(ctx context.Context) (memory.ProcessedSet, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM processed_notifications`); err != nil {
		return nil, fmt.Errorf("failed to load processed notifications: %w", err)
	}
	s.saved.markProcessed(ids)
	return memory.NewProcessedSet(ids...), nil
}

// SaveProcessed inserts every ID not yet stored. IDs are never removed, so
// this is equivalent to overwriting the set.
func (s *SQLiteStore) SaveProcessed(ctx context.Context, set memory.ProcessedSet) error {
	ids := s.saved.unsavedIDs(set)
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO processed_notifications (id, processed_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
			id, now); err != nil {
			return fmt.Errorf("failed to save processed notification %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit processed notifications: %w", err)
	}
	s.saved.markProcessed(ids)
	return nil
}

// Maintain runs VACUUM and ANALYZE. VACUUM cannot run inside a transaction.
func (s *SQLiteStore) Maintain(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("failed to analyze database: %w", err)
	}
	s.logger.InfoContext(ctx, "Database maintenance completed")
	return nil
}

// Close closes the underlying connection pool.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) rollback(ctx context.Context, tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.WarnContext(ctx, "Error rolling back transaction", "error", err)
	}
}

func fromPost(p memory.Post) postRow {
	row := postRow{
		InternalID: int64(p.InternalID),
		Text:       p.Text,
		Prompt:     p.Prompt,
		CreatedAt:  p.Timestamp.UTC().Format(time.RFC3339Nano),
		Kind:       string(p.Kind),
	}
	if p.ExternalID != nil {
		row.ExternalID = sql.NullString{String: *p.ExternalID, Valid: true}
	}
	if p.ReplyTo != nil {
		row.ReplyTo = sql.NullString{String: *p.ReplyTo, Valid: true}
	}
	return row
}

func (r postRow) toPost() (memory.Post, error) {
	ts, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return memory.Post{}, fmt.Errorf("failed to parse timestamp of post %d: %w", r.InternalID, err)
	}
	p := memory.Post{
		InternalID: uint64(r.InternalID),
		Text:       r.Text,
		Prompt:     r.Prompt,
		Timestamp:  ts,
		Kind:       memory.PostKind(r.Kind),
	}
	if r.ExternalID.Valid {
		id := r.ExternalID.String
		p.ExternalID = &id
	}
	if r.ReplyTo.Valid {
		id := r.ReplyTo.String
		p.ReplyTo = &id
	}
	return p, nil
}
