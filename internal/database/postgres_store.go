package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edgard/fudbot/internal/memory"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		internal_id BIGINT PRIMARY KEY,
		external_id TEXT,
		text        TEXT NOT NULL,
		prompt      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		kind        TEXT NOT NULL CHECK (kind IN ('Original', 'Reply')),
		reply_to    TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_reply_to ON posts (reply_to)`,
	`CREATE TABLE IF NOT EXISTS bot_state (
		id         INT PRIMARY KEY CHECK (id = 1),
		next_id    BIGINT NOT NULL DEFAULT 0,
		next_post  TIMESTAMPTZ,
		debug_mode BOOLEAN NOT NULL DEFAULT FALSE,
		tweet_mode BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS processed_notifications (
		id           TEXT PRIMARY KEY,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// PostgresStore implements memory.Store on Postgres.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	saved  *savedRows
}

// NewPostgresStore connects to url and creates the schema if missing.
func NewPostgresStore(ctx context.Context, url string, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool, logger: logger.With("component", "postgres_store"), saved: newSavedRows()}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.logger.InfoContext(ctx, "Postgres store ready")
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init postgres schema: %w", err)
		}
	}
	return nil
}

// LoadMemory reads every post and the state row.
func (s *PostgresStore) LoadMemory(ctx context.Context) (*memory.Memory, error) {
	mem := memory.NewMemory()

	var nextID int64
	err := s.pool.QueryRow(ctx,
		`SELECT next_id, next_post, debug_mode, tweet_mode FROM bot_state WHERE id = 1`,
	).Scan(&nextID, &mem.NextPost, &mem.DebugMode, &mem.TweetMode)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to load bot state: %w", err)
	default:
		mem.NextID = uint64(nextID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT internal_id, external_id, text, prompt, created_at, kind, reply_to
		FROM posts ORDER BY internal_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p    memory.Post
			id   int64
			kind string
		)
		if err := rows.Scan(&id, &p.ExternalID, &p.Text, &p.Prompt, &p.Timestamp, &kind, &p.ReplyTo); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.InternalID = uint64(id)
		p.Kind = memory.PostKind(kind)
		p.Timestamp = p.Timestamp.UTC()
		mem.Posts = append(mem.Posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	mem.Normalize()
	s.saved.resetPosts(mem.Posts)
	return mem, nil
}

// SaveMemory upserts the posts that changed since the last load or save
// and the state row in one transaction.
func (s *PostgresStore) SaveMemory(ctx context.Context, m *memory.Memory) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	changed := s.saved.changedPosts(m.Posts)
	batch := &pgx.Batch{}
	for _, p := range changed {
		batch.Queue(`
			INSERT INTO posts (internal_id, external_id, text, prompt, created_at, kind, reply_to)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (internal_id) DO UPDATE SET
				external_id = EXCLUDED.external_id,
				text = EXCLUDED.text,
				prompt = EXCLUDED.prompt,
				created_at = EXCLUDED.created_at,
				kind = EXCLUDED.kind,
				reply_to = EXCLUDED.reply_to`,
			int64(p.InternalID), p.ExternalID, p.Text, p.Prompt, p.Timestamp.UTC(), string(p.Kind), p.ReplyTo)
	}
	batch.Queue(`
		INSERT INTO bot_state (id, next_id, next_post, debug_mode, tweet_mode)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			next_id = EXCLUDED.next_id,
			next_post = EXCLUDED.next_post,
			debug_mode = EXCLUDED.debug_mode,
			tweet_mode = EXCLUDED.tweet_mode`,
		int64(m.NextID), m.NextPost, m.DebugMode, m.TweetMode)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit memory: %w", err)
	}
	s.saved.markPosts(changed)
	return nil
}

// LoadProcessed reads the processed notification IDs.
func (s *PostgresStore) LoadProcessed(ctx context.Context) (memory.ProcessedSet, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM processed_notifications`)
	if err != nil {
		return nil, fmt.Errorf("failed to load processed notifications: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect processed notifications: %w", err)
	}
	s.saved.markProcessed(ids)
	return memory.NewProcessedSet(ids...), nil
}

// SaveProcessed inserts every ID not yet stored.
func (s *PostgresStore) SaveProcessed(ctx context.Context, set memory.ProcessedSet) error {
	ids := s.saved.unsavedIDs(set)
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processed_notifications (id, processed_at)
		SELECT unnest($1::text[]), $2
		ON CONFLICT (id) DO NOTHING`, ids, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save processed notifications: %w", err)
	}
	s.saved.markProcessed(ids)
	return nil
}

// Maintain runs VACUUM ANALYZE on the memory tables.
func (s *PostgresStore) Maintain(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM ANALYZE)...")
	for _, table := range []string{"posts", "bot_state", "processed_notifications"} {
		if _, err := s.pool.Exec(ctx, "VACUUM ANALYZE "+table); err != nil {
			return fmt.Errorf("failed to vacuum %s: %w", table, err)
		}
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
