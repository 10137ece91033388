// Package store is the Postgres persistence layer: per-user chat
// history, the action log behind rate limiting, the tariff catalog,
// and the support FAQ with full-text search.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crosslinehq/bastion/pkg/chat"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("store: not found")

// maxStoredTurns bounds the history kept per user. Older turns are
// dropped on append; the router only ever reads the recent window.
const maxStoredTurns = 50

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// InitSchema creates tables and indexes. Idempotent; runs at startup.
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS chat_history (
			user_id BIGINT PRIMARY KEY,
			history JSONB NOT NULL DEFAULT '[]'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS user_actions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_actions_user_time
			ON user_actions (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS tariffs (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			price_rub INTEGER NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			features JSONB NOT NULL DEFAULT '[]'::jsonb
		)`,
		`CREATE TABLE IF NOT EXISTS support_articles (
			id SERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			tsv tsvector GENERATED ALWAYS AS (
				to_tsvector('russian', title || ' ' || body)
			) STORED
		)`,
		`CREATE INDEX IF NOT EXISTS idx_support_articles_tsv
			ON support_articles USING GIN (tsv)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

// --- Chat history ---

// RecentMessages returns the last `limit` turns for a user, oldest
// first. A user with no history gets an empty window, not an error.
func (s *Store) RecentMessages(ctx context.Context, userID int64, limit int) ([]chat.Message, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT history FROM chat_history WHERE user_id = $1`, userID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read history: %w", err)
	}

	var history []chat.Message
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("store: decode history: %w", err)
	}
	return chat.Tail(history, limit), nil
}

// AppendMessage adds one turn to a user's history, trimming the
// stored window to its bound.
func (s *Store) AppendMessage(ctx context.Context, userID int64, m chat.Message) error {
	encoded, err := json.Marshal([]chat.Message{m})
	if err != nil {
		return fmt.Errorf("store: encode message: %w", err)
	}

	// Append then keep the tail. The slice arithmetic runs in SQL so
	// concurrent appends for different users never contend in Go.
	_, err = s.pool.Exec(ctx, `
		INSERT INTO chat_history (user_id, history, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (user_id) DO UPDATE SET
			history = (
				SELECT COALESCE(jsonb_agg(elem), '[]'::jsonb)
				FROM (
					SELECT elem
					FROM jsonb_array_elements(chat_history.history || $2::jsonb)
						WITH ORDINALITY AS t(elem, ord)
					ORDER BY ord DESC
					LIMIT $3
				) tail
			),
			updated_at = now()`,
		userID, encoded, maxStoredTurns)
	if err != nil {
		return fmt.Errorf("store: append message: %w", err)
	}
	return nil
}

// ClearHistory wipes a user's conversation.
func (s *Store) ClearHistory(ctx context.Context, userID int64) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM chat_history WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("store: clear history: %w", err)
	}
	return nil
}

// --- Action log (rate limiting) ---

// RecordAction logs one user action.
func (s *Store) RecordAction(ctx context.Context, userID int64) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO user_actions (user_id) VALUES ($1)`, userID); err != nil {
		return fmt.Errorf("store: record action: %w", err)
	}
	return nil
}

// CountRecentActions counts a user's actions inside the window.
func (s *Store) CountRecentActions(ctx context.Context, userID int64, window time.Duration) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM user_actions
		 WHERE user_id = $1 AND created_at > now() - $2::interval`,
		userID, window.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: count actions: %w", err)
	}
	return count, nil
}

// PruneActions deletes action records older than the retention period.
// Run periodically; the table only exists to answer the window count.
func (s *Store) PruneActions(ctx context.Context, retention time.Duration) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM user_actions WHERE created_at < now() - $1::interval`,
		retention.String()); err != nil {
		return fmt.Errorf("store: prune actions: %w", err)
	}
	return nil
}

// --- Tariff catalog ---

// Tariff is one row of the sales catalog.
type Tariff struct {
	Name        string
	PriceRub    int
	Description string
	Features    []string
}

// AllTariffs returns the catalog ordered by price.
func (s *Store) AllTariffs(ctx context.Context) ([]Tariff, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, price_rub, description, features
		 FROM tariffs ORDER BY price_rub`)
	if err != nil {
		return nil, fmt.Errorf("store: list tariffs: %w", err)
	}
	defer rows.Close()

	var tariffs []Tariff
	for rows.Next() {
		var t Tariff
		var features []byte
		if err := rows.Scan(&t.Name, &t.PriceRub, &t.Description, &features); err != nil {
			return nil, fmt.Errorf("store: scan tariff: %w", err)
		}
		if err := json.Unmarshal(features, &t.Features); err != nil {
			return nil, fmt.Errorf("store: decode tariff features: %w", err)
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, rows.Err()
}

// TariffByName fetches one tariff, case-insensitively.
func (s *Store) TariffByName(ctx context.Context, name string) (Tariff, error) {
	var t Tariff
	var features []byte
	err := s.pool.QueryRow(ctx,
		`SELECT name, price_rub, description, features
		 FROM tariffs WHERE lower(name) = lower($1)`, name,
	).Scan(&t.Name, &t.PriceRub, &t.Description, &features)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tariff{}, ErrNotFound
	}
	if err != nil {
		return Tariff{}, fmt.Errorf("store: tariff by name: %w", err)
	}
	if err := json.Unmarshal(features, &t.Features); err != nil {
		return Tariff{}, fmt.Errorf("store: decode tariff features: %w", err)
	}
	return t, nil
}

// --- Support FAQ ---

// Article is one support knowledge-base entry.
type Article struct {
	ID    int64
	Title string
	Body  string
	Rank  float32
}

// AllSupportArticles returns every FAQ entry with its row id. Used to
// seed the in-memory vector index at startup.
func (s *Store) AllSupportArticles(ctx context.Context) ([]Article, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, body FROM support_articles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list support articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Body); err != nil {
			return nil, fmt.Errorf("store: scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// SearchSupport runs Russian full-text search over the FAQ and
// returns up to `limit` articles by rank.
func (s *Store) SearchSupport(ctx context.Context, query string, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.pool.Query(ctx, `
		SELECT title, body, ts_rank(tsv, q) AS rank
		FROM support_articles, websearch_to_tsquery('russian', $1) q
		WHERE tsv @@ q
		ORDER BY rank DESC
		LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search support: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.Title, &a.Body, &a.Rank); err != nil {
			return nil, fmt.Errorf("store: scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
