package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Registry is the SQLite-backed subscription registry.
// It is safe for concurrent use; SQLite serializes conflicting writes.
type Registry struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the registry database at cfg.Path
// and applies the schema.
func Open(cfg Config, log zerolog.Logger) (*Registry, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	r := &Registry{db: db, log: log}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *Registry) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, string(b))
	return err
}

func (r *Registry) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Subscribe registers chatID on channel. It validates the channel name
// before touching the database and maps the unique-constraint violation
// to ErrAlreadySubscribed.
func (r *Registry) Subscribe(ctx context.Context, chatID int64, channel string) error {
	if !ValidateChannel(channel) {
		return ErrInvalidChannel
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (chat_id, channel, created_at) VALUES (?, ?, ?)`,
		chatID, channel, time.Now().Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadySubscribed
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	r.log.Debug().Int64("chat_id", chatID).Str("channel", channel).Msg("subscribed")
	return nil
}

// Unsubscribe removes chatID's registration on channel. It reports
// removed=false with a nil error when no matching row existed; absence
// is a normal outcome, not a failure.
func (r *Registry) Unsubscribe(ctx context.Context, chatID int64, channel string) (removed bool, err error) {
	if !ValidateChannel(channel) {
		return false, ErrInvalidChannel
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE chat_id = ? AND channel = ?`,
		chatID, channel,
	)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		r.log.Debug().Int64("chat_id", chatID).Str("channel", channel).Msg("unsubscribed")
	}
	return n > 0, nil
}

// Subscribers returns the chat IDs registered on channel. A channel with
// no subscribers (including one that never existed) yields an empty slice.
func (r *Registry) Subscribers(ctx context.Context, channel string) ([]int64, error) {
	if !ValidateChannel(channel) {
		return nil, ErrInvalidChannel
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT chat_id FROM subscriptions WHERE channel = ?`, channel)
	if err != nil {
		return nil, fmt.Errorf("select subscribers: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// AllSubscribers returns the distinct union of chat IDs across every
// channel. A chat subscribed to several channels appears once.
func (r *Registry) AllSubscribers(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT chat_id FROM subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("select all subscribers: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// Subscriptions returns every subscription ordered by channel, then chat ID,
// so repeated listings are reproducible.
func (r *Registry) Subscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT chat_id, channel, created_at FROM subscriptions ORDER BY channel, chat_id`)
	if err != nil {
		return nil, fmt.Errorf("select subscriptions: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var s Subscription
		var created int64
		if err := rows.Scan(&s.ChatID, &s.Channel, &created); err != nil {
			return nil, err
		}
		s.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Maintain runs periodic database upkeep: a WAL checkpoint and the
// query-planner statistics refresh. Called on a schedule by the app.
func (r *Registry) Maintain(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `PRAGMA optimize`); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	return nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
