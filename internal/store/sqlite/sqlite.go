package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/burnroom/internal/store"
)

// Schema is applied on open. Times are unix milliseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	room_id    TEXT NOT NULL,
	sender     TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY (room_id) REFERENCES rooms(id)
);

CREATE INDEX IF NOT EXISTS idx_rooms_expires ON rooms(expires_at);
CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, created_at, id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db    *sql.DB
	clock clock.Clock
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock sets the clock used to judge expiry.
func WithClock(clk clock.Clock) Option {
	return func(s *SQLiteStore) {
		s.clock = clk
	}
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string, opts ...Option) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	}, opts...)
}

// NewWithSetup creates a new SQLite store and runs a setup function instead
// of applying Schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before setup
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, clock: clock.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== RoomStore implementation ====

// CreateRoom registers a room expiring ttl from now.
func (s *SQLiteStore) CreateRoom(ctx context.Context, id string, ttl time.Duration) (*store.Room, error) {
	now := s.clock.Now()
	room := &store.Room{ID: id, CreatedAt: now, ExpiresAt: now.Add(ttl)}

	query := `INSERT INTO rooms (id, created_at, expires_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, id, now.UnixMilli(), room.ExpiresAt.UnixMilli()); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return room, nil
}

// GetRoom returns a live room.
func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	query := `
		SELECT id, created_at, expires_at
		FROM rooms
		WHERE id = ? AND expires_at > ?
	`
	var (
		room               store.Room
		created, expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, query, id, s.clock.Now().UnixMilli()).Scan(&room.ID, &created, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRoomNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	room.CreatedAt = time.UnixMilli(created)
	room.ExpiresAt = time.UnixMilli(expiresAt)
	return &room, nil
}

// DeleteRoom removes a live room and its messages.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ? AND expires_at > ?`, id, s.clock.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrRoomNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE room_id = ?`, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ExpireRooms deletes rooms past their deadline with their messages.
func (s *SQLiteStore) ExpireRooms(ctx context.Context, now time.Time) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `SELECT id FROM rooms WHERE expires_at <= ? ORDER BY expires_at, id`, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query expired rooms: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE room_id = ?`, id); err != nil {
			return nil, fmt.Errorf("delete messages of %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("delete room %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return ids, nil
}

// ==== MessageStore implementation ====

// SaveMessage appends a message to a live room.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (id, room_id, sender, text, created_at)
		SELECT ?, id, ?, ?, ?
		FROM rooms
		WHERE id = ? AND expires_at > ?
	`
	res, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.Sender, msg.Text, msg.CreatedAt.UnixMilli(),
		msg.RoomID, s.clock.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrRoomNotFound
	}
	return nil
}

// ListMessages returns a live room's messages oldest first. Unknown and
// expired rooms have none.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID string) ([]store.Message, error) {
	query := `
		SELECT id, room_id, sender, text, created_at
		FROM messages
		WHERE room_id = ?
		  AND EXISTS (SELECT 1 FROM rooms WHERE id = ? AND expires_at > ?)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, roomID, s.clock.Now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]store.Message, 0)
	for rows.Next() {
		var (
			msg     store.Message
			created int64
		)
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.Sender, &msg.Text, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = time.UnixMilli(created)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
