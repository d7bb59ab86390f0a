package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteStore(dataSourceName string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Debug("SQLite store ready", zap.String("dsn", dataSourceName))
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS bookmarks (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        book_id INTEGER NOT NULL CHECK (book_id BETWEEN 1 AND 66),
        chapter INTEGER NOT NULL CHECK (chapter > 0),
        verse INTEGER NOT NULL CHECK (verse > 0),
        created_at DATETIME NOT NULL,
        UNIQUE (book_id, chapter, verse)
    );

    CREATE TABLE IF NOT EXISTS chat_messages (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT UNIQUE NOT NULL, -- UUID
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS settings (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        updated_at DATETIME NOT NULL
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Bookmark methods

// AddBookmark inserts the triple unless it is already bookmarked and returns
// the stored row either way.
func (s *SQLiteStore) AddBookmark(bookID, chapter, verse int) (*Bookmark, error) {
	res, err := s.db.Exec(
		"INSERT INTO bookmarks (book_id, chapter, verse, created_at) VALUES (?, ?, ?, ?) ON CONFLICT (book_id, chapter, verse) DO NOTHING",
		bookID, chapter, verse, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bookmark: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		s.logger.Debug("Bookmark already exists",
			zap.Int("book_id", bookID), zap.Int("chapter", chapter), zap.Int("verse", verse))
	}
	return s.getBookmarkByRef(bookID, chapter, verse)
}

func (s *SQLiteStore) getBookmarkByRef(bookID, chapter, verse int) (*Bookmark, error) {
	var b Bookmark
	err := s.db.QueryRow(
		"SELECT id, book_id, chapter, verse, created_at FROM bookmarks WHERE book_id = ? AND chapter = ? AND verse = ?",
		bookID, chapter, verse,
	).Scan(&b.ID, &b.BookID, &b.Chapter, &b.Verse, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}
	return &b, nil
}

// DeleteBookmark reports whether a row was removed. A missing id is not an error.
func (s *SQLiteStore) DeleteBookmark(id int64) (bool, error) {
	res, err := s.db.Exec("DELETE FROM bookmarks WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete bookmark: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// ListBookmarks returns bookmarks newest first.
func (s *SQLiteStore) ListBookmarks() ([]Bookmark, error) {
	rows, err := s.db.Query("SELECT id, book_id, chapter, verse, created_at FROM bookmarks ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := []Bookmark{}
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.BookID, &b.Chapter, &b.Verse, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark row: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}
	return bookmarks, nil
}

// Chat message methods

func (s *SQLiteStore) AppendMessage(role, content string) (*ChatMessage, error) {
	if role != RoleUser && role != RoleAssistant {
		return nil, fmt.Errorf("invalid chat role %q", role)
	}
	msg := &ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	stmt, err := s.db.Prepare("INSERT INTO chat_messages (id, role, content, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.Exec(msg.ID, msg.Role, msg.Content, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to execute message insert: %w", err)
	}
	return msg, nil
}

// AppendExchange stores a user message and the assistant's answer in one
// transaction, so the transcript never holds a user turn without its reply.
func (s *SQLiteStore) AppendExchange(userContent, assistantContent string) (*ChatMessage, *ChatMessage, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin message transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO chat_messages (id, role, content, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	userMsg := &ChatMessage{ID: uuid.NewString(), Role: RoleUser, Content: userContent, CreatedAt: now}
	assistantMsg := &ChatMessage{ID: uuid.NewString(), Role: RoleAssistant, Content: assistantContent, CreatedAt: now}
	for _, msg := range []*ChatMessage{userMsg, assistantMsg} {
		if _, err := stmt.Exec(msg.ID, msg.Role, msg.Content, msg.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to insert %s message: %w", msg.Role, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit messages: %w", err)
	}
	return userMsg, assistantMsg, nil
}

// ListHistory replays the transcript in the order it was written.
func (s *SQLiteStore) ListHistory() ([]ChatMessage, error) {
	return s.queryMessages("SELECT id, role, content, created_at FROM chat_messages ORDER BY seq ASC")
}

// LastMessages returns up to n of the most recent messages, oldest first.
func (s *SQLiteStore) LastMessages(n int) ([]ChatMessage, error) {
	if n <= 0 {
		return []ChatMessage{}, nil
	}
	query := `
        SELECT id, role, content, created_at FROM (
            SELECT seq, id, role, content, created_at
            FROM chat_messages
            ORDER BY seq DESC
            LIMIT ?
        ) ORDER BY seq ASC
    `
	return s.queryMessages(query, n)
}

func (s *SQLiteStore) queryMessages(query string, args ...any) ([]ChatMessage, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []ChatMessage{}
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

func (s *SQLiteStore) ClearHistory() error {
	res, err := s.db.Exec("DELETE FROM chat_messages")
	if err != nil {
		return fmt.Errorf("failed to delete chat messages: %w", err)
	}
	affected, _ := res.RowsAffected()
	s.logger.Info("Chat history cleared", zap.Int64("messages", affected))
	return nil
}

// Settings methods

// GetSetting returns ok=false when the key has never been written.
func (s *SQLiteStore) GetSetting(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to query setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSettings upserts all pairs in a single transaction.
func (s *SQLiteStore) SetSettings(values map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin settings transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
        INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare settings upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for key, value := range values {
		if _, err := stmt.Exec(key, value, now); err != nil {
			return fmt.Errorf("failed to upsert setting %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}
