package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/miyifan/deepchat/model"
	"github.com/miyifan/deepchat/store"
)

const previewLen = 100

// SearchIndex is a sqlite index over all windows' messages, rebuilt from the
// snapshot. The snapshot file stays the source of truth; the index is
// disposable and can be rebuilt at any time.
type SearchIndex struct {
	db *sql.DB
}

// SearchResult is one matching message.
type SearchResult struct {
	WindowID    string
	WindowTitle string
	MessageIdx  int
	Role        string
	Preview     string
	Timestamp   int64
}

// OpenSearchIndex opens (or creates) the index database in dataDir.
func OpenSearchIndex(dataDir string) (*SearchIndex, error) {
	db, err := sql.Open("sqlite", filepath.Join(dataDir, "search.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS messages (
		window_id TEXT NOT NULL,
		window_title TEXT NOT NULL,
		message_idx INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_window ON messages(window_id);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create search schema: %w", err)
	}

	return &SearchIndex{db: db}, nil
}

// Close releases the database handle.
func (s *SearchIndex) Close() error {
	return s.db.Close()
}

// Rebuild replaces the whole index with the snapshot's contents. System
// messages are not indexed; they are prompts, not conversation.
func (s *SearchIndex) Rebuild(snap store.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to clear search index: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO messages
		(window_id, window_title, message_idx, role, content, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare index insert: %w", err)
	}
	defer stmt.Close()

	for _, w := range snap.Windows {
		for i, msg := range w.Messages {
			if msg.Role == model.RoleSystem {
				continue
			}
			if _, err := stmt.Exec(w.ID, w.Title, i, msg.Role, msg.Content, msg.Timestamp); err != nil {
				return fmt.Errorf("failed to index message: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Search returns messages containing query, case-insensitively, newest
// first.
func (s *SearchIndex) Search(query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	rows, err := s.db.Query(`SELECT window_id, window_title, message_idx, role, content, timestamp
		FROM messages
		WHERE content LIKE ? ESCAPE '\'
		ORDER BY timestamp DESC`,
		"%"+escapeLike(query)+"%")
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var content string
		if err := rows.Scan(&r.WindowID, &r.WindowTitle, &r.MessageIdx, &r.Role, &content, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		r.Preview = makePreview(content)
		results = append(results, r)
	}
	return results, rows.Err()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func makePreview(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= previewLen {
		return content
	}
	return string(runes[:previewLen]) + "..."
}
