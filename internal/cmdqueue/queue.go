// Package cmdqueue persists authorized commands in submission order.
//
// The queue is append-only during normal operation: commands are recorded
// after the authorization gate allows them and before the dispatcher runs
// them, so a crash between those two steps leaves an auditable record of
// what was approved. Replay yields commands oldest-first and may be
// repeated; Clear is the only destructive operation and is transactional.
package cmdqueue

import (
	"database/sql"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/powerstream/commandgate/internal/model"
)

// Queue provides durable ordered storage for authorized commands.
type Queue struct {
	db *sql.DB
}

// DefaultPath returns the default database path following XDG spec.
func DefaultPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "commandgate", "queue.db")
}

// Open opens or creates the queue database at the given path.
func Open(path string) (*Queue, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode lets the audit reader replay the queue while the gate is
	// still appending to it.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Without a busy timeout concurrent appends immediately return
	// SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	q := &Queue{db: db}
	if err := q.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return q, nil
}

func (q *Queue) migrate() error {
	// AUTOINCREMENT prevents rowid reuse after Clear, so IDs stay
	// monotonic across the queue's whole history.
	schema := `
	CREATE TABLE IF NOT EXISTS command_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		actor_id TEXT NOT NULL,
		command_text TEXT NOT NULL,
		submitted_at INTEGER NOT NULL
	);
	`
	_, err := q.db.Exec(schema)
	return err
}

// Append records an authorized command and returns its queue ID.
func (q *Queue) Append(actorID, commandText string) (int64, error) {
	res, err := q.db.Exec(
		"INSERT INTO command_queue (actor_id, command_text, submitted_at) VALUES (?, ?, ?)",
		actorID, commandText, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: append: %v", model.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: append: %v", model.ErrPersistence, err)
	}
	return id, nil
}

// Replay yields every queued command oldest-first. The sequence opens a
// fresh cursor on each iteration, so callers may range over it repeatedly.
// Query errors end the sequence early; use Len to distinguish an empty
// queue from a failed read.
func (q *Queue) Replay() iter.Seq[model.QueuedCommand] {
	return func(yield func(model.QueuedCommand) bool) {
		rows, err := q.db.Query(
			"SELECT id, actor_id, command_text, submitted_at FROM command_queue ORDER BY id ASC",
		)
		if err != nil {
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				cmd  model.QueuedCommand
				unix int64
			)
			if err := rows.Scan(&cmd.ID, &cmd.ActorID, &cmd.CommandText, &unix); err != nil {
				return
			}
			cmd.SubmittedAt = time.Unix(unix, 0).UTC()
			if !yield(cmd) {
				return
			}
		}
	}
}

// Len returns the number of queued commands.
func (q *Queue) Len() (int, error) {
	var n int
	if err := q.db.QueryRow("SELECT COUNT(*) FROM command_queue").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", model.ErrPersistence, err)
	}
	return n, nil
}

// Clear removes every queued command in a single transaction and returns
// how many were removed.
func (q *Queue) Clear() (int64, error) {
	tx, err := q.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("%w: clear: %v", model.ErrPersistence, err)
	}
	res, err := tx.Exec("DELETE FROM command_queue")
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("%w: clear: %v", model.ErrPersistence, err)
	}
	removed, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: clear: %v", model.ErrPersistence, err)
	}
	return removed, nil
}

// Close closes the underlying database.
func (q *Queue) Close() error {
	return q.db.Close()
}
