// Package storage persists queue state in SQLite so queues survive a daemon
// restart.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/five82/setlist/internal/queue"
)

// DB wraps the queue database.
type DB struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

type storedEntry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SourceRef string `json:"sourceRef"`
}

// Open opens or creates dataDir/queues.db.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, "queues.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS queues (
			context       TEXT PRIMARY KEY,
			version       INTEGER NOT NULL,
			entries       TEXT NOT NULL,
			current_track TEXT,
			updated_at    DATETIME NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create queues table: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Save upserts st. A write carrying an older version than the stored row is
// ignored, so hooks that run out of order cannot roll a queue back.
func (d *DB) Save(ctx context.Context, st queue.State) error {
	entries, err := json.Marshal(toStored(st.Entries))
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	var current sql.NullString
	if st.CurrentTrack != nil {
		raw, err := json.Marshal(toStored([]queue.Entry{*st.CurrentTrack})[0])
		if err != nil {
			return fmt.Errorf("encode current track: %w", err)
		}
		current = sql.NullString{String: string(raw), Valid: true}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO queues (context, version, entries, current_track, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(context) DO UPDATE SET
			version = excluded.version,
			entries = excluded.entries,
			current_track = excluded.current_track,
			updated_at = excluded.updated_at
		WHERE excluded.version > queues.version
	`, st.Context, int64(st.Version), string(entries), current, st.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save queue %s: %w", st.Context, err)
	}
	return nil
}

// Delete removes a context's row.
func (d *DB) Delete(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.db.ExecContext(ctx, `DELETE FROM queues WHERE context = ?`, key); err != nil {
		return fmt.Errorf("delete queue %s: %w", key, err)
	}
	return nil
}

// LoadAll returns every persisted queue. Connection status is not persisted;
// loaded queues come back disconnected because no voice session survives a
// restart.
func (d *DB) LoadAll(ctx context.Context) ([]queue.State, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT context, version, entries, current_track, updated_at
		FROM queues ORDER BY context
	`)
	if err != nil {
		return nil, fmt.Errorf("query queues: %w", err)
	}
	defer rows.Close()

	var out []queue.State
	for rows.Next() {
		var (
			st        queue.State
			version   int64
			entries   string
			current   sql.NullString
			updatedAt string
		)
		if err := rows.Scan(&st.Context, &version, &entries, &current, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan queue: %w", err)
		}
		st.Version = uint64(version)
		st.Status = queue.Disconnected

		var stored []storedEntry
		if err := json.Unmarshal([]byte(entries), &stored); err != nil {
			return nil, fmt.Errorf("decode entries for %s: %w", st.Context, err)
		}
		st.Entries = fromStored(stored)

		// The track that was playing goes back to the head of the queue.
		if current.Valid {
			var cur storedEntry
			if err := json.Unmarshal([]byte(current.String), &cur); err != nil {
				return nil, fmt.Errorf("decode current track for %s: %w", st.Context, err)
			}
			st.Entries = append([]queue.Entry{{ID: cur.ID, Title: cur.Title, SourceRef: cur.SourceRef}}, st.Entries...)
		}
		if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			st.UpdatedAt = t
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queues: %w", err)
	}
	return out, nil
}

// Attach restores every persisted queue into registry and saves each later
// commit. Save failures go to onError.
func (d *DB) Attach(ctx context.Context, registry *queue.Registry, onError func(queue.State, error)) error {
	if registry == nil {
		return errors.New("registry is nil")
	}
	states, err := d.LoadAll(ctx)
	if err != nil {
		return err
	}
	for _, st := range states {
		registry.Get(st.Context).Restore(st)
	}
	registry.OnCommit(func(st queue.State) {
		if err := d.Save(context.Background(), st); err != nil && onError != nil {
			onError(st, err)
		}
	})
	return nil
}

func toStored(entries []queue.Entry) []storedEntry {
	out := make([]storedEntry, len(entries))
	for i, e := range entries {
		out[i] = storedEntry{ID: e.ID, Title: e.Title, SourceRef: e.SourceRef}
	}
	return out
}

func fromStored(entries []storedEntry) []queue.Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]queue.Entry, len(entries))
	for i, e := range entries {
		out[i] = queue.Entry{ID: e.ID, Title: e.Title, SourceRef: e.SourceRef}
	}
	return out
}
