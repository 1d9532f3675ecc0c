package index

import (
	"database/sql"
	"fmt"
	"time"
)

// Record is the last observed shape of one vault note.
type Record struct {
	Path      string
	Title     string
	Hash      string
	Targets   []string
	UpdatedAt int64
}

// Put upserts a note record and replaces its link targets atomically.
func (db *DB) Put(rec Record) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}

	now := time.Now().UnixMilli()
	_, err = tx.Exec(`
		INSERT INTO notes (path, title, hash, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET title = excluded.title,
			hash = excluded.hash, updated_at = excluded.updated_at
	`, rec.Path, rec.Title, rec.Hash, now)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert note %s: %w", rec.Path, err)
	}

	if _, err := tx.Exec("DELETE FROM note_links WHERE path = ?", rec.Path); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear links %s: %w", rec.Path, err)
	}
	for _, target := range rec.Targets {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO note_links (path, target) VALUES (?, ?)",
			rec.Path, target,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert link %s -> %s: %w", rec.Path, target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put %s: %w", rec.Path, err)
	}
	return nil
}

// Get returns the record for path, or nil if the path is not indexed.
func (db *DB) Get(path string) (*Record, error) {
	rec := &Record{Path: path}
	err := db.QueryRow(
		"SELECT title, hash, updated_at FROM notes WHERE path = ?", path,
	).Scan(&rec.Title, &rec.Hash, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note %s: %w", path, err)
	}

	rec.Targets, err = db.targetsOf(path)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (db *DB) targetsOf(path string) ([]string, error) {
	rows, err := db.Query(
		"SELECT target FROM note_links WHERE path = ? ORDER BY target", path,
	)
	if err != nil {
		return nil, fmt.Errorf("list links %s: %w", path, err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// Delete removes a note and its links. No-op for unknown paths.
func (db *DB) Delete(path string) error {
	if _, err := db.Exec("DELETE FROM notes WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete note %s: %w", path, err)
	}
	return nil
}

// Rename moves a note record to a new path; links follow via cascade.
func (db *DB) Rename(oldPath, newPath string) error {
	res, err := db.Exec(
		"UPDATE notes SET path = ?, updated_at = ? WHERE path = ?",
		newPath, time.Now().UnixMilli(), oldPath,
	)
	if err != nil {
		return fmt.Errorf("rename note %s -> %s: %w", oldPath, newPath, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rename note: %s not indexed", oldPath)
	}
	return nil
}

// FindByHash returns the indexed path with the given content hash, or ""
// when no note matches. Used to recognize renames reported by the OS as a
// remove/create pair.
func (db *DB) FindByHash(hash string) (string, error) {
	if hash == "" {
		return "", nil
	}
	var path string
	err := db.QueryRow("SELECT path FROM notes WHERE hash = ? LIMIT 1", hash).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find by hash: %w", err)
	}
	return path, nil
}

// All returns every indexed record, for warm restarts.
func (db *DB) All() ([]Record, error) {
	rows, err := db.Query("SELECT path, title, hash, updated_at FROM notes ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Path, &rec.Title, &rec.Hash, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range recs {
		recs[i].Targets, err = db.targetsOf(recs[i].Path)
		if err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// Count returns the number of indexed notes.
func (db *DB) Count() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&n)
	return n, err
}
