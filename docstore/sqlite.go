package docstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore keeps all documents in a single SQLite table.
//
// Tables:
//
//	documents(name, data)  PRIMARY KEY (name)
type SQLiteStore struct {
	db *sql.DB
}

// SQLite opens (or creates) a SQLite-backed Store at path.
func SQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("docstore: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("docstore: sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("docstore: sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("docstore: sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Exists(name string) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM documents WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Read(name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM documents WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notExist(name)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *SQLiteStore) Write(name string, data []byte) error {
	_, err := s.db.Exec(
		"INSERT INTO documents (name, data) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET data = excluded.data",
		name, nonNil(data),
	)
	return err
}

func (s *SQLiteStore) Append(name string, data []byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var old []byte
	err = tx.QueryRow("SELECT data FROM documents WHERE name = ?", name).Scan(&old)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	buf := append(old[:len(old):len(old)], data...)
	_, err = tx.Exec(
		"INSERT INTO documents (name, data) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET data = excluded.data",
		name, nonNil(buf),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Remove(name string) error {
	_, err := s.db.Exec("DELETE FROM documents WHERE name = ?", name)
	return err
}

func (s *SQLiteStore) List() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM documents ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// a nil []byte is bound as NULL, which the NOT NULL constraint rejects
func nonNil(data []byte) []byte {
	if data == nil {
		return []byte{}
	}
	return data
}
