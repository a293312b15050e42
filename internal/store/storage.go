package store

import (
	"database/sql"
	"fmt"
	"time"
)

// LocalStorage is the client's durable key/value store. Values are sealed
// at rest when a Sealer is configured.
type LocalStorage struct {
	db     *sql.DB
	sealer *Sealer
}

func NewLocalStorage(db *sql.DB, sealer *Sealer) *LocalStorage {
	return &LocalStorage{db: db, sealer: sealer}
}

// Get returns the value for key and whether it was present.
func (s *LocalStorage) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	if s.sealer != nil {
		value, err = s.sealer.Open(value)
		if err != nil {
			return "", false, fmt.Errorf("open %q: %w", key, err)
		}
	}
	return value, true, nil
}

func (s *LocalStorage) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

// SetMany writes all pairs in one transaction.
func (s *LocalStorage) SetMany(values map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for key, value := range values {
		if s.sealer != nil {
			value, err = s.sealer.Seal(value)
			if err != nil {
				return fmt.Errorf("seal %q: %w", key, err)
			}
		}
		_, err := tx.Exec(
			`INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now,
		)
		if err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Remove deletes keys. Missing keys are not an error.
func (s *LocalStorage) Remove(keys ...string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.Exec(`DELETE FROM local_storage WHERE key = ?`, key); err != nil {
			return fmt.Errorf("remove %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *LocalStorage) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM local_storage ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
