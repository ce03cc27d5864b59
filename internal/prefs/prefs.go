// Package prefs persists small client-side preferences (dismissed
// notices, cached domain lists, default domain) in a local SQLite file.
package prefs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Well-known preference keys.
const (
	KeyNoticeDismissed = "noticeDismissed"
	KeyDomainsCache    = "domainsCache"
	KeyDefaultDomain   = "defaultDomain"
)

// DefaultPath returns the per-user location of the preferences
// database.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "aliasctl", "prefs.db"), nil
}

// Open opens (creating if necessary) the preferences database at
// dbPath.
func Open(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create prefs dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS prefs (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create prefs table: %w", err)
	}

	return db, nil
}

// Set stores a preference value, replacing any existing one.
func Set(d *sql.DB, key, value string) error {
	_, err := d.Exec(`
		INSERT INTO prefs (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert pref %s: %w", key, err)
	}
	return nil
}

// Get retrieves a preference value. Returns ("", false, nil) when the
// key is not set.
func Get(d *sql.DB, key string) (string, bool, error) {
	var value string
	err := d.QueryRow("SELECT value FROM prefs WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query pref %s: %w", key, err)
	}
	return value, true, nil
}

// Delete removes a preference. Deleting an absent key is not an error.
func Delete(d *sql.DB, key string) error {
	if _, err := d.Exec("DELETE FROM prefs WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete pref %s: %w", key, err)
	}
	return nil
}

// NoticeDismissed reports whether the named informational notice has
// been dismissed.
func NoticeDismissed(d *sql.DB, name string) (bool, error) {
	v, ok, err := Get(d, KeyNoticeDismissed+":"+name)
	if err != nil {
		return false, err
	}
	return ok && v == "1", nil
}

// SetNoticeDismissed marks the named notice as dismissed.
func SetNoticeDismissed(d *sql.DB, name string) error {
	return Set(d, KeyNoticeDismissed+":"+name, "1")
}

// DomainsCache returns the last fetched domain list, or (nil, false,
// nil) when none is cached.
func DomainsCache(d *sql.DB) ([]string, bool, error) {
	v, ok, err := Get(d, KeyDomainsCache)
	if err != nil || !ok {
		return nil, false, err
	}
	var domains []string
	if err := json.Unmarshal([]byte(v), &domains); err != nil {
		return nil, false, fmt.Errorf("decode domains cache: %w", err)
	}
	return domains, true, nil
}

// SetDomainsCache stores the fetched domain list for offline reuse.
func SetDomainsCache(d *sql.DB, domains []string) error {
	encoded, err := json.Marshal(domains)
	if err != nil {
		return fmt.Errorf("encode domains cache: %w", err)
	}
	return Set(d, KeyDomainsCache, string(encoded))
}

// DefaultDomain returns the preferred alias domain, if one is set.
func DefaultDomain(d *sql.DB) (string, bool, error) {
	return Get(d, KeyDefaultDomain)
}

// SetDefaultDomain stores the preferred alias domain.
func SetDefaultDomain(d *sql.DB, domain string) error {
	return Set(d, KeyDefaultDomain, domain)
}
