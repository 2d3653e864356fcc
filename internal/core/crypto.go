// Package core provides encrypted database support for the selection ledger.
//
// INVARIANTS:
// - Ledger encrypted at rest via SQLCipher when a passphrase is set
// - Passphrase is never stored or logged
// - Fail on open if the key is incorrect
package core

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// EncryptedDB wraps a SQLCipher-encrypted SQLite database.
type EncryptedDB struct {
	db        *sql.DB
	dbPath    string
	encrypted bool
}

// OpenEncryptedDB opens a SQLCipher-encrypted database.
// If passphrase is empty, opens without encryption.
// If the database exists and passphrase is wrong, returns an error.
func OpenEncryptedDB(dbPath string, passphrase string) (*EncryptedDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_busy_timeout", "5000")
	encrypted := passphrase != ""
	if encrypted {
		params.Set("_pragma_key", passphrase)
	}
	dsn := fmt.Sprintf("file:%s?%s", dbPath, params.Encode())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// PRAGMA key and rekey apply per connection.
	db.SetMaxOpenConns(1)

	// Reading the schema fails with a wrong key.
	var n int
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		db.Close()
		if encrypted {
			return nil, fmt.Errorf("invalid passphrase or corrupted database: %w", err)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &EncryptedDB{
		db:        db,
		dbPath:    dbPath,
		encrypted: encrypted,
	}, nil
}

// DB returns the underlying database connection.
func (edb *EncryptedDB) DB() *sql.DB {
	return edb.db
}

// Close closes the database connection.
func (edb *EncryptedDB) Close() error {
	return edb.db.Close()
}

// IsEncrypted returns whether the database is encrypted.
func (edb *EncryptedDB) IsEncrypted() bool {
	return edb.encrypted
}

// Path returns the database file path.
func (edb *EncryptedDB) Path() string {
	return edb.dbPath
}

// ChangePassphrase re-encrypts the database with a new key.
func (edb *EncryptedDB) ChangePassphrase(ctx context.Context, newPassphrase string) error {
	if !edb.encrypted {
		return fmt.Errorf("database is not encrypted")
	}
	if newPassphrase == "" {
		return fmt.Errorf("new passphrase must not be empty")
	}

	quoted := strings.ReplaceAll(newPassphrase, "'", "''")
	if _, err := edb.db.ExecContext(ctx, fmt.Sprintf("PRAGMA rekey = '%s';", quoted)); err != nil {
		return fmt.Errorf("failed to change passphrase: %w", err)
	}
	return nil
}

// ValidatePassphrase checks if a passphrase opens an initialised ledger.
func ValidatePassphrase(dbPath string, passphrase string) error {
	db, err := OpenEncryptedDB(dbPath, passphrase)
	if err != nil {
		return err
	}
	defer db.Close()

	var version string
	err = db.DB().QueryRow("SELECT value FROM ledger_meta WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		return fmt.Errorf("invalid passphrase or uninitialised ledger: %w", err)
	}
	return nil
}
