// Package core provides the selection ledger for deeptube.
//
// INVARIANTS:
// - At most one current record per account
// - A country change is refused until the change interval has elapsed
// - Re-confirming the current country writes nothing
// - Records are never deleted, only superseded
package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deeptube/deeptube/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrChangeTooSoon is matched by *ChangeTooSoonError.
	ErrChangeTooSoon = errors.New("country changed too recently")
	// ErrLedgerDisabled is returned when no ledger is configured.
	ErrLedgerDisabled = errors.New("selection ledger is disabled")
)

// ChangeTooSoonError reports a refused country change.
type ChangeTooSoonError struct {
	Account     string
	Current     *model.SelectionRecord
	NextAllowed time.Time
}

func (e *ChangeTooSoonError) Error() string {
	return fmt.Sprintf("account %q: %v (next change allowed %s)",
		e.Account, ErrChangeTooSoon, e.NextAllowed.Format(time.DateOnly))
}

func (e *ChangeTooSoonError) Is(target error) bool {
	return target == ErrChangeTooSoon
}

// Ledger stores accepted selections per account.
type Ledger struct {
	db             *EncryptedDB
	intervalMonths int
	mu             sync.Mutex
}

// LedgerStats summarises the ledger contents.
type LedgerStats struct {
	Accounts   int `json:"accounts"`
	Current    int `json:"current"`
	Superseded int `json:"superseded"`
}

// OpenLedger opens (and initialises) a ledger at path.
// An intervalMonths of zero or less disables the change limit.
func OpenLedger(ctx context.Context, path, passphrase string, intervalMonths int) (*Ledger, error) {
	db, err := OpenEncryptedDB(path, passphrase)
	if err != nil {
		return nil, err
	}
	l := NewLedger(db, intervalMonths)
	if err := l.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// NewLedger wraps an open database.
func NewLedger(db *EncryptedDB, intervalMonths int) *Ledger {
	return &Ledger{db: db, intervalMonths: intervalMonths}
}

// Initialize creates the schema if it doesn't exist.
func (l *Ledger) Initialize(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	schema := `
CREATE TABLE IF NOT EXISTS selections (
    seq             INTEGER PRIMARY KEY AUTOINCREMENT,
    record_id       TEXT NOT NULL UNIQUE,
    account         TEXT NOT NULL,
    country_id      TEXT NOT NULL,
    country_name    TEXT NOT NULL,
    zone            TEXT NOT NULL,
    confirmed_at    TEXT NOT NULL,
    state           TEXT NOT NULL DEFAULT 'current'
                    CHECK(state IN ('current', 'superseded'))
);
CREATE INDEX IF NOT EXISTS idx_selections_account ON selections(account, state);

CREATE TABLE IF NOT EXISTS ledger_meta (
    key             TEXT PRIMARY KEY,
    value           TEXT NOT NULL
);

INSERT OR IGNORE INTO ledger_meta (key, value) VALUES ('schema_version', '1');
`
	if _, err := l.db.DB().ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Encrypted reports whether the ledger is encrypted at rest.
func (l *Ledger) Encrypted() bool {
	return l.db.IsEncrypted()
}

// ChangePassphrase re-encrypts the ledger with a new passphrase.
func (l *Ledger) ChangePassphrase(ctx context.Context, passphrase string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.ChangePassphrase(ctx, passphrase)
}

// IntervalMonths returns the change interval; zero or less means no limit.
func (l *Ledger) IntervalMonths() int {
	return l.intervalMonths
}

// NextChange returns the earliest time the account may switch away from rec.
func (l *Ledger) NextChange(rec *model.SelectionRecord) time.Time {
	if l.intervalMonths <= 0 {
		return rec.ConfirmedAt
	}
	return rec.ConfirmedAt.AddDate(0, l.intervalMonths, 0)
}

// Record stores an accepted selection made at the given time.
// It reports whether a new record was written. Re-recording the current
// country returns the existing record unchanged.
func (l *Ledger) Record(ctx context.Context, account string, country model.Country, at time.Time) (*model.SelectionRecord, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := queryCurrent(ctx, tx, account)
	if err != nil {
		return nil, false, err
	}

	if current != nil {
		if current.CountryID == country.ID {
			return current, false, nil
		}
		if next := l.NextChange(current); l.intervalMonths > 0 && at.Before(next) {
			return nil, false, &ChangeTooSoonError{
				Account:     account,
				Current:     current,
				NextAllowed: next,
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE selections SET state = 'superseded' WHERE record_id = ?`, current.ID); err != nil {
			return nil, false, fmt.Errorf("failed to supersede selection: %w", err)
		}
	}

	rec := &model.SelectionRecord{
		ID:          uuid.New().String(),
		Account:     account,
		CountryID:   country.ID,
		CountryName: country.Name,
		Zone:        country.Zone,
		ConfirmedAt: at.UTC(),
		State:       model.RecordStateCurrent,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO selections (record_id, account, country_id, country_name, zone, confirmed_at, state)
		VALUES (?, ?, ?, ?, ?, ?, 'current')
	`, rec.ID, rec.Account, rec.CountryID, rec.CountryName, string(rec.Zone), rec.ConfirmedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, false, fmt.Errorf("failed to record selection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit selection: %w", err)
	}
	return rec, true, nil
}

// Current returns the current record for an account, or nil if none.
func (l *Ledger) Current(ctx context.Context, account string) (*model.SelectionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return queryCurrent(ctx, l.db.DB(), account)
}

// History returns every record for an account, newest first.
func (l *Ledger) History(ctx context.Context, account string) ([]*model.SelectionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.DB().QueryContext(ctx, `
		SELECT record_id, account, country_id, country_name, zone, confirmed_at, state
		FROM selections WHERE account = ?
		ORDER BY seq DESC
	`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to list selections: %w", err)
	}
	defer rows.Close()

	var records []*model.SelectionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list selections: %w", err)
	}
	return records, nil
}

// Stats returns ledger totals.
func (l *Ledger) Stats(ctx context.Context) (*LedgerStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s LedgerStats
	err := l.db.DB().QueryRowContext(ctx, `
		SELECT
			COUNT(DISTINCT account),
			COALESCE(SUM(CASE WHEN state = 'current' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN state = 'superseded' THEN 1 ELSE 0 END), 0)
		FROM selections
	`).Scan(&s.Accounts, &s.Current, &s.Superseded)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger stats: %w", err)
	}
	return &s, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func queryCurrent(ctx context.Context, q queryer, account string) (*model.SelectionRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT record_id, account, country_id, country_name, zone, confirmed_at, state
		FROM selections WHERE account = ? AND state = 'current'
		ORDER BY seq DESC LIMIT 1
	`, account)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func scanRecord(s scanner) (*model.SelectionRecord, error) {
	var rec model.SelectionRecord
	var zone, confirmedAt, state string
	err := s.Scan(&rec.ID, &rec.Account, &rec.CountryID, &rec.CountryName, &zone, &confirmedAt, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan selection: %w", err)
	}
	rec.Zone = model.Zone(zone)
	rec.State = model.RecordState(state)
	rec.ConfirmedAt, err = time.Parse(time.RFC3339Nano, confirmedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse confirmed_at %q: %w", confirmedAt, err)
	}
	return &rec, nil
}
