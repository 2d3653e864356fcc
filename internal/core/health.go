// Package core provides the ledger health check for deeptube.
//
// INVARIANTS:
// - Health checks are OBSERVATIONAL only
// - NO automatic remediation
// - NO ledger writes
package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/deeptube/deeptube/internal/catalog"
	"github.com/deeptube/deeptube/internal/model"
)

// IssueSeverity grades a health issue.
type IssueSeverity string

const (
	IssueCritical IssueSeverity = "critical"
	IssueWarning  IssueSeverity = "warning"
)

// HealthIssue is a single finding about a ledger record.
type HealthIssue struct {
	Severity IssueSeverity `json:"severity"`
	Account  string        `json:"account"`
	RecordID string        `json:"record_id"`
	Problem  string        `json:"problem"`
}

// LedgerHealth is the result of a ledger health check.
type LedgerHealth struct {
	Accounts int           `json:"accounts"`
	Issues   []HealthIssue `json:"issues"`
}

// Healthy reports whether no critical issue was found.
func (h *LedgerHealth) Healthy() bool {
	for _, i := range h.Issues {
		if i.Severity == IssueCritical {
			return false
		}
	}
	return true
}

// HealthChecker checks current selections against the ledger invariants
// and the catalog.
type HealthChecker struct {
	ledger  *Ledger
	catalog *catalog.Catalog
}

// NewHealthChecker creates a new health checker.
func NewHealthChecker(l *Ledger, cat *catalog.Catalog) *HealthChecker {
	return &HealthChecker{ledger: l, catalog: cat}
}

// Check returns every finding, ordered by account.
func (hc *HealthChecker) Check(ctx context.Context) (*LedgerHealth, error) {
	records, err := hc.ledger.currentRecords(ctx)
	if err != nil {
		return nil, err
	}

	byAccount := make(map[string][]*model.SelectionRecord)
	for _, rec := range records {
		byAccount[rec.Account] = append(byAccount[rec.Account], rec)
	}

	health := &LedgerHealth{Accounts: len(byAccount), Issues: []HealthIssue{}}
	for account, recs := range byAccount {
		if len(recs) > 1 {
			for _, rec := range recs {
				health.Issues = append(health.Issues, HealthIssue{
					Severity: IssueCritical,
					Account:  account,
					RecordID: rec.ID,
					Problem:  fmt.Sprintf("one of %d current selections", len(recs)),
				})
			}
		}

		for _, rec := range recs {
			country, ok := hc.catalog.Lookup(rec.CountryID)
			switch {
			case !ok:
				health.Issues = append(health.Issues, HealthIssue{
					Severity: IssueCritical,
					Account:  account,
					RecordID: rec.ID,
					Problem:  fmt.Sprintf("country %q is no longer in the catalog", rec.CountryID),
				})
			case !country.Pickable():
				health.Issues = append(health.Issues, HealthIssue{
					Severity: IssueWarning,
					Account:  account,
					RecordID: rec.ID,
					Problem:  fmt.Sprintf("country %q is now %s", country.Name, country.Status),
				})
			case country.Name != rec.CountryName:
				health.Issues = append(health.Issues, HealthIssue{
					Severity: IssueWarning,
					Account:  account,
					RecordID: rec.ID,
					Problem:  fmt.Sprintf("country renamed from %q to %q", rec.CountryName, country.Name),
				})
			}
		}
	}

	sort.SliceStable(health.Issues, func(i, j int) bool {
		a, b := health.Issues[i], health.Issues[j]
		if a.Account != b.Account {
			return a.Account < b.Account
		}
		return a.RecordID < b.RecordID
	})
	return health, nil
}

// currentRecords returns every current record in the ledger.
func (l *Ledger) currentRecords(ctx context.Context) ([]*model.SelectionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.DB().QueryContext(ctx, `
		SELECT record_id, account, country_id, country_name, zone, confirmed_at, state
		FROM selections WHERE state = 'current'
		ORDER BY account, seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list current selections: %w", err)
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
		return nil, fmt.Errorf("failed to list current selections: %w", err)
	}
	return records, nil
}
