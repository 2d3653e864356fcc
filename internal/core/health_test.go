package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/deeptube/deeptube/internal/catalog"
)

func TestHealthChecker_Healthy(t *testing.T) {
	ctx := context.Background()
	cat := defaultCatalog(t)
	l := newTestLedger(t, 1)

	if _, _, err := l.Record(ctx, "alice", mustLookup(t, cat, "1"), time.Now()); err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	health, err := NewHealthChecker(l, cat).Check(ctx)
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if !health.Healthy() || len(health.Issues) != 0 {
		t.Errorf("expected healthy ledger, got %+v", health.Issues)
	}
	if health.Accounts != 1 {
		t.Errorf("expected 1 account, got %d", health.Accounts)
	}
}

func TestHealthChecker_CatalogDrift(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, 1)
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	old := defaultCatalog(t)
	for account, id := range map[string]string{"alice": "1", "bob": "2", "carol": "3"} {
		if _, _, err := l.Record(ctx, account, mustLookup(t, old, id), at); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
	}

	// 1 renamed, 2 blocked, 3 removed.
	next, err := catalog.Load([]byte(`
title: DEEPTUBE
prompt: Выберите страну
defaults: {zone: all, country: "1"}
zones:
  - {tag: ОСЬ, listed: true}
  - {tag: НЗВ, listed: true}
countries:
  - {id: "1", name: Новая Империя, zone: ОСЬ, status: active}
  - {id: "2", name: Блэрний, zone: НЗВ, status: blocked}
`))
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	health, err := NewHealthChecker(l, next).Check(ctx)
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if health.Healthy() {
		t.Error("removed country should make the ledger unhealthy")
	}
	if len(health.Issues) != 3 {
		t.Fatalf("expected 3 issues, got %+v", health.Issues)
	}

	want := []struct {
		account  string
		severity IssueSeverity
	}{
		{"alice", IssueWarning},
		{"bob", IssueWarning},
		{"carol", IssueCritical},
	}
	for i, w := range want {
		if health.Issues[i].Account != w.account || health.Issues[i].Severity != w.severity {
			t.Errorf("issue %d: expected %s/%s, got %+v", i, w.account, w.severity, health.Issues[i])
		}
	}
}

func TestHealthChecker_DuplicateCurrent(t *testing.T) {
	ctx := context.Background()
	cat := defaultCatalog(t)
	l := newTestLedger(t, 1)

	if _, _, err := l.Record(ctx, "alice", mustLookup(t, cat, "1"), time.Now()); err != nil {
		t.Fatalf("failed to record: %v", err)
	}
	// Simulate a corrupted ledger.
	_, err := l.db.DB().ExecContext(ctx, `
		INSERT INTO selections (record_id, account, country_id, country_name, zone, confirmed_at, state)
		VALUES ('dup', 'alice', '4', 'Галактическая Империя', 'ОСЬ', ?, 'current')
	`, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		t.Fatalf("failed to insert duplicate: %v", err)
	}

	health, err := NewHealthChecker(l, cat).Check(ctx)
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if health.Healthy() {
		t.Error("two current selections should be critical")
	}
	critical := 0
	for _, i := range health.Issues {
		if i.Severity == IssueCritical {
			critical++
		}
	}
	if critical != 2 {
		t.Errorf("expected 2 critical issues, got %d", critical)
	}
}

func TestHealthChecker_IssueOrderPerRecord(t *testing.T) {
	ctx := context.Background()
	cat := defaultCatalog(t)
	l := newTestLedger(t, 1)

	if _, _, err := l.Record(ctx, "alice", mustLookup(t, cat, "1"), time.Now()); err != nil {
		t.Fatalf("failed to record: %v", err)
	}
	// A duplicate current row that also carries a stale name.
	_, err := l.db.DB().ExecContext(ctx, `
		INSERT INTO selections (record_id, account, country_id, country_name, zone, confirmed_at, state)
		VALUES ('dup', 'alice', '4', 'Старая Империя', 'ОСЬ', ?, 'current')
	`, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		t.Fatalf("failed to insert duplicate: %v", err)
	}

	hc := NewHealthChecker(l, cat)
	for i := 0; i < 20; i++ {
		health, err := hc.Check(ctx)
		if err != nil {
			t.Fatalf("health check failed: %v", err)
		}

		var dup []HealthIssue
		for _, issue := range health.Issues {
			if issue.RecordID == "dup" {
				dup = append(dup, issue)
			}
		}
		if len(dup) != 2 {
			t.Fatalf("expected 2 issues for the duplicate row, got %+v", dup)
		}
		if dup[0].Severity != IssueCritical || !strings.HasPrefix(dup[0].Problem, "one of") {
			t.Errorf("run %d: expected the duplicate issue first, got %+v", i, dup[0])
		}
		if dup[1].Severity != IssueWarning || !strings.Contains(dup[1].Problem, "renamed") {
			t.Errorf("run %d: expected the rename issue second, got %+v", i, dup[1])
		}
	}
}
