package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/deeptube/deeptube/internal/catalog"
	"github.com/deeptube/deeptube/internal/core"
	"github.com/deeptube/deeptube/internal/model"
	"github.com/deeptube/deeptube/internal/notify"
)

type failingConfirmer struct{}

func (failingConfirmer) Confirm(context.Context, core.ConfirmRequest) (*core.ConfirmResult, error) {
	return nil, errors.New("ledger locked")
}

func newTestModel(t *testing.T) (Model, *notify.Recorder) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	rec := notify.NewRecorder("test")
	svc := core.NewService(cat, core.WithPublisher(rec))
	return New(svc.NewController(), svc, WithStyles(NewStyles(DarkTheme()))), rec
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", next)
	}
	return updated, cmd
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestPicker_InitialState(t *testing.T) {
	m, _ := newTestModel(t)

	if m.ctrl.Zone() != model.FilterFor(model.ZoneOS) {
		t.Errorf("expected initial zone ОСЬ, got %s", m.ctrl.Zone())
	}
	if got := len(m.zones); got != 3 {
		t.Errorf("expected 3 zone tabs (all, ОСЬ, НЗВ), got %d", got)
	}
	if m.zones[m.zoneIdx] != m.ctrl.Zone() {
		t.Errorf("zone tab %d does not match controller zone", m.zoneIdx)
	}
	if m.cursor != 0 {
		t.Errorf("expected cursor on the default country, got %d", m.cursor)
	}
}

func TestPicker_ZoneChangeKeepsCountry(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.ctrl.Zone() != model.FilterFor(model.ZoneNZV) {
		t.Fatalf("expected НЗВ after Tab, got %s", m.ctrl.Zone())
	}
	if m.ctrl.CountryID() != "1" {
		t.Errorf("zone change must keep the country, got %s", m.ctrl.CountryID())
	}

	// Wrap around to all.
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.ctrl.Zone() != model.ZoneAll {
		t.Errorf("expected all after wrap, got %s", m.ctrl.Zone())
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.ctrl.Zone() != model.FilterFor(model.ZoneNZV) {
		t.Errorf("expected НЗВ after Shift+Tab, got %s", m.ctrl.Zone())
	}
}

func TestPicker_SelectOnlyPickable(t *testing.T) {
	m, _ := newTestModel(t)

	// ОСЬ list: 1, 4, 5(upcoming), 6(blocked), ...
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.ctrl.CountryID() != "4" {
		t.Fatalf("expected country 4 selected, got %s", m.ctrl.CountryID())
	}

	m, _ = update(t, m, keyRune('j'))
	m, _ = update(t, m, keyRune('j'))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.ctrl.CountryID() != "4" {
		t.Errorf("blocked country must not be selectable, got %s", m.ctrl.CountryID())
	}

	for i := 0; i < 50; i++ {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	if want := len(m.ctrl.FilteredList()) - 1; m.cursor != want {
		t.Errorf("cursor should stop at %d, got %d", want, m.cursor)
	}
}

func TestPicker_ConfirmShowsToast(t *testing.T) {
	m, rec := newTestModel(t)

	m, cmd := update(t, m, keyRune('c'))
	if cmd == nil {
		t.Fatal("confirm should return a command")
	}
	if !m.confirming {
		t.Error("model should be confirming")
	}

	msg := cmd()
	m, cmd = update(t, m, msg)
	if m.toast == nil {
		t.Fatal("confirm should show a toast")
	}
	if m.toast.Severity != model.SeveritySuccess {
		t.Errorf("expected success toast, got %s", m.toast.Severity)
	}
	if cmd == nil {
		t.Error("toast should schedule its expiry")
	}
	if !strings.Contains(m.View(), "успешно выбрана") {
		t.Error("view should render the toast")
	}
	if got := len(rec.Notifications()); got != 1 {
		t.Errorf("expected 1 published notification, got %d", got)
	}

	// A stale expiry leaves the toast alone.
	m, _ = update(t, m, toastExpiredMsg{seq: m.toastSeq - 1})
	if m.toast == nil {
		t.Error("stale expiry should not hide the toast")
	}
	m, _ = update(t, m, toastExpiredMsg{seq: m.toastSeq})
	if m.toast != nil {
		t.Error("expiry should hide the toast")
	}
}

func TestPicker_ConfirmBlockedSelectionOutsideFilter(t *testing.T) {
	m, _ := newTestModel(t)
	m.ctrl.SetCountry("6")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	_, cmd := update(t, m, keyRune('c'))

	res, ok := cmd().(confirmedMsg)
	if !ok {
		t.Fatalf("expected confirmedMsg")
	}
	if _, ok := res.result.Outcome.(core.Rejected); !ok {
		t.Errorf("expected Rejected, got %#v", res.result.Outcome)
	}
}

func TestPicker_ConfirmError(t *testing.T) {
	m, _ := newTestModel(t)
	m.confirmer = failingConfirmer{}

	m, cmd := update(t, m, keyRune('c'))
	m, _ = update(t, m, cmd())

	if m.err == nil {
		t.Fatal("confirm failure should be kept")
	}
	if m.toast != nil {
		t.Error("failed confirm should not show a toast")
	}
	if !strings.Contains(m.View(), "ledger locked") {
		t.Error("view should render the error")
	}
}

func TestPicker_ViewShowsHintsAndNotes(t *testing.T) {
	m, _ := newTestModel(t)

	view := m.View()
	for _, want := range []string{"DEEPTUBE", "Недралическая Империя", "Заблокирована", "Другие страны ОСИ на подходе!"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	view = m.View()
	if !strings.Contains(view, "Герцеговинск, Блэрний") {
		t.Error("НЗВ view should show the zone hint")
	}
	if strings.Contains(view, "Другие страны ОСИ на подходе!") {
		t.Error("ОСЬ note should be hidden under НЗВ")
	}
	if !strings.Contains(view, "вне выбранной зоны") {
		t.Error("detail should flag a selection outside the filter")
	}
}

func TestPicker_Quit(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := update(t, m, keyRune('q'))
	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
