package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/deeptube/deeptube/internal/core"
	"github.com/deeptube/deeptube/internal/model"
)

const defaultToastTimeout = 3 * time.Second

// Confirmer runs a confirm action. *core.Service implements it.
type Confirmer interface {
	Confirm(ctx context.Context, req core.ConfirmRequest) (*core.ConfirmResult, error)
}

// confirmedMsg carries the result of a confirm action.
type confirmedMsg struct {
	result *core.ConfirmResult
	err    error
}

// toastExpiredMsg hides the toast with the given sequence number.
type toastExpiredMsg struct {
	seq int
}

// Option configures the picker model.
type Option func(*Model)

// WithAccount sets the ledger account used for confirms.
func WithAccount(account string) Option {
	return func(m *Model) { m.account = account }
}

// WithToastTimeout sets how long a toast stays visible.
func WithToastTimeout(d time.Duration) Option {
	return func(m *Model) { m.toastTimeout = d }
}

// WithStyles overrides the detected styles.
func WithStyles(s Styles) Option {
	return func(m *Model) { m.styles = s }
}

// Model is the picker state.
type Model struct {
	ctrl      *core.Controller
	confirmer Confirmer
	account   string

	zones   []model.ZoneFilter
	zoneIdx int
	cursor  int

	toast        *model.Notification
	toastSeq     int
	toastTimeout time.Duration
	confirming   bool
	err          error

	keys   keyMap
	help   help.Model
	styles Styles
	width  int
}

// New creates a picker over ctrl. Confirms go through confirmer.
func New(ctrl *core.Controller, confirmer Confirmer, opts ...Option) Model {
	m := Model{
		ctrl:         ctrl,
		confirmer:    confirmer,
		zones:        []model.ZoneFilter{model.ZoneAll},
		toastTimeout: defaultToastTimeout,
		keys:         defaultKeyMap(),
		help:         help.New(),
		styles:       DefaultStyles(),
	}
	for _, z := range ctrl.Catalog().ListedZones() {
		m.zones = append(m.zones, model.FilterFor(z.Tag))
	}
	for i, z := range m.zones {
		if z == ctrl.Zone() {
			m.zoneIdx = i
		}
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.syncCursor()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case confirmedMsg:
		m.confirming = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		n := msg.result.Notification
		m.toast = &n
		m.toastSeq++
		seq := m.toastSeq
		return m, tea.Tick(m.toastTimeout, func(time.Time) tea.Msg {
			return toastExpiredMsg{seq: seq}
		})

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.ctrl.FilteredList())-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.NextZone):
		m.setZone((m.zoneIdx + 1) % len(m.zones))

	case key.Matches(msg, m.keys.PrevZone):
		m.setZone((m.zoneIdx + len(m.zones) - 1) % len(m.zones))

	case key.Matches(msg, m.keys.Select):
		list := m.ctrl.FilteredList()
		if m.cursor < len(list) && list[m.cursor].Pickable() {
			m.ctrl.SetCountry(list[m.cursor].ID)
		}

	case key.Matches(msg, m.keys.Confirm):
		if m.confirming {
			return m, nil
		}
		m.confirming = true
		return m, m.confirmCmd()
	}
	return m, nil
}

func (m *Model) setZone(idx int) {
	m.zoneIdx = idx
	m.ctrl.SetZone(m.zones[idx])
	m.syncCursor()
}

// syncCursor places the cursor on the selected country when it is listed.
func (m *Model) syncCursor() {
	m.cursor = 0
	for i, c := range m.ctrl.FilteredList() {
		if c.ID == m.ctrl.CountryID() {
			m.cursor = i
			return
		}
	}
}

func (m Model) confirmCmd() tea.Cmd {
	req := core.ConfirmRequest{
		Account:   m.account,
		Zone:      m.ctrl.Zone(),
		CountryID: m.ctrl.CountryID(),
	}
	confirmer := m.confirmer
	return func() tea.Msg {
		res, err := confirmer.Confirm(context.Background(), req)
		return confirmedMsg{result: res, err: err}
	}
}

// View renders the picker.
func (m Model) View() string {
	cat := m.ctrl.Catalog()

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(cat.Title()) + "\n")
	sb.WriteString(m.styles.Prompt.Render(cat.Prompt()) + "\n\n")

	left := lipgloss.JoinVertical(lipgloss.Left, m.zonePane(), m.countryPane())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", m.detailPane())
	sb.WriteString(body + "\n")

	if m.toast != nil {
		sb.WriteString(m.styles.Toasts[m.toast.Severity].Render(m.toast.Message) + "\n")
	}
	if m.err != nil {
		sb.WriteString(m.styles.Toasts[model.SeverityError].Render(fmt.Sprintf("Ошибка: %v", m.err)) + "\n")
	}

	for _, n := range m.ctrl.Notes() {
		sb.WriteString(m.styles.Note.Render(n) + "\n")
	}

	sb.WriteString("\n" + m.help.View(m.keys))
	return sb.String()
}

func (m Model) zonePane() string {
	var tabs []string
	for i, z := range m.zones {
		name := string(z)
		if z == model.ZoneAll {
			name = "Все"
		}
		if i == m.zoneIdx {
			tabs = append(tabs, m.styles.Cursor.Render("["+name+"]"))
		} else {
			tabs = append(tabs, m.styles.Muted.Render(" "+name+" "))
		}
	}
	content := strings.Join(tabs, " ")
	if hint := m.ctrl.ZoneHint(); hint != "" {
		content += "\n" + m.styles.Hint.Render(hint)
	}
	return m.styles.Pane.Render(content)
}

func (m Model) countryPane() string {
	list := m.ctrl.FilteredList()
	rows := make([]string, 0, len(list))
	for i, c := range list {
		marker := "  "
		if i == m.cursor {
			marker = m.styles.Cursor.Render("> ")
		}

		name := c.Name
		switch {
		case c.ID == m.ctrl.CountryID():
			name = m.styles.Selected.Render("● " + name)
		case !c.Pickable():
			name = m.styles.Muted.Render("  " + name)
		default:
			name = "  " + name
		}

		row := marker + name
		if l, ok := core.StatusLabel(c); ok {
			row += " " + m.styles.Badges[l.Kind].Render(l.Text)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		rows = append(rows, m.styles.Muted.Render("Нет стран"))
	}
	return m.styles.Focus.Render(strings.Join(rows, "\n"))
}

func (m Model) detailPane() string {
	d, ok := m.ctrl.Detail()
	if !ok {
		return m.styles.Pane.Render(m.styles.Muted.Render("Выберите страну"))
	}

	lines := []string{
		m.styles.Bold.Render(d.Country.Name),
		m.styles.Muted.Render("Зона: " + string(d.Country.Zone)),
	}
	if d.Label != nil {
		lines = append(lines, m.styles.Badges[d.Label.Kind].Render(d.Label.Text))
	}
	if !d.InFilter {
		lines = append(lines, m.styles.Hint.Render("вне выбранной зоны"))
	}
	if m.account != "" {
		lines = append(lines, m.styles.Muted.Render("Аккаунт: "+m.account))
	}
	return m.styles.Pane.Render(strings.Join(lines, "\n"))
}

// Run starts the picker and blocks until the user quits.
func Run(m Model) error {
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("failed to run picker: %w", err)
	}
	return nil
}
