// Package cli provides the engine integration for the deeptube CLI.
// This file contains the core initialization and command implementations.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/deeptube/deeptube/internal/catalog"
	"github.com/deeptube/deeptube/internal/config"
	"github.com/deeptube/deeptube/internal/core"
	"github.com/deeptube/deeptube/internal/logging"
	"github.com/deeptube/deeptube/internal/model"
	"github.com/deeptube/deeptube/internal/notify"
	"github.com/deeptube/deeptube/internal/server"
	"github.com/deeptube/deeptube/internal/tui"
)

// Engine holds the deeptube core components.
type Engine struct {
	Config    *config.Config
	Catalog   *catalog.Catalog
	Ledger    *core.Ledger // nil when the ledger is disabled
	Service   *core.Service
	Notifier  *notify.Registry
	Logger    *zap.Logger
	ConfigDir string
}

// Global engine instance
var engine *Engine

// out receives all command output.
var out io.Writer = os.Stdout

// EngineMode selects how an engine reports to the terminal.
type EngineMode int

const (
	// ModeCommand prints toasts for one-shot commands.
	ModeCommand EngineMode = iota
	// ModeInteractive keeps logs and toasts off the terminal.
	ModeInteractive
	// ModeServe reports notifications through the logger only.
	ModeServe
)

// toasts reports whether notifications are echoed on out.
// JSON output already carries the notification.
func (m EngineMode) toasts() bool {
	return m == ModeCommand && !quiet && !jsonOutput
}

// InitEngine initializes the deeptube engine.
func InitEngine(mode EngineMode) (*Engine, error) {
	cfgDir := getConfigDir()

	cfg, err := config.Load(filepath.Join(cfgDir, config.FileName))
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging, logging.Options{
		Verbose:  verbose,
		Quiet:    quiet,
		NoStderr: mode == ModeInteractive,
	})
	if err != nil {
		return nil, err
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	notifier, err := notify.NewRegistry(notify.NewLogSink(logger))
	if err != nil {
		return nil, err
	}
	if mode.toasts() {
		if err := notifier.Register(notify.NewTerminalSink(out)); err != nil {
			return nil, err
		}
	}

	opts := []core.ServiceOption{
		core.WithPublisher(notifier),
		core.WithLogger(logger),
	}

	var ledger *core.Ledger
	if cfg.Ledger.Enabled {
		ledger, err = core.OpenLedger(context.Background(),
			cfg.LedgerPath(cfgDir), os.Getenv(config.PassphraseEnv), cfg.Ledger.ChangeIntervalMonths)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		opts = append(opts, core.WithLedger(ledger))
	}

	logger.Debug("engine initialized",
		zap.String("config_dir", cfgDir),
		zap.Int("countries", cat.Len()),
		zap.Bool("ledger", ledger != nil),
	)

	return &Engine{
		Config:    cfg,
		Catalog:   cat,
		Ledger:    ledger,
		Service:   core.NewService(cat, opts...),
		Notifier:  notifier,
		Logger:    logger,
		ConfigDir: cfgDir,
	}, nil
}

// GetEngine returns the engine, initializing if needed.
func GetEngine() (*Engine, error) {
	return getEngine(ModeCommand)
}

func getEngine(mode EngineMode) (*Engine, error) {
	if engine != nil {
		return engine, nil
	}

	var err error
	engine, err = InitEngine(mode)
	return engine, err
}

// Close releases the ledger and flushes the logger.
func (e *Engine) Close() error {
	var err error
	if e.Ledger != nil {
		err = e.Ledger.Close()
	}
	_ = e.Logger.Sync()
	return err
}

func closeEngine() error {
	if engine == nil {
		return nil
	}
	err := engine.Close()
	engine = nil
	return err
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(cfg.Catalog.Path)
}

func (e *Engine) account(flag string) string {
	if flag != "" {
		return flag
	}
	return e.Config.Account
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(out, string(output))
	return nil
}

func parseZone(s string, fallback model.ZoneFilter) (model.ZoneFilter, error) {
	if s == "" {
		return fallback, nil
	}
	return catalog.ParseZoneFilter(s)
}

func zoneName(f model.ZoneFilter) string {
	if f == model.ZoneAll {
		return "Все"
	}
	return string(f)
}

// --- Command Implementations ---

// RunInit creates a config directory at path and initializes the ledger.
func RunInit(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	cfgDir := filepath.Join(absPath, ".deeptube")
	if err := os.MkdirAll(cfgDir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", cfgDir, err)
	}

	cfgPath := filepath.Join(cfgDir, config.FileName)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(cfgPath); err != nil {
			return err
		}
	}

	passphrase := os.Getenv(config.PassphraseEnv)
	ledgerPath := cfg.LedgerPath(cfgDir)
	if cfg.Ledger.Enabled {
		if _, err := os.Stat(ledgerPath); err == nil {
			if err := core.ValidatePassphrase(ledgerPath, passphrase); err != nil {
				return fmt.Errorf("existing ledger at %s: %w", ledgerPath, err)
			}
		}
		ledger, err := core.OpenLedger(context.Background(), ledgerPath, passphrase, cfg.Ledger.ChangeIntervalMonths)
		if err != nil {
			return fmt.Errorf("failed to initialize ledger: %w", err)
		}
		defer ledger.Close()
	}

	if !quiet {
		fmt.Fprintf(out, "✓ Initialized deeptube at: %s\n", absPath)
		fmt.Fprintf(out, "  Config: %s\n", cfgPath)
		if !cfg.Ledger.Enabled {
			fmt.Fprintln(out, "  Ledger: disabled")
			return nil
		}
		fmt.Fprintf(out, "  Ledger: %s\n", ledgerPath)
		if passphrase != "" {
			fmt.Fprintln(out, "  Encryption: enabled")
		} else {
			fmt.Fprintf(out, "  Encryption: disabled (set %s to enable)\n", config.PassphraseEnv)
		}
	}

	return nil
}

// RunZones lists the zone filters offered by the picker.
func RunZones() error {
	e, err := GetEngine()
	if err != nil {
		return err
	}

	filters := []model.ZoneFilter{model.ZoneAll}
	for _, z := range e.Catalog.ListedZones() {
		filters = append(filters, model.FilterFor(z.Tag))
	}

	fmt.Fprintln(out, e.Catalog.Title())
	fmt.Fprintln(out, "════════════════")
	for _, f := range filters {
		marker := " "
		if f == e.Catalog.Defaults().Zone {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-6s %3d  %s\n", marker, f, len(e.Catalog.Filter(f)), e.Catalog.Hint(f))
	}
	return nil
}

// RunList lists the countries matching the filters.
func RunList(zone, status, query string, limit int) error {
	e, err := GetEngine()
	if err != nil {
		return err
	}

	filter := core.SearchFilter{Query: query, Limit: limit}
	if filter.Zone, err = parseZone(zone, e.Catalog.Defaults().Zone); err != nil {
		return err
	}
	if status != "" {
		if filter.Status, err = catalog.ParseStatus(status); err != nil {
			return err
		}
	}

	results := core.Search(e.Catalog, filter)
	if jsonOutput {
		return printJSON(results)
	}

	if hint := e.Catalog.Hint(filter.Zone); hint != "" {
		fmt.Fprintf(out, "%s: %s\n\n", zoneName(filter.Zone), hint)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No countries found.")
		return nil
	}

	fmt.Fprintln(out, "ID   Name                           Zone  Status")
	fmt.Fprintln(out, "────────────────────────────────────────────────────────")
	for _, r := range results {
		label := ""
		if r.Label != nil {
			label = r.Label.Text
		}
		fmt.Fprintf(out, "%-4s %-30s %-5s %s\n", r.Country.ID, r.Country.Name, r.Country.Zone, label)
	}

	for _, n := range e.Catalog.Notes(filter.Zone) {
		fmt.Fprintf(out, "\n%s", n)
	}
	fmt.Fprintln(out)
	return nil
}

// RunShow explains a single country and the outcome of confirming it.
func RunShow(id, zone string) error {
	e, err := GetEngine()
	if err != nil {
		return err
	}

	ctrl := e.Service.NewController()
	z, err := parseZone(zone, ctrl.Zone())
	if err != nil {
		return err
	}
	ctrl.SetZone(z)
	ctrl.SetCountry(id)

	detail, ok := ctrl.Detail()
	if !ok {
		return fmt.Errorf("country %q not found", id)
	}
	outcome := ctrl.Confirm()

	if jsonOutput {
		return printJSON(struct {
			core.Detail
			Outcome core.OutcomeView `json:"outcome"`
		}{detail, core.ViewOf(outcome)})
	}

	fmt.Fprintf(out, "%s\n", detail.Country.Name)
	fmt.Fprintln(out, "═══════════════════════════════════════")
	fmt.Fprintf(out, "ID:       %s\n", detail.Country.ID)
	fmt.Fprintf(out, "Zone:     %s\n", detail.Country.Zone)
	fmt.Fprintf(out, "Status:   %s\n", detail.Country.Status)
	if detail.Label != nil {
		fmt.Fprintf(out, "Label:    %s\n", detail.Label.Text)
	}
	if !detail.InFilter {
		fmt.Fprintf(out, "Filter:   not listed under %s\n", zoneName(z))
	}
	n := core.Notify(outcome)
	fmt.Fprintf(out, "Confirm:  %s %s\n", notify.Icon(n.Severity), n.Message)
	return nil
}

// RunConfirm confirms a country for an account.
func RunConfirm(id, zone, accountName string) error {
	e, err := GetEngine()
	if err != nil {
		return err
	}

	req := core.ConfirmRequest{
		Account:   e.account(accountName),
		CountryID: id,
	}
	if zone != "" {
		if req.Zone, err = catalog.ParseZoneFilter(zone); err != nil {
			return err
		}
	}

	res, err := e.Service.Confirm(context.Background(), req)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(struct {
			Outcome core.OutcomeView `json:"outcome"`
			*core.ConfirmResult
		}{core.ViewOf(res.Outcome), res})
	}

	if !quiet && res.Recorded {
		fmt.Fprintf(out, "  Recorded for %s at %s\n", res.Record.Account, res.Record.ConfirmedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// RunHistory prints the ledger history of an account.
func RunHistory(accountName string) error {
	e, err := GetEngine()
	if err != nil {
		return err
	}

	acct := e.account(accountName)
	if acct == "" {
		return fmt.Errorf("no account given (use --account or set account in %s)", config.FileName)
	}

	history, err := e.Service.History(context.Background(), acct)
	if err != nil {
		return err
	}

	if jsonOutput {
		if history == nil {
			history = []*model.SelectionRecord{}
		}
		return printJSON(history)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No selections for %s.\n", acct)
		return nil
	}

	fmt.Fprintf(out, "Selections of %s (%d):\n", acct, len(history))
	fmt.Fprintln(out, "Confirmed          Country                        Zone  State")
	fmt.Fprintln(out, "──────────────────────────────────────────────────────────────────")
	for _, rec := range history {
		fmt.Fprintf(out, "%-18s %-30s %-5s %s\n",
			rec.ConfirmedAt.Local().Format("2006-01-02 15:04"),
			rec.CountryName,
			rec.Zone,
			rec.State)
	}

	if cur := history[0]; cur.State == model.RecordStateCurrent {
		fmt.Fprintf(out, "\nNext change allowed: %s\n", e.Ledger.NextChange(cur).Local().Format("2006-01-02"))
	}
	return nil
}

// RunOverview shows the catalog and ledger summary.
func RunOverview() error {
	e, err := GetEngine()
	if err != nil {
		return err
	}

	overview, err := core.NewDashboard(e.Catalog, e.Ledger).GetOverview(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get overview: %w", err)
	}

	if jsonOutput {
		return printJSON(overview)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║                     DEEPTUBE Overview                        ║")
	fmt.Fprintln(out, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "🌍 Catalog")
	fmt.Fprintln(out, "───────────────────────────────────────")
	fmt.Fprintf(out, "   Countries:      %d\n", overview.TotalCountries)
	fmt.Fprintf(out, "   Pickable:       %d\n", overview.Pickable)
	for _, s := range model.AllStatuses {
		fmt.Fprintf(out, "   %-15s %d\n", string(s)+":", overview.ByStatus[s])
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "🗺️  Zones")
	fmt.Fprintln(out, "───────────────────────────────────────")
	for _, z := range overview.Zones {
		listed := ""
		if !z.Listed {
			listed = " (not listed)"
		}
		fmt.Fprintf(out, "   %-6s %2d countries, %d pickable%s\n", z.Zone, z.Total, z.Pickable, listed)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "📒 Ledger")
	fmt.Fprintln(out, "───────────────────────────────────────")
	if !overview.LedgerEnabled {
		fmt.Fprintln(out, "   Disabled")
	} else {
		encryption := "disabled"
		if overview.LedgerEncrypted {
			encryption = "enabled"
		}
		fmt.Fprintf(out, "   Encryption:     %s\n", encryption)
		fmt.Fprintf(out, "   Accounts:       %d\n", overview.Ledger.Accounts)
		fmt.Fprintf(out, "   Current:        %d\n", overview.Ledger.Current)
		fmt.Fprintf(out, "   Superseded:     %d\n", overview.Ledger.Superseded)
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Generated: %s\n", overview.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(out)

	return nil
}

// RunVerify checks the ledger. It fails when a critical issue is found.
func RunVerify() error {
	e, err := GetEngine()
	if err != nil {
		return err
	}
	if e.Ledger == nil {
		return core.ErrLedgerDisabled
	}

	health, err := core.NewHealthChecker(e.Ledger, e.Catalog).Check(context.Background())
	if err != nil {
		return fmt.Errorf("failed to check ledger: %w", err)
	}

	if jsonOutput {
		if err := printJSON(health); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Checked %d account(s)\n", health.Accounts)
		for _, i := range health.Issues {
			icon := "⚠️"
			if i.Severity == core.IssueCritical {
				icon = "✗"
			}
			fmt.Fprintf(out, "  %s %-12s %s\n", icon, i.Account, i.Problem)
		}
		if len(health.Issues) == 0 {
			fmt.Fprintln(out, "✓ Ledger is healthy")
		}
	}

	if !health.Healthy() {
		return fmt.Errorf("ledger has critical issues")
	}
	return nil
}

// RunRekey re-encrypts the ledger with a new passphrase.
func RunRekey(newPassphrase string) error {
	e, err := GetEngine()
	if err != nil {
		return err
	}
	if e.Ledger == nil {
		return core.ErrLedgerDisabled
	}
	if !e.Ledger.Encrypted() {
		return fmt.Errorf("ledger is not encrypted (set %s)", config.PassphraseEnv)
	}

	if err := e.Ledger.ChangePassphrase(context.Background(), newPassphrase); err != nil {
		return err
	}

	if !quiet {
		fmt.Fprintf(out, "✓ Ledger re-encrypted; update %s before the next run\n", config.PassphraseEnv)
	}
	return nil
}

// RunPick opens the interactive picker.
func RunPick(accountName string) error {
	e, err := getEngine(ModeInteractive)
	if err != nil {
		return err
	}

	m := tui.New(e.Service.NewController(), e.Service,
		tui.WithAccount(e.account(accountName)),
		tui.WithToastTimeout(e.Config.GetToastTimeout()),
	)
	return tui.Run(m)
}

// RunServe serves the JSON API until interrupted.
func RunServe(ctx context.Context, addr string) error {
	e, err := getEngine(ModeServe)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr == "" {
		addr = e.Config.Server.Addr
	}

	srv := server.New(e.Service, e.Logger, server.Options{
		Addr:            addr,
		ReadTimeout:     e.Config.GetReadTimeout(),
		WriteTimeout:    e.Config.GetWriteTimeout(),
		ShutdownTimeout: e.Config.GetShutdownTimeout(),
	})

	if !quiet {
		fmt.Fprintf(out, "Serving deeptube API on http://%s\n", addr)
	}
	return srv.ListenAndServe(ctx)
}
