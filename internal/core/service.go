package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/deeptube/deeptube/internal/catalog"
	"github.com/deeptube/deeptube/internal/model"
)

// Publisher delivers notifications to the user.
type Publisher interface {
	Publish(ctx context.Context, n model.Notification) error
}

// ConfirmRequest carries the selection state of one confirm action.
// Empty Zone or CountryID fall back to the catalog defaults.
type ConfirmRequest struct {
	Account   string           `json:"account"`
	Zone      model.ZoneFilter `json:"zone"`
	CountryID string           `json:"country_id"`
}

// ConfirmResult is what a confirm action produced.
type ConfirmResult struct {
	Outcome      Outcome                `json:"-"`
	Notification model.Notification     `json:"notification"`
	Record       *model.SelectionRecord `json:"record,omitempty"`
	// Recorded is true when the ledger stored a new record.
	Recorded bool `json:"recorded"`
}

// Service runs confirm actions for every front end.
type Service struct {
	catalog   *catalog.Catalog
	ledger    *Ledger
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLedger records accepted selections in l.
func WithLedger(l *Ledger) ServiceOption {
	return func(s *Service) { s.ledger = l }
}

// WithPublisher delivers notifications through p.
func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a confirmation service over cat.
func NewService(cat *catalog.Catalog, opts ...ServiceOption) *Service {
	s := &Service{
		catalog: cat,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the service catalog.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Ledger returns the configured ledger, or nil.
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// NewController starts a session with the catalog defaults.
func (s *Service) NewController() *Controller {
	return NewController(s.catalog)
}

// Confirm evaluates req and, for accepted selections of a named account,
// records it in the ledger.
// Domain rejections are reported in the result; only faults return an error.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	ctrl := s.NewController()
	if req.Zone != "" {
		ctrl.SetZone(req.Zone)
	}
	if req.CountryID != "" {
		ctrl.SetCountry(req.CountryID)
	}

	outcome := ctrl.Confirm()
	result := &ConfirmResult{
		Outcome:      outcome,
		Notification: Notify(outcome),
	}

	log := s.logger.With(
		zap.String("account", req.Account),
		zap.String("zone", string(ctrl.Zone())),
		zap.String("country_id", ctrl.CountryID()),
		zap.String("outcome", string(outcome.Kind())),
	)

	if accepted, ok := outcome.(Accepted); ok && s.ledger != nil && req.Account != "" {
		country, _ := ctrl.Selected()
		rec, recorded, err := s.ledger.Record(ctx, req.Account, country, s.now())
		var tooSoon *ChangeTooSoonError
		switch {
		case errors.As(err, &tooSoon):
			log.Info("country change refused", zap.Time("next_allowed", tooSoon.NextAllowed))
			result.Record = tooSoon.Current
			result.Notification = model.Notification{
				Severity: model.SeverityWarning,
				Message: fmt.Sprintf("Страну можно менять не чаще 1 раза в %s. Текущая страна: %s, следующая смена с %s",
					monthsPhrase(s.ledger.IntervalMonths()), tooSoon.Current.CountryName, tooSoon.NextAllowed.Format("02.01.2006")),
			}
		case err != nil:
			log.Error("failed to record selection", zap.Error(err))
			return nil, fmt.Errorf("failed to record selection of %q: %w", accepted.Name, err)
		default:
			result.Record = rec
			result.Recorded = recorded
		}
	}

	log.Debug("confirm evaluated", zap.String("severity", string(result.Notification.Severity)))

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, result.Notification); err != nil {
			log.Warn("failed to publish notification", zap.Error(err))
		}
	}

	return result, nil
}

// Current returns the ledger record for an account.
func (s *Service) Current(ctx context.Context, account string) (*model.SelectionRecord, error) {
	if s.ledger == nil {
		return nil, ErrLedgerDisabled
	}
	return s.ledger.Current(ctx, account)
}

// History returns the ledger history for an account.
func (s *Service) History(ctx context.Context, account string) ([]*model.SelectionRecord, error) {
	if s.ledger == nil {
		return nil, ErrLedgerDisabled
	}
	return s.ledger.History(ctx, account)
}

// monthsPhrase renders an interval as "месяц", "3 месяца" or "6 месяцев".
func monthsPhrase(n int) string {
	if n == 1 {
		return "месяц"
	}
	form := "месяцев"
	switch mod10, mod100 := n%10, n%100; {
	case mod100 >= 11 && mod100 <= 14:
	case mod10 == 1:
		form = "месяц"
	case mod10 >= 2 && mod10 <= 4:
		form = "месяца"
	}
	return fmt.Sprintf("%d %s", n, form)
}
