package core

import (
	"fmt"

	"github.com/deeptube/deeptube/internal/model"
)

// OutcomeKind names an outcome variant on the wire.
type OutcomeKind string

const (
	KindNoSelection OutcomeKind = "no_selection"
	KindRejected    OutcomeKind = "rejected"
	KindDeferred    OutcomeKind = "deferred"
	KindAccepted    OutcomeKind = "accepted"
)

// Reasons carried by Rejected and Deferred.
const (
	ReasonBlocked         = "blocked"
	ReasonNotYetAvailable = "not yet available"
)

// Outcome is the result of a confirm action. The set of variants is closed:
// NoSelection, Rejected, Deferred and Accepted.
type Outcome interface {
	Kind() OutcomeKind
	outcome()
}

// NoSelection means the country slot does not resolve to a catalog entry.
type NoSelection struct{}

// Rejected means the country cannot be chosen at all.
type Rejected struct {
	Reason string `json:"reason"`
}

// Deferred means the country will or may become available later.
// AvailableFrom is set for upcoming countries, Reason otherwise.
type Deferred struct {
	AvailableFrom string `json:"available_from,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Accepted means the country was chosen.
type Accepted struct {
	CountryID string `json:"country_id"`
	Name      string `json:"name"`
}

func (NoSelection) Kind() OutcomeKind { return KindNoSelection }
func (Rejected) Kind() OutcomeKind    { return KindRejected }
func (Deferred) Kind() OutcomeKind    { return KindDeferred }
func (Accepted) Kind() OutcomeKind    { return KindAccepted }

func (NoSelection) outcome() {}
func (Rejected) outcome()    {}
func (Deferred) outcome()    {}
func (Accepted) outcome()    {}

// Notify maps an outcome to the notification shown to the user.
func Notify(o Outcome) model.Notification {
	switch o := o.(type) {
	case Accepted:
		return model.Notification{
			Severity: model.SeveritySuccess,
			Message:  fmt.Sprintf("Страна %q успешно выбрана!", o.Name),
		}
	case Rejected:
		return model.Notification{
			Severity: model.SeverityError,
			Message:  "Эта страна заблокирована на территории Империи",
		}
	case Deferred:
		if o.AvailableFrom != "" {
			return model.Notification{
				Severity: model.SeverityWarning,
				Message:  "Эта страна будет доступна с " + o.AvailableFrom,
			}
		}
		return model.Notification{
			Severity: model.SeverityWarning,
			Message:  "Эта страна пока недоступна",
		}
	case NoSelection:
		return model.Notification{
			Severity: model.SeverityInfo,
			Message:  "Выберите страну",
		}
	default:
		panic(fmt.Sprintf("core: unhandled outcome %T", o))
	}
}

// OutcomeView is the JSON form of an outcome.
type OutcomeView struct {
	Kind          OutcomeKind `json:"kind"`
	CountryID     string      `json:"country_id,omitempty"`
	Name          string      `json:"name,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	AvailableFrom string      `json:"available_from,omitempty"`
}

// ViewOf flattens an outcome for serialisation.
func ViewOf(o Outcome) OutcomeView {
	v := OutcomeView{Kind: o.Kind()}
	switch o := o.(type) {
	case Accepted:
		v.CountryID = o.CountryID
		v.Name = o.Name
	case Rejected:
		v.Reason = o.Reason
	case Deferred:
		v.Reason = o.Reason
		v.AvailableFrom = o.AvailableFrom
	}
	return v
}
