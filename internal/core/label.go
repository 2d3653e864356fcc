package core

import "github.com/deeptube/deeptube/internal/model"

// StatusLabel returns the status decoration for a country.
// Active countries carry no label.
func StatusLabel(c model.Country) (model.Label, bool) {
	switch c.Status {
	case model.StatusBlocked:
		return model.Label{Kind: model.LabelBlocked, Text: "Заблокирована"}, true
	case model.StatusUpcoming:
		return model.Label{Kind: model.LabelUpcoming, Text: "С " + c.AvailableFrom}, true
	case model.StatusUnavailable:
		return model.Label{Kind: model.LabelUnavailable, Text: "Недоступно"}, true
	}
	return model.Label{}, false
}
