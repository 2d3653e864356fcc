package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"

	"github.com/deeptube/deeptube/internal/catalog"
	"github.com/deeptube/deeptube/internal/core"
	"github.com/deeptube/deeptube/internal/model"
)

const maxBodyBytes = 1 << 16

type HealthResponse struct {
	Status string `json:"status"`
}

// FilterView describes one zone filter as the picker offers it.
type FilterView struct {
	Filter model.ZoneFilter `json:"filter"`
	Hint   string           `json:"hint,omitempty"`
	Notes  []string         `json:"notes"`
	Listed bool             `json:"listed"`
}

type CatalogResponse struct {
	Title     string           `json:"title"`
	Prompt    string           `json:"prompt"`
	Defaults  model.Defaults   `json:"defaults"`
	Countries int              `json:"countries"`
	Zones     []model.ZoneInfo `json:"zones"`
	Filters   []FilterView     `json:"filters"`
}

type CountriesResponse struct {
	Data  []core.SearchResult `json:"data"`
	Count int                 `json:"count"`
}

type CountryResponse struct {
	core.Detail
	Pickable bool             `json:"pickable"`
	Outcome  core.OutcomeView `json:"outcome"`
}

type ConfirmBody struct {
	Account   string `json:"account" validate:"max=128,excludesall=/?#"`
	Zone      string `json:"zone" validate:"max=16"`
	CountryID string `json:"country_id" validate:"max=64"`
}

type ConfirmResponse struct {
	Outcome      core.OutcomeView       `json:"outcome"`
	Notification model.Notification     `json:"notification"`
	Record       *model.SelectionRecord `json:"record,omitempty"`
	Recorded     bool                   `json:"recorded"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cat := s.service.Catalog()

	filters := []FilterView{{
		Filter: model.ZoneAll,
		Hint:   cat.Hint(model.ZoneAll),
		Notes:  nonNil(cat.Notes(model.ZoneAll)),
		Listed: true,
	}}
	for _, z := range cat.Zones() {
		f := model.FilterFor(z.Tag)
		filters = append(filters, FilterView{
			Filter: f,
			Hint:   z.Hint,
			Notes:  nonNil(cat.Notes(f)),
			Listed: z.Listed,
		})
	}

	s.writeJSON(w, http.StatusOK, CatalogResponse{
		Title:     cat.Title(),
		Prompt:    cat.Prompt(),
		Defaults:  cat.Defaults(),
		Countries: cat.Len(),
		Zones:     cat.Zones(),
		Filters:   filters,
	})
}

func (s *Server) listCountries(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	filter := core.SearchFilter{
		Zone:  model.ZoneAll,
		Query: query.Get("q"),
	}

	if v := query.Get("zone"); v != "" {
		zone, err := catalog.ParseZoneFilter(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.Zone = zone
	}

	if v := query.Get("status"); v != "" {
		status, err := catalog.ParseStatus(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.Status = status
	}

	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.writeError(w, r, badRequest("invalid limit parameter: %s", v))
			return
		}
		filter.Limit = limit
	}

	results := core.Search(s.service.Catalog(), filter)
	s.writeJSON(w, http.StatusOK, CountriesResponse{Data: results, Count: len(results)})
}

func (s *Server) getCountry(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	ctrl := s.service.NewController()
	ctrl.SetZone(model.ZoneAll)
	if v := r.URL.Query().Get("zone"); v != "" {
		zone, err := catalog.ParseZoneFilter(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctrl.SetZone(zone)
	}
	ctrl.SetCountry(id)

	detail, ok := ctrl.Detail()
	if !ok {
		s.writeError(w, r, notFound("country %q not found", id))
		return
	}

	s.writeJSON(w, http.StatusOK, CountryResponse{
		Detail:   detail,
		Pickable: detail.Country.Pickable(),
		Outcome:  core.ViewOf(ctrl.Confirm()),
	})
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body ConfirmBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, r, badRequest("invalid request body: %v", err))
		return
	}

	if err := s.validate.Struct(body); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			s.writeError(w, r, translateValidationErrors(validationErrs))
			return
		}
		s.writeError(w, r, err)
		return
	}

	req := core.ConfirmRequest{
		Account:   body.Account,
		CountryID: body.CountryID,
	}
	if body.Zone != "" {
		zone, err := catalog.ParseZoneFilter(body.Zone)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		req.Zone = zone
	}

	res, err := s.service.Confirm(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ConfirmResponse{
		Outcome:      core.ViewOf(res.Outcome),
		Notification: res.Notification,
		Record:       res.Record,
		Recorded:     res.Recorded,
	})
}

func (s *Server) getSelection(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	account := ps.ByName("account")

	rec, err := s.service.Current(r.Context(), account)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rec == nil {
		s.writeError(w, r, notFound("no selection for account %q", account))
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	history, err := s.service.History(r.Context(), ps.ByName("account"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []*model.SelectionRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": history, "count": len(history)})
}

func (s *Server) getOverview(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	o, err := s.dashboard.GetOverview(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, o)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
