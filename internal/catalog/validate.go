package catalog

import (
	"errors"
	"fmt"

	"github.com/deeptube/deeptube/internal/model"
	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	if len(v) == 1 {
		return "invalid catalog: " + v[0].Error()
	}
	return fmt.Sprintf("invalid catalog: %d error(s), first: %s", len(v), v[0].Error())
}

type documentValidator struct {
	validate *validator.Validate
}

func newValidator() *documentValidator {
	v := validator.New()

	_ = v.RegisterValidation("zone", func(fl validator.FieldLevel) bool {
		z, ok := fl.Field().Interface().(model.Zone)
		return ok && z.Valid()
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(model.Status)
		return ok && s.Valid()
	})

	return &documentValidator{validate: v}
}

func (v *documentValidator) Validate(doc *document) error {
	if err := v.validate.Struct(doc); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	return v.validateBusinessRules(doc)
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors
	for _, err := range errs {
		out = append(out, ValidationError{
			Field:   err.Namespace(),
			Message: describe(err),
		})
	}
	return out
}

func describe(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + err.Param()
	case "excluded_unless":
		return "must be empty unless " + err.Param()
	case "unique":
		return "must not contain duplicate " + err.Param() + " values"
	case "zone":
		return fmt.Sprintf("unknown zone %q", err.Value())
	case "status":
		return fmt.Sprintf("unknown status %q", err.Value())
	case "min":
		return "must have at least " + err.Param() + " item(s)"
	}
	return fmt.Sprintf("failed %q validation", err.Tag())
}

// validateBusinessRules checks cross-field rules the struct tags cannot express.
func (v *documentValidator) validateBusinessRules(doc *document) error {
	var errs ValidationErrors

	if !doc.Defaults.Zone.Valid() {
		errs = append(errs, ValidationError{
			Field:   "document.Defaults.Zone",
			Message: fmt.Sprintf("unknown zone filter %q", doc.Defaults.Zone),
		})
	}

	found := false
	for _, c := range doc.Countries {
		if c.ID == doc.Defaults.Country {
			found = true
			break
		}
	}
	if !found {
		errs = append(errs, ValidationError{
			Field:   "document.Defaults.Country",
			Message: fmt.Sprintf("country %q is not in the catalog", doc.Defaults.Country),
		})
	}

	described := make(map[model.Zone]bool, len(doc.Zones))
	for _, z := range doc.Zones {
		described[z.Tag] = true
	}
	for _, c := range doc.Countries {
		if !described[c.Zone] {
			errs = append(errs, ValidationError{
				Field:   "document.Countries",
				Message: fmt.Sprintf("country %q uses undescribed zone %q", c.ID, c.Zone),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
