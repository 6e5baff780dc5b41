// Package taxrate joins sales/use tax rates onto jurisdictions.
package taxrate

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

// DefaultEntryName identifies the caller-supplied default in validation errors.
const DefaultEntryName = "(default)"

// Rates is one jurisdiction's sales and use tax rate, in percent.
type Rates struct {
	Sales float64 `yaml:"sales_rate" validate:"finite,gte=0,lte=100"`
	Use   float64 `yaml:"use_rate" validate:"finite,gte=0,lte=100"`
}

// Uniform returns a Rates with the same sales and use rate.
func Uniform(rate float64) Rates {
	return Rates{Sales: rate, Use: rate}
}

// Table maps jurisdiction name to its rates.
type Table map[string]Rates

var rateValidate *validator.Validate

func init() {
	rateValidate = validator.New()
	_ = rateValidate.RegisterValidation("finite", validateFinite)
}

func validateFinite(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Validate checks a single entry and returns a *jurisdiction.ValidationError
// naming it on failure.
func Validate(name string, r Rates) error {
	err := rateValidate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &jurisdiction.ValidationError{Name: name, Reason: err.Error()}
	}

	fe := verrs[0]
	reason := "invalid"
	switch fe.Tag() {
	case "finite":
		reason = "non-numeric"
	case "gte":
		reason = "below 0"
	case "lte":
		reason = "above 100"
	}
	return &jurisdiction.ValidationError{Name: name, Field: strings.ToLower(fe.Field()), Reason: reason}
}

// Assign sets the rates of every jurisdiction named in table. Jurisdictions
// absent from table receive def when it is non-nil and are otherwise left
// untouched. Every entry is validated first, in name order; on the first
// invalid entry nothing is modified.
func Assign(repo *jurisdiction.Repository, table Table, def *Rates) error {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := Validate(name, table[name]); err != nil {
			return err
		}
	}
	if def != nil {
		if err := Validate(DefaultEntryName, *def); err != nil {
			return err
		}
	}

	updates := make(map[string]jurisdiction.TaxRates, repo.Len())
	for _, name := range repo.Names() {
		if r, ok := table[name]; ok {
			updates[name] = jurisdiction.TaxRates{Sales: r.Sales, Use: r.Use}
			continue
		}
		if def != nil {
			updates[name] = jurisdiction.TaxRates{Sales: def.Sales, Use: def.Use}
		}
	}

	repo.ApplyTaxRates(updates)
	return nil
}
