package formmap

import (
	"fmt"
	"sort"

	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/a3tai/mcp-tax-filer/internal/taxerr"
	"github.com/shopspring/decimal"
)

// Values is everything a binding can read from
type Values struct {
	Result  *taxdoc.TaxResult
	Summary *taxdoc.IncomeSummary
	Profile *taxdoc.FilerProfile
}

// Value is a resolved field value before formatting
type Value struct {
	Amount decimal.Decimal
	Text   string
	Mark   bool
}

// Resolver extracts one field value. ok is false when nothing should be
// drawn, such as the refund line on a balance-due return.
type Resolver func(v Values) (val Value, ok bool)

// Binding ties a logical form field to the attribute it prints
type Binding struct {
	Field   string
	Source  string
	Kind    Kind
	Resolve Resolver
}

// Sources that must be printed somewhere on the form. A map that drops one
// of these cannot render a complete return.
var RequiredSources = []string{
	"summary.wages",
	"summary.interest_income",
	"summary.nonemployee_compensation",
	"summary.total_income",
	"summary.federal_income_tax_withheld",
	"result.adjusted_gross_income",
	"result.standard_deduction",
	"result.taxable_income",
	"result.tax_liability",
	"result.refund",
	"result.amount_owed",
}

func amount(f func(Values) decimal.Decimal) Resolver {
	return func(v Values) (Value, bool) {
		return Value{Amount: f(v)}, true
	}
}

func positive(f func(Values) decimal.Decimal) Resolver {
	return func(v Values) (Value, bool) {
		d := f(v)
		if !d.IsPositive() {
			return Value{}, false
		}
		return Value{Amount: d}, true
	}
}

func text(f func(Values) string) Resolver {
	return func(v Values) (Value, bool) {
		s := f(v)
		return Value{Text: s}, s != ""
	}
}

func status(want taxdoc.FilingStatus) Resolver {
	return func(v Values) (Value, bool) {
		if v.Profile.FilingStatus != want {
			return Value{}, false
		}
		return Value{Mark: true}, true
	}
}

// Bindings returns the fixed binding table for Form 1040
func Bindings() []Binding {
	return []Binding{
		{"first_name", "profile.first_name", KindText, text(func(v Values) string { return v.Profile.FirstName })},
		{"last_name", "profile.last_name", KindText, text(func(v Values) string { return v.Profile.LastName })},
		{"ssn", "profile.ssn", KindText, text(func(v Values) string { return v.Profile.SSN })},
		{"street", "profile.address.street", KindText, text(func(v Values) string { return v.Profile.Address.Street })},
		{"city_state_zip", "profile.address", KindText, text(func(v Values) string { return v.Profile.Address.CityStateZIP() })},
		{"status_single", "profile.filing_status", KindMark, status(taxdoc.FilingStatusSingle)},
		{"status_married_filing_jointly", "profile.filing_status", KindMark, status(taxdoc.FilingStatusMarriedFilingJointly)},
		{"status_head_of_household", "profile.filing_status", KindMark, status(taxdoc.FilingStatusHeadOfHousehold)},

		{"line_1a", "summary.wages", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Summary.Wages })},
		{"line_1z", "summary.wages", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Summary.Wages })},
		{"line_2b", "summary.interest_income", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Summary.InterestIncome })},
		{"line_8", "summary.nonemployee_compensation", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Summary.NonemployeeCompensation })},
		{"line_9", "summary.total_income", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Summary.TotalIncome() })},
		{"line_11", "result.adjusted_gross_income", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Result.AdjustedGrossIncome })},
		{"line_12", "result.standard_deduction", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Result.StandardDeduction })},
		{"line_14", "result.standard_deduction", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Result.StandardDeduction })},
		{"line_15", "result.taxable_income", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Result.TaxableIncome })},

		{"line_16", "result.tax_liability", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Result.TaxLiability })},
		{"line_24", "result.tax_liability", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Result.TaxLiability })},
		{"line_25a", "summary.wage_withholding", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Summary.WageWithholding })},
		{"line_25b", "summary.other_withholding", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Summary.OtherWithholding() })},
		{"line_25d", "summary.federal_income_tax_withheld", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Summary.FederalIncomeTaxWithheld })},
		{"line_33", "summary.federal_income_tax_withheld", KindCurrency, amount(func(v Values) decimal.Decimal { return v.Summary.FederalIncomeTaxWithheld })},
		{"line_34", "result.refund", KindCurrency, positive(func(v Values) decimal.Decimal { return v.Result.Refund() })},
		{"line_35a", "result.refund", KindCurrency, positive(func(v Values) decimal.Decimal { return v.Result.Refund() })},
		{"line_37", "result.amount_owed", KindCurrency, positive(func(v Values) decimal.Decimal { return v.Result.AmountOwed() })},
	}
}

// CheckBindings verifies that the map and the binding table describe the
// same set of fields with matching kinds, and that every required source is
// printed. Any mismatch is a configuration defect.
func (m *Map) CheckBindings(bindings []Binding) error {
	var violations []string

	bound := make(map[string]bool, len(bindings))
	sources := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		if bound[b.Field] {
			violations = append(violations, fmt.Sprintf("field %q is bound twice", b.Field))
			continue
		}
		bound[b.Field] = true

		e, ok := m.Entry(b.Field)
		if !ok {
			violations = append(violations, fmt.Sprintf("%s has no coordinate entry %q", b.Source, b.Field))
			continue
		}
		if e.Kind != b.Kind {
			violations = append(violations, fmt.Sprintf("field %q is %s in the map but %s in the binding", b.Field, e.Kind, b.Kind))
		}
		if b.Resolve == nil {
			violations = append(violations, fmt.Sprintf("field %q has no resolver", b.Field))
		}
		sources[b.Source] = true
	}

	for _, e := range m.Fields {
		if !bound[e.Name] {
			violations = append(violations, fmt.Sprintf("coordinate entry %q has no source binding", e.Name))
		}
	}
	for _, src := range RequiredSources {
		if !sources[src] {
			violations = append(violations, fmt.Sprintf("%s is not printed on form %s", src, m.Form))
		}
	}

	if len(violations) == 0 {
		return nil
	}
	sort.Strings(violations)
	return taxerr.NewWithContext(taxerr.ErrorTypeUnsupportedFieldMapping,
		"coordinate map and field bindings are out of sync", m.Form).WithViolations(violations...)
}
