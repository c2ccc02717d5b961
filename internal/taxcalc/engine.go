package taxcalc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/a3tai/mcp-tax-filer/internal/taxerr"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MaxPlausibleAge is the age above which the profile is flagged as suspicious
const MaxPlausibleAge = 120

// Engine computes tax results from an income summary and filer profile.
// It carries no state between calls.
type Engine struct {
	table    *Table
	validate *validator.Validate
}

// NewEngine creates an engine over the given table
func NewEngine(table *Table) *Engine {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Engine{table: table, validate: v}
}

// NewDefaultEngine creates an engine over the built-in table
func NewDefaultEngine() (*Engine, error) {
	t, err := DefaultTable()
	if err != nil {
		return nil, err
	}
	return NewEngine(t), nil
}

// TaxYear returns the year of the engine's table
func (e *Engine) TaxYear() int {
	return e.table.TaxYear
}

// ValidateProfile reports every violation in the profile as one
// InvalidFilerProfile error
func (e *Engine) ValidateProfile(profile taxdoc.FilerProfile) error {
	err := e.validate.Struct(profile)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return taxerr.Wrap(taxerr.ErrorTypeInvalidFilerProfile, "invalid filer profile", err)
	}

	violations := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, describeViolation(fe))
	}
	return taxerr.New(taxerr.ErrorTypeInvalidFilerProfile, "invalid filer profile").WithViolations(violations...)
}

func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s %q must be one of: %s", fe.Field(), fe.Value(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// Compute derives AGI, deduction, taxable income, liability and the
// refund or balance due. Amounts are exact until rounded to cents on the
// returned result.
func (e *Engine) Compute(summary taxdoc.IncomeSummary, profile taxdoc.FilerProfile) (*taxdoc.TaxResult, error) {
	if err := e.ValidateProfile(profile); err != nil {
		return nil, err
	}

	schedule, ok := e.table.Schedule(profile.FilingStatus)
	if !ok {
		return nil, taxerr.NewWithContext(taxerr.ErrorTypeInvalidFilerProfile,
			"no bracket schedule for filing status", string(profile.FilingStatus))
	}

	agi := summary.TotalIncome()
	deduction := schedule.Deduction(profile.Age)
	taxable := decimal.Max(decimal.Zero, agi.Sub(deduction))
	liability, lines := schedule.Tax(taxable)
	withheld := summary.FederalIncomeTaxWithheld

	result := &taxdoc.TaxResult{
		FilingStatus:             profile.FilingStatus,
		AdjustedGrossIncome:      cents(agi),
		StandardDeduction:        cents(deduction),
		TaxableIncome:            cents(taxable),
		TaxLiability:             cents(liability),
		FederalIncomeTaxWithheld: cents(withheld),
		RefundOrAmountOwed:       cents(withheld).Sub(cents(liability)),
		MarginalRate:             schedule.MarginalRate(taxable),
		EffectiveRate:            decimal.Zero,
	}
	if agi.IsPositive() {
		result.EffectiveRate = liability.DivRound(agi, 4)
	}

	for _, l := range lines {
		l.TaxedPart = cents(l.TaxedPart)
		l.Tax = cents(l.Tax)
		result.Brackets = append(result.Brackets, l)
	}

	result.Notes = notes(profile, schedule)
	return result, nil
}

func notes(profile taxdoc.FilerProfile, schedule *Schedule) []string {
	var out []string
	if profile.Age >= 65 && schedule.AdditionalDeduction65Plus.IsPositive() {
		out = append(out, fmt.Sprintf("standard deduction includes the age 65+ addition of %s",
			schedule.AdditionalDeduction65Plus.StringFixed(2)))
	}
	if profile.Age > MaxPlausibleAge {
		out = append(out, fmt.Sprintf("age %d is unusually high; verify the filer profile", profile.Age))
	}
	if profile.Dependents > 0 {
		out = append(out, fmt.Sprintf("%d dependent(s) reported; dependent credits are not computed", profile.Dependents))
	}
	return out
}

func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
