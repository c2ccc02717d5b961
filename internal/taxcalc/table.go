package taxcalc

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed brackets2024.yaml
var brackets2024YAML []byte

// Bracket is one marginal rate band. A nil Upper marks the unbounded top band.
type Bracket struct {
	Lower decimal.Decimal
	Upper *decimal.Decimal
	Rate  decimal.Decimal
}

// Schedule is the deduction and bracket data for one filing status
type Schedule struct {
	Status                    taxdoc.FilingStatus
	StandardDeduction         decimal.Decimal
	AdditionalDeduction65Plus decimal.Decimal
	Brackets                  []Bracket
}

// Table holds one schedule per filing status. It is never modified after
// construction.
type Table struct {
	TaxYear   int
	schedules map[taxdoc.FilingStatus]*Schedule
}

type rawBracket struct {
	Lower string `yaml:"lower"`
	Upper string `yaml:"upper"`
	Rate  string `yaml:"rate"`
}

type rawSchedule struct {
	StandardDeduction         string       `yaml:"standard_deduction"`
	AdditionalDeduction65Plus string       `yaml:"additional_deduction_65_plus"`
	Brackets                  []rawBracket `yaml:"brackets"`
}

type rawTable struct {
	TaxYear  int                    `yaml:"tax_year"`
	Statuses map[string]rawSchedule `yaml:"statuses"`
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// DefaultTable returns the built-in 2024 table
func DefaultTable() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = ParseTable(brackets2024YAML)
		if defaultErr == nil {
			defaultErr = defaultTable.requireStatuses(taxdoc.FilingStatuses...)
		}
	})
	return defaultTable, defaultErr
}

// ParseTable decodes a YAML bracket table and validates every schedule
func ParseTable(data []byte) (*Table, error) {
	var raw rawTable
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode bracket table: %w", err)
	}

	schedules := make([]*Schedule, 0, len(raw.Statuses))
	for name, rs := range raw.Statuses {
		status, err := taxdoc.ParseFilingStatus(name)
		if err != nil {
			return nil, fmt.Errorf("bracket table: %w", err)
		}
		s, err := rs.parse(status)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return NewTable(raw.TaxYear, schedules...)
}

func (rs rawSchedule) parse(status taxdoc.FilingStatus) (*Schedule, error) {
	s := &Schedule{Status: status}

	var err error
	if s.StandardDeduction, err = decimal.NewFromString(rs.StandardDeduction); err != nil {
		return nil, fmt.Errorf("%s: standard deduction: %w", status, err)
	}
	if rs.AdditionalDeduction65Plus != "" {
		if s.AdditionalDeduction65Plus, err = decimal.NewFromString(rs.AdditionalDeduction65Plus); err != nil {
			return nil, fmt.Errorf("%s: additional deduction: %w", status, err)
		}
	}

	for i, rb := range rs.Brackets {
		var b Bracket
		if b.Lower, err = decimal.NewFromString(rb.Lower); err != nil {
			return nil, fmt.Errorf("%s: bracket %d lower bound: %w", status, i, err)
		}
		if rb.Upper != "" {
			upper, err := decimal.NewFromString(rb.Upper)
			if err != nil {
				return nil, fmt.Errorf("%s: bracket %d upper bound: %w", status, i, err)
			}
			b.Upper = &upper
		}
		if b.Rate, err = decimal.NewFromString(rb.Rate); err != nil {
			return nil, fmt.Errorf("%s: bracket %d rate: %w", status, i, err)
		}
		s.Brackets = append(s.Brackets, b)
	}
	return s, nil
}

// NewTable validates the schedules and assembles a table
func NewTable(taxYear int, schedules ...*Schedule) (*Table, error) {
	t := &Table{
		TaxYear:   taxYear,
		schedules: make(map[taxdoc.FilingStatus]*Schedule, len(schedules)),
	}
	for _, s := range schedules {
		if _, dup := t.schedules[s.Status]; dup {
			return nil, fmt.Errorf("duplicate schedule for %s", s.Status)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		t.schedules[s.Status] = s
	}
	return t, nil
}

func (t *Table) requireStatuses(statuses ...taxdoc.FilingStatus) error {
	for _, st := range statuses {
		if _, ok := t.schedules[st]; !ok {
			return fmt.Errorf("bracket table for %d has no schedule for %s", t.TaxYear, st)
		}
	}
	return nil
}

// Schedule returns the schedule for a filing status
func (t *Table) Schedule(status taxdoc.FilingStatus) (*Schedule, bool) {
	s, ok := t.schedules[status]
	return s, ok
}

// Validate enforces contiguous, non-overlapping, strictly increasing
// brackets starting at zero with an unbounded final bracket
func (s *Schedule) Validate() error {
	if s.StandardDeduction.IsNegative() || s.AdditionalDeduction65Plus.IsNegative() {
		return fmt.Errorf("%s: deductions must be non-negative", s.Status)
	}
	if len(s.Brackets) == 0 {
		return fmt.Errorf("%s: no brackets", s.Status)
	}
	if !s.Brackets[0].Lower.IsZero() {
		return fmt.Errorf("%s: first bracket must start at 0, starts at %s", s.Status, s.Brackets[0].Lower)
	}

	one := decimal.NewFromInt(1)
	last := len(s.Brackets) - 1
	for i, b := range s.Brackets {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(one) {
			return fmt.Errorf("%s: bracket %d rate %s outside [0,1]", s.Status, i, b.Rate)
		}
		if i == last {
			if b.Upper != nil {
				return fmt.Errorf("%s: final bracket must be unbounded", s.Status)
			}
			break
		}
		if b.Upper == nil {
			return fmt.Errorf("%s: bracket %d is unbounded but is not the last", s.Status, i)
		}
		if !b.Upper.GreaterThan(b.Lower) {
			return fmt.Errorf("%s: bracket %d upper %s must exceed lower %s", s.Status, i, b.Upper, b.Lower)
		}
		if next := s.Brackets[i+1]; !next.Lower.Equal(*b.Upper) {
			return fmt.Errorf("%s: bracket %d ends at %s but bracket %d starts at %s",
				s.Status, i, b.Upper, i+1, next.Lower)
		}
	}
	return nil
}

// Deduction returns the standard deduction including the age 65 addition
func (s *Schedule) Deduction(age int) decimal.Decimal {
	if age >= 65 {
		return s.StandardDeduction.Add(s.AdditionalDeduction65Plus)
	}
	return s.StandardDeduction
}

// Tax walks the brackets in ascending order, taxing only the portion of
// income inside each band at that band's rate. The result is exact.
func (s *Schedule) Tax(taxable decimal.Decimal) (decimal.Decimal, []taxdoc.BracketLine) {
	total := decimal.Zero
	var lines []taxdoc.BracketLine

	for _, b := range s.Brackets {
		if !taxable.GreaterThan(b.Lower) {
			break
		}
		top := taxable
		if b.Upper != nil && b.Upper.LessThan(taxable) {
			top = *b.Upper
		}
		part := top.Sub(b.Lower)
		tax := part.Mul(b.Rate)
		total = total.Add(tax)

		lines = append(lines, taxdoc.BracketLine{
			Lower:     b.Lower,
			Upper:     b.Upper,
			Rate:      b.Rate,
			TaxedPart: part,
			Tax:       tax,
		})
	}
	return total, lines
}

// MarginalRate returns the rate applied to the next dollar of income
func (s *Schedule) MarginalRate(taxable decimal.Decimal) decimal.Decimal {
	rate := s.Brackets[0].Rate
	for _, b := range s.Brackets {
		if taxable.LessThan(b.Lower) {
			break
		}
		rate = b.Rate
	}
	return rate
}
