package income

import (
	"fmt"
	"sort"
	"strings"

	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/shopspring/decimal"
)

// Aggregator folds extracted documents into an income summary. Addition is
// commutative, so the summary does not depend on the order of Add calls.
type Aggregator struct {
	summary  taxdoc.IncomeSummary
	warnings map[string]struct{}
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		summary: taxdoc.IncomeSummary{
			Wages:                    decimal.Zero,
			InterestIncome:           decimal.Zero,
			NonemployeeCompensation:  decimal.Zero,
			FederalIncomeTaxWithheld: decimal.Zero,
			WageWithholding:          decimal.Zero,
		},
		warnings: make(map[string]struct{}),
	}
}

// Add folds one document into the running totals. Missing fields count as
// zero. Federal withholding is summed across all document types.
func (a *Aggregator) Add(doc *taxdoc.ExtractedDocument) {
	if doc == nil {
		return
	}
	s := &a.summary
	s.DocumentCount++

	withheld := doc.Amount(taxdoc.FieldFederalIncomeTaxWithheld)
	switch doc.DocumentType {
	case taxdoc.DocumentTypeW2:
		s.Wages = s.Wages.Add(doc.Amount(taxdoc.FieldWages))
		s.WageWithholding = s.WageWithholding.Add(withheld)
	case taxdoc.DocumentType1099INT:
		s.InterestIncome = s.InterestIncome.Add(doc.Amount(taxdoc.FieldInterestIncome))
	case taxdoc.DocumentType1099NEC:
		s.NonemployeeCompensation = s.NonemployeeCompensation.Add(doc.Amount(taxdoc.FieldNonemployeeCompensation))
	default:
		a.warn(fmt.Sprintf("%s: unsupported document type %q ignored", label(doc), doc.DocumentType))
		return
	}
	s.FederalIncomeTaxWithheld = s.FederalIncomeTaxWithheld.Add(withheld)

	if len(doc.Missing) > 0 {
		names := make([]string, len(doc.Missing))
		for i, m := range doc.Missing {
			names[i] = string(m)
		}
		sort.Strings(names)
		a.warn(fmt.Sprintf("%s: missing %s counted as zero", label(doc), strings.Join(names, ", ")))
	}
	if doc.LowConfidence {
		a.warn(fmt.Sprintf("%s: low extraction confidence %.2f", label(doc), doc.Confidence))
	}
}

func (a *Aggregator) warn(msg string) {
	a.warnings[msg] = struct{}{}
}

func label(doc *taxdoc.ExtractedDocument) string {
	if doc.Source != "" {
		return fmt.Sprintf("%s %s", doc.DocumentType, doc.Source)
	}
	return string(doc.DocumentType)
}

// Summary returns a copy of the current totals with warnings sorted
func (a *Aggregator) Summary() taxdoc.IncomeSummary {
	out := a.summary
	out.Warnings = make([]string, 0, len(a.warnings))
	for w := range a.warnings {
		out.Warnings = append(out.Warnings, w)
	}
	sort.Strings(out.Warnings)
	if len(out.Warnings) == 0 {
		out.Warnings = nil
	}
	return out
}

// Aggregate folds all documents into one summary
func Aggregate(docs []*taxdoc.ExtractedDocument) taxdoc.IncomeSummary {
	a := NewAggregator()
	for _, doc := range docs {
		a.Add(doc)
	}
	return a.Summary()
}
