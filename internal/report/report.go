// Package report renders extraction and filing results as plain text for
// the MCP tools and the command line.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/a3tai/mcp-tax-filer/internal/filing"
	"github.com/a3tai/mcp-tax-filer/internal/render"
	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/a3tai/mcp-tax-filer/internal/textsource"
	"github.com/shopspring/decimal"
)

// Document describes one extracted statement with its fields sorted by
// name. The decoder line is left out when method is empty.
func Document(doc *taxdoc.ExtractedDocument, method textsource.Method) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extracted %s (%s) from %s\n", doc.DocumentType, doc.DocumentType.Description(), doc.Source)
	fmt.Fprintf(&b, "Confidence: %.2f", doc.Confidence)
	if doc.LowConfidence {
		b.WriteString(" (low)")
	}
	b.WriteString("\n")
	if method != "" {
		fmt.Fprintf(&b, "Text decoder: %s\n", method)
	}

	names := make([]string, 0, len(doc.Fields))
	for name := range doc.Fields {
		names = append(names, string(name))
	}
	sort.Strings(names)

	b.WriteString("\nFields:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s: %s\n", name, doc.Fields[taxdoc.FieldName(name)].String())
	}

	if len(doc.Missing) > 0 {
		b.WriteString("\nMissing required fields (counted as zero):\n")
		for _, m := range doc.Missing {
			fmt.Fprintf(&b, "  %s\n", m)
		}
	}

	writeList(&b, "Warnings", doc.WarningMessages())
	return b.String()
}

// Money formats an amount in dollars with cents
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Filing summarises a completed filing run
func Filing(run *filing.Report) string {
	var b strings.Builder
	r, s := run.Result, run.Summary

	fmt.Fprintf(&b, "Tax year %d return (run %s)\n", run.TaxYear, run.RunID)
	fmt.Fprintf(&b, "Filing status: %s\n", r.FilingStatus)
	fmt.Fprintf(&b, "Documents: %d extracted, %d skipped\n", len(run.Documents), len(run.Errors))

	b.WriteString("\nIncome:\n")
	fmt.Fprintf(&b, "  Wages: %s\n", Money(s.Wages))
	fmt.Fprintf(&b, "  Taxable interest: %s\n", Money(s.InterestIncome))
	fmt.Fprintf(&b, "  Nonemployee compensation: %s\n", Money(s.NonemployeeCompensation))
	fmt.Fprintf(&b, "  Total income: %s\n", Money(s.TotalIncome()))

	b.WriteString("\nTax:\n")
	fmt.Fprintf(&b, "  Adjusted gross income: %s\n", Money(r.AdjustedGrossIncome))
	fmt.Fprintf(&b, "  Standard deduction: %s\n", Money(r.StandardDeduction))
	fmt.Fprintf(&b, "  Taxable income: %s\n", Money(r.TaxableIncome))
	fmt.Fprintf(&b, "  Tax liability: %s\n", Money(r.TaxLiability))
	fmt.Fprintf(&b, "  Federal income tax withheld: %s\n", Money(r.FederalIncomeTaxWithheld))
	if r.IsRefund() {
		fmt.Fprintf(&b, "  Refund: %s\n", Money(r.Refund()))
	} else {
		fmt.Fprintf(&b, "  Amount owed: %s\n", Money(r.AmountOwed()))
	}
	fmt.Fprintf(&b, "  Effective rate: %s%%\n", r.EffectiveRate.Mul(decimal.NewFromInt(100)).StringFixed(2))
	fmt.Fprintf(&b, "  Marginal rate: %s%%\n", r.MarginalRate.Mul(decimal.NewFromInt(100)).StringFixed(0))

	if len(r.Brackets) > 0 {
		b.WriteString("\nBrackets:\n")
		for _, l := range r.Brackets {
			upper := "and up"
			if l.Upper != nil {
				upper = "to " + Money(*l.Upper)
			}
			fmt.Fprintf(&b, "  %s%% from %s %s: %s taxed, %s\n",
				l.Rate.Mul(decimal.NewFromInt(100)).StringFixed(0), Money(l.Lower), upper, Money(l.TaxedPart), Money(l.Tax))
		}
	}

	if len(run.Errors) > 0 {
		b.WriteString("\nSkipped documents:\n")
		for _, e := range run.Errors {
			fmt.Fprintf(&b, "  %s: %s\n", e.Path, e.Error)
		}
	}

	writeList(&b, "Warnings", s.Warnings)
	writeList(&b, "Notes", run.Notes)

	if run.Output != "" {
		fmt.Fprintf(&b, "\nFilled form written to: %s\n", run.Output)
	}
	if run.Worksheet != "" {
		fmt.Fprintf(&b, "Worksheet written to: %s\n", run.Worksheet)
	}
	return b.String()
}

// TemplateFields lists the named fields of a base form
func TemplateFields(path string, tmpl *render.Template) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Template: %s\n", path)
	fmt.Fprintf(&b, "Pages: %d\n", tmpl.Pages())

	fields := tmpl.Fields()
	if len(fields) == 0 {
		b.WriteString("No named form fields; values will be placed at fixed page positions.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Named form fields (%d):\n", len(fields))
	for _, f := range fields {
		fmt.Fprintf(&b, "  %s [%s]\n", f.Name, f.Type)
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}
