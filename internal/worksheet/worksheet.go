// Package worksheet exports a computed return as an Excel workbook with the
// summary, the per-bracket breakdown and the source documents.
package worksheet

import (
	"fmt"
	"io"
	"sort"

	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary   = "Summary"
	SheetBrackets  = "Brackets"
	SheetDocuments = "Documents"
)

// numFmtAmount is the built-in "#,##0.00" format
const numFmtAmount = 4

// Input is everything the workbook reports on
type Input struct {
	TaxYear   int
	Result    *taxdoc.TaxResult
	Summary   *taxdoc.IncomeSummary
	Profile   *taxdoc.FilerProfile
	Documents []*taxdoc.ExtractedDocument
}

// Write builds the workbook and writes it to w
func Write(w io.Writer, in Input) error {
	f, err := Build(in)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write worksheet: %w", err)
	}
	return nil
}

// Build assembles the workbook in memory
func Build(in Input) (*excelize.File, error) {
	if in.Result == nil || in.Summary == nil {
		return nil, fmt.Errorf("worksheet needs a tax result and an income summary")
	}

	f := excelize.NewFile()
	b := &builder{f: f}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	for _, s := range []string{SheetBrackets, SheetDocuments} {
		if _, err := f.NewSheet(s); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to add %s sheet: %w", s, err)
		}
	}

	if err := b.styles(); err != nil {
		f.Close()
		return nil, err
	}

	b.summary(in)
	b.brackets(in.Result)
	b.documents(in.Documents)

	if b.err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to build worksheet: %w", b.err)
	}
	return f, nil
}

// builder records the first error so sheet code can stay linear
type builder struct {
	f      *excelize.File
	err    error
	bold   int
	amount int
	pct    int
}

func (b *builder) styles() error {
	var err error
	if b.bold, err = b.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if b.amount, err = b.f.NewStyle(&excelize.Style{NumFmt: numFmtAmount}); err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}
	if b.pct, err = b.f.NewStyle(&excelize.Style{NumFmt: 10}); err != nil {
		return fmt.Errorf("failed to create rate style: %w", err)
	}
	return nil
}

func (b *builder) row(sheet string, r int, values ...any) {
	if b.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		b.err = err
		return
	}
	b.err = b.f.SetSheetRow(sheet, cell, &values)
}

func (b *builder) style(sheet, from, to string, style int) {
	if b.err != nil {
		return
	}
	b.err = b.f.SetCellStyle(sheet, from, to, style)
}

func (b *builder) header(sheet string, values ...any) {
	b.row(sheet, 1, values...)
	last, _ := excelize.CoordinatesToCellName(len(values), 1)
	b.style(sheet, "A1", last, b.bold)
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func (b *builder) summary(in Input) {
	r, s := in.Result, in.Summary
	b.header(SheetSummary, "Item", "Value")

	rows := [][]any{
		{"Tax year", in.TaxYear},
		{"Filing status", string(r.FilingStatus)},
	}
	if in.Profile != nil && in.Profile.FullName() != "" {
		rows = append(rows, []any{"Filer", in.Profile.FullName()})
	}
	amountsFrom := len(rows) + 2
	rows = append(rows,
		[]any{"Wages", money(s.Wages)},
		[]any{"Taxable interest", money(s.InterestIncome)},
		[]any{"Nonemployee compensation", money(s.NonemployeeCompensation)},
		[]any{"Total income", money(s.TotalIncome())},
		[]any{"Adjusted gross income", money(r.AdjustedGrossIncome)},
		[]any{"Standard deduction", money(r.StandardDeduction)},
		[]any{"Taxable income", money(r.TaxableIncome)},
		[]any{"Tax liability", money(r.TaxLiability)},
		[]any{"Federal income tax withheld", money(r.FederalIncomeTaxWithheld)},
		[]any{"Refund", money(r.Refund())},
		[]any{"Amount owed", money(r.AmountOwed())},
	)
	amountsTo := len(rows) + 1
	rows = append(rows,
		[]any{"Effective rate", r.EffectiveRate.InexactFloat64()},
		[]any{"Marginal rate", r.MarginalRate.InexactFloat64()},
	)

	for i, row := range rows {
		b.row(SheetSummary, i+2, row...)
	}
	b.style(SheetSummary, fmt.Sprintf("B%d", amountsFrom), fmt.Sprintf("B%d", amountsTo), b.amount)
	b.style(SheetSummary, fmt.Sprintf("B%d", amountsTo+1), fmt.Sprintf("B%d", amountsTo+2), b.pct)

	next := len(rows) + 3
	for _, n := range append(append([]string(nil), r.Notes...), s.Warnings...) {
		b.row(SheetSummary, next, "Note", n)
		next++
	}
	if b.err == nil {
		b.err = b.f.SetColWidth(SheetSummary, "A", "A", 30)
	}
	if b.err == nil {
		b.err = b.f.SetColWidth(SheetSummary, "B", "B", 18)
	}
}

func (b *builder) brackets(r *taxdoc.TaxResult) {
	b.header(SheetBrackets, "Lower", "Upper", "Rate", "Taxed amount", "Tax")
	for i, l := range r.Brackets {
		var upper any = ""
		if l.Upper != nil {
			upper = money(*l.Upper)
		}
		b.row(SheetBrackets, i+2, money(l.Lower), upper, l.Rate.InexactFloat64(), money(l.TaxedPart), money(l.Tax))
	}
	if n := len(r.Brackets); n > 0 {
		b.style(SheetBrackets, "A2", fmt.Sprintf("B%d", n+1), b.amount)
		b.style(SheetBrackets, "C2", fmt.Sprintf("C%d", n+1), b.pct)
		b.style(SheetBrackets, "D2", fmt.Sprintf("E%d", n+1), b.amount)
		b.row(SheetBrackets, n+2, "Total", "", "", money(r.TaxableIncome), money(r.TaxLiability))
		b.style(SheetBrackets, fmt.Sprintf("A%d", n+2), fmt.Sprintf("E%d", n+2), b.bold)
	}
}

func (b *builder) documents(docs []*taxdoc.ExtractedDocument) {
	b.header(SheetDocuments, "Source", "Type", "Field", "Value", "Confidence")
	r := 2
	for _, d := range docs {
		if d == nil {
			continue
		}
		names := make([]string, 0, len(d.Fields))
		for name := range d.Fields {
			names = append(names, string(name))
		}
		sort.Strings(names)

		for _, name := range names {
			b.row(SheetDocuments, r, d.Source, string(d.DocumentType), name, d.Fields[taxdoc.FieldName(name)].String(), d.Confidence)
			r++
		}
		for _, m := range d.Missing {
			b.row(SheetDocuments, r, d.Source, string(d.DocumentType), string(m), "(missing)", d.Confidence)
			r++
		}
	}
}
