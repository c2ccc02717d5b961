package report

import (
	"strings"
	"testing"

	"github.com/a3tai/mcp-tax-filer/internal/extract"
	"github.com/a3tai/mcp-tax-filer/internal/filing"
	"github.com/a3tai/mcp-tax-filer/internal/income"
	"github.com/a3tai/mcp-tax-filer/internal/samples"
	"github.com/a3tai/mcp-tax-filer/internal/taxcalc"
	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/a3tai/mcp-tax-filer/internal/textsource"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(t *testing.T) *filing.Report {
	t.Helper()

	var docs []*taxdoc.ExtractedDocument
	for _, s := range samples.All() {
		doc, err := extract.Extract(extract.Input{Source: s.Name + ".pdf", Text: s.Text()})
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	summary := income.Aggregate(docs)

	engine, err := taxcalc.NewDefaultEngine()
	require.NoError(t, err)
	result, err := engine.Compute(summary, samples.Profile())
	require.NoError(t, err)

	return &filing.Report{
		RunID:     "run-1",
		TaxYear:   engine.TaxYear(),
		Documents: docs,
		Summary:   summary,
		Result:    result,
		Notes:     result.Notes,
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$0.00", Money(decimal.Zero))
	assert.Equal(t, "$1234.50", Money(decimal.RequireFromString("1234.5")))
}

func TestDocument(t *testing.T) {
	doc, err := extract.Extract(extract.Input{
		Source: "1099-nec-client.pdf",
		Text:   samples.NonemployeeStatement().Text(),
	})
	require.NoError(t, err)

	text := Document(doc, textsource.MethodPlainText)
	assert.Contains(t, text, "Extracted 1099-NEC")
	assert.Contains(t, text, "from 1099-nec-client.pdf")
	assert.Contains(t, text, "Text decoder: plain_text")
	assert.Contains(t, text, "nonemployee_compensation: 4800.00")
	assert.NotContains(t, text, "Missing required fields")
}

func TestDocument_MissingFields(t *testing.T) {
	doc, err := extract.Extract(extract.Input{
		Source: "w2-partial.pdf",
		Text:   samples.WageStatementMissingWithholding().Text(),
	})
	require.NoError(t, err)

	text := Document(doc, textsource.MethodContentStream)
	assert.Contains(t, text, "Missing required fields (counted as zero):")
	assert.Contains(t, text, string(taxdoc.FieldFederalIncomeTaxWithheld))
}

func TestFiling(t *testing.T) {
	run := sampleRun(t)
	run.Errors = []filing.DocumentError{{Path: "/docs/letter.pdf", Error: "unrecognized document"}}
	run.Output = "/out/form1040.pdf"
	run.Worksheet = "/out/worksheet.xlsx"

	text := Filing(run)
	assert.Contains(t, text, "Tax year 2024 return (run run-1)")
	assert.Contains(t, text, "Documents: 3 extracted, 1 skipped")
	assert.Contains(t, text, "Wages: $75000.00")
	assert.Contains(t, text, "Taxable interest: $312.45")
	assert.Contains(t, text, "Nonemployee compensation: $4800.00")
	assert.Contains(t, text, "Total income: $80112.45")
	assert.Contains(t, text, "Federal income tax withheld: $9480.00")
	assert.Contains(t, text, "Marginal rate:")
	assert.Contains(t, text, "Brackets:")
	assert.Contains(t, text, "/docs/letter.pdf: unrecognized document")
	assert.Contains(t, text, "Filled form written to: /out/form1040.pdf")
	assert.Contains(t, text, "Worksheet written to: /out/worksheet.xlsx")

	if run.Result.IsRefund() {
		assert.Contains(t, text, "Refund: "+Money(run.Result.Refund()))
	} else {
		assert.Contains(t, text, "Amount owed: "+Money(run.Result.AmountOwed()))
	}
}

func TestFiling_NoOutputs(t *testing.T) {
	text := Filing(sampleRun(t))
	assert.NotContains(t, text, "Skipped documents")
	assert.NotContains(t, text, "written to")
}

func TestWriteList(t *testing.T) {
	var b strings.Builder
	writeList(&b, "Notes", nil)
	assert.Empty(t, b.String())

	writeList(&b, "Notes", []string{"first", "second"})
	assert.Equal(t, "\nNotes:\n  - first\n  - second\n", b.String())
}

func TestDocument_NoMethod(t *testing.T) {
	doc, err := extract.Extract(extract.Input{Source: "w2.pdf", Text: samples.WageStatement().Text()})
	require.NoError(t, err)

	assert.NotContains(t, Document(doc, ""), "Text decoder")
}
