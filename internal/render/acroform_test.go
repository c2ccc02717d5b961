package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// acroFormLayout is a two page Letter form with one named text field and
// one named checkbox on the first page
const acroFormLayout = `{
	"paper": "LetterP",
	"origin": "LowerLeft",
	"fonts": {
		"input": {"name": "Helvetica", "size": 10},
		"label": {"name": "Helvetica", "size": 10}
	},
	"pages": {
		"1": {
			"content": {
				"textfield": [
					{"id": "first_name", "value": "", "pos": [40, 698], "width": 200}
				],
				"checkbox": [
					{"id": "filing_status_single", "value": false, "pos": [100, 628], "width": 10}
				]
			}
		},
		"2": {
			"content": {
				"text": [
					{"value": "Page 2", "pos": [40, 740], "font": {"name": "$label"}}
				]
			}
		}
	}
}`

func acroFormTemplate(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, api.Create(nil, strings.NewReader(acroFormLayout), &buf, model.NewDefaultConfiguration()))
	return buf.Bytes()
}

func TestRenderFillsAcroForm(t *testing.T) {
	tmpl, err := LoadTemplate(acroFormTemplate(t))
	require.NoError(t, err)
	require.Equal(t, 2, tmpl.Pages())
	require.True(t, tmpl.HasForm())

	text, ok := tmpl.Field([]string{"first_name"})
	require.True(t, ok)
	assert.Equal(t, FieldTypeText, text.Type)
	check, ok := tmpl.Field([]string{"filing_status_single"})
	require.True(t, ok)
	assert.Equal(t, FieldTypeCheckbox, check.Type)

	r, err := NewDefaultRenderer()
	require.NoError(t, err)
	s := compute(t, "75000", "9000")

	plan, err := r.Plan(s.result, s.summary, s.profile, tmpl)
	require.NoError(t, err)
	var stamped int
	for _, p := range plan {
		switch p.Field {
		case "first_name", "status_single":
			assert.Equal(t, StrategyField, p.Strategy, p.Field)
		default:
			assert.Equal(t, StrategyCoordinate, p.Strategy, p.Field)
			stamped++
		}
	}
	assert.Positive(t, stamped)

	out, err := r.Render(context.Background(), s.result, s.summary, s.profile, tmpl)
	require.NoError(t, err)

	group, err := api.ExportForm(bytes.NewReader(out), "form1040.pdf", relaxedConfig())
	require.NoError(t, err)
	require.Len(t, group.Forms, 1)
	form := group.Forms[0]

	var firstName string
	for _, f := range form.TextFields {
		if f.Name == "first_name" {
			firstName = f.Value
		}
	}
	assert.Equal(t, "Jane Q", firstName)

	var single bool
	for _, f := range form.CheckBoxes {
		if f.Name == "filing_status_single" {
			single = f.Value
		}
	}
	assert.True(t, single)

	// everything without a named field is stamped onto the page
	ctx, err := api.ReadContext(bytes.NewReader(out), relaxedConfig())
	require.NoError(t, err)
	page, _, _, err := ctx.PageDict(1, false)
	require.NoError(t, err)
	content, err := ctx.PageContent(page, 1)
	require.NoError(t, err)
	assert.Contains(t, string(content), "/Watermark")
}
