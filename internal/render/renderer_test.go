package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"regexp"
	"strconv"
	"sync"
	"testing"

	"github.com/a3tai/mcp-tax-filer/internal/formmap"
	"github.com/a3tai/mcp-tax-filer/internal/samples"
	"github.com/a3tai/mcp-tax-filer/internal/taxcalc"
	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/a3tai/mcp-tax-filer/internal/taxerr"
	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	api.DisableConfigDir()
	os.Exit(m.Run())
}

type scenario struct {
	result  *taxdoc.TaxResult
	summary *taxdoc.IncomeSummary
	profile *taxdoc.FilerProfile
}

func compute(t *testing.T, wages, withheld string) scenario {
	t.Helper()
	engine, err := taxcalc.NewDefaultEngine()
	require.NoError(t, err)

	summary := taxdoc.IncomeSummary{
		Wages:                    decimal.RequireFromString(wages),
		FederalIncomeTaxWithheld: decimal.RequireFromString(withheld),
		WageWithholding:          decimal.RequireFromString(withheld),
		DocumentCount:            1,
	}
	profile := samples.Profile()
	result, err := engine.Compute(summary, profile)
	require.NoError(t, err)
	return scenario{result: result, summary: &summary, profile: &profile}
}

func byField(plan []Placement) map[string]Placement {
	out := make(map[string]Placement, len(plan))
	for _, p := range plan {
		out[p.Field] = p
	}
	return out
}

func blankTemplate(t *testing.T) *Template {
	t.Helper()
	m, err := formmap.Default()
	require.NoError(t, err)
	data, err := samples.Form1040Template(m)
	require.NoError(t, err)
	tmpl, err := LoadTemplate(data)
	require.NoError(t, err)
	return tmpl
}

func TestNewRendererRejectsMismatchedMap(t *testing.T) {
	m, err := formmap.Parse([]byte(`
form: partial
pages: 1
page_width: 612
page_height: 792
fields:
  - {name: line_11, page: 0, x: 500, y: 200, font_size: 9, kind: currency}
`))
	require.NoError(t, err)

	_, err = NewRenderer(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, taxerr.ErrUnsupportedFieldMapping))
	assert.True(t, taxerr.TypeOf(err).IsConfiguration())
}

func TestPlanRefundScenario(t *testing.T) {
	r, err := NewDefaultRenderer()
	require.NoError(t, err)
	s := compute(t, "75000", "9000")

	plan, err := r.Plan(s.result, s.summary, s.profile, nil)
	require.NoError(t, err)
	got := byField(plan)

	assert.Equal(t, "75,000.00", got["line_1a"].Text)
	assert.Equal(t, "75,000.00", got["line_11"].Text)
	assert.Equal(t, "14,600.00", got["line_12"].Text)
	assert.Equal(t, "60,400.00", got["line_15"].Text)
	assert.Equal(t, "8,341.00", got["line_16"].Text)
	assert.Equal(t, "9,000.00", got["line_25a"].Text)
	assert.Equal(t, "0.00", got["line_25b"].Text)
	assert.Equal(t, "659.00", got["line_34"].Text)
	assert.Equal(t, "659.00", got["line_35a"].Text)
	assert.NotContains(t, got, "line_37")

	assert.Equal(t, "Jane Q", got["first_name"].Text)
	assert.Equal(t, "Springfield, IL 62701", got["city_state_zip"].Text)

	assert.True(t, got["status_single"].Mark)
	assert.Equal(t, markText, got["status_single"].Text)
	assert.NotContains(t, got, "status_married_filing_jointly")

	for _, p := range plan {
		assert.Equal(t, StrategyCoordinate, p.Strategy, p.Field)
	}
}

func TestPlanAlignment(t *testing.T) {
	r, err := NewDefaultRenderer()
	require.NoError(t, err)
	s := compute(t, "75000", "9000")

	plan, err := r.Plan(s.result, s.summary, s.profile, nil)
	require.NoError(t, err)
	got := byField(plan)

	line, _ := r.Map().Entry("line_1a")
	p := got["line_1a"]
	assert.Equal(t, line.Y, p.Y)
	assert.InDelta(t, line.X, p.X+r.metrics.width(p.Text, p.FontSize), 1e-9)
	assert.Less(t, p.X, line.X)

	name, _ := r.Map().Entry("first_name")
	assert.Equal(t, name.X, got["first_name"].X)
}

func TestPlanAmountOwed(t *testing.T) {
	r, err := NewDefaultRenderer()
	require.NoError(t, err)
	s := compute(t, "75000", "0")

	plan, err := r.Plan(s.result, s.summary, s.profile, nil)
	require.NoError(t, err)
	got := byField(plan)

	assert.Equal(t, "8,341.00", got["line_37"].Text)
	assert.NotContains(t, got, "line_34")
	assert.NotContains(t, got, "line_35a")
}

func TestPlanIsDeterministic(t *testing.T) {
	r, err := NewDefaultRenderer()
	require.NoError(t, err)
	s := compute(t, "75000", "9000")
	tmpl := blankTemplate(t)

	first, err := r.Plan(s.result, s.summary, s.profile, tmpl)
	require.NoError(t, err)
	second, err := r.Plan(s.result, s.summary, s.profile, tmpl)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPlanTruncatesText(t *testing.T) {
	r, err := NewDefaultRenderer()
	require.NoError(t, err)
	s := compute(t, "1000", "0")
	s.profile.Address.Street = "12345 An Extraordinarily Long Street Name That Cannot Possibly Fit On The Line"

	plan, err := r.Plan(s.result, s.summary, s.profile, nil)
	require.NoError(t, err)

	street := byField(plan)["street"]
	entry, _ := r.Map().Entry("street")
	assert.Less(t, len(street.Text), len(s.profile.Address.Street))
	assert.LessOrEqual(t, r.metrics.width(street.Text, entry.FontSize), entry.MaxWidth)
	assert.True(t, len(street.Text) > 0)
}

func TestPlanUsesNamedFields(t *testing.T) {
	r, err := NewDefaultRenderer()
	require.NoError(t, err)
	s := compute(t, "75000", "9000")

	tmpl := &Template{pages: 2, lookup: map[string]FormField{}}
	for _, f := range []FormField{
		{Name: "topmostSubform[0].Page1[0].f1_04[0]", Partial: "f1_04", Type: FieldTypeText},
		{Name: "topmostSubform[0].Page1[0].c1_1[0]", Partial: "c1_1", Type: FieldTypeCheckbox},
		{Name: "line_1a", Partial: "line_1a", Type: FieldTypeCheckbox},
	} {
		tmpl.fields = append(tmpl.fields, f)
		tmpl.lookup[f.Name] = f
		tmpl.lookup[f.Partial] = f
	}

	plan, err := r.Plan(s.result, s.summary, s.profile, tmpl)
	require.NoError(t, err)
	got := byField(plan)

	assert.Equal(t, StrategyField, got["first_name"].Strategy)
	assert.Equal(t, "topmostSubform[0].Page1[0].f1_04[0]", got["first_name"].AcroField)
	assert.Equal(t, StrategyField, got["status_single"].Strategy)
	// a checkbox cannot hold an amount
	assert.Equal(t, StrategyCoordinate, got["line_1a"].Strategy)
	assert.Equal(t, StrategyCoordinate, got["line_11"].Strategy)
}

func TestLoadTemplateErrors(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not a pdf"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadTemplate(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, taxerr.ErrTemplateLoad))
		})
	}
}

func TestLoadTemplateWithoutForm(t *testing.T) {
	tmpl := blankTemplate(t)
	assert.Equal(t, 2, tmpl.Pages())
	assert.False(t, tmpl.HasForm())
	assert.Empty(t, tmpl.Fields())
}

func TestRenderStampsOntoCopy(t *testing.T) {
	r, err := NewDefaultRenderer()
	require.NoError(t, err)
	s := compute(t, "75000", "9000")
	tmpl := blankTemplate(t)
	original := tmpl.Bytes()

	out, err := r.Render(context.Background(), s.result, s.summary, s.profile, tmpl)
	require.NoError(t, err)

	assert.NotEqual(t, original, out)
	assert.Equal(t, original, tmpl.Bytes())

	rendered, err := LoadTemplate(out)
	require.NoError(t, err)
	assert.Equal(t, 2, rendered.Pages())
}

func TestRenderConcurrentlyFromOneTemplate(t *testing.T) {
	r, err := NewDefaultRenderer()
	require.NoError(t, err)
	tmpl := blankTemplate(t)
	original := tmpl.Bytes()

	scenarios := []scenario{compute(t, "75000", "9000"), compute(t, "50000", "0"), compute(t, "0", "0")}

	var wg sync.WaitGroup
	errs := make([]error, len(scenarios))
	for i, s := range scenarios {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = r.Render(context.Background(), s.result, s.summary, s.profile, tmpl)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.True(t, bytes.Equal(original, tmpl.Bytes()))
}

func TestRenderRejectsShortTemplate(t *testing.T) {
	r, err := NewDefaultRenderer()
	require.NoError(t, err)
	s := compute(t, "75000", "9000")

	data, err := samples.WageStatement().PDF()
	require.NoError(t, err)
	tmpl, err := LoadTemplate(data)
	require.NoError(t, err)

	_, err = r.Render(context.Background(), s.result, s.summary, s.profile, tmpl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, taxerr.ErrTemplateLoad))
}

func TestRenderCancelled(t *testing.T) {
	r, err := NewDefaultRenderer()
	require.NoError(t, err)
	s := compute(t, "75000", "9000")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, s.result, s.summary, s.profile, blankTemplate(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFillPayload(t *testing.T) {
	placements := []Placement{
		{Field: "first_name", Page: 0, Text: "Jane", Strategy: StrategyField, AcroField: "f1_04"},
		{Field: "status_single", Page: 0, Text: markText, Mark: true, Strategy: StrategyField, AcroField: "c1_1"},
		{Field: "line_11", Page: 0, Text: "75,000.00", Strategy: StrategyCoordinate},
	}

	data, rest, filled, err := fillPayload(placements)
	require.NoError(t, err)
	assert.Equal(t, 2, filled)
	require.Len(t, rest, 1)
	assert.Equal(t, "line_11", rest[0].Field)

	var doc fillDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Forms, 1)
	assert.Equal(t, []fillText{{Pages: []int{1}, Name: "f1_04", Value: "Jane"}}, doc.Forms[0].TextFields)
	assert.Equal(t, []fillCheckbox{{Pages: []int{1}, Name: "c1_1", Value: true}}, doc.Forms[0].CheckBoxes)
}

type recordingPlacer struct {
	name    string
	handles Strategy
	fail    bool
	got     []Placement
}

func (p *recordingPlacer) Name() string { return p.name }

func (p *recordingPlacer) Place(_ context.Context, doc []byte, placements []Placement) ([]byte, []Placement, error) {
	p.got = placements
	if p.fail {
		return nil, nil, errors.New("cannot fill")
	}
	var rest []Placement
	for _, pl := range placements {
		if pl.Strategy != p.handles {
			rest = append(rest, pl)
		}
	}
	return append(doc, '+'), rest, nil
}

func TestChainPlacerFallsBack(t *testing.T) {
	placements := []Placement{
		{Field: "a", Strategy: StrategyField, AcroField: "fa"},
		{Field: "b", Strategy: StrategyCoordinate},
	}

	t.Run("leftovers go to the next placer", func(t *testing.T) {
		first := &recordingPlacer{name: "one", handles: StrategyField}
		second := &recordingPlacer{name: "two", handles: StrategyCoordinate}
		out, rest, err := chainPlacer{placers: []Placer{first, second}}.Place(context.Background(), []byte("doc"), placements)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, "doc++", string(out))
		require.Len(t, second.got, 1)
		assert.Equal(t, "b", second.got[0].Field)
	})

	t.Run("failure hands everything on as coordinates", func(t *testing.T) {
		first := &recordingPlacer{name: "one", fail: true}
		second := &recordingPlacer{name: "two", handles: StrategyCoordinate}
		chain := chainPlacer{placers: []Placer{first, second}}
		assert.Equal(t, "one+two", chain.Name())

		out, rest, err := chain.Place(context.Background(), []byte("doc"), placements)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, "doc+", string(out))
		require.Len(t, second.got, 2)
		for _, p := range second.got {
			assert.Equal(t, StrategyCoordinate, p.Strategy)
			assert.Empty(t, p.AcroField)
		}
	})

	t.Run("all placers failing is an error", func(t *testing.T) {
		chain := chainPlacer{placers: []Placer{&recordingPlacer{fail: true}, &recordingPlacer{fail: true}}}
		_, rest, err := chain.Place(context.Background(), []byte("doc"), placements)
		assert.Error(t, err)
		assert.Len(t, rest, 2)
	})
}

func TestStampDescription(t *testing.T) {
	desc := stampDescription(Placement{X: 527.5, Y: 414, FontSize: 9})
	assert.Equal(t, "fontname:Helvetica, points:9, position:bl, offset:527.50 412.00, scalefactor:1 abs, rotation:0, fillcolor:#000000, opacity:1", desc)

	assert.Contains(t, stampDescription(Placement{X: 10, Y: 20, FontSize: 9.6}), "points:10, ")
}

func blankPage(t *testing.T) []byte {
	t.Helper()
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.AddPage()
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

var (
	stampMatrix = regexp.MustCompile(`1\.00000 -?0\.00000 -?0\.00000 1\.00000 (-?[\d.]+) (-?[\d.]+) cm /\w+ gs /(\w+) Do`)
	textOrigin  = regexp.MustCompile(`(-?[\d.]+) (-?[\d.]+) Td`)
)

func TestCoordinatePlacerBaseline(t *testing.T) {
	placement := Placement{Field: "line_1a", Text: "75000.00", Page: 0, X: 120, Y: 300, FontSize: 10}

	out, rest, err := coordinatePlacer{}.Place(context.Background(), blankPage(t), []Placement{placement})
	require.NoError(t, err)
	assert.Empty(t, rest)

	ctx, err := api.ReadContext(bytes.NewReader(out), relaxedConfig())
	require.NoError(t, err)
	page, _, _, err := ctx.PageDict(1, false)
	require.NoError(t, err)
	content, err := ctx.PageContent(page, 1)
	require.NoError(t, err)

	m := stampMatrix.FindSubmatch(content)
	require.NotNil(t, m, "stamp not found in page content: %s", content)
	x, err := strconv.ParseFloat(string(m[1]), 64)
	require.NoError(t, err)
	y, err := strconv.ParseFloat(string(m[2]), 64)
	require.NoError(t, err)

	// the form draws its text above the stamp origin
	res, err := ctx.DereferenceDict(page["Resources"])
	require.NoError(t, err)
	xobjects, err := ctx.DereferenceDict(res["XObject"])
	require.NoError(t, err)
	form, _, err := ctx.DereferenceStreamDict(xobjects[string(m[3])])
	require.NoError(t, err)
	require.NotNil(t, form)
	require.NoError(t, form.Decode())

	td := textOrigin.FindSubmatch(form.Content)
	require.NotNil(t, td, "text origin not found in stamp: %s", form.Content)
	tx, err := strconv.ParseFloat(string(td[1]), 64)
	require.NoError(t, err)
	ty, err := strconv.ParseFloat(string(td[2]), 64)
	require.NoError(t, err)

	assert.InDelta(t, placement.X, x+tx, 0.01)
	assert.InDelta(t, placement.Y, y+ty, 0.01)
}
