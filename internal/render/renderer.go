// Package render places computed return values onto a base form. Named
// AcroForm fields are filled where the template has them; everything else
// is stamped at the coordinates in the form map.
package render

import (
	"context"
	"fmt"

	"github.com/a3tai/mcp-tax-filer/internal/formmap"
	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/a3tai/mcp-tax-filer/internal/taxerr"
)

// markText is drawn into checkbox positions
const markText = "X"

// Renderer renders returns for one coordinate map. It is immutable after
// construction and safe for concurrent use.
type Renderer struct {
	m        *formmap.Map
	bindings []formmap.Binding
	metrics  *metrics
}

// NewRenderer creates a renderer after checking that the map and the
// binding table agree
func NewRenderer(m *formmap.Map) (*Renderer, error) {
	bindings := formmap.Bindings()
	if err := m.CheckBindings(bindings); err != nil {
		return nil, err
	}
	return &Renderer{m: m, bindings: bindings, metrics: newMetrics()}, nil
}

// NewDefaultRenderer creates a renderer over the built-in Form 1040 map
func NewDefaultRenderer() (*Renderer, error) {
	m, err := formmap.Default()
	if err != nil {
		return nil, taxerr.Wrap(taxerr.ErrorTypeUnsupportedFieldMapping, "failed to load coordinate map", err)
	}
	return NewRenderer(m)
}

// Map returns the renderer's coordinate map
func (r *Renderer) Map() *formmap.Map {
	return r.m
}

// Plan resolves, formats and positions every value to be drawn. The plan
// depends only on its inputs and the template's field names, so repeated
// calls return identical placements. A nil template plans coordinate
// placement only.
func (r *Renderer) Plan(result *taxdoc.TaxResult, summary *taxdoc.IncomeSummary, profile *taxdoc.FilerProfile, tmpl *Template) ([]Placement, error) {
	if result == nil || summary == nil || profile == nil {
		return nil, fmt.Errorf("result, summary and profile are all required")
	}
	values := formmap.Values{Result: result, Summary: summary, Profile: profile}

	out := make([]Placement, 0, len(r.bindings))
	for _, b := range r.bindings {
		e, ok := r.m.Entry(b.Field)
		if !ok {
			return nil, taxerr.NewWithContext(taxerr.ErrorTypeUnsupportedFieldMapping, "field has no coordinate entry", b.Field)
		}

		v, ok := b.Resolve(values)
		if !ok {
			continue
		}

		p := Placement{
			Field:    e.Name,
			Page:     e.Page,
			Y:        e.Y,
			FontSize: e.FontSize,
			Strategy: StrategyCoordinate,
		}

		switch e.Kind {
		case formmap.KindCurrency:
			p.Text = r.m.FormatCurrency(v.Amount)
		case formmap.KindText:
			p.Text = r.metrics.truncate(v.Text, e.FontSize, e.MaxWidth)
		case formmap.KindMark:
			if !v.Mark {
				continue
			}
			p.Text, p.Mark = markText, true
		}
		if p.Text == "" {
			continue
		}

		p.X = e.X
		if e.Align == formmap.AlignRight {
			p.X = e.X - r.metrics.width(p.Text, e.FontSize)
		}

		if tmpl != nil {
			if f, ok := tmpl.Field(e.AcroFields); ok && compatible(f.Type, e.Kind) {
				p.Strategy, p.AcroField = StrategyField, f.Name
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func compatible(ft FieldType, k formmap.Kind) bool {
	if k == formmap.KindMark {
		return ft == FieldTypeCheckbox
	}
	return ft == FieldTypeText
}

// placerFor selects the placement strategy by template introspection
func placerFor(tmpl *Template) Placer {
	if tmpl.HasForm() {
		return chainPlacer{placers: []Placer{fieldPlacer{}, coordinatePlacer{}}}
	}
	return coordinatePlacer{}
}

// Render returns a new document holding the template plus the return's
// values. The template is left unchanged and may be shared between
// concurrent renders.
func (r *Renderer) Render(ctx context.Context, result *taxdoc.TaxResult, summary *taxdoc.IncomeSummary, profile *taxdoc.FilerProfile, tmpl *Template) ([]byte, error) {
	if tmpl == nil {
		return nil, taxerr.New(taxerr.ErrorTypeTemplateLoad, "no base form supplied")
	}
	if tmpl.Pages() < r.m.Pages {
		return nil, taxerr.NewWithContext(taxerr.ErrorTypeTemplateLoad,
			fmt.Sprintf("base form has %d pages, map %s needs %d", tmpl.Pages(), r.m.Form, r.m.Pages), "page count")
	}

	plan, err := r.Plan(result, summary, profile, tmpl)
	if err != nil {
		return nil, err
	}

	out, rest, err := placerFor(tmpl).Place(ctx, tmpl.Bytes(), plan)
	if err != nil {
		return nil, fmt.Errorf("failed to render form %s: %w", r.m.Form, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("failed to render form %s: %d values were not placed", r.m.Form, len(rest))
	}
	return out, nil
}
