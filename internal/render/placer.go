package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Strategy names how a value reaches the page
type Strategy string

const (
	StrategyField      Strategy = "field"
	StrategyCoordinate Strategy = "coordinate"
)

// Placement is one formatted value bound to a position. Page is zero based;
// X and Y are the baseline start in PDF points.
type Placement struct {
	Field     string   `json:"field"`
	Page      int      `json:"page"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	FontSize  float64  `json:"font_size"`
	Text      string   `json:"text"`
	Mark      bool     `json:"mark,omitempty"`
	Strategy  Strategy `json:"strategy"`
	AcroField string   `json:"acro_field,omitempty"`
}

// Placer writes placements into a document. It returns the new document
// and the placements it did not handle. The input bytes are never
// modified.
type Placer interface {
	Name() string
	Place(ctx context.Context, doc []byte, placements []Placement) ([]byte, []Placement, error)
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// fieldPlacer fills named AcroForm fields with pdfcpu's form filler
type fieldPlacer struct{}

func (fieldPlacer) Name() string { return string(StrategyField) }

type fillDocument struct {
	Forms []fillForm `json:"forms"`
}

type fillForm struct {
	TextFields []fillText     `json:"textfield,omitempty"`
	CheckBoxes []fillCheckbox `json:"checkbox,omitempty"`
}

type fillText struct {
	Pages []int  `json:"pages"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type fillCheckbox struct {
	Pages []int  `json:"pages"`
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

// fillPayload builds the pdfcpu fill document for placements that name an
// AcroForm field. The rest are returned untouched.
func fillPayload(placements []Placement) ([]byte, []Placement, int, error) {
	var (
		form   fillForm
		rest   []Placement
		filled int
	)
	for _, p := range placements {
		if p.Strategy != StrategyField || p.AcroField == "" {
			rest = append(rest, p)
			continue
		}
		pages := []int{p.Page + 1}
		if p.Mark {
			form.CheckBoxes = append(form.CheckBoxes, fillCheckbox{Pages: pages, Name: p.AcroField, Value: true})
		} else {
			form.TextFields = append(form.TextFields, fillText{Pages: pages, Name: p.AcroField, Value: p.Text})
		}
		filled++
	}
	if filled == 0 {
		return nil, rest, 0, nil
	}
	data, err := json.Marshal(fillDocument{Forms: []fillForm{form}})
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to encode form data: %w", err)
	}
	return data, rest, filled, nil
}

func (fieldPlacer) Place(ctx context.Context, doc []byte, placements []Placement) ([]byte, []Placement, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	payload, rest, filled, err := fillPayload(placements)
	if err != nil {
		return nil, nil, err
	}
	if filled == 0 {
		return doc, rest, nil
	}

	var out bytes.Buffer
	if err := api.FillForm(bytes.NewReader(doc), bytes.NewReader(payload), &out, relaxedConfig()); err != nil {
		return nil, nil, fmt.Errorf("failed to fill form fields: %w", err)
	}
	return out.Bytes(), rest, nil
}

// coordinatePlacer stamps every placement as free text at its position
type coordinatePlacer struct{}

func (coordinatePlacer) Name() string { return string(StrategyCoordinate) }

// stampPoints is the whole point size pdfcpu stamps with
func stampPoints(size float64) int {
	return max(1, int(math.Round(size)))
}

// stampDescription places a stamp so its text baseline starts at the
// placement. pdfcpu draws the text one rounded-up descent above the
// bottom of the stamp box. Rotation and scaling are pinned so the text
// lands unaltered.
func stampDescription(p Placement) string {
	points := stampPoints(p.FontSize)
	descent := math.Ceil(font.Descent(stampFont, points))
	return fmt.Sprintf("fontname:%s, points:%d, position:bl, offset:%.2f %.2f, scalefactor:1 abs, rotation:0, fillcolor:#000000, opacity:1",
		stampFont, points, p.X, p.Y-descent)
}

func (coordinatePlacer) Place(ctx context.Context, doc []byte, placements []Placement) ([]byte, []Placement, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(placements) == 0 {
		return doc, nil, nil
	}

	stamps := make(map[int][]*model.Watermark)
	for _, p := range placements {
		wm, err := api.TextWatermark(p.Text, stampDescription(p), true, false, types.POINTS)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build stamp for %s: %w", p.Field, err)
		}
		stamps[p.Page+1] = append(stamps[p.Page+1], wm)
	}

	var out bytes.Buffer
	if err := api.AddWatermarksSliceMap(bytes.NewReader(doc), &out, stamps, relaxedConfig()); err != nil {
		return nil, nil, fmt.Errorf("failed to stamp values: %w", err)
	}
	return out.Bytes(), nil, nil
}

// chainPlacer runs placers in order, handing each the placements the
// previous one left. A placer that fails hands all of its input on.
type chainPlacer struct {
	placers []Placer
}

func (c chainPlacer) Name() string {
	name := ""
	for i, p := range c.placers {
		if i > 0 {
			name += "+"
		}
		name += p.Name()
	}
	return name
}

func (c chainPlacer) Place(ctx context.Context, doc []byte, placements []Placement) ([]byte, []Placement, error) {
	pending := placements
	var lastErr error
	for i, p := range c.placers {
		if len(pending) == 0 {
			break
		}
		if i > 0 {
			pending = asCoordinates(pending)
		}
		out, rest, err := p.Place(ctx, doc, pending)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, err
			}
			lastErr = err
			continue
		}
		doc, pending = out, rest
	}
	if len(pending) > 0 && lastErr != nil {
		return nil, pending, lastErr
	}
	return doc, pending, nil
}

// asCoordinates downgrades placements for the fallback path
func asCoordinates(placements []Placement) []Placement {
	out := make([]Placement, len(placements))
	for i, p := range placements {
		p.Strategy = StrategyCoordinate
		p.AcroField = ""
		out[i] = p
	}
	return out
}
