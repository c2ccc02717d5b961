package formmap

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed form1040.yaml
var form1040YAML []byte

// Kind is how a field's value is formatted
type Kind string

const (
	KindCurrency Kind = "currency"
	KindText     Kind = "text"
	KindMark     Kind = "mark"
)

// Align is the horizontal anchoring of a field at its x coordinate
type Align string

const (
	AlignLeft  Align = "left"
	AlignRight Align = "right"
)

// Entry positions one logical form field. Page is zero based; X and Y are
// PDF points from the bottom-left corner of the page.
type Entry struct {
	Name       string   `yaml:"name"`
	Label      string   `yaml:"label"`
	Page       int      `yaml:"page"`
	X          float64  `yaml:"x"`
	Y          float64  `yaml:"y"`
	FontSize   float64  `yaml:"font_size"`
	Kind       Kind     `yaml:"kind"`
	Align      Align    `yaml:"align"`
	MaxWidth   float64  `yaml:"max_width"`
	AcroFields []string `yaml:"acro_fields"`
}

// CurrencyStyle controls how amounts are printed on the form
type CurrencyStyle struct {
	Thousands bool `yaml:"thousands"`
	Symbol    bool `yaml:"symbol"`
}

// Map is the coordinate table for one form layout. It is read-only once
// parsed.
type Map struct {
	Form       string        `yaml:"form"`
	TaxYear    int           `yaml:"tax_year"`
	PageWidth  float64       `yaml:"page_width"`
	PageHeight float64       `yaml:"page_height"`
	Pages      int           `yaml:"pages"`
	Currency   CurrencyStyle `yaml:"currency"`
	Fields     []Entry       `yaml:"fields"`

	index map[string]int
}

var (
	defaultOnce sync.Once
	defaultMap  *Map
	defaultErr  error
)

// Default returns the built-in Form 1040 map
func Default() (*Map, error) {
	defaultOnce.Do(func() {
		defaultMap, defaultErr = Parse(form1040YAML)
	})
	return defaultMap, defaultErr
}

// Parse decodes and validates a coordinate map document
func Parse(data []byte) (*Map, error) {
	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode coordinate map: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the map's internal consistency and fills alignment defaults
func (m *Map) Validate() error {
	if m.Pages < 1 {
		return fmt.Errorf("coordinate map %q must declare at least one page", m.Form)
	}
	if m.PageWidth <= 0 || m.PageHeight <= 0 {
		return fmt.Errorf("coordinate map %q has invalid page size %gx%g", m.Form, m.PageWidth, m.PageHeight)
	}

	m.index = make(map[string]int, len(m.Fields))
	for i := range m.Fields {
		e := &m.Fields[i]
		if e.Name == "" {
			return fmt.Errorf("field %d has no name", i)
		}
		if _, dup := m.index[e.Name]; dup {
			return fmt.Errorf("duplicate field %q", e.Name)
		}
		if e.Page < 0 || e.Page >= m.Pages {
			return fmt.Errorf("field %q: page %d out of range [0,%d)", e.Name, e.Page, m.Pages)
		}
		if e.X < 0 || e.X > m.PageWidth || e.Y < 0 || e.Y > m.PageHeight {
			return fmt.Errorf("field %q: position (%g,%g) outside the page", e.Name, e.X, e.Y)
		}
		if e.FontSize <= 0 {
			return fmt.Errorf("field %q: font size must be positive", e.Name)
		}

		switch e.Kind {
		case KindCurrency:
			if e.Align == "" {
				e.Align = AlignRight
			}
		case KindText, KindMark:
			if e.Align == "" {
				e.Align = AlignLeft
			}
		default:
			return fmt.Errorf("field %q: unknown kind %q", e.Name, e.Kind)
		}
		if e.Align != AlignLeft && e.Align != AlignRight {
			return fmt.Errorf("field %q: unknown alignment %q", e.Name, e.Align)
		}

		m.index[e.Name] = i
	}
	return nil
}

// Entry looks up a field by logical name
func (m *Map) Entry(name string) (Entry, bool) {
	i, ok := m.index[name]
	if !ok {
		return Entry{}, false
	}
	return m.Fields[i], true
}

// Names returns the field names in table order
func (m *Map) Names() []string {
	out := make([]string, len(m.Fields))
	for i, e := range m.Fields {
		out[i] = e.Name
	}
	return out
}

// FormatCurrency renders an amount rounded to cents in the map's style
func (m *Map) FormatCurrency(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	if m.Currency.Thousands {
		s = groupThousands(s)
	}
	if m.Currency.Symbol {
		s = "$" + s
	}
	if d.Round(2).IsNegative() {
		s = "-" + s
	}
	return s
}

func groupThousands(s string) string {
	intPart, frac, _ := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
