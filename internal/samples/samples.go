// Package samples generates synthetic tax statements and a blank return
// template for demos and tests. No real taxpayer data is involved.
package samples

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-tax-filer/internal/formmap"
	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/go-pdf/fpdf"
)

// Box is one labelled value on a statement. An empty Value prints the
// label alone, as on a statement with a blank box.
type Box struct {
	Label string
	Value string
}

// Statement is a synthetic information return
type Statement struct {
	Name  string
	Type  taxdoc.DocumentType
	Title string
	Boxes []Box
}

// WageStatement is a W-2 paying 75,000.00 with 9,000.00 withheld
func WageStatement() Statement {
	return Statement{
		Name:  "w2-acme",
		Type:  taxdoc.DocumentTypeW2,
		Title: "Form W-2 Wage and Tax Statement 2024",
		Boxes: []Box{
			{"a Employee's social security number", "123-45-6789"},
			{"b Employer identification number (EIN)", "12-3456789"},
			{"c Employer's name, address, and ZIP code", "Acme Manufacturing Inc."},
			{"e Employee's first name and initial", "Jane Q Filer"},
			{"1 Wages, tips, other compensation", "$75,000.00"},
			{"2 Federal income tax withheld", "$9,000.00"},
			{"3 Social security wages", "$75,000.00"},
			{"4 Social security tax withheld", "$4,650.00"},
			{"5 Medicare wages and tips", "$75,000.00"},
			{"6 Medicare tax withheld", "$1,087.50"},
			{"15 State", "IL"},
			{"16 State wages, tips, etc.", "$75,000.00"},
			{"17 State income tax", "$3,712.50"},
		},
	}
}

// WageStatementMissingWithholding is WageStatement with box 2 left blank
func WageStatementMissingWithholding() Statement {
	s := WageStatement()
	s.Name = "w2-acme-no-withholding"
	boxes := make([]Box, len(s.Boxes))
	copy(boxes, s.Boxes)
	for i := range boxes {
		if strings.HasPrefix(boxes[i].Label, "2 ") {
			boxes[i].Value = ""
		}
	}
	s.Boxes = boxes
	return s
}

// InterestStatement is a 1099-INT reporting 312.45 of interest
func InterestStatement() Statement {
	return Statement{
		Name:  "1099-int-bank",
		Type:  taxdoc.DocumentType1099INT,
		Title: "Form 1099-INT Interest Income 2024",
		Boxes: []Box{
			{"PAYER'S name, street address, city or town", "First Community Bank"},
			{"PAYER'S TIN", "98-7654321"},
			{"RECIPIENT'S TIN", "123-45-6789"},
			{"RECIPIENT'S name", "Jane Q Filer"},
			{"1 Interest income", "$312.45"},
			{"4 Federal income tax withheld", "$0.00"},
		},
	}
}

// NonemployeeStatement is a 1099-NEC paying 4,800.00
func NonemployeeStatement() Statement {
	return Statement{
		Name:  "1099-nec-client",
		Type:  taxdoc.DocumentType1099NEC,
		Title: "Form 1099-NEC Nonemployee Compensation 2024",
		Boxes: []Box{
			{"PAYER'S name, street address, city or town", "Studio Nine LLC"},
			{"PAYER'S TIN", "45-6789012"},
			{"RECIPIENT'S TIN", "123-45-6789"},
			{"RECIPIENT'S name", "Jane Q Filer"},
			{"1 Nonemployee compensation", "$4,800.00"},
			{"4 Federal income tax withheld", "$480.00"},
		},
	}
}

// All returns the complete statement set for one sample filer
func All() []Statement {
	return []Statement{WageStatement(), InterestStatement(), NonemployeeStatement()}
}

// Profile is the filer the sample statements were issued to
func Profile() taxdoc.FilerProfile {
	return taxdoc.FilerProfile{
		FilingStatus: taxdoc.FilingStatusSingle,
		Age:          40,
		FirstName:    "Jane Q",
		LastName:     "Filer",
		SSN:          "123-45-6789",
		Address: taxdoc.Address{
			Street: "100 Main Street",
			City:   "Springfield",
			State:  "IL",
			ZIP:    "62701",
		},
	}
}

// Text returns the statement as extracted text: the title, then each
// label followed by its value on the next line
func (s Statement) Text() string {
	var b strings.Builder
	b.WriteString(s.Title)
	for _, box := range s.Boxes {
		b.WriteString("\n")
		b.WriteString(box.Label)
		if box.Value != "" {
			b.WriteString("\n")
			b.WriteString(box.Value)
		}
	}
	return b.String()
}

// WritePDF renders the statement as a one page PDF
func (s Statement) WritePDF(w io.Writer) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(50, 60, s.Title)

	y := 100.0
	for _, box := range s.Boxes {
		pdf.SetFont("Helvetica", "", 8)
		pdf.Text(50, y, box.Label)
		if box.Value != "" {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.Text(60, y+14, box.Value)
		}
		pdf.Line(50, y+20, 320, y+20)
		y += 34
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render %s statement: %w", s.Type, err)
	}
	return nil
}

// PDF renders the statement to bytes
func (s Statement) PDF() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.WritePDF(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Form1040Template draws a blank return whose printed labels sit beside
// the positions in the coordinate map. It has no AcroForm fields, so it
// is always filled by coordinate overlay.
func Form1040Template(m *formmap.Map) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: m.PageWidth, Ht: m.PageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)

	for page := 0; page < m.Pages; page++ {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 12)
		if page == 0 {
			pdf.Text(40, 40, fmt.Sprintf("Form %s U.S. Individual Income Tax Return %d", m.Form, m.TaxYear))
		} else {
			pdf.Text(40, 40, fmt.Sprintf("Form %s (%d) Page %d", m.Form, m.TaxYear, page+1))
		}

		for _, e := range m.Fields {
			if e.Page != page {
				continue
			}
			top := m.PageHeight - e.Y
			pdf.SetFont("Helvetica", "", 7)
			switch e.Kind {
			case formmap.KindText:
				pdf.Text(e.X, top-e.FontSize-2, e.Label)
				pdf.Line(e.X, top+3, e.X+e.MaxWidth, top+3)
			case formmap.KindMark:
				pdf.Rect(e.X-1, top-8, 9, 9, "D")
				pdf.Text(e.X+12, top, e.Label)
			case formmap.KindCurrency:
				pdf.Text(40, top, e.Label)
				pdf.Line(e.X-90, top+3, e.X, top+3)
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render form %s template: %w", m.Form, err)
	}
	return buf.Bytes(), nil
}

// Written lists the files produced by WriteAll
type Written struct {
	Statements []string `json:"statements"`
	Template   string   `json:"template"`
	Profile    string   `json:"profile"`
}

// WriteAll writes the sample statements, a blank Form 1040 template and
// the filer profile into dir
func WriteAll(dir string, m *formmap.Map) (*Written, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sample directory: %w", err)
	}

	out := &Written{}
	for _, s := range All() {
		data, err := s.PDF()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, s.Name+".pdf")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		out.Statements = append(out.Statements, path)
	}

	tmpl, err := Form1040Template(m)
	if err != nil {
		return nil, err
	}
	out.Template = filepath.Join(dir, "form"+m.Form+"-blank.pdf")
	if err := os.WriteFile(out.Template, tmpl, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", out.Template, err)
	}

	profile, err := json.MarshalIndent(Profile(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode sample profile: %w", err)
	}
	out.Profile = filepath.Join(dir, "profile.json")
	if err := os.WriteFile(out.Profile, profile, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", out.Profile, err)
	}
	return out, nil
}
