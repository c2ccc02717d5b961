package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/a3tai/mcp-tax-filer/internal/taxerr"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// FieldType is the kind of an AcroForm field
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeOther    FieldType = "other"
)

// FormField is one terminal AcroForm field found in a template
type FormField struct {
	Name    string    `json:"name"`
	Partial string    `json:"partial"`
	Type    FieldType `json:"type"`
}

// Template is a parsed base form. Its bytes are private and never modified.
type Template struct {
	data   []byte
	pages  int
	fields []FormField
	lookup map[string]FormField
}

// LoadTemplate parses a base form and introspects its AcroForm fields
func LoadTemplate(data []byte) (*Template, error) {
	if len(data) == 0 {
		return nil, taxerr.New(taxerr.ErrorTypeTemplateLoad, "base form is empty")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, taxerr.Wrap(taxerr.ErrorTypeTemplateLoad, "failed to parse base form", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, taxerr.Wrap(taxerr.ErrorTypeTemplateLoad, "failed to count base form pages", err)
	}
	if ctx.PageCount < 1 {
		return nil, taxerr.New(taxerr.ErrorTypeTemplateLoad, "base form has no pages")
	}

	fields, err := formFields(ctx)
	if err != nil {
		return nil, taxerr.Wrap(taxerr.ErrorTypeTemplateLoad, "failed to read form fields", err)
	}

	t := &Template{
		data:   append([]byte(nil), data...),
		pages:  ctx.PageCount,
		fields: fields,
		lookup: make(map[string]FormField, 2*len(fields)),
	}
	for _, f := range fields {
		t.lookup[f.Name] = f
		if _, taken := t.lookup[f.Partial]; !taken {
			t.lookup[f.Partial] = f
		}
	}
	return t, nil
}

// Pages returns the template's page count
func (t *Template) Pages() int {
	return t.pages
}

// Fields returns the template's form fields sorted by name
func (t *Template) Fields() []FormField {
	out := make([]FormField, len(t.fields))
	copy(out, t.fields)
	return out
}

// HasForm reports whether the template carries fillable fields
func (t *Template) HasForm() bool {
	return len(t.fields) > 0
}

// Bytes returns a copy of the template document
func (t *Template) Bytes() []byte {
	return append([]byte(nil), t.data...)
}

// Field finds the first candidate name present in the template. Candidates
// may be fully qualified names or terminal partial names.
func (t *Template) Field(candidates []string) (FormField, bool) {
	for _, c := range candidates {
		if f, ok := t.lookup[c]; ok {
			return f, true
		}
		if f, ok := t.lookup[stripIndex(c)]; ok {
			return f, true
		}
	}
	return FormField{}, false
}

func formFields(ctx *model.Context) ([]FormField, error) {
	root, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroObj, found := root.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acro, err := ctx.DereferenceDict(acroObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acro == nil {
		return nil, nil
	}

	fieldsObj, found := acro.Find("Fields")
	if !found {
		return nil, nil
	}
	arr, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	var out []FormField
	seen := make(map[string]bool)
	for _, obj := range arr {
		collectField(ctx, obj, "", "", 0, seen, &out)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// collectField walks the field tree. Type is inherited from ancestors;
// widgets without their own name belong to the parent field.
func collectField(ctx *model.Context, obj types.Object, parent string, inheritedFT string, depth int, seen map[string]bool, out *[]FormField) {
	if depth > 32 {
		return
	}
	d, err := ctx.DereferenceDict(obj)
	if err != nil || d == nil {
		return
	}

	name := parent
	partial := ""
	if tObj, found := d.Find("T"); found {
		if s, err := ctx.DereferenceStringOrHexLiteral(tObj, model.V10, nil); err == nil && s != "" {
			partial = s
			if parent == "" {
				name = s
			} else {
				name = parent + "." + s
			}
		}
	}

	ft := inheritedFT
	if ftObj, found := d.Find("FT"); found {
		if n, err := ctx.DereferenceName(ftObj, model.V10, nil); err == nil {
			ft = string(n)
		}
	}
	if ft == "Btn" {
		if ffObj, found := d.Find("Ff"); found {
			// radio (bit 16) and pushbutton (bit 17) are not checkboxes
			if ff, err := ctx.DereferenceInteger(ffObj); err == nil && ff != nil && *ff&(1<<15|1<<16) != 0 {
				ft = "BtnOther"
			}
		}
	}

	var namedKids bool
	if kidsObj, found := d.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, k := range kids {
				kd, err := ctx.DereferenceDict(k)
				if err != nil || kd == nil {
					continue
				}
				if _, hasT := kd.Find("T"); hasT {
					namedKids = true
					collectField(ctx, k, name, ft, depth+1, seen, out)
				}
			}
		}
	}

	if namedKids || partial == "" || seen[name] {
		return
	}
	seen[name] = true
	*out = append(*out, FormField{Name: name, Partial: stripIndex(partial), Type: fieldType(ft)})
}

func fieldType(ft string) FieldType {
	switch ft {
	case "Tx":
		return FieldTypeText
	case "Btn":
		return FieldTypeCheckbox
	default:
		return FieldTypeOther
	}
}

// stripIndex drops an XFA style "[0]" suffix
func stripIndex(s string) string {
	if i := strings.LastIndexByte(s, '['); i > 0 && strings.HasSuffix(s, "]") {
		return s[:i]
	}
	return s
}
