package patterns

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
)

// Normalizer converts a captured string into its canonical value
type Normalizer func(raw string) (taxdoc.FieldValue, error)

// AnchorRule identifies a document type from a discriminating token
type AnchorRule struct {
	DocumentType taxdoc.DocumentType
	Pattern      string
	Description  string
}

// FieldRule describes how one field is recognized. Patterns are tried in
// order; each must have exactly one capture group holding the value.
type FieldRule struct {
	Field       taxdoc.FieldName
	Required    bool
	Patterns    []string
	Normalize   Normalizer
	Description string
}

// DocumentRules is the ordered field table for one document type
type DocumentRules struct {
	DocumentType taxdoc.DocumentType
	Fields       []FieldRule
}

// CompiledField is a FieldRule with its patterns compiled
type CompiledField struct {
	Field     taxdoc.FieldName
	Required  bool
	Patterns  []*regexp.Regexp
	Normalize Normalizer
}

type compiledAnchor struct {
	documentType taxdoc.DocumentType
	re           *regexp.Regexp
}

// Registry holds the compiled anchor and field tables. It is read-only
// after construction and safe for concurrent use.
type Registry struct {
	anchors []compiledAnchor
	fields  map[taxdoc.DocumentType][]CompiledField
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry built from the built-in tables
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := New(DefaultAnchors(), DefaultRules())
		if err != nil {
			panic(fmt.Sprintf("patterns: invalid built-in rules: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// New compiles and validates the given tables
func New(anchors []AnchorRule, docs []DocumentRules) (*Registry, error) {
	r := &Registry{
		fields: make(map[taxdoc.DocumentType][]CompiledField, len(docs)),
	}

	for _, doc := range docs {
		if _, dup := r.fields[doc.DocumentType]; dup {
			return nil, fmt.Errorf("duplicate rules for document type %s", doc.DocumentType)
		}
		compiled, err := compileDocument(doc)
		if err != nil {
			return nil, err
		}
		r.fields[doc.DocumentType] = compiled
	}

	for i, a := range anchors {
		if _, ok := r.fields[a.DocumentType]; !ok {
			return nil, fmt.Errorf("anchor %d references document type %s with no field rules", i, a.DocumentType)
		}
		re, err := regexp.Compile(a.Pattern)
		if err != nil {
			return nil, fmt.Errorf("anchor %d (%s): %w", i, a.DocumentType, err)
		}
		r.anchors = append(r.anchors, compiledAnchor{documentType: a.DocumentType, re: re})
	}

	return r, nil
}

func compileDocument(doc DocumentRules) ([]CompiledField, error) {
	seen := make(map[taxdoc.FieldName]bool, len(doc.Fields))
	required := 0
	out := make([]CompiledField, 0, len(doc.Fields))

	for _, f := range doc.Fields {
		if seen[f.Field] {
			return nil, fmt.Errorf("%s: duplicate field %s", doc.DocumentType, f.Field)
		}
		seen[f.Field] = true

		if f.Normalize == nil {
			return nil, fmt.Errorf("%s: field %s has no normalizer", doc.DocumentType, f.Field)
		}
		if len(f.Patterns) == 0 {
			return nil, fmt.Errorf("%s: field %s has no patterns", doc.DocumentType, f.Field)
		}

		cf := CompiledField{Field: f.Field, Required: f.Required, Normalize: f.Normalize}
		for i, p := range f.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("%s: field %s pattern %d: %w", doc.DocumentType, f.Field, i, err)
			}
			if re.NumSubexp() != 1 {
				return nil, fmt.Errorf("%s: field %s pattern %d must have one capture group, has %d",
					doc.DocumentType, f.Field, i, re.NumSubexp())
			}
			cf.Patterns = append(cf.Patterns, re)
		}
		if f.Required {
			required++
		}
		out = append(out, cf)
	}

	if required == 0 {
		return nil, fmt.Errorf("%s: at least one required field is needed", doc.DocumentType)
	}
	return out, nil
}

// Detect returns the type of the first anchor that matches, in table order
func (r *Registry) Detect(text string) (taxdoc.DocumentType, bool) {
	for _, a := range r.anchors {
		if a.re.MatchString(text) {
			return a.documentType, true
		}
	}
	return "", false
}

// Fields returns the ordered field table for a document type
func (r *Registry) Fields(dt taxdoc.DocumentType) ([]CompiledField, bool) {
	f, ok := r.fields[dt]
	return f, ok
}

// Required lists the required fields of a document type in table order
func (r *Registry) Required(dt taxdoc.DocumentType) []taxdoc.FieldName {
	var out []taxdoc.FieldName
	for _, f := range r.fields[dt] {
		if f.Required {
			out = append(out, f.Field)
		}
	}
	return out
}

// Apply tries each pattern in order. A match whose capture fails to
// normalize falls through to the next pattern.
func (f CompiledField) Apply(text string) (taxdoc.FieldValue, bool) {
	for i, re := range f.Patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v, err := f.Normalize(m[1])
			if err != nil {
				continue
			}
			v.Rule = i
			return v, true
		}
	}
	return taxdoc.FieldValue{}, false
}
