// Package profile validates filer profile documents before they reach the
// tax engine. Format checks (SSN, ZIP, state) live in an embedded JSON
// Schema; filing status aliases and defaults are applied afterwards.
package profile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/a3tai/mcp-tax-filer/internal/taxerr"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

// DefaultAge is used when the profile omits the filer's age
const DefaultAge = 0

// Result is a validated profile and the notes produced while defaulting
type Result struct {
	Profile taxdoc.FilerProfile `json:"profile"`
	Notes   []string            `json:"notes,omitempty"`
}

type document struct {
	FilingStatus string         `json:"filing_status"`
	Dependents   int            `json:"dependents"`
	Age          *int           `json:"age"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	SSN          string         `json:"ssn"`
	Address      taxdoc.Address `json:"address"`
}

// Schema returns the embedded JSON Schema
func Schema() string {
	return string(schemaJSON)
}

// Parse validates a profile document and converts it to a FilerProfile
func Parse(data []byte) (*Result, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, taxerr.Wrap(taxerr.ErrorTypeInvalidFilerProfile, "profile is not valid JSON", err)
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" || field == "(root)" {
				field = "profile"
			}
			violations = append(violations, fmt.Sprintf("%s: %s", field, desc.Description()))
		}
		sort.Strings(violations)
		return nil, taxerr.New(taxerr.ErrorTypeInvalidFilerProfile, "profile failed schema validation").
			WithViolations(violations...)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, taxerr.Wrap(taxerr.ErrorTypeInvalidFilerProfile, "failed to decode profile", err)
	}

	status, err := taxdoc.ParseFilingStatus(doc.FilingStatus)
	if err != nil {
		return nil, taxerr.Wrap(taxerr.ErrorTypeInvalidFilerProfile, "invalid filer profile", err)
	}

	out := &Result{
		Profile: taxdoc.FilerProfile{
			FilingStatus: status,
			Dependents:   doc.Dependents,
			Age:          DefaultAge,
			FirstName:    strings.TrimSpace(doc.FirstName),
			LastName:     strings.TrimSpace(doc.LastName),
			SSN:          formatSSN(doc.SSN),
			Address: taxdoc.Address{
				Street: strings.TrimSpace(doc.Address.Street),
				City:   strings.TrimSpace(doc.Address.City),
				State:  strings.ToUpper(doc.Address.State),
				ZIP:    doc.Address.ZIP,
			},
		},
	}
	if doc.Age != nil {
		out.Profile.Age = *doc.Age
	} else {
		out.Notes = append(out.Notes,
			fmt.Sprintf("age not provided; defaulted to %d, so no age 65+ deduction was applied", DefaultAge))
	}
	return out, nil
}

// ParseMap validates a profile given as decoded JSON, as tool arguments are
func ParseMap(m map[string]any) (*Result, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, taxerr.Wrap(taxerr.ErrorTypeInvalidFilerProfile, "failed to encode profile", err)
	}
	return Parse(data)
}

// Load reads and validates a profile file
func Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	return Parse(data)
}

func formatSSN(s string) string {
	digits := strings.ReplaceAll(s, "-", "")
	if len(digits) != 9 {
		return s
	}
	return digits[:3] + "-" + digits[3:5] + "-" + digits[5:]
}
