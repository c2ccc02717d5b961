package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/a3tai/mcp-tax-filer/internal/taxerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidProfile(t *testing.T) {
	res, err := Parse([]byte(`{
		"filing_status": "mfj",
		"dependents": 2,
		"age": 66,
		"first_name": " Jane Q ",
		"last_name": "Filer",
		"ssn": "123456789",
		"address": {"street": "100 Main Street", "city": "Springfield", "state": "il", "zip": "62701-1234"}
	}`))
	require.NoError(t, err)

	p := res.Profile
	assert.Equal(t, taxdoc.FilingStatusMarriedFilingJointly, p.FilingStatus)
	assert.Equal(t, 2, p.Dependents)
	assert.Equal(t, 66, p.Age)
	assert.Equal(t, "Jane Q", p.FirstName)
	assert.Equal(t, "123-45-6789", p.SSN)
	assert.Equal(t, "IL", p.Address.State)
	assert.Equal(t, "Springfield, IL 62701-1234", p.Address.CityStateZIP())
	assert.Empty(t, res.Notes)
}

func TestParseDefaultsAge(t *testing.T) {
	res, err := Parse([]byte(`{"filing_status": "single"}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultAge, res.Profile.Age)
	require.Len(t, res.Notes, 1)
	assert.Contains(t, res.Notes[0], "age not provided")
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing status", `{"age": 40}`, "filing_status is required"},
		{"bad ssn", `{"filing_status": "single", "ssn": "12-345-678"}`, "ssn"},
		{"bad zip", `{"filing_status": "single", "address": {"zip": "6270"}}`, "address.zip"},
		{"negative dependents", `{"filing_status": "single", "dependents": -1}`, "dependents"},
		{"fractional age", `{"filing_status": "single", "age": 40.5}`, "age"},
		{"unknown key", `{"filing_status": "single", "income": 5}`, "income"},
		{"unknown status", `{"filing_status": "widowed"}`, `unknown filing status "widowed"`},
		{"not json", `{"filing_status": `, "not valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, taxerr.ErrInvalidFilerProfile))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseMap(t *testing.T) {
	res, err := ParseMap(map[string]any{
		"filing_status": "head_of_household",
		"age":           float64(70),
		"dependents":    float64(1),
	})
	require.NoError(t, err)
	assert.Equal(t, taxdoc.FilingStatusHeadOfHousehold, res.Profile.FilingStatus)
	assert.Equal(t, 70, res.Profile.Age)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"filing_status": "s", "age": 30}`), 0o644))

	res, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, taxdoc.FilingStatusSingle, res.Profile.FilingStatus)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSchemaIsEmbedded(t *testing.T) {
	assert.Contains(t, Schema(), `"filing_status"`)
}
