package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"$75,000.00", "75000", false},
		{"$ 1,234.56", "1234.56", false},
		{"12000", "12000", false},
		{"(1,500.00)", "-1500", false},
		{"$(250.10)", "-250.1", false},
		{"-42.00", "-42", false},
		{"$", "", true},
		{"12.3.4", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := NormalizeCurrency(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Amount.String())
			assert.Equal(t, tt.raw, v.Raw)
		})
	}
}

func TestNormalizeIdentifiers(t *testing.T) {
	v, err := NormalizeSSN("123456789")
	require.NoError(t, err)
	assert.Equal(t, "123-45-6789", v.Text)

	v, err = NormalizeSSN("123 45 6789")
	require.NoError(t, err)
	assert.Equal(t, "123-45-6789", v.Text)

	_, err = NormalizeSSN("12-345678")
	assert.Error(t, err)

	_, err = NormalizeSSN("123-00-6789")
	assert.Error(t, err)

	v, err = NormalizeEIN("123456789")
	require.NoError(t, err)
	assert.Equal(t, "12-3456789", v.Text)

	v, err = NormalizeTIN("987-65-4321")
	require.NoError(t, err)
	assert.Equal(t, "987-65-4321", v.Text)

	v, err = NormalizeTIN("987654321")
	require.NoError(t, err)
	assert.Equal(t, "98-7654321", v.Text)
}

func TestNormalizeName(t *testing.T) {
	v, err := NormalizeName("  Acme \t Widgets,  LLC. ")
	require.NoError(t, err)
	assert.Equal(t, "Acme Widgets, LLC", v.Text)

	_, err = NormalizeName("   ")
	assert.Error(t, err)

	_, err = NormalizeName("12-3456789")
	assert.Error(t, err)
}

func TestNormalizeStateCode(t *testing.T) {
	v, err := NormalizeStateCode(" il ")
	require.NoError(t, err)
	assert.Equal(t, "IL", v.Text)

	_, err = NormalizeStateCode("Illinois")
	assert.Error(t, err)
}
