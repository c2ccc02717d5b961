package patterns

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/shopspring/decimal"
)

var (
	errEmpty        = errors.New("empty value")
	ssnShape        = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	stateCodeFormat = regexp.MustCompile(`^[A-Z]{2}$`)
)

// NormalizeCurrency strips currency symbols and separators and parses the
// remainder as an exact decimal. Parentheses denote a negative amount.
func NormalizeCurrency(raw string) (taxdoc.FieldValue, error) {
	s := strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "").Replace(raw)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	if s == "" {
		return taxdoc.FieldValue{}, errEmpty
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return taxdoc.FieldValue{}, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return taxdoc.FieldValue{Kind: taxdoc.KindAmount, Raw: raw, Amount: d}, nil
}

// NormalizeSSN reshapes a social security number to 123-45-6789
func NormalizeSSN(raw string) (taxdoc.FieldValue, error) {
	d := digits(raw)
	if len(d) != 9 {
		return taxdoc.FieldValue{}, fmt.Errorf("SSN %q must have 9 digits", raw)
	}
	if d[:3] == "000" || d[3:5] == "00" || d[5:] == "0000" {
		return taxdoc.FieldValue{}, fmt.Errorf("SSN %q has an all-zero group", raw)
	}
	return textValue(raw, d[:3]+"-"+d[3:5]+"-"+d[5:]), nil
}

// NormalizeEIN reshapes an employer identification number to 12-3456789
func NormalizeEIN(raw string) (taxdoc.FieldValue, error) {
	d := digits(raw)
	if len(d) != 9 {
		return taxdoc.FieldValue{}, fmt.Errorf("EIN %q must have 9 digits", raw)
	}
	return textValue(raw, d[:2]+"-"+d[2:]), nil
}

// NormalizeTIN accepts either an SSN or an EIN. The dash placement of the
// input selects the shape; undashed input is treated as an EIN.
func NormalizeTIN(raw string) (taxdoc.FieldValue, error) {
	if ssnShape.MatchString(strings.TrimSpace(raw)) {
		return NormalizeSSN(raw)
	}
	return NormalizeEIN(raw)
}

// NormalizeName collapses internal whitespace and trims stray punctuation
func NormalizeName(raw string) (taxdoc.FieldValue, error) {
	s := strings.Join(strings.Fields(raw), " ")
	s = strings.Trim(s, " ,.;:")
	if s == "" {
		return taxdoc.FieldValue{}, errEmpty
	}
	if !strings.ContainsFunc(s, unicode.IsLetter) {
		return taxdoc.FieldValue{}, fmt.Errorf("name %q has no letters", raw)
	}
	return textValue(raw, s), nil
}

// NormalizeStateCode upper-cases a two letter postal code
func NormalizeStateCode(raw string) (taxdoc.FieldValue, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if !stateCodeFormat.MatchString(s) {
		return taxdoc.FieldValue{}, fmt.Errorf("state code %q must be two letters", raw)
	}
	return textValue(raw, s), nil
}

func textValue(raw, text string) taxdoc.FieldValue {
	return taxdoc.FieldValue{Kind: taxdoc.KindText, Raw: raw, Text: text}
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
