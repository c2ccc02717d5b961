package patterns

import (
	"strings"

	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
)

// Building blocks for the built-in patterns. A value may sit after its
// label on the same line, alone on the next line, or in a row of values
// under a row of labels. Gaps never cross a newline.
const (
	// money requires a dollar sign or cents so box numbers are never captured
	money    = `(\$\s*\(?\d[\d,]*(?:\.\d{2})?\)?|\(?\d[\d,]*\.\d{2}\)?)`
	bare     = `(\d[\d,]*(?:\.\d{1,2})?)`
	gap      = `[^\d$\n]{0,40}`
	lineGap  = `[^\d\n$]{0,40}?`
	column   = `\$?[ \t]*\(?\d[\d,]*(?:\.\d{1,2})?\)?`
	ssnValue = `(\d{3}-?\d{2}-?\d{4})`
	einValue = `(\d{2}-?\d{7})`
	tinValue = `(\d{3}-\d{2}-\d{4}|\d{2}-?\d{7})`
	apos     = `(?:'|’)?`
	nextLine = `[^\n]*\n\s*([^\n]+)`
)

// labelledPatterns finds the value printed beside or below label:
//
//	same line:  "Wages ... $75,000.00"
//	next line:  the label ends its line and the next line holds one value
//	left/right: two labels share a line and the next line holds two values
//	colon:      "Wages: 75000"
func labelledPatterns(label string) []string {
	return []string{
		`(?i)` + label + gap + money,
		`(?im)` + label + `[ \t:]*\n[ \t]*` + money + `[ \t]*$`,
		`(?im)^[ \t]*(?:\d+[ \t]+)?` + label + `[ \t]+[^\n]*?[A-Za-z][^\n]*\n[ \t]*(` + column + `)[ \t]+` + column + `[ \t]*$`,
		`(?im)^[^\n]*[A-Za-z][^\n]*?[ \t]+(?:\d+[ \t]+)?` + label + `[ \t]*\n[ \t]*` + column + `[ \t]+(` + column + `)[ \t]*$`,
		`(?im)` + label + `[ \t]*:[ \t]*\$?[ \t]*` + bare,
	}
}

// amountPatterns builds the standard recognition for a boxed amount: the
// labelled layouts, then "Box N" value, then a bare number ending the
// label's line.
func amountPatterns(box, label string) []string {
	return append(labelledPatterns(label),
		`(?i)\bbox\s*`+box+`\b`+lineGap+`[:\s]\$?\s*`+bare,
		`(?im)\b`+box+`\s+`+label+lineGap+`\$?[ \t]*`+bare+`[ \t]*$`,
	)
}

// DefaultAnchors returns the document type anchors in priority order.
// Form title tokens come first; descriptive titles are the fallback.
func DefaultAnchors() []AnchorRule {
	return []AnchorRule{
		{DocumentType: taxdoc.DocumentTypeW2, Pattern: `(?i)\bForm\s+W-?2\b`, Description: "W-2 form title"},
		{DocumentType: taxdoc.DocumentType1099INT, Pattern: `(?i)\bForm\s+1099-?INT\b`, Description: "1099-INT form title"},
		{DocumentType: taxdoc.DocumentType1099NEC, Pattern: `(?i)\bForm\s+1099-?NEC\b`, Description: "1099-NEC form title"},
		{DocumentType: taxdoc.DocumentTypeW2, Pattern: `(?i)Wage\s+and\s+Tax\s+Statement`, Description: "W-2 descriptive title"},
		{DocumentType: taxdoc.DocumentType1099NEC, Pattern: `(?i)Nonemployee\s+Compensation`, Description: "1099-NEC descriptive title"},
		{DocumentType: taxdoc.DocumentType1099INT, Pattern: `(?i)Interest\s+Income`, Description: "1099-INT descriptive title"},
	}
}

// DefaultRules returns the built-in field tables
func DefaultRules() []DocumentRules {
	return []DocumentRules{
		{DocumentType: taxdoc.DocumentTypeW2, Fields: w2Rules()},
		{DocumentType: taxdoc.DocumentType1099INT, Fields: interestRules()},
		{DocumentType: taxdoc.DocumentType1099NEC, Fields: necRules()},
	}
}

func w2Rules() []FieldRule {
	return []FieldRule{
		{
			Field:       taxdoc.FieldWages,
			Required:    true,
			Patterns:    amountPatterns("1", `Wages,?\s*tips,?\s*(?:and\s+)?other\s+comp(?:ensation)?\.?`),
			Normalize:   NormalizeCurrency,
			Description: "Box 1 wages, tips, other compensation",
		},
		{
			Field:       taxdoc.FieldFederalIncomeTaxWithheld,
			Required:    true,
			Patterns:    amountPatterns("2", `Federal\s+income\s+tax\s+withheld`),
			Normalize:   NormalizeCurrency,
			Description: "Box 2 federal income tax withheld",
		},
		{
			Field: taxdoc.FieldEmployerEIN,
			// EIN is required; the bare "EIN" token is the fallback
			Required: true,
			Patterns: []string{
				`(?i)Employer` + apos + `s?\s+identification\s+number(?:\s*\(EIN\))?[^\d]{0,20}` + einValue + `\b`,
				`(?i)\bEIN\b[^\d]{0,20}` + einValue + `\b`,
			},
			Normalize:   NormalizeEIN,
			Description: "Box b employer identification number",
		},
		{
			Field:    taxdoc.FieldEmployeeSSN,
			Required: true,
			Patterns: []string{
				`(?i)Employee` + apos + `s?\s+social\s+security\s+number[^\d]{0,20}` + ssnValue + `\b`,
				`(?i)\bSSN\b[^\d]{0,20}` + ssnValue + `\b`,
				`\b(\d{3}-\d{2}-\d{4})\b`,
			},
			Normalize:   NormalizeSSN,
			Description: "Box a employee's social security number",
		},
		{
			Field: taxdoc.FieldEmployerName,
			Patterns: []string{
				`(?i)Employer` + apos + `s?\s+name,?\s*address,?\s*and\s+ZIP\s+code` + nextLine,
				`(?i)Employer` + apos + `s?\s+name[ \t]*:[ \t]*([^\n]+)`,
			},
			Normalize:   NormalizeName,
			Description: "Box c employer's name",
		},
		{
			Field: taxdoc.FieldEmployeeName,
			Patterns: []string{
				`(?i)Employee` + apos + `s?\s+(?:first\s+)?name(?:\s+and\s+initial)?(?:,?\s*address,?\s*and\s+ZIP\s+code)?` + nextLine,
				`(?i)Employee` + apos + `s?\s+name[ \t]*:[ \t]*([^\n]+)`,
			},
			Normalize:   NormalizeName,
			Description: "Box e employee's name",
		},
		{
			Field:       taxdoc.FieldSocialSecurityWages,
			Patterns:    amountPatterns("3", `Social\s+security\s+wages`),
			Normalize:   NormalizeCurrency,
			Description: "Box 3 social security wages",
		},
		{
			Field:       taxdoc.FieldSocialSecurityTax,
			Patterns:    amountPatterns("4", `Social\s+security\s+tax\s+withheld`),
			Normalize:   NormalizeCurrency,
			Description: "Box 4 social security tax withheld",
		},
		{
			Field:       taxdoc.FieldMedicareWages,
			Patterns:    amountPatterns("5", `Medicare\s+wages\s+and\s+tips`),
			Normalize:   NormalizeCurrency,
			Description: "Box 5 medicare wages and tips",
		},
		{
			Field:       taxdoc.FieldMedicareTax,
			Patterns:    amountPatterns("6", `Medicare\s+tax\s+withheld`),
			Normalize:   NormalizeCurrency,
			Description: "Box 6 medicare tax withheld",
		},
		{
			Field: taxdoc.FieldState,
			Patterns: []string{
				`(?m)\b15\s+State\b[^\n]*\n\s*([A-Z]{2})\b`,
				`(?i)\bState[ \t]*:[ \t]*([A-Za-z]{2})\b`,
			},
			Normalize:   NormalizeStateCode,
			Description: "Box 15 state",
		},
		{
			Field:       taxdoc.FieldStateWages,
			Patterns:    amountPatterns("16", `State\s+wages,?\s*tips,?\s*etc\.?`),
			Normalize:   NormalizeCurrency,
			Description: "Box 16 state wages",
		},
		{
			Field:       taxdoc.FieldStateIncomeTax,
			Patterns:    amountPatterns("17", `State\s+income\s+tax`),
			Normalize:   NormalizeCurrency,
			Description: "Box 17 state income tax",
		},
	}
}

// payerRecipientRules are shared by both 1099 variants
func payerRecipientRules() []FieldRule {
	return []FieldRule{
		{
			Field:    taxdoc.FieldPayerTIN,
			Required: true,
			Patterns: []string{
				`(?i)PAYER` + apos + `S\s+(?:TIN|federal\s+identification\s+number)[^\d]{0,20}` + tinValue + `\b`,
				`(?i)Payer\s+TIN[ \t]*:?[^\d]{0,10}` + tinValue + `\b`,
			},
			Normalize:   NormalizeTIN,
			Description: "Payer's TIN",
		},
		{
			Field:    taxdoc.FieldRecipientTIN,
			Required: true,
			Patterns: []string{
				`(?i)RECIPIENT` + apos + `S\s+(?:TIN|identification\s+number)[^\d]{0,20}` + tinValue + `\b`,
				`(?i)Recipient\s+TIN[ \t]*:?[^\d]{0,10}` + tinValue + `\b`,
			},
			Normalize:   NormalizeTIN,
			Description: "Recipient's TIN",
		},
		{
			Field: taxdoc.FieldPayerName,
			Patterns: []string{
				`(?i)PAYER` + apos + `S\s+name` + nextLine,
				`(?i)Payer[ \t]*:[ \t]*([^\n]+)`,
			},
			Normalize:   NormalizeName,
			Description: "Payer's name",
		},
		{
			Field: taxdoc.FieldRecipientName,
			Patterns: []string{
				`(?i)RECIPIENT` + apos + `S\s+name` + nextLine,
				`(?i)Recipient[ \t]*:[ \t]*([^\n]+)`,
			},
			Normalize:   NormalizeName,
			Description: "Recipient's name",
		},
		{
			Field:       taxdoc.FieldFederalIncomeTaxWithheld,
			Patterns:    amountPatterns("4", `Federal\s+income\s+tax\s+withheld`),
			Normalize:   NormalizeCurrency,
			Description: "Box 4 federal income tax withheld",
		},
	}
}

func interestRules() []FieldRule {
	return append([]FieldRule{
		{
			Field:    taxdoc.FieldInterestIncome,
			Required: true,
			// numbered label first; the bare label also appears in the form title
			Patterns: append(
				labelledPatterns(`\b1\s+Interest\s+income`)[:2],
				amountPatterns("1", `Interest\s+income`)...,
			),
			Normalize:   NormalizeCurrency,
			Description: "Box 1 interest income",
		},
	}, payerRecipientRules()...)
}

func necRules() []FieldRule {
	return append([]FieldRule{
		{
			Field:    taxdoc.FieldNonemployeeCompensation,
			Required: true,
			Patterns: append(
				labelledPatterns(`\b1\s+Nonemployee\s+compensation`)[:2],
				amountPatterns("1", `Nonemployee\s+compensation`)...,
			),
			Normalize:   NormalizeCurrency,
			Description: "Box 1 nonemployee compensation",
		},
	}, payerRecipientRules()...)
}

// Describe returns a printable summary of the built-in tables
func Describe() string {
	var b strings.Builder
	for _, doc := range DefaultRules() {
		b.WriteString(string(doc.DocumentType))
		b.WriteString(":\n")
		for _, f := range doc.Fields {
			b.WriteString("  ")
			b.WriteString(string(f.Field))
			if f.Required {
				b.WriteString(" (required)")
			}
			b.WriteString(" - ")
			b.WriteString(f.Description)
			b.WriteString("\n")
		}
	}
	return b.String()
}
