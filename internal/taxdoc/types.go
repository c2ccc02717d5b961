package taxdoc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/a3tai/mcp-tax-filer/internal/taxerr"
	"github.com/shopspring/decimal"
)

// DocumentType identifies the kind of tax statement
type DocumentType string

const (
	DocumentTypeW2      DocumentType = "W2"
	DocumentType1099INT DocumentType = "1099-INT"
	DocumentType1099NEC DocumentType = "1099-NEC"
)

// DocumentTypes lists the supported document types in detection priority order
var DocumentTypes = []DocumentType{DocumentTypeW2, DocumentType1099INT, DocumentType1099NEC}

// Description returns a human readable name for the document type
func (dt DocumentType) Description() string {
	switch dt {
	case DocumentTypeW2:
		return "Wage and Tax Statement"
	case DocumentType1099INT:
		return "Interest Income"
	case DocumentType1099NEC:
		return "Nonemployee Compensation"
	default:
		return "Unknown"
	}
}

// ParseDocumentType accepts the canonical names plus common aliases
func ParseDocumentType(s string) (DocumentType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)

	switch key {
	case "w2", "wagestatement", "formw2":
		return DocumentTypeW2, nil
	case "1099int", "interest", "intereststatement", "form1099int":
		return DocumentType1099INT, nil
	case "1099nec", "nec", "nonemployeecompensation", "nonemployeecompensationstatement", "form1099nec":
		return DocumentType1099NEC, nil
	}
	return "", taxerr.NewWithContext(taxerr.ErrorTypeUnrecognizedDocumentType, "unknown document type", s)
}

// FieldName is the logical name of an extracted field
type FieldName string

const (
	FieldWages                    FieldName = "wages"
	FieldFederalIncomeTaxWithheld FieldName = "federal_income_tax_withheld"
	FieldSocialSecurityWages      FieldName = "social_security_wages"
	FieldSocialSecurityTax        FieldName = "social_security_tax_withheld"
	FieldMedicareWages            FieldName = "medicare_wages"
	FieldMedicareTax              FieldName = "medicare_tax_withheld"
	FieldEmployerEIN              FieldName = "employer_ein"
	FieldEmployerName             FieldName = "employer_name"
	FieldEmployeeSSN              FieldName = "employee_ssn"
	FieldEmployeeName             FieldName = "employee_name"
	FieldState                    FieldName = "state"
	FieldStateWages               FieldName = "state_wages"
	FieldStateIncomeTax           FieldName = "state_income_tax"
	FieldInterestIncome           FieldName = "interest_income"
	FieldNonemployeeCompensation  FieldName = "nonemployee_compensation"
	FieldPayerTIN                 FieldName = "payer_tin"
	FieldPayerName                FieldName = "payer_name"
	FieldRecipientTIN             FieldName = "recipient_tin"
	FieldRecipientName            FieldName = "recipient_name"
)

// ValueKind distinguishes monetary values from identifiers and names
type ValueKind string

const (
	KindAmount ValueKind = "amount"
	KindText   ValueKind = "text"
)

// FieldValue is a normalized extracted value
type FieldValue struct {
	Kind   ValueKind       `json:"kind"`
	Raw    string          `json:"raw"`
	Text   string          `json:"text,omitempty"`
	Amount decimal.Decimal `json:"amount"`
	Rule   int             `json:"rule"`
}

// String returns the canonical form of the value
func (v FieldValue) String() string {
	if v.Kind == KindAmount {
		return v.Amount.StringFixed(2)
	}
	return v.Text
}

// ExtractedDocument is the structured record produced for one input document.
// It is not modified after extraction.
type ExtractedDocument struct {
	DocumentType  DocumentType                    `json:"document_type"`
	Source        string                          `json:"source"`
	Fields        map[FieldName]FieldValue        `json:"fields"`
	Missing       []FieldName                     `json:"missing,omitempty"`
	Confidence    float64                         `json:"confidence"`
	LowConfidence bool                            `json:"low_confidence"`
	Warnings      []taxerr.FieldExtractionWarning `json:"warnings,omitempty"`
}

// Amount returns the decimal value of a field, or zero when absent
func (d *ExtractedDocument) Amount(name FieldName) decimal.Decimal {
	if v, ok := d.Fields[name]; ok && v.Kind == KindAmount {
		return v.Amount
	}
	return decimal.Zero
}

// Text returns the text value of a field, or "" when absent
func (d *ExtractedDocument) Text(name FieldName) string {
	if v, ok := d.Fields[name]; ok {
		return v.String()
	}
	return ""
}

// Has reports whether the field was extracted
func (d *ExtractedDocument) Has(name FieldName) bool {
	_, ok := d.Fields[name]
	return ok
}

// IsMissing reports whether the field was required and not found
func (d *ExtractedDocument) IsMissing(name FieldName) bool {
	for _, m := range d.Missing {
		if m == name {
			return true
		}
	}
	return false
}

// WarningMessages returns the warnings as display strings
func (d *ExtractedDocument) WarningMessages() []string {
	out := make([]string, 0, len(d.Warnings))
	for _, w := range d.Warnings {
		out = append(out, w.String())
	}
	return out
}

// IncomeSummary is the merged view over all extracted documents
type IncomeSummary struct {
	Wages                    decimal.Decimal `json:"wages"`
	InterestIncome           decimal.Decimal `json:"interest_income"`
	NonemployeeCompensation  decimal.Decimal `json:"nonemployee_compensation"`
	FederalIncomeTaxWithheld decimal.Decimal `json:"federal_income_tax_withheld"`
	WageWithholding          decimal.Decimal `json:"wage_withholding"`
	DocumentCount            int             `json:"document_count"`
	Warnings                 []string        `json:"warnings,omitempty"`
}

// TotalIncome is always derived from the income components
func (s IncomeSummary) TotalIncome() decimal.Decimal {
	return s.Wages.Add(s.InterestIncome).Add(s.NonemployeeCompensation)
}

// Equal compares two summaries by value
func (s IncomeSummary) Equal(o IncomeSummary) bool {
	if !s.Wages.Equal(o.Wages) || !s.InterestIncome.Equal(o.InterestIncome) ||
		!s.NonemployeeCompensation.Equal(o.NonemployeeCompensation) ||
		!s.FederalIncomeTaxWithheld.Equal(o.FederalIncomeTaxWithheld) ||
		!s.WageWithholding.Equal(o.WageWithholding) {
		return false
	}
	if s.DocumentCount != o.DocumentCount || len(s.Warnings) != len(o.Warnings) {
		return false
	}
	for i := range s.Warnings {
		if s.Warnings[i] != o.Warnings[i] {
			return false
		}
	}
	return true
}

// OtherWithholding is the withholding reported on 1099 statements
func (s IncomeSummary) OtherWithholding() decimal.Decimal {
	return s.FederalIncomeTaxWithheld.Sub(s.WageWithholding)
}

// MarshalJSON includes the derived total
func (s IncomeSummary) MarshalJSON() ([]byte, error) {
	type plain IncomeSummary
	return json.Marshal(struct {
		plain
		TotalIncome decimal.Decimal `json:"total_income"`
	}{plain(s), s.TotalIncome()})
}

// FilingStatus is the filer's federal filing status
type FilingStatus string

const (
	FilingStatusSingle               FilingStatus = "single"
	FilingStatusMarriedFilingJointly FilingStatus = "married_filing_jointly"
	FilingStatusHeadOfHousehold      FilingStatus = "head_of_household"
)

// FilingStatuses lists the supported statuses
var FilingStatuses = []FilingStatus{
	FilingStatusSingle, FilingStatusMarriedFilingJointly, FilingStatusHeadOfHousehold,
}

// ParseFilingStatus accepts canonical names and short forms
func ParseFilingStatus(s string) (FilingStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "s":
		return FilingStatusSingle, nil
	case "married_filing_jointly", "married", "mfj", "married filing jointly":
		return FilingStatusMarriedFilingJointly, nil
	case "head_of_household", "hoh", "head of household":
		return FilingStatusHeadOfHousehold, nil
	}
	return "", fmt.Errorf("unknown filing status %q", s)
}

// Address is the filer's home address
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	ZIP    string `json:"zip,omitempty"`
}

// CityStateZIP formats the second address line as printed on the form
func (a Address) CityStateZIP() string {
	parts := make([]string, 0, 3)
	if a.City != "" {
		parts = append(parts, a.City+",")
	}
	if a.State != "" {
		parts = append(parts, a.State)
	}
	if a.ZIP != "" {
		parts = append(parts, a.ZIP)
	}
	return strings.TrimSuffix(strings.Join(parts, " "), ",")
}

// FilerProfile describes the filer. The core never mutates it.
type FilerProfile struct {
	FilingStatus FilingStatus `json:"filing_status" validate:"required,oneof=single married_filing_jointly head_of_household"`
	Dependents   int          `json:"dependents" validate:"gte=0"`
	Age          int          `json:"age" validate:"gte=0"`
	FirstName    string       `json:"first_name,omitempty"`
	LastName     string       `json:"last_name,omitempty"`
	SSN          string       `json:"ssn,omitempty"`
	Address      Address      `json:"address"`
}

// FullName joins first and last name
func (p FilerProfile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// BracketLine records the tax computed within one bracket
type BracketLine struct {
	Lower     decimal.Decimal  `json:"lower"`
	Upper     *decimal.Decimal `json:"upper,omitempty"`
	Rate      decimal.Decimal  `json:"rate"`
	TaxedPart decimal.Decimal  `json:"taxed_amount"`
	Tax       decimal.Decimal  `json:"tax"`
}

// TaxResult is the outcome of one computation
type TaxResult struct {
	FilingStatus             FilingStatus    `json:"filing_status"`
	AdjustedGrossIncome      decimal.Decimal `json:"adjusted_gross_income"`
	StandardDeduction        decimal.Decimal `json:"standard_deduction"`
	TaxableIncome            decimal.Decimal `json:"taxable_income"`
	TaxLiability             decimal.Decimal `json:"tax_liability"`
	FederalIncomeTaxWithheld decimal.Decimal `json:"federal_income_tax_withheld"`
	RefundOrAmountOwed       decimal.Decimal `json:"refund_or_amount_owed"`
	EffectiveRate            decimal.Decimal `json:"effective_rate"`
	MarginalRate             decimal.Decimal `json:"marginal_rate"`
	Brackets                 []BracketLine   `json:"brackets"`
	Notes                    []string        `json:"notes,omitempty"`
}

// IsRefund reports whether withholding exceeds liability
func (r *TaxResult) IsRefund() bool {
	return r.RefundOrAmountOwed.IsPositive()
}

// Refund returns the overpayment, or zero
func (r *TaxResult) Refund() decimal.Decimal {
	if r.RefundOrAmountOwed.IsPositive() {
		return r.RefundOrAmountOwed
	}
	return decimal.Zero
}

// AmountOwed returns the balance due as a positive number, or zero
func (r *TaxResult) AmountOwed() decimal.Decimal {
	if r.RefundOrAmountOwed.IsNegative() {
		return r.RefundOrAmountOwed.Neg()
	}
	return decimal.Zero
}
