package descriptions

import "sort"

// Tool names
const (
	ToolExtractDocument = "tax_extract_document"
	ToolListDocuments   = "tax_list_documents"
	ToolCompute         = "tax_compute"
	ToolFillForm        = "tax_fill_form"
	ToolTemplateFields  = "tax_template_fields"
	ToolServerInfo      = "tax_server_info"
)

// Tool descriptions with examples and typical workflows
const (
	ExtractDocumentDescription = `Extract structured fields from a W-2, 1099-INT or 1099-NEC statement PDF.

**When to use:** Check what the filer's statements contain before computing a return, or diagnose a statement that was skipped.

**What you get:** The detected document type, each recognized box as a normalized value (amounts to two decimals, SSNs and EINs formatted), the required fields that were not found, a confidence score and any warnings.

**Examples:**
• "Extract w2-acme.pdf" returns wages, federal withholding, employer EIN and name
• "Extract statement.pdf as a 1099-NEC" checks the declared type against the text and warns on a mismatch

**Best practices:** A confidence below the configured minimum means required boxes were missing; the return still treats them as zero, so ask the filer to confirm those amounts.`

	ListDocumentsDescription = `List statement PDFs in the document directory.

**When to use:** Discover which W-2 and 1099 files are available before extracting or computing.

**Examples:**
• "What statements do I have?" lists every PDF with its size
• "Find the 1099s" filters names containing 1099

**Best practices:** Pass the listed paths straight to tax_compute.`

	ComputeDescription = `Compute a federal income tax return from statement PDFs and a filer profile.

**When to use:** Produce the full return: income totals, adjusted gross income, standard deduction, taxable income, bracket-by-bracket liability, withholding, and the refund or amount owed.

**Profile:** filing_status is required (single, married_filing_jointly, head_of_household). Optional: age, dependents, first_name, last_name, ssn, address {street, city, state, zip}. A missing age defaults to 0 and is reported in the notes.

**Examples:**
• "Compute my 2024 return from w2-acme.pdf and 1099-int-bank.pdf, filing single, age 40"
• "Compute and fill form1040-blank.pdf into out/form1040.pdf" also renders the form
• "Compute and export a worksheet to out/return.xlsx" writes the bracket breakdown as a spreadsheet

**Document types:** document_types is an optional list parallel to documents. A declared type takes precedence over detection and a conflicting form title is reported as a warning. An empty entry lets the server detect the type.

**Best practices:** Statements that cannot be read are listed separately and excluded from the computed totals. No form or worksheet is written unless every statement was extracted; check the errors and warnings before relying on the result.`

	FillFormDescription = `Fill a blank Form 1040 PDF with a computed return.

**When to use:** After tax_compute, or in one step with the same arguments, to produce the printable form.

**How it works:** Values go into named AcroForm fields when the blank form has them and into fixed page positions otherwise. Refund lines and the amount-owed line are chosen by the sign of the result. The blank form is never modified.

**Examples:**
• "Fill form1040-blank.pdf for my return and save it as out/form1040-2024.pdf"

**Best practices:** Run tax_template_fields first on an unfamiliar blank to see whether it has named fields. Pass document_types alongside documents when a statement's type is known. The form is refused when any statement cannot be extracted.`

	TemplateFieldsDescription = `Inspect a blank form PDF: page count and its named form fields.

**When to use:** Check whether a base form has fillable fields before filling it, or debug values landing in the wrong place.

**Examples:**
• "What fields does f1040.pdf have?" lists each qualified field name and its type`

	ServerInfoDescription = `Get server status, supported documents, tax year, available tools and usage guidance.

**When to use:** At the start of a session to learn what the server can do and where it looks for files.`
)

// Info describes a tool for the server info listing
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

var tools = map[string]Info{
	ToolExtractDocument: {
		Name:        ToolExtractDocument,
		Description: ExtractDocumentDescription,
		Usage:       "Extract fields from one statement PDF",
		Parameters:  "path (required), document_type (optional: W2, 1099-INT, 1099-NEC)",
	},
	ToolListDocuments: {
		Name:        ToolListDocuments,
		Description: ListDocumentsDescription,
		Usage:       "List statement PDFs in the document directory",
		Parameters:  "query (optional substring)",
	},
	ToolCompute: {
		Name:        ToolCompute,
		Description: ComputeDescription,
		Usage:       "Compute a return from statements and a profile",
		Parameters:  "documents (required array), profile (object) or profile_path, template, output, worksheet (optional)",
	},
	ToolFillForm: {
		Name:        ToolFillForm,
		Description: FillFormDescription,
		Usage:       "Compute a return and fill the blank Form 1040",
		Parameters:  "documents (required array), profile (object) or profile_path, output (required), template (optional if configured)",
	},
	ToolTemplateFields: {
		Name:        ToolTemplateFields,
		Description: TemplateFieldsDescription,
		Usage:       "List the named fields of a blank form",
		Parameters:  "path (optional if a default template is configured)",
	},
	ToolServerInfo: {
		Name:        ToolServerInfo,
		Description: ServerInfoDescription,
		Usage:       "Describe the server and its tools",
		Parameters:  "none",
	},
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if info, exists := tools[toolName]; exists {
		return info.Description
	}
	return "Tool description not available"
}

// GetToolInfo returns the listing entry for a tool
func GetToolInfo(toolName string) (Info, bool) {
	info, ok := tools[toolName]
	return info, ok
}

// GetAllToolNames returns every tool name in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
