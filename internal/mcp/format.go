package mcp

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-tax-filer/internal/descriptions"
	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
)

const maxListedFiles = 10

func formatDocumentList(root, query string, files []DocumentFile) string {
	if len(files) == 0 {
		text := fmt.Sprintf("No statement PDFs found in directory: %s", root)
		if query != "" {
			text += fmt.Sprintf(" (searched for: %s)", query)
		}
		return text
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d statement PDF(s) in directory: %s\n", len(files), root)
	if query != "" {
		fmt.Fprintf(&b, "Search query: %s\n", query)
	}
	b.WriteString("\n")
	for i, f := range files {
		fmt.Fprintf(&b, "%d. %s (%d bytes)\n", i+1, f.Path, f.Size)
	}
	return b.String()
}

func (s *Server) formatServerInfo(files []DocumentFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	fmt.Fprintf(&b, "Tax year: %d\n", s.service.Engine().TaxYear())
	fmt.Fprintf(&b, "Document directory: %s\n", s.documents.Root())
	fmt.Fprintf(&b, "Output directory: %s\n", s.outputs.Root())
	if s.config.TemplatePath != "" {
		fmt.Fprintf(&b, "Default template: %s\n", s.config.TemplatePath)
	} else {
		b.WriteString("Default template: none (pass template to tax_fill_form)\n")
	}
	fmt.Fprintf(&b, "Max file size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	fmt.Fprintf(&b, "Minimum confidence: %.2f\n", s.service.Extractor().MinConfidence())

	b.WriteString("\nSupported documents:\n")
	for _, dt := range taxdoc.DocumentTypes {
		fmt.Fprintf(&b, "  %s: %s\n", dt, dt.Description())
	}

	b.WriteString("\nFiling statuses:\n")
	for _, fs := range taxdoc.FilingStatuses {
		fmt.Fprintf(&b, "  %s\n", fs)
	}

	if len(files) > 0 {
		fmt.Fprintf(&b, "\nDirectory contents (%d PDF files found):\n", len(files))
		for i, f := range files {
			if i >= maxListedFiles {
				fmt.Fprintf(&b, "  ... and %d more files\n", len(files)-maxListedFiles)
				break
			}
			fmt.Fprintf(&b, "  %d. %s (%d bytes)\n", i+1, f.Path, f.Size)
		}
	} else {
		b.WriteString("\nDirectory contents: no PDF files found\n")
	}

	b.WriteString("\nAvailable tools:\n")
	for _, name := range descriptions.GetAllToolNames() {
		info, _ := descriptions.GetToolInfo(name)
		fmt.Fprintf(&b, "\n- %s\n", info.Name)
		fmt.Fprintf(&b, "  Usage: %s\n", info.Usage)
		fmt.Fprintf(&b, "  Parameters: %s\n", info.Parameters)
	}

	b.WriteString("\nTypical workflow: tax_list_documents, then tax_extract_document on anything unexpected, " +
		"then tax_compute with a profile, then tax_fill_form to produce the Form 1040.\n")
	return b.String()
}
