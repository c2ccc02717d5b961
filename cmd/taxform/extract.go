package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-tax-filer/internal/filing"
	"github.com/a3tai/mcp-tax-filer/internal/report"
	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
)

var (
	extractType string
	extractJSON bool
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE...",
	Short: "Extract fields from statement PDFs",
	Long: "Reads each statement PDF, detects whether it is a W-2, 1099-INT or 1099-NEC and prints " +
		"the extracted fields. Relative paths are taken from --dir.",
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractType, "type", "", "Declared document type for every file (W2, 1099-INT, 1099-NEC)")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "Print the extracted documents as JSON")
	rootCmd.AddCommand(extractCmd)
}

type extractOutput struct {
	Documents []*taxdoc.ExtractedDocument `json:"documents"`
	Errors    []filing.DocumentError      `json:"errors,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	refs := documentRefs(args)
	if extractType != "" {
		dt, err := taxdoc.ParseDocumentType(extractType)
		if err != nil {
			return err
		}
		for i := range refs {
			refs[i].DeclaredType = &dt
		}
	}

	docs, errs, err := service.ExtractFiles(cmd.Context(), refs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if extractJSON {
		if err := writeJSON(out, extractOutput{Documents: docs, Errors: errs}); err != nil {
			return err
		}
	} else {
		for i, doc := range docs {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprint(out, report.Document(doc, ""))
		}
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", e.Path, e.Error)
		}
	}

	if len(docs) == 0 {
		return fmt.Errorf("no documents could be extracted")
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
