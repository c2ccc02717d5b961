package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	fillProfile   string
	fillOutput    string
	fillWorksheet string
	fillJSON      bool
)

var fillCmd = &cobra.Command{
	Use:   "fill FILE...",
	Short: "Fill a blank Form 1040 from statement PDFs",
	Long: "Runs the full pipeline and writes the filled Form 1040 to --output under --outdir. " +
		"The blank form comes from --template.",
	Args: cobra.MinimumNArgs(1),
	RunE: runFill,
}

func init() {
	fillCmd.Flags().StringVar(&fillProfile, "profile", "", "Filer profile JSON file (required)")
	fillCmd.Flags().StringVar(&fillOutput, "output", "", "Filled form PDF path (required)")
	fillCmd.Flags().StringVar(&fillWorksheet, "worksheet", "", "Also write an .xlsx worksheet to this path")
	fillCmd.Flags().BoolVar(&fillJSON, "json", false, "Print the filing report as JSON")
	for _, name := range []string{"profile", "output"} {
		if err := fillCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
	rootCmd.AddCommand(fillCmd)
}

func runFill(cmd *cobra.Command, args []string) error {
	if cfg.TemplatePath == "" {
		return fmt.Errorf("--template is required to fill a form")
	}
	if !strings.EqualFold(filepath.Ext(fillOutput), ".pdf") {
		return fmt.Errorf("output must be a .pdf file: %s", fillOutput)
	}

	req, err := filingRequest(args, fillProfile)
	if err != nil {
		return err
	}
	req.Template = cfg.TemplatePath
	req.Output = inDir(cfg.OutputDirectory, fillOutput)
	req.Worksheet = inDir(cfg.OutputDirectory, fillWorksheet)

	return runFiling(cmd, req, fillJSON)
}
