package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-tax-filer/internal/filing"
	"github.com/a3tai/mcp-tax-filer/internal/profile"
	"github.com/a3tai/mcp-tax-filer/internal/report"
)

var (
	computeProfile   string
	computeWorksheet string
	computeJSON      bool
)

var computeCmd = &cobra.Command{
	Use:   "compute FILE...",
	Short: "Compute federal income tax from statement PDFs",
	Long: "Extracts every statement, totals the income and computes the return for the filer " +
		"profile. Optionally writes an Excel worksheet of the computation under --outdir.",
	Args: cobra.MinimumNArgs(1),
	RunE: runCompute,
}

func init() {
	computeCmd.Flags().StringVar(&computeProfile, "profile", "", "Filer profile JSON file (required)")
	computeCmd.Flags().StringVar(&computeWorksheet, "worksheet", "", "Write an .xlsx worksheet to this path")
	computeCmd.Flags().BoolVar(&computeJSON, "json", false, "Print the filing report as JSON")
	if err := computeCmd.MarkFlagRequired("profile"); err != nil {
		panic(fmt.Sprintf("failed to mark profile flag as required: %v", err))
	}
	rootCmd.AddCommand(computeCmd)
}

func runCompute(cmd *cobra.Command, args []string) error {
	req, err := filingRequest(args, computeProfile)
	if err != nil {
		return err
	}
	req.Worksheet = inDir(cfg.OutputDirectory, computeWorksheet)

	return runFiling(cmd, req, computeJSON)
}

// filingRequest loads the profile and resolves the statement paths
func filingRequest(paths []string, profilePath string) (filing.Request, error) {
	prof, err := profile.Load(inDir(cfg.DocumentDirectory, profilePath))
	if err != nil {
		return filing.Request{}, err
	}
	return filing.Request{
		Documents:    documentRefs(paths),
		Profile:      prof.Profile,
		ProfileNotes: prof.Notes,
	}, nil
}

func runFiling(cmd *cobra.Command, req filing.Request, asJSON bool) error {
	rep, err := service.File(cmd.Context(), req)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), rep)
	}
	fmt.Fprint(cmd.OutOrStdout(), report.Filing(rep))
	return nil
}
