package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-tax-filer/internal/samples"
)

var samplesCmd = &cobra.Command{
	Use:   "samples [DIR]",
	Short: "Write sample statements, a blank Form 1040 and a filer profile",
	Long:  "Generates a W-2, a 1099-INT, a 1099-NEC, a blank Form 1040 and profile.json. DIR defaults to --dir.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSamples,
}

func init() {
	rootCmd.AddCommand(samplesCmd)
}

func runSamples(cmd *cobra.Command, args []string) error {
	dir := cfg.DocumentDirectory
	if len(args) == 1 {
		dir = inDir(cfg.DocumentDirectory, args[0])
	}

	written, err := samples.WriteAll(dir, service.Renderer().Map())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, path := range written.Statements {
		fmt.Fprintf(out, "statement: %s\n", path)
	}
	fmt.Fprintf(out, "template: %s\n", written.Template)
	fmt.Fprintf(out, "profile: %s\n", written.Profile)
	return nil
}
