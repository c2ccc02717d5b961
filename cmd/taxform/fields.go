package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-tax-filer/internal/report"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields [TEMPLATE]",
	Short: "List the named form fields of a blank Form 1040",
	Long:  "Loads a base form and lists its AcroForm fields. Without an argument the --template form is used.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFields,
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}

func runFields(cmd *cobra.Command, args []string) error {
	path := cfg.TemplatePath
	if len(args) == 1 {
		path = inDir(cfg.DocumentDirectory, args[0])
	}
	if path == "" {
		return fmt.Errorf("no template given and no --template configured")
	}

	tmpl, err := service.LoadTemplate(path)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.TemplateFields(path, tmpl))
	return nil
}
