package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/folio/internal/cli"
	"github.com/aretw0/folio/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check documents for consistency",
	Long: `Decodes each file with the configured node types and reports malformed
records and structural errors. Markdown, HTML and DOCX files are checked by
importing them. With --lint, documents that decode are also checked for
skipped heading levels, empty headings and inconsistent list items.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := standalone(cmd)
		if err != nil {
			return err
		}
		var failed error
		for _, path := range args {
			if err := validateFile(cmd, rt, path); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				failed = errors.New("validation failed")
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		}
		return failed
	},
}

func validateFile(cmd *cobra.Command, rt *cli.Runtime, path string) error {
	ed, err := rt.NewEditor()
	if err != nil {
		return err
	}
	defer ed.Close()
	if err := cli.LoadPath(cmd.Context(), ed, path); err != nil {
		return err
	}
	if lint, _ := cmd.Flags().GetBool("lint"); lint {
		return validator.Validate(ed.CurrentSnapshot())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("lint", false, "Also report readability problems")
}
