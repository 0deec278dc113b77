package main

import (
	"fmt"

	"github.com/aretw0/folio/internal/cli"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Convert a document between formats",
	Long: `Reads <in> and writes <out>, picking both formats from the file extensions.

Inputs:  .json .yaml .md .html .docx
Outputs: .json .yaml .md .html`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := standalone(cmd)
		if err != nil {
			return err
		}
		if err := cli.Convert(cmd.Context(), rt, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
