package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the node types the configured plugins register",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := standalone(cmd)
		if err != nil {
			return err
		}
		for _, tag := range rt.Types() {
			fmt.Fprintln(cmd.OutOrStdout(), tag)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}
