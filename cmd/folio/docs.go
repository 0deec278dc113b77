package main

import (
	"fmt"

	"github.com/aretw0/folio/internal/cli"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage stored documents",
	Long:  `List, inspect, import and remove the documents held by the configured store.`,
}

var docsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ids, err := rt.Workspace.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No documents found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), "- "+id)
		}
		return nil
	},
}

var docsInspectCmd = &cobra.Command{
	Use:   "inspect <id>",
	Short: "Print a stored document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		doc, err := rt.Store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load %q: %w", args[0], err)
		}
		data, err := codec.Marshal(doc, codec.Format(format))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var docsImportCmd = &cobra.Command{
	Use:   "import <id> <file>",
	Short: "Store a file as a document",
	Long:  `Replaces the stored document <id> with <file>, which may be any format convert reads.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ed, err := rt.NewEditor()
		if err != nil {
			return err
		}
		defer ed.Close()
		if err := cli.LoadPath(cmd.Context(), ed, args[1]); err != nil {
			return err
		}
		doc, err := ed.Document()
		if err != nil {
			return err
		}
		if err := rt.Workspace.Put(cmd.Context(), args[0], doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored '%s'\n", args[0])
		return nil
	},
}

var docsRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Remove one or more documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		var failed bool
		for _, id := range args {
			if err := rt.Workspace.Delete(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", id, err)
				failed = true
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed '%s'\n", id)
		}
		if failed {
			return fmt.Errorf("some documents could not be removed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsLsCmd, docsInspectCmd, docsImportCmd, docsRmCmd)
	docsInspectCmd.Flags().String("format", "yaml", "Output format: json or yaml")
}
