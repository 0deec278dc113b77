package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/folio/internal/cli"
	"github.com/aretw0/folio/internal/presentation/tui"
	"github.com/aretw0/folio/pkg/exporter"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a document in the terminal",
	Long: `Renders a document file, or a stored document with --id, as Markdown.
Output to a terminal is styled; piped output stays plain Markdown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		plain, _ := cmd.Flags().GetBool("plain")
		if (id == "") == (len(args) == 0) {
			return errors.New("pass either a file or --id")
		}

		var md string
		var err error
		if id != "" {
			md, err = renderStored(cmd, id)
		} else {
			md, err = renderFile(cmd, args[0])
		}
		if err != nil {
			return err
		}
		return writeMarkdown(cmd.OutOrStdout(), md, plain)
	},
}

func renderFile(cmd *cobra.Command, path string) (string, error) {
	rt, err := standalone(cmd)
	if err != nil {
		return "", err
	}
	ed, err := rt.NewEditor()
	if err != nil {
		return "", err
	}
	defer ed.Close()
	if err := cli.LoadPath(cmd.Context(), ed, path); err != nil {
		return "", err
	}
	return exporter.Markdown(ed.CurrentSnapshot())
}

func renderStored(cmd *cobra.Command, id string) (string, error) {
	rt, err := openRuntime(cmd)
	if err != nil {
		return "", err
	}
	defer rt.Close()

	doc, err := rt.Store.Load(cmd.Context(), id)
	if err != nil {
		return "", fmt.Errorf("failed to load %q: %w", id, err)
	}
	ed, err := rt.NewEditor()
	if err != nil {
		return "", err
	}
	defer ed.Close()
	if err := ed.Load(cmd.Context(), doc); err != nil {
		return "", err
	}
	return exporter.Markdown(ed.CurrentSnapshot())
}

func writeMarkdown(w io.Writer, md string, plain bool) error {
	f, ok := w.(*os.File)
	if plain || !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := io.WriteString(w, md)
		return err
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		width = 80
	}
	render, err := tui.NewRenderer(width)
	if err != nil {
		return err
	}
	out, err := render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().String("id", "", "Render the stored document with this ID")
	renderCmd.Flags().Bool("plain", false, "Write plain Markdown even to a terminal")
}
