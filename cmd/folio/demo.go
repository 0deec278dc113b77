package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/presentation/tui"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/exporter"
	"github.com/aretw0/folio/pkg/history"
	"github.com/aretw0/folio/pkg/nodes"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Edit a sample document and walk its undo history",
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")
		rt, err := standalone(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !plain {
			tui.PrintBanner(out)
		}

		hist := history.New()
		ed, err := folio.New(
			folio.WithName("demo"),
			folio.WithLogger(rt.Logger),
			folio.WithPlugins(append(nodes.Plugins(), hist)...),
		)
		if err != nil {
			return err
		}
		defer ed.Close()

		ctx := cmd.Context()
		steps := []struct {
			title string
			body  folio.Body
		}{
			{"heading", demoHeading},
			{"paragraph with a mention", demoMention},
			{"checklist", demoChecklist},
		}
		for _, s := range steps {
			if err := ed.Update(ctx, s.body, folio.WithTag("demo")); err != nil {
				return fmt.Errorf("failed to add %s: %w", s.title, err)
			}
		}
		if err := show(out, ed, fmt.Sprintf("After %d edits", len(steps)), plain); err != nil {
			return err
		}

		if _, err := hist.Undo(ctx); err != nil {
			return err
		}
		if err := show(out, ed, "After undo", plain); err != nil {
			return err
		}
		if _, err := hist.Redo(ctx); err != nil {
			return err
		}
		return show(out, ed, "After redo", plain)
	},
}

func show(out io.Writer, ed *folio.Editor, title string, plain bool) error {
	snap := ed.CurrentSnapshot()
	md, err := exporter.Markdown(snap)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "--- %s (version %d, %d nodes) ---\n", title, snap.Version(), snap.Len())
	return writeMarkdown(out, md, plain)
}

func demoHeading(ctx context.Context, tx *folio.Tx) error {
	h, err := tx.Create(domain.NewHeading("h1"))
	if err != nil {
		return err
	}
	t, err := tx.Create(domain.NewText("Release notes"))
	if err != nil {
		return err
	}
	if err := tx.Append(h, t); err != nil {
		return err
	}
	return tx.Append(domain.RootKey, h)
}

func demoMention(ctx context.Context, tx *folio.Tx) error {
	p, err := tx.Create(domain.NewParagraph())
	if err != nil {
		return err
	}
	if err := tx.Append(domain.RootKey, p); err != nil {
		return err
	}
	t, err := tx.Create(domain.NewText("Reviewed by "))
	if err != nil {
		return err
	}
	if err := tx.Append(p, t); err != nil {
		return err
	}
	_, err = nodes.InsertMention(tx, p, "Ada Lovelace", "u-1815")
	return err
}

func demoChecklist(ctx context.Context, tx *folio.Tx) error {
	_, err := nodes.InsertList(tx, domain.RootKey, nodes.ListCheck, "write docs", "tag release")
	return err
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().Bool("plain", false, "Skip the banner and terminal styling")
}
