package validator

import (
	"context"
	"testing"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/testutils"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/engine"
	"github.com/aretw0/folio/pkg/importer"
	"github.com/aretw0/folio/pkg/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imported(t *testing.T, md string) *folio.Snapshot {
	t.Helper()
	ed := testutils.NewEditor(t)
	require.NoError(t, importer.Import(context.Background(), ed, importer.KindMarkdown, []byte(md)))
	return ed.CurrentSnapshot()
}

func TestLint_CleanDocument(t *testing.T) {
	snap := imported(t, "# Title\n\n## Part\n\n1. one\n2. two\n\n- [ ] todo\n")
	assert.Empty(t, Lint(snap))
	assert.NoError(t, Validate(snap))
}

func TestLint_HeadingSkip(t *testing.T) {
	snap := imported(t, "# Title\n\n### Deep\n")
	problems := Lint(snap)
	require.Len(t, problems, 1)
	assert.Equal(t, []int{1}, problems[0].Path)
	assert.Equal(t, "[1] heading h3 follows h1", problems[0].String())
}

func TestLint_ListProblems(t *testing.T) {
	ed := testutils.NewEditor(t)
	snap := testutils.MustUpdate(t, ed, func(ctx context.Context, tx *folio.Tx) error {
		lk, err := nodes.InsertList(tx, domain.RootKey, nodes.ListNumber, "a", "b")
		if err != nil {
			return err
		}
		items, err := tx.Children(lk)
		if err != nil {
			return err
		}
		item, err := engine.WritableAs[*nodes.ListItemNode](tx, items[1])
		if err != nil {
			return err
		}
		item.Value = 7
		item.SetChecked(true)

		ck, err := nodes.InsertList(tx, domain.RootKey, nodes.ListCheck, "c")
		if err != nil {
			return err
		}
		items, err = tx.Children(ck)
		if err != nil {
			return err
		}
		unchecked, err := engine.WritableAs[*nodes.ListItemNode](tx, items[0])
		if err != nil {
			return err
		}
		unchecked.Checked = nil
		return nil
	})

	var msgs []string
	for _, p := range Lint(snap) {
		msgs = append(msgs, p.Message)
	}
	assert.Equal(t, []string{
		"list item numbered 7, expected 2",
		"checked item in a number list",
		"check list item has no checked state",
	}, msgs)

	err := Validate(snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found 3 problems")
}

func TestLint_EmptyHeading(t *testing.T) {
	ed := testutils.NewEditor(t)
	snap := testutils.MustUpdate(t, ed, func(ctx context.Context, tx *folio.Tx) error {
		h, err := tx.Create(domain.NewHeading("h1"))
		if err != nil {
			return err
		}
		return tx.Append(domain.RootKey, h)
	})
	problems := Lint(snap)
	require.Len(t, problems, 1)
	assert.Equal(t, "empty heading", problems[0].Message)
}
