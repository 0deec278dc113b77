package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value sums every sample of the named family.
func value(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			switch {
			case m.Counter != nil:
				total += m.Counter.GetValue()
			case m.Gauge != nil:
				total += m.Gauge.GetValue()
			case m.Histogram != nil:
				total += float64(m.Histogram.GetSampleCount())
			}
		}
	}
	return total
}

func TestMetrics(t *testing.T) {
	m := observability.NewMetrics("")
	ed, err := folio.New(folio.WithPlugins(m))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, ed.Update(ctx, func(ctx context.Context, tx *folio.Tx) error {
		p, _ := tx.Create(domain.NewParagraph())
		return tx.Append(domain.RootKey, p)
	}, folio.WithTag("typing")))
	_ = ed.Update(ctx, func(ctx context.Context, tx *folio.Tx) error {
		return errors.New("abort")
	})

	reg := m.Registry()
	assert.Equal(t, 1.0, value(t, reg, "folio_commits_total"))
	assert.Equal(t, 1.0, value(t, reg, "folio_rollbacks_total"))
	assert.Equal(t, 1.0, value(t, reg, "folio_update_duration_seconds"))
	assert.Equal(t, 2.0, value(t, reg, "folio_document_nodes"))
	assert.Equal(t, 1.0, value(t, reg, "folio_document_version"))
	// The new paragraph is created and the root is rewritten.
	assert.Equal(t, 2.0, value(t, reg, "folio_node_changes_total"))

	require.NoError(t, ed.Close())
	_ = ed.Update(ctx, func(ctx context.Context, tx *folio.Tx) error {
		return errors.New("abort")
	})
	assert.Equal(t, 1.0, value(t, reg, "folio_rollbacks_total"))
}

func TestMetrics_RecorderPerEditor(t *testing.T) {
	m := observability.NewMetrics("docs")
	ctx := context.Background()

	a, err := folio.New(folio.WithName("a"), folio.WithPlugins(m.Recorder()))
	require.NoError(t, err)
	b, err := folio.New(folio.WithName("b"), folio.WithPlugins(m.Recorder()))
	require.NoError(t, err)

	for _, ed := range []*folio.Editor{a, b, b} {
		require.NoError(t, ed.Update(ctx, func(ctx context.Context, tx *folio.Tx) error {
			p, _ := tx.Create(domain.NewParagraph())
			return tx.Append(domain.RootKey, p)
		}))
	}

	reg := m.Registry()
	assert.Equal(t, 3.0, value(t, reg, "docs_commits_total"))
	// Versions 1 and 2, one series per editor.
	assert.Equal(t, 3.0, value(t, reg, "docs_document_version"))

	require.NoError(t, b.Close())
	assert.Equal(t, 1.0, value(t, reg, "docs_document_version"))
}
