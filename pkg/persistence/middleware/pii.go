package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/ports"
)

// Mask replaces redacted field values.
const Mask = "***"

// DefaultPIIPatterns redact the user identity carried by mention nodes.
var DefaultPIIPatterns = []string{`(?i)userid$`, `(?i)email`}

type piiMiddleware struct {
	next     ports.DocumentStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks the value of every node field whose name matches one
// of the patterns before the document reaches the store. The type tag and the
// children are never masked. Load returns what was stored.
func NewPIIMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.DocumentStore) ports.DocumentStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, id string, doc *codec.Document) error {
	// The caller's document may still back an editor; mask a copy.
	cloned, err := codec.CloneDocument(doc)
	if err != nil {
		return err
	}
	m.mask(cloned.Root)
	return m.next.Save(ctx, id, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, id string) (*codec.Document, error) {
	return m.next.Load(ctx, id)
}

func (m *piiMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(rec map[string]any) {
	for k, v := range rec {
		switch k {
		case domain.FieldType:
			continue
		case domain.FieldChildren:
			children, _ := v.([]any)
			for _, c := range children {
				if child := asMap(c); child != nil {
					m.mask(child)
				}
			}
			continue
		}
		if m.matches(k) {
			rec[k] = Mask
			continue
		}
		if sub := asMap(v); sub != nil {
			m.mask(sub)
		}
	}
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func asMap(v any) map[string]any {
	switch t := v.(type) {
	case domain.Record:
		return t
	case map[string]any:
		return t
	}
	return nil
}
