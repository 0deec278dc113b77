/*
Package folio is a versioned document tree with a transactional update engine,
built to sit under a rich-text editor.

A document is an immutable Snapshot: a map from NodeKey to Node plus an
optional selection. Every change goes through Editor.Update, which hands the
body a Tx over a copy-on-write overlay. When the body returns nil the overlay
is validated and published with a single atomic swap; when it fails, panics or
leaves the tree inconsistent, nothing is published. Readers on any goroutine
keep seeing the snapshot they loaded.

# Key Features

  - Copy-on-write updates: unchanged nodes are shared between snapshots.
  - Extensible node types: plugins register type tags with a constructor and
    a record codec while they are being set up.
  - Lossless serialization: snapshots encode to nested records in JSON or
    YAML and decode back through the same registry.
  - Lifecycle hooks and commit listeners for history, metrics and sync.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/folio"
		"github.com/aretw0/folio/pkg/codec"
		"github.com/aretw0/folio/pkg/domain"
		"github.com/aretw0/folio/pkg/nodes"
	)

	func main() {
		ed, err := folio.New(folio.WithPlugins(nodes.ListPlugin{}, nodes.MentionPlugin{}))
		if err != nil {
			log.Fatal(err)
		}
		defer ed.Close()

		ctx := context.Background()
		err = ed.Update(ctx, func(ctx context.Context, tx *folio.Tx) error {
			p, _ := tx.Create(domain.NewParagraph())
			t, _ := tx.Create(domain.NewText("hello"))
			if err := tx.Append(p, t); err != nil {
				return err
			}
			return tx.Append(domain.RootKey, p)
		})
		if err != nil {
			log.Fatal(err)
		}

		out, _ := ed.Encode(codec.FormatJSON)
		fmt.Println(string(out))
	}
*/
package folio
