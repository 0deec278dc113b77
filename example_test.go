package folio_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/nodes"
)

// ExampleEditor_Update builds a small document in one transaction and reads
// it back from the committed snapshot.
func ExampleEditor_Update() {
	ed, err := folio.New(folio.WithPlugins(nodes.Plugins()...))
	if err != nil {
		log.Fatal(err)
	}
	defer ed.Close()

	ctx := context.Background()
	err = ed.Update(ctx, func(ctx context.Context, tx *folio.Tx) error {
		h, _ := tx.Create(domain.NewHeading("h1"))
		title, _ := tx.Create(domain.NewText("Groceries"))
		if err := tx.Append(h, title); err != nil {
			return err
		}
		if err := tx.Append(domain.RootKey, h); err != nil {
			return err
		}
		_, err := nodes.InsertList(tx, domain.RootKey, nodes.ListBullet, "milk", "eggs")
		return err
	}, folio.WithTag("seed"))
	if err != nil {
		log.Fatal(err)
	}

	snap := ed.CurrentSnapshot()
	fmt.Println(snap.Version(), snap.Tag())
	fmt.Println(snap.TextContent(domain.RootKey))
	// Output:
	// 1 seed
	// Groceries
	//
	// milk
	//
	// eggs
}

// ExampleEditor_Subscribe shows listeners receiving every committed snapshot.
func ExampleEditor_Subscribe() {
	ed, err := folio.New()
	if err != nil {
		log.Fatal(err)
	}

	cancel := ed.Subscribe(func(_ context.Context, prev, next *folio.Snapshot) {
		fmt.Printf("v%d -> v%d\n", prev.Version(), next.Version())
	})
	defer cancel()

	for i := 0; i < 2; i++ {
		_ = ed.Update(context.Background(), func(ctx context.Context, tx *folio.Tx) error {
			p, _ := tx.Create(domain.NewParagraph())
			return tx.Append(domain.RootKey, p)
		})
	}
	// Output:
	// v0 -> v1
	// v1 -> v2
}
