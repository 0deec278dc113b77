package engine

import "context"

type txKey struct{}

func withTx(ctx context.Context, tx *Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFromContext(ctx context.Context) (*Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txKey{}).(*Tx)
	return tx, ok
}

// TxFromContext returns the open update carried by ctx, if any.
func TxFromContext(ctx context.Context) (*Tx, bool) {
	tx, ok := txFromContext(ctx)
	if !ok || tx.closed {
		return nil, false
	}
	return tx, true
}
