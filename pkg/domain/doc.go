/*
Package domain contains the document model shared by every other package.

It defines node identities, the node variants, immutable snapshots of the
document tree and the error taxonomy. The package holds no I/O and no
concurrency primitives; mutation is orchestrated by the engine package, which
only ever writes to nodes it has cloned for the running transaction.

# Key Entities

  - NodeKey: process-unique, never reused identity of a node.
  - Node: polymorphic node value (Element, Text, LineBreak, Decorator and
    extensions layered on them by embedding ElementBase or TextBase).
  - Snapshot: immutable map of keys to nodes plus an optional Selection,
    validated on construction.
  - SnapshotDiff: keys created, destroyed or rewritten between two snapshots.
*/
package domain
