package domain

import "slices"

// SnapshotDiff lists what changed between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	FromVersion uint64 `json:"from_version"`
	ToVersion   uint64 `json:"to_version"`

	// Created holds keys present only in the newer snapshot.
	Created []NodeKey `json:"created,omitempty"`

	// Destroyed holds keys present only in the older snapshot.
	Destroyed []NodeKey `json:"destroyed,omitempty"`

	// Updated holds keys whose node value was rewritten. Copy-on-write makes
	// this a pointer comparison: untouched nodes are shared.
	Updated []NodeKey `json:"updated,omitempty"`

	SelectionChanged bool `json:"selection_changed,omitempty"`
}

// Diff calculates the difference between prev and next.
// If prev is nil, every node of next is reported as created (initial load).
func Diff(prev, next *Snapshot) *SnapshotDiff {
	if next == nil {
		return nil
	}

	diff := &SnapshotDiff{ToVersion: next.version}

	if prev == nil {
		diff.Created = next.Keys()
		diff.SelectionChanged = next.selection != nil
		return diff
	}
	diff.FromVersion = prev.version

	for k, n := range next.nodes {
		old, ok := prev.nodes[k]
		switch {
		case !ok:
			diff.Created = append(diff.Created, k)
		case old != n:
			diff.Updated = append(diff.Updated, k)
		}
	}
	for k := range prev.nodes {
		if _, ok := next.nodes[k]; !ok {
			diff.Destroyed = append(diff.Destroyed, k)
		}
	}
	slices.Sort(diff.Created)
	slices.Sort(diff.Updated)
	slices.Sort(diff.Destroyed)

	diff.SelectionChanged = !sameSelection(prev.selection, next.selection)
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d == nil || (len(d.Created) == 0 &&
		len(d.Destroyed) == 0 &&
		len(d.Updated) == 0 &&
		!d.SelectionChanged)
}

func sameSelection(a, b *Selection) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
