package domain

import (
	"context"
	"time"
)

// CommitEvent describes a published snapshot.
type CommitEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Tag       string        `json:"tag,omitempty"`
	Version   uint64        `json:"version"`
	Duration  time.Duration `json:"duration"`
	Nodes     int           `json:"nodes"`
	Dirty     int           `json:"dirty"`
}

// RollbackEvent describes a discarded update.
type RollbackEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Tag       string        `json:"tag,omitempty"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// PluginEvent describes a plugin that failed to set up or tear down.
type PluginEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Plugin    string    `json:"plugin"`
	Phase     string    `json:"phase"`
	Err       error     `json:"-"`
}

// LifecycleHooks defines callbacks for editor observability.
type LifecycleHooks struct {
	OnCommit      func(context.Context, *CommitEvent)
	OnRollback    func(context.Context, *RollbackEvent)
	OnPluginError func(context.Context, *PluginEvent)
}

// Commit tags with a meaning shared between packages.
const (
	// TagLoad marks a snapshot installed from a decoded document.
	TagLoad = "load"
	// TagHistory marks a snapshot restored by undo or redo.
	TagHistory = "history"
	// TagHistoryMerge asks the history to fold the commit into the previous
	// undo step instead of starting a new one.
	TagHistoryMerge = "history-merge"
)
