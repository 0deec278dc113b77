// Package nodes holds the extension node types shipped with folio: lists,
// tabs and mentions. Each comes with a plugin that registers it on an editor.
package nodes
