// Package apperr defines the error categories surfaced to callers. Handlers
// match these with errors.Is to pick a status code and a machine-readable
// category name; the wrapped detail carries the human-readable cause.
package apperr

import "errors"

var (
	ErrStore       = errors.New("store failure")
	ErrBackend     = errors.New("model backend unavailable")
	ErrTranslation = errors.New("no valid SQL produced")
	ErrExecution   = errors.New("query execution failed")
)
