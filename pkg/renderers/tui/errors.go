package tui

import "errors"

var (
	// ErrAborted is returned when a prompt is interrupted.
	ErrAborted = errors.New("tui: aborted")
	// ErrNoRuntime is returned by Fill without a runtime.
	ErrNoRuntime = errors.New("tui: runtime is nil")
)
