package orchestrator

import "errors"

var (
	// ErrUnavailable is returned by reads when no tree has ever been built
	// and building one failed.
	ErrUnavailable = errors.New("content unavailable")

	// ErrNotFound is returned when a requested note does not exist.
	ErrNotFound = errors.New("note not found")

	// ErrOutsideContent is returned for paths that are not markdown notes
	// inside the content folder.
	ErrOutsideContent = errors.New("path is outside the content folder")
)
