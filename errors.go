package fat32

import (
	"errors"
)

// Tagged failure kinds. The shell maps these to its fixed single-line
// messages; everything underneath passes them around untranslated, so tests
// and callers can branch on the kind rather than on message text.
var (
	// ErrImageNotFound indicates that the image file could not be opened.
	ErrImageNotFound = errors.New("file-system image not found")

	// ErrAlreadyOpen indicates that a session is already active.
	ErrAlreadyOpen = errors.New("file-system image is already open")

	// ErrNotOpen indicates that no session is active.
	ErrNotOpen = errors.New("file-system not open")

	// ErrNotFound indicates that a name did not resolve in the current
	// directory.
	ErrNotFound = errors.New("file not found")

	// ErrNotADirectory indicates that a cd target is not a subdirectory.
	ErrNotADirectory = errors.New("entry is not a directory")
)
