package rundown

import "errors"

// Domain errors for the rundown package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, rundown.ErrPlaylistNotFound) {
//	    // handle not found case
//	}
var (
	// ErrPlaylistNotFound is returned when a playlist id does not exist.
	ErrPlaylistNotFound = errors.New("playlist: not found")

	// ErrRundownNotFound is returned when a rundown id does not exist.
	ErrRundownNotFound = errors.New("rundown: not found")

	// ErrSegmentNotFound is returned when a segment id does not exist.
	ErrSegmentNotFound = errors.New("segment: not found")

	// ErrPartNotFound is returned when a part id does not exist.
	ErrPartNotFound = errors.New("part: not found")

	// ErrPartInstanceNotFound is returned when a part instance id does not exist.
	ErrPartInstanceNotFound = errors.New("part instance: not found")

	// ErrRundownExists is returned when creating a rundown whose
	// (studio, external id) pair already exists.
	ErrRundownExists = errors.New("rundown: already exists")

	// ErrInvalidEntity is returned when entity validation fails.
	ErrInvalidEntity = errors.New("rundown: invalid entity")
)
