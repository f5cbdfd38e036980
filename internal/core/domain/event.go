package domain

import "time"

// FileEventType is the kind of filesystem change.
type FileEventType int

// Filesystem event kinds.
const (
	// FileCreated indicates a new file appeared.
	FileCreated FileEventType = iota

	// FileModified indicates a file's content changed.
	FileModified

	// FileDeleted indicates a file was removed.
	FileDeleted

	// FileMoved indicates a file was renamed away from Path.
	FileMoved
)

// String returns a human-readable event kind.
func (t FileEventType) String() string {
	switch t {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	case FileMoved:
		return "moved"
	default:
		return "unknown"
	}
}

// FileEvent is a debounced filesystem change for a single path.
// Bursts of events for the same path within the debounce window
// collapse into one FileEvent carrying the latest kind.
type FileEvent struct {
	// Type is the kind of change.
	Type FileEventType

	// Path is the affected absolute path.
	Path string

	// At is when the last raw event in the burst arrived.
	At time.Time
}
