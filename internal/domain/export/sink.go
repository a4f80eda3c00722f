// internal/domain/export/sink.go
package export

import (
	"errors"
	"io"
)

// ErrFileExists is returned by FileSink.Create when the name is already taken
// in the staging or outbox location.
var ErrFileExists = errors.New("export file already exists")

// FileSink writes export artifacts to a staging location and hands them off
// to the outbox. Implementations must never overwrite an existing file.
type FileSink interface {
	// Create opens a new, empty staged file.
	Create(name string) (StagedFile, error)
	// Handoff moves a staged file into the outbox and returns its new path.
	Handoff(stagedPath string) (string, error)
	// Discard removes a staged file that will not be handed off.
	Discard(stagedPath string) error
}

// StagedFile is a writable export artifact in the staging location.
type StagedFile interface {
	io.Writer
	Path() string
	// Close flushes the file to durable storage and closes it.
	Close() error
}
