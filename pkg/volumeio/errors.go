package volumeio

import (
	"errors"
	"fmt"
)

// Sentinel errors for volume I/O.
var (
	// ErrUnsupportedFormat is returned for file extensions, element types or
	// header options this package cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported volume format")

	// ErrCorruptHeader is returned when a header is missing required keys or
	// holds values that cannot be parsed.
	ErrCorruptHeader = errors.New("corrupt volume header")

	// ErrShortData is returned when the voxel payload is smaller than the
	// header promises.
	ErrShortData = errors.New("voxel data shorter than header size")
)

// ReadError wraps any failure to load a volume from Path.
type ReadError struct {
	Path string
	Err  error
}

// Error returns a message naming the file
func (e *ReadError) Error() string { return fmt.Sprintf("read %s: %v", e.Path, e.Err) }

// Unwrap returns the wrapped error.
func (e *ReadError) Unwrap() error { return e.Err }

// WriteError wraps any failure to persist a volume to Path.
type WriteError struct {
	Path string
	Err  error
}

// Error returns a message naming the file
func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }

// Unwrap returns the wrapped error.
func (e *WriteError) Unwrap() error { return e.Err }

func readErr(path string, err error) error {
	if err == nil {
		return nil
	}
	return &ReadError{Path: path, Err: err}
}

func writeErr(path string, err error) error {
	if err == nil {
		return nil
	}
	return &WriteError{Path: path, Err: err}
}
