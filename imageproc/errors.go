package imageproc

import (
	"errors"
	"fmt"
)

// ErrEmptyData is returned (wrapped in a DecodeError) for zero-length sources.
var ErrEmptyData = errors.New("imageproc: empty data")

// DecodeError reports unrecognized or corrupt image data.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("imageproc: decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MissingFileError reports a source file that cannot be read.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("imageproc: read %s: %v", e.Path, e.Err)
}

func (e *MissingFileError) Unwrap() error { return e.Err }

// ConfigurationError reports processing parameters that can never work,
// such as caching an in-memory source.
type ConfigurationError struct {
	Source string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("imageproc: %s: %s", e.Source, e.Reason)
}
