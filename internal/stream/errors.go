package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrCapture means the camera produced no frame.
	ErrCapture = errors.New("capture failed")
	// ErrEncode means a raw frame could not be transcoded to JPEG.
	ErrEncode = errors.New("jpeg compression failed")
	// ErrTransport means a chunk could not be written to the connection.
	ErrTransport = errors.New("transport write failed")
	// ErrBusy is returned when a stream is already running.
	ErrBusy = errors.New("stream already active")
)

// Error reports the state in which a stream session failed. It matches its
// failure class and its cause with errors.Is.
type Error struct {
	State State
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stream %s: %v", e.State, e.Kind)
	}
	return fmt.Sprintf("stream %s: %v: %v", e.State, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
