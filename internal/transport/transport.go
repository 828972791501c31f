package transport

import "errors"

// ErrClosed is returned when writing to a transport that has gone away.
var ErrClosed = errors.New("transport closed")

// ChunkWriter delivers a long-lived response as a sequence of chunks.
type ChunkWriter interface {
	// SetContentType declares the body type before the first chunk.
	SetContentType(contentType string) error
	// SendChunk blocks until p has been handed to the connection.
	SendChunk(p []byte) error
}

// CommandReceiver delivers serialized motion commands from a remote peer.
type CommandReceiver interface {
	OnCommand(callback func(data []byte))
}
