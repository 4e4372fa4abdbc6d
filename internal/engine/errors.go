package engine

import "errors"

var (
	// ErrSessionOverflow terminates a session whose output queue is full.
	ErrSessionOverflow = errors.New("session output queue overflow")
	// ErrCommitmentOverflow terminates a session whose pending buffer is full.
	ErrCommitmentOverflow = errors.New("session commitment buffer overflow")
	// ErrIngestOverflow is fatal: the producer outran the dispatcher.
	ErrIngestOverflow = errors.New("ingest queue overflow")
	// ErrShutdown is returned to sessions and producers once shutdown began.
	ErrShutdown = errors.New("engine shutting down")
	// ErrSessionClosed is returned when operating on a closed session.
	ErrSessionClosed = errors.New("session closed")
)
