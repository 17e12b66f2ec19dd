package relay

import "errors"

var (
	ErrNotJoined     = errors.New("connection has not joined a room")
	ErrMissingSender = errors.New("message has no sender")
)
