package chat

import "errors"

var (
	ErrUnknownRoom     = errors.New("unknown room")
	ErrInvalidUser     = errors.New("invalid user id")
	ErrNotParticipant  = errors.New("sender is not a room participant")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)
