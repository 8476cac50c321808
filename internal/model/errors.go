package model

import (
	"errors"
	"fmt"
)

var codes = []struct {
	code string
	err  error
}{
	{"room_full", ErrRoomFull},
	{"room_not_found", ErrRoomNotFound},
	{"session_not_found", ErrSessionNotFound},
	{"object_not_found", ErrObjectNotFound},
	{"out_of_bounds", ErrOutOfBounds},
	{"not_in_room", ErrNotInRoom},
	{"already_in_room", ErrAlreadyInRoom},
}

// ErrorCode returns the wire code for a sentinel error, or "" if err is not one.
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// DecodeError rebuilds an error from a server error body so callers can use errors.Is.
func DecodeError(body ErrorResponse) error {
	for _, c := range codes {
		if c.code == body.Code {
			if body.Error == "" || body.Error == c.err.Error() {
				return c.err
			}
			return fmt.Errorf("%w: %s", c.err, body.Error)
		}
	}
	if body.Error == "" {
		return errors.New("unknown server error")
	}
	return errors.New(body.Error)
}
