package protocol

import (
	"errors"
	"fmt"
)

var errNotObject = errors.New("payload is not a JSON object")

// maxQuoted bounds how much of a bad payload ends up in an error message.
const maxQuoted = 120

// DecodeError is returned for message data that is not a JSON payload.
type DecodeError struct {
	Data string
	Err  error
}

func (e *DecodeError) Error() string {
	data := e.Data
	if len(data) > maxQuoted {
		data = data[:maxQuoted] + "..."
	}
	return fmt.Sprintf("cannot decode payload %q: %v", data, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ValidationError is returned when a known action is missing a field.
type ValidationError struct {
	Action string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("action %q: %s %s", e.Action, e.Field, e.Reason)
}
