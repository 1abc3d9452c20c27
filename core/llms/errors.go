package llms

import (
	"errors"
	"fmt"
)

// ErrMalformedEvent marks a stream line that could not be decoded. The line
// is skipped and the stream continues.
var ErrMalformedEvent = errors.New("malformed delta event")

// TransportError is a failure to send the request or to read the response
// stream. It ends the turn.
type TransportError struct {
	// Op describes what was being done, e.g. "send request".
	Op string
	// StatusCode is set when the server answered with a non-OK status.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
