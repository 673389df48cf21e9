package port

import "errors"

var (
	// ErrTransport wraps network failures talking to the remote API.
	ErrTransport = errors.New("transport failure")
	// ErrMalformedPayload is returned when a response is not a well-formed token sequence.
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnexpectedStatus = errors.New("unexpected http status")
)
