// Package cine composes an ordered frame sequence onto a shared canvas and
// records it into a compressed video container.
package cine

import (
	"errors"
	"fmt"
)

// ErrNoFrames marks an encode in which every input file failed to decode.
var ErrNoFrames = errors.New("no frames decoded")

// EncodingError is a whole-operation failure: the encode produced no video
// and the caller must surface it for retry. Per-frame decode failures never
// become an EncodingError; they are skipped inside the encode loop.
type EncodingError struct {
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sequence encoding failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("sequence encoding failed: %s", e.Reason)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// encodingErr wraps a step failure into an *EncodingError.
func encodingErr(reason string, err error) *EncodingError {
	return &EncodingError{Reason: reason, Err: err}
}
