package expreplay

import "errors"

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

var errInsufficientData = errors.New("fewer records than requested")

// IsInsufficientData returns whether or not an error reports that
// there are fewer records in the buffer than a batch pop requested.
//
// The training loop pops only after checking the buffer size, so
// seeing this error indicates an invariant violation in the caller.
func IsInsufficientData(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return errors.Is(err, errInsufficientData)
}
