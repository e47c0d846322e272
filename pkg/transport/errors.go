package transport

import "fmt"

// TimeoutError indicates a read deadline elapsed before the requested
// bytes arrived. It satisfies os.IsTimeout.
type TimeoutError struct {
	Op   string
	Want int
	Got  int
}

// Error implements error.
func (e *TimeoutError) Error() string {
	if e.Want > 0 {
		return fmt.Sprintf("%s timed out after %d of %d bytes", e.Op, e.Got, e.Want)
	}
	return fmt.Sprintf("%s timed out", e.Op)
}

// Timeout marks the error as a timeout for os.IsTimeout.
func (e *TimeoutError) Timeout() bool { return true }
