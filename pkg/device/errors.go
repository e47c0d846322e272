package device

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedPacket indicates the sensor answered with a packet
	// type the protocol does not allow at this point. It reflects
	// desynchronization and is fatal to the current operation.
	ErrUnexpectedPacket = errors.New("unexpected packet type")
	// ErrUnsupportedBaud indicates a baud rate outside the module's
	// divisor table.
	ErrUnsupportedBaud = errors.New("unsupported baud rate")
)

// DeclinedError reports a non-success confirmation code. It reflects
// device state, not transient loss, so it is not worth retrying.
type DeclinedError struct {
	Op   string
	Code byte
}

// Error implements error.
func (e *DeclinedError) Error() string {
	return fmt.Sprintf("%s declined with code %#02x", e.Op, e.Code)
}
