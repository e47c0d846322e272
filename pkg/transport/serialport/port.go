// Package serialport opens serial ports for use with transport.Conn.
package serialport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// readTimeout is the hardware-level read timeout. It paces the
// transport's accumulation loop; the overall deadline is enforced
// there, not here.
const readTimeout = 50 * time.Millisecond

// Open opens the named port at the given baud, 8N1, with a short read
// timeout so reads return (0, nil) when no data is pending.
func Open(name string, baud int) (serial.Port, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s at %d baud: %w", name, baud, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("setting read timeout on %s: %w", name, err)
	}
	return port, nil
}

// List enumerates the serial ports present on the system.
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}
	return ports, nil
}
