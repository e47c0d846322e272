package device

import (
	"sort"

	"github.com/optiscan/r307.go/pkg/proto"
)

// baudDivisor maps host-visible baud rates to the module's internal
// divisor codes (baud = 9600 * code). Never mutated at runtime.
var baudDivisor = map[int]int{
	9600:   1,
	19200:  2,
	28800:  3,
	38400:  4,
	48000:  5,
	57600:  6,
	115200: 12,
}

// BaudRates lists the supported baud rates in ascending order.
func BaudRates() []int {
	rates := make([]int, 0, len(baudDivisor))
	for baud := range baudDivisor {
		rates = append(rates, baud)
	}
	sort.Ints(rates)
	return rates
}

// SetBaudRate writes the UART baud divisor for the given rate and
// returns the divisor written. Unsupported rates fail before any write
// is attempted. The module only applies the new rate after a
// power-cycle, which this driver cannot observe; success here means
// the write was acknowledged on the current session baud. Repeating
// the call is harmless.
func (d *Device) SetBaudRate(baud int) (int, error) {
	n, ok := baudDivisor[baud]
	if !ok {
		return 0, ErrUnsupportedBaud
	}
	if err := d.WriteReg(proto.RegBaudRate, byte(n)); err != nil {
		return 0, err
	}
	return n, nil
}
