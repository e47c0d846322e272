// Package transport reads and writes R307 frames over a byte stream.
package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/optiscan/r307.go/pkg/proto"
)

// Conn frames packets over a serial byte stream. The stream is owned
// exclusively by one Conn for the session; the protocol is strictly
// half-duplex, so no two exchanges are ever in flight at once.
//
// Read pacing comes from the underlying stream: it must either block
// until data arrives or return (0, nil) after its own short timeout.
// serialport.Open configures the latter.
type Conn struct {
	// Addr is the module address stamped on outgoing frames.
	Addr uint32

	rw io.ReadWriter
}

// NewConn wraps a byte stream, addressing the default broadcast module.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{Addr: proto.BroadcastAddr, rw: rw}
}

// ReadExact accumulates exactly n bytes before the absolute deadline.
// Empty reads mean "no data yet" and are retried; they are never an
// error. On deadline expiry a *TimeoutError is returned and any bytes
// collected so far are discarded.
func (c *Conn) ReadExact(n int, deadline time.Time) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	for read < n {
		if !time.Now().Before(deadline) {
			return nil, &TimeoutError{Op: "read", Want: n, Got: read}
		}
		got, err := c.rw.Read(buf[read:])
		read += got
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return nil, fmt.Errorf("reading from stream: %w", err)
		}
	}
	return buf, nil
}

// ReadPacket reads one well-formed frame. The deadline bounds the whole
// frame, header and body together, not each chunk.
func (c *Conn) ReadPacket(deadline time.Time) (*proto.Packet, error) {
	hdr, err := c.ReadExact(proto.HeaderLen, deadline)
	if err != nil {
		return nil, err
	}
	h, err := proto.ParseHeader(hdr)
	if err != nil {
		return nil, err
	}
	body, err := c.ReadExact(h.BodyLen(), deadline)
	if err != nil {
		return nil, err
	}
	pkt, err := proto.DecodeBody(h, body)
	if err != nil {
		return nil, err
	}
	if glog.V(2) {
		glog.Infof("RX pid=%#02x len=%d", pkt.PID, len(pkt.Payload))
	}
	return pkt, nil
}

// WritePacket serializes and writes one frame in a single operation.
// The stream guarantees in-order delivery, so no write-side framing
// beyond the frame itself is needed.
func (c *Conn) WritePacket(pid byte, payload []byte) error {
	frame := proto.Encode(pid, payload, c.Addr)
	if glog.V(2) {
		glog.Infof("TX pid=%#02x len=%d", pid, len(payload))
	}
	if _, err := c.rw.Write(frame); err != nil {
		return fmt.Errorf("writing to stream: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	t, ok := err.(interface{ Timeout() bool })
	return ok && t.Timeout()
}
