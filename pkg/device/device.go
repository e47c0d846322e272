// Package device drives the R307 instruction set over a framed
// transport: the command/acknowledge cycle, the streaming image
// download and system-parameter writes.
package device

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/optiscan/r307.go/pkg/proto"
	"github.com/optiscan/r307.go/pkg/transport"
)

// Reply is the outcome of one command exchange: the confirmation code
// and whatever follows it in the acknowledge payload.
type Reply struct {
	Code byte
	Data []byte
}

// Device executes instructions against one sensor over one transport.
// Operations are synchronous and must not be called concurrently; the
// protocol is half-duplex.
type Device struct {
	// AckTimeout bounds a single command/acknowledge exchange.
	AckTimeout time.Duration
	// StreamTimeout is the absolute budget for a whole image download.
	StreamTimeout time.Duration

	conn *transport.Conn
}

// New wraps a transport connection with default timeouts.
func New(conn *transport.Conn) *Device {
	return &Device{
		AckTimeout:    5 * time.Second,
		StreamTimeout: 10 * time.Second,
		conn:          conn,
	}
}

// Exec writes one instruction and awaits exactly one acknowledge
// packet. Transport and codec errors propagate unchanged; a packet of
// any other type fails with ErrUnexpectedPacket.
func (d *Device) Exec(cmd byte, params ...byte) (Reply, error) {
	payload := make([]byte, 0, 1+len(params))
	payload = append(payload, cmd)
	payload = append(payload, params...)
	if err := d.conn.WritePacket(proto.PIDCommand, payload); err != nil {
		return Reply{}, err
	}
	pkt, err := d.conn.ReadPacket(time.Now().Add(d.AckTimeout))
	if err != nil {
		return Reply{}, fmt.Errorf("instruction %#02x: %w", cmd, err)
	}
	if pkt.PID != proto.PIDAck {
		return Reply{}, fmt.Errorf("instruction %#02x: got pid %#02x: %w", cmd, pkt.PID, ErrUnexpectedPacket)
	}
	if len(pkt.Payload) == 0 {
		return Reply{}, fmt.Errorf("instruction %#02x: acknowledge carries no confirmation code: %w", cmd, ErrUnexpectedPacket)
	}
	return Reply{Code: pkt.Payload[0], Data: pkt.Payload[1:]}, nil
}

// GenImage asks the sensor to capture a finger image into its internal
// buffer and returns the raw confirmation code. Interpreting the code
// (finger present, no finger, capture failed) is the caller's poll
// loop's business.
func (d *Device) GenImage() (byte, error) {
	reply, err := d.Exec(proto.CmdGenImg)
	if err != nil {
		return 0, err
	}
	return reply.Code, nil
}

// UpImage downloads the sensor's image buffer. After the upload
// request is acknowledged, data packets are appended in arrival order
// until the end-of-data packet, inclusive. The whole stream shares one
// absolute deadline; if it expires first, everything accumulated is
// discarded and a timeout error is returned. No partial image is ever
// returned as success.
func (d *Device) UpImage() ([]byte, error) {
	reply, err := d.Exec(proto.CmdUpImage)
	if err != nil {
		return nil, err
	}
	if reply.Code != proto.AckOK {
		return nil, &DeclinedError{Op: "upload image", Code: reply.Code}
	}

	deadline := time.Now().Add(d.StreamTimeout)
	var image []byte
	for {
		pkt, err := d.conn.ReadPacket(deadline)
		if err != nil {
			return nil, fmt.Errorf("image stream: %w", err)
		}
		switch pkt.PID {
		case proto.PIDData:
			image = append(image, pkt.Payload...)
		case proto.PIDEndData:
			image = append(image, pkt.Payload...)
			if glog.V(1) {
				glog.Infof("image stream complete, %d bytes", len(image))
			}
			return image, nil
		default:
			return nil, fmt.Errorf("image stream: got pid %#02x: %w", pkt.PID, ErrUnexpectedPacket)
		}
	}
}

// WriteReg writes one system-parameter register.
func (d *Device) WriteReg(reg, value byte) error {
	reply, err := d.Exec(proto.CmdWriteReg, reg, value)
	if err != nil {
		return err
	}
	if reply.Code != proto.AckOK {
		return &DeclinedError{Op: fmt.Sprintf("write reg %#02x", reg), Code: reply.Code}
	}
	return nil
}
