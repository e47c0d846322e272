package device

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/optiscan/r307.go/pkg/proto"
	"github.com/optiscan/r307.go/pkg/transport"
)

// sensorStream plays the sensor's side of a session: scripted frames
// are handed out byte by byte and everything the driver sends is
// recorded.
type sensorStream struct {
	pending []byte
	wrote   bytes.Buffer
}

func (s *sensorStream) queue(pid byte, payload ...byte) {
	s.pending = append(s.pending, proto.Encode(pid, payload, proto.BroadcastAddr)...)
}

func (s *sensorStream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		return 0, nil
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *sensorStream) Write(p []byte) (int, error) {
	return s.wrote.Write(p)
}

func newTestDevice() (*Device, *sensorStream) {
	stream := &sensorStream{}
	d := New(transport.NewConn(stream))
	d.AckTimeout = 200 * time.Millisecond
	d.StreamTimeout = 200 * time.Millisecond
	return d, stream
}

func TestExec(t *testing.T) {
	t.Run("command and acknowledge", func(t *testing.T) {
		d, stream := newTestDevice()
		stream.queue(proto.PIDAck, proto.AckOK, 0xDE, 0xAD)
		reply, err := d.Exec(proto.CmdGenImg)
		require.NoError(t, err)
		require.Equal(t, proto.AckOK, reply.Code)
		require.Equal(t, []byte{0xDE, 0xAD}, reply.Data)
		require.Equal(t,
			proto.Encode(proto.PIDCommand, []byte{proto.CmdGenImg}, proto.BroadcastAddr),
			stream.wrote.Bytes())
	})

	t.Run("non-acknowledge packet", func(t *testing.T) {
		d, stream := newTestDevice()
		stream.queue(proto.PIDData, 1, 2, 3)
		_, err := d.Exec(proto.CmdGenImg)
		require.ErrorIs(t, err, ErrUnexpectedPacket)
	})

	t.Run("empty acknowledge payload", func(t *testing.T) {
		d, stream := newTestDevice()
		stream.queue(proto.PIDAck)
		_, err := d.Exec(proto.CmdGenImg)
		require.ErrorIs(t, err, ErrUnexpectedPacket)
	})

	t.Run("ack timeout propagates", func(t *testing.T) {
		d, _ := newTestDevice()
		d.AckTimeout = 20 * time.Millisecond
		_, err := d.Exec(proto.CmdGenImg)
		var te *transport.TimeoutError
		require.ErrorAs(t, err, &te)
	})
}

func TestGenImage(t *testing.T) {
	// A no-finger code is an ordinary outcome, not an error.
	for _, code := range []byte{proto.AckOK, proto.AckNoFinger, proto.AckCollectFail, 0x1C} {
		d, stream := newTestDevice()
		stream.queue(proto.PIDAck, code)
		got, err := d.GenImage()
		require.NoError(t, err)
		require.Equal(t, code, got)
	}
}

func TestUpImage(t *testing.T) {
	t.Run("data packets concatenated in order", func(t *testing.T) {
		d, stream := newTestDevice()
		stream.queue(proto.PIDAck, proto.AckOK)
		stream.queue(proto.PIDData, 1, 2, 3, 4)
		stream.queue(proto.PIDData, 5, 6, 7, 8, 9, 10)
		stream.queue(proto.PIDEndData, 11, 12)
		image, err := d.UpImage()
		require.NoError(t, err)
		require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, image)
	})

	t.Run("declined upload", func(t *testing.T) {
		d, stream := newTestDevice()
		stream.queue(proto.PIDAck, 0x01)
		_, err := d.UpImage()
		var declined *DeclinedError
		require.ErrorAs(t, err, &declined)
		require.Equal(t, byte(0x01), declined.Code)
	})

	t.Run("unexpected packet aborts stream", func(t *testing.T) {
		d, stream := newTestDevice()
		stream.queue(proto.PIDAck, proto.AckOK)
		stream.queue(proto.PIDData, 1, 2)
		stream.queue(proto.PIDAck, proto.AckOK)
		_, err := d.UpImage()
		require.ErrorIs(t, err, ErrUnexpectedPacket)
	})

	t.Run("deadline discards partial image", func(t *testing.T) {
		d, stream := newTestDevice()
		d.StreamTimeout = 30 * time.Millisecond
		stream.queue(proto.PIDAck, proto.AckOK)
		stream.queue(proto.PIDData, 1, 2, 3)
		// No end-of-data ever arrives.
		image, err := d.UpImage()
		var te *transport.TimeoutError
		require.ErrorAs(t, err, &te)
		require.Nil(t, image)
	})
}

func TestWriteReg(t *testing.T) {
	t.Run("acknowledged", func(t *testing.T) {
		d, stream := newTestDevice()
		stream.queue(proto.PIDAck, proto.AckOK)
		require.NoError(t, d.WriteReg(proto.RegBaudRate, 6))
		require.Equal(t,
			proto.Encode(proto.PIDCommand, []byte{proto.CmdWriteReg, proto.RegBaudRate, 6}, proto.BroadcastAddr),
			stream.wrote.Bytes())
	})

	t.Run("declined", func(t *testing.T) {
		d, stream := newTestDevice()
		stream.queue(proto.PIDAck, 0x18)
		err := d.WriteReg(proto.RegBaudRate, 6)
		var declined *DeclinedError
		require.ErrorAs(t, err, &declined)
		require.Equal(t, byte(0x18), declined.Code)
	})
}

func TestSetBaudRate(t *testing.T) {
	t.Run("writes divisor", func(t *testing.T) {
		d, stream := newTestDevice()
		stream.queue(proto.PIDAck, proto.AckOK)
		n, err := d.SetBaudRate(57600)
		require.NoError(t, err)
		require.Equal(t, 6, n)
		require.Equal(t,
			proto.Encode(proto.PIDCommand, []byte{proto.CmdWriteReg, proto.RegBaudRate, 6}, proto.BroadcastAddr),
			stream.wrote.Bytes())
	})

	t.Run("unsupported rate fails before any write", func(t *testing.T) {
		d, stream := newTestDevice()
		_, err := d.SetBaudRate(1200)
		require.ErrorIs(t, err, ErrUnsupportedBaud)
		require.Zero(t, stream.wrote.Len())
	})
}

func TestBaudRates(t *testing.T) {
	require.Equal(t, []int{9600, 19200, 28800, 38400, 48000, 57600, 115200}, BaudRates())
}
