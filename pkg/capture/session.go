// Package capture orchestrates one fingerprint capture session: wait
// for a finger, download the sensor's image buffer with bounded
// retries, expand it into a grayscale raster.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/optiscan/r307.go/pkg/proto"
	"github.com/optiscan/r307.go/pkg/raster"
	"github.com/optiscan/r307.go/pkg/transport"
)

// Sensor is the slice of the device API a session needs.
type Sensor interface {
	GenImage() (byte, error)
	UpImage() ([]byte, error)
}

// isTimeout reports whether an exchange failed on a transport
// deadline. The device layer wraps the transport error, so it has to
// be unwrapped here rather than checked directly.
func isTimeout(err error) bool {
	var te *transport.TimeoutError
	return errors.As(err, &te)
}

// ErrNoFinger indicates the wait budget elapsed without a finger on
// the sensor.
var ErrNoFinger = errors.New("timed out waiting for finger")

// DecodeError carries the raw stream bytes of an image that could not
// be expanded, so callers can save them for analysis.
type DecodeError struct {
	Raw []byte
	Err error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %d raw bytes: %v", len(e.Raw), e.Err)
}

// Unwrap returns the decode failure.
func (e *DecodeError) Unwrap() error { return e.Err }

// Image is one captured grayscale raster.
type Image struct {
	Pixels []byte
	Width  int
	Height int
}

// Session runs capture flows against one sensor. The zero timeouts of
// a hand-built Session are not usable; construct with NewSession.
type Session struct {
	// WaitTimeout bounds the wait-for-finger poll loop.
	WaitTimeout time.Duration
	// PollInterval paces the poll loop after a failed attempt.
	PollInterval time.Duration
	// DownloadRetries is how many times a timed-out download is
	// re-requested. Re-requesting the upload is idempotent.
	DownloadRetries int

	sensor Sensor
}

// NewSession creates a Session with the default tuning.
func NewSession(sensor Sensor) *Session {
	return &Session{
		WaitTimeout:     15 * time.Second,
		PollInterval:    100 * time.Millisecond,
		DownloadRetries: 2,
		sensor:          sensor,
	}
}

// WaitFinger polls GenImage until the sensor reports a captured image
// or the wait budget runs out. A no-finger code keeps polling; a
// capture-failed code warns and keeps polling; so does any other
// nonzero code, since the module's full confirmation-code table is
// not documented and unknown codes are transient in practice. An
// exchange timeout is treated like "no finger".
func (s *Session) WaitFinger(ctx context.Context) error {
	deadline := time.Now().Add(s.WaitTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		code, err := s.sensor.GenImage()
		if err != nil {
			if !isTimeout(err) {
				return err
			}
			glog.Warningf("capture poll timed out: %v", err)
			code = proto.AckNoFinger
		}

		wait := s.PollInterval
		switch code {
		case proto.AckOK:
			return nil
		case proto.AckNoFinger:
			wait = s.PollInterval / 2
		case proto.AckCollectFail:
			glog.Warning("collecting image failed, finger placement may be off")
		default:
			glog.Warningf("capture returned code %#02x, retrying", code)
		}

		if !time.Now().Before(deadline) {
			return ErrNoFinger
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Download fetches the raw image buffer, retrying the whole transfer
// on timeout up to DownloadRetries times. Other errors are final: a
// declined upload reflects device state and corrupt frames are never
// retried silently.
func (s *Session) Download() ([]byte, error) {
	for attempt := 0; ; attempt++ {
		raw, err := s.sensor.UpImage()
		if err == nil {
			return raw, nil
		}
		if !isTimeout(err) || attempt >= s.DownloadRetries {
			return nil, err
		}
		glog.Warningf("image download timed out (attempt %d of %d): %v",
			attempt+1, s.DownloadRetries+1, err)
		time.Sleep(200 * time.Millisecond)
	}
}

// Capture runs the whole flow and returns the expanded raster. When
// the downloaded buffer cannot be expanded, the returned error is a
// *DecodeError carrying the raw bytes.
func (s *Session) Capture(ctx context.Context) (*Image, error) {
	if err := s.WaitFinger(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Download()
	if err != nil {
		return nil, err
	}
	pixels, err := raster.Expand(raw, raster.Width, raster.Height)
	if err != nil {
		return nil, &DecodeError{Raw: raw, Err: err}
	}
	return &Image{Pixels: pixels, Width: raster.Width, Height: raster.Height}, nil
}
