package proto

import "errors"

var (
	// ErrBadStart indicates the frame does not begin with the start code.
	ErrBadStart = errors.New("bad start code")
	// ErrInvalidLength indicates the declared frame length is impossible.
	ErrInvalidLength = errors.New("invalid length in packet header")
	// ErrChecksum indicates the frame checksum does not match its content.
	ErrChecksum = errors.New("checksum mismatch")
)
