package proto

import (
	"encoding/binary"
	"fmt"
)

// StartCode is the fixed marker opening every frame.
const StartCode uint16 = 0xEF01

// BroadcastAddr is the factory-default module address.
const BroadcastAddr uint32 = 0xFFFFFFFF

// Packet identifiers.
const (
	PIDCommand byte = 0x01
	PIDData    byte = 0x02
	PIDAck     byte = 0x07
	PIDEndData byte = 0x08
)

// Instruction codes (subset).
const (
	CmdGenImg   byte = 0x01
	CmdImg2Tz   byte = 0x02
	CmdRegModel byte = 0x05
	CmdStore    byte = 0x06
	CmdUpImage  byte = 0x0A
	CmdWriteReg byte = 0x0E
)

// RegBaudRate is the system register holding the UART baud divisor
// (value N means baud = 9600*N).
const RegBaudRate byte = 0x04

// Acknowledge confirmation codes returned in the first payload byte.
const (
	AckOK          byte = 0x00
	AckNoFinger    byte = 0x02
	AckCollectFail byte = 0x03
)

// HeaderLen is the size of the fixed frame header: start code,
// address, packet identifier and length field.
const HeaderLen = 2 + 4 + 1 + 2

// Checksum computes the 16-bit frame checksum: the packet identifier,
// both length bytes and every payload byte summed modulo 65536.
func Checksum(pid byte, payload []byte) uint16 {
	length := len(payload) + 2
	sum := uint(pid) + uint(length>>8&0xFF) + uint(length&0xFF)
	for _, b := range payload {
		sum += uint(b)
	}
	return uint16(sum)
}

// Packet is one parsed frame. It is immutable once constructed.
type Packet struct {
	Addr    uint32
	PID     byte
	Payload []byte
}

// Header is the parsed fixed-size frame header.
type Header struct {
	Addr uint32
	PID  byte
	// Length counts payload bytes plus the 2-byte checksum.
	Length uint16
}

// BodyLen returns the number of bytes following the header.
func (h Header) BodyLen() int {
	return int(h.Length)
}

// Encode serializes one frame.
func Encode(pid byte, payload []byte, addr uint32) []byte {
	b := make([]byte, 0, HeaderLen+len(payload)+2)
	b = binary.BigEndian.AppendUint16(b, StartCode)
	b = binary.BigEndian.AppendUint32(b, addr)
	b = append(b, pid)
	b = binary.BigEndian.AppendUint16(b, uint16(len(payload)+2))
	b = append(b, payload...)
	b = binary.BigEndian.AppendUint16(b, Checksum(pid, payload))
	return b
}

// ParseHeader validates and parses the fixed frame header.
func ParseHeader(hdr []byte) (Header, error) {
	if len(hdr) != HeaderLen {
		return Header{}, fmt.Errorf("header is %d bytes, want %d: %w", len(hdr), HeaderLen, ErrBadStart)
	}
	if binary.BigEndian.Uint16(hdr[:2]) != StartCode {
		return Header{}, ErrBadStart
	}
	h := Header{
		Addr:   binary.BigEndian.Uint32(hdr[2:6]),
		PID:    hdr[6],
		Length: binary.BigEndian.Uint16(hdr[7:9]),
	}
	// The checksum field is mandatory, so the declared length can
	// never be below 2.
	if h.Length < 2 {
		return Header{}, ErrInvalidLength
	}
	return h, nil
}

// DecodeBody splits the frame body into payload and checksum and
// verifies the checksum against the header. No truncated or corrupt
// frame is ever returned as a valid Packet.
func DecodeBody(h Header, body []byte) (*Packet, error) {
	if len(body) != h.BodyLen() {
		return nil, fmt.Errorf("body is %d bytes, header declares %d: %w", len(body), h.BodyLen(), ErrInvalidLength)
	}
	payload := body[:len(body)-2]
	declared := binary.BigEndian.Uint16(body[len(body)-2:])
	if sum := Checksum(h.PID, payload); sum != declared {
		return nil, fmt.Errorf("computed %#04x, frame declares %#04x: %w", sum, declared, ErrChecksum)
	}
	return &Packet{Addr: h.Addr, PID: h.PID, Payload: payload}, nil
}
