// Package proto implements the R307 wire protocol framing.
package proto

// Every frame exchanged with the module carries the same layout:
// a fixed start code, a 4-byte module address, a one-byte packet
// identifier, a 2-byte length covering payload plus checksum, the
// payload, and a 16-bit additive checksum. All multi-byte fields
// are big-endian.
//
// The codec here is pure: serialization and validation only. Reading
// frames off a byte stream lives in pkg/transport.
