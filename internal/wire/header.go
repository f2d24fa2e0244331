// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package wire implements the flip-flop data-link frame: the packed 4-byte
// header, AES-128-CCM encrypted payload and the nonce construction shared by
// every sub-protocol built on top of it (app protocol, discovery, update).
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Source identifies which side of the bus emitted a frame.
type Source uint8

const (
	SourceClient Source = 0
	SourceServer Source = 1
)

func (s Source) String() string {
	if s == SourceServer {
		return "server"
	}
	return "client"
}

// Wire-level constants. HeaderSize/MinPacketSize reflect the
// length-prefix scheme actually implemented by this codec (see frame.go);
// they intentionally differ from the reference's illustrative numbers, see
// DESIGN.md.
const (
	HeaderSize          = 4
	LengthPrefixMaxSize = 1
	MICSize             = 4
	NonceSize           = 7
	MaxAddresses        = 256
	MinPayloadSize      = 32
	MinPacketSize       = HeaderSize + LengthPrefixMaxSize + MinPayloadSize + MICSize
	MaxDatagramSize     = 32
	UpdateBytesOverhead = 5
)

// Header is the 4-byte packed frame header.
type Header struct {
	Source        Source
	ServerAddress uint8
	ServerPort    uint8 // 0..=7, bits 11..=13
	FrameCounter  uint16
}

// ErrUnsupportedVersion is returned by ParseHeader when the 2-bit version
// field is not zero or the buffer is shorter than HeaderSize. Non-zero
// reserved bits are reported with a separate error.
var ErrUnsupportedVersion = errors.New("wire: unsupported header version")

// Pack serialises h into its 4 big-endian wire bytes.
func (h Header) Pack() [HeaderSize]byte {
	packed := uint32(0) |
		(uint32(h.Source&0x1) << 2) |
		(uint32(h.ServerAddress) << 3) |
		(uint32(h.ServerPort&0x7) << 11) |
		(uint32(h.FrameCounter) << 16)

	var out [HeaderSize]byte
	binary.BigEndian.PutUint32(out[:], packed)
	return out
}

// ParseHeader decodes the 4-byte packed header, rejecting a non-zero version
// or non-zero reserved bits.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errors.Wrap(ErrUnsupportedVersion, "header too short")
	}
	packed := binary.BigEndian.Uint32(b[:HeaderSize])

	if packed&0x03 != 0 {
		return Header{}, ErrUnsupportedVersion
	}
	if (packed>>14)&0x03 != 0 {
		return Header{}, errors.New("wire: non-zero reserved header bits")
	}

	source := Source((packed >> 2) & 0x1)
	return Header{
		Source:        source,
		ServerAddress: uint8((packed >> 3) & 0xFF),
		ServerPort:    uint8((packed >> 11) & 0x7),
		FrameCounter:  uint16((packed >> 16) & 0xFFFF),
	}, nil
}
