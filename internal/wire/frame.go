package wire

import (
	"crypto/cipher"

	"github.com/pkg/errors"
)

// The four distinct error families a datagram can fail with. Callers use errors.Is
// against these sentinels; they are never collapsed into one generic error.
var (
	ErrCannotParseDataFrame = errors.New("wire: cannot parse data frame")
	ErrCannotParseHeader    = errors.New("wire: cannot parse header")
	ErrFilterDoesNotMatch   = errors.New("wire: filter does not match")
	ErrCannotDecrypt        = errors.New("wire: cannot decrypt")
)

// ToDatagram encrypts plaintext under aead using the nonce/AAD construction
// and serialises the result as
//
//	[4-byte header][varint length of ciphertext+tag][ciphertext][tag]
//
// This is the "byte-efficient, deterministic, round-tripping" scheme spec
// this format leaves to the implementer; see DESIGN.md for why a varint length
// prefix was chosen over the reference's abstract HeaderSize accounting.
func ToDatagram(h Header, plaintext []byte, aead cipher.AEAD) ([]byte, error) {
	headerBytes := h.Pack()
	nonce := DeriveNonce(headerBytes, len(plaintext))

	ciphertext := aead.Seal(nil, nonce[:], plaintext, headerBytes[:])

	out := make([]byte, 0, HeaderSize+LengthPrefixMaxSize+len(ciphertext))
	out = append(out, headerBytes[:]...)
	out = PutUvarint(out, uint64(len(ciphertext)))
	out = append(out, ciphertext...)
	return out, nil
}

// FromDatagram performs, in order, the four steps of the
// from_datagram: parse the outer frame, parse the header, apply filter, then
// decrypt. Each failure returns a distinct sentinel error.
func FromDatagram(buf []byte, filter func(Header) bool, aead cipher.AEAD) (Header, []byte, error) {
	if len(buf) < HeaderSize {
		return Header{}, nil, errors.Wrap(ErrCannotParseDataFrame, "buffer shorter than header")
	}
	var headerBytes [HeaderSize]byte
	copy(headerBytes[:], buf[:HeaderSize])

	length, rest, err := TakeUvarint(buf[HeaderSize:])
	if err != nil {
		return Header{}, nil, errors.Wrap(ErrCannotParseDataFrame, err.Error())
	}
	if uint64(len(rest)) < length {
		return Header{}, nil, errors.Wrap(ErrCannotParseDataFrame, "ciphertext shorter than declared length")
	}
	ciphertext := rest[:length]

	h, err := ParseHeader(headerBytes[:])
	if err != nil {
		return Header{}, nil, errors.Wrap(ErrCannotParseHeader, err.Error())
	}

	if filter != nil && !filter(h) {
		return Header{}, nil, ErrFilterDoesNotMatch
	}

	plaintextLen := len(ciphertext) - MICSize
	if plaintextLen < 0 {
		plaintextLen = 0
	}
	nonce := DeriveNonce(headerBytes, plaintextLen)

	plaintext, err := aead.Open(nil, nonce[:], ciphertext, headerBytes[:])
	if err != nil {
		return Header{}, nil, errors.Wrap(ErrCannotDecrypt, err.Error())
	}

	return h, plaintext, nil
}
