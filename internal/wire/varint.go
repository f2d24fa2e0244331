package wire

import "encoding/binary"

// PutUvarint appends v to buf using the same base-128 varint encoding as
// encoding/binary.PutUvarint: values below 128 encode as a single byte,
// larger ones take one more byte per further 7 bits.
func PutUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// TakeUvarint decodes a varint from the front of data, returning the value
// and the remaining bytes.
func TakeUvarint(data []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, nil, errShortVarint
	}
	return v, data[n:], nil
}

var errShortVarint = errShort("wire: truncated varint")

type errShort string

func (e errShort) Error() string { return string(e) }
