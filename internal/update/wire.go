package update

import (
	"fmt"

	"github.com/flipflop-proto/flipflop/internal/wire"
)

// EncodePrepareForUpdate serialises msg as:
//
//	major, minor, patch (1 byte each)
//	pre-release flag (0 absent, 1 present) [+ tag byte + number varint]
//	server_ports (1 byte)
//	update_key (16 bytes)
//	update_byte_len (varint)
//	signed (1 byte, 0/1)
func EncodePrepareForUpdate(msg PrepareForUpdate) []byte {
	out := []byte{msg.Version.Major, msg.Version.Minor, msg.Version.Patch}
	if msg.Version.Pre == nil {
		out = append(out, 0)
	} else {
		out = append(out, 1, byte(msg.Version.Pre.Tag))
		out = wire.PutUvarint(out, uint64(msg.Version.Pre.Number))
	}
	out = append(out, msg.ServerPorts)
	out = append(out, msg.UpdateKey[:]...)
	out = wire.PutUvarint(out, uint64(msg.UpdateByteLen))
	if msg.Signed {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	return out
}

// DecodePrepareForUpdate reads back a PrepareForUpdate message.
func DecodePrepareForUpdate(b []byte) (PrepareForUpdate, error) {
	if len(b) < 4 {
		return PrepareForUpdate{}, fmt.Errorf("update: prepare payload too short")
	}
	var msg PrepareForUpdate
	msg.Version.Major, msg.Version.Minor, msg.Version.Patch = b[0], b[1], b[2]
	rest := b[3:]

	hasPre := rest[0]
	rest = rest[1:]
	if hasPre == 1 {
		if len(rest) < 1 {
			return PrepareForUpdate{}, fmt.Errorf("update: truncated pre-release tag")
		}
		tag := PreReleaseTag(rest[0])
		rest = rest[1:]
		number, tail, err := wire.TakeUvarint(rest)
		if err != nil {
			return PrepareForUpdate{}, fmt.Errorf("update: pre-release number: %w", err)
		}
		msg.Version.Pre = &PreRelease{Tag: tag, Number: uint32(number)}
		rest = tail
	}

	if len(rest) < 1+UpdateKeySize {
		return PrepareForUpdate{}, fmt.Errorf("update: truncated prepare payload")
	}
	msg.ServerPorts = rest[0]
	rest = rest[1:]
	copy(msg.UpdateKey[:], rest[:UpdateKeySize])
	rest = rest[UpdateKeySize:]

	length, rest, err := wire.TakeUvarint(rest)
	if err != nil {
		return PrepareForUpdate{}, fmt.Errorf("update: byte length: %w", err)
	}
	msg.UpdateByteLen = uint32(length)

	if len(rest) < 1 {
		return PrepareForUpdate{}, fmt.Errorf("update: truncated signed flag")
	}
	msg.Signed = rest[0] != 0

	return msg, nil
}

// MessageKind tags which of the two update-channel message shapes a
// datagram carries, since both are sent over the same port.
type MessageKind uint8

const (
	MessagePrepare MessageKind = 0
	MessageChunk   MessageKind = 1
)

// EncodePrepareMessage wraps a PrepareForUpdate with its MessagePrepare tag.
func EncodePrepareMessage(msg PrepareForUpdate) []byte {
	return append([]byte{byte(MessagePrepare)}, EncodePrepareForUpdate(msg)...)
}

// EncodeChunkMessage wraps an Update chunk with its MessageChunk tag.
func EncodeChunkMessage(u Update) []byte {
	return append([]byte{byte(MessageChunk)}, EncodeUpdate(u)...)
}

// DecodeMessage reads the leading tag byte and decodes the rest as the
// matching message type.
func DecodeMessage(b []byte) (kind MessageKind, prepare PrepareForUpdate, chunk Update, err error) {
	if len(b) < 1 {
		return 0, PrepareForUpdate{}, Update{}, fmt.Errorf("update: empty message")
	}
	kind = MessageKind(b[0])
	switch kind {
	case MessagePrepare:
		prepare, err = DecodePrepareForUpdate(b[1:])
	case MessageChunk:
		chunk, err = DecodeUpdate(b[1:])
	default:
		err = fmt.Errorf("update: unknown message kind %d", b[0])
	}
	return kind, prepare, chunk, err
}

// EncodeUpdate serialises one chunk as: byte_offset (varint), length
// (1 byte, bounded by MaxChunkBytes), payload bytes.
func EncodeUpdate(u Update) []byte {
	out := wire.PutUvarint(nil, uint64(u.ByteOffset))
	out = append(out, byte(len(u.Bytes)))
	out = append(out, u.Bytes...)
	return out
}

// DecodeUpdate reads back an Update chunk.
func DecodeUpdate(b []byte) (Update, error) {
	offset, rest, err := wire.TakeUvarint(b)
	if err != nil {
		return Update{}, fmt.Errorf("update: byte offset: %w", err)
	}
	if len(rest) < 1 {
		return Update{}, fmt.Errorf("update: truncated chunk length")
	}
	n := int(rest[0])
	rest = rest[1:]
	if len(rest) < n {
		return Update{}, fmt.Errorf("update: chunk shorter than declared length")
	}
	return Update{ByteOffset: uint32(offset), Bytes: rest[:n]}, nil
}
