package app

import "errors"

// stringCodec is a minimal Codec[string, string] used across this
// package's tests: a command is a raw string, its length implied by the
// rest of the buffer; an event is a one-byte length followed by the
// string, so a Logged event's trailing offset can follow it.
type stringCodec struct{}

func (stringCodec) EncodeCommand(c string) []byte { return []byte(c) }

func (stringCodec) DecodeCommand(b []byte) (string, int, error) {
	return string(b), len(b), nil
}

func (stringCodec) EncodeEvent(e string) []byte { return append([]byte{byte(len(e))}, e...) }

func (stringCodec) DecodeEvent(b []byte) (string, int, error) {
	if len(b) == 0 || len(b)-1 < int(b[0]) {
		return "", 0, errEmptyByte
	}
	n := int(b[0])
	return string(b[1 : 1+n]), 1 + n, nil
}

// byteCodec encodes commands/events as a single byte each, used to mirror
// the simplest possible single-byte command/event enumeration.
type byteCodec struct{}

func (byteCodec) EncodeCommand(c byte) []byte { return []byte{c} }

func (byteCodec) DecodeCommand(b []byte) (byte, int, error) {
	if len(b) == 0 {
		return 0, 0, errEmptyByte
	}
	return b[0], 1, nil
}

func (byteCodec) EncodeEvent(e byte) []byte { return []byte{e} }

func (byteCodec) DecodeEvent(b []byte) (byte, int, error) {
	if len(b) == 0 {
		return 0, 0, errEmptyByte
	}
	return b[0], 1, nil
}

// unitCodec's event payload encodes to zero bytes, matching scenario 4's
// Logged event where the payload itself carries no wire bytes and only the
// trailing offset varint follows the tag.
type unitCodec struct{}

type unit struct{}

func (unitCodec) EncodeCommand(c unit) []byte           { return nil }
func (unitCodec) DecodeCommand(b []byte) (unit, int, error) { return unit{}, 0, nil }
func (unitCodec) EncodeEvent(e unit) []byte             { return nil }
func (unitCodec) DecodeEvent(b []byte) (unit, int, error)   { return unit{}, 0, nil }

var errEmptyByte = errors.New("app test: empty byte payload")
