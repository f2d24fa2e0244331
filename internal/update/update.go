package update

import "fmt"

// UpdateKeySize is the fixed size of an UpdateKey in bytes.
const UpdateKeySize = 16

// UpdateKey is an opaque symmetric key used to encrypt one update stream.
// It deliberately never prints its bytes.
type UpdateKey [UpdateKeySize]byte

// String and GoString both redact the key contents, so a stray %v/%s in a
// log line or test failure message never leaks key material.
func (UpdateKey) String() string   { return "UpdateKey(XXX)" }
func (UpdateKey) GoString() string { return "UpdateKey(XXX)" }

// PrepareForUpdate is the unicast message a client sends each target
// server before streaming update bytes.
type PrepareForUpdate struct {
	Version       Version
	ServerPorts   uint8
	UpdateKey     UpdateKey
	UpdateByteLen uint32
	Signed        bool
}

// UpdateBytesOverhead is the per-chunk budget for bytes that aren't
// payload: a 4-byte offset plus a 1-byte length prefix. EncodeUpdate
// writes the offset as a varint, which takes 1 to 5 bytes.
const UpdateBytesOverhead = 5

// MaxChunkBytes is the largest payload an Update chunk may carry: 127
// less UpdateBytesOverhead.
const MaxChunkBytes = 122

// Update is one chunk of the streamed update: the byte offset it starts
// at, plus up to MaxChunkBytes payload bytes.
type Update struct {
	ByteOffset uint32
	Bytes      []byte
}

// Validate reports an error if u's payload exceeds the wire limit.
func (u Update) Validate() error {
	if len(u.Bytes) > MaxChunkBytes {
		return fmt.Errorf("update: chunk of %d bytes exceeds MaxChunkBytes (%d)", len(u.Bytes), MaxChunkBytes)
	}
	return nil
}
