package update

import (
	"bytes"
	"testing"
)

func TestDecodeMessageDispatchesOnTag(t *testing.T) {
	prep := PrepareForUpdate{Version: Version{Major: 2}, ServerPorts: 1, UpdateByteLen: 10}
	kind, gotPrep, _, err := DecodeMessage(EncodePrepareMessage(prep))
	if err != nil {
		t.Fatalf("DecodeMessage(prepare): %v", err)
	}
	if kind != MessagePrepare || gotPrep.Version.Compare(prep.Version) != 0 {
		t.Fatalf("DecodeMessage(prepare) = kind %v, prep %+v", kind, gotPrep)
	}

	chunk := Update{ByteOffset: 8, Bytes: []byte("abc")}
	kind, _, gotChunk, err := DecodeMessage(EncodeChunkMessage(chunk))
	if err != nil {
		t.Fatalf("DecodeMessage(chunk): %v", err)
	}
	if kind != MessageChunk || gotChunk.ByteOffset != chunk.ByteOffset || !bytes.Equal(gotChunk.Bytes, chunk.Bytes) {
		t.Fatalf("DecodeMessage(chunk) = kind %v, chunk %+v", kind, gotChunk)
	}
}
