package update

import (
	"bytes"
	"testing"
)

func TestPrepareForUpdateRoundTrip(t *testing.T) {
	var key UpdateKey
	copy(key[:], []byte("0123456789abcdef"))
	want := PrepareForUpdate{
		Version:       Version{Major: 1, Minor: 2, Patch: 3, Pre: &PreRelease{Tag: Beta, Number: 7}},
		ServerPorts:   0x5,
		UpdateKey:     key,
		UpdateByteLen: 100000,
		Signed:        true,
	}
	got, err := DecodePrepareForUpdate(EncodePrepareForUpdate(want))
	if err != nil {
		t.Fatalf("DecodePrepareForUpdate: %v", err)
	}
	if got.Version.Compare(want.Version) != 0 || got.ServerPorts != want.ServerPorts ||
		got.UpdateKey != want.UpdateKey || got.UpdateByteLen != want.UpdateByteLen || got.Signed != want.Signed {
		t.Fatalf("DecodePrepareForUpdate() = %+v, want %+v", got, want)
	}
}

func TestPrepareForUpdateNoPreReleaseRoundTrip(t *testing.T) {
	want := PrepareForUpdate{Version: Version{Major: 1}, ServerPorts: 1, UpdateByteLen: 4}
	got, err := DecodePrepareForUpdate(EncodePrepareForUpdate(want))
	if err != nil {
		t.Fatalf("DecodePrepareForUpdate: %v", err)
	}
	if got.Version.Pre != nil {
		t.Fatalf("got.Version.Pre = %+v, want nil", got.Version.Pre)
	}
}

func TestUpdateChunkRoundTrip(t *testing.T) {
	want := Update{ByteOffset: 4096, Bytes: []byte("hello update")}
	got, err := DecodeUpdate(EncodeUpdate(want))
	if err != nil {
		t.Fatalf("DecodeUpdate: %v", err)
	}
	if got.ByteOffset != want.ByteOffset || !bytes.Equal(got.Bytes, want.Bytes) {
		t.Fatalf("DecodeUpdate() = %+v, want %+v", got, want)
	}
}
