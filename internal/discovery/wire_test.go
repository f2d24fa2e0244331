package discovery

import "testing"

func TestIdentifyRoundTrip(t *testing.T) {
	id := NewIdentify()
	id.SetAddress(5)
	id.SetAddress(200)

	got, err := DecodeIdentify(EncodeIdentify(id))
	if err != nil {
		t.Fatalf("DecodeIdentify: %v", err)
	}
	if got != id {
		t.Fatalf("DecodeIdentify() = %+v, want %+v", got, id)
	}
}

func TestIdentifiedRoundTrip(t *testing.T) {
	want := Identified{ServerAddress: 12, ServerPorts: 0x3}
	got, err := DecodeIdentified(EncodeIdentified(want))
	if err != nil {
		t.Fatalf("DecodeIdentified: %v", err)
	}
	if got != want {
		t.Fatalf("DecodeIdentified() = %+v, want %+v", got, want)
	}
}
