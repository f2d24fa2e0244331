package wire

import (
	"math/rand"
	"testing"
)

func TestHeaderPackScenario(t *testing.T) {
	h := Header{Source: SourceServer, ServerAddress: 255, ServerPort: 7, FrameCounter: 1}
	got := h.Pack()
	want := [HeaderSize]byte{0x00, 0x01, 0x3F, 0xFC}
	if got != want {
		t.Fatalf("Pack() = %v, want %v", got, want)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		h := Header{
			Source:        Source(rng.Intn(2)),
			ServerAddress: uint8(rng.Intn(256)),
			ServerPort:    uint8(rng.Intn(8)),
			FrameCounter:  uint16(rng.Intn(65536)),
		}
		packed := h.Pack()
		got, err := ParseHeader(packed[:])
		if err != nil {
			t.Fatalf("ParseHeader: %v", err)
		}
		if got != h {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
		}
	}
}

func TestParseHeaderRejectsVersion(t *testing.T) {
	b := []byte{0x00, 0x00, 0x00, 0x01} // version bits = 01
	if _, err := ParseHeader(b); err == nil {
		t.Fatalf("expected version rejection")
	}
}

func TestParseHeaderRejectsReservedBits(t *testing.T) {
	h := Header{Source: SourceClient, ServerAddress: 1, ServerPort: 1, FrameCounter: 0}
	packed := h.Pack()
	packed[2] |= 0x40 // set a reserved bit (bit 14)
	if _, err := ParseHeader(packed[:]); err == nil {
		t.Fatalf("expected reserved-bit rejection")
	}
}

func TestParseHeaderShortBuffer(t *testing.T) {
	if _, err := ParseHeader([]byte{0, 1, 2}); err == nil {
		t.Fatalf("expected error for short buffer")
	}
}
