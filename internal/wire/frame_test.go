package wire

import (
	"bytes"
	"crypto/cipher"
	"errors"
	"testing"
)

func mustAEAD(t *testing.T, key []byte) cipher.AEAD {
	t.Helper()
	aead, err := NewAEAD(key)
	if err != nil {
		t.Fatalf("NewAEAD: %v", err)
	}
	return aead
}

func TestToDatagramScenario(t *testing.T) {
	h := Header{Source: SourceServer, ServerAddress: 255, ServerPort: 7, FrameCounter: 1}
	aead := mustAEAD(t, []byte("0123456789ABCDEF"))

	datagram, err := ToDatagram(h, []byte("some data"), aead)
	if err != nil {
		t.Fatalf("ToDatagram: %v", err)
	}

	if !bytes.HasPrefix(datagram, []byte{0x00, 0x01, 0x3F, 0xFC, 13}) {
		t.Fatalf("datagram prefix = %v, want header+length-prefix [0 1 63 252 13 ...]", datagram[:5])
	}

	gotHeader, plaintext, err := FromDatagram(datagram, func(Header) bool { return true }, aead)
	if err != nil {
		t.Fatalf("FromDatagram: %v", err)
	}
	if gotHeader != h {
		t.Fatalf("header mismatch: got %+v, want %+v", gotHeader, h)
	}
	if string(plaintext) != "some data" {
		t.Fatalf("plaintext = %q, want %q", plaintext, "some data")
	}
}

func TestFrameRoundTrip(t *testing.T) {
	aead := mustAEAD(t, []byte("0123456789ABCDEF"))
	payloads := [][]byte{
		nil,
		[]byte("x"),
		bytes.Repeat([]byte("a"), MinPayloadSize),
	}
	for _, p := range payloads {
		h := Header{Source: SourceClient, ServerAddress: 42, ServerPort: 3, FrameCounter: 7}
		dgram, err := ToDatagram(h, p, aead)
		if err != nil {
			t.Fatalf("ToDatagram: %v", err)
		}
		gotHeader, gotPlain, err := FromDatagram(dgram, func(Header) bool { return true }, aead)
		if err != nil {
			t.Fatalf("FromDatagram: %v", err)
		}
		if gotHeader != h {
			t.Fatalf("header mismatch: got %+v, want %+v", gotHeader, h)
		}
		if !bytes.Equal(gotPlain, p) && !(len(gotPlain) == 0 && len(p) == 0) {
			t.Fatalf("plaintext mismatch: got %v, want %v", gotPlain, p)
		}
	}
}

func TestFromDatagramFilterRejects(t *testing.T) {
	aead := mustAEAD(t, []byte("0123456789ABCDEF"))
	h := Header{Source: SourceClient, ServerAddress: 1, ServerPort: 0, FrameCounter: 0}
	dgram, _ := ToDatagram(h, []byte("hi"), aead)

	_, _, err := FromDatagram(dgram, func(Header) bool { return false }, aead)
	if !errors.Is(err, ErrFilterDoesNotMatch) {
		t.Fatalf("err = %v, want ErrFilterDoesNotMatch", err)
	}
}

func TestFromDatagramBadHeaderVersion(t *testing.T) {
	aead := mustAEAD(t, []byte("0123456789ABCDEF"))
	h := Header{Source: SourceClient, ServerAddress: 1, ServerPort: 0, FrameCounter: 0}
	dgram, _ := ToDatagram(h, []byte("hi"), aead)
	dgram[3] |= 0x01 // corrupt version bits

	_, _, err := FromDatagram(dgram, func(Header) bool { return true }, aead)
	if !errors.Is(err, ErrCannotParseHeader) {
		t.Fatalf("err = %v, want ErrCannotParseHeader", err)
	}
}

func TestFromDatagramTruncated(t *testing.T) {
	aead := mustAEAD(t, []byte("0123456789ABCDEF"))
	_, _, err := FromDatagram([]byte{0, 0}, func(Header) bool { return true }, aead)
	if !errors.Is(err, ErrCannotParseDataFrame) {
		t.Fatalf("err = %v, want ErrCannotParseDataFrame", err)
	}
}

func TestAEADSensitivity(t *testing.T) {
	aead := mustAEAD(t, []byte("0123456789ABCDEF"))
	h := Header{Source: SourceServer, ServerAddress: 9, ServerPort: 2, FrameCounter: 3}
	dgram, err := ToDatagram(h, []byte("payload-bytes"), aead)
	if err != nil {
		t.Fatalf("ToDatagram: %v", err)
	}

	for i := HeaderSize + 1; i < len(dgram); i++ {
		corrupted := append([]byte(nil), dgram...)
		corrupted[i] ^= 0x01
		if _, _, err := FromDatagram(corrupted, func(Header) bool { return true }, aead); !errors.Is(err, ErrCannotDecrypt) {
			t.Fatalf("byte %d: expected ErrCannotDecrypt, got %v", i, err)
		}
	}

	for i := 0; i < HeaderSize; i++ {
		corrupted := append([]byte(nil), dgram...)
		corrupted[i] ^= 0x01
		_, _, err := FromDatagram(corrupted, func(Header) bool { return true }, aead)
		if err == nil {
			t.Fatalf("byte %d: expected some failure from AAD corruption", i)
		}
	}
}

func TestNonceUniqueness(t *testing.T) {
	h1 := Header{Source: SourceClient, ServerAddress: 5, ServerPort: 1, FrameCounter: 1}
	h2 := Header{Source: SourceClient, ServerAddress: 5, ServerPort: 1, FrameCounter: 2}
	n1 := DeriveNonce(h1.Pack(), 9)
	n2 := DeriveNonce(h2.Pack(), 9)
	if n1 == n2 {
		t.Fatalf("nonces should differ when frame_counter differs")
	}
}
