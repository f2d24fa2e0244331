package wire

// DeriveNonce builds the 7-byte CCM nonce from the 4 packed header bytes and
// the plaintext length:
//
//	[0x01, h0, h1, h2, h3, plaintext_len, 0x00]
//
// plaintextLen is saturated to a single byte; MinPayloadSize (32) never comes
// close to overflowing it.
func DeriveNonce(headerBytes [HeaderSize]byte, plaintextLen int) [NonceSize]byte {
	var n [NonceSize]byte
	n[0] = 0x01
	copy(n[1:5], headerBytes[:])
	if plaintextLen > 0xFF {
		plaintextLen = 0xFF
	}
	n[5] = byte(plaintextLen)
	n[6] = 0x00
	return n
}
