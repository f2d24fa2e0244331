// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package wire

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// keySalt is a fixed, public PBKDF2 salt: this is fine because the shared
// secret is the pre-provisioned passphrase, not the salt.
const keySalt = "flip-flop"

// NewAEAD builds the AES-128-CCM AEAD used for every frame on the bus: a
// 7-byte nonce and a 4-byte tag. key must be at least 16
// bytes; only the first 16 are used.
func NewAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) < 16 {
		return nil, errors.New("wire: key must be at least 16 bytes")
	}
	block, err := aes.NewCipher(key[:16])
	if err != nil {
		return nil, errors.Wrap(err, "wire: building AES block cipher")
	}
	aead, err := cipher.NewCCMWithNonceAndTagSize(block, NonceSize, MICSize)
	if err != nil {
		return nil, errors.Wrap(err, "wire: building AES-128-CCM AEAD")
	}
	return aead, nil
}

// DeriveKey expands an operator-supplied passphrase into a 16-byte AES key
// using PBKDF2-HMAC-SHA1, the same expansion a `-key` CLI flag gets before
// being handed to a block cipher constructor.
func DeriveKey(passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(keySalt), 4096, 16, sha1.New)
}
