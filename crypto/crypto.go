// Package crypto provides the block cipher, hashing, and XOR-parity
// primitives the distribute and restore engines build on (spec.md
// section 4.2). It is grounded on the teacher's own habit of wrapping
// crypto/sha256 directly for object checksumming (cmn.Cksum) rather
// than reaching for a third-party hashing/cipher library — there is
// none in the retrieved corpus for this concern.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
)

// DeriveKey reproduces the source's key derivation exactly: SHA-256 of
// the seed, then the first 32 *hex characters* of the digest taken as
// ASCII bytes. This draws the AES-256 key from a 16-character alphabet
// ('0'-'9','a'-'f') instead of all 256 byte values a raw digest
// would give — a known weakness of the original design, preserved here
// only for behavioral fidelity (spec.md section 9, Open Questions).
func DeriveKey(seed []byte) []byte {
	sum := sha256.Sum256(seed)
	hexDigest := hex.EncodeToString(sum[:])
	return []byte(hexDigest[:32])
}

// DeriveKeyStrong is the non-weakened alternative spec.md section 9
// says an implementer MAY use instead of DeriveKey: the raw 32-byte
// SHA-256 digest. Not used by default because it breaks bit-compat
// with the source's wire format; kept here for an operator who opts in.
func DeriveKeyStrong(seed []byte) []byte {
	sum := sha256.Sum256(seed)
	return sum[:]
}

// Encrypt runs AES-256-CTR over plaintext with an all-zero nonce, so
// every call with the same key uses the same keystream. Each distributed
// file gets its own random key (DeriveKey's input), but all of that
// file's data and metadata blocks are encrypted under that one key and
// this one nonce. Flagged per spec.md section 9.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	return xorStream(key, plaintext)
}

// Decrypt is identical to Encrypt: CTR mode is its own inverse.
func Decrypt(key, ciphertext []byte) ([]byte, error) {
	return xorStream(key, ciphertext)
}

func xorStream(key, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	var nonce [aes.BlockSize]byte
	stream := cipher.NewCTR(block, nonce[:])
	out := make([]byte, len(in))
	stream.XORKeyStream(out, in)
	return out, nil
}

// HashHex returns the lowercase hex SHA-256 digest of b, the per-block
// content hash stored in a parity group's metadata (spec.md section 3).
func HashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// XorPad returns the bytewise XOR of all inputs, each zero-padded on
// the right to the length of the longest operand (spec.md section 4.2).
// It is associative and commutative (P9): XorPad(XorPad(a,b),c) ==
// XorPad(a,XorPad(b,c)) == XorPad(a,b,c), and reconstructing any one
// operand from the XOR of its group's parity and the remaining
// operands yields that operand back byte-for-byte.
func XorPad(parts ...[]byte) []byte {
	maxLen := 0
	for _, p := range parts {
		if len(p) > maxLen {
			maxLen = len(p)
		}
	}
	out := make([]byte, maxLen)
	for _, p := range parts {
		for i, b := range p {
			out[i] ^= b
		}
	}
	return out
}
