package crypto

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := DeriveKey([]byte("some-16-byte-key"))
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	ciphertext, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("ciphertext equals plaintext")
	}
	if len(ciphertext) != len(plaintext) {
		t.Fatalf("encryption is not length-preserving: got %d want %d", len(ciphertext), len(plaintext))
	}

	decrypted, err := Decrypt(key, ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", decrypted, plaintext)
	}
}

func TestDeriveKeyIsHexAlphabet(t *testing.T) {
	key := DeriveKey([]byte("seed"))
	if len(key) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(key))
	}
	for _, b := range key {
		isHexDigit := (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f')
		if !isHexDigit {
			t.Fatalf("key byte %q is not a hex digit", b)
		}
	}
}

func TestXorPadZeroPadsShorterOperands(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03}
	b := []byte{0xFF}
	got := XorPad(a, b)
	want := []byte{0x01 ^ 0xFF, 0x02, 0x03}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x want %x", got, want)
	}
}

func TestXorPadAssociativeAndCommutative(t *testing.T) {
	a := []byte{1, 2, 3, 4}
	b := []byte{5, 6}
	c := []byte{7, 8, 9}

	left := XorPad(XorPad(a, b), c)
	right := XorPad(a, XorPad(b, c))
	all := XorPad(a, b, c)
	commuted := XorPad(c, a, b)

	if !bytes.Equal(left, right) || !bytes.Equal(left, all) || !bytes.Equal(left, commuted) {
		t.Fatalf("xor_pad not associative/commutative: left=%x right=%x all=%x commuted=%x", left, right, all, commuted)
	}
}

// TestXorPadReconstructsMissingOperand exercises P9's practical use:
// reconstructing one missing block from a group's parity and the rest.
func TestXorPadReconstructsMissingOperand(t *testing.T) {
	block1 := []byte("alpha-block-content")
	block2 := []byte("beta")
	block3 := []byte("gamma-block-content-longer")

	parity := XorPad(block1, block2, block3)

	// reconstruct block2 from parity and the other two
	reconstructed := XorPad(parity, block1, block3)
	// reconstructed is zero-padded to the length of the longest block;
	// trim back to block2's original length before comparing.
	if !bytes.Equal(reconstructed[:len(block2)], block2) {
		t.Fatalf("reconstructed %x, want prefix %x", reconstructed, block2)
	}
}
