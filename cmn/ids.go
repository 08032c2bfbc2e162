package cmn

import (
	"crypto/rand"
	"encoding/hex"
)

// KeySize is the length in bytes of a file's random distribution key
// (spec.md section 3: "key (16 random bytes)").
const KeySize = 16

// NewFileKey returns a fresh 16-byte random key for a newly distributed
// file, suitable for crypto.DeriveKey.
func NewFileKey() []byte {
	b := make([]byte, KeySize)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the OS entropy source is broken;
		// there is no sane fallback for a distribution key.
		panic("cmn: failed to read random bytes: " + err.Error())
	}
	return b
}

// NewTaskID returns a short random hex identifier for a distribute,
// restore, or reconstruct task.
func NewTaskID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic("cmn: failed to read random bytes: " + err.Error())
	}
	return hex.EncodeToString(b)
}
