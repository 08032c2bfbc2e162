//go:build !unix

package cmn

import "io"

// IsIOError is a conservative fallback on platforms without syscall
// errno classification: only a short write is treated as severe.
func IsIOError(err error) bool {
	return err != nil && err == io.ErrShortWrite
}
