//go:build !unix

package daemon

// diskUsage has no portable implementation outside unix-like systems;
// callers log and skip the disk_state reply rather than fail the
// connection.
func diskUsage(path string) (total, free uint64, err error) {
	return 0, 0, errUnsupportedPlatform
}

var errUnsupportedPlatform = platformError("disk usage probing not supported on this platform")

type platformError string

func (e platformError) Error() string { return string(e) }
