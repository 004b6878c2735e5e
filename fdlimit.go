// fdlimit.go - open file descriptor budget for the traversal
//
// (c) 2025- Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package bfind

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallback when the rlimit can't be read or is unlimited
const defaultNoFile = 4096

// MaxOpenFiles computes how many fds the traversal driver may keep
// open: the soft RLIMIT_NOFILE minus the std streams, minus fds we
// inherited already open, minus the expression's declared needs.
// Never less than 2.
func MaxOpenFiles(e *Expr) int {
	lim := defaultNoFile

	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err == nil {
		if rl.Cur < 1<<31 {
			lim = int(rl.Cur)
		}
	}

	lim -= 3
	if n := countOpenFds(); n > 3 {
		lim -= n - 3
	}

	persistent, ephemeral := e.FdCount()
	lim -= persistent + ephemeral

	if lim < 2 {
		lim = 2
	}
	return lim
}

// countOpenFds counts the process' open descriptors via
// /proc/self/fd, falling back to /dev/fd. The fd opened for the
// listing itself is not counted.
func countOpenFds() int {
	for _, dir := range []string{"/proc/self/fd", "/dev/fd"} {
		names, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		n := len(names) - 1
		if n < 0 {
			n = 0
		}
		return n
	}
	return 0
}
