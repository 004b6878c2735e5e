// info_linux.go - syscall.Stat_t to Info for linux
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

//go:build linux

package bfind

import (
	"io/fs"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func makeInfo(fi *Info, nm string, st *syscall.Stat_t) {
	*fi = Info{
		Ino:  st.Ino,
		Siz:  st.Size,
		Dev:  uint64(st.Dev),
		Rdev: uint64(st.Rdev),

		Blocks:  st.Blocks,
		Blksize: int64(st.Blksize),

		Mod:   fs.FileMode(st.Mode & 0777),
		Uid:   st.Uid,
		Gid:   st.Gid,
		Nlink: uint32(st.Nlink),

		Atim: ts2time(st.Atim),
		Mtim: ts2time(st.Mtim),
		Ctim: ts2time(st.Ctim),

		path: nm,
	}

	switch st.Mode & syscall.S_IFMT {
	case syscall.S_IFBLK:
		fi.Mod |= fs.ModeDevice
	case syscall.S_IFCHR:
		fi.Mod |= fs.ModeDevice | fs.ModeCharDevice
	case syscall.S_IFDIR:
		fi.Mod |= fs.ModeDir
	case syscall.S_IFIFO:
		fi.Mod |= fs.ModeNamedPipe
	case syscall.S_IFLNK:
		fi.Mod |= fs.ModeSymlink
	case syscall.S_IFREG:
		// nothing to do
	case syscall.S_IFSOCK:
		fi.Mod |= fs.ModeSocket
	}
	if st.Mode&syscall.S_ISGID != 0 {
		fi.Mod |= fs.ModeSetgid
	}
	if st.Mode&syscall.S_ISUID != 0 {
		fi.Mod |= fs.ModeSetuid
	}
	if st.Mode&syscall.S_ISVTX != 0 {
		fi.Mod |= fs.ModeSticky
	}

	fillBirthTime(fi, nm)
}

// fillBirthTime asks statx(2) for the birth time; not all file
// systems record one and older kernels lack the call - either way we
// leave Btim zero.
func fillBirthTime(fi *Info, nm string) {
	var stx unix.Statx_t

	err := unix.Statx(unix.AT_FDCWD, nm,
		unix.AT_SYMLINK_NOFOLLOW|unix.AT_STATX_DONT_SYNC,
		unix.STATX_BTIME, &stx)
	if err != nil || stx.Mask&unix.STATX_BTIME == 0 {
		return
	}
	fi.Btim = time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
}
