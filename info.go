// info.go - normalized stat(2) metadata for the evaluator
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
	"fmt"
	"io/fs"
	"path/filepath"
	"syscall"
	"time"
)

// Info represents a file/dir metadata in a normalized form.
// It satisfies the fs.FileInfo interface and carries everything the
// predicate library reads: identity, sizes (including the allocated
// block count), ownership, link count and all four timestamps.
type Info struct {
	Ino  uint64
	Siz  int64
	Dev  uint64
	Rdev uint64

	// allocated size in 512-byte blocks, and the preferred io size
	Blocks  int64
	Blksize int64

	Mod   fs.FileMode
	Uid   uint32
	Gid   uint32
	Nlink uint32

	Atim time.Time
	Mtim time.Time
	Ctim time.Time

	// birth time; zero when the platform can't provide one
	Btim time.Time

	path string
}

var _ fs.FileInfo = &Info{}

// Stat is like os.Stat() in our normalized form
func Stat(nm string) (*Info, error) {
	var ii Info
	if err := Statm(nm, &ii); err != nil {
		return nil, err
	}
	return &ii, nil
}

// Statm is like Stat above - except it uses caller
// supplied memory for the stat(2) info
func Statm(nm string, fi *Info) error {
	var st syscall.Stat_t

	if err := syscall.Stat(nm, &st); err != nil {
		return err
	}

	makeInfo(fi, nm, &st)
	return nil
}

// Lstat is like os.Lstat() in our normalized form
func Lstat(nm string) (*Info, error) {
	var ii Info
	if err := Lstatm(nm, &ii); err != nil {
		return nil, err
	}
	return &ii, nil
}

// Lstatm is like Lstat except it uses the caller
// supplied memory.
func Lstatm(nm string, fi *Info) error {
	var st syscall.Stat_t
	if err := syscall.Lstat(nm, &st); err != nil {
		return err
	}

	makeInfo(fi, nm, &st)
	return nil
}

// Timestamp returns the stat timestamp selected by 'f'.
func (ii *Info) Timestamp(f TimeField) time.Time {
	switch f {
	case ATime:
		return ii.Atim
	case BTime:
		return ii.Btim
	case CTime:
		return ii.Ctim
	}
	return ii.Mtim
}

// String is a string representation of Info
func (ii *Info) String() string {
	return fmt.Sprintf("%s: %d %d; %s; %s", ii.Name(), ii.Siz, ii.Nlink, ii.ModTime().UTC(), ii.Mode().String())
}

// Path returns the relative path of this file ("relative" to current working dir
// of the calling process).
func (ii *Info) Path() string {
	return ii.path
}

// SetPath sets the path to 'p'
func (ii *Info) SetPath(p string) {
	ii.path = p
}

// fs.FileInfo methods of Info

// Name satisfies fs.FileInfo and returns the basename of the fs entry.
func (ii *Info) Name() string {
	return filepath.Base(ii.path)
}

// Size returns the fs entry's size
func (ii *Info) Size() int64 {
	return ii.Siz
}

// Mode returns the file mode bits
func (ii *Info) Mode() fs.FileMode {
	return fs.FileMode(ii.Mod)
}

// ModTime returns the file modification time
func (ii *Info) ModTime() time.Time {
	return ii.Mtim
}

// IsDir returns true if this Info represents a directory entry
func (ii *Info) IsDir() bool {
	m := ii.Mode()
	return m.IsDir()
}

// IsRegular returns true if this Info represents a regular file
func (ii *Info) IsRegular() bool {
	m := ii.Mode()
	return m.IsRegular()
}

// IsSameFS returns true if a and b represent file entries on the
// same file system
func (a *Info) IsSameFS(b *Info) bool {
	if a.Dev == b.Dev && a.Rdev == b.Rdev {
		return true
	}
	return false
}

// Sys returns the platform specific info - in our case it
// returns a pointer to the underlying Info instance.
func (ii *Info) Sys() any {
	return ii
}

// PermBits returns the permission bits of the entry in the
// traditional unix encoding (07777: rwx + setuid/setgid/sticky).
func (ii *Info) PermBits() uint32 {
	m := ii.Mode()

	bits := uint32(m.Perm())
	if m&fs.ModeSetuid > 0 {
		bits |= 04000
	}
	if m&fs.ModeSetgid > 0 {
		bits |= 02000
	}
	if m&fs.ModeSticky > 0 {
		bits |= 01000
	}
	return bits
}

// TypeFromMode maps a file mode to the evaluator's type mask.
func TypeFromMode(m fs.FileMode) Type {
	return typeOf(m)
}

// typeOf maps a file mode to the evaluator's type mask.
func typeOf(m fs.FileMode) Type {
	switch {
	case m.IsRegular():
		return FILE
	case m.IsDir():
		return DIR
	case m&fs.ModeSymlink > 0:
		return SYMLINK
	case m&fs.ModeCharDevice > 0:
		return CHRDEV
	case m&fs.ModeDevice > 0:
		return BLKDEV
	case m&fs.ModeNamedPipe > 0:
		return FIFO
	case m&fs.ModeSocket > 0:
		return SOCKET
	}
	return UNKNOWN
}

func ts2time(a syscall.Timespec) time.Time {
	t := time.Unix(a.Sec, a.Nsec)
	return t
}
