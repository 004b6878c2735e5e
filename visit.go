// visit.go - the contract between the traversal driver and the evaluator
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
	"strings"
)

// Type describes the type of a file system entry as a bitmask so a
// single -type test can match several.
type Type uint32

const (
	FILE    Type = 1 << iota // regular file
	DIR                      // directory
	SYMLINK                  // symbolic link
	BLKDEV                   // block device
	CHRDEV                   // character device
	FIFO                     // named pipe
	SOCKET                   // unix socket
	UNKNOWN                  // could not be determined

	ALLTYPES = FILE | DIR | SYMLINK | BLKDEV | CHRDEV | FIFO | SOCKET
)

var typNames = map[Type]string{
	FILE:    "File",
	DIR:     "Dir",
	SYMLINK: "Symlink",
	BLKDEV:  "BlkDev",
	CHRDEV:  "ChrDev",
	FIFO:    "Fifo",
	SOCKET:  "Socket",
	UNKNOWN: "Unknown",
}

// Stringer for entry types
func (t Type) String() string {
	var z []string
	for k, v := range typNames {
		if (k & t) > 0 {
			z = append(z, v)
		}
	}
	return strings.Join(z, "|")
}

// StatFlag is the symlink-follow policy of a stat through the visit's
// cached accessor.
type StatFlag uint32

const (
	// NoFollow stats the entry itself, never its symlink target
	NoFollow StatFlag = 1 << iota

	// TryFollow follows the symlink but quietly falls back to the
	// entry itself if the target is unreachable
	TryFollow
)

// VisitOrder says whether a visit is delivered before (PRE) or after
// (POST) a directory's contents.
type VisitOrder int

const (
	PRE VisitOrder = iota
	POST
)

func (v VisitOrder) String() string {
	if v == POST {
		return "post"
	}
	return "pre"
}

// Action is the evaluator's answer to the driver for one visit.
type Action int

const (
	// Continue visiting; descend into directories
	Continue Action = iota

	// do not descend into this directory
	Prune

	// stop the traversal promptly
	Stop
)

var actNames = map[Action]string{
	Continue: "continue",
	Prune:    "prune",
	Stop:     "stop",
}

func (a Action) String() string {
	return actNames[a]
}

// VisitFunc is the per-entry callback the driver invokes.
type VisitFunc func(v *Visit) Action

// Visit is one traversal event. The driver owns it; the evaluator
// borrows it for the duration of the callback.
type Visit struct {
	// directory fd and name relative to it, for *at() syscalls.
	// AtFd is unix.AT_FDCWD when AtPath is the full path.
	AtFd   int
	AtPath string

	// full path to the entry; the basename starts at NameOff
	Path    string
	NameOff int

	// the command line argument this entry was found under
	Root string

	// number of path components below Root
	Depth int

	Order    VisitOrder
	Typeflag Type

	// follow policy in effect for this entry
	StatFlags StatFlag

	// error reported by the driver for this entry, if any
	Err error

	stat  statCache // follow
	lstat statCache // nofollow
}

type statCache struct {
	fi   *Info
	err  error
	done bool
}

// Name returns the basename of the visit's path.
func (v *Visit) Name() string {
	return v.Path[v.NameOff:]
}

// Stat returns the entry's metadata honouring the follow policy in
// 'flags'. Results (and failures) are cached for the duration of the
// visit.
func (v *Visit) Stat(flags StatFlag) (*Info, error) {
	if flags&NoFollow > 0 {
		return v.lstatCached()
	}

	fi, err := v.statCached()
	if err != nil && flags&TryFollow > 0 {
		return v.lstatCached()
	}
	return fi, err
}

func (v *Visit) statCached() (*Info, error) {
	c := &v.stat
	if !c.done {
		var fi Info
		c.err = Statm(v.Path, &fi)
		if c.err == nil {
			c.fi = &fi
		}
		c.done = true
	}
	return c.fi, c.err
}

func (v *Visit) lstatCached() (*Info, error) {
	c := &v.lstat
	if !c.done {
		var fi Info
		c.err = Lstatm(v.Path, &fi)
		if c.err == nil {
			c.fi = &fi
		}
		c.done = true
	}
	return c.fi, c.err
}

// SetStat primes the follow-policy stat cache; the driver uses it to
// hand over metadata it already fetched.
func (v *Visit) SetStat(fi *Info, err error) {
	v.stat = statCache{fi: fi, err: err, done: true}
}

// SetLstat primes the nofollow stat cache.
func (v *Visit) SetLstat(fi *Info, err error) {
	v.lstat = statCache{fi: fi, err: err, done: true}
}

// TypeOf resolves the entry's type under 'flags', consulting the stat
// caches when the dirent-provided typeflag is not enough. A symlink
// typeflag with a follow policy resolves to the target's type.
func (v *Visit) TypeOf(flags StatFlag) (Type, error) {
	if flags&NoFollow > 0 {
		if v.Typeflag != UNKNOWN {
			return v.Typeflag, nil
		}
		fi, err := v.Stat(NoFollow)
		if err != nil {
			return UNKNOWN, err
		}
		return typeOf(fi.Mode()), nil
	}

	fi, err := v.Stat(flags)
	if err != nil {
		return UNKNOWN, err
	}
	return typeOf(fi.Mode()), nil
}
