// pred.go - the predicate library: stateless per-file tests
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
	"io"
	"os"
	"errors"
	"path"
	"strings"

	"golang.org/x/sys/unix"
)

// cmpNum is the shared three-way compare behind every numeric test.
func cmpNum(cmp Cmp, n, ref int64) bool {
	switch cmp {
	case CmpLess:
		return n < ref
	case CmpMore:
		return n > ref
	}
	return n == ref
}

// matchGlob matches 'nm' against the shell glob 'pat', optionally
// case-folded. A malformed pattern is reported by the caller.
func matchGlob(pat, nm string, fold bool) (bool, error) {
	if fold {
		pat = strings.ToLower(pat)
		nm = strings.ToLower(nm)
	}
	return path.Match(pat, nm)
}

// Tristate is the result of a platform feature probe: the caller
// must distinguish "feature absent" from "probe failed".
type Tristate int

const (
	No Tristate = iota
	Yes
	TriError
)

// EvalAccess tests real-uid access; e.Num holds the faccessat mode
// (R_OK, W_OK or X_OK).
func EvalAccess(e *Expr, st *State) bool {
	v := st.V
	err := unix.Faccessat(v.AtFd, v.AtPath, uint32(e.Num), 0)
	return err == nil
}

// EvalAcl tests whether the entry carries a non-trivial ACL.
func EvalAcl(e *Expr, st *State) bool {
	return probe(st, "acl", checkACL)
}

// EvalCapable tests whether the entry carries capabilities.
func EvalCapable(e *Expr, st *State) bool {
	return probe(st, "capable", checkCapable)
}

// EvalXattr tests whether the entry carries extended attributes.
func EvalXattr(e *Expr, st *State) bool {
	return probe(st, "xattr", checkXattr)
}

func probe(st *State, op string, fp func(nm string) (Tristate, error)) bool {
	r, err := fp(st.V.Path)
	switch r {
	case Yes:
		return true
	case TriError:
		st.Report(op, err)
	}
	return false
}

// EvalNewer compares the selected stat timestamp against the node's
// reference time with nanosecond precision; strictly newer wins.
func EvalNewer(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}
	return fi.Timestamp(e.TField).After(e.Ref)
}

// EvalTime is the -mtime/-mmin family: whole units between the
// reference time and the stat time, three-way compared.
func EvalTime(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}

	diff := st.cl.Now.Unix() - fi.Timestamp(e.TField).Unix()
	return cmpNum(e.Cmp, diff/int64(e.TUnit), e.Num)
}

// EvalUsed is -used: whole days between last access and last status
// change.
func EvalUsed(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}

	days := (fi.Atim.Unix() - fi.Ctim.Unix()) / int64(Days)
	return cmpNum(e.Cmp, days, e.Num)
}

// EvalUid is -uid N
func EvalUid(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}
	return cmpNum(e.Cmp, int64(fi.Uid), e.Num)
}

// EvalGid is -gid N
func EvalGid(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}
	return cmpNum(e.Cmp, int64(fi.Gid), e.Num)
}

// EvalInum is -inum N
func EvalInum(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}
	return cmpNum(e.Cmp, int64(fi.Ino), e.Num)
}

// EvalLinks is -links N
func EvalLinks(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}
	return cmpNum(e.Cmp, int64(fi.Nlink), e.Num)
}

// EvalDepth is -depth N: the entry's traversal depth, no stat needed.
func EvalDepth(e *Expr, st *State) bool {
	return cmpNum(e.Cmp, int64(st.V.Depth), e.Num)
}

// EvalNoUser is -nouser: no passwd entry for the owning uid.
func EvalNoUser(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}
	if st.cl.Users == nil {
		st.Report("nouser", errNoIdTable)
		return false
	}

	_, ok := st.cl.Users.Lookup(fi.Uid)
	return !ok
}

// EvalNoGroup is -nogroup: no group entry for the owning gid.
func EvalNoGroup(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}
	if st.cl.Groups == nil {
		st.Report("nogroup", errNoIdTable)
		return false
	}

	_, ok := st.cl.Groups.Lookup(fi.Gid)
	return !ok
}

// EvalEmpty is -empty: a directory with no entries or a regular file
// of size zero.
func EvalEmpty(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}

	switch {
	case fi.IsDir():
		fd, err := os.Open(st.V.Path)
		if err != nil {
			st.Report("opendir", err)
			return false
		}
		defer fd.Close()

		_, err = fd.Readdirnames(1)
		if err == io.EOF {
			return true
		}
		if err != nil {
			st.Report("readdir", err)
		}
		return false

	case fi.IsRegular():
		return fi.Siz == 0
	}
	return false
}

// EvalFstype is -fstype NAME: the mount table's type for the entry's
// device.
func EvalFstype(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}
	if st.cl.Mtab == nil {
		st.Report("fstype", errNoMtab)
		return false
	}
	return st.cl.Mtab.TypeOf(fi.Dev) == e.Str
}

// EvalHidden is -hidden: a dot file below the starting path. The
// starting path itself is never hidden.
func EvalHidden(e *Expr, st *State) bool {
	v := st.V
	if v.Depth == 0 {
		return false
	}

	nm := v.Name()
	return strings.HasPrefix(nm, ".") && nm != "." && nm != ".."
}

// EvalName is -name PATTERN: glob match on the basename. At depth 0
// trailing slashes on the root are trimmed before matching.
func EvalName(e *Expr, st *State) bool {
	v := st.V

	nm := v.Name()
	if v.Depth == 0 {
		trimmed := strings.TrimRight(v.Path, "/")
		if trimmed == "" {
			trimmed = "/"
		}
		nm = path.Base(trimmed)
	}

	ok, err := matchGlob(e.Str, nm, e.Fold)
	if err != nil {
		st.Report("fnmatch", err)
		return false
	}
	return ok
}

// EvalPath is -path PATTERN: glob match on the full path.
func EvalPath(e *Expr, st *State) bool {
	ok, err := matchGlob(e.Str, st.V.Path, e.Fold)
	if err != nil {
		st.Report("fnmatch", err)
		return false
	}
	return ok
}

// EvalLname is -lname PATTERN: glob match on a symlink's target.
func EvalLname(e *Expr, st *State) bool {
	v := st.V

	t, err := v.TypeOf(NoFollow)
	if err != nil {
		st.Report("stat", err)
		return false
	}
	if t&SYMLINK == 0 {
		return false
	}

	targ, err := os.Readlink(v.Path)
	if err != nil {
		st.Report("readlink", err)
		return false
	}

	ok, err := matchGlob(e.Str, targ, e.Fold)
	if err != nil {
		st.Report("fnmatch", err)
		return false
	}
	return ok
}

// EvalPerm is -perm: mode-bit comparison. The node carries separate
// target modes for files and directories; the entry's type picks one.
func EvalPerm(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}

	target := e.FileMode
	if fi.IsDir() {
		target = e.DirMode
	}

	mode := fi.PermBits()
	switch e.PermKind {
	case PermAll:
		return mode&target == target
	case PermAny:
		return mode&target != 0 || target == 0
	}
	return mode&07777 == target
}

// EvalRegex is -regex PATTERN: an anchored full match on the path.
// The parser compiles the pattern wrapped so both ends must coincide
// with the path boundaries.
func EvalRegex(e *Expr, st *State) bool {
	return e.Re.MatchString(st.V.Path)
}

// EvalSamefile is -samefile F: same (device, inode) pair as the
// reference file captured at parse time.
func EvalSamefile(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}
	return fi.Dev == e.Dev && fi.Ino == e.Ino
}

// EvalSize is -size N[unit]: byte size rounded up to the unit, then
// three-way compared.
func EvalSize(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}

	unit := int64(e.SUnit)
	units := (fi.Siz + unit - 1) / unit
	return cmpNum(e.Cmp, units, e.Num)
}

// EvalSparse is -sparse: fewer blocks allocated than the apparent
// size needs.
func EvalSparse(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return false
	}
	return fi.Blocks < (fi.Siz+511)/512
}

// EvalType is -type: the entry's type under the traversal's follow
// policy, bit-anded with the node's mask.
func EvalType(e *Expr, st *State) bool {
	t, err := st.V.TypeOf(st.V.StatFlags)
	if err != nil {
		st.Report("stat", err)
		return false
	}
	return t&Type(e.Num) != 0
}

// EvalXtype is -xtype: like -type but under the opposite follow
// policy - both follow bits toggled before resolving the type.
func EvalXtype(e *Expr, st *State) bool {
	flags := st.V.StatFlags ^ (NoFollow | TryFollow)

	t, err := st.V.TypeOf(flags)
	if err != nil {
		st.Report("stat", err)
		return false
	}
	return t&Type(e.Num) != 0
}

var (
	errNoIdTable = errors.New("no lookup table")
	errNoMtab    = errors.New("no mount table")
)
