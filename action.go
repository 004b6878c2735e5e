// action.go - the action library: side-effecting leaves
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
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// EvalPrune is -prune: don't descend into this directory.
func EvalPrune(e *Expr, st *State) bool {
	st.action = Prune
	return true
}

// EvalQuit is -quit: stop the traversal.
func EvalQuit(e *Expr, st *State) bool {
	st.Quit()
	return true
}

// EvalExit is -exit [N]: stop the traversal and exit with status N.
func EvalExit(e *Expr, st *State) bool {
	st.Quit()
	st.cl.SetStatus(int(e.Num))
	return true
}

// EvalNoHidden is -nohidden: prune dot files.
func EvalNoHidden(e *Expr, st *State) bool {
	if EvalHidden(e, st) {
		st.action = Prune
		return false
	}
	return true
}

// EvalDelete is -delete: unlink the entry. Directories are removed
// with AT_REMOVEDIR; the starting path "." is never touched.
func EvalDelete(e *Expr, st *State) bool {
	v := st.V
	if v.Path == "." {
		return true
	}

	// the actual type, never the symlink target's
	t, err := v.TypeOf(NoFollow)
	if err != nil {
		st.Report("stat", err)
		return false
	}

	var flags int
	if t&DIR > 0 {
		flags = unix.AT_REMOVEDIR
	}

	if err := unix.Unlinkat(v.AtFd, v.AtPath, flags); err != nil {
		st.Report("delete", err)
		return false
	}
	return true
}

// EvalFprint is -print/-fprint: full path and a newline on the node's
// stream, coloured when the stream is a terminal.
func EvalFprint(e *Expr, st *State) bool {
	err := e.Out.printPath(st)
	if err == nil {
		_, err = e.Out.WriteString("\n")
	}
	if err != nil {
		st.Report("print", err)
	}
	return true
}

// EvalFprint0 is -print0/-fprint0: full path and a NUL.
func EvalFprint0(e *Expr, st *State) bool {
	if _, err := e.Out.WriteString(st.V.Path + "\x00"); err != nil {
		st.Report("print", err)
	}
	return true
}

// bytes needing a backslash in xargs-safe output
const printxEscape = " \t\n\\$'\"`"

// EvalFprintx is -printx/-fprintx: the path with shell-special bytes
// backslash-escaped, and a newline.
func EvalFprintx(e *Expr, st *State) bool {
	var b strings.Builder

	p := st.V.Path
	for i := 0; i < len(p); i++ {
		if strings.IndexByte(printxEscape, p[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(p[i])
	}
	b.WriteByte('\n')

	if _, err := e.Out.WriteString(b.String()); err != nil {
		st.Report("print", err)
	}
	return true
}

// EvalFprintf is -printf/-fprintf: run the compiled format program.
func EvalFprintf(e *Expr, st *State) bool {
	if err := e.Prog.Print(e.Out, st); err != nil {
		st.Report("printf", err)
	}
	return true
}

// EvalFls is -ls/-fls: one ls -dils style line per entry.
func EvalFls(e *Expr, st *State) bool {
	fi := st.ostat()
	if fi == nil {
		return true
	}

	o := e.Out
	v := st.V

	// block count is reported in 1KiB units, rounded up from the
	// 512-byte count stat gives us
	kblocks := (fi.Blocks + 1) / 2

	mode := modeString(fi)
	aclmark := " "
	if r, _ := checkACL(v.Path); r == Yes {
		aclmark = "+"
	}

	_, err := fmt.Fprintf(o, "%9d %6d %s%s %2d %-8s %-8s ",
		fi.Ino, kblocks, mode, aclmark, fi.Nlink,
		nameOrId(st.cl.Users, fi.Uid), nameOrId(st.cl.Groups, fi.Gid))

	if err == nil {
		if fi.Mode()&(os.ModeDevice|os.ModeCharDevice) > 0 {
			_, err = fmt.Fprintf(o, "%3d, %3d ", unix.Major(fi.Rdev), unix.Minor(fi.Rdev))
		} else {
			_, err = fmt.Fprintf(o, "%8d ", fi.Siz)
		}
	}

	if err == nil {
		_, err = fmt.Fprintf(o, "%s ", lsTime(st.cl.Now, fi.Mtim))
	}

	if err == nil {
		t, terr := v.TypeOf(NoFollow)
		if terr == nil && t&SYMLINK > 0 {
			if targ, lerr := os.Readlink(v.Path); lerr == nil {
				err = o.printLink(st, targ)
			} else {
				err = o.printPath(st)
			}
		} else {
			err = o.printPath(st)
		}
	}

	if err == nil {
		_, err = o.WriteString("\n")
	}
	if err != nil {
		st.Report("ls", err)
	}
	return true
}

// EvalExec is -exec/-execdir: hand the entry to the node's batch
// processor.
func EvalExec(e *Expr, st *State) bool {
	ok, err := e.Exec.Exec(st)
	if err != nil {
		st.Report("exec "+e.Argv[0], err)
		return false
	}
	return ok
}
