// eval.go - per-visit callback and evaluation state
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
	"io"
	"os"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Flag is the traversal option bitset of a command line.
type Flag uint32

const (
	// stat every entry up front
	FlagStat Flag = 1 << iota

	// keep going past recoverable errors
	FlagRecover

	// post-order visits (-depth)
	FlagDepth

	// follow symlinks on the command line arguments only (-H)
	FlagComFollow

	// follow all symlinks (-L)
	FlagLogical

	// detect symlink cycles while following
	FlagDetectCycles

	// don't descend into other mount points (-mount)
	FlagMount

	// don't cross device boundaries (-xdev)
	FlagXdev
)

// Strategy picks the traversal order.
type Strategy int

const (
	BFS Strategy = iota // breadth first (the default)
	DFS                 // depth first
	IDS                 // iterative deepening
)

var stratNames = map[Strategy]string{
	BFS: "bfs",
	DFS: "dfs",
	IDS: "ids",
}

func (s Strategy) String() string {
	return stratNames[s]
}

// DebugFlag selects the optional stderr tracing.
type DebugFlag uint32

const (
	// per-node evaluation counts and timings on exit
	DebugRates DebugFlag = 1 << iota

	// one line per stat through the cached accessors
	DebugStat

	// one record per traversal callback
	DebugSearch

	// dump the expression tree before the traversal
	DebugTree
)

// Cmdline is the parsed command line: starting paths, traversal
// options and the expression tree. It owns the tree root and the
// process-wide lookup tables borrowed by every visit.
type Cmdline struct {
	Paths    []string
	MaxDepth int
	MinDepth int
	Flags    Flag
	Strategy Strategy

	Unique      bool
	XargsSafe   bool
	IgnoreRaces bool
	Debug       DebugFlag

	Mtab   *MountTable
	Users  *IdTable
	Groups *IdTable
	Colors *ColorTable

	Cout *Output
	Cerr io.Writer

	Expr *Expr

	// max open fds the traversal may use; computed by MaxOpenFiles()
	NOpenFiles int

	// reference time for the -{a,c,m}{time,min} family, captured
	// when the command line is parsed
	Now time.Time

	status int
	seen   *xsync.MapOf[string, struct{}]
}

// State is the per-visit evaluation state. It is created by the
// callback for each traversal event and discarded afterwards.
type State struct {
	V *Visit

	cl     *Cmdline
	action Action
	quit   bool
}

// NewState readies a per-visit evaluation state; useful for
// embedders (and tests) driving Expr.Eval without the callback.
func NewState(cl *Cmdline, v *Visit) *State {
	return &State{V: v, cl: cl}
}

// Cmdline returns the command line this visit is evaluated under.
func (st *State) Cmdline() *Cmdline { return st.cl }

// Action returns the action accumulated so far for this visit.
func (st *State) Action() Action { return st.action }

// Quit tells the walker to stop evaluating and the driver to stop
// producing visits.
func (st *State) Quit() {
	st.action = Stop
	st.quit = true
}

// SetAction overrides the action returned to the driver.
func (st *State) SetAction(a Action) { st.action = a }

// Status returns the exit status accumulated so far.
func (cl *Cmdline) Status() int { return cl.status }

// SetStatus forces the exit status; used by -exit N.
func (cl *Cmdline) SetStatus(n int) { cl.status = n }

// Fail raises the exit status to failure without overriding an
// explicit -exit value.
func (cl *Cmdline) Fail() {
	if cl.status == 0 {
		cl.status = 1
	}
}

func (cl *Cmdline) diag(msg string, args ...any) {
	w := cl.Cerr
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, msg, args...)
}

// Report prints "path: message" on the diagnostic stream and raises
// the exit status, unless the error is an ignorable race for this
// visit.
func (st *State) Report(op string, err error) {
	if st.cl.Ignorable(st.V, err) {
		return
	}

	ev := &EvalError{Op: op, Path: st.V.Path, Err: err}
	st.cl.diag("bfind: %s\n", ev)
	st.cl.Fail()
}

// Ignorable says whether 'err' qualifies for the race-ignoring
// policy: a file-vanished error below the starting path while
// -ignore-races is in effect.
func (cl *Cmdline) Ignorable(v *Visit, err error) bool {
	if !cl.IgnoreRaces || v.Depth == 0 {
		return false
	}
	return isVanished(err)
}

// ostat is the cached stat accessor used by most predicates: it
// resolves the entry under the traversal's follow policy and handles
// the error reporting contract (report + false unless ignorable).
func (st *State) ostat() *Info {
	fi, err := st.V.Stat(st.V.StatFlags)
	st.traceStat(st.V.StatFlags, err)
	if err != nil {
		st.Report("stat", err)
		return nil
	}
	return fi
}

// xargs-unsafe bytes; a path containing any of these is rejected
// under --xargs-safe
const xargsUnsafe = " \t\n'\"\\"

// Callback evaluates the expression against one traversal event. It
// is the VisitFunc handed to the driver.
func (cl *Cmdline) Callback(v *Visit) Action {
	st := &State{V: v, cl: cl}

	defer st.traceVisit()

	if v.Err != nil {
		if !cl.Ignorable(v, v.Err) {
			cl.diag("bfind: %s: %s\n", v.Path, v.Err)
			cl.Fail()
		}
		st.action = Prune
		return st.action
	}

	if cl.Unique && v.Order == PRE {
		dup, err := cl.isDup(v)
		if err != nil {
			st.traceStat(NoFollow, err)
			st.Report("stat", err)
		}
		if dup {
			st.action = Prune
			return st.action
		}
	}

	if cl.XargsSafe && strings.ContainsAny(v.Path, xargsUnsafe) {
		cl.diag("bfind: %s: path is not xargs-safe\n", v.Path)
		cl.Fail()
		st.action = Prune
		return st.action
	}

	if cl.MaxDepth < 0 || v.Depth >= cl.MaxDepth {
		// this entry is still evaluated; only the descent stops
		st.action = Prune
	}

	if v.Order == cl.expectedOrder(v) && cl.MinDepth <= v.Depth && v.Depth <= cl.MaxDepth {
		cl.Expr.Eval(st)
	}

	return st.action
}

// expectedOrder decides whether this entry's expression run happens
// on its PRE or POST visit. With -depth, directories (and, under
// iterative deepening, everything) that will be visited again
// post-order run then.
func (cl *Cmdline) expectedOrder(v *Visit) VisitOrder {
	if cl.Flags&FlagDepth == 0 {
		return PRE
	}
	if (cl.Strategy == IDS || v.Typeflag&DIR > 0) && v.Depth < cl.MaxDepth {
		return POST
	}
	return PRE
}

// isDup consults (and updates) the seen-set of (device, inode) pairs
// maintained for -unique.
func (cl *Cmdline) isDup(v *Visit) (bool, error) {
	if cl.seen == nil {
		cl.seen = xsync.NewMapOf[string, struct{}]()
	}

	fi, err := v.Stat(v.StatFlags)
	if err != nil {
		return false, err
	}

	key := fmt.Sprintf("%d:%d", fi.Dev, fi.Ino)
	_, dup := cl.seen.LoadOrStore(key, struct{}{})
	return dup, nil
}

// Finish runs the mandatory post-traversal flush and returns the
// final exit status. 'werr' is the driver's top-level error, if any.
func (cl *Cmdline) Finish(werr error) int {
	if werr != nil {
		cl.diag("bfind: traversal: %s\n", werr)
		cl.Fail()
	}

	if err := cl.Expr.Flush(); err != nil {
		cl.diag("bfind: %s\n", err)
		cl.Fail()
	}

	if cl.Cout != nil {
		if err := cl.Cout.Flush(); err != nil {
			cl.diag("bfind: stdout: %s\n", err)
			cl.Fail()
		}
	}

	if cl.Debug&DebugRates > 0 {
		cl.Expr.Dump(cl.stderr(), 0)
	}
	return cl.status
}

func (cl *Cmdline) stderr() io.Writer {
	if cl.Cerr != nil {
		return cl.Cerr
	}
	return os.Stderr
}
