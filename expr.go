// expr.go - expression tree and short-circuiting walker
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

// Package bfind implements the expression evaluator of a breadth-first,
// find(1) compatible file system search tool. A parser (eg cmd/bfind)
// builds an expression tree of tests, actions and boolean operators;
// a traversal driver (the walk subpackage) delivers one Visit per file
// system entry; and Cmdline.Callback evaluates the tree against each
// visit, performing side effects and steering the traversal via the
// returned Action.
package bfind

import (
	"fmt"
	"io"
	"regexp"
	"time"
)

// Cmp selects how a numeric test compares against its operand.
type Cmp int

const (
	CmpExact Cmp = iota // exactly N
	CmpLess             // strictly less than N  (find's "-N")
	CmpMore             // strictly greater than N  (find's "+N")
)

// TimeUnit is the granularity of the -amin/-atime family.
type TimeUnit int64

const (
	Minutes TimeUnit = 60
	Days    TimeUnit = 86400
)

// SizeUnit is the rounding unit of the -size test.
type SizeUnit int64

const (
	SizeBlocks SizeUnit = 512
	SizeBytes  SizeUnit = 1
	SizeWords  SizeUnit = 2
	SizeKB     SizeUnit = 1 << 10
	SizeMB     SizeUnit = 1 << 20
	SizeGB     SizeUnit = 1 << 30
	SizeTB     SizeUnit = 1 << 40
	SizePB     SizeUnit = 1 << 50
)

// PermKind selects how -perm compares mode bits.
type PermKind int

const (
	PermExact PermKind = iota // -perm MODE
	PermAll                   // -perm -MODE
	PermAny                   // -perm /MODE
)

// TimeField selects which stat timestamp a test reads.
type TimeField int

const (
	ATime TimeField = iota
	BTime
	CTime
	MTime
)

// EvalFn is the evaluator attached to an expression node. It may
// mutate only the counters of its own node and the per-visit State.
type EvalFn func(e *Expr, st *State) bool

// Expr is one node of the expression tree. Interior nodes (not, and,
// or, comma) use Lhs/Rhs; leaves carry whatever payload fields their
// evaluator reads. The tree is built once by the parser and is
// read-only during a visit except for the counters.
type Expr struct {
	Fn       EvalFn
	Lhs, Rhs *Expr

	// leaf payload; which fields are live depends on Fn
	Cmp      Cmp
	Num      int64
	Str      string
	Re       *regexp.Regexp
	Ref      time.Time
	TField   TimeField
	TUnit    TimeUnit
	SUnit    SizeUnit
	FileMode uint32
	DirMode  uint32
	PermKind PermKind
	Dev, Ino uint64
	Out      *Output
	Prog     *FormatProg
	Exec     *ExecBuf
	Argv     []string
	Fold     bool

	// parser-provided hints; trusted for assertions only
	AlwaysTrue   bool
	AlwaysFalse  bool
	NeverReturns bool

	// declared fd needs, consumed by MaxOpenFiles()
	PersistentFds int
	EphemeralFds  int

	// per-node accounting
	Evaluations uint64
	Successes   uint64
	Elapsed     time.Duration
}

// Eval dispatches to the node's evaluator, keeping the per-node
// evaluation/success counters and, when rate debugging is on, the
// cumulative elapsed time.
func (e *Expr) Eval(st *State) bool {
	var t0 time.Time

	rates := st.cl.Debug&DebugRates != 0
	if rates {
		t0 = time.Now()
	}

	r := e.Fn(e, st)

	e.Evaluations++
	if r {
		e.Successes++
	}
	if rates {
		e.Elapsed += time.Since(t0)
	}

	if (e.AlwaysTrue && !r) || (e.AlwaysFalse && r) {
		st.cl.diag("bfind: internal: hint violated on %s (ret %v)\n", e.name(), r)
	}
	return r
}

// EvalTrue and EvalFalse are the constant leaves.
func EvalTrue(_ *Expr, _ *State) bool  { return true }
func EvalFalse(_ *Expr, _ *State) bool { return false }

// EvalNot negates its rhs child.
func EvalNot(e *Expr, st *State) bool {
	return !e.Rhs.Eval(st)
}

// EvalAnd short-circuits: the rhs runs only if the lhs held and no
// action has asked to quit.
func EvalAnd(e *Expr, st *State) bool {
	if !e.Lhs.Eval(st) || st.quit {
		return false
	}
	return e.Rhs.Eval(st)
}

// EvalOr short-circuits symmetrically.
func EvalOr(e *Expr, st *State) bool {
	if e.Lhs.Eval(st) {
		return true
	}
	if st.quit {
		return false
	}
	return e.Rhs.Eval(st)
}

// EvalComma evaluates the lhs for its side effects and discards the
// result.
func EvalComma(e *Expr, st *State) bool {
	e.Lhs.Eval(st)
	if st.quit {
		return false
	}
	return e.Rhs.Eval(st)
}

// Flush walks the tree post-order and flushes every batched -exec
// buffer and every buffered output stream. It must run after the
// traversal ends, on every exit path.
func (e *Expr) Flush() error {
	if e == nil {
		return nil
	}

	var errs []error
	if err := e.Lhs.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := e.Rhs.Flush(); err != nil {
		errs = append(errs, err)
	}

	if e.Exec != nil {
		if err := e.Exec.Finish(); err != nil {
			errs = append(errs, fmt.Errorf("exec %s %s: %w", e.Argv[0], argv1(e.Argv), err))
		}
	}
	if e.Out != nil {
		if err := e.Out.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Out.Name, err))
		}
	}

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return fmt.Errorf("%v (and %d more)", errs[0], len(errs)-1)
}

// FdCount sums the declared fd needs over the whole tree: persistent
// fds add up, ephemeral fds take the worst single node.
func (e *Expr) FdCount() (persistent, ephemeral int) {
	if e == nil {
		return 0, 0
	}

	lp, le := e.Lhs.FdCount()
	rp, re := e.Rhs.FdCount()

	persistent = e.PersistentFds + lp + rp
	ephemeral = max(e.EphemeralFds, max(le, re))
	return persistent, ephemeral
}

// Dump writes the tree to 'w' with per-node counters; used by -D rates.
func (e *Expr) Dump(w io.Writer, depth int) {
	if e == nil {
		return
	}

	fmt.Fprintf(w, "%*s%s: %d evals, %d true, %s\n",
		depth*2, "", e.name(), e.Evaluations, e.Successes, e.Elapsed)
	e.Lhs.Dump(w, depth+1)
	e.Rhs.Dump(w, depth+1)
}

func (e *Expr) name() string {
	if nm, ok := fnNames[fnKey(e.Fn)]; ok {
		return nm
	}
	return "?"
}

func argv1(argv []string) string {
	if len(argv) > 1 {
		return argv[1]
	}
	return ""
}
