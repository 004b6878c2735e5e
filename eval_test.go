// eval_test.go -- per-visit callback tests
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
package bfind_test

import (
	"os"
	"syscall"
	"testing"

	bfind "github.com/opencoff/go-bfind"
)

func TestCallbackDepthGating(t *testing.T) {
	assert := newAsserter(t)
	dir := rootdir(t.TempDir())

	err := dir.mkfile("f", 1)
	assert(err == nil, "mkfile: %s", err)

	counter := &bfind.Expr{Fn: bfind.EvalTrue, AlwaysTrue: true}
	cl, _, _ := testCmdline(counter)
	cl.MaxDepth = 1

	// at depth == maxdepth the entry is evaluated but pruned
	act := cl.Callback(mkVisit(dir.path("f"), 1))
	assert(act == bfind.Prune, "depth==maxdepth: exp prune, saw %s", act)
	assert(counter.Evaluations == 1, "entry at maxdepth not evaluated")

	// beyond maxdepth nothing is evaluated
	act = cl.Callback(mkVisit(dir.path("f"), 2))
	assert(act == bfind.Prune, "depth>maxdepth: exp prune, saw %s", act)
	assert(counter.Evaluations == 1, "entry past maxdepth evaluated")

	// below mindepth the entry is skipped but traversal descends
	cl.MinDepth = 1
	act = cl.Callback(mkVisit(dir.path("f"), 0))
	assert(act == bfind.Continue, "depth<mindepth: exp continue, saw %s", act)
	assert(counter.Evaluations == 1, "entry below mindepth evaluated")
}

func TestCallbackXargsSafe(t *testing.T) {
	assert := newAsserter(t)

	counter := &bfind.Expr{Fn: bfind.EvalTrue, AlwaysTrue: true}
	cl, _, errb := testCmdline(counter)
	cl.XargsSafe = true

	act := cl.Callback(mkVisit("a/has space", 1))
	assert(act == bfind.Prune, "unsafe path: exp prune, saw %s", act)
	assert(cl.Status() == 1, "status: exp 1, saw %d", cl.Status())
	assert(errb.Len() > 0, "no error line for unsafe path")
	assert(counter.Evaluations == 0, "unsafe path still evaluated")

	act = cl.Callback(mkVisit("a/clean", 1))
	assert(act == bfind.Continue, "clean path: exp continue, saw %s", act)
	assert(counter.Evaluations == 1, "clean path not evaluated")
}

func TestCallbackUnique(t *testing.T) {
	assert := newAsserter(t)
	dir := rootdir(t.TempDir())

	err := dir.mkfile("a", 1)
	assert(err == nil, "mkfile: %s", err)
	err = os.Link(dir.path("a"), dir.path("b"))
	assert(err == nil, "link: %s", err)

	counter := &bfind.Expr{Fn: bfind.EvalTrue, AlwaysTrue: true}
	cl, _, _ := testCmdline(counter)
	cl.Unique = true

	act := cl.Callback(mkVisit(dir.path("a"), 1))
	assert(act == bfind.Continue, "first link: exp continue, saw %s", act)

	act = cl.Callback(mkVisit(dir.path("b"), 1))
	assert(act == bfind.Prune, "second link: exp prune, saw %s", act)
	assert(counter.Evaluations == 1, "hard link visited twice under -unique")
}

func TestCallbackRaceIgnore(t *testing.T) {
	assert := newAsserter(t)

	counter := &bfind.Expr{Fn: bfind.EvalTrue, AlwaysTrue: true}
	cl, _, errb := testCmdline(counter)
	cl.IgnoreRaces = true

	// a vanished child below the root: silent
	v := mkVisit("a/vanished", 1)
	v.Err = syscall.ENOENT
	act := cl.Callback(v)
	assert(act == bfind.Prune, "errored visit: exp prune, saw %s", act)
	assert(cl.Status() == 0, "vanished child bumped status")
	assert(errb.Len() == 0, "vanished child reported: %s", errb.String())

	// the starting path itself always surfaces
	v = mkVisit("a", 0)
	v.Err = syscall.ENOENT
	act = cl.Callback(v)
	assert(act == bfind.Prune, "errored root: exp prune, saw %s", act)
	assert(cl.Status() == 1, "missing root didn't bump status")
	assert(errb.Len() > 0, "missing root not reported")
}

func TestCallbackTraversalError(t *testing.T) {
	assert := newAsserter(t)

	counter := &bfind.Expr{Fn: bfind.EvalTrue, AlwaysTrue: true}
	cl, _, errb := testCmdline(counter)

	v := mkVisit("a/denied", 1)
	v.Err = syscall.EACCES
	act := cl.Callback(v)

	assert(act == bfind.Prune, "errored visit: exp prune, saw %s", act)
	assert(cl.Status() == 1, "traversal error didn't bump status")
	assert(errb.Len() > 0, "traversal error not reported")
	assert(counter.Evaluations == 0, "errored entry evaluated")
}

func TestFinishFlushesAndReportsStatus(t *testing.T) {
	assert := newAsserter(t)

	pr := &bfind.Expr{Fn: bfind.EvalFprint, AlwaysTrue: true}
	cl, out, _ := testCmdline(pr)
	pr.Out = cl.Cout

	act := cl.Callback(mkVisit("some/path", 1))
	assert(act == bfind.Continue, "print visit: exp continue, saw %s", act)

	rc := cl.Finish(nil)
	assert(rc == 0, "exit status: exp 0, saw %d", rc)
	assert(out.String() == "some/path\n", "flushed output: saw %q", out.String())
}

func TestFinishSurfacesWalkError(t *testing.T) {
	assert := newAsserter(t)

	pr := &bfind.Expr{Fn: bfind.EvalTrue, AlwaysTrue: true}
	cl, _, errb := testCmdline(pr)

	rc := cl.Finish(syscall.EIO)
	assert(rc == 1, "exit status: exp 1, saw %d", rc)
	assert(errb.Len() > 0, "walk error not reported")
}
