// action_test.go -- action library tests
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
	"bytes"
	"os"
	"testing"

	bfind "github.com/opencoff/go-bfind"
)

func TestFprintForms(t *testing.T) {
	assert := newAsserter(t)

	var buf bytes.Buffer
	out := bfind.NewOutputW(&buf, "test")

	pr := &bfind.Expr{Fn: bfind.EvalFprint, Out: out, AlwaysTrue: true}
	cl, _, _ := testCmdline(pr)

	st := bfind.NewState(cl, mkVisit("a/b", 1))
	assert(pr.Eval(st), "-print returned false")

	err := out.Flush()
	assert(err == nil, "flush: %s", err)
	assert(buf.String() == "a/b\n", "print: exp 'a/b\\n', saw %q", buf.String())

	buf.Reset()
	p0 := &bfind.Expr{Fn: bfind.EvalFprint0, Out: out, AlwaysTrue: true}
	p0.Eval(bfind.NewState(cl, mkVisit("a/b", 1)))
	out.Flush()
	assert(buf.String() == "a/b\x00", "print0: saw %q", buf.String())
}

func TestFprintxEscapes(t *testing.T) {
	assert := newAsserter(t)

	var buf bytes.Buffer
	out := bfind.NewOutputW(&buf, "test")

	px := &bfind.Expr{Fn: bfind.EvalFprintx, Out: out, AlwaysTrue: true}
	cl, _, _ := testCmdline(px)

	px.Eval(bfind.NewState(cl, mkVisit(`a dir/it's "x"`, 1)))
	out.Flush()

	want := `a\ dir/it\'s\ \"x\"` + "\n"
	assert(buf.String() == want, "printx: exp %q, saw %q", want, buf.String())
}

func TestPruneAndQuit(t *testing.T) {
	assert := newAsserter(t)

	pe := &bfind.Expr{Fn: bfind.EvalPrune, AlwaysTrue: true}
	cl, _, _ := testCmdline(pe)
	st := bfind.NewState(cl, mkVisit("a", 0))
	assert(pe.Eval(st), "-prune returned false")
	assert(st.Action() == bfind.Prune, "action: exp prune, saw %s", st.Action())

	qe := &bfind.Expr{Fn: bfind.EvalQuit, AlwaysTrue: true, NeverReturns: true}
	cl, _, _ = testCmdline(qe)
	st = bfind.NewState(cl, mkVisit("a", 0))
	assert(qe.Eval(st), "-quit returned false")
	assert(st.Action() == bfind.Stop, "action: exp stop, saw %s", st.Action())
}

func TestExitSetsStatus(t *testing.T) {
	assert := newAsserter(t)

	ee := &bfind.Expr{Fn: bfind.EvalExit, Num: 7, AlwaysTrue: true, NeverReturns: true}
	cl, _, _ := testCmdline(ee)
	st := bfind.NewState(cl, mkVisit("a", 0))

	assert(ee.Eval(st), "-exit returned false")
	assert(st.Action() == bfind.Stop, "action: exp stop, saw %s", st.Action())
	assert(cl.Status() == 7, "status: exp 7, saw %d", cl.Status())
}

func TestDelete(t *testing.T) {
	assert := newAsserter(t)
	dir := rootdir(t.TempDir())

	err := dir.mkfile("victim", 3)
	assert(err == nil, "mkfile: %s", err)
	err = dir.mkdir("vdir")
	assert(err == nil, "mkdir: %s", err)

	de := &bfind.Expr{Fn: bfind.EvalDelete}
	cl, _, _ := testCmdline(de)

	st := bfind.NewState(cl, mkVisit(dir.path("victim"), 1))
	assert(de.Eval(st), "-delete failed on a file")
	_, err = os.Lstat(dir.path("victim"))
	assert(os.IsNotExist(err), "file still there after -delete")

	st = bfind.NewState(cl, mkVisit(dir.path("vdir"), 1))
	assert(de.Eval(st), "-delete failed on an empty dir")
	_, err = os.Lstat(dir.path("vdir"))
	assert(os.IsNotExist(err), "dir still there after -delete")

	assert(cl.Status() == 0, "delete bumped status: %d", cl.Status())
}

func TestDeleteNonEmptyDirFails(t *testing.T) {
	assert := newAsserter(t)
	dir := rootdir(t.TempDir())

	err := dir.mkfile("d/child", 1)
	assert(err == nil, "mkfile: %s", err)

	de := &bfind.Expr{Fn: bfind.EvalDelete}
	cl, _, errb := testCmdline(de)

	st := bfind.NewState(cl, mkVisit(dir.path("d"), 1))
	assert(!de.Eval(st), "-delete claimed success on a non-empty dir")
	assert(cl.Status() == 1, "status: exp 1, saw %d", cl.Status())
	assert(errb.Len() > 0, "no error reported")
}

func TestLsLine(t *testing.T) {
	assert := newAsserter(t)
	dir := rootdir(t.TempDir())

	err := dir.mkfile("f", 1024)
	assert(err == nil, "mkfile: %s", err)
	err = os.Chmod(dir.path("f"), 0640)
	assert(err == nil, "chmod: %s", err)

	var buf bytes.Buffer
	out := bfind.NewOutputW(&buf, "test")

	ls := &bfind.Expr{Fn: bfind.EvalFls, Out: out, AlwaysTrue: true}
	cl, _, errb := testCmdline(ls)

	st := bfind.NewState(cl, mkVisit(dir.path("f"), 1))
	assert(ls.Eval(st), "-ls returned false")
	out.Flush()

	line := buf.String()
	assert(errb.Len() == 0, "ls reported: %s", errb.String())
	assert(bytes.Contains(buf.Bytes(), []byte("-rw-r-----")), "mode column missing: %q", line)
	assert(bytes.Contains(buf.Bytes(), []byte("1024")), "size column missing: %q", line)
	assert(bytes.HasSuffix(buf.Bytes(), []byte(dir.path("f")+"\n")), "path missing: %q", line)
}
