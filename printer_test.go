// printer_test.go -- -printf format program tests
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
	"fmt"
	"testing"

	bfind "github.com/opencoff/go-bfind"
)

func runFormat(t *testing.T, format, fp string, depth int) (string, error) {
	prog, err := bfind.CompileFormat(format)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	out := bfind.NewOutputW(&buf, "test")

	e := &bfind.Expr{Fn: bfind.EvalFprintf, Out: out, Prog: prog, AlwaysTrue: true}
	cl, _, _ := testCmdline(e)

	st := bfind.NewState(cl, mkVisit(fp, depth))
	if !e.Eval(st) {
		return "", fmt.Errorf("printf returned false")
	}

	out.Flush()
	return buf.String(), nil
}

func TestPrintfPathVerbs(t *testing.T) {
	assert := newAsserter(t)

	s, err := runFormat(t, `%p|%f|%h|%d\n`, "a/b/c", 2)
	assert(err == nil, "printf: %s", err)
	assert(s == "a/b/c|c|a/b|2\n", "printf: saw %q", s)
}

func TestPrintfStatVerbs(t *testing.T) {
	assert := newAsserter(t)
	dir := rootdir(t.TempDir())

	err := dir.mkfile("f", 100)
	assert(err == nil, "mkfile: %s", err)

	s, err := runFormat(t, `%s %y\n`, dir.path("f"), 1)
	assert(err == nil, "printf: %s", err)
	assert(s == "100 f\n", "printf: saw %q", s)
}

func TestPrintfEscapesAndPercent(t *testing.T) {
	assert := newAsserter(t)

	s, err := runFormat(t, `x\t%%\n`, "a", 0)
	assert(err == nil, "printf: %s", err)
	assert(s == "x\t%\n", "printf: saw %q", s)
}

func TestPrintfErrors(t *testing.T) {
	assert := newAsserter(t)

	_, err := bfind.CompileFormat("abc%")
	assert(err != nil, "trailing %% accepted")

	_, err = bfind.CompileFormat(`abc\`)
	assert(err != nil, "trailing backslash accepted")

	_, err = bfind.CompileFormat("%Tq")
	assert(err != nil, "unknown time format accepted")
}

func TestPrintfEpoch(t *testing.T) {
	assert := newAsserter(t)
	dir := rootdir(t.TempDir())

	err := dir.mkfile("f", 1)
	assert(err == nil, "mkfile: %s", err)

	s, err := runFormat(t, `%T@`, dir.path("f"), 1)
	assert(err == nil, "printf: %s", err)
	assert(len(s) > 10 && bytes.IndexByte([]byte(s), '.') > 0,
		"epoch timestamp malformed: %q", s)
}
