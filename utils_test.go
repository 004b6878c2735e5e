// utils_test.go -- test harness utilities
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
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	bfind "github.com/opencoff/go-bfind"
)

func newAsserter(t *testing.T) func(cond bool, msg string, args ...interface{}) {
	return func(cond bool, msg string, args ...interface{}) {
		if cond {
			return
		}

		_, file, line, ok := runtime.Caller(1)
		if !ok {
			file = "???"
			line = 0
		}

		s := fmt.Sprintf(msg, args...)
		t.Fatalf("\n%s: %d: Assertion failed: %s\n", file, line, s)
	}
}

type rootdir string

func (d rootdir) mkfile(nm string, sz int) error {
	fn := filepath.Join(string(d), nm)
	bn := filepath.Dir(fn)
	if err := os.MkdirAll(bn, 0700); err != nil {
		return fmt.Errorf("mkdir: %s: %w", bn, err)
	}

	fd, err := os.OpenFile(fn, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("creat: %s: %w", fn, err)
	}

	if sz > 0 {
		fd.Write(bytes.Repeat([]byte("x"), sz))
	}
	fd.Sync()
	return fd.Close()
}

func (d rootdir) mkdir(nm string) error {
	fn := filepath.Join(string(d), nm)
	if err := os.MkdirAll(fn, 0700); err != nil {
		return fmt.Errorf("mkdir: %s: %w", fn, err)
	}
	return nil
}

func (d rootdir) symlink(target, linkname string) error {
	dst := filepath.Join(string(d), linkname)
	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("symlink: %s: %w", dst, err)
	}
	return nil
}

func (d rootdir) path(nm string) string {
	return filepath.Join(string(d), nm)
}

// testCmdline builds a Cmdline wired to in-memory streams.
func testCmdline(e *bfind.Expr) (*bfind.Cmdline, *bytes.Buffer, *bytes.Buffer) {
	var out, errb bytes.Buffer

	cl := &bfind.Cmdline{
		MaxDepth: int(^uint(0) >> 1),
		Now:      time.Now(),
		Cerr:     &errb,
		Expr:     e,
		Users:    bfind.NewUserTable(),
		Groups:   bfind.NewGroupTable(),
	}
	cl.Cout = bfind.NewOutputW(&out, "stdout")
	return cl, &out, &errb
}

// mkVisit builds a PRE visit the way the walk driver does.
func mkVisit(fp string, depth int) *bfind.Visit {
	off := 0
	if i := strings.LastIndexByte(fp, '/'); i >= 0 {
		off = i + 1
	}

	return &bfind.Visit{
		AtFd:      unix.AT_FDCWD,
		AtPath:    fp,
		Path:      fp,
		NameOff:   off,
		Root:      fp,
		Depth:     depth,
		Order:     bfind.PRE,
		Typeflag:  bfind.UNKNOWN,
		StatFlags: bfind.NoFollow,
	}
}

// evalOn runs one node against one path the way the callback would.
func evalOn(t *testing.T, e *bfind.Expr, fp string, depth int) bool {
	cl, _, _ := testCmdline(e)
	st := bfind.NewState(cl, mkVisit(fp, depth))
	return e.Eval(st)
}
