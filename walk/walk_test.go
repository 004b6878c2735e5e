// walk_test.go -- traversal driver tests
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
package walk_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/kylelemons/godebug/pretty"

	bfind "github.com/opencoff/go-bfind"
	"github.com/opencoff/go-bfind/walk"
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

func mkfile(tmpdir, p string) error {
	fn := filepath.Join(tmpdir, p)
	bn := filepath.Dir(fn)
	if err := os.MkdirAll(bn, 0700); err != nil {
		return fmt.Errorf("mkdir: %s: %w", bn, err)
	}

	fd, err := os.OpenFile(fn, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("creat: %s: %w", fn, err)
	}
	fd.Write([]byte("hello"))
	return fd.Close()
}

// collect runs a walk and returns the visited paths relative to
// 'root', in delivery order.
func collect(t *testing.T, root string, opt walk.Options, fn bfind.VisitFunc) []string {
	var order []string

	// the walker trims trailing slashes off roots; match it
	base := strings.TrimRight(root, "/")

	err := walk.Walk([]string{root}, opt, func(v *bfind.Visit) bfind.Action {
		rel := strings.TrimPrefix(strings.TrimPrefix(v.Path, base), "/")
		if rel == "" {
			rel = "."
		}
		if v.Order == bfind.POST {
			rel += "/"
		}
		order = append(order, rel)

		if fn != nil {
			return fn(v)
		}
		return bfind.Continue
	})
	if err != nil {
		t.Fatalf("walk: %s", err)
	}
	return order
}

func index(order []string, nm string) int {
	for i, s := range order {
		if s == nm {
			return i
		}
	}
	return -1
}

func TestBreadthFirstShallowFirst(t *testing.T) {
	assert := newAsserter(t)
	tmp := t.TempDir()

	for _, p := range []string{"deep/1/2/3/4", "shallow/needle"} {
		err := mkfile(tmp, p)
		assert(err == nil, "mkfile: %s", err)
	}

	order := collect(t, tmp, walk.Options{Strategy: bfind.BFS}, nil)

	needle := index(order, "shallow/needle")
	deep2 := index(order, "deep/1/2")
	assert(needle >= 0, "needle never visited:\n%v", order)
	assert(deep2 >= 0, "deep/1/2 never visited:\n%v", order)
	assert(needle < deep2, "shallow entry visited after deeper one:\n%v", order)
}

func TestPruneHidesSubtree(t *testing.T) {
	assert := newAsserter(t)
	tmp := t.TempDir()

	err := mkfile(tmp, "b/c")
	assert(err == nil, "mkfile: %s", err)
	err = mkfile(tmp, "d")
	assert(err == nil, "mkfile: %s", err)

	// -name b -prune -o <collect>
	order := collect(t, tmp, walk.Options{Strategy: bfind.BFS},
		func(v *bfind.Visit) bfind.Action {
			if v.Name() == "b" {
				return bfind.Prune
			}
			return bfind.Continue
		})

	assert(index(order, ".") >= 0, "root missing:\n%v", order)
	assert(index(order, "d") >= 0, "sibling missing:\n%v", order)
	assert(index(order, "b/c") < 0, "pruned subtree visited:\n%v", order)
}

func TestStopEndsWalk(t *testing.T) {
	assert := newAsserter(t)
	tmp := t.TempDir()

	for _, p := range []string{"a/f1", "a/f2", "b/f3", "c/f4"} {
		err := mkfile(tmp, p)
		assert(err == nil, "mkfile: %s", err)
	}

	n := 0
	collect(t, tmp, walk.Options{Strategy: bfind.BFS},
		func(v *bfind.Visit) bfind.Action {
			n++
			if n == 3 {
				return bfind.Stop
			}
			return bfind.Continue
		})

	assert(n == 3, "visits after stop: saw %d", n)
}

func TestMaxDepthViaCallback(t *testing.T) {
	assert := newAsserter(t)
	tmp := t.TempDir()

	err := mkfile(tmp, "x/y")
	assert(err == nil, "mkfile: %s", err)

	e := &bfind.Expr{Fn: bfind.EvalFprint, AlwaysTrue: true}
	var out, errb bytes.Buffer
	cl := &bfind.Cmdline{
		MaxDepth: 1,
		Now:      time.Now(),
		Cerr:     &errb,
		Expr:     e,
	}
	cl.Cout = bfind.NewOutputW(&out, "stdout")
	e.Out = cl.Cout

	werr := walk.Walk([]string{tmp}, walk.Options{Strategy: bfind.BFS}, cl.Callback)
	rc := cl.Finish(werr)
	assert(rc == 0, "exit status: exp 0, saw %d", rc)

	got := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	want := []string{tmp, filepath.Join(tmp, "x")}
	if diff := pretty.Compare(got, want); diff != "" {
		t.Fatalf("maxdepth output mismatch (-got +want):\n%s", diff)
	}
}

func TestExitStatusFromExpression(t *testing.T) {
	assert := newAsserter(t)
	tmp := t.TempDir()

	err := mkfile(tmp, "a/b")
	assert(err == nil, "mkfile: %s", err)

	// -name zzz-never-matches -o -exit 7
	e := &bfind.Expr{
		Fn:  bfind.EvalOr,
		Lhs: &bfind.Expr{Fn: bfind.EvalName, Str: "zzz-never-matches"},
		Rhs: &bfind.Expr{Fn: bfind.EvalExit, Num: 7, AlwaysTrue: true, NeverReturns: true},
	}

	var errb bytes.Buffer
	cl := &bfind.Cmdline{
		MaxDepth: int(^uint(0) >> 1),
		Now:      time.Now(),
		Cerr:     &errb,
		Expr:     e,
	}
	cl.Cout = bfind.NewOutputW(&errb, "stdout")

	werr := walk.Walk([]string{tmp}, walk.Options{Strategy: bfind.BFS}, cl.Callback)
	rc := cl.Finish(werr)
	assert(rc == 7, "exit status: exp 7, saw %d", rc)
}

func TestPostOrderDFS(t *testing.T) {
	assert := newAsserter(t)
	tmp := t.TempDir()

	err := mkfile(tmp, "d/leaf")
	assert(err == nil, "mkfile: %s", err)

	order := collect(t, tmp, walk.Options{
		Strategy: bfind.DFS,
		Flags:    bfind.FlagDepth,
	}, nil)

	pre := index(order, "d")
	leaf := index(order, "d/leaf")
	post := index(order, "d/")
	assert(pre >= 0 && leaf >= 0 && post >= 0, "missing visits:\n%v", order)
	assert(pre < leaf, "pre visit after child:\n%v", order)
	assert(leaf < post, "post visit before child:\n%v", order)
}

func TestSymlinkFollowAndCycles(t *testing.T) {
	assert := newAsserter(t)
	tmp := t.TempDir()

	err := mkfile(tmp, "real/f")
	assert(err == nil, "mkfile: %s", err)
	err = os.Symlink(filepath.Join(tmp, "real"), filepath.Join(tmp, "alias"))
	assert(err == nil, "symlink: %s", err)
	// a cycle back to the root
	err = os.Symlink(tmp, filepath.Join(tmp, "real", "up"))
	assert(err == nil, "symlink: %s", err)

	order := collect(t, tmp, walk.Options{
		Strategy: bfind.BFS,
		Flags:    bfind.FlagLogical | bfind.FlagDetectCycles,
	}, nil)

	// the cycle must terminate and 'real' must be descended only once
	n := 0
	for _, s := range order {
		if s == "real/f" || s == "alias/f" {
			n++
		}
	}
	assert(n == 1, "followed dir visited %d times:\n%v", n, order)
}

func TestRootTrailingSlash(t *testing.T) {
	assert := newAsserter(t)
	tmp := t.TempDir()

	err := mkfile(tmp, "f")
	assert(err == nil, "mkfile: %s", err)

	order := collect(t, tmp+"/", walk.Options{Strategy: bfind.BFS}, nil)
	assert(index(order, ".") >= 0, "root missing with trailing slash:\n%v", order)
	assert(index(order, "f") >= 0, "child missing with trailing slash:\n%v", order)
}
