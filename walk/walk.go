// walk.go - ordered fs-walker driving the expression evaluator
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

// Package walk traverses file system trees breadth-first (or depth
// first, or by iterative deepening) and delivers one Visit per entry
// to a caller supplied callback. The callback steers the traversal:
// Prune skips a directory's contents, Stop ends the walk promptly.
//
// Unlike a concurrent walker, delivery is strictly ordered and
// synchronous - the evaluator's side effects (printing, deletion,
// exec batching) depend on that ordering.
package walk

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	bfind "github.com/opencoff/go-bfind"
)

// High level design:
//
// * BFS keeps a FIFO of directories; a directory's entries are all
//   visited before any grandchild.
// * DFS recurses; a directory's POST visit (when post-order delivery
//   is on) fires after all its descendants.
// * IDS runs depth-limited passes, emitting only each pass' frontier.
// * The callback sees the policy decisions: depth gating, pruning,
//   uniqueness and the expression all live there.

// Options control the behavior of the filesystem walk.
type Options struct {
	// traversal order
	Strategy bfind.Strategy

	// follow/mount/post-order policy bits
	Flags bfind.Flag

	// fd budget computed by the caller. The walker holds one
	// directory handle at a time; the knob bounds nothing today
	// but stays part of the contract for callers that tune it.
	NOpenFiles int
}

// internal state
type walkState struct {
	Options
	fn bfind.VisitFunc

	stopped bool

	// emit only visits at exactly this depth; -1 means all.
	// Used by the iterative deepening passes.
	onlyDepth int

	// count of visits actually delivered (per IDS pass)
	emitted int

	// devices of the starting paths, for -xdev/-mount
	rootDevs map[uint64]bool

	// dirs already descended into, keyed dev:ino; breaks symlink
	// cycles when following
	seen map[string]bool
}

type qdir struct {
	path  string
	root  string
	depth int
}

// Walk traverses 'roots' per 'opt', invoking 'fn' for every entry.
// Entry-level problems are delivered through the visit's Err field;
// the returned error is reserved for failures that end the walk
// itself.
func Walk(roots []string, opt Options, fn bfind.VisitFunc) error {
	ws := &walkState{
		Options:   opt,
		fn:        fn,
		onlyDepth: -1,
		rootDevs:  make(map[uint64]bool),
		seen:      make(map[string]bool),
	}

	if opt.Strategy == bfind.IDS {
		return ws.walkIDS(roots)
	}
	return ws.walkAll(roots, -1)
}

// walkAll walks every root to completion; 'limit' bounds the descent
// depth (-1 means unbounded) and is used by the IDS passes.
func (ws *walkState) walkAll(roots []string, limit int) error {
	var dirs []qdir

	for _, nm := range roots {
		if ws.stopped {
			break
		}
		dirs = ws.visitRoot(trimSlash(nm), dirs)
	}

	switch ws.Strategy {
	case bfind.DFS:
		for _, d := range dirs {
			if ws.stopped {
				break
			}
			ws.walkDir(d, limit, true)
		}

	default:
		// breadth first: FIFO over directories
		for len(dirs) > 0 && !ws.stopped {
			d := dirs[0]
			dirs = dirs[1:]
			dirs = append(dirs, ws.walkDir(d, limit, false)...)
		}
	}
	return nil
}

// trimSlash drops trailing slashes but keeps "/" itself
func trimSlash(nm string) string {
	if trimmed := strings.TrimRight(nm, "/"); trimmed != "" {
		return trimmed
	}
	return "/"
}

// visitRoot delivers the depth-0 visit for one starting path and
// returns the (possibly grown) list of dirs to descend into.
func (ws *walkState) visitRoot(nm string, dirs []qdir) []qdir {
	v := ws.newVisit(nm, nm, 0)

	fi, err := bfind.Lstat(nm)
	if err != nil {
		v.Err = err
		ws.deliver(v)
		return dirs
	}
	v.SetLstat(fi, nil)
	v.Typeflag = bfind.TypeFromMode(fi.Mode())

	// resolve symlinked roots when -H or -L is in effect
	if v.Typeflag&bfind.SYMLINK > 0 && ws.Flags&(bfind.FlagComFollow|bfind.FlagLogical) > 0 {
		if tfi, terr := bfind.Stat(nm); terr == nil {
			v.SetStat(tfi, nil)
			v.Typeflag = bfind.TypeFromMode(tfi.Mode())
			fi = tfi
		}
	}

	ws.trackDev(fi)

	isdir := v.Typeflag&bfind.DIR > 0
	act := ws.deliver(v)
	if isdir && act == bfind.Continue && !ws.stopped && !ws.markSeen(fi) {
		dirs = append(dirs, qdir{path: nm, root: nm, depth: 0})
	}
	return dirs
}

// walkDir reads one directory and visits its entries. In recursive
// (DFS) mode subdirectories are descended immediately and the
// directory's POST visit is delivered once they are done; in BFS
// mode subdirectories are returned for the caller's queue.
func (ws *walkState) walkDir(d qdir, limit int, recurse bool) []qdir {
	var dirs []qdir

	ents, err := os.ReadDir(d.path)
	if err != nil {
		// report through the entry itself so the callback can
		// apply its error policy
		v := ws.newVisit(d.path, d.root, d.depth)
		v.Err = err
		ws.deliver(v)
		return dirs
	}

	for _, de := range ents {
		if ws.stopped {
			return dirs
		}

		fp := joinPath(d.path, de.Name())
		depth := d.depth + 1

		v := ws.newVisit(fp, d.root, depth)
		v.Typeflag = bfind.TypeFromMode(de.Type())

		isdir := de.IsDir()
		if v.Typeflag&bfind.SYMLINK > 0 && ws.Flags&bfind.FlagLogical > 0 {
			if tfi, terr := bfind.Stat(fp); terr == nil {
				v.SetStat(tfi, nil)
				v.Typeflag = bfind.TypeFromMode(tfi.Mode())
				isdir = tfi.IsDir()
			}
		}

		if isdir && ws.markSeen(ws.identity(v)) {
			continue
		}

		descend := isdir && (limit < 0 || depth < limit)
		if isdir && !ws.devOK(v) {
			descend = false
			if ws.Flags&bfind.FlagMount > 0 {
				// -mount doesn't even visit the crossing
				continue
			}
		}

		act := ws.deliver(v)
		if ws.stopped || act != bfind.Continue || !descend {
			continue
		}

		sub := qdir{path: fp, root: d.root, depth: depth}
		if recurse {
			ws.walkDir(sub, limit, true)
		} else {
			dirs = append(dirs, sub)
		}
	}

	// post-order visit of the directory itself
	if recurse && ws.Flags&bfind.FlagDepth > 0 && !ws.stopped {
		v := ws.newVisit(d.path, d.root, d.depth)
		v.Order = bfind.POST
		v.Typeflag = bfind.DIR
		ws.deliver(v)
	}
	return dirs
}

// walkIDS runs depth-limited passes of increasing depth until a pass
// delivers nothing.
func (ws *walkState) walkIDS(roots []string) error {
	for limit := 0; !ws.stopped; limit++ {
		ws.seen = make(map[string]bool)
		ws.onlyDepth = limit
		ws.emitted = 0

		if err := ws.walkAll(roots, limit); err != nil {
			return err
		}
		if ws.emitted == 0 {
			break
		}
	}
	return nil
}

// deliver hands one visit to the callback, honouring the IDS depth
// filter; with post-order on, iterative deepening delivers the POST
// visit right after the PRE one (each frontier entry is final for
// its pass).
func (ws *walkState) deliver(v *bfind.Visit) bfind.Action {
	if ws.onlyDepth >= 0 && v.Depth != ws.onlyDepth {
		return bfind.Continue
	}
	ws.emitted++

	act := ws.fn(v)
	if act == bfind.Stop {
		ws.stopped = true
		return act
	}

	if ws.onlyDepth >= 0 && ws.Flags&bfind.FlagDepth > 0 && v.Order == bfind.PRE {
		v.Order = bfind.POST
		if post := ws.fn(v); post == bfind.Stop {
			ws.stopped = true
			return post
		}
		v.Order = bfind.PRE
	}
	return act
}

func (ws *walkState) newVisit(fp, root string, depth int) *bfind.Visit {
	return &bfind.Visit{
		AtFd:      unix.AT_FDCWD,
		AtPath:    fp,
		Path:      fp,
		NameOff:   nameOff(fp),
		Root:      root,
		Depth:     depth,
		Order:     bfind.PRE,
		Typeflag:  bfind.UNKNOWN,
		StatFlags: ws.statFlags(depth),
	}
}

// statFlags is the follow policy for entries at 'depth': -L follows
// everywhere, -H only at the roots, default never.
func (ws *walkState) statFlags(depth int) bfind.StatFlag {
	switch {
	case ws.Flags&bfind.FlagLogical > 0:
		return bfind.TryFollow
	case ws.Flags&bfind.FlagComFollow > 0 && depth == 0:
		return bfind.TryFollow
	}
	return bfind.NoFollow
}

// trackDev records a starting path's device for -xdev/-mount.
func (ws *walkState) trackDev(fi *bfind.Info) {
	if ws.Flags&(bfind.FlagXdev|bfind.FlagMount) > 0 {
		ws.rootDevs[fi.Dev] = true
	}
}

// devOK says whether we may descend into the visit's directory under
// the mount crossing policy.
func (ws *walkState) devOK(v *bfind.Visit) bool {
	if ws.Flags&(bfind.FlagXdev|bfind.FlagMount) == 0 {
		return true
	}

	fi, err := v.Stat(bfind.NoFollow)
	if err != nil {
		return true
	}
	return ws.rootDevs[fi.Dev]
}

// identity resolves the stat identity of a directory we are about to
// descend into; nil when it can't be read (the descent will surface
// the error).
func (ws *walkState) identity(v *bfind.Visit) *bfind.Info {
	if ws.Flags&(bfind.FlagLogical|bfind.FlagDetectCycles) == 0 {
		return nil
	}
	fi, err := v.Stat(v.StatFlags)
	if err != nil {
		return nil
	}
	return fi
}

// markSeen tracks a directory's identity; returns true if it was
// already descended into (a hardlink or symlink cycle).
func (ws *walkState) markSeen(fi *bfind.Info) bool {
	if fi == nil || ws.Flags&(bfind.FlagLogical|bfind.FlagDetectCycles) == 0 {
		return false
	}

	key := fmt.Sprintf("%d:%d", fi.Dev, fi.Ino)
	if ws.seen[key] {
		return true
	}
	ws.seen[key] = true
	return false
}

// joinPath avoids filepath.Join's cleaning (it would strip a leading
// "./" the user gave us)
func joinPath(dir, nm string) string {
	if dir == "/" {
		return "/" + nm
	}
	return dir + "/" + nm
}

func nameOff(fp string) int {
	if i := strings.LastIndexByte(fp, '/'); i >= 0 {
		return i + 1
	}
	return 0
}
