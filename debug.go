// debug.go - optional structured stderr tracing
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
	"reflect"
)

// fnNames maps evaluator identities to display names for -D rates
// dumps and hint diagnostics.
var fnNames = map[uintptr]string{}

func fnKey(fn EvalFn) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

func regFn(fn EvalFn, nm string) {
	fnNames[fnKey(fn)] = nm
}

func init() {
	regFn(EvalTrue, "-true")
	regFn(EvalFalse, "-false")
	regFn(EvalNot, "!")
	regFn(EvalAnd, "-a")
	regFn(EvalOr, "-o")
	regFn(EvalComma, ",")

	regFn(EvalAccess, "-access")
	regFn(EvalAcl, "-acl")
	regFn(EvalCapable, "-capable")
	regFn(EvalXattr, "-xattr")
	regFn(EvalNewer, "-newer")
	regFn(EvalTime, "-time")
	regFn(EvalUsed, "-used")
	regFn(EvalUid, "-uid")
	regFn(EvalGid, "-gid")
	regFn(EvalInum, "-inum")
	regFn(EvalLinks, "-links")
	regFn(EvalDepth, "-depth")
	regFn(EvalNoUser, "-nouser")
	regFn(EvalNoGroup, "-nogroup")
	regFn(EvalEmpty, "-empty")
	regFn(EvalFstype, "-fstype")
	regFn(EvalHidden, "-hidden")
	regFn(EvalName, "-name")
	regFn(EvalPath, "-path")
	regFn(EvalLname, "-lname")
	regFn(EvalPerm, "-perm")
	regFn(EvalRegex, "-regex")
	regFn(EvalSamefile, "-samefile")
	regFn(EvalSize, "-size")
	regFn(EvalSparse, "-sparse")
	regFn(EvalType, "-type")
	regFn(EvalXtype, "-xtype")

	regFn(EvalPrune, "-prune")
	regFn(EvalQuit, "-quit")
	regFn(EvalExit, "-exit")
	regFn(EvalNoHidden, "-nohidden")
	regFn(EvalDelete, "-delete")
	regFn(EvalFprint, "-fprint")
	regFn(EvalFprint0, "-fprint0")
	regFn(EvalFprintx, "-fprintx")
	regFn(EvalFprintf, "-fprintf")
	regFn(EvalFls, "-fls")
	regFn(EvalExec, "-exec")
}

// traceStat emits one line per stat through the cached accessors
// when -D stat is on.
func (st *State) traceStat(flags StatFlag, err error) {
	cl := st.cl
	if cl.Debug&DebugStat == 0 {
		return
	}

	rc := 0
	suffix := ""
	if err != nil {
		rc = -1
		suffix = fmt.Sprintf(" [%s]", err)
	}
	cl.diag("bfind_stat(AT_FDCWD, %q, %s) == %d%s\n", st.V.Path, flags, rc, suffix)
}

// Stringer for stat follow policies
func (f StatFlag) String() string {
	switch {
	case f&NoFollow > 0:
		return "NOFOLLOW"
	case f&TryFollow > 0:
		return "TRYFOLLOW"
	}
	return "FOLLOW"
}

// traceVisit emits a structured record per callback when -D search
// is on.
func (st *State) traceVisit() {
	cl := st.cl
	if cl.Debug&DebugSearch == 0 {
		return
	}

	v := st.V
	cl.diag("bfind_callback({\n")
	cl.diag("\t.path = %q,\n", v.Path)
	cl.diag("\t.root = %q,\n", v.Root)
	cl.diag("\t.depth = %d,\n", v.Depth)
	cl.diag("\t.visit = %s,\n", v.Order)
	cl.diag("\t.typeflag = %s,\n", v.Typeflag)
	cl.diag("\t.error = %v,\n", v.Err)
	cl.diag("}) == %s\n", st.action)
}

// TraceConfig dumps the traversal configuration before the walk when
// -D search is on.
func (cl *Cmdline) TraceConfig() {
	if cl.Debug&DebugTree > 0 {
		cl.Expr.Dump(cl.stderr(), 0)
	}

	if cl.Debug&DebugSearch == 0 {
		return
	}
	cl.diag("bfind_walk(paths=%v, strategy=%s, flags=%#x, mindepth=%d, maxdepth=%d, nopenfd=%d)\n",
		cl.Paths, cl.Strategy, cl.Flags, cl.MinDepth, cl.MaxDepth, cl.NOpenFiles)
}
