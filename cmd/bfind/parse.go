// parse.go - parse a find(1) style command line into an expression tree
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

package main

import (
	"fmt"
	"os"
	"os/user"
	"regexp"
	"strconv"
	"strings"

	"github.com/opencoff/go-utils"

	bfind "github.com/opencoff/go-bfind"
)

// Grammar, loosest binding first:
//
//	clause := term ( ',' term )*
//	term   := factor ( (-o|-or) factor )*
//	factor := unary ( (-a|-and)? unary )*
//	unary  := (!|-not) unary | '(' clause ')' | leaf
//
// Leaves are tests, actions and positional options; options bind to
// the whole command line and evaluate as -true.

type parser struct {
	cl   *bfind.Cmdline
	toks []string
	pos  int

	// one Output per distinct -fprint file
	outs map[string]*bfind.Output

	// an action leaf was seen; no implicit -print
	hasAction bool
}

func newParser(cl *bfind.Cmdline, args []string) *parser {
	p := &parser{
		cl:   cl,
		outs: make(map[string]*bfind.Output),
	}
	p.split(args)
	return p
}

// split peels leading non-expression arguments off as starting paths.
func (p *parser) split(args []string) {
	i := 0
	for ; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "-") || a == "(" || a == ")" || a == "!" || a == "," {
			break
		}
		p.cl.Paths = append(p.cl.Paths, a)
	}
	if len(p.cl.Paths) == 0 {
		p.cl.Paths = []string{"."}
	}

	p.toks = args[i:]
}

func (p *parser) parse() error {
	if len(p.toks) == 0 {
		p.cl.Expr = p.printNode()
		return nil
	}

	e, err := p.clause()
	if err != nil {
		return err
	}
	if p.pos < len(p.toks) {
		return fmt.Errorf("unexpected token '%s'", p.peek())
	}

	if !p.hasAction {
		e = &bfind.Expr{Fn: bfind.EvalAnd, Lhs: e, Rhs: p.printNode()}
	}
	p.cl.Expr = e
	return nil
}

func (p *parser) printNode() *bfind.Expr {
	return &bfind.Expr{
		Fn:         bfind.EvalFprint,
		Out:        p.cl.Cout,
		AlwaysTrue: true,
	}
}

func (p *parser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *parser) next() (string, bool) {
	if p.pos >= len(p.toks) {
		return "", false
	}
	t := p.toks[p.pos]
	p.pos++
	return t, true
}

// operand fetches the required argument of the leaf at 'tok'
func (p *parser) operand(tok string) (string, error) {
	s, ok := p.next()
	if !ok {
		return "", fmt.Errorf("%s needs an argument", tok)
	}
	return s, nil
}

func (p *parser) clause() (*bfind.Expr, error) {
	e, err := p.term()
	if err != nil {
		return nil, err
	}

	for p.peek() == "," {
		p.next()
		rhs, err := p.term()
		if err != nil {
			return nil, err
		}
		e = &bfind.Expr{Fn: bfind.EvalComma, Lhs: e, Rhs: rhs}
	}
	return e, nil
}

func (p *parser) term() (*bfind.Expr, error) {
	e, err := p.factor()
	if err != nil {
		return nil, err
	}

	for p.peek() == "-o" || p.peek() == "-or" {
		p.next()
		rhs, err := p.factor()
		if err != nil {
			return nil, err
		}
		e = &bfind.Expr{Fn: bfind.EvalOr, Lhs: e, Rhs: rhs}
	}
	return e, nil
}

func (p *parser) factor() (*bfind.Expr, error) {
	e, err := p.unary()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		switch {
		case t == "-a" || t == "-and":
			p.next()
		case t == "" || t == ")" || t == "," || t == "-o" || t == "-or":
			return e, nil
		}

		rhs, err := p.unary()
		if err != nil {
			return nil, err
		}
		e = &bfind.Expr{Fn: bfind.EvalAnd, Lhs: e, Rhs: rhs}
	}
}

func (p *parser) unary() (*bfind.Expr, error) {
	t, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("expected an expression")
	}

	switch t {
	case "!", "-not":
		rhs, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &bfind.Expr{Fn: bfind.EvalNot, Rhs: rhs}, nil

	case "(":
		e, err := p.clause()
		if err != nil {
			return nil, err
		}
		if tok, _ := p.next(); tok != ")" {
			return nil, fmt.Errorf("missing closing ')'")
		}
		return e, nil
	}

	return p.leaf(t)
}

// trueNode is what positional options evaluate as
func trueNode() *bfind.Expr {
	return &bfind.Expr{Fn: bfind.EvalTrue, AlwaysTrue: true}
}

func (p *parser) leaf(t string) (*bfind.Expr, error) {
	switch t {
	// positional options
	case "-maxdepth", "-mindepth":
		s, err := p.operand(t)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%s: bad depth '%s'", t, s)
		}
		if t == "-maxdepth" {
			p.cl.MaxDepth = n
		} else {
			p.cl.MinDepth = n
		}
		return trueNode(), nil

	case "-depth", "-d":
		// bare -depth is the post-order option; with a numeric
		// operand it is the depth test
		if cmp, n, ok := icmp(p.peek()); ok {
			p.next()
			return &bfind.Expr{Fn: bfind.EvalDepth, Cmp: cmp, Num: n}, nil
		}
		p.cl.Flags |= bfind.FlagDepth
		return trueNode(), nil

	case "-xdev":
		p.cl.Flags |= bfind.FlagXdev
		return trueNode(), nil

	case "-mount":
		p.cl.Flags |= bfind.FlagMount
		return trueNode(), nil

	case "-unique":
		p.cl.Unique = true
		return trueNode(), nil

	case "-ignore-races":
		p.cl.IgnoreRaces = true
		return trueNode(), nil

	case "-color":
		return trueNode(), nil
	case "-nocolor":
		p.cl.Colors = nil
		return trueNode(), nil

	// constants
	case "-true":
		return trueNode(), nil
	case "-false":
		return &bfind.Expr{Fn: bfind.EvalFalse, AlwaysFalse: true}, nil

	// name and path tests
	case "-name", "-iname":
		return p.globLeaf(t, bfind.EvalName, t == "-iname")
	case "-path", "-ipath", "-wholename", "-iwholename":
		return p.globLeaf(t, bfind.EvalPath, strings.HasPrefix(t, "-i"))
	case "-lname", "-ilname":
		return p.globLeaf(t, bfind.EvalLname, t == "-ilname")

	case "-regex", "-iregex":
		s, err := p.operand(t)
		if err != nil {
			return nil, err
		}
		pat := `\A(?:` + s + `)\z`
		if t == "-iregex" {
			pat = `(?i)` + pat
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("%s: %s", t, err)
		}
		return &bfind.Expr{Fn: bfind.EvalRegex, Re: re, Str: s}, nil

	// type tests
	case "-type", "-xtype":
		s, err := p.operand(t)
		if err != nil {
			return nil, err
		}
		mask, err := typeMask(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %s", t, err)
		}
		fn := bfind.EvalType
		if t == "-xtype" {
			fn = bfind.EvalXtype
		}
		return &bfind.Expr{Fn: fn, Num: int64(mask)}, nil

	// numeric stat tests
	case "-uid":
		return p.icmpLeaf(t, bfind.EvalUid)
	case "-gid":
		return p.icmpLeaf(t, bfind.EvalGid)
	case "-inum":
		return p.icmpLeaf(t, bfind.EvalInum)
	case "-links":
		return p.icmpLeaf(t, bfind.EvalLinks)
	case "-used":
		return p.icmpLeaf(t, bfind.EvalUsed)

	case "-user", "-group":
		s, err := p.operand(t)
		if err != nil {
			return nil, err
		}
		id, err := lookupId(t, s)
		if err != nil {
			return nil, err
		}
		fn := bfind.EvalUid
		if t == "-group" {
			fn = bfind.EvalGid
		}
		return &bfind.Expr{Fn: fn, Cmp: bfind.CmpExact, Num: id}, nil

	case "-nouser":
		return &bfind.Expr{Fn: bfind.EvalNoUser}, nil
	case "-nogroup":
		return &bfind.Expr{Fn: bfind.EvalNoGroup}, nil

	// time tests
	case "-amin", "-bmin", "-cmin", "-mmin":
		return p.timeLeaf(t, timeField(t[1]), bfind.Minutes)
	case "-atime", "-btime", "-ctime", "-mtime":
		return p.timeLeaf(t, timeField(t[1]), bfind.Days)

	case "-anewer", "-cnewer", "-newer":
		f := bfind.MTime
		switch t {
		case "-anewer":
			f = bfind.ATime
		case "-cnewer":
			f = bfind.CTime
		}
		return p.newerLeaf(t, f, bfind.MTime)

	// size and layout tests
	case "-size":
		s, err := p.operand(t)
		if err != nil {
			return nil, err
		}
		return sizeLeaf(s)

	case "-empty":
		return &bfind.Expr{Fn: bfind.EvalEmpty, EphemeralFds: 1}, nil
	case "-sparse":
		return &bfind.Expr{Fn: bfind.EvalSparse}, nil
	case "-hidden":
		return &bfind.Expr{Fn: bfind.EvalHidden}, nil

	case "-samefile":
		s, err := p.operand(t)
		if err != nil {
			return nil, err
		}
		fi, err := bfind.Stat(s)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %s", t, s, err)
		}
		return &bfind.Expr{Fn: bfind.EvalSamefile, Dev: fi.Dev, Ino: fi.Ino, Str: s}, nil

	case "-fstype":
		s, err := p.operand(t)
		if err != nil {
			return nil, err
		}
		if p.cl.Mtab == nil {
			mt, err := bfind.LoadMountTable()
			if err != nil {
				return nil, fmt.Errorf("%s: mount table: %s", t, err)
			}
			p.cl.Mtab = mt
		}
		return &bfind.Expr{Fn: bfind.EvalFstype, Str: s}, nil

	case "-perm":
		s, err := p.operand(t)
		if err != nil {
			return nil, err
		}
		return permLeaf(s)

	// permission probes
	case "-readable":
		return &bfind.Expr{Fn: bfind.EvalAccess, Num: 4}, nil // R_OK
	case "-writable":
		return &bfind.Expr{Fn: bfind.EvalAccess, Num: 2}, nil // W_OK
	case "-executable":
		return &bfind.Expr{Fn: bfind.EvalAccess, Num: 1}, nil // X_OK

	case "-acl":
		return &bfind.Expr{Fn: bfind.EvalAcl}, nil
	case "-capable":
		return &bfind.Expr{Fn: bfind.EvalCapable}, nil
	case "-xattr":
		return &bfind.Expr{Fn: bfind.EvalXattr}, nil

	// actions
	case "-print":
		p.hasAction = true
		return p.printNode(), nil

	case "-print0":
		p.hasAction = true
		return &bfind.Expr{Fn: bfind.EvalFprint0, Out: p.cl.Cout, AlwaysTrue: true}, nil

	case "-printx":
		p.hasAction = true
		return &bfind.Expr{Fn: bfind.EvalFprintx, Out: p.cl.Cout, AlwaysTrue: true}, nil

	case "-printf":
		s, err := p.operand(t)
		if err != nil {
			return nil, err
		}
		prog, err := bfind.CompileFormat(s)
		if err != nil {
			return nil, err
		}
		p.hasAction = true
		return &bfind.Expr{Fn: bfind.EvalFprintf, Out: p.cl.Cout, Prog: prog, AlwaysTrue: true}, nil

	case "-fprint", "-fprint0", "-fprintx":
		out, err := p.fileOperand(t)
		if err != nil {
			return nil, err
		}
		fn := bfind.EvalFprint
		switch t {
		case "-fprint0":
			fn = bfind.EvalFprint0
		case "-fprintx":
			fn = bfind.EvalFprintx
		}
		p.hasAction = true
		return &bfind.Expr{Fn: fn, Out: out, AlwaysTrue: true, PersistentFds: 1}, nil

	case "-fprintf":
		out, err := p.fileOperand(t)
		if err != nil {
			return nil, err
		}
		s, err := p.operand(t)
		if err != nil {
			return nil, err
		}
		prog, err := bfind.CompileFormat(s)
		if err != nil {
			return nil, err
		}
		p.hasAction = true
		return &bfind.Expr{Fn: bfind.EvalFprintf, Out: out, Prog: prog, AlwaysTrue: true, PersistentFds: 1}, nil

	case "-ls":
		p.hasAction = true
		return &bfind.Expr{Fn: bfind.EvalFls, Out: p.cl.Cout, AlwaysTrue: true}, nil

	case "-fls":
		out, err := p.fileOperand(t)
		if err != nil {
			return nil, err
		}
		p.hasAction = true
		return &bfind.Expr{Fn: bfind.EvalFls, Out: out, AlwaysTrue: true, PersistentFds: 1}, nil

	case "-delete":
		// deleting needs children gone before their parent
		p.cl.Flags |= bfind.FlagDepth
		p.hasAction = true
		return &bfind.Expr{Fn: bfind.EvalDelete}, nil

	case "-prune":
		return &bfind.Expr{Fn: bfind.EvalPrune, AlwaysTrue: true}, nil

	case "-nohidden":
		return &bfind.Expr{Fn: bfind.EvalNoHidden}, nil

	case "-quit":
		p.hasAction = true
		return &bfind.Expr{Fn: bfind.EvalQuit, AlwaysTrue: true, NeverReturns: true}, nil

	case "-exit":
		n := int64(0)
		if s := p.peek(); s != "" {
			if v, err := strconv.ParseInt(s, 10, 32); err == nil {
				p.next()
				n = v
			}
		}
		p.hasAction = true
		return &bfind.Expr{Fn: bfind.EvalExit, Num: n, AlwaysTrue: true, NeverReturns: true}, nil

	case "-exec", "-execdir":
		return p.execLeaf(t)
	}

	return nil, fmt.Errorf("unknown token '%s'", t)
}

func (p *parser) globLeaf(t string, fn bfind.EvalFn, fold bool) (*bfind.Expr, error) {
	s, err := p.operand(t)
	if err != nil {
		return nil, err
	}
	return &bfind.Expr{Fn: fn, Str: s, Fold: fold}, nil
}

func (p *parser) icmpLeaf(t string, fn bfind.EvalFn) (*bfind.Expr, error) {
	s, err := p.operand(t)
	if err != nil {
		return nil, err
	}
	cmp, n, ok := icmp(s)
	if !ok {
		return nil, fmt.Errorf("%s: bad number '%s'", t, s)
	}
	return &bfind.Expr{Fn: fn, Cmp: cmp, Num: n}, nil
}

func (p *parser) timeLeaf(t string, f bfind.TimeField, unit bfind.TimeUnit) (*bfind.Expr, error) {
	s, err := p.operand(t)
	if err != nil {
		return nil, err
	}
	cmp, n, ok := icmp(s)
	if !ok {
		return nil, fmt.Errorf("%s: bad number '%s'", t, s)
	}
	return &bfind.Expr{Fn: bfind.EvalTime, Cmp: cmp, Num: n, TField: f, TUnit: unit}, nil
}

// newerLeaf builds -newer and friends: 'field' is the tested entry's
// timestamp, 'ref' selects which timestamp of the reference file to
// compare against.
func (p *parser) newerLeaf(t string, field, ref bfind.TimeField) (*bfind.Expr, error) {
	s, err := p.operand(t)
	if err != nil {
		return nil, err
	}
	fi, err := bfind.Stat(s)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %s", t, s, err)
	}
	return &bfind.Expr{Fn: bfind.EvalNewer, TField: field, Ref: fi.Timestamp(ref), Str: s}, nil
}

func (p *parser) fileOperand(t string) (*bfind.Output, error) {
	s, err := p.operand(t)
	if err != nil {
		return nil, err
	}

	if out, ok := p.outs[s]; ok {
		return out, nil
	}

	fd, err := os.Create(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", t, err)
	}

	out := bfind.NewOutput(fd, p.cl.Colors)
	p.outs[s] = out
	return out, nil
}

func (p *parser) execLeaf(t string) (*bfind.Expr, error) {
	var argv []string
	batch := false

	for {
		s, ok := p.next()
		if !ok {
			return nil, fmt.Errorf("%s: missing terminating ';' or '+'", t)
		}
		if s == ";" {
			break
		}
		if s == "+" && len(argv) > 0 && argv[len(argv)-1] == "{}" {
			batch = true
			break
		}
		argv = append(argv, s)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("%s: missing command", t)
	}

	eb := &bfind.ExecBuf{
		Argv:  argv,
		Batch: batch,
		Dir:   t == "-execdir",
	}

	p.hasAction = true
	e := &bfind.Expr{Fn: bfind.EvalExec, Exec: eb, Argv: argv, EphemeralFds: 2}
	if batch {
		e.AlwaysTrue = true
	}
	return e, nil
}

// icmp parses find's three-way numeric operand: +N, -N or N.
func icmp(s string) (bfind.Cmp, int64, bool) {
	cmp := bfind.CmpExact

	switch {
	case strings.HasPrefix(s, "+"):
		cmp = bfind.CmpMore
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		cmp = bfind.CmpLess
		s = s[1:]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return cmp, 0, false
	}
	return cmp, n, true
}

func timeField(c byte) bfind.TimeField {
	switch c {
	case 'a':
		return bfind.ATime
	case 'b':
		return bfind.BTime
	case 'c':
		return bfind.CTime
	}
	return bfind.MTime
}

func typeMask(s string) (bfind.Type, error) {
	var mask bfind.Type

	for _, c := range strings.Split(s, ",") {
		switch c {
		case "f":
			mask |= bfind.FILE
		case "d":
			mask |= bfind.DIR
		case "l":
			mask |= bfind.SYMLINK
		case "b":
			mask |= bfind.BLKDEV
		case "c":
			mask |= bfind.CHRDEV
		case "p":
			mask |= bfind.FIFO
		case "s":
			mask |= bfind.SOCKET
		default:
			return 0, fmt.Errorf("unknown type '%s'", c)
		}
	}
	return mask, nil
}

// sizeLeaf parses -size N[cwbkMGTP], also accepting humanized forms
// like 1.5GB via go-utils.
func sizeLeaf(s string) (*bfind.Expr, error) {
	cmp := bfind.CmpExact
	switch {
	case strings.HasPrefix(s, "+"):
		cmp = bfind.CmpMore
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		cmp = bfind.CmpLess
		s = s[1:]
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("-size: missing number")
	}

	unit := bfind.SizeBlocks
	switch s[len(s)-1] {
	case 'c':
		unit = bfind.SizeBytes
		s = s[:len(s)-1]
	case 'w':
		unit = bfind.SizeWords
		s = s[:len(s)-1]
	case 'b':
		unit = bfind.SizeBlocks
		s = s[:len(s)-1]
	case 'k':
		unit = bfind.SizeKB
		s = s[:len(s)-1]
	case 'M':
		unit = bfind.SizeMB
		s = s[:len(s)-1]
	case 'G':
		unit = bfind.SizeGB
		s = s[:len(s)-1]
	case 'T':
		unit = bfind.SizeTB
		s = s[:len(s)-1]
	case 'P':
		unit = bfind.SizePB
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// humanized byte sizes: "-size +1.5GB"
		z, zerr := utils.ParseSize(s + "B")
		if zerr != nil {
			return nil, fmt.Errorf("-size: bad size '%s'", s)
		}
		return &bfind.Expr{Fn: bfind.EvalSize, Cmp: cmp, Num: int64(z), SUnit: bfind.SizeBytes}, nil
	}
	return &bfind.Expr{Fn: bfind.EvalSize, Cmp: cmp, Num: n, SUnit: unit}, nil
}

// permLeaf parses -perm [-/]MODE with MODE octal or symbolic.
func permLeaf(s string) (*bfind.Expr, error) {
	kind := bfind.PermExact
	switch {
	case strings.HasPrefix(s, "-"):
		kind = bfind.PermAll
		s = s[1:]
	case strings.HasPrefix(s, "/"):
		kind = bfind.PermAny
		s = s[1:]
	}

	if n, err := strconv.ParseUint(s, 8, 32); err == nil {
		if n > 07777 {
			return nil, fmt.Errorf("-perm: mode %o out of range", n)
		}
		return &bfind.Expr{Fn: bfind.EvalPerm, PermKind: kind,
			FileMode: uint32(n), DirMode: uint32(n)}, nil
	}

	fmode, dmode, err := symbolicMode(s)
	if err != nil {
		return nil, fmt.Errorf("-perm: %s", err)
	}
	return &bfind.Expr{Fn: bfind.EvalPerm, PermKind: kind,
		FileMode: fmode, DirMode: dmode}, nil
}

// symbolicMode parses chmod style clauses ("u+rw,go-x"). The file
// and dir results differ only for 'X', which grants execute to
// directories alone.
func symbolicMode(s string) (fmode, dmode uint32, err error) {
	for _, clause := range strings.Split(s, ",") {
		i := strings.IndexAny(clause, "+-=")
		if i < 0 {
			return 0, 0, fmt.Errorf("bad mode clause '%s'", clause)
		}

		who := clause[:i]
		rest := clause[i:]

		var mask uint32
		if who == "" || who == "a" {
			mask = 0777
		} else {
			for _, c := range who {
				switch c {
				case 'u':
					mask |= 0700
				case 'g':
					mask |= 0070
				case 'o':
					mask |= 0007
				case 'a':
					mask |= 0777
				default:
					return 0, 0, fmt.Errorf("bad who '%c'", c)
				}
			}
		}

		for len(rest) > 0 {
			op := rest[0]
			rest = rest[1:]

			var fbits, dbits uint32
			for len(rest) > 0 && strings.IndexByte("+-=", rest[0]) < 0 {
				switch rest[0] {
				case 'r':
					fbits |= 0444
				case 'w':
					fbits |= 0222
				case 'x':
					fbits |= 0111
				case 'X':
					dbits |= 0111
				case 's':
					if mask&0700 > 0 {
						fbits |= 04000
					}
					if mask&0070 > 0 {
						fbits |= 02000
					}
				case 't':
					fbits |= 01000
				default:
					return 0, 0, fmt.Errorf("bad permission '%c'", rest[0])
				}
				rest = rest[1:]
			}

			fb := (fbits & 07000) | (fbits & mask)
			db := fb | (dbits & mask)

			switch op {
			case '+', '=':
				fmode |= fb
				dmode |= db
			case '-':
				fmode &^= fb
				dmode &^= db
			}
		}
	}
	return fmode, dmode, nil
}

func lookupId(t, s string) (int64, error) {
	if t == "-user" {
		if u, err := user.Lookup(s); err == nil {
			return strconv.ParseInt(u.Uid, 10, 64)
		}
	} else {
		if g, err := user.LookupGroup(s); err == nil {
			return strconv.ParseInt(g.Gid, 10, 64)
		}
	}

	// numeric fallback
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: unknown name '%s'", t, s)
	}
	return n, nil
}
