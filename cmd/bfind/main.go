// main.go - bfind command line driver
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
	"path"
	"strings"
	"time"

	flag "github.com/opencoff/pflag"

	"github.com/opencoff/go-logger"

	bfind "github.com/opencoff/go-bfind"
	"github.com/opencoff/go-bfind/walk"
)

var Z = path.Base(os.Args[0])

func main() {
	var help, follow, comfollow, xargsSafe, ignoreRaces bool
	var unique, nocolor, verbose bool
	var strategy, debugStr string

	fs := flag.NewFlagSet(Z, flag.ExitOnError)
	fs.SetInterspersed(false)

	fs.BoolVarP(&help, "help", "h", false, "Show help and exit [False]")
	fs.BoolVarP(&follow, "follow", "L", false, "Follow all symlinks [False]")
	fs.BoolVarP(&comfollow, "comfollow", "H", false, "Follow symlinks on the command line only [False]")
	fs.BoolVarP(&xargsSafe, "xargs-safe", "X", false, "Reject paths unsafe for xargs(1) [False]")
	fs.BoolVar(&ignoreRaces, "ignore-races", false, "Ignore files that vanish during the walk [False]")
	fs.BoolVarP(&unique, "unique", "u", false, "Visit hard linked files only once [False]")
	fs.BoolVar(&nocolor, "nocolor", false, "Never colorize output [False]")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Log progress diagnostics [False]")
	fs.StringVarP(&strategy, "strategy", "S", "bfs", "Traversal `order`: bfs, dfs or ids")
	fs.StringVarP(&debugStr, "debug", "D", "", "Comma separated debug `flags`: rates,stat,search,tree")

	fs.SetOutput(os.Stdout)

	err := fs.Parse(os.Args[1:])
	if err != nil {
		Die("%s", err)
	}

	if help {
		usage(fs)
	}

	log := newLog(verbose)

	cl := &bfind.Cmdline{
		MaxDepth: int(^uint(0) >> 1),
		Unique:   unique,
		Now:      time.Now(),
	}

	cl.XargsSafe = xargsSafe
	cl.IgnoreRaces = ignoreRaces

	switch {
	case follow:
		cl.Flags |= bfind.FlagLogical | bfind.FlagDetectCycles
	case comfollow:
		cl.Flags |= bfind.FlagComFollow
	}

	switch strategy {
	case "bfs":
		cl.Strategy = bfind.BFS
	case "dfs":
		cl.Strategy = bfind.DFS
	case "ids":
		cl.Strategy = bfind.IDS
	default:
		Die("unknown traversal strategy '%s'", strategy)
	}

	cl.Debug, err = parseDebug(debugStr)
	if err != nil {
		Die("%s", err)
	}

	var colors *bfind.ColorTable
	if !nocolor {
		colors = bfind.NewColorTable()
	}
	cl.Colors = colors
	cl.Cout = bfind.NewOutput(os.Stdout, colors)
	cl.Cerr = os.Stderr
	cl.Users = bfind.NewUserTable()
	cl.Groups = bfind.NewGroupTable()

	p := newParser(cl, fs.Args())
	if err := p.parse(); err != nil {
		Die("%s", err)
	}

	// post-order delivery is inherently depth first
	if cl.Flags&bfind.FlagDepth > 0 && cl.Strategy == bfind.BFS {
		cl.Strategy = bfind.DFS
	}

	cl.NOpenFiles = bfind.MaxOpenFiles(cl.Expr)
	cl.TraceConfig()

	log.Debug("starting %s walk of %v (maxdepth %d, %d fds)",
		cl.Strategy, cl.Paths, cl.MaxDepth, cl.NOpenFiles)

	werr := walk.Walk(cl.Paths, walk.Options{
		Strategy:   cl.Strategy,
		Flags:      cl.Flags,
		NOpenFiles: cl.NOpenFiles,
	}, cl.Callback)

	rc := cl.Finish(werr)
	log.Debug("walk complete; exit status %d", rc)
	log.Close()
	os.Exit(rc)
}

func newLog(verbose bool) logger.Logger {
	prio := logger.LOG_WARN
	if verbose {
		prio = logger.LOG_DEBUG
	}

	log, err := logger.NewLogger("STDERR", prio, Z, logger.Ldate|logger.Ltime)
	if err != nil {
		Die("can't create logger: %s", err)
	}
	return log
}

func parseDebug(s string) (bfind.DebugFlag, error) {
	var d bfind.DebugFlag

	if len(s) == 0 {
		return d, nil
	}

	for _, f := range strings.Split(s, ",") {
		switch f {
		case "rates":
			d |= bfind.DebugRates
		case "stat":
			d |= bfind.DebugStat
		case "search":
			d |= bfind.DebugSearch
		case "tree":
			d |= bfind.DebugTree
		case "all":
			d |= bfind.DebugRates | bfind.DebugStat | bfind.DebugSearch | bfind.DebugTree
		default:
			return d, fmt.Errorf("unknown debug flag '%s'", f)
		}
	}
	return d, nil
}

// Die prints an error on stderr and exits with status 1
func Die(s string, args ...any) {
	m := fmt.Sprintf("%s: %s", Z, fmt.Sprintf(s, args...))
	if n := len(m); m[n-1] != '\n' {
		m += "\n"
	}
	os.Stderr.WriteString(m)
	os.Exit(1)
}

// Warn prints an error on stderr and keeps going
func Warn(s string, args ...any) {
	m := fmt.Sprintf("%s: %s", Z, fmt.Sprintf(s, args...))
	if n := len(m); m[n-1] != '\n' {
		m += "\n"
	}
	os.Stderr.WriteString(m)
}

func usage(fs *flag.FlagSet) {
	fmt.Printf(usageStr, Z, Z)
	fs.PrintDefaults()
	os.Exit(1)
}

var usageStr = `%s - breadth-first, find(1) compatible file system search.

Global flags come first, then starting paths, then an expression of
tests, actions and operators ( -name, -type, ! ( ... ) -o -print ... ).
With no action in the expression, -print is implied.

Usage: %s [options] [path...] [expression]

Options:
`
