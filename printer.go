// printer.go - output streams, colour table and the -printf program
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
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

// ColorTable holds the SGR sequences used when printing to a
// terminal. Zero value means "no colour".
type ColorTable struct {
	Reset   string
	Dir     string
	Link    string
	Exec    string
	Fifo    string
	Sock    string
	BlkDev  string
	ChrDev  string
	Suid    string
	Sticky  string
}

// NewColorTable returns the default colour scheme (the common
// LS_COLORS defaults).
func NewColorTable() *ColorTable {
	return &ColorTable{
		Reset:  "0",
		Dir:    "01;34",
		Link:   "01;36",
		Exec:   "01;32",
		Fifo:   "33",
		Sock:   "01;35",
		BlkDev: "01;33",
		ChrDev: "01;33",
		Suid:   "37;41",
		Sticky: "37;44",
	}
}

func (c *ColorTable) colorOf(m fs.FileMode) string {
	switch {
	case m&fs.ModeSetuid > 0:
		return c.Suid
	case m.IsDir() && m&fs.ModeSticky > 0:
		return c.Sticky
	case m.IsDir():
		return c.Dir
	case m&fs.ModeSymlink > 0:
		return c.Link
	case m&fs.ModeCharDevice > 0:
		return c.ChrDev
	case m&fs.ModeDevice > 0:
		return c.BlkDev
	case m&fs.ModeNamedPipe > 0:
		return c.Fifo
	case m&fs.ModeSocket > 0:
		return c.Sock
	case m&0111 > 0:
		return c.Exec
	}
	return ""
}

// Output is a buffered, optionally colour-capable output stream.
// Every -print family node points at one; distinct -fprint files
// each cost a persistent fd.
type Output struct {
	Name string

	w      *bufio.Writer
	tty    bool
	colors *ColorTable
}

// NewOutput wraps an open file; colour is enabled only when the file
// is a terminal and a colour table is supplied.
func NewOutput(fd *os.File, colors *ColorTable) *Output {
	return &Output{
		Name:   fd.Name(),
		w:      bufio.NewWriter(fd),
		tty:    term.IsTerminal(int(fd.Fd())),
		colors: colors,
	}
}

// NewOutputW wraps a generic writer; never coloured. The tests use it
// to capture output in memory.
func NewOutputW(w io.Writer, name string) *Output {
	return &Output{Name: name, w: bufio.NewWriter(w)}
}

func (o *Output) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

func (o *Output) WriteString(s string) (int, error) {
	return o.w.WriteString(s)
}

// Flush drains the buffer to the underlying stream.
func (o *Output) Flush() error {
	return o.w.Flush()
}

// printPath writes the visit's full path, coloured by entry type when
// the stream is a terminal.
func (o *Output) printPath(st *State) error {
	if !o.tty || o.colors == nil {
		_, err := o.w.WriteString(st.V.Path)
		return err
	}

	fi, err := st.V.Stat(NoFollow)
	if err != nil {
		_, err = o.w.WriteString(st.V.Path)
		return err
	}
	return o.printColored(st.V.Path, fi.Mode())
}

func (o *Output) printColored(s string, m fs.FileMode) error {
	col := o.colors.colorOf(m)
	if col == "" {
		_, err := o.w.WriteString(s)
		return err
	}
	_, err := fmt.Fprintf(o.w, "\033[%sm%s\033[%sm", col, s, o.colors.Reset)
	return err
}

// printLink writes "path -> target" in the colour table's link form.
func (o *Output) printLink(st *State, targ string) error {
	if err := o.printPath(st); err != nil {
		return err
	}
	if _, err := o.w.WriteString(" -> "); err != nil {
		return err
	}

	if !o.tty || o.colors == nil {
		_, err := o.w.WriteString(targ)
		return err
	}
	return o.printColored(targ, fs.ModeSymlink)
}

// modeString renders the ls -l style mode column: a type letter and
// three rwx triplets with setuid/setgid/sticky folded in.
func modeString(fi *Info) string {
	var b [10]byte

	m := fi.Mode()
	switch {
	case m.IsDir():
		b[0] = 'd'
	case m&fs.ModeSymlink > 0:
		b[0] = 'l'
	case m&fs.ModeCharDevice > 0:
		b[0] = 'c'
	case m&fs.ModeDevice > 0:
		b[0] = 'b'
	case m&fs.ModeNamedPipe > 0:
		b[0] = 'p'
	case m&fs.ModeSocket > 0:
		b[0] = 's'
	default:
		b[0] = '-'
	}

	bits := fi.PermBits()
	rwx := func(off int, shift uint, special byte, set bool) {
		triplet := (bits >> shift) & 7
		chars := [3]byte{'-', '-', '-'}
		if triplet&4 > 0 {
			chars[0] = 'r'
		}
		if triplet&2 > 0 {
			chars[1] = 'w'
		}
		if triplet&1 > 0 {
			chars[2] = 'x'
		}
		if set {
			if triplet&1 > 0 {
				chars[2] = special
			} else {
				chars[2] = special - 'a' + 'A'
			}
		}
		copy(b[off:], chars[:])
	}

	rwx(1, 6, 's', bits&04000 > 0)
	rwx(4, 3, 's', bits&02000 > 0)
	rwx(7, 0, 't', bits&01000 > 0)
	return string(b[:])
}

// sixMonths is the age window that switches the ls timestamp from
// "Jan _2 15:04" to "Jan _2  2006". Kept as 6*30 days on purpose -
// this matches the traditional ls output, not the calendar.
const sixMonths = 6 * 30 * 86400 * time.Second

func lsTime(now, t time.Time) string {
	lo := now.Add(-sixMonths)
	hi := now.Add(86400 * time.Second)

	if t.After(lo) && t.Before(hi) {
		return t.Local().Format("Jan _2 15:04")
	}
	return t.Local().Format("Jan _2  2006")
}

// FormatProg is a compiled -printf format: a sequence of literal
// chunks and directives, interpreted once per matching entry.
type FormatProg struct {
	src  string
	segs []fmtSeg
}

type fmtSeg struct {
	lit  string
	verb byte

	// strftime-style letter for the %A/%C/%T family
	timefmt byte
}

// strftime letters we honour for %Ax/%Cx/%Tx, mapped to Go layouts
var strftimeMap = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'e': "_2",
	'H': "15",
	'M': "04",
	'S': "05",
	'b': "Jan",
	'a': "Mon",
	'p': "PM",
	'T': "15:04:05",
	'R': "15:04",
	'D': "01/02/06",
	'F': "2006-01-02",
}

// CompileFormat compiles a -printf format string. Unknown directives
// are kept literally; a trailing lone '%' or '\' is an error.
func CompileFormat(src string) (*FormatProg, error) {
	p := &FormatProg{src: src}

	var lit strings.Builder
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '\\':
			i++
			if i >= len(src) {
				return nil, fmt.Errorf("printf: trailing backslash in %q", src)
			}
			switch src[i] {
			case 'n':
				lit.WriteByte('\n')
			case 't':
				lit.WriteByte('\t')
			case 'r':
				lit.WriteByte('\r')
			case 'a':
				lit.WriteByte('\a')
			case 'b':
				lit.WriteByte('\b')
			case 'f':
				lit.WriteByte('\f')
			case 'v':
				lit.WriteByte('\v')
			case '0':
				lit.WriteByte(0)
			case '\\':
				lit.WriteByte('\\')
			default:
				lit.WriteByte('\\')
				lit.WriteByte(src[i])
			}

		case '%':
			i++
			if i >= len(src) {
				return nil, fmt.Errorf("printf: trailing %% in %q", src)
			}
			verb := src[i]
			if verb == '%' {
				lit.WriteByte('%')
				continue
			}

			seg := fmtSeg{lit: lit.String(), verb: verb}
			lit.Reset()

			switch verb {
			case 'A', 'C', 'T':
				i++
				if i >= len(src) {
					return nil, fmt.Errorf("printf: %%%c needs a time format letter", verb)
				}
				seg.timefmt = src[i]
				if seg.timefmt != '@' {
					if _, ok := strftimeMap[seg.timefmt]; !ok {
						return nil, fmt.Errorf("printf: unknown time format %%%c%c", verb, seg.timefmt)
					}
				}
			case 'p', 'f', 'h', 'P', 'd', 's', 'k', 'b', 'm', 'M',
				'u', 'g', 'U', 'G', 'i', 'n', 'y', 'l', 't', 'a', 'c':
				// no argument
			default:
				// reproduce unknown directives literally
				seg.verb = 0
				seg.lit += "%" + string(verb)
			}
			p.segs = append(p.segs, seg)

		default:
			lit.WriteByte(c)
		}
	}

	if lit.Len() > 0 {
		p.segs = append(p.segs, fmtSeg{lit: lit.String()})
	}
	return p, nil
}

// Print interprets the program for one visit.
func (p *FormatProg) Print(o *Output, st *State) error {
	for i := range p.segs {
		seg := &p.segs[i]
		if seg.lit != "" {
			if _, err := o.WriteString(seg.lit); err != nil {
				return err
			}
		}
		if seg.verb == 0 {
			continue
		}
		if err := p.printVerb(seg, o, st); err != nil {
			return err
		}
	}
	return nil
}

func (p *FormatProg) printVerb(seg *fmtSeg, o *Output, st *State) error {
	v := st.V

	var s string
	switch seg.verb {
	case 'p':
		s = v.Path
	case 'f':
		s = v.Name()
	case 'h':
		s = filepath.Dir(v.Path)
	case 'P':
		s = strings.TrimPrefix(strings.TrimPrefix(v.Path, v.Root), "/")
	case 'd':
		s = strconv.Itoa(v.Depth)
	case 'y':
		s = typeLetter(v)
	case 'l':
		if t, err := v.TypeOf(NoFollow); err == nil && t&SYMLINK > 0 {
			s, _ = os.Readlink(v.Path)
		}

	default:
		fi := st.ostat()
		if fi == nil {
			return nil
		}
		switch seg.verb {
		case 's':
			s = strconv.FormatInt(fi.Siz, 10)
		case 'k':
			s = strconv.FormatInt((fi.Siz+1023)/1024, 10)
		case 'b':
			s = strconv.FormatInt(fi.Blocks, 10)
		case 'm':
			s = strconv.FormatUint(uint64(fi.PermBits()), 8)
		case 'M':
			s = modeString(fi)
		case 'u':
			s = nameOrId(st.cl.Users, fi.Uid)
		case 'g':
			s = nameOrId(st.cl.Groups, fi.Gid)
		case 'U':
			s = strconv.FormatUint(uint64(fi.Uid), 10)
		case 'G':
			s = strconv.FormatUint(uint64(fi.Gid), 10)
		case 'i':
			s = strconv.FormatUint(fi.Ino, 10)
		case 'n':
			s = strconv.FormatUint(uint64(fi.Nlink), 10)
		case 't':
			s = lsTime(st.cl.Now, fi.Mtim)
		case 'a':
			s = lsTime(st.cl.Now, fi.Atim)
		case 'c':
			s = lsTime(st.cl.Now, fi.Ctim)
		case 'A', 'C', 'T':
			var t time.Time
			switch seg.verb {
			case 'A':
				t = fi.Atim
			case 'C':
				t = fi.Ctim
			default:
				t = fi.Mtim
			}
			if seg.timefmt == '@' {
				s = fmt.Sprintf("%d.%09d", t.Unix(), t.Nanosecond())
			} else {
				s = t.Local().Format(strftimeMap[seg.timefmt])
			}
		}
	}

	_, err := o.WriteString(s)
	return err
}

func typeLetter(v *Visit) string {
	t, err := v.TypeOf(NoFollow)
	if err != nil {
		return "?"
	}

	switch t {
	case FILE:
		return "f"
	case DIR:
		return "d"
	case SYMLINK:
		return "l"
	case BLKDEV:
		return "b"
	case CHRDEV:
		return "c"
	case FIFO:
		return "p"
	case SOCKET:
		return "s"
	}
	return "?"
}

func nameOrId(t *IdTable, id uint32) string {
	if t != nil {
		if nm, ok := t.Lookup(id); ok {
			return nm
		}
	}
	return strconv.FormatUint(uint64(id), 10)
}
