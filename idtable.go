// idtable.go - cached uid/gid to name lookups
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
	"os/user"
	"strconv"

	"github.com/puzpuzpuz/xsync/v3"
)

type idEntry struct {
	name string
	ok   bool
}

// IdTable is a concurrency safe cache of numeric id to name
// mappings; misses are cached too so an absent id costs one lookup.
type IdTable struct {
	m  *xsync.MapOf[uint32, idEntry]
	fp func(id uint32) (string, bool)
}

// NewUserTable returns the uid -> user name cache.
func NewUserTable() *IdTable {
	return &IdTable{
		m: xsync.NewMapOf[uint32, idEntry](),
		fp: func(id uint32) (string, bool) {
			u, err := user.LookupId(strconv.FormatUint(uint64(id), 10))
			if err != nil {
				return "", false
			}
			return u.Username, true
		},
	}
}

// NewGroupTable returns the gid -> group name cache.
func NewGroupTable() *IdTable {
	return &IdTable{
		m: xsync.NewMapOf[uint32, idEntry](),
		fp: func(id uint32) (string, bool) {
			g, err := user.LookupGroupId(strconv.FormatUint(uint64(id), 10))
			if err != nil {
				return "", false
			}
			return g.Name, true
		},
	}
}

// Lookup resolves 'id' to a name; false means the id has no entry in
// the underlying database.
func (t *IdTable) Lookup(id uint32) (string, bool) {
	if e, ok := t.m.Load(id); ok {
		return e.name, e.ok
	}

	nm, ok := t.fp(id)
	e, _ := t.m.LoadOrStore(id, idEntry{name: nm, ok: ok})
	return e.name, e.ok
}
