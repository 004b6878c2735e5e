// mntent.go - mount table lookups for -fstype
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
	"syscall"

	"github.com/moby/sys/mountinfo"
)

// MountTable maps stat device ids to file system type names. Built
// once before the traversal; mount points appearing afterwards are
// simply unknown.
type MountTable struct {
	byDev map[uint64]string
}

// LoadMountTable reads the host's mount table and stats each mount
// point to learn its device id. Unreachable mount points are skipped.
func LoadMountTable() (*MountTable, error) {
	mounts, err := mountinfo.GetMounts(nil)
	if err != nil {
		return nil, err
	}

	mt := &MountTable{
		byDev: make(map[uint64]string, len(mounts)),
	}
	for _, m := range mounts {
		var st syscall.Stat_t
		if err := syscall.Stat(m.Mountpoint, &st); err != nil {
			continue
		}
		mt.byDev[uint64(st.Dev)] = m.FSType
	}
	return mt, nil
}

// TypeOf returns the file system type name for 'dev'; empty when the
// device is not a known mount.
func (mt *MountTable) TypeOf(dev uint64) string {
	return mt.byDev[dev]
}
