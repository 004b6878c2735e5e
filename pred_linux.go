// pred_linux.go - acl, capability and xattr probes for linux
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

//go:build linux

package bfind

import (
	"golang.org/x/sys/unix"

	"github.com/pkg/xattr"
)

// acls and capabilities live in the security/system xattr namespaces
// on linux; probing for the attribute is cheaper than parsing it.

func checkACL(nm string) (Tristate, error) {
	for _, attr := range []string{"system.posix_acl_access", "system.posix_acl_default"} {
		sz, err := unix.Lgetxattr(nm, attr, nil)
		switch {
		case err == nil && sz > 0:
			return Yes, nil
		case err == nil || xattrAbsent(err):
			continue
		default:
			return TriError, err
		}
	}
	return No, nil
}

func checkCapable(nm string) (Tristate, error) {
	sz, err := unix.Lgetxattr(nm, "security.capability", nil)
	switch {
	case err == nil && sz > 0:
		return Yes, nil
	case err == nil || xattrAbsent(err):
		return No, nil
	}
	return TriError, err
}

func checkXattr(nm string) (Tristate, error) {
	names, err := xattr.LList(nm)
	switch {
	case err == nil && len(names) > 0:
		return Yes, nil
	case err == nil || xattrAbsent(err):
		return No, nil
	}
	return TriError, err
}

// xattrAbsent says the probe answered "feature not here" rather than
// failing: no such attribute, or a file system without xattr support.
func xattrAbsent(err error) bool {
	return errAny(err, unix.ENODATA, unix.ENOTSUP, unix.EOPNOTSUPP)
}
