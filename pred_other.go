// pred_other.go - acl, capability and xattr probes for non-linux unix
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

//go:build unix && !linux

package bfind

import (
	"syscall"

	"github.com/pkg/xattr"
)

// no portable acl/capability probe outside linux; absent, not an error
func checkACL(nm string) (Tristate, error) {
	return No, nil
}

func checkCapable(nm string) (Tristate, error) {
	return No, nil
}

func checkXattr(nm string) (Tristate, error) {
	names, err := xattr.LList(nm)
	switch {
	case err == nil && len(names) > 0:
		return Yes, nil
	case err == nil || errAny(err, syscall.ENOTSUP):
		return No, nil
	}
	return TriError, err
}
