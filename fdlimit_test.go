// fdlimit_test.go -- fd budget tests
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
package bfind_test

import (
	"testing"

	bfind "github.com/opencoff/go-bfind"
)

func TestMaxOpenFiles(t *testing.T) {
	assert := newAsserter(t)

	plain := &bfind.Expr{Fn: bfind.EvalTrue, AlwaysTrue: true}
	base := bfind.MaxOpenFiles(plain)
	assert(base >= 2, "budget below floor: %d", base)

	greedy := &bfind.Expr{
		Fn:  bfind.EvalAnd,
		Lhs: &bfind.Expr{Fn: bfind.EvalFprint, PersistentFds: 1},
		Rhs: &bfind.Expr{Fn: bfind.EvalEmpty, EphemeralFds: 1},
	}
	budget := bfind.MaxOpenFiles(greedy)
	assert(budget >= 2, "budget below floor: %d", budget)
	assert(budget <= base, "declared fds didn't shrink the budget: %d > %d", budget, base)
}
