/*
ranking.go - FIFO/FEFO ordering of the available LP pool

PURPOSE:
  Orders candidate LPs so the caller (or the auto-reserver) picks the right
  stock first. Two policies:

  FIFO (First In, First Out):
    receivedAt ASC, tie-break expiryAt ASC (no-expiry after expiry),
    final tie-break ID ASC.

  FEFO (First Expiry, First Out):
    expiryAt ASC with no-expiry treated as +infinity (always last),
    tie-break receivedAt ASC, final tie-break ID ASC.

DETERMINISM:
  The final ID tie-break makes ranking a pure function: identical input
  always yields identical output order, which keeps repeated renders of an
  unchanged pool stable and tests reproducible.

SUGGESTION:
  The first element of the ranked output is the suggested pick. It is a
  hint surfaced to the caller, never enforced.

SEE ALSO:
  - engine.go: AutoReserve walks the ranked order
*/
package allocation

import (
	"sort"
	"time"
)

// PickPolicy selects the ranking order for the LP pool.
type PickPolicy string

const (
	PolicyFIFO PickPolicy = "fifo"
	PolicyFEFO PickPolicy = "fefo"
)

// ParsePickPolicy maps a caller-supplied string onto a policy,
// defaulting to FIFO.
func ParsePickPolicy(s string) PickPolicy {
	if s == string(PolicyFEFO) {
		return PolicyFEFO
	}
	return PolicyFIFO
}

// Rank returns a new slice ordered under the given policy. The input is
// never mutated.
func Rank(lps []LicensePlate, policy PickPolicy) []LicensePlate {
	ranked := make([]LicensePlate, len(lps))
	copy(ranked, lps)

	less := fifoLess
	if policy == PolicyFEFO {
		less = fefoLess
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	return ranked
}

// Suggest returns the suggested pick (head of the ranked order) and whether
// the pool was non-empty.
func Suggest(lps []LicensePlate, policy PickPolicy) (LicensePlate, bool) {
	if len(lps) == 0 {
		return LicensePlate{}, false
	}
	return Rank(lps, policy)[0], true
}

func fifoLess(a, b LicensePlate) bool {
	if !a.ReceivedAt.Equal(b.ReceivedAt) {
		return a.ReceivedAt.Before(b.ReceivedAt)
	}
	if c := compareExpiry(a.ExpiryAt, b.ExpiryAt); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

func fefoLess(a, b LicensePlate) bool {
	if c := compareExpiry(a.ExpiryAt, b.ExpiryAt); c != 0 {
		return c < 0
	}
	if !a.ReceivedAt.Equal(b.ReceivedAt) {
		return a.ReceivedAt.Before(b.ReceivedAt)
	}
	return a.ID < b.ID
}

// compareExpiry orders expiry timestamps with nil treated as +infinity.
func compareExpiry(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	default:
		return 0
	}
}
