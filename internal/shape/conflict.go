package shape

// Decision is the outcome of the optimistic-concurrency check.
type Decision int

const (
	Proceed Decision = iota
	Reject
)

// NormalizeVersion maps an unset stored version to 1. Records written
// before versioning existed have version 0 in storage and must compare
// equal to an expectedVersion of 1, not fail.
func NormalizeVersion(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	return v
}

// Decide is the whole conflict detector: a conditional write proceeds
// iff the caller's expected version equals the stored one. The losing
// writer is told, never silently merged.
func Decide(stored, expected uint64) Decision {
	if NormalizeVersion(stored) == expected {
		return Proceed
	}
	return Reject
}
