package udt

// SequenceNumber is a bounded modular packet counter. Values live in
// [0, SequenceNumberModulus) and comparison is wraparound-aware.
type SequenceNumber uint32

const (
	// SequenceNumberModulus bounds sequence numbers to the width of
	// the wire field (see sequenceNumberMask in header.go).
	SequenceNumberModulus SequenceNumber = SequenceNumber(sequenceNumberMask) + 1
)

// Next returns the following sequence number, wrapping at the bound.
func (s SequenceNumber) Next() SequenceNumber {
	return (s + 1) % SequenceNumberModulus
}

// After reports whether s is genuinely newer than other: the forward
// distance from other to s, modulo the bound, is positive and less
// than half the bound. This distinguishes a newer number from stale
// re-delivery even across wraparound.
func (s SequenceNumber) After(other SequenceNumber) bool {
	distance := (uint32(s) - uint32(other)) % uint32(SequenceNumberModulus)
	return distance > 0 && distance < uint32(SequenceNumberModulus)/2
}
