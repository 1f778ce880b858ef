package udt

import "testing"

func TestSequenceNumberAfter(t *testing.T) {
	testCases := []struct {
		name string
		a, b SequenceNumber
		want bool
	}{
		{"simple increment", 2, 1, true},
		{"simple decrement", 1, 2, false},
		{"equal", 5, 5, false},
		{"wraparound forward", 1, SequenceNumberModulus - 1, true},
		{"wraparound backward", SequenceNumberModulus - 1, 1, false},
		{"half bound away is stale", SequenceNumberModulus/2 + 1, 0, false},
		{"just under half bound", SequenceNumberModulus/2 - 1, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.After(tc.b); got != tc.want {
				t.Errorf("After(%d, %d): got %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestSequenceNumberNextWraps(t *testing.T) {
	s := SequenceNumber(SequenceNumberModulus - 1)
	if next := s.Next(); next != 0 {
		t.Errorf("Next at bound: got %d, want 0", next)
	}
	if next := SequenceNumber(7).Next(); next != 8 {
		t.Errorf("Next: got %d, want 8", next)
	}
}
