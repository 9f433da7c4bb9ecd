package liblamp

import (
	"github.com/2x3systems/golamp/golamp"
)

// Validator decides whether a bit sequence is a usable signaling code.
//
// Each check looks at every rotation of a sequence, so validity is a property of its whole orbit.
type Validator struct {
	MaxZeroRun    int
	MinTotalZeros int
	Require       golamp.BitVector
}

// NewValidator returns a Validator for the given normalized scheme.
func NewValidator(scheme *golamp.Scheme) *Validator {
	return &Validator{
		MaxZeroRun:    scheme.MaxZeroRun,
		MinTotalZeros: scheme.MinTotalZeros,
		Require:       scheme.RequireBits(),
	}
}

// IsValid returns true if seq has enough zeros, no cyclic zero run longer than MaxZeroRun,
// and some rotation containing Require.
func (v *Validator) IsValid(seq golamp.BitVector) bool {
	if seq.HasMark() {
		return false
	}
	if TotalZeroCount(seq) < v.MinTotalZeros {
		return false
	}
	if MaxRolledZeroRun(seq) > v.MaxZeroRun {
		return false
	}
	return HasRolledSubsequence(seq, v.Require)
}

// TotalZeroCount returns the number of Zero symbols in seq.
func TotalZeroCount(seq golamp.BitVector) int {
	count := 0
	for _, bi := range seq {
		if bi == golamp.Zero {
			count++
		}
	}
	return count
}

// MaxRolledZeroRun returns the longest run of Zero symbols with seq treated as cyclic.
// An all zero sequence returns len(seq).
func MaxRolledZeroRun(seq golamp.BitVector) int {
	N := len(seq)
	longest, run := 0, 0

	// Walking the sequence twice catches runs that wrap around the end.
	for i := 0; i < 2*N; i++ {
		if seq[i%N] == golamp.Zero {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	if longest > N {
		longest = N
	}
	return longest
}

// HasRolledSubsequence returns true if some rotation of seq contains sub as a contiguous run.
func HasRolledSubsequence(seq, sub golamp.BitVector) bool {
	N, M := len(seq), len(sub)
	if M == 0 {
		return true
	}
	if M > N {
		return false
	}

	// A rotation starting at i holds sub as a prefix iff sub matches cyclically at i,
	// and any match inside a rotation is also a cyclic match.
	for i := 0; i < N; i++ {
		match := true
		for j := 0; j < M; j++ {
			if seq[(i+j)%N] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
