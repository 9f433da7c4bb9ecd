package golamp

import (
	"fmt"

	"github.com/pkg/errors"
)

// Scheme holds the parameters of a lamp signaling scheme.
type Scheme struct {
	NumBits       int    `yaml:"nBits"`    // width of the observed ID space
	MaxZeroRun    int    `yaml:"maxZeros"` // longest cyclic run of zeros allowed
	MinTotalZeros int    `yaml:"minZeros"` // fewest zero bits allowed
	Require       string `yaml:"require"`  // bit string that some rotation must contain
	LampBits      int    `yaml:"lampBits"` // 0 denotes NumBits - len(StartMarker)
	StartMarker   string `yaml:"marker"`   // bit string appended to the lamp bits
}

// DefaultScheme returns the reference scheme: 16 bit IDs, 12 bit lamp IDs, marker 1001.
func DefaultScheme() Scheme {
	return Scheme{
		NumBits:       16,
		MaxZeroRun:    2,
		MinTotalZeros: 1,
		Require:       "00",
		LampBits:      12,
		StartMarker:   "1001",
	}
}

// Normalize checks this scheme and fills in LampBits if it was left as 0.
func (s *Scheme) Normalize() error {
	if s.NumBits < 1 || s.NumBits > MaxNumBits {
		return errors.Wrapf(ErrBadScheme, "nBits must be in 1..%d, got %d", MaxNumBits, s.NumBits)
	}
	if s.MaxZeroRun < 0 {
		return errors.Wrapf(ErrBadScheme, "maxZeros must be >= 0, got %d", s.MaxZeroRun)
	}
	if s.MinTotalZeros < 0 {
		return errors.Wrapf(ErrBadScheme, "minZeros must be >= 0, got %d", s.MinTotalZeros)
	}
	require, err := ParseBits(s.Require)
	if err != nil {
		return errors.Wrap(ErrBadScheme, "require: "+err.Error())
	}
	if require.HasMark() {
		return errors.Wrapf(ErrBadScheme, "require %q may only hold 0 and 1", s.Require)
	}

	marker, err := ParseBits(s.StartMarker)
	if err != nil {
		return errors.Wrap(ErrBadScheme, "marker: "+err.Error())
	}
	if marker.HasMark() {
		return errors.Wrapf(ErrBadScheme, "marker %q may only hold 0 and 1", s.StartMarker)
	}
	if s.LampBits == 0 {
		s.LampBits = s.NumBits - len(marker)
	}
	if s.LampBits <= 0 {
		return errors.Wrapf(ErrBadScheme, "lamp ID width must be positive, got %d", s.LampBits)
	}
	if s.LampBits+len(marker) != s.NumBits {
		return errors.Wrapf(ErrBadScheme, "lampBits (%d) + marker length (%d) must equal nBits (%d)", s.LampBits, len(marker), s.NumBits)
	}
	return nil
}

// NumIDs returns the size of the ID space, 2^NumBits.
func (s *Scheme) NumIDs() int {
	return 1 << uint(s.NumBits)
}

// Marker returns StartMarker as a BitVector.
// Call only on a normalized Scheme.
func (s *Scheme) Marker() BitVector {
	bits, _ := ParseBits(s.StartMarker)
	return bits
}

// RequireBits returns Require as a BitVector.
// Call only on a normalized Scheme.
func (s *Scheme) RequireBits() BitVector {
	bits, _ := ParseBits(s.Require)
	return bits
}

// String returns this scheme as a scheme expression (see liblamp.ParseScheme).
func (s Scheme) String() string {
	return fmt.Sprintf(`nBits=%d maxZeros=%d minZeros=%d require="%s" lampBits=%d marker="%s"`,
		s.NumBits, s.MaxZeroRun, s.MinTotalZeros, s.Require, s.LampBits, s.StartMarker)
}
