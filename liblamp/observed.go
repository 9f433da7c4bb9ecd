package liblamp

import (
	"sort"

	"github.com/2x3systems/golamp/golamp"
	"github.com/pkg/errors"
)

// ObservedIDs returns every ID a receiver can report for the given lamp, ascending.
//
// The lamp transmits its lampBits bits followed by startMarker.  A receiver sees that sequence
// inverted, in reverse order, and starting at any offset.  Symmetric sequences yield repeated IDs.
func ObservedIDs(lamp golamp.LampID, lampBits int, startMarker golamp.BitVector) ([]golamp.ID, error) {
	if lampBits <= 0 {
		return nil, errors.Wrapf(golamp.ErrBadScheme, "lamp ID width must be positive, got %d", lampBits)
	}
	if startMarker.HasMark() {
		return nil, errors.Wrapf(golamp.ErrBadScheme, "marker %v holds a stop symbol", startMarker)
	}
	seqLen := lampBits + len(startMarker)
	if seqLen > golamp.MaxNumBits {
		return nil, errors.Wrapf(golamp.ErrBadScheme, "lamp sequence of %d bits exceeds %d", seqLen, golamp.MaxNumBits)
	}
	if uint64(lamp) >= uint64(1)<<uint(lampBits) {
		return nil, errors.Wrapf(golamp.ErrBadScheme, "lamp %d does not fit in %d bits", lamp, lampBits)
	}

	lampSeq := append(BitsOf(golamp.ID(lamp), lampBits, golamp.LittleEndian), startMarker...)
	invRev := Reverse(Invert(lampSeq))

	obsIDs := make([]golamp.ID, 0, seqLen)
	for r := 0; r < seqLen; r++ {
		obsIDs = append(obsIDs, mustIDOf(Rotate(invRev, r)))
	}
	sort.Slice(obsIDs, func(i, j int) bool { return obsIDs[i] < obsIDs[j] })
	return obsIDs, nil
}
