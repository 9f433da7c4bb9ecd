package liblamp

import (
	"math/rand"

	"github.com/2x3systems/golamp/golamp"
	"github.com/pkg/errors"
)

// EncodingOpts holds the pulse widths used to turn a base sequence into a physical signal.
type EncodingOpts struct {
	PulseStartBit golamp.Symbol // first level of every pulse-length symbol
	OffLength     int           // pulse-length: trailing levels for a Zero
	OnLength      int           // pulse-length: trailing levels for a One
	StopLength    int           // pulse-length: trailing levels for a Mark
	SwitchStart   golamp.Symbol // first level of every switch symbol
	SwitchStop    int           // switch: trailing levels for a Mark
	MaxZeroRun    int           // max: longest zero run a base sequence may hold
	MaxStopLength int           // max: zeros between the ones framing a Mark
}

// DefaultEncodingOpts are the widths the reference lamps are driven with.
var DefaultEncodingOpts = EncodingOpts{
	PulseStartBit: golamp.Zero,
	OffLength:     1,
	OnLength:      2,
	StopLength:    5,
	SwitchStart:   golamp.One,
	SwitchStop:    3,
	MaxZeroRun:    2,
	MaxStopLength: 3,
}

// BaseSequence returns the numBits bits of id, led by a Mark if includeStop is set.
func BaseSequence(id golamp.ID, numBits int, endian golamp.Endian, includeStop bool) golamp.BitVector {
	bits := BitsOf(id, numBits, endian)
	if !includeStop {
		return bits
	}
	return append(golamp.BitVector{golamp.Mark}, bits...)
}

// Encode dispatches to the encoding named by mode.
func Encode(seq golamp.BitVector, mode golamp.EncodingMode, opts EncodingOpts) (golamp.BitVector, error) {
	switch mode {
	case golamp.EncodePulseLength:
		return PulseLengthEncoding(seq, opts), nil
	case golamp.EncodeSwitch:
		return SwitchEncoding(seq, opts), nil
	case golamp.EncodeNone:
		return append(golamp.BitVector(nil), seq...), nil
	case golamp.EncodeMax:
		return MaxEncoding(seq, opts)
	}
	return nil, errors.Wrapf(golamp.ErrBadEncodingMode, "%q", mode)
}

// PulseLengthEncoding emits each symbol as the start level followed by a run of the opposite level,
// the run length telling Zero, One and Mark apart.
func PulseLengthEncoding(seq golamp.BitVector, opts EncodingOpts) golamp.BitVector {
	a := opts.PulseStartBit
	b := opposite(a)

	out := make(golamp.BitVector, 0, len(seq)*(1+opts.OnLength))
	for _, si := range seq {
		runLen := opts.OffLength
		switch si {
		case golamp.One:
			runLen = opts.OnLength
		case golamp.Mark:
			runLen = opts.StopLength
		}
		out = append(out, a)
		for i := 0; i < runLen; i++ {
			out = append(out, b)
		}
	}
	return out
}

// SwitchEncoding emits each symbol as the start level followed by the symbol's own level.
// A Mark is the start level followed by SwitchStop levels of the opposite level.
func SwitchEncoding(seq golamp.BitVector, opts EncodingOpts) golamp.BitVector {
	a := opts.SwitchStart
	b := opposite(a)

	out := make(golamp.BitVector, 0, 2*len(seq)+opts.SwitchStop)
	for _, si := range seq {
		out = append(out, a)
		switch si {
		case golamp.One:
			out = append(out, a)
		case golamp.Zero:
			out = append(out, b)
		default:
			for i := 0; i < opts.SwitchStop; i++ {
				out = append(out, b)
			}
		}
	}
	return out
}

// IsMaxEncodingPossible returns true if seq, with its Marks removed, holds no run of more than maxZeroRun zeros.
func IsMaxEncodingPossible(seq golamp.BitVector, maxZeroRun int) bool {
	run := 0
	for _, si := range seq {
		switch si {
		case golamp.Zero:
			run++
			if run > maxZeroRun {
				return false
			}
		case golamp.One:
			run = 0
		}
	}
	return true
}

// MaxEncoding replaces each Mark with a one, MaxStopLength zeros, and a one.
// Since data bits never hold more than MaxZeroRun zeros in a row, the longer run marks the frame start.
func MaxEncoding(seq golamp.BitVector, opts EncodingOpts) (golamp.BitVector, error) {
	if !IsMaxEncodingPossible(seq, opts.MaxZeroRun) {
		return nil, errors.Wrapf(golamp.ErrNotEncodable, "%v holds more than %d zeros in a row", seq, opts.MaxZeroRun)
	}

	out := make(golamp.BitVector, 0, len(seq)+opts.MaxStopLength+2)
	for _, si := range seq {
		if si != golamp.Mark {
			out = append(out, si)
			continue
		}
		out = append(out, maxStop(opts.MaxStopLength)...)
	}
	return out, nil
}

// RandomMaxEncoding returns numBits random data bits that never exceed maxZeroRun zeros in a row,
// followed by a max encoded stop.
func RandomMaxEncoding(rng *rand.Rand, numBits, maxZeroRun, stopLength int) golamp.BitVector {
	out := make(golamp.BitVector, 0, numBits+stopLength+2)
	for i := 0; i < numBits; i++ {
		if i == 0 || out[i-1] == golamp.One {
			out = append(out, golamp.Symbol(rng.Intn(2)))
			continue
		}

		start := i - maxZeroRun
		if start < 0 {
			start = 0
		}
		if TotalZeroCount(out[start:i]) == i-start {
			out = append(out, golamp.One)
		} else {
			out = append(out, golamp.Symbol(rng.Intn(2)))
		}
	}
	return append(out, maxStop(stopLength)...)
}

// RandomMaxEncodingID is the ID of a RandomMaxEncoding sequence.
func RandomMaxEncodingID(rng *rand.Rand, numBits, maxZeroRun, stopLength int) (golamp.ID, error) {
	return IDOf(RandomMaxEncoding(rng, numBits, maxZeroRun, stopLength), golamp.LittleEndian)
}

func maxStop(stopLength int) golamp.BitVector {
	stop := make(golamp.BitVector, stopLength+2)
	stop[0] = golamp.One
	stop[stopLength+1] = golamp.One
	return stop
}

func opposite(level golamp.Symbol) golamp.Symbol {
	if level == golamp.One {
		return golamp.Zero
	}
	return golamp.One
}
