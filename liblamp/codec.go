package liblamp

import (
	"github.com/2x3systems/golamp/golamp"
	"github.com/pkg/errors"
)

// BitsOf extracts width bits of id into a BitVector.
func BitsOf(id golamp.ID, width int, endian golamp.Endian) golamp.BitVector {
	bits := make(golamp.BitVector, width)
	for i := 0; i < width; i++ {
		bits[i] = golamp.Symbol((id >> uint(i)) & 1)
	}
	if endian == golamp.BigEndian {
		reverseInPlace(bits)
	}
	return bits
}

// IDOf is the inverse of BitsOf.
// A Mark never appears in an ID, so a vector containing one is rejected.
func IDOf(bits golamp.BitVector, endian golamp.Endian) (golamp.ID, error) {
	N := len(bits)
	if N > 32 {
		return 0, errors.Wrapf(golamp.ErrEncoding, "%d bits exceeds ID width", N)
	}

	id := golamp.ID(0)
	for i, bi := range bits {
		pos := i
		if endian == golamp.BigEndian {
			pos = N - 1 - i
		}
		switch bi {
		case golamp.Zero:
		case golamp.One:
			id |= 1 << uint(pos)
		default:
			return 0, errors.Wrapf(golamp.ErrEncoding, "symbol %d at %d in %v", bi, i, bits)
		}
	}
	return id, nil
}

// mustIDOf is IDOf for vectors built from IDs by this package.
func mustIDOf(bits golamp.BitVector) golamp.ID {
	id, err := IDOf(bits, golamp.LittleEndian)
	if err != nil {
		panic(err)
	}
	return id
}

// Normalize linearly rescales id from [0, 2^numBits) to [-1, 1).
func Normalize(id golamp.ID, numBits int) float64 {
	return float64(id)/float64(uint64(1)<<uint(numBits))*2.0 - 1.0
}

// Rotate returns a cyclic roll of bits: out[i] = bits[i-offset (mod N)].
func Rotate(bits golamp.BitVector, offset int) golamp.BitVector {
	N := len(bits)
	out := make(golamp.BitVector, N)
	if N == 0 {
		return out
	}
	offset %= N
	if offset < 0 {
		offset += N
	}
	copy(out[offset:], bits[:N-offset])
	copy(out[:offset], bits[N-offset:])
	return out
}

// Invert swaps Zero and One; a Mark is left in place.
func Invert(bits golamp.BitVector) golamp.BitVector {
	out := make(golamp.BitVector, len(bits))
	for i, bi := range bits {
		switch bi {
		case golamp.Zero:
			out[i] = golamp.One
		case golamp.One:
			out[i] = golamp.Zero
		default:
			out[i] = bi
		}
	}
	return out
}

// Reverse returns bits in reverse order.
func Reverse(bits golamp.BitVector) golamp.BitVector {
	out := append(golamp.BitVector(nil), bits...)
	reverseInPlace(out)
	return out
}

func reverseInPlace(bits golamp.BitVector) {
	for i, j := 0, len(bits)-1; i < j; i, j = i+1, j-1 {
		bits[i], bits[j] = bits[j], bits[i]
	}
}

// CheckRoundTrip verifies id survives BitsOf and IDOf for both endians.
func CheckRoundTrip(id golamp.ID, width int) error {
	for _, endian := range []golamp.Endian{golamp.LittleEndian, golamp.BigEndian} {
		back, err := IDOf(BitsOf(id, width, endian), endian)
		if err != nil {
			return err
		}
		if back != id {
			return errors.Wrapf(golamp.ErrEncoding, "id %d decoded as %d (endian %d)", id, back, endian)
		}
	}
	return nil
}
