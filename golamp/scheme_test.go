package golamp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemeNormalize(t *testing.T) {
	s := DefaultScheme()
	require.NoError(t, s.Normalize())
	assert.Equal(t, 1<<16, s.NumIDs())
	assert.Equal(t, BitVector{One, Zero, Zero, One}, s.Marker())
	assert.Equal(t, BitVector{Zero, Zero}, s.RequireBits())

	s = Scheme{NumBits: 8, MaxZeroRun: 2, StartMarker: "101"}
	require.NoError(t, s.Normalize())
	assert.Equal(t, 5, s.LampBits)

	bad := []Scheme{
		{NumBits: 0, StartMarker: "1"},
		{NumBits: 25, StartMarker: "1"},
		{NumBits: 8, MaxZeroRun: -1, StartMarker: "1"},
		{NumBits: 8, MinTotalZeros: -1, StartMarker: "1"},
		{NumBits: 8, StartMarker: "11111111"},
		{NumBits: 8, StartMarker: "1", LampBits: 6},
		{NumBits: 8, StartMarker: "1S"},
		{NumBits: 8, StartMarker: "1", Require: "S"},
		{NumBits: 8, StartMarker: "1", Require: "012"},
	}
	for _, s := range bad {
		assert.ErrorIs(t, s.Normalize(), ErrBadScheme, "%+v", s)
	}
}

func TestSchemeString(t *testing.T) {
	assert.Equal(t,
		`nBits=16 maxZeros=2 minZeros=1 require="00" lampBits=12 marker="1001"`,
		DefaultScheme().String())
}

func TestRotateID(t *testing.T) {
	assert.Equal(t, ID(0b0110), RotateID(0b0011, 4, 1))
	assert.Equal(t, ID(0b1001), RotateID(0b0011, 4, -1))
	assert.Equal(t, ID(0b1001), RotateID(0b0011, 4, 3))
	assert.Equal(t, ID(0b0011), RotateID(0b0011, 4, 8))

	assert.Equal(t, []ID{3, 6, 9, 12}, Orbit(0b0011, 4))
	assert.Equal(t, []ID{5, 10}, Orbit(0b0101, 4))
	assert.Equal(t, []ID{0}, Orbit(0, 4))
	assert.Equal(t, ID(3), OrbitMin(12, 4))

	// A zero width space has no rotations
	assert.Equal(t, ID(5), RotateID(5, 0, 3))
	assert.Equal(t, ID(5), RotateID(5, -1, 3))
	assert.Empty(t, Orbit(5, 0))
	assert.Equal(t, ID(5), OrbitMin(5, 0))
}

func TestStatusTable(t *testing.T) {
	table := NewStatusTable(4)
	assert.Equal(t, Unvisited, table.Status(2))

	table.MarkInvalid(0)
	table.MarkCanonical(1, 1)
	table.MarkCanonical(2, 1)

	assert.Equal(t, Invalid, table.Status(0))
	assert.Equal(t, Canonical, table.Status(2))

	canonical, ok := table.CanonicalOf(2)
	assert.True(t, ok)
	assert.Equal(t, ID(1), canonical)

	_, ok = table.CanonicalOf(0)
	assert.False(t, ok)
	_, ok = table.CanonicalOf(3)
	assert.False(t, ok)
}

func TestEnumerationClasses(t *testing.T) {
	enum := &Enumeration{
		Scheme:     Scheme{NumBits: 4, MaxZeroRun: 1, MinTotalZeros: 1, Require: "0", LampBits: 2, StartMarker: "11"},
		Canonicals: []ID{5, 7},
		Lamps:      []LampID{2, 3},
		Table:      StatusTable{-2, -2, -2, -2, -2, 5, -2, 7, -2, -2, 5, 7, -2, 7, 7, -2},
	}

	cls, ok := enum.ClassOf(10)
	require.True(t, ok)
	assert.Equal(t, Class{Canonical: 5, Lamp: 2, Orbit: []ID{5, 10}}, cls)

	_, ok = enum.ClassOf(3)
	assert.False(t, ok)

	assert.Equal(t, []Class{
		{Canonical: 5, Lamp: 2, Orbit: []ID{5, 10}},
		{Canonical: 7, Lamp: 3, Orbit: []ID{7, 11, 13, 14}},
	}, enum.Classes())
}
