package liblamp

import (
	"context"
	"testing"

	"github.com/2x3systems/golamp/golamp"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// Number of lamp IDs of the reference scheme
const referenceLampCount = 940

// klog starts its flush daemon from init
var klogFlushDaemon = goleak.IgnoreTopFunction("github.com/plan-systems/klog.(*loggingT).flushDaemon")

func TestEnumerateReference(t *testing.T) {
	enum, err := Enumerate(golamp.DefaultScheme())
	require.NoError(t, err)

	require.Equal(t, referenceLampCount, enum.NumClasses())
	require.Len(t, enum.Lamps, referenceLampCount)

	assert.Equal(t, []golamp.ID{9363, 9365, 9367, 9371, 9373}, enum.Canonicals[:5])
	assert.Equal(t, []golamp.LampID{585, 586, 587, 589, 590}, enum.Lamps[:5])
	assert.Equal(t, []golamp.ID{16379, 16381, 16383}, enum.Canonicals[referenceLampCount-3:])
	assert.Equal(t, []golamp.LampID{4093, 4094, 4095}, enum.Lamps[referenceLampCount-3:])

	// 9363 = 1100100100100100 (LSB first): rolled left by one it ends with the marker 1001
	assert.Equal(t, "1100100100100100", BitsOf(9363, 16, golamp.LittleEndian).String())
	assert.True(t, hasTrailingMarker(enum))

	lamps := make(map[golamp.LampID]golamp.ID, len(enum.Lamps))
	for i, lamp := range enum.Lamps {
		if prev, dupe := lamps[lamp]; dupe {
			t.Fatalf("lamp %d derived from %d and %d", lamp, prev, enum.Canonicals[i])
		}
		lamps[lamp] = enum.Canonicals[i]
		if i > 0 {
			require.Less(t, enum.Canonicals[i-1], enum.Canonicals[i])
		}
	}
}

func TestCanonicalIsOrbitMinimum(t *testing.T) {
	enum, err := Enumerate(golamp.DefaultScheme())
	require.NoError(t, err)

	valid := NewValidator(&enum.Scheme)
	N := enum.Scheme.NumBits

	for i := 0; i < enum.Scheme.NumIDs(); i++ {
		id := golamp.ID(i)
		seq := BitsOf(id, N, golamp.LittleEndian)

		lowest := id
		for r := 0; r < N; r++ {
			if rot := mustIDOf(Rotate(seq, r)); rot < lowest {
				lowest = rot
			}
		}

		switch enum.Table.Status(id) {
		case golamp.Canonical:
			canonical, _ := enum.Table.CanonicalOf(id)
			if canonical != lowest {
				t.Fatalf("id %d: canonical %d, orbit minimum %d", id, canonical, lowest)
			}
			if !valid.IsValid(seq) {
				t.Fatalf("id %d is marked canonical but invalid", id)
			}
		case golamp.Invalid:
			if valid.IsValid(seq) {
				t.Fatalf("id %d is marked invalid but valid", id)
			}
		default:
			t.Fatalf("id %d was never visited", id)
		}
	}
}

func TestClassOf(t *testing.T) {
	enum, err := Enumerate(golamp.DefaultScheme())
	require.NoError(t, err)

	cls, ok := enum.ClassOf(golamp.RotateID(9363, 16, 5))
	require.True(t, ok)
	assert.Equal(t, golamp.ID(9363), cls.Canonical)
	assert.Equal(t, golamp.LampID(585), cls.Lamp)
	assert.Len(t, cls.Orbit, 16)
	assert.Contains(t, cls.Orbit, golamp.ID(9363))

	_, ok = enum.ClassOf(0xFFFF)
	assert.False(t, ok)
	_, ok = enum.ClassOf(1 << 20)
	assert.False(t, ok)
}

// Every 4 bit pattern by hand, maxZeros=1 minZeros=1 require="0":
// a valid pattern has a zero and no two cyclically adjacent zeros, leaving
// 0101 (orbit {5, 10}) and the single zero patterns (orbit {7, 11, 13, 14}).
func TestEnumerateByHand(t *testing.T) {
	scheme := golamp.Scheme{
		NumBits:       4,
		MaxZeroRun:    1,
		MinTotalZeros: 1,
		Require:       "0",
		StartMarker:   "11",
	}
	enum, err := Enumerate(scheme)
	require.NoError(t, err)

	assert.Equal(t, []golamp.ID{5, 7}, enum.Canonicals)
	assert.Equal(t, []golamp.LampID{2, 3}, enum.Lamps)
	assert.Equal(t, 2, enum.Scheme.LampBits)

	const I = -2
	want := golamp.StatusTable{I, I, I, I, I, 5, I, 7, I, I, 5, 7, I, 7, 7, I}
	if diff := cmp.Diff(want, enum.Table); diff != "" {
		t.Fatalf("status table mismatch (-want +got):\n%s", diff)
	}

	// Allowing a run of two zeros adds 0011 (orbit {3, 6, 9, 12})
	scheme.MaxZeroRun = 2
	enum, err = Enumerate(scheme)
	require.NoError(t, err)
	assert.Equal(t, []golamp.ID{3, 5, 7}, enum.Canonicals)
	assert.Equal(t, []golamp.LampID{1, 2, 3}, enum.Lamps)
}

func TestEnumerateNoValidSequences(t *testing.T) {
	// A required "00" contradicts maxZeros=1
	scheme := golamp.Scheme{
		NumBits:       4,
		MaxZeroRun:    1,
		MinTotalZeros: 1,
		Require:       "00",
		StartMarker:   "11",
	}
	require.NoError(t, scheme.Normalize())

	// Every one of the 16 IDs is invalid on its own
	valid := NewValidator(&scheme)
	for i := 0; i < 1<<4; i++ {
		seq := BitsOf(golamp.ID(i), 4, golamp.LittleEndian)
		require.False(t, valid.IsValid(seq), "id %d (%v)", i, seq)
	}

	_, err := Enumerate(scheme)
	require.ErrorIs(t, err, golamp.ErrNoValidSequences)

	_, err = EnumerateParallel(context.Background(), scheme, 3)
	require.ErrorIs(t, err, golamp.ErrNoValidSequences)
}

func TestEnumerateDuplicateLamps(t *testing.T) {
	// Without a required "00", canonical sequences no longer end with the marker and lamp IDs collide.
	_, err := Enumerate(golamp.Scheme{
		NumBits:       8,
		MaxZeroRun:    2,
		MinTotalZeros: 1,
		Require:       "0",
		StartMarker:   "1001",
	})
	require.ErrorIs(t, err, golamp.ErrDuplicateLampID)
}

func TestEnumerateBadScheme(t *testing.T) {
	cases := map[string]golamp.Scheme{
		"zero lamp bits":  {NumBits: 4, MaxZeroRun: 2, Require: "00", StartMarker: "1001"},
		"width mismatch":  {NumBits: 16, MaxZeroRun: 2, Require: "00", LampBits: 11, StartMarker: "1001"},
		"too wide":        {NumBits: golamp.MaxNumBits + 1, MaxZeroRun: 2, StartMarker: "1001"},
		"bad marker":      {NumBits: 16, MaxZeroRun: 2, StartMarker: "10x1"},
		"stop in require": {NumBits: 16, MaxZeroRun: 2, Require: "0S", StartMarker: "1001"},
	}
	for name, scheme := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Enumerate(scheme)
			require.ErrorIs(t, err, golamp.ErrBadScheme)
		})
	}
}

func TestEnumerateSmall(t *testing.T) {
	enum, err := Enumerate(golamp.Scheme{
		NumBits:       8,
		MaxZeroRun:    2,
		MinTotalZeros: 1,
		Require:       "00",
		StartMarker:   "1001",
	})
	require.NoError(t, err)
	assert.Equal(t, []golamp.ID{37, 39, 43, 45, 47, 51, 53, 55, 59, 61, 63}, enum.Canonicals)
	assert.Equal(t, []golamp.LampID{2, 3, 5, 6, 7, 9, 10, 11, 13, 14, 15}, enum.Lamps)
}

func TestEnumerateParallel(t *testing.T) {
	defer goleak.VerifyNone(t, klogFlushDaemon)

	schemes := []golamp.Scheme{
		golamp.DefaultScheme(),
		{NumBits: 12, MaxZeroRun: 2, MinTotalZeros: 1, Require: "00", StartMarker: "1001"},
		{NumBits: 4, MaxZeroRun: 1, MinTotalZeros: 1, Require: "0", StartMarker: "11"},
	}
	for _, scheme := range schemes {
		serial, err := Enumerate(scheme)
		require.NoError(t, err)

		for _, workers := range []int{0, 1, 3, 8, 64} {
			parallel, err := EnumerateParallel(context.Background(), scheme, workers)
			require.NoError(t, err)
			if diff := cmp.Diff(serial, parallel); diff != "" {
				t.Fatalf("nBits=%d workers=%d (-serial +parallel):\n%s", scheme.NumBits, workers, diff)
			}
		}
	}

	enum, err := EnumerateParallel(context.Background(), golamp.Scheme{
		NumBits: 12, MaxZeroRun: 2, MinTotalZeros: 1, Require: "00", StartMarker: "1001",
	}, 4)
	require.NoError(t, err)
	assert.Equal(t, 101, enum.NumClasses())
}

func TestEnumerateParallelCanceled(t *testing.T) {
	defer goleak.VerifyNone(t, klogFlushDaemon)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := EnumerateParallel(ctx, golamp.DefaultScheme(), 4)
	require.ErrorIs(t, err, context.Canceled)
}
