package liblamp

import (
	"github.com/2x3systems/golamp/golamp"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// Enumerate scans every ID of the scheme's space in ascending order, partitions the valid IDs into
// rotation classes, and derives the lamp ID of each class.
//
// Each unvisited ID has its whole orbit marked, either Invalid or Canonical pointing at the orbit's minimum.
// Since the scan is ascending, the first visited member of an orbit is its minimum, so Canonicals comes out sorted.
func Enumerate(scheme golamp.Scheme) (*golamp.Enumeration, error) {
	if err := scheme.Normalize(); err != nil {
		return nil, err
	}

	N := scheme.NumBits
	numIDs := scheme.NumIDs()
	valid := NewValidator(&scheme)

	enum := &golamp.Enumeration{
		Scheme: scheme,
		Table:  golamp.NewStatusTable(numIDs),
	}
	table := enum.Table

	var orbit [golamp.MaxNumBits]golamp.ID
	numInvalid := 0

	for i := 0; i < numIDs; i++ {
		id := golamp.ID(i)
		if table.Status(id) != golamp.Unvisited {
			continue
		}

		seq := BitsOf(id, N, golamp.LittleEndian)
		for r := 0; r < N; r++ {
			orbit[r] = mustIDOf(Rotate(seq, r))
		}

		if !valid.IsValid(seq) {
			for _, rotID := range orbit[:N] {
				table.MarkInvalid(rotID)
			}
			numInvalid++
			continue
		}

		canonical := orbit[0]
		for _, rotID := range orbit[1:N] {
			if rotID < canonical {
				canonical = rotID
			}
		}
		for _, rotID := range orbit[:N] {
			table.MarkCanonical(rotID, canonical)
		}
		enum.Canonicals = append(enum.Canonicals, canonical)
	}

	klog.V(2).Infof("scanned %d IDs: %d valid classes, %d invalid orbits", numIDs, len(enum.Canonicals), numInvalid)

	if err := assignLamps(enum); err != nil {
		return nil, err
	}
	return enum, nil
}

// LampOf derives the lamp ID of a canonical ID: roll left by one, keep the first LampBits bits.
//
// For a canonical sequence the dropped bits are the start marker, so the lamp ID plus the marker rebuilds
// the sequence (see ObservedIDs).
func LampOf(canonical golamp.ID, scheme *golamp.Scheme) golamp.LampID {
	seq := Rotate(BitsOf(canonical, scheme.NumBits, golamp.LittleEndian), -1)
	return golamp.LampID(mustIDOf(seq[:scheme.LampBits]))
}

// assignLamps fills enum.Lamps from enum.Canonicals, failing if two classes share a lamp ID.
func assignLamps(enum *golamp.Enumeration) error {
	scheme := &enum.Scheme
	if len(enum.Canonicals) == 0 {
		return errors.Wrapf(golamp.ErrNoValidSequences, "scheme %v", *scheme)
	}

	// lamp ID => canonical ID
	byLamp := redblacktree.NewWith(func(a, b interface{}) int {
		A, B := a.(golamp.LampID), b.(golamp.LampID)
		switch {
		case A < B:
			return -1
		case A > B:
			return 1
		}
		return 0
	})

	enum.Lamps = make([]golamp.LampID, len(enum.Canonicals))
	for i, canonical := range enum.Canonicals {
		if err := CheckRoundTrip(canonical, scheme.NumBits); err != nil {
			return err
		}

		lamp := LampOf(canonical, scheme)
		if prev, found := byLamp.Get(lamp); found {
			return errors.Wrapf(golamp.ErrDuplicateLampID, "lamp %d derived from canonical IDs %d and %d", lamp, prev.(golamp.ID), canonical)
		}
		byLamp.Put(lamp, canonical)
		enum.Lamps[i] = lamp
	}

	if !hasTrailingMarker(enum) {
		klog.Warningf("canonical IDs do not all end with marker %q; observed IDs will not cover their orbits", scheme.StartMarker)
	}
	return nil
}

// hasTrailingMarker reports if every canonical sequence, rolled left by one, ends with the start marker.
func hasTrailingMarker(enum *golamp.Enumeration) bool {
	scheme := &enum.Scheme
	marker := scheme.Marker()
	for _, canonical := range enum.Canonicals {
		seq := Rotate(BitsOf(canonical, scheme.NumBits, golamp.LittleEndian), -1)
		tail := seq[scheme.LampBits:]
		for i := range marker {
			if tail[i] != marker[i] {
				return false
			}
		}
	}
	return true
}
