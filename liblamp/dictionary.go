package liblamp

import (
	"github.com/2x3systems/golamp/golamp"
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// Dictionary maps every observed ID of a space to the lamp that produces it.
// It is immutable once built.
type Dictionary struct {
	numBits int
	table   []int32 // lamp ID or golamp.Unmapped
	mapped  *roaring.Bitmap
}

// BuildDictionary builds the observed to lamp table for every lamp of the given Enumeration.
func BuildDictionary(enum *golamp.Enumeration) (*Dictionary, error) {
	if len(enum.Lamps) == 0 {
		return nil, errors.Wrapf(golamp.ErrNoValidSequences, "scheme %v", enum.Scheme)
	}
	return BuildFromLamps(enum.Scheme, enum.Lamps)
}

// BuildFromLamps builds the observed to lamp table for the given lamps.
//
// An observed ID claimed by two different lamps fails the build with ErrObservedIDCollision.
func BuildFromLamps(scheme golamp.Scheme, lamps []golamp.LampID) (*Dictionary, error) {
	if err := scheme.Normalize(); err != nil {
		return nil, err
	}

	numIDs := scheme.NumIDs()
	dict := &Dictionary{
		numBits: scheme.NumBits,
		table:   make([]int32, numIDs),
		mapped:  roaring.New(),
	}
	for i := range dict.table {
		dict.table[i] = golamp.Unmapped
	}

	marker := scheme.Marker()
	for _, lamp := range lamps {
		obsIDs, err := ObservedIDs(lamp, scheme.LampBits, marker)
		if err != nil {
			return nil, err
		}
		for _, obsID := range obsIDs {
			if err := dict.assign(obsID, lamp); err != nil {
				return nil, err
			}
		}
	}

	klog.V(2).Infof("dictionary maps %d of %d observed IDs onto %d lamps", dict.mapped.GetCardinality(), numIDs, len(lamps))
	return dict, nil
}

func (dict *Dictionary) assign(obsID golamp.ID, lamp golamp.LampID) error {
	if int(obsID) >= len(dict.table) {
		return errors.Wrapf(golamp.ErrEncoding, "observed ID %d exceeds %d bits", obsID, dict.numBits)
	}
	if dict.mapped.Contains(uint32(obsID)) {
		prev := golamp.LampID(dict.table[obsID])
		if prev == lamp {
			return nil
		}
		return errors.Wrapf(golamp.ErrObservedIDCollision, "observed ID %d claimed by lamps %d and %d", obsID, prev, lamp)
	}
	dict.table[obsID] = int32(lamp)
	dict.mapped.Add(uint32(obsID))
	return nil
}

// NumBits returns the width of the observed ID space.
func (dict *Dictionary) NumBits() int {
	return dict.numBits
}

// Lookup returns the lamp that produces the given observed ID.
func (dict *Dictionary) Lookup(obsID golamp.ID) (golamp.LampID, bool) {
	if int(obsID) >= len(dict.table) {
		return 0, false
	}
	v := dict.table[obsID]
	if v == golamp.Unmapped {
		return 0, false
	}
	return golamp.LampID(v), true
}

// MappedCount returns the number of observed IDs that resolve to a lamp.
func (dict *Dictionary) MappedCount() int {
	return int(dict.mapped.GetCardinality())
}

// Mapped returns the observed IDs that resolve to a lamp, ascending.
func (dict *Dictionary) Mapped() []golamp.ID {
	ids := make([]golamp.ID, 0, dict.mapped.GetCardinality())
	it := dict.mapped.Iterator()
	for it.HasNext() {
		ids = append(ids, golamp.ID(it.Next()))
	}
	return ids
}

// Artifact returns the dictionary in its serialized form.
func (dict *Dictionary) Artifact() *golamp.Artifact {
	art := &golamp.Artifact{
		NumBits: dict.numBits,
		Dict:    make([]int64, len(dict.table)),
	}
	for i, v := range dict.table {
		art.Dict[i] = int64(v)
	}
	return art
}

// DictionaryFromArtifact rebuilds a Dictionary from a loaded artifact.
func DictionaryFromArtifact(art *golamp.Artifact) (*Dictionary, error) {
	if err := CheckArtifact(art); err != nil {
		return nil, err
	}
	dict := &Dictionary{
		numBits: art.NumBits,
		table:   make([]int32, len(art.Dict)),
		mapped:  roaring.New(),
	}
	for i, v := range art.Dict {
		dict.table[i] = int32(v)
		if v != golamp.Unmapped {
			dict.mapped.Add(uint32(i))
		}
	}
	return dict, nil
}

// Verify checks that every observed ID of every lamp of enum resolves back to that lamp.
func (dict *Dictionary) Verify(enum *golamp.Enumeration) error {
	marker := enum.Scheme.Marker()
	for _, lamp := range enum.Lamps {
		obsIDs, err := ObservedIDs(lamp, enum.Scheme.LampBits, marker)
		if err != nil {
			return err
		}
		if len(obsIDs) == 0 {
			return errors.Wrapf(golamp.ErrEncoding, "lamp %d has no observed IDs", lamp)
		}
		for _, obsID := range obsIDs {
			got, ok := dict.Lookup(obsID)
			if !ok {
				return errors.Wrapf(golamp.ErrBadArtifact, "observed ID %d of lamp %d is unmapped", obsID, lamp)
			}
			if got != lamp {
				return errors.Wrapf(golamp.ErrObservedIDCollision, "observed ID %d resolves to %d, expected lamp %d", obsID, got, lamp)
			}
		}
	}
	return nil
}
