package liblamp

import (
	"context"
	"runtime"

	"github.com/2x3systems/golamp/golamp"
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/plan-systems/klog"
	"golang.org/x/sync/errgroup"
)

// EnumerateParallel produces the same Enumeration as Enumerate, splitting the ID space across workers.
//
// A worker emits a class only when the class minimum lies in its range, so no two workers ever emit the
// same class and the per-worker results merge by concatenation.  The status table is filled after the merge.
// workers <= 0 denotes runtime.NumCPU().
func EnumerateParallel(ctx context.Context, scheme golamp.Scheme, workers int) (*golamp.Enumeration, error) {
	if err := scheme.Normalize(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	N := scheme.NumBits
	numIDs := scheme.NumIDs()
	if workers > numIDs {
		workers = numIDs
	}
	span := (numIDs + workers - 1) / workers

	parts := make([][]golamp.ID, workers)
	g, ctx := errgroup.WithContext(ctx)

	for w := 0; w < workers; w++ {
		w := w
		lo, hi := w*span, (w+1)*span
		if hi > numIDs {
			hi = numIDs
		}
		g.Go(func() error {
			valid := NewValidator(&scheme)
			var found []golamp.ID
			for i := lo; i < hi; i++ {
				if (i-lo)&0xFFFF == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				id := golamp.ID(i)
				if golamp.OrbitMin(id, N) != id {
					continue
				}
				if valid.IsValid(BitsOf(id, N, golamp.LittleEndian)) {
					found = append(found, id)
				}
			}
			parts[w] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	enum := &golamp.Enumeration{
		Scheme: scheme,
		Table:  golamp.NewStatusTable(numIDs),
	}

	// Everything not reached from a canonical ID is a member of an invalid orbit.
	members := roaring.New()
	for _, part := range parts {
		for _, canonical := range part {
			enum.Canonicals = append(enum.Canonicals, canonical)
			for r := 0; r < N; r++ {
				rotID := golamp.RotateID(canonical, N, r)
				enum.Table.MarkCanonical(rotID, canonical)
				members.Add(uint32(rotID))
			}
		}
	}
	for i := 0; i < numIDs; i++ {
		if !members.Contains(uint32(i)) {
			enum.Table.MarkInvalid(golamp.ID(i))
		}
	}

	klog.V(2).Infof("scanned %d IDs with %d workers: %d valid classes covering %d IDs", numIDs, workers, len(enum.Canonicals), members.GetCardinality())

	if err := assignLamps(enum); err != nil {
		return nil, err
	}
	return enum, nil
}
