package golamp

const (
	statusUnvisited int32 = -1
	statusInvalid   int32 = -2
)

// StatusTable holds the scan state of every ID of a space.
// An entry >= 0 is the canonical ID of the valid class the ID belongs to.
type StatusTable []int32

// NewStatusTable returns a table of numIDs entries, all Unvisited.
func NewStatusTable(numIDs int) StatusTable {
	table := make(StatusTable, numIDs)
	for i := range table {
		table[i] = statusUnvisited
	}
	return table
}

func (table StatusTable) Status(id ID) Status {
	switch v := table[id]; {
	case v == statusUnvisited:
		return Unvisited
	case v == statusInvalid:
		return Invalid
	default:
		return Canonical
	}
}

// MarkInvalid marks id as a member of an invalid class.
func (table StatusTable) MarkInvalid(id ID) {
	table[id] = statusInvalid
}

// MarkCanonical marks id as a member of the valid class whose canonical ID is given.
func (table StatusTable) MarkCanonical(id, canonical ID) {
	table[id] = int32(canonical)
}

// CanonicalOf returns the canonical ID of the valid class containing id.
func (table StatusTable) CanonicalOf(id ID) (ID, bool) {
	v := table[id]
	if v < 0 {
		return 0, false
	}
	return ID(v), true
}

// Enumeration is the output of a canonical enumeration scan.
//
// Canonicals is ascending and Lamps[i] is the lamp ID derived from Canonicals[i].
type Enumeration struct {
	Scheme     Scheme
	Canonicals []ID
	Lamps      []LampID
	Table      StatusTable
}

// NumClasses returns the number of valid equivalence classes.
func (enum *Enumeration) NumClasses() int {
	return len(enum.Canonicals)
}

// ClassAt returns the i-th class in ascending canonical order.
func (enum *Enumeration) ClassAt(i int) Class {
	canonical := enum.Canonicals[i]
	return Class{
		Canonical: canonical,
		Lamp:      enum.Lamps[i],
		Orbit:     Orbit(canonical, enum.Scheme.NumBits),
	}
}

// ClassOf returns the valid class containing the given ID.
func (enum *Enumeration) ClassOf(id ID) (Class, bool) {
	if int(id) >= len(enum.Table) {
		return Class{}, false
	}
	canonical, ok := enum.Table.CanonicalOf(id)
	if !ok {
		return Class{}, false
	}
	i := searchIDs(enum.Canonicals, canonical)
	if i >= len(enum.Canonicals) || enum.Canonicals[i] != canonical {
		return Class{}, false
	}
	return enum.ClassAt(i), true
}

// Classes returns every class in ascending canonical order.
func (enum *Enumeration) Classes() []Class {
	classes := make([]Class, len(enum.Canonicals))
	for i := range classes {
		classes[i] = enum.ClassAt(i)
	}
	return classes
}

func searchIDs(ids []ID, id ID) int {
	lo, hi := 0, len(ids)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if ids[mid] < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
