package golamp

const (

	// MaxNumBits is the widest ID space an Enumeration or Dictionary can span.
	// Every ID of the space gets a status slot and a dictionary slot, so the
	// table size is 2^MaxNumBits.
	MaxNumBits = 24

	// Unmapped is the dictionary value for an observed ID that no lamp can produce.
	Unmapped = -1
)

// ID is an identifier in [0, 2^NumBits), bijective with a NumBits wide BitVector.
type ID uint32

// LampID is the short identifier assigned to a physical transmitting unit (LampBits wide).
type LampID uint32

// Symbol is a tri-state bit symbol.
type Symbol int8

const (
	Zero Symbol = 0
	One  Symbol = 1
	Mark Symbol = 2 // stop marker, only used by signal encodings
)

// BitVector is a fixed length sequence of Symbols.
// Index 0 is the least significant bit for LittleEndian.
type BitVector []Symbol

// Endian selects how a BitVector maps onto the bits of an ID.
type Endian byte

const (
	LittleEndian Endian = iota // v[i] is bit i of the ID
	BigEndian                  // v[i] is bit N-1-i of the ID
)

// Status is the classification of an ID during an enumeration scan.
type Status byte

const (
	Unvisited Status = iota
	Invalid
	Canonical // member of a valid class; see Enumeration.CanonicalOf
)

// Class is a valid rotation equivalence class.
type Class struct {
	Canonical ID     // minimum ID of the orbit
	Lamp      LampID // lamp ID derived from Canonical
	Orbit     []ID   // distinct rotation IDs, ascending
}

// Artifact is the dictionary as serialized for downstream decoders.
//
// Dict[obsID] is the lamp ID for the observed ID or Unmapped.
type Artifact struct {
	NumBits int     `json:"nBits"`
	Dict    []int64 `json:"dict"`
}

// Format selects the artifact encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatBinary Format = "bin"
)

// Compression selects the artifact stream compression.
type Compression string

const (
	CompressNone Compression = "none"
	CompressZstd Compression = "zstd"
	CompressLZ4  Compression = "lz4"
)

// EncodingMode selects a signal encoding of a base sequence.
type EncodingMode string

const (
	EncodePulseLength EncodingMode = "pulse-length"
	EncodeSwitch      EncodingMode = "switch"
	EncodeNone        EncodingMode = "none"
	EncodeMax         EncodingMode = "max"
)

// Catalog stores the classes produced by an Enumeration.
type Catalog interface {

	// PutEnumeration writes every class of the given Enumeration and the Scheme that produced it.
	PutEnumeration(enum *Enumeration) error

	// Scheme returns the scheme recorded by the last PutEnumeration.
	Scheme() (Scheme, error)

	// NumClasses returns the number of classes in this catalog.
	NumClasses() int64

	// LookupClass returns the class whose canonical ID is given.
	// If no such class exists, found is false.
	LookupClass(canonical ID) (cls Class, found bool, err error)

	// Select fires onHit for each stored class in ascending canonical order.
	// Enumeration stops early if onHit returns false.
	Select(onHit func(cls Class) bool) error

	// Returns true if this catalog was opened for read-only access.
	IsReadOnly() bool

	Close() error
}

// CatalogContext is a container for open / active Catalog instances.
type CatalogContext interface {

	// Attaches the given Catalog to this context.
	AttachCatalog(cat Catalog)

	// Detaches the given Catalog from this context.
	DetachCatalog(cat Catalog)

	// Closes all open catalogs then closes.
	Close()

	// Signals when Close() completed and all open Catalogs have been closed
	Done() <-chan struct{}
}

// CatalogOpts specifies params for opening a class Catalog
type CatalogOpts struct {
	DbPathName string // omit for in-memory db
	ReadOnly   bool   // open in read-only mode
}
