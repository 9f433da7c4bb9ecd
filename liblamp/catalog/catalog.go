package catalog

import (
	"encoding/binary"
	"runtime"
	"sync"

	"github.com/2x3systems/golamp/golamp"
	"github.com/2x3systems/golamp/liblamp"
	"github.com/dgraph-io/badger/v3"
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

/***

Catalog database format:

	gCatalogStateKey => catalogState
		varint(MajorVers), varint(MinorVers), varint(NumClasses), scheme expr (string)

	gClassPrefix, canonical ID (uint32 big endian) => class
		varint(Lamp), varint(len(Orbit)), varint(Orbit[0]), ...

Big endian canonical keys make a prefix walk return classes in ascending canonical order.

***/

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
	gClassPrefix     = []byte{0x01}
)

const (
	catalogMajorVers = 2024
	catalogMinorVers = 1
)

type catalogState struct {
	MajorVers  uint64
	MinorVers  uint64
	NumClasses uint64
	SchemeExpr string
}

// catalog is a badger db wrapper holding the classes of one enumeration.
type catalog struct {
	closeMu    sync.Mutex // a CatalogContext may close this catalog from another goroutine
	ctx        golamp.CatalogContext
	readOnly   bool
	stateDirty bool
	state      catalogState
	db         *badger.DB
}

// OpenCatalog opens a new or existing class catalog.  An empty DbPathName opens an in-memory catalog.
func OpenCatalog(ctx golamp.CatalogContext, opts golamp.CatalogOpts) (golamp.Catalog, error) {
	cat := &catalog{
		ctx:      ctx,
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false // single writer
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(golamp.ErrBadCatalogParam, "DbPathName must be specified for read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	if ctx != nil {
		ctx.AttachCatalog(cat)
	}

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = !cat.readOnly
		cat.state.MajorVers = catalogMajorVers
		cat.state.MinorVers = catalogMinorVers
	}
	if err == nil && (cat.state.MajorVers != catalogMajorVers || cat.state.MinorVers != catalogMinorVers) {
		err = errors.Wrapf(golamp.ErrBadCatalogParam, "catalog version %d.%d is incompatible", cat.state.MajorVers, cat.state.MinorVers)
	}
	if err != nil {
		cat.Close()
		return nil, err
	}

	return cat, nil
}

func (cat *catalog) IsReadOnly() bool {
	return cat.readOnly
}

func (cat *catalog) NumClasses() int64 {
	return int64(cat.state.NumClasses)
}

func (cat *catalog) Scheme() (golamp.Scheme, error) {
	if len(cat.state.SchemeExpr) == 0 {
		return golamp.Scheme{}, errors.Wrap(golamp.ErrBadScheme, "catalog holds no enumeration")
	}
	return liblamp.ParseScheme(cat.state.SchemeExpr)
}

func (cat *catalog) PutEnumeration(enum *golamp.Enumeration) error {
	if cat.readOnly {
		return golamp.ErrCatalogReadOnly
	}
	if cat.db == nil {
		return golamp.ErrCatalogClosed
	}

	// Drop classes of a previous enumeration
	if err := cat.db.DropPrefix(gClassPrefix); err != nil {
		return err
	}

	wb := cat.db.NewWriteBatch()
	defer wb.Cancel()

	for i := 0; i < enum.NumClasses(); i++ {
		cls := enum.ClassAt(i)
		if err := wb.Set(formClassKey(cls.Canonical), marshalClass(cls)); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return err
	}

	cat.state.NumClasses = uint64(enum.NumClasses())
	cat.state.SchemeExpr = enum.Scheme.String()
	cat.stateDirty = true

	klog.V(2).Infof("catalog: wrote %d classes", enum.NumClasses())
	return cat.flushState()
}

func (cat *catalog) LookupClass(canonical golamp.ID) (cls golamp.Class, found bool, err error) {
	if cat.db == nil {
		return golamp.Class{}, false, golamp.ErrCatalogClosed
	}
	err = cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(formClassKey(canonical))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cls, err = unmarshalClass(canonical, val)
			return err
		})
	})
	if err == badger.ErrKeyNotFound {
		return golamp.Class{}, false, nil
	}
	return cls, err == nil, err
}

func (cat *catalog) Select(onHit func(cls golamp.Class) bool) error {
	if cat.db == nil {
		return golamp.ErrCatalogClosed
	}
	txn := cat.db.NewTransaction(false)
	defer txn.Discard()

	it := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: true,
		PrefetchSize:   300,
		Prefix:         gClassPrefix,
	})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key := item.Key()
		if len(key) != len(gClassPrefix)+4 {
			return errors.Wrapf(golamp.ErrUnmarshal, "bad class key %x", key)
		}
		canonical := golamp.ID(binary.BigEndian.Uint32(key[len(gClassPrefix):]))

		var cls golamp.Class
		err := item.Value(func(val []byte) error {
			var err error
			cls, err = unmarshalClass(canonical, val)
			return err
		})
		if err != nil {
			return err
		}
		if !onHit(cls) {
			break
		}
	}
	return nil
}

func (cat *catalog) loadState() error {
	return cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cat.state.Unmarshal(val)
		})
	})
}

func (cat *catalog) flushState() error {
	if !cat.stateDirty || cat.readOnly {
		return nil
	}
	err := cat.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gCatalogStateKey, cat.state.Marshal())
	})
	if err == nil {
		cat.stateDirty = false
	}
	return err
}

func (cat *catalog) Close() error {
	cat.closeMu.Lock()
	defer cat.closeMu.Unlock()

	var err error
	if cat.db != nil {
		err = cat.flushState()
		if cerr := cat.db.Close(); err == nil {
			err = cerr
		}
		cat.db = nil
		if cat.ctx != nil {
			cat.ctx.DetachCatalog(cat)
			cat.ctx = nil
		}
	}
	return err
}

func formClassKey(canonical golamp.ID) []byte {
	key := make([]byte, len(gClassPrefix)+4)
	copy(key, gClassPrefix)
	binary.BigEndian.PutUint32(key[len(gClassPrefix):], uint32(canonical))
	return key
}

func marshalClass(cls golamp.Class) []byte {
	buf := proto.NewBuffer(make([]byte, 0, 4+3*len(cls.Orbit)))
	buf.EncodeVarint(uint64(cls.Lamp))
	buf.EncodeVarint(uint64(len(cls.Orbit)))
	for _, id := range cls.Orbit {
		buf.EncodeVarint(uint64(id))
	}
	return buf.Bytes()
}

func unmarshalClass(canonical golamp.ID, val []byte) (golamp.Class, error) {
	cls := golamp.Class{Canonical: canonical}
	buf := proto.NewBuffer(val)

	lamp, err := buf.DecodeVarint()
	if err != nil {
		return cls, err
	}
	cls.Lamp = golamp.LampID(lamp)

	n, err := buf.DecodeVarint()
	if err != nil {
		return cls, err
	}
	if n > golamp.MaxNumBits {
		return cls, errors.Wrapf(golamp.ErrUnmarshal, "class %d has orbit of %d", canonical, n)
	}
	cls.Orbit = make([]golamp.ID, n)
	for i := range cls.Orbit {
		id, err := buf.DecodeVarint()
		if err != nil {
			return cls, err
		}
		cls.Orbit[i] = golamp.ID(id)
	}
	return cls, nil
}

func (state *catalogState) Marshal() []byte {
	buf := proto.NewBuffer(nil)
	buf.EncodeVarint(state.MajorVers)
	buf.EncodeVarint(state.MinorVers)
	buf.EncodeVarint(state.NumClasses)
	buf.EncodeStringBytes(state.SchemeExpr)
	return buf.Bytes()
}

func (state *catalogState) Unmarshal(val []byte) error {
	buf := proto.NewBuffer(val)
	var err error
	if state.MajorVers, err = buf.DecodeVarint(); err != nil {
		return err
	}
	if state.MinorVers, err = buf.DecodeVarint(); err != nil {
		return err
	}
	if state.NumClasses, err = buf.DecodeVarint(); err != nil {
		return err
	}
	state.SchemeExpr, err = buf.DecodeStringBytes()
	return err
}
