package golamp

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ParseBits parses a string of '0', '1' and 'S' (Mark) runes into a BitVector.
func ParseBits(str string) (BitVector, error) {
	bits := make(BitVector, 0, len(str))
	for i, r := range str {
		switch r {
		case '0':
			bits = append(bits, Zero)
		case '1':
			bits = append(bits, One)
		case 'S':
			bits = append(bits, Mark)
		default:
			return nil, errors.Wrapf(ErrBadBits, "unexpected %q at %d in %q", r, i, str)
		}
	}
	return bits, nil
}

// String formats a BitVector using the runes accepted by ParseBits.
func (bits BitVector) String() string {
	var b strings.Builder
	b.Grow(len(bits))
	for _, bi := range bits {
		switch bi {
		case Zero:
			b.WriteByte('0')
		case One:
			b.WriteByte('1')
		default:
			b.WriteByte('S')
		}
	}
	return b.String()
}

// HasMark returns true if any symbol is a Mark.
func (bits BitVector) HasMark() bool {
	for _, bi := range bits {
		if bi == Mark {
			return true
		}
	}
	return false
}

// RotateID is the integer form of rolling a width-bit little endian BitVector by offset.
// A positive offset moves bit i to bit i+offset (mod width).
func RotateID(id ID, width, offset int) ID {
	if width <= 0 {
		return id
	}
	offset %= width
	if offset < 0 {
		offset += width
	}
	mask := ID(1)<<uint(width) - 1
	id &= mask
	if offset == 0 {
		return id
	}
	return (id<<uint(offset) | id>>uint(width-offset)) & mask
}

// Orbit returns the distinct rotations of id in ascending order.
func Orbit(id ID, width int) []ID {
	if width <= 0 {
		return nil
	}
	orbit := make([]ID, 0, width)
	for r := 0; r < width; r++ {
		orbit = insertID(orbit, RotateID(id, width, r))
	}
	return orbit
}

// OrbitMin returns the smallest rotation of id.
func OrbitMin(id ID, width int) ID {
	lowest := id
	for r := 1; r < width; r++ {
		if rot := RotateID(id, width, r); rot < lowest {
			lowest = rot
		}
	}
	return lowest
}

// insertID inserts id into ascending ids if not already present.
func insertID(ids []ID, id ID) []ID {
	insertAt := len(ids)
	for i, idi := range ids {
		if idi == id {
			return ids
		} else if idi > id {
			insertAt = i
			break
		}
	}
	ids = append(ids, 0)
	N := len(ids)
	copy(ids[insertAt+1:N], ids[insertAt:N-1])
	ids[insertAt] = id
	return ids
}

// NewCatalogContext returns a CatalogContext that closes when Close() is called and all its catalogs have detached.
func NewCatalogContext() CatalogContext {
	ctx := &catalogContext{
		openCatalogs: make(map[Catalog]struct{}),
		closing:      make(chan struct{}),
		closed:       make(chan struct{}),
	}
	ctx.openCount.Add(1)
	go func() {
		<-ctx.closing
		ctx.openCount.Done()
		ctx.openCount.Wait()
		close(ctx.closed)
	}()
	return ctx
}

type catalogContext struct {
	mu           sync.Mutex
	openCount    sync.WaitGroup
	openCatalogs map[Catalog]struct{}
	closing      chan struct{}
	closed       chan struct{}
	closeOnce    sync.Once
}

func (ctx *catalogContext) AttachCatalog(cat Catalog) {
	ctx.openCount.Add(1)
	ctx.mu.Lock()
	ctx.openCatalogs[cat] = struct{}{}
	ctx.mu.Unlock()
}

func (ctx *catalogContext) DetachCatalog(cat Catalog) {
	ctx.mu.Lock()
	if _, exists := ctx.openCatalogs[cat]; exists {
		delete(ctx.openCatalogs, cat)
		ctx.openCount.Done()
	}
	ctx.mu.Unlock()
}

func (ctx *catalogContext) Done() <-chan struct{} {
	return ctx.closed
}

func (ctx *catalogContext) Close() {
	ctx.closeOnce.Do(func() {
		close(ctx.closing)
		ctx.mu.Lock()
		open := make([]Catalog, 0, len(ctx.openCatalogs))
		for cat := range ctx.openCatalogs {
			open = append(open, cat)
		}
		ctx.mu.Unlock()

		// Catalog.Close() calls DetachCatalog, so don't hold the lock
		for _, cat := range open {
			go cat.Close()
		}
	})
}
