// Package pmap implements the per-vCPU transient page mapping: a single
// reserved host virtual page used to copy guest physical memory in and
// out without disturbing the rest of the host's address space.
package pmap

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/ironlatch/vtxcore/addr"
)

// PTE is a handle to the single page-table entry backing a Mapping's
// virtual address window. The host owns the actual page-table memory;
// this interface is the only way the core touches it.
type PTE interface {
	// SetFrame overwrites the entry's physical frame, preserving the
	// present and read/write bits, and returns the previous frame.
	SetFrame(pfn addr.PFN) (addr.PFN, error)
	// Clear zeroes the entry's frame (the present/RW bits are left
	// alone so the window can be reused immediately by the next Map).
	Clear() error
}

// Host is the subset of external primitives pmap needs: a host virtual
// address hole backed by one writable PTE, and a way to shoot down a
// single TLB entry after repointing it.
type Host interface {
	// MappingAllocate reserves one page of host virtual address space
	// and returns its address and the PTE that resolves it.
	MappingAllocate() (addr.VA, PTE, error)
	// MappingFree releases a VA previously returned by MappingAllocate.
	MappingFree(va addr.VA) error
	// TLBFlushOne invalidates the single-page translation for va on the
	// current logical CPU.
	TLBFlushOne(va addr.VA)
}

// Mapping owns exactly one host virtual page and the PTE backing it.
// It is not copyable: always use it through a pointer, and never copy
// the pointed-to value (there is no safe way to duplicate the
// underlying PTE ownership).
type Mapping struct {
	_    noCopy
	host Host
	va   addr.VA
	pte  PTE

	mu     sync.Mutex
	closed bool
	logger Logger
}

// noCopy is embedded (by value) to let `go vet -copylocks` catch
// accidental copies of a Mapping; it has no other behavior.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Logger is a minimal, nil-safe logging hook. Any of the standard
// library's *log.Logger satisfies it via Printf.
type Logger interface {
	Printf(format string, args ...any)
}

// New allocates the transient mapping window from host.
func New(host Host, logger Logger) (*Mapping, error) {
	va, pte, err := host.MappingAllocate()
	if err != nil {
		return nil, fmt.Errorf("pmap: allocate mapping window: %w", err)
	}
	m := &Mapping{host: host, va: va, pte: pte, logger: logger}
	runtime.SetFinalizer(m, (*Mapping).finalize)
	return m, nil
}

// Map overwrites the window's PTE to point at pa's frame, invalidates
// the stale TLB entry, and returns the host virtual address now backing
// pa's page.
func (m *Mapping) Map(pa addr.PA) (addr.VA, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	if _, err := m.pte.SetFrame(pa.PFN()); err != nil {
		return 0, fmt.Errorf("pmap: map %#x: %w", uint64(pa), err)
	}
	m.host.TLBFlushOne(m.va)
	return m.va, nil
}

// Unmap clears the window's PTE frame and invalidates the TLB entry.
func (m *Mapping) Unmap() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unmapLocked()
}

func (m *Mapping) unmapLocked() error {
	if m.closed {
		return ErrClosed
	}
	if err := m.pte.Clear(); err != nil {
		return fmt.Errorf("pmap: unmap: %w", err)
	}
	m.host.TLBFlushOne(m.va)
	return nil
}

// Close unmaps the window and releases the host virtual address. It is
// idempotent.
func (m *Mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	_ = m.pte.Clear()
	err := m.host.MappingFree(m.va)
	m.closed = true
	runtime.SetFinalizer(m, nil)
	if err != nil {
		return fmt.Errorf("pmap: free mapping window: %w", err)
	}
	return nil
}

func (m *Mapping) finalize() {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}
	if m.logger != nil {
		m.logger.Printf("pmap: mapping window leaked, closing from finalizer")
	}
	_ = m.Close()
}

// Read copies len(buf) bytes starting at pa into buf, re-mapping one
// frame at a time and honoring the within-page offset.
func (m *Mapping) Read(pa addr.PA, buf []byte) error {
	return m.readWrite(pa, buf, false)
}

// Write copies len(buf) bytes from buf to guest physical memory starting
// at pa, re-mapping one frame at a time.
func (m *Mapping) Write(pa addr.PA, buf []byte) error {
	return m.readWrite(pa, buf, true)
}

func (m *Mapping) readWrite(pa addr.PA, buf []byte, write bool) error {
	remaining := buf
	cur := pa
	for len(remaining) > 0 {
		offset := cur.Offset()
		chunk := addr.PageSize - int(offset)
		if chunk > len(remaining) {
			chunk = len(remaining)
		}

		va, err := m.Map(cur.AlignDown())
		if err != nil {
			return err
		}
		window := vaToBytes(va, addr.PageSize)[offset : offset+uint64(chunk)]
		if write {
			copy(window, remaining[:chunk])
		} else {
			copy(remaining[:chunk], window)
		}

		remaining = remaining[chunk:]
		cur = cur.Add(addr.PA(chunk))
	}
	return nil
}
