package pmap_test

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/ironlatch/vtxcore/addr"
	"github.com/ironlatch/vtxcore/pmap"
)

// fakeArena simulates host physical memory as a flat byte slice, and
// fakeHost simulates the single-page transient window as a fixed-size
// buffer whose contents are synced to/from the arena on each SetFrame /
// Clear — standing in for what real hardware does by repointing a page
// table entry.
type fakeArena struct {
	mem [256 * addr.PageSize]byte
}

type fakePTE struct {
	arena   *fakeArena
	window  *[addr.PageSize]byte
	mapped  bool
	current addr.PFN
}

func (p *fakePTE) writeback() {
	if p.mapped {
		copy(p.arena.mem[uint64(p.current)*addr.PageSize:], p.window[:])
	}
}

func (p *fakePTE) SetFrame(pfn addr.PFN) (addr.PFN, error) {
	prev := p.current
	p.writeback()
	copy(p.window[:], p.arena.mem[uint64(pfn)*addr.PageSize:uint64(pfn)*addr.PageSize+addr.PageSize])
	p.current = pfn
	p.mapped = true
	return prev, nil
}

func (p *fakePTE) Clear() error {
	p.writeback()
	for i := range p.window {
		p.window[i] = 0
	}
	p.mapped = false
	return nil
}

type fakeHost struct {
	arena     *fakeArena
	window    [addr.PageSize]byte
	pte       *fakePTE
	flushedVA []addr.VA
	allocated bool
}

func newFakeHost() *fakeHost {
	h := &fakeHost{arena: &fakeArena{}}
	return h
}

func (h *fakeHost) MappingAllocate() (addr.VA, pmap.PTE, error) {
	h.allocated = true
	h.pte = &fakePTE{arena: h.arena, window: &h.window}
	va := addr.VA(uintptr(unsafe.Pointer(&h.window)))
	return va, h.pte, nil
}

func (h *fakeHost) MappingFree(addr.VA) error {
	h.allocated = false
	return nil
}

func (h *fakeHost) TLBFlushOne(va addr.VA) {
	h.flushedVA = append(h.flushedVA, va)
}

func (h *fakeHost) frame(pfn addr.PFN) []byte {
	return h.arena.mem[uint64(pfn)*addr.PageSize : uint64(pfn)*addr.PageSize+addr.PageSize]
}

func TestMapUnmapFlushesTLB(t *testing.T) {
	h := newFakeHost()
	m, err := pmap.New(h, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	pa := addr.PA(3 * addr.PageSize)
	copy(h.frame(pa.PFN()), []byte("hello physical frame"))

	va, err := m.Map(pa)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if va == 0 {
		t.Fatalf("Map returned zero VA")
	}
	if len(h.flushedVA) != 1 || h.flushedVA[0] != va {
		t.Fatalf("expected one TLB flush for %#x, got %v", va, h.flushedVA)
	}

	if err := m.Unmap(); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if len(h.flushedVA) != 2 {
		t.Fatalf("expected second TLB flush on unmap, got %d", len(h.flushedVA))
	}
}

func TestReadWriteSingleFrame(t *testing.T) {
	h := newFakeHost()
	m, err := pmap.New(h, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	pa := addr.PA(5*addr.PageSize + 0x10)
	want := []byte("payload")
	if err := m.Write(pa, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got := make([]byte, len(want))
	if err := m.Read(pa, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Read = %q, want %q", got, want)
	}

	// Confirm it landed in the right spot of the simulated frame.
	frame := h.frame(pa.PFN())
	if !bytes.Equal(frame[0x10:0x10+len(want)], want) {
		t.Errorf("frame contents = %q, want %q", frame[0x10:0x10+len(want)], want)
	}
}

func TestReadWriteSpansFrames(t *testing.T) {
	h := newFakeHost()
	m, err := pmap.New(h, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	// Start 10 bytes before a page boundary, write 20 bytes so the
	// write straddles two physical frames.
	pa := addr.PA(7*addr.PageSize - 10)
	data := bytes.Repeat([]byte{0xAB}, 20)
	if err := m.Write(pa, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got := make([]byte, len(data))
	if err := m.Read(pa, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read = %x, want %x", got, data)
	}

	lowFrame := h.frame(addr.PA(6 * addr.PageSize).PFN())
	highFrame := h.frame(addr.PA(7 * addr.PageSize).PFN())
	if !bytes.Equal(lowFrame[addr.PageSize-10:], data[:10]) {
		t.Errorf("low frame tail mismatch")
	}
	if !bytes.Equal(highFrame[:10], data[10:]) {
		t.Errorf("high frame head mismatch")
	}
}

func TestCloseIsIdempotentAndLocksOutFurtherUse(t *testing.T) {
	h := newFakeHost()
	m, err := pmap.New(h, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
	if _, err := m.Map(0); err != pmap.ErrClosed {
		t.Errorf("Map after Close = %v, want ErrClosed", err)
	}
}
