package vcpu_test

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/ironlatch/vtxcore/addr"
	"github.com/ironlatch/vtxcore/pmap"
	"github.com/ironlatch/vtxcore/vcpu"
)

func uintptrOf(p *[addr.PageSize]byte) uintptr { return uintptr(unsafe.Pointer(p)) }

// fakeVMCS is a simple map-based stand-in for a VMCS, sufficient for
// exercising the control surface and injection engine without real
// hardware.
type fakeVMCS struct {
	mu     sync.Mutex
	fields map[vcpu.Field]uint64
}

func newFakeVMCS() *fakeVMCS { return &fakeVMCS{fields: make(map[vcpu.Field]uint64)} }

func (c *fakeVMCS) read(f vcpu.Field) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields[f]
}

func (c *fakeVMCS) write(f vcpu.Field, v uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields[f] = v
}

// fakePTE and fakeArena simulate the transient mapping window exactly as
// pmap's own test double does: "hardware" remap is a writeback/refill
// against a byte arena indexed by page-frame number.
type fakeArena struct {
	mem [64 * addr.PageSize]byte
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
	p.writeback()
	prev := p.current
	p.current = pfn
	p.mapped = true
	copy(p.window[:], p.arena.mem[uint64(pfn)*addr.PageSize:uint64(pfn)*addr.PageSize+addr.PageSize])
	return prev, nil
}

func (p *fakePTE) Clear() error {
	p.writeback()
	p.mapped = false
	return nil
}

// fakeHost implements vcpu.Host against the fakeVMCS and a single
// identity-mapped guest-physical arena.
type fakeHost struct {
	vmcs   *fakeVMCS
	arena  *fakeArena
	window [addr.PageSize]byte
	pte    *fakePTE

	fixed0, fixed1 map[uint32]uint64
}

func newFakeHost() *fakeHost {
	h := &fakeHost{
		vmcs:  newFakeVMCS(),
		arena: &fakeArena{},
		fixed0: map[uint32]uint64{
			0x48D: 0, 0x48E: 0, 0x48B: 0, 0x48F: 0, 0x490: 0,
		},
		fixed1: map[uint32]uint64{
			0x48D: 0xFFFFFFFF, 0x48E: 0xFFFFFFFF, 0x48B: 0xFFFFFFFF,
			0x48F: 0xFFFFFFFF, 0x490: 0xFFFFFFFF,
		},
	}
	return h
}

func (h *fakeHost) PAFromVA(va addr.VA) addr.PA             { return addr.PA(uint64(va)) }
func (h *fakeHost) PAFromVAWithCR3(va addr.VA, _ addr.PA) addr.PA { return addr.PA(uint64(va)) }
func (h *fakeHost) VAFromPA(pa addr.PA) addr.VA             { return addr.VA(uint64(pa)) }

func (h *fakeHost) MappingAllocate() (addr.VA, pmap.PTE, error) {
	if h.pte != nil {
		return 0, nil, errors.New("fakeHost: mapping already allocated")
	}
	h.pte = &fakePTE{arena: h.arena, window: &h.window}
	return addr.VA(uintptrOf(&h.window)), h.pte, nil
}

func (h *fakeHost) MappingFree(addr.VA) error {
	h.pte = nil
	return nil
}

func (h *fakeHost) TLBFlushOne(addr.VA) {}

func (h *fakeHost) VMRead(field vcpu.Field) (uint64, error) {
	return h.vmcs.read(field), nil
}

func (h *fakeHost) VMWrite(field vcpu.Field, value uint64) error {
	h.vmcs.write(field, value)
	return nil
}

func (h *fakeHost) ReadCapabilityMSR(msr uint32) (fixed0, fixed1 uint64, err error) {
	f0, ok0 := h.fixed0[msr]
	f1, ok1 := h.fixed1[msr]
	if !ok0 || !ok1 {
		return 0, 0, errors.New("fakeHost: unknown capability MSR")
	}
	return f0, f1, nil
}
