// Package hosttest provides a reusable, pure-Go fake implementation of
// vcpu.Host, addr.Translator, and pmap.Host, for tests and examples that
// need a vCPU wired up without real VMX hardware. It plays the same role
// gVisor's kvm/testutil package plays for its KVM platform tests and the
// teacher hypervisor's build-tag-gated test doubles (test_utils.go):
// swap in a software stand-in for the collaborator that would otherwise
// require a privileged driver.
package hosttest

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"github.com/ironlatch/vtxcore/addr"
	"github.com/ironlatch/vtxcore/physmem"
	"github.com/ironlatch/vtxcore/pmap"
	"github.com/ironlatch/vtxcore/vcpu"
)

// CapabilityMSR describes the fixed-0/fixed-1 masks Host reports for one
// VMX capability MSR.
type CapabilityMSR struct {
	Fixed0, Fixed1 uint64
}

// defaultCapabilities reports "anything goes" (fixed0=0, fixed1=all
// ones) for the five control-adjustment MSRs this core consults, which
// is a safe default for tests that don't care about bit-forcing.
func defaultCapabilities() map[uint32]CapabilityMSR {
	return map[uint32]CapabilityMSR{
		0x48D: {0, 0xFFFFFFFF}, // IA32_VMX_TRUE_PINBASED_CTLS
		0x48E: {0, 0xFFFFFFFF}, // IA32_VMX_TRUE_PROCBASED_CTLS
		0x48B: {0, 0xFFFFFFFF}, // IA32_VMX_PROCBASED_CTLS2
		0x48F: {0, 0xFFFFFFFF}, // IA32_VMX_TRUE_EXIT_CTLS
		0x490: {0, 0xFFFFFFFF}, // IA32_VMX_TRUE_ENTRY_CTLS
	}
}

// Host is a fake implementation of vcpu.Host: a map-keyed VMCS, a single
// transient mapping window backed by a byte arena standing in for guest
// physical memory, and configurable capability-MSR masks.
type Host struct {
	mu           sync.Mutex
	vmcs         map[vcpu.Field]uint64
	capabilities map[uint32]CapabilityMSR
	ranges       []physmem.Range
	arena        []byte
	window       []byte
	flushedVAs   []addr.VA
}

// New constructs a Host with arenaPages pages of simulated guest
// physical memory (identity-addressed: physical address N maps to
// arena byte offset N).
func New(arenaPages int) *Host {
	return &Host{
		vmcs:         make(map[vcpu.Field]uint64),
		capabilities: defaultCapabilities(),
		arena:        make([]byte, arenaPages*addr.PageSize),
		window:       make([]byte, addr.PageSize),
	}
}

// SetCapability overrides the fixed-0/fixed-1 masks reported for msr.
func (h *Host) SetCapability(msr uint32, c CapabilityMSR) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.capabilities[msr] = c
}

// SetPhysicalRanges configures the ranges physmem.Probe will discover
// via CheckPhysicalMemory.
func (h *Host) SetPhysicalRanges(ranges []physmem.Range) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ranges = append([]physmem.Range(nil), ranges...)
}

// VMRead implements vcpu.Host.
func (h *Host) VMRead(field vcpu.Field) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vmcs[field], nil
}

// VMWrite implements vcpu.Host.
func (h *Host) VMWrite(field vcpu.Field, value uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vmcs[field] = value
	return nil
}

// RawField exposes the current value of a VMCS field directly, for
// tests that want to assert on what the core wrote without going
// through a typed accessor.
func (h *Host) RawField(field vcpu.Field) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vmcs[field]
}

// ReadCapabilityMSR implements vcpu.Host.
func (h *Host) ReadCapabilityMSR(msr uint32) (fixed0, fixed1 uint64, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.capabilities[msr]
	if !ok {
		return 0, 0, fmt.Errorf("hosttest: unknown capability MSR %#x", msr)
	}
	return c.Fixed0, c.Fixed1, nil
}

// PAFromVA implements addr.Translator with an identity mapping: host
// virtual addresses equal physical addresses in this fake.
func (h *Host) PAFromVA(va addr.VA) addr.PA { return addr.PA(uint64(va)) }

// PAFromVAWithCR3 implements addr.Translator, ignoring cr3 (the fake
// models a single flat address space).
func (h *Host) PAFromVAWithCR3(va addr.VA, _ addr.PA) addr.PA { return addr.PA(uint64(va)) }

// VAFromPA implements addr.Translator.
func (h *Host) VAFromPA(pa addr.PA) addr.VA { return addr.VA(uint64(pa)) }

// MappingAllocate implements pmap.Host, handing out the Host's single
// simulated transient window.
func (h *Host) MappingAllocate() (addr.VA, pmap.PTE, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.window == nil {
		return 0, nil, fmt.Errorf("hosttest: mapping window already allocated")
	}
	window := h.window
	h.window = nil
	return addr.VA(uintptr(unsafe.Pointer(&window[0]))), &pte{host: h, window: window}, nil
}

// MappingFree implements pmap.Host.
func (h *Host) MappingFree(addr.VA) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return nil
}

// TLBFlushOne implements pmap.Host, recording the flush for tests that
// want to assert one happened.
func (h *Host) TLBFlushOne(va addr.VA) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushedVAs = append(h.flushedVAs, va)
}

// FlushedAddresses returns every VA passed to TLBFlushOne, in order.
func (h *Host) FlushedAddresses() []addr.VA {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]addr.VA(nil), h.flushedVAs...)
}

// CheckPhysicalMemory implements physmem.Host.
func (h *Host) CheckPhysicalMemory(out []physmem.Range) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ranges := append([]physmem.Range(nil), h.ranges...)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Begin < ranges[j].Begin })
	n := copy(out, ranges)
	if n < len(ranges) {
		return len(ranges), nil
	}
	return n, nil
}

// pte is the fake PTE backing Host's single mapping window: SetFrame
// copies the target frame's bytes from the arena into the window,
// Clear writes the window's current contents back to whatever frame it
// last mapped, mirroring how real hardware only sees the contents of
// backing memory, not the window buffer.
type pte struct {
	host    *Host
	window  []byte
	mapped  bool
	current addr.PFN
}

func (p *pte) writeback() {
	if !p.mapped {
		return
	}
	start := uint64(p.current) * addr.PageSize
	copy(p.host.arena[start:start+addr.PageSize], p.window)
}

func (p *pte) SetFrame(pfn addr.PFN) (addr.PFN, error) {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	p.writeback()
	prev := p.current
	p.current = pfn
	p.mapped = true
	start := uint64(pfn) * addr.PageSize
	if start+addr.PageSize > uint64(len(p.host.arena)) {
		return prev, fmt.Errorf("hosttest: frame %#x out of range", pfn)
	}
	copy(p.window, p.host.arena[start:start+addr.PageSize])
	return prev, nil
}

func (p *pte) Clear() error {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	p.writeback()
	p.mapped = false
	return nil
}
