package vcpu

import (
	"github.com/ironlatch/vtxcore/addr"
	"github.com/ironlatch/vtxcore/pmap"
)

// Host bundles the external primitives the vCPU needs from its
// collaborators: raw VMCS access, address translation, the transient
// mapping window's allocator, and the VMX capability MSRs that feed
// adjust. The physical-memory map query is not part of it; that is
// physmem.Host. None of it is blocking; all of it must be invoked only while
// pinned to the logical CPU that owns the currently-loaded VMCS.
type Host interface {
	addr.Translator
	pmap.Host

	// VMRead reads field from the current logical CPU's loaded VMCS.
	// It faults (the Host implementation panics or returns an error,
	// its choice) if invoked off-CPU or without a loaded VMCS.
	VMRead(field Field) (uint64, error)
	// VMWrite writes value to field in the current logical CPU's
	// loaded VMCS.
	VMWrite(field Field, value uint64) error
	// ReadCapabilityMSR returns the fixed-0 and fixed-1 masks for one
	// of the VMX capability MSRs (IA32_VMX_PINBASED_CTLS and friends)
	// used by adjust.
	ReadCapabilityMSR(msr uint32) (fixed0, fixed1 uint64, err error)
}
