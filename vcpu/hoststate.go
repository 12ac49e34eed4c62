package vcpu

import "github.com/ironlatch/vtxcore/addr"

// HostCR0 returns the host CR0 value the VMCS will restore on VM exit.
func (v *VCPU) HostCR0() uint64 { return v.mustRead(FieldHostCR0) }

// SetHostCR0 writes the host CR0 restore value.
func (v *VCPU) SetHostCR0(val uint64) { v.mustWrite(FieldHostCR0, val) }

// HostCR3 returns the host CR3 restore value.
func (v *VCPU) HostCR3() addr.PA { return addr.PA(v.mustRead(FieldHostCR3)) }

// SetHostCR3 writes the host CR3 restore value.
func (v *VCPU) SetHostCR3(val addr.PA) { v.mustWrite(FieldHostCR3, uint64(val)) }

// HostCR4 returns the host CR4 restore value.
func (v *VCPU) HostCR4() uint64 { return v.mustRead(FieldHostCR4) }

// SetHostCR4 writes the host CR4 restore value.
func (v *VCPU) SetHostCR4(val uint64) { v.mustWrite(FieldHostCR4, val) }

// HostRSP returns the host stack pointer VM exit restores.
func (v *VCPU) HostRSP() addr.VA { return addr.VA(v.mustRead(FieldHostRSP)) }

// SetHostRSP writes the host stack pointer VM exit restores.
func (v *VCPU) SetHostRSP(val addr.VA) { v.mustWrite(FieldHostRSP, uint64(val)) }

// HostRIP returns the host instruction pointer VM exit restores — the
// address VM-exit handling resumes at.
func (v *VCPU) HostRIP() addr.VA { return addr.VA(v.mustRead(FieldHostRIP)) }

// SetHostRIP writes the host instruction-pointer restore value.
func (v *VCPU) SetHostRIP(val addr.VA) { v.mustWrite(FieldHostRIP, uint64(val)) }

// HostFSBase returns the host FS.base restore value.
func (v *VCPU) HostFSBase() addr.VA { return addr.VA(v.mustRead(FieldHostFSBase)) }

// SetHostFSBase writes the host FS.base restore value.
func (v *VCPU) SetHostFSBase(val addr.VA) { v.mustWrite(FieldHostFSBase, uint64(val)) }

// HostGSBase returns the host GS.base restore value.
func (v *VCPU) HostGSBase() addr.VA { return addr.VA(v.mustRead(FieldHostGSBase)) }

// SetHostGSBase writes the host GS.base restore value.
func (v *VCPU) SetHostGSBase(val addr.VA) { v.mustWrite(FieldHostGSBase, uint64(val)) }

// HostTRBase returns the host TR.base restore value.
func (v *VCPU) HostTRBase() addr.VA { return addr.VA(v.mustRead(FieldHostTRBase)) }

// SetHostTRBase writes the host TR.base restore value.
func (v *VCPU) SetHostTRBase(val addr.VA) { v.mustWrite(FieldHostTRBase, uint64(val)) }

// HostTRSelector returns the raw host TR selector.
func (v *VCPU) HostTRSelector() Selector { return Selector(v.mustRead(FieldHostTRSelector)) }

// SetHostTRSelector writes the host TR selector, masked to its
// table-index component per hvpp's host_cs()/host segment-selector
// convention: host segment selectors always carry RPL/TI 0, so only
// index*8 is ever written.
func (v *VCPU) SetHostTRSelector(sel Selector) {
	v.mustWrite(FieldHostTRSelector, uint64(sel.Index())*8)
}

// HostGDTR returns the host global descriptor table register. Per
// hvpp's host_gdtr(), VMX defines no VMCS field for the host GDTR
// limit — a VM exit always restores it to 0xFFFF, so this is a fixed
// value, not a VMREAD.
func (v *VCPU) HostGDTR() DescriptorTableRegister {
	return DescriptorTableRegister{Base: addr.VA(v.mustRead(FieldHostGDTRBase)), Limit: 0xFFFF}
}

// SetHostGDTR writes the host GDTR base. The limit is fixed by hardware
// on VM exit and is not stored in the VMCS.
func (v *VCPU) SetHostGDTR(base addr.VA) { v.mustWrite(FieldHostGDTRBase, uint64(base)) }

// HostIDTR returns the host interrupt descriptor table register, with
// the same fixed 0xFFFF limit convention as HostGDTR.
func (v *VCPU) HostIDTR() DescriptorTableRegister {
	return DescriptorTableRegister{Base: addr.VA(v.mustRead(FieldHostIDTRBase)), Limit: 0xFFFF}
}

// SetHostIDTR writes the host IDTR base.
func (v *VCPU) SetHostIDTR(base addr.VA) { v.mustWrite(FieldHostIDTRBase, uint64(base)) }

// hostSelectorField returns the VMCS field holding a given host segment
// selector. The host selector fields ES, CS, SS, DS, FS, GS and TR form
// one stride-2 run (0x0C00-0x0C0C), but VMX has no host LDTR selector,
// so TR does not sit at the seg index's stride-2 offset; TR is reached
// through HostTRSelector instead.
func hostSelectorField(s seg) Field {
	switch s {
	case SegES:
		return FieldHostESSelector
	case SegCS:
		return FieldHostCSSelector
	case SegSS:
		return FieldHostSSSelector
	case SegDS:
		return FieldHostDSSelector
	case SegFS:
		return FieldHostFSSelector
	case SegGS:
		return FieldHostGSSelector
	default:
		assert(false, "host segment selector requested for non-host segment %d", s)
		return 0
	}
}

// HostSegmentSelector returns the raw selector loaded for host segment s
// (one of ES, CS, SS, DS, FS, GS — TR is addressed separately through
// HostTRSelector).
func (v *VCPU) HostSegmentSelector(s seg) Selector {
	return Selector(v.mustRead(hostSelectorField(s)))
}

// SetHostSegmentSelector writes sel's table index, masked the same way
// SetHostTRSelector masks it: host segment selectors are always
// RPL/TI-0.
func (v *VCPU) SetHostSegmentSelector(s seg, sel Selector) {
	v.mustWrite(hostSelectorField(s), uint64(sel.Index())*8)
}
