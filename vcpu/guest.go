package vcpu

import "github.com/ironlatch/vtxcore/addr"

// Guest interruptibility-state bits (Intel SDM Vol. 3C, Table 24-3).
const (
	GuestBlockingBySTI   uint32 = 1 << 0
	GuestBlockingByMovSS uint32 = 1 << 1
	GuestBlockingBySMI   uint32 = 1 << 2
	GuestBlockingByNMI   uint32 = 1 << 3
)

// GuestActivityState values (Table 24-4).
const (
	ActivityActive uint32 = iota
	ActivityHLT
	ActivityShutdown
	ActivityWaitForSIPI
)

// GuestCR0 returns the guest's real CR0 value. Bits masked by
// CR0GuestHostMask are not what the guest sees on a CR0 read — that
// value is CR0ReadShadow instead.
func (v *VCPU) GuestCR0() uint64 { return v.mustRead(FieldGuestCR0) }

// SetGuestCR0 writes the guest's CR0.
func (v *VCPU) SetGuestCR0(val uint64) { v.mustWrite(FieldGuestCR0, val) }

// GuestCR3 returns the guest's CR3 (page-table root).
func (v *VCPU) GuestCR3() addr.PA { return addr.PA(v.mustRead(FieldGuestCR3)) }

// SetGuestCR3 writes the guest's CR3.
func (v *VCPU) SetGuestCR3(val addr.PA) { v.mustWrite(FieldGuestCR3, uint64(val)) }

// GuestCR4 returns the guest's CR4.
func (v *VCPU) GuestCR4() uint64 { return v.mustRead(FieldGuestCR4) }

// SetGuestCR4 writes the guest's CR4.
func (v *VCPU) SetGuestCR4(val uint64) { v.mustWrite(FieldGuestCR4, val) }

// GuestRSP returns the guest's stack pointer.
func (v *VCPU) GuestRSP() addr.VA { return addr.VA(v.mustRead(FieldGuestRSP)) }

// SetGuestRSP writes the guest's stack pointer.
func (v *VCPU) SetGuestRSP(val addr.VA) { v.mustWrite(FieldGuestRSP, uint64(val)) }

// GuestRIP returns the guest's instruction pointer.
func (v *VCPU) GuestRIP() addr.VA { return addr.VA(v.mustRead(FieldGuestRIP)) }

// SetGuestRIP writes the guest's instruction pointer.
func (v *VCPU) SetGuestRIP(val addr.VA) { v.mustWrite(FieldGuestRIP, uint64(val)) }

// GuestRFLAGS returns the guest's RFLAGS.
func (v *VCPU) GuestRFLAGS() uint64 { return v.mustRead(FieldGuestRFLAGS) }

// SetGuestRFLAGS writes the guest's RFLAGS.
func (v *VCPU) SetGuestRFLAGS(val uint64) { v.mustWrite(FieldGuestRFLAGS, val) }

// GuestDR7 returns the guest's DR7 debug-control register.
func (v *VCPU) GuestDR7() uint64 { return v.mustRead(FieldGuestDR7) }

// SetGuestDR7 writes the guest's DR7.
func (v *VCPU) SetGuestDR7(val uint64) { v.mustWrite(FieldGuestDR7, val) }

// GuestInterruptibilityState returns the interruptibility-state bits
// (GuestBlockingBySTI and friends) the injection engine consults before
// attempting immediate injection.
func (v *VCPU) GuestInterruptibilityState() uint32 {
	return uint32(v.mustRead(FieldGuestInterruptibilityState))
}

// SetGuestInterruptibilityState writes the interruptibility-state bits.
func (v *VCPU) SetGuestInterruptibilityState(bits uint32) {
	v.mustWrite(FieldGuestInterruptibilityState, uint64(bits))
}

// GuestActivityState returns the guest's activity state (active,
// halted, shutdown, or waiting for SIPI).
func (v *VCPU) GuestActivityState() uint32 {
	return uint32(v.mustRead(FieldGuestActivityState))
}

// SetGuestActivityState writes the guest's activity state.
func (v *VCPU) SetGuestActivityState(state uint32) {
	v.mustWrite(FieldGuestActivityState, uint64(state))
}

// GuestGDTR returns the guest's global descriptor table register.
func (v *VCPU) GuestGDTR() DescriptorTableRegister {
	return DescriptorTableRegister{
		Base:  addr.VA(v.mustRead(FieldGuestGDTRBase)),
		Limit: uint16(v.mustRead(FieldGuestGDTRLimit)),
	}
}

// SetGuestGDTR writes the guest's global descriptor table register.
func (v *VCPU) SetGuestGDTR(r DescriptorTableRegister) {
	v.mustWrite(FieldGuestGDTRBase, uint64(r.Base))
	v.mustWrite(FieldGuestGDTRLimit, uint64(r.Limit))
}

// GuestIDTR returns the guest's interrupt descriptor table register.
func (v *VCPU) GuestIDTR() DescriptorTableRegister {
	return DescriptorTableRegister{
		Base:  addr.VA(v.mustRead(FieldGuestIDTRBase)),
		Limit: uint16(v.mustRead(FieldGuestIDTRLimit)),
	}
}

// SetGuestIDTR writes the guest's interrupt descriptor table register.
func (v *VCPU) SetGuestIDTR(r DescriptorTableRegister) {
	v.mustWrite(FieldGuestIDTRBase, uint64(r.Base))
	v.mustWrite(FieldGuestIDTRLimit, uint64(r.Limit))
}

// GuestIA32DebugCtl returns the guest's IA32_DEBUGCTL MSR shadow.
func (v *VCPU) GuestIA32DebugCtl() uint64 { return v.mustRead(FieldGuestIA32DebugCtl) }

// SetGuestIA32DebugCtl writes the guest's IA32_DEBUGCTL MSR shadow.
func (v *VCPU) SetGuestIA32DebugCtl(val uint64) { v.mustWrite(FieldGuestIA32DebugCtl, val) }

// GuestLinearAddress returns the guest-linear-address exit-qualification
// companion field, valid only for certain exit reasons (e.g. EPT
// violations, page faults).
func (v *VCPU) GuestLinearAddress() addr.VA { return addr.VA(v.mustRead(FieldGuestLinearAddress)) }

// GuestPhysicalAddress returns the guest-physical address associated
// with the current VM exit, valid only for EPT-violation and similar
// exits.
func (v *VCPU) GuestPhysicalAddress() addr.PA { return addr.PA(v.mustRead(FieldGuestPhysicalAddress)) }
