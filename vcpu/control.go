package vcpu

// Pin-based VM-execution control bits (Intel SDM Vol. 3C §24.6.1).
const (
	PinExternalInterruptExiting uint32 = 1 << 0
	PinNMIExiting               uint32 = 1 << 3
	PinVirtualNMIs              uint32 = 1 << 5
)

// Primary processor-based VM-execution control bits (§24.6.2).
const (
	ProcInterruptWindowExiting  uint32 = 1 << 2
	ProcUnconditionalIOExiting  uint32 = 1 << 24
	ProcUseIOBitmaps            uint32 = 1 << 25
	ProcUseMSRBitmaps           uint32 = 1 << 28
	ProcActivateSecondaryCtls   uint32 = 1 << 31
)

// Secondary processor-based VM-execution control bits (§24.6.2).
const (
	ProcSecondaryEnableEPT  uint32 = 1 << 1
	ProcSecondaryEnableVPID uint32 = 1 << 5
)

// VM-exit/VM-entry control bits (§24.7, §24.8).
const (
	ExitHostAddressSpaceSize   uint32 = 1 << 9
	ExitAcknowledgeInterrupt   uint32 = 1 << 15
	EntryIA32eModeGuest        uint32 = 1 << 9
)

// PinBasedControls returns the pin-based VM-execution controls currently
// loaded in the VMCS.
func (v *VCPU) PinBasedControls() uint32 {
	return uint32(v.mustRead(FieldPinBasedVMExecControl))
}

// SetPinBasedControls adjusts requested against the IA32_VMX_TRUE_PINBASED_CTLS
// capability MSR and writes the result.
func (v *VCPU) SetPinBasedControls(requested uint32) error {
	adjusted, err := adjust(v.host, msrPinBasedCtls, requested)
	if err != nil {
		return err
	}
	return v.vmwrite(FieldPinBasedVMExecControl, uint64(adjusted))
}

// ProcessorBasedControls returns the primary processor-based
// VM-execution controls currently loaded in the VMCS.
func (v *VCPU) ProcessorBasedControls() uint32 {
	return uint32(v.mustRead(FieldCPUBasedVMExecControl))
}

// SetProcessorBasedControls adjusts requested against
// IA32_VMX_TRUE_PROCBASED_CTLS and writes the result.
func (v *VCPU) SetProcessorBasedControls(requested uint32) error {
	adjusted, err := adjust(v.host, msrProcBasedCtls, requested)
	if err != nil {
		return err
	}
	return v.vmwrite(FieldCPUBasedVMExecControl, uint64(adjusted))
}

// SecondaryProcessorBasedControls returns the secondary processor-based
// VM-execution controls currently loaded in the VMCS.
func (v *VCPU) SecondaryProcessorBasedControls() uint32 {
	return uint32(v.mustRead(FieldSecondaryVMExecControl))
}

// SetSecondaryProcessorBasedControls adjusts requested against
// IA32_VMX_PROCBASED_CTLS2, which — unlike the other four control
// fields — has no "true" MSR variant, and writes the result.
func (v *VCPU) SetSecondaryProcessorBasedControls(requested uint32) error {
	adjusted, err := adjust(v.host, msrProcBasedCtls2, requested)
	if err != nil {
		return err
	}
	return v.vmwrite(FieldSecondaryVMExecControl, uint64(adjusted))
}

// VMExitControls returns the VM-exit controls currently loaded in the
// VMCS.
func (v *VCPU) VMExitControls() uint32 {
	return uint32(v.mustRead(FieldVMExitControls))
}

// SetVMExitControls adjusts requested against IA32_VMX_TRUE_EXIT_CTLS
// and writes the result.
func (v *VCPU) SetVMExitControls(requested uint32) error {
	adjusted, err := adjust(v.host, msrExitCtls, requested)
	if err != nil {
		return err
	}
	return v.vmwrite(FieldVMExitControls, uint64(adjusted))
}

// VMEntryControls returns the VM-entry controls currently loaded in the
// VMCS.
func (v *VCPU) VMEntryControls() uint32 {
	return uint32(v.mustRead(FieldVMEntryControls))
}

// SetVMEntryControls adjusts requested against IA32_VMX_TRUE_ENTRY_CTLS
// and writes the result.
func (v *VCPU) SetVMEntryControls(requested uint32) error {
	adjusted, err := adjust(v.host, msrEntryCtls, requested)
	if err != nil {
		return err
	}
	return v.vmwrite(FieldVMEntryControls, uint64(adjusted))
}

// ExceptionBitmap returns the current exception bitmap: bit n set means
// exception vector n causes a VM exit.
func (v *VCPU) ExceptionBitmap() uint32 {
	return uint32(v.mustRead(FieldExceptionBitmap))
}

// SetExceptionBitmap writes the exception bitmap directly — it is not
// subject to fixed-bit adjustment.
func (v *VCPU) SetExceptionBitmap(bitmap uint32) error {
	return v.vmwrite(FieldExceptionBitmap, uint64(bitmap))
}

// VPID returns the Virtual Processor ID tagging this vCPU's TLB entries.
func (v *VCPU) VPID() uint16 {
	return uint16(v.mustRead(FieldVPID))
}

// SetVPID writes the Virtual Processor ID field. vpid must be nonzero
// when ProcSecondaryEnableVPID is set (VPID 0 is reserved for the host).
func (v *VCPU) SetVPID(vpid uint16) error {
	return v.vmwrite(FieldVPID, uint64(vpid))
}

// EPTPointer returns the extended-page-table pointer.
func (v *VCPU) EPTPointer() uint64 {
	return v.mustRead(FieldEPTPointer)
}

// SetEPTPointer writes the extended-page-table pointer.
func (v *VCPU) SetEPTPointer(eptp uint64) error {
	return v.vmwrite(FieldEPTPointer, eptp)
}

// VMCSLinkPointer returns the VMCS link pointer, used only by VMCS
// shadowing; a vCPU that doesn't shadow leaves this at its all-ones
// reset value.
func (v *VCPU) VMCSLinkPointer() uint64 {
	return v.mustRead(FieldVMCSLinkPointer)
}

// SetVMCSLinkPointer writes the VMCS link pointer directly.
func (v *VCPU) SetVMCSLinkPointer(val uint64) error {
	return v.vmwrite(FieldVMCSLinkPointer, val)
}

// CR0GuestHostMask returns the CR0 guest/host mask: bits set here cause
// the guest's CR0 writes to trap rather than retire, with the
// trapped-but-masked bits' guest-visible value coming from
// CR0ReadShadow instead of the real CR0.
func (v *VCPU) CR0GuestHostMask() uint64 {
	return v.mustRead(FieldCR0GuestHostMask)
}

// SetCR0GuestHostMask writes the CR0 guest/host mask directly.
func (v *VCPU) SetCR0GuestHostMask(mask uint64) error {
	return v.vmwrite(FieldCR0GuestHostMask, mask)
}

// CR4GuestHostMask returns the CR4 guest/host mask, the CR4 analogue of
// CR0GuestHostMask.
func (v *VCPU) CR4GuestHostMask() uint64 {
	return v.mustRead(FieldCR4GuestHostMask)
}

// SetCR4GuestHostMask writes the CR4 guest/host mask directly.
func (v *VCPU) SetCR4GuestHostMask(mask uint64) error {
	return v.vmwrite(FieldCR4GuestHostMask, mask)
}

// CR0ReadShadow returns the CR0 read shadow: the value the guest sees
// when it reads CR0 for the bits CR0GuestHostMask marks as trapped.
func (v *VCPU) CR0ReadShadow() uint64 {
	return v.mustRead(FieldCR0ReadShadow)
}

// SetCR0ReadShadow writes the CR0 read shadow directly.
func (v *VCPU) SetCR0ReadShadow(val uint64) error {
	return v.vmwrite(FieldCR0ReadShadow, val)
}

// CR4ReadShadow returns the CR4 read shadow, the CR4 analogue of
// CR0ReadShadow.
func (v *VCPU) CR4ReadShadow() uint64 {
	return v.mustRead(FieldCR4ReadShadow)
}

// SetCR4ReadShadow writes the CR4 read shadow directly.
func (v *VCPU) SetCR4ReadShadow(val uint64) error {
	return v.vmwrite(FieldCR4ReadShadow, val)
}

// PageFaultErrorCodeMask returns the page-fault error-code mask used
// together with PageFaultErrorCodeMatch to filter which #PF exits
// trap, when ExceptionBitmap's #PF bit is set.
func (v *VCPU) PageFaultErrorCodeMask() uint32 {
	return uint32(v.mustRead(FieldPageFaultErrorCodeMask))
}

// SetPageFaultErrorCodeMask writes the page-fault error-code mask
// directly.
func (v *VCPU) SetPageFaultErrorCodeMask(mask uint32) error {
	return v.vmwrite(FieldPageFaultErrorCodeMask, uint64(mask))
}

// PageFaultErrorCodeMatch returns the page-fault error-code match
// value.
func (v *VCPU) PageFaultErrorCodeMatch() uint32 {
	return uint32(v.mustRead(FieldPageFaultErrorCodeMatch))
}

// SetPageFaultErrorCodeMatch writes the page-fault error-code match
// value directly.
func (v *VCPU) SetPageFaultErrorCodeMatch(match uint32) error {
	return v.vmwrite(FieldPageFaultErrorCodeMatch, uint64(match))
}
