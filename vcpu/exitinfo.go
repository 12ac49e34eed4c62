package vcpu

import "github.com/ironlatch/vtxcore/addr"

// ExitReason returns the basic exit reason and its associated bits
// (VM-entry failure, bit 31; enclave-mode bit; pending-MTF bit) for the
// most recent VM exit.
func (v *VCPU) ExitReason() ExitReason {
	return ExitReason(v.mustRead(FieldVMExitReason))
}

// ExitQualification returns the exit qualification, whose meaning is
// specific to the current exit reason.
func (v *VCPU) ExitQualification() uint64 {
	return v.mustRead(FieldExitQualification)
}

// ExitInstructionLength returns the length in bytes of the instruction
// that caused the current VM exit, when the exit reason defines one.
// This is what RIPAdjustFromExitLength ultimately resolves to.
func (v *VCPU) ExitInstructionLength() uint32 {
	return uint32(v.mustRead(FieldVMExitInstructionLen))
}

// ExitInstructionInfo returns the decoded VM-exit instruction-information
// field, valid only for certain exit reasons (e.g. INVEPT, INVVPID,
// VMCLEAR, VMPTRLD).
func (v *VCPU) ExitInstructionInfo() InstructionInfo {
	return DecodeInstructionInfo(uint32(v.mustRead(FieldVMXInstructionInfo)))
}

// ExitInterruptionInfo returns the VM-exit interruption-information
// field, describing the event (if any) that caused the current VM exit.
func (v *VCPU) ExitInterruptionInfo() InterruptionInfo {
	return DecodeInterruptionInfo(uint32(v.mustRead(FieldVMExitIntrInfo)))
}

// ExitInterruptionErrorCode returns the VM-exit interruption error code,
// valid only when ExitInterruptionInfo().ErrorCodeValid is true.
func (v *VCPU) ExitInterruptionErrorCode() uint32 {
	return uint32(v.mustRead(FieldVMExitIntrErrorCode))
}

// ExitInstructionGuestVA decodes the effective guest linear address of
// the memory operand named by ExitInstructionInfo, following hvpp's
// exit_instruction_info_guest_va(): segment base + base register +
// index register (unscaled — the instruction-information field's
// Scaling bits describe the operand's addressing form, they do not
// multiply into this sum) + the exit-qualification's displacement, all
// masked down to the operand's address size. regs supplies the current
// (cached) values of the base/index general-purpose registers.
func (v *VCPU) ExitInstructionGuestVA(regs *GuestContext) addr.VA {
	info := v.ExitInstructionInfo()
	qualification := v.ExitQualification()

	var linear uint64
	if !info.IsRegister {
		seg := v.GuestSegment(info.Segment)
		linear += uint64(seg.Base)
	}
	if !info.BaseRegInvalid {
		linear += regs.Get(GPR(info.BaseReg))
	}
	if !info.IndexRegInvalid {
		linear += regs.Get(GPR(info.IndexReg))
	}
	linear += qualification

	mask := sizeToMask[info.AddressSize]
	return addr.VA(linear & mask)
}
