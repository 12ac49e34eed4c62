package vcpu

import "github.com/ironlatch/vtxcore/addr"

// InterruptType is the 3-bit "interruption type" subfield of a VM-entry
// or VM-exit interruption-information field (Intel SDM Vol. 3C,
// 24.8.3 / 24.9.2).
type InterruptType uint8

const (
	InterruptExternal                    InterruptType = 0
	InterruptNMI                         InterruptType = 2
	InterruptHardwareException           InterruptType = 3
	InterruptSoftware                    InterruptType = 4
	InterruptPrivilegedSoftwareException InterruptType = 5
	InterruptSoftwareException           InterruptType = 6
	InterruptOtherEvent                  InterruptType = 7
)

// Exception vectors referenced directly by the injection engine
// (spec.md §4.4.2).
const (
	ExceptionInvalidTSS         uint8 = 10
	ExceptionSegmentNotPresent  uint8 = 11
	ExceptionStackSegmentFault  uint8 = 12
	ExceptionGeneralProtection  uint8 = 13
	ExceptionPageFault          uint8 = 14
	ExceptionDoubleFault        uint8 = 8
	ExceptionAlignmentCheck     uint8 = 17
)

// InterruptionInfo is the decoded form of a 32-bit VM-entry/VM-exit
// interruption-information field.
type InterruptionInfo struct {
	Valid          bool
	Vector         uint8
	Type           InterruptType
	ErrorCodeValid bool
}

// Raw encodes info back into the doubleword VMREAD/VMWRITE expect.
func (info InterruptionInfo) Raw() uint32 {
	var v uint32
	v |= uint32(info.Vector)
	v |= uint32(info.Type) << 8
	if info.ErrorCodeValid {
		v |= 1 << 11
	}
	if info.Valid {
		v |= 1 << 31
	}
	return v
}

// DecodeInterruptionInfo decodes a raw interruption-information
// doubleword read from the VMCS.
func DecodeInterruptionInfo(raw uint32) InterruptionInfo {
	return InterruptionInfo{
		Valid:          raw&(1<<31) != 0,
		Vector:         uint8(raw & 0xff),
		Type:           InterruptType((raw >> 8) & 0x7),
		ErrorCodeValid: raw&(1<<11) != 0,
	}
}

// RIPAdjust resolves how much to advance the guest's pushed RIP for a
// software-class injected event. This is the sum-typed replacement for
// the original C++ implementation's "-1 means use the CPU-reported exit
// instruction length" sentinel (spec.md §9, Open Question).
type RIPAdjust struct {
	explicit bool
	value    uint32
}

// RIPAdjustExplicit charges exactly n bytes to the guest RIP.
func RIPAdjustExplicit(n uint32) RIPAdjust { return RIPAdjust{explicit: true, value: n} }

// RIPAdjustFromExitLength defers to whatever the CPU reported as the
// length of the instruction that caused the current VM exit.
func RIPAdjustFromExitLength() RIPAdjust { return RIPAdjust{} }

// PendingInterrupt is one entry of the pending-interrupt ring buffer
// (spec.md §3, "Pending interrupt record").
type PendingInterrupt struct {
	Info      InterruptionInfo
	ErrorCode uint32
	RIPAdjust RIPAdjust
}

// Valid reports whether p actually describes a deliverable event.
func (p PendingInterrupt) Valid() bool { return p.Info.Valid }

// Selector is a segment selector as stored in the VMCS: index, TI, and
// RPL packed the way the hardware selector register is (Intel SDM Vol.
// 3A, 3.4.2).
type Selector uint16

// Index returns the selector's descriptor-table index (bits 3-15).
func (s Selector) Index() uint16 { return uint16(s) >> 3 }

// SelectorFromIndex builds a GDT selector (TI=0, RPL=0) from a raw
// index, i.e. index*8.
func SelectorFromIndex(index uint16) Selector { return Selector(index * 8) }

// Segment bundles the four VMCS fields that describe one segment
// register's full hidden state.
type Segment struct {
	Base     addr.VA
	Limit    uint32
	Access   uint32
	Selector Selector
}

// DescriptorTableRegister is the base/limit pair stored by GDTR/IDTR.
type DescriptorTableRegister struct {
	Base  addr.VA
	Limit uint16
}

// ExitReason is the raw VM-exit reason field. The low 16 bits are the
// basic exit reason (Intel SDM Vol. 3C, Appendix C); the high bits carry
// VM-entry-failure and other qualifier flags this core does not
// interpret, leaving that to the exit-handler dispatch table.
type ExitReason uint32

// Basic returns just the basic exit-reason number, masking off the
// qualifier bits.
func (r ExitReason) Basic() uint16 { return uint16(r) }

// InstructionInfo is the decoded VM-exit instruction-information field
// used by exit handlers that need the operand of a memory-referencing
// instruction that caused the exit (e.g. INVEPT, VMCLEAR, RDRAND).
type InstructionInfo struct {
	Scaling           uint8
	Reg1              uint8
	AddressSize       uint8
	IsRegister        bool
	Segment           seg
	IndexReg          uint8
	IndexRegInvalid   bool
	BaseReg           uint8
	BaseRegInvalid    bool
	Reg2              uint8
}

// sizeToMask maps the 3-bit address-size field to the width mask applied
// to a decoded linear address (16/32/64-bit operand addressing).
var sizeToMask = [8]uint64{
	0: 0xFFFF,
	1: 0xFFFFFFFF,
	2: 0xFFFFFFFFFFFFFFFF,
}

// DecodeInstructionInfo decodes the VM-exit instruction-information
// field's common (memory-operand) layout (Intel SDM Vol. 3C, 24.9.4).
func DecodeInstructionInfo(raw uint32) InstructionInfo {
	return InstructionInfo{
		Scaling:         uint8(raw & 0x3),
		Reg1:            uint8((raw >> 3) & 0xf),
		AddressSize:     uint8((raw >> 7) & 0x7),
		IsRegister:      raw&(1<<10) != 0,
		Segment:         seg((raw >> 15) & 0x7),
		IndexReg:        uint8((raw >> 18) & 0xf),
		IndexRegInvalid: raw&(1<<22) != 0,
		BaseReg:         uint8((raw >> 23) & 0xf),
		BaseRegInvalid:  raw&(1<<27) != 0,
		Reg2:            uint8((raw >> 28) & 0xf),
	}
}
