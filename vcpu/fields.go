package vcpu

// Field is a raw VMCS field encoding, as defined by Intel SDM Vol. 3C
// Appendix B. The core never attempts to decode the width/type bits
// baked into the encoding itself — it treats Field as an opaque key
// into the current logical CPU's loaded VMCS and leaves VMREAD/VMWRITE
// to the Host.
type Field uint32

// Control fields (Intel SDM Vol. 3C, Appendix B.1 and B.3).
const (
	FieldVPID                     Field = 0x00000000
	FieldPostedIntrNotifVector    Field = 0x00000002
	FieldEPTPointerIndex          Field = 0x00000004
	FieldIOBitmapA                Field = 0x00002000
	FieldIOBitmapB                Field = 0x00002002
	FieldMSRBitmap                Field = 0x00002004
	FieldVMExitMSRStoreAddr       Field = 0x00002006
	FieldVMExitMSRLoadAddr        Field = 0x00002008
	FieldVMEntryMSRLoadAddr       Field = 0x0000200A
	FieldEPTPointer                Field = 0x0000201A
	FieldVMCSLinkPointer           Field = 0x00002800
	FieldPinBasedVMExecControl     Field = 0x00004000
	FieldCPUBasedVMExecControl     Field = 0x00004002
	FieldExceptionBitmap           Field = 0x00004004
	FieldPageFaultErrorCodeMask    Field = 0x00004006
	FieldPageFaultErrorCodeMatch   Field = 0x00004008
	FieldCR3TargetCount            Field = 0x0000400A
	FieldVMExitControls            Field = 0x0000400C
	FieldVMEntryControls           Field = 0x00004012
	FieldVMEntryIntrInfoField      Field = 0x00004016
	FieldVMEntryExceptionErrorCode Field = 0x00004018
	FieldVMEntryInstructionLen     Field = 0x0000401A
	FieldSecondaryVMExecControl    Field = 0x0000401E
	FieldCR0GuestHostMask          Field = 0x00006000
	FieldCR4GuestHostMask          Field = 0x00006002
	FieldCR0ReadShadow             Field = 0x00006004
	FieldCR4ReadShadow             Field = 0x00006006
)

// Guest-state fields.
const (
	fieldGuestESSelector Field = 0x00000800 // base of the eight stride-2 segment selector fields
	fieldGuestESLimit    Field = 0x00004800 // base of the eight stride-2 segment limit fields
	fieldGuestESAR       Field = 0x00004814 // base of the eight stride-2 access-rights fields
	fieldGuestESBase     Field = 0x00006806 // base of the eight stride-2 segment base fields

	FieldGuestInterruptibilityState Field = 0x00004824
	FieldGuestActivityState         Field = 0x00004826

	FieldGuestCR0             Field = 0x00006800
	FieldGuestCR3             Field = 0x00006802
	FieldGuestCR4             Field = 0x00006804
	FieldGuestGDTRBase        Field = 0x00006816
	FieldGuestIDTRBase        Field = 0x00006818
	FieldGuestDR7             Field = 0x0000681A
	FieldGuestRSP             Field = 0x0000681C
	FieldGuestRIP             Field = 0x0000681E
	FieldGuestRFLAGS          Field = 0x00006820
	FieldGuestGDTRLimit       Field = 0x00004810
	FieldGuestIDTRLimit       Field = 0x00004812
	FieldGuestIA32DebugCtl    Field = 0x00002802
	FieldGuestLinearAddress   Field = 0x0000640A
	FieldGuestPhysicalAddress Field = 0x00002400
)

// Host-state fields.
const (
	FieldHostESSelector Field = 0x00000C00
	FieldHostCSSelector Field = 0x00000C02
	FieldHostSSSelector Field = 0x00000C04
	FieldHostDSSelector Field = 0x00000C06
	FieldHostFSSelector Field = 0x00000C08
	FieldHostGSSelector Field = 0x00000C0A
	FieldHostTRSelector Field = 0x00000C0C

	FieldHostCR0      Field = 0x00006C00
	FieldHostCR3      Field = 0x00006C02
	FieldHostCR4      Field = 0x00006C04
	FieldHostFSBase   Field = 0x00006C06
	FieldHostGSBase   Field = 0x00006C08
	FieldHostTRBase   Field = 0x00006C0A
	FieldHostGDTRBase Field = 0x00006C0C
	FieldHostIDTRBase Field = 0x00006C0E
	FieldHostRSP      Field = 0x00006C14
	FieldHostRIP      Field = 0x00006C16
)

// Exit-information fields.
const (
	FieldVMExitReason               Field = 0x00004402
	FieldVMExitIntrInfo             Field = 0x00004404
	FieldVMExitIntrErrorCode        Field = 0x00004406
	FieldIDTVectoringInfoField      Field = 0x00004408
	FieldIDTVectoringErrorCode      Field = 0x0000440A
	FieldVMExitInstructionLen       Field = 0x0000440C
	FieldVMXInstructionInfo        Field = 0x0000440E
	FieldExitQualification          Field = 0x00006400
)

// seg is the zero-based index of a guest segment register within the
// eight stride-2 segment field groups (spec.md §4.4, "Segment-group
// helpers").
type seg int

const (
	SegES seg = iota
	SegCS
	SegSS
	SegDS
	SegFS
	SegGS
	SegLDTR
	SegTR

	segMin = SegES
	segMax = SegTR
)
