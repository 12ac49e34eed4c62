package vcpu

import "sync/atomic"

// controlMSR names one of the capability MSRs used to compute the
// fixed-0/fixed-1 masks for a control field (Intel SDM Vol. 3C, Appendix
// A). The "true" controls MSRs are preferred when the IA32_VMX_BASIC
// MSR's bit 55 reports they exist; the reference Host implementations
// in this repo always report the true variants.
type controlMSR uint32

const (
	msrPinBasedCtls  controlMSR = 0x48D // IA32_VMX_TRUE_PINBASED_CTLS
	msrProcBasedCtls controlMSR = 0x48E // IA32_VMX_TRUE_PROCBASED_CTLS
	msrProcBasedCtls2 controlMSR = 0x48B // IA32_VMX_PROCBASED_CTLS2 (no "true" variant)
	msrExitCtls      controlMSR = 0x48F // IA32_VMX_TRUE_EXIT_CTLS
	msrEntryCtls     controlMSR = 0x490 // IA32_VMX_TRUE_ENTRY_CTLS
)

// adjust applies the fixed-0/fixed-1 masks read from msr to requested,
// implementing spec.md §4.4's "adjust" step: reserved bits that must be
// 1 are forced on, reserved bits that must be 0 are forced off.
//
//	written = (requested | fixed0_mask) & fixed1_mask
func adjust(host Host, msr controlMSR, requested uint32) (uint32, error) {
	fixed0, fixed1, err := host.ReadCapabilityMSR(uint32(msr))
	if err != nil {
		return 0, err
	}
	written := (uint64(requested) | fixed0) & fixed1
	atomic.AddUint64(&controlAdjustedCount, 1)
	return uint32(written), nil
}
