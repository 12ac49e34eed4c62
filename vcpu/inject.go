package vcpu

import "sync/atomic"

// vectors whose error code must be written verbatim from the event on
// injection (hvpp/vcpu.inl: invalid-TSS, segment-not-present,
// stack-segment-fault, #GP, #PF all carry a hardware-supplied error
// code).
var errorCodeVectors = map[uint8]bool{
	ExceptionInvalidTSS:        true,
	ExceptionSegmentNotPresent: true,
	ExceptionStackSegmentFault: true,
	ExceptionGeneralProtection: true,
	ExceptionPageFault:         true,
}

// vectors whose error code is architecturally always zero (#DF, #AC);
// hvpp still writes it, after asserting it actually is zero.
var zeroErrorCodeVectors = map[uint8]bool{
	ExceptionDoubleFault:    true,
	ExceptionAlignmentCheck: true,
}

// softwareEventTypes are the interruption types whose entry carries an
// instruction-length charge against guest RIP (hvpp/vcpu.inl,
// interrupt_inject_force).
var softwareEventTypes = map[InterruptType]bool{
	InterruptSoftware:                     true,
	InterruptPrivilegedSoftwareException: true,
	InterruptSoftwareException:           true,
}

// interruptible reports whether the guest can accept an event injected
// on the next VM entry: no interruptibility-state blocking bits set, and
// RFLAGS.IF enabled.
func (v *VCPU) interruptible() bool {
	return v.GuestInterruptibilityState() == 0 && v.GuestRFLAGS()&(1<<9) != 0
}

// Inject is the injection engine's public entry point (spec.md §4.4.2).
// If the guest is currently interruptible, event is written to the VMCS
// immediately and Inject returns true. Otherwise event is queued — at
// the front if first is true, at the back otherwise — interrupt-window
// exiting is turned on so the host is notified the instant the guest
// becomes interruptible, and Inject returns false.
func (v *VCPU) Inject(event PendingInterrupt, first bool) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.interruptible() {
		v.injectForceLocked(event)
		atomic.AddUint64(&injectImmediateCount, 1)
		return true
	}

	if v.pendingCount >= queueSize {
		atomic.AddUint64(&queueOverflowCount, 1)
		assert(false, "pending-interrupt queue overflow")
	}
	if first {
		v.enqueueFrontLocked(event)
	} else {
		v.enqueueBackLocked(event)
	}

	if err := v.enableInterruptWindowExitingLocked(); err != nil {
		if v.logger != nil {
			v.logger.Printf("vcpu: failed to enable interrupt-window exiting: %v", err)
		}
	}
	atomic.AddUint64(&injectDeferredCount, 1)
	return false
}

func (v *VCPU) enqueueFrontLocked(event PendingInterrupt) {
	if v.pendingHead == 0 {
		v.pendingHead = queueSize - 1
	} else {
		v.pendingHead--
	}
	v.pending[v.pendingHead] = event
	v.pendingCount++
}

func (v *VCPU) enqueueBackLocked(event PendingInterrupt) {
	slot := (v.pendingHead + v.pendingCount) % queueSize
	v.pending[slot] = event
	v.pendingCount++
}

func (v *VCPU) enableInterruptWindowExitingLocked() error {
	return v.SetProcessorBasedControls(v.ProcessorBasedControls() | ProcInterruptWindowExiting)
}

// InjectPending dequeues and forcibly injects the head of the
// pending-interrupt queue. Called from the interrupt-window-exit
// handler; the caller must have already confirmed InterruptIsPending.
func (v *VCPU) InjectPending() {
	v.mu.Lock()
	defer v.mu.Unlock()

	assert(v.pendingCount > 0, "InjectPending called with an empty queue")

	event := v.pending[v.pendingHead]
	v.pendingHead++
	v.pendingCount--
	if v.pendingCount == 0 || v.pendingHead == queueSize {
		v.pendingHead = 0
	}

	v.injectForceLocked(event)
	atomic.AddUint64(&injectPendingCount, 1)
}

// InterruptIsPending reports whether the pending-interrupt queue holds
// at least one event awaiting delivery.
func (v *VCPU) InterruptIsPending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pendingCount > 0
}

// InjectForce unconditionally writes event to the VMCS entry fields,
// bypassing interruptibility checks and the pending queue entirely.
// This is the primitive both Inject and InjectPending build on; exposed
// directly for callers (e.g. IDT-vectoring reflection) that have
// already established the guest can accept the event right now.
func (v *VCPU) InjectForce(event PendingInterrupt) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.injectForceLocked(event)
	atomic.AddUint64(&injectImmediateCount, 1)
}

func (v *VCPU) injectForceLocked(event PendingInterrupt) {
	v.mustWrite(FieldVMEntryIntrInfoField, uint64(event.Info.Raw()))

	if event.Info.Valid && event.Info.Type == InterruptHardwareException {
		vector := event.Info.Vector
		switch {
		case errorCodeVectors[vector]:
			assert(event.Info.ErrorCodeValid, "vector %d requires a valid error code", vector)
			v.mustWrite(FieldVMEntryExceptionErrorCode, uint64(event.ErrorCode))
		case zeroErrorCodeVectors[vector]:
			assert(event.Info.ErrorCodeValid, "vector %d requires a valid error code", vector)
			assert(event.ErrorCode == 0, "vector %d error code must be zero, got %#x", vector, event.ErrorCode)
			v.mustWrite(FieldVMEntryExceptionErrorCode, 0)
		}
	}

	if event.Info.Valid && softwareEventTypes[event.Info.Type] {
		adjust := event.RIPAdjust
		length := adjust.value
		if !adjust.explicit {
			length = v.ExitInstructionLength()
		}
		if length > 0 {
			v.mustWrite(FieldVMEntryInstructionLen, uint64(length))
		}
	}
}

// IDTVectoringInfo returns the event (if any) that was being delivered
// when the current VM exit occurred, bundled with its error code and
// the exit instruction length as its RIPAdjust — ready to hand straight
// back to Inject for re-delivery (spec.md §4.4.3).
func (v *VCPU) IDTVectoringInfo() PendingInterrupt {
	info := DecodeInterruptionInfo(uint32(v.mustRead(FieldIDTVectoringInfoField)))

	var errorCode uint32
	if info.ErrorCodeValid {
		errorCode = uint32(v.mustRead(FieldIDTVectoringErrorCode))
	}

	return PendingInterrupt{
		Info:      info,
		ErrorCode: errorCode,
		RIPAdjust: RIPAdjustFromExitLength(),
	}
}
