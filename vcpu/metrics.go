package vcpu

import "sync/atomic"

// Performance counters for monitoring vCPU core operations, in the same
// spirit as the teacher's package-level atomic counters (metrics.go):
// cheap enough to leave enabled in production, useful for spotting a
// runaway injection queue or an unexpectedly hot VMCS write path.
var (
	vcpuCreateCount      uint64
	vcpuCloseCount       uint64
	vmReadCount          uint64
	vmWriteCount         uint64
	controlAdjustedCount uint64
	injectImmediateCount uint64
	injectDeferredCount  uint64
	injectPendingCount   uint64
	queueOverflowCount   uint64
)

// Metrics is a point-in-time snapshot of the counters below.
type Metrics struct {
	VCPUsCreated      uint64 `json:"vcpus_created"`
	VCPUsClosed       uint64 `json:"vcpus_closed"`
	VMReads           uint64 `json:"vm_reads"`
	VMWrites          uint64 `json:"vm_writes"`
	ControlsAdjusted  uint64 `json:"controls_adjusted"`
	ImmediateInjects  uint64 `json:"immediate_injects"`
	DeferredInjects   uint64 `json:"deferred_injects"`
	PendingInjects    uint64 `json:"pending_injects"`
	QueueOverflows    uint64 `json:"queue_overflows"`
}

// GetMetrics returns the current global counters.
func GetMetrics() Metrics {
	return Metrics{
		VCPUsCreated:     atomic.LoadUint64(&vcpuCreateCount),
		VCPUsClosed:      atomic.LoadUint64(&vcpuCloseCount),
		VMReads:          atomic.LoadUint64(&vmReadCount),
		VMWrites:         atomic.LoadUint64(&vmWriteCount),
		ControlsAdjusted: atomic.LoadUint64(&controlAdjustedCount),
		ImmediateInjects: atomic.LoadUint64(&injectImmediateCount),
		DeferredInjects:  atomic.LoadUint64(&injectDeferredCount),
		PendingInjects:   atomic.LoadUint64(&injectPendingCount),
		QueueOverflows:   atomic.LoadUint64(&queueOverflowCount),
	}
}

// ResetMetrics clears every counter. Intended for tests.
func ResetMetrics() {
	atomic.StoreUint64(&vcpuCreateCount, 0)
	atomic.StoreUint64(&vcpuCloseCount, 0)
	atomic.StoreUint64(&vmReadCount, 0)
	atomic.StoreUint64(&vmWriteCount, 0)
	atomic.StoreUint64(&controlAdjustedCount, 0)
	atomic.StoreUint64(&injectImmediateCount, 0)
	atomic.StoreUint64(&injectDeferredCount, 0)
	atomic.StoreUint64(&injectPendingCount, 0)
	atomic.StoreUint64(&queueOverflowCount, 0)
}
