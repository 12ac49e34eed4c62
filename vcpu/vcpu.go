// Package vcpu implements the per-processor vCPU state machine: the
// VMCS-backed control surface, the pending-interrupt injection engine,
// and the typed accessors exit-handler collaborators use to read exit
// information and drive VM entry. The VMCS region itself is hardware-
// managed; a VCPU only ever holds its physical address and reads/writes
// it through a Host.
package vcpu

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ironlatch/vtxcore/pmap"
)

// queueSize is the pending-interrupt ring buffer's fixed capacity. It is
// a power of two, per spec.md §9, so wraparound could use "&" rather
// than "%" — this implementation still uses "%" for readability since
// Go does not optimize that substitution away automatically and the hot
// path (inject/inject_pending) is not called often enough to matter.
const queueSize = 16

// Logger is a minimal, nil-safe logging hook shared with package pmap's
// Logger; any *log.Logger satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

// VCPU is the per-logical-processor virtual CPU state machine described
// by spec.md §3. It is pinned to one logical CPU for its entire
// lifetime (spec.md §5) and is not copyable — always hold it through a
// pointer.
type VCPU struct {
	host   Host
	logger Logger

	mapping *pmap.Mapping

	msrBitmap  [4096]byte
	ioBitmapA  [4096]byte
	ioBitmapB  [4096]byte

	context GuestContext

	mu           sync.Mutex
	closed       bool
	pending      [queueSize]PendingInterrupt
	pendingHead  int
	pendingCount int
}

// New constructs a vCPU bound to host: it allocates the transient
// mapping window and points the VMCS's MSR- and I/O-bitmap fields at the
// vCPU's own owned bitmaps, per spec.md §3's "vCPU" invariants. The
// caller must already be pinned to the owning logical CPU and must have
// loaded (VMPTRLD'd) the VMCS this vCPU will manage.
func New(host Host, logger Logger) (*VCPU, error) {
	m, err := pmap.New(host, loggerAdapter{logger})
	if err != nil {
		return nil, fmt.Errorf("vcpu: allocate transient mapping: %w", err)
	}

	v := &VCPU{host: host, logger: logger, mapping: m}

	if err := v.writeBitmapAddresses(); err != nil {
		_ = m.Close()
		return nil, err
	}

	runtime.SetFinalizer(v, (*VCPU).finalize)
	atomic.AddUint64(&vcpuCreateCount, 1)
	return v, nil
}

func (v *VCPU) writeBitmapAddresses() error {
	msrPA := v.host.PAFromVA(bitmapVA(&v.msrBitmap))
	ioAPA := v.host.PAFromVA(bitmapVA(&v.ioBitmapA))
	ioBPA := v.host.PAFromVA(bitmapVA(&v.ioBitmapB))

	if err := v.vmwrite(FieldMSRBitmap, uint64(msrPA)); err != nil {
		return err
	}
	if err := v.vmwrite(FieldIOBitmapA, uint64(ioAPA)); err != nil {
		return err
	}
	if err := v.vmwrite(FieldIOBitmapB, uint64(ioBPA)); err != nil {
		return err
	}
	return nil
}

// Mapping returns the vCPU's owned transient page-mapping window, used
// by exit-handler collaborators to copy guest physical memory in and
// out (spec.md §4.2).
func (v *VCPU) Mapping() *pmap.Mapping { return v.mapping }

// Context returns the vCPU's cached guest general-purpose register
// context.
func (v *VCPU) Context() *GuestContext { return &v.context }

// Close releases the vCPU's transient mapping window. It is idempotent.
func (v *VCPU) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	runtime.SetFinalizer(v, nil)
	atomic.AddUint64(&vcpuCloseCount, 1)
	return v.mapping.Close()
}

func (v *VCPU) finalize() {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return
	}
	if v.logger != nil {
		v.logger.Printf("vcpu: vCPU leaked, closing from finalizer")
	}
	_ = v.Close()
}

// vmread/vmwrite centralize the metrics/error-wrapping boilerplate every
// typed accessor in this package needs.
func (v *VCPU) vmread(field Field) (uint64, error) {
	val, err := v.host.VMRead(field)
	if err != nil {
		return 0, &VMXError{Op: "vmread", Field: field, Err: err}
	}
	atomic.AddUint64(&vmReadCount, 1)
	return val, nil
}

func (v *VCPU) vmwrite(field Field, value uint64) error {
	if err := v.host.VMWrite(field, value); err != nil {
		return &VMXError{Op: "vmwrite", Field: field, Err: err}
	}
	atomic.AddUint64(&vmWriteCount, 1)
	return nil
}

// mustRead/mustWrite are used by accessors whose original C++ signature
// is noexcept (spec.md treats VMREAD/VMWRITE failure as a "hardware
// error" that should propagate, but several thin getters — e.g. the
// guest-state getters the injection engine's hot path reads — mirror
// the teacher's own pattern of not threading an error through every
// single-field helper). Both panic via assert on failure, which is
// appropriate here: a VMREAD/VMWRITE failing on a CPU that just
// received a VM-exit indicates VMCS corruption, not a recoverable
// condition.
func (v *VCPU) mustRead(field Field) uint64 {
	val, err := v.vmread(field)
	assert(err == nil, "vmread(%#x) failed: %v", uint32(field), err)
	return val
}

func (v *VCPU) mustWrite(field Field, value uint64) {
	err := v.vmwrite(field, value)
	assert(err == nil, "vmwrite(%#x, %#x) failed: %v", uint32(field), value, err)
}

type loggerAdapter struct{ l Logger }

func (a loggerAdapter) Printf(format string, args ...any) {
	if a.l != nil {
		a.l.Printf(format, args...)
	}
}
