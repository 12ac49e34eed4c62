package vcpu

import (
	"unsafe"

	"github.com/ironlatch/vtxcore/addr"
)

// bitmapVA returns the host virtual address of one of a VCPU's owned
// 4096-byte bitmap arrays, for handing to Host.PAFromVA when wiring the
// MSR-bitmap and I/O-bitmap VMCS fields.
func bitmapVA(b *[4096]byte) addr.VA {
	return addr.VA(uintptr(unsafe.Pointer(b)))
}
