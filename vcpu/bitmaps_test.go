package vcpu_test

import (
	"testing"
	"unsafe"

	"github.com/ironlatch/vtxcore/vcpu"
)

// bitmapAt reinterprets the fakeHost's identity-mapped "physical"
// address for a bitmap field as the real 4096-byte array backing it,
// so tests can inspect individual bits without an exported accessor.
func bitmapAt(pa uint64) *[4096]byte {
	return (*[4096]byte)(unsafe.Pointer(uintptr(pa)))
}

func bitSet(b *[4096]byte, bit uint32) bool {
	return b[bit/8]&(1<<(bit%8)) != 0
}

func TestInterceptMSRSetsLowQuadrantBits(t *testing.T) {
	v, host := newTestVCPU(t)

	if err := v.InterceptMSR(0x174, true, false); err != nil {
		t.Fatalf("InterceptMSR: %v", err)
	}

	b := bitmapAt(host.vmcs.read(vcpu.FieldMSRBitmap))
	if !bitSet(b, 0x174) {
		t.Fatal("read-low bit not set")
	}
	if bitSet(b, 2048*8+0x174) {
		t.Fatal("write-low bit should not be set")
	}
}

func TestInterceptMSRSetsHighQuadrantBits(t *testing.T) {
	v, host := newTestVCPU(t)

	if err := v.InterceptMSR(0xC0000080, false, true); err != nil {
		t.Fatalf("InterceptMSR: %v", err)
	}

	b := bitmapAt(host.vmcs.read(vcpu.FieldMSRBitmap))
	if bitSet(b, 1024*8+0x80) {
		t.Fatal("read-high bit should not be set")
	}
	if !bitSet(b, 3072*8+0x80) {
		t.Fatal("write-high bit not set")
	}
}

func TestInterceptMSROutOfRangeFails(t *testing.T) {
	v, _ := newTestVCPU(t)
	if err := v.InterceptMSR(0x40000000, true, true); err == nil {
		t.Fatal("expected an error for an MSR outside the bitmap's low/high ranges")
	}
}

func TestInterceptIOPortPicksBitmapByPort(t *testing.T) {
	v, host := newTestVCPU(t)

	v.InterceptIOPort(0x3F8, true) // serial port, bitmap A
	v.InterceptIOPort(0x8100, true) // bitmap B

	a := bitmapAt(host.vmcs.read(vcpu.FieldIOBitmapA))
	bm := bitmapAt(host.vmcs.read(vcpu.FieldIOBitmapB))

	if !bitSet(a, 0x3F8) {
		t.Fatal("port 0x3F8 bit not set in bitmap A")
	}
	if !bitSet(bm, 0x8100-0x8000) {
		t.Fatal("port 0x8100 bit not set in bitmap B")
	}

	v.InterceptIOPort(0x3F8, false)
	if bitSet(a, 0x3F8) {
		t.Fatal("clearing the intercept should clear the bit")
	}
}
