package vcpu_test

import (
	"testing"

	"github.com/ironlatch/vtxcore/vcpu"
)

func TestNewWiresBitmapAddresses(t *testing.T) {
	host := newFakeHost()
	v, err := vcpu.New(host, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Close()

	if host.vmcs.read(vcpu.FieldMSRBitmap) == 0 {
		t.Fatal("MSR bitmap field was not written")
	}
	if host.vmcs.read(vcpu.FieldIOBitmapA) == 0 {
		t.Fatal("I/O bitmap A field was not written")
	}
	if host.vmcs.read(vcpu.FieldIOBitmapB) == 0 {
		t.Fatal("I/O bitmap B field was not written")
	}

	a := host.vmcs.read(vcpu.FieldMSRBitmap)
	b := host.vmcs.read(vcpu.FieldIOBitmapA)
	c := host.vmcs.read(vcpu.FieldIOBitmapB)
	if a == b || b == c || a == c {
		t.Fatalf("bitmap addresses collide: msr=%#x ioA=%#x ioB=%#x", a, b, c)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	host := newFakeHost()
	v, err := vcpu.New(host, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}

func TestContextGetSetBatch(t *testing.T) {
	host := newFakeHost()
	v, err := vcpu.New(host, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Close()

	ctx := v.Context()
	ctx.Set(vcpu.RAX, 0x1111)
	ctx.Set(vcpu.RBX, 0x2222)

	got := ctx.GetBatch([]vcpu.GPR{vcpu.RAX, vcpu.RBX})
	if got[vcpu.RAX] != 0x1111 || got[vcpu.RBX] != 0x2222 {
		t.Fatalf("unexpected batch: %#v", got)
	}

	ctx.SetBatch(map[vcpu.GPR]uint64{vcpu.RCX: 0x3333})
	if ctx.Get(vcpu.RCX) != 0x3333 {
		t.Fatalf("SetBatch did not apply: got %#x", ctx.Get(vcpu.RCX))
	}
}
