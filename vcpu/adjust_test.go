package vcpu_test

import (
	"testing"

	"github.com/ironlatch/vtxcore/vcpu"
)

func TestSetPinBasedControlsAppliesFixedMasks(t *testing.T) {
	host := newFakeHost()
	host.fixed0[0x48D] = uint64(vcpu.PinNMIExiting)
	host.fixed1[0x48D] = ^uint64(vcpu.PinExternalInterruptExiting)

	v, err := vcpu.New(host, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Close()

	if err := v.SetPinBasedControls(vcpu.PinExternalInterruptExiting); err != nil {
		t.Fatalf("SetPinBasedControls: %v", err)
	}

	got := v.PinBasedControls()
	if got&vcpu.PinNMIExiting == 0 {
		t.Errorf("fixed0 bit (NMI exiting) was not forced on: %#x", got)
	}
	if got&vcpu.PinExternalInterruptExiting != 0 {
		t.Errorf("fixed1 bit (external-interrupt exiting) was not forced off: %#x", got)
	}
}

func TestSetProcessorBasedControlsRoundTrips(t *testing.T) {
	host := newFakeHost()
	v, err := vcpu.New(host, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Close()

	if err := v.SetProcessorBasedControls(vcpu.ProcUseMSRBitmaps); err != nil {
		t.Fatalf("SetProcessorBasedControls: %v", err)
	}
	if v.ProcessorBasedControls()&vcpu.ProcUseMSRBitmaps == 0 {
		t.Fatal("requested bit was not written through")
	}
}

func TestSetSecondaryProcessorBasedControlsHasNoTrueVariant(t *testing.T) {
	host := newFakeHost()
	v, err := vcpu.New(host, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Close()

	if err := v.SetSecondaryProcessorBasedControls(vcpu.ProcSecondaryEnableEPT); err != nil {
		t.Fatalf("SetSecondaryProcessorBasedControls: %v", err)
	}
	if v.SecondaryProcessorBasedControls()&vcpu.ProcSecondaryEnableEPT == 0 {
		t.Fatal("requested bit was not written through")
	}
}

func TestReadCapabilityMSRErrorPropagates(t *testing.T) {
	host := newFakeHost()
	delete(host.fixed0, 0x48D)
	delete(host.fixed1, 0x48D)

	v, err := vcpu.New(host, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Close()

	if err := v.SetPinBasedControls(0); err == nil {
		t.Fatal("expected an error when the capability MSR is unavailable")
	}
}
