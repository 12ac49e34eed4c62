//go:build linux && amd64

// Package linuxhost is an illustrative Linux/amd64 reference adapter
// implementing vcpu.Host, addr.Translator, and physmem.Host against a
// hypothetical /dev/vtxcore kernel-driver character device — the
// counterpart to this repository's "host kernel" in spec.md §2's data
// flow. It is not a production driver: no such kernel module ships in
// this repository. Its purpose is to show the ioctl/mmap plumbing a
// real Host implementation needs, grounded in the same
// golang.org/x/sys/unix primitives the rest of this module's example
// pack reaches for when talking to /dev/kvm (see bobuhiro11/gokvm and
// hankjacobs/kvm in the reference pack).
package linuxhost

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ironlatch/vtxcore/addr"
	"github.com/ironlatch/vtxcore/physmem"
	"github.com/ironlatch/vtxcore/pmap"
	"github.com/ironlatch/vtxcore/vcpu"
)

// Driver device-node path and ioctl numbers. The encoding follows the
// standard Linux ioctl convention (_IOWR etc.); the magic byte 0xF0 is
// unallocated in Documentation/userspace-api/ioctl/ioctl-number.rst as
// of this writing.
const (
	devicePath = "/dev/vtxcore"

	ioctlVMRead         = 0xC010F001 // _IOWR('\xF0', 0x01, struct vtxcore_vmrw)
	ioctlVMWrite        = 0xC010F002 // _IOWR('\xF0', 0x02, struct vtxcore_vmrw)
	ioctlReadCapability = 0xC018F003 // _IOWR('\xF0', 0x03, struct vtxcore_msr_caps)
	ioctlTranslate      = 0xC018F004 // _IOWR('\xF0', 0x04, struct vtxcore_translate)
	ioctlMapAlloc       = 0xC010F005 // _IOWR('\xF0', 0x05, struct vtxcore_map)
	ioctlMapFree        = 0x4008F006 // _IOW ('\xF0', 0x06, uint64_t)
	ioctlTLBFlush       = 0x4008F007 // _IOW ('\xF0', 0x07, uint64_t)
	ioctlCheckPhysMem   = 0xC010F008 // _IOWR('\xF0', 0x08, struct vtxcore_physmem)
)

type vmrwArg struct {
	Field uint32
	_     uint32
	Value uint64
}

type msrCapsArg struct {
	MSR            uint32
	_              uint32
	Fixed0, Fixed1 uint64
}

type translateArg struct {
	VA  uint64
	CR3 uint64
	PA  uint64
}

type mapArg struct {
	VA  uint64
	PTE uint64 // frame number to install (0 clears); SetFrame reads the previous frame back from it
}

type physMemRangeArg struct {
	Begin, End uint64
}

// Host opens /dev/vtxcore and implements every external primitive
// spec.md §6 lists against it.
type Host struct {
	mu sync.Mutex
	fd int
}

// Open opens the driver device node. Callers should Close the returned
// Host once the owning vCPU(s) are torn down.
func Open() (*Host, error) {
	fd, err := unix.Open(devicePath, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("linuxhost: open %s: %w", devicePath, err)
	}
	return &Host{fd: fd}, nil
}

// Close releases the driver file descriptor.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fd < 0 {
		return nil
	}
	err := unix.Close(h.fd)
	h.fd = -1
	return err
}

func (h *Host) ioctl(req uintptr, arg unsafe.Pointer) error {
	h.mu.Lock()
	fd := h.fd
	h.mu.Unlock()
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return os.NewSyscallError("ioctl", errno)
	}
	return nil
}

// VMRead implements vcpu.Host.
func (h *Host) VMRead(field vcpu.Field) (uint64, error) {
	arg := vmrwArg{Field: uint32(field)}
	if err := h.ioctl(ioctlVMRead, unsafe.Pointer(&arg)); err != nil {
		return 0, fmt.Errorf("linuxhost: vmread(%#x): %w", uint32(field), err)
	}
	return arg.Value, nil
}

// VMWrite implements vcpu.Host.
func (h *Host) VMWrite(field vcpu.Field, value uint64) error {
	arg := vmrwArg{Field: uint32(field), Value: value}
	if err := h.ioctl(ioctlVMWrite, unsafe.Pointer(&arg)); err != nil {
		return fmt.Errorf("linuxhost: vmwrite(%#x, %#x): %w", uint32(field), value, err)
	}
	return nil
}

// ReadCapabilityMSR implements vcpu.Host.
func (h *Host) ReadCapabilityMSR(msr uint32) (fixed0, fixed1 uint64, err error) {
	arg := msrCapsArg{MSR: msr}
	if err := h.ioctl(ioctlReadCapability, unsafe.Pointer(&arg)); err != nil {
		return 0, 0, fmt.Errorf("linuxhost: read capability MSR %#x: %w", msr, err)
	}
	return arg.Fixed0, arg.Fixed1, nil
}

// PAFromVA implements addr.Translator.
func (h *Host) PAFromVA(va addr.VA) addr.PA {
	arg := translateArg{VA: uint64(va)}
	_ = h.ioctl(ioctlTranslate, unsafe.Pointer(&arg))
	return addr.PA(arg.PA)
}

// PAFromVAWithCR3 implements addr.Translator.
func (h *Host) PAFromVAWithCR3(va addr.VA, cr3 addr.PA) addr.PA {
	arg := translateArg{VA: uint64(va), CR3: uint64(cr3)}
	_ = h.ioctl(ioctlTranslate, unsafe.Pointer(&arg))
	return addr.PA(arg.PA)
}

// VAFromPA implements addr.Translator. The driver ioctl reuses
// translateArg with VA left zero and PA supplied; the kernel side
// distinguishes the two directions by which field is nonzero.
func (h *Host) VAFromPA(pa addr.PA) addr.VA {
	arg := translateArg{PA: uint64(pa)}
	_ = h.ioctl(ioctlTranslate, unsafe.Pointer(&arg))
	return addr.VA(arg.VA)
}

// pteHandle is the PTE implementation returned by MappingAllocate: a
// handle to a kernel-resident page-table entry, manipulated entirely
// through the same device file descriptor.
type pteHandle struct {
	host   *Host
	handle uint64
}

func (p *pteHandle) SetFrame(pfn addr.PFN) (addr.PFN, error) {
	arg := mapArg{VA: p.handle, PTE: uint64(pfn)}
	if err := p.host.ioctl(ioctlMapAlloc, unsafe.Pointer(&arg)); err != nil {
		return 0, fmt.Errorf("linuxhost: set frame %#x: %w", pfn, err)
	}
	return addr.PFN(arg.PTE), nil
}

func (p *pteHandle) Clear() error {
	arg := mapArg{VA: p.handle}
	if err := p.host.ioctl(ioctlMapAlloc, unsafe.Pointer(&arg)); err != nil {
		return fmt.Errorf("linuxhost: clear mapping: %w", err)
	}
	return nil
}

// MappingAllocate implements pmap.Host.
func (h *Host) MappingAllocate() (addr.VA, pmap.PTE, error) {
	arg := mapArg{}
	if err := h.ioctl(ioctlMapAlloc, unsafe.Pointer(&arg)); err != nil {
		return 0, nil, fmt.Errorf("linuxhost: allocate mapping window: %w", err)
	}
	return addr.VA(arg.VA), &pteHandle{host: h, handle: arg.VA}, nil
}

// MappingFree implements pmap.Host.
func (h *Host) MappingFree(va addr.VA) error {
	value := uint64(va)
	if err := h.ioctl(ioctlMapFree, unsafe.Pointer(&value)); err != nil {
		return fmt.Errorf("linuxhost: free mapping window %#x: %w", uint64(va), err)
	}
	return nil
}

// TLBFlushOne implements pmap.Host.
func (h *Host) TLBFlushOne(va addr.VA) {
	value := uint64(va)
	_ = h.ioctl(ioctlTLBFlush, unsafe.Pointer(&value))
}

// CheckPhysicalMemory implements physmem.Host, filling out with up to
// len(out) ranges the driver reports as usable host physical memory.
func (h *Host) CheckPhysicalMemory(out []physmem.Range) (int, error) {
	if len(out) == 0 {
		return 0, nil
	}
	raw := make([]physMemRangeArg, len(out))
	arg := struct {
		Count uint64
		Ptr   uint64
	}{Count: uint64(len(raw)), Ptr: uint64(uintptr(unsafe.Pointer(&raw[0])))}

	if err := h.ioctl(ioctlCheckPhysMem, unsafe.Pointer(&arg)); err != nil {
		return 0, fmt.Errorf("linuxhost: check physical memory: %w", err)
	}

	n := int(arg.Count)
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = physmem.Range{Begin: addr.PA(raw[i].Begin), End: addr.PA(raw[i].End)}
	}
	return int(arg.Count), nil
}
