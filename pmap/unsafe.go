package pmap

import (
	"unsafe"

	"github.com/ironlatch/vtxcore/addr"
)

// vaToBytes reinterprets the host virtual address va as a byte slice of
// length n. The caller is responsible for ensuring va is mapped and
// stays mapped (and pinned) for the lifetime of the returned slice;
// Mapping.readWrite only ever uses it before the next Map() call.
func vaToBytes(va addr.VA, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(va))), n)
}
