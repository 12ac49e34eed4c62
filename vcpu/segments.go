package vcpu

import "github.com/ironlatch/vtxcore/addr"

// segmentFields returns the four VMCS fields backing guest segment s,
// computed from the stride-2 group bases the same way hvpp's
// guest_segment(index) does: each segment after the first occupies the
// next encoding two slots over.
func segmentFields(s seg) (selector, limit, access, base Field) {
	assert(s >= segMin && s <= segMax, "segment index %d out of range", s)
	stride := Field(s) << 1
	return fieldGuestESSelector + stride,
		fieldGuestESLimit + stride,
		fieldGuestESAR + stride,
		fieldGuestESBase + stride
}

// GuestSegment returns the full state of guest segment register s.
func (v *VCPU) GuestSegment(s seg) Segment {
	selF, limF, arF, baseF := segmentFields(s)
	return Segment{
		Selector: Selector(v.mustRead(selF)),
		Limit:    uint32(v.mustRead(limF)),
		Access:   uint32(v.mustRead(arF)),
		Base:     addr.VA(v.mustRead(baseF)),
	}
}

// SetGuestSegment writes the full state of guest segment register s.
func (v *VCPU) SetGuestSegment(s seg, data Segment) {
	selF, limF, arF, baseF := segmentFields(s)
	v.mustWrite(selF, uint64(data.Selector))
	v.mustWrite(limF, uint64(data.Limit))
	v.mustWrite(arF, uint64(data.Access))
	v.mustWrite(baseF, uint64(data.Base))
}

// GuestSegmentBase returns just the base-address field of guest segment
// register s, avoiding three unnecessary VMREADs when a caller only
// needs the base.
func (v *VCPU) GuestSegmentBase(s seg) addr.VA {
	_, _, _, baseF := segmentFields(s)
	return addr.VA(v.mustRead(baseF))
}

// GuestSegmentLimit returns just the limit field of guest segment
// register s.
func (v *VCPU) GuestSegmentLimit(s seg) uint32 {
	_, limF, _, _ := segmentFields(s)
	return uint32(v.mustRead(limF))
}

// GuestSegmentAccess returns just the access-rights field of guest
// segment register s.
func (v *VCPU) GuestSegmentAccess(s seg) uint32 {
	_, _, arF, _ := segmentFields(s)
	return uint32(v.mustRead(arF))
}

// GuestSegmentSelector returns just the selector field of guest segment
// register s.
func (v *VCPU) GuestSegmentSelector(s seg) Selector {
	selF, _, _, _ := segmentFields(s)
	return Selector(v.mustRead(selF))
}
