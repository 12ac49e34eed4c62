// Package physmem holds the bounded, immutable snapshot of the host's
// physical RAM ranges taken once at startup, used to size EPT identity
// maps (the EPT builder itself is out of scope for this core).
package physmem

import (
	"errors"
	"fmt"

	"github.com/ironlatch/vtxcore/addr"
)

// MaxRanges is the hard capacity of the descriptor. The host primitive
// that reports the physical memory map is only ever asked to fill this
// many entries.
const MaxRanges = 32

// Range is a half-open [Begin, End) interval of physical addresses.
type Range struct {
	Begin addr.PA
	End   addr.PA
}

// Size returns the number of bytes covered by r.
func (r Range) Size() uint64 { return uint64(r.End) - uint64(r.Begin) }

// Host supplies the physical memory map. It is the one external
// collaborator this package depends on (spec's "OS-supplied primitive").
type Host interface {
	// CheckPhysicalMemory fills out with up to len(out) ranges describing
	// RAM populated at boot, and returns the number of ranges it wrote or,
	// when the map holds more ranges than fit in out, that larger total.
	CheckPhysicalMemory(out []Range) (count int, err error)
}

// ErrTooManyRanges is returned by Probe when the host reports more than
// MaxRanges ranges. The spec leaves the choice between silent
// truncation, growth, and failure to the implementer (see DESIGN.md);
// this repo fails loudly rather than silently dropping ranges a caller
// might depend on to size its EPT identity map.
var ErrTooManyRanges = errors.New("physmem: host reported more than the maximum supported physical memory ranges")

// ErrUnsortedRanges is returned by Probe if the host-reported ranges are
// not in strictly increasing order by Begin.
var ErrUnsortedRanges = errors.New("physmem: host-reported ranges are not sorted")

// ErrOverlappingRanges is returned by Probe if two host-reported ranges
// overlap.
var ErrOverlappingRanges = errors.New("physmem: host-reported ranges overlap")

// Descriptor is a fixed-capacity, ordered, immutable list of
// non-overlapping physical memory ranges. It is built once by Probe and
// never mutated afterward.
type Descriptor struct {
	ranges []Range
	total  uint64
}

// Probe queries host for the physical memory map and validates the
// disjoint/monotonic invariant spec.md requires of the descriptor.
func Probe(host Host) (*Descriptor, error) {
	buf := make([]Range, MaxRanges+1)
	count, err := host.CheckPhysicalMemory(buf)
	if err != nil {
		return nil, fmt.Errorf("physmem: query host: %w", err)
	}
	if count > MaxRanges {
		return nil, ErrTooManyRanges
	}

	ranges := append([]Range(nil), buf[:count]...)
	for i := 1; i < len(ranges); i++ {
		if ranges[i].Begin < ranges[i-1].Begin {
			return nil, ErrUnsortedRanges
		}
		if ranges[i].Begin < ranges[i-1].End {
			return nil, ErrOverlappingRanges
		}
	}

	var total uint64
	for _, r := range ranges {
		total += r.Size()
	}
	return &Descriptor{ranges: ranges, total: total}, nil
}

// Len returns the number of ranges in the descriptor.
func (d *Descriptor) Len() int { return len(d.ranges) }

// Range returns the i'th range, in ascending order.
func (d *Descriptor) Range(i int) Range { return d.ranges[i] }

// Ranges returns a read-only view of every range, in ascending order.
func (d *Descriptor) Ranges() []Range {
	out := make([]Range, len(d.ranges))
	copy(out, d.ranges)
	return out
}

// TotalPhysicalMemorySize returns the sum of every range's size.
func (d *Descriptor) TotalPhysicalMemorySize() uint64 { return d.total }
