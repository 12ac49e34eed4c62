package physmem_test

import (
	"testing"

	"github.com/ironlatch/vtxcore/addr"
	"github.com/ironlatch/vtxcore/physmem"
)

type fakeHost struct {
	ranges []physmem.Range
}

func (h fakeHost) CheckPhysicalMemory(out []physmem.Range) (int, error) {
	n := copy(out, h.ranges)
	return n, nil
}

func TestProbeOrdersAndSums(t *testing.T) {
	h := fakeHost{ranges: []physmem.Range{
		{Begin: 0, End: 0x9000},
		{Begin: 0x100000, End: 0x200000},
	}}
	d, err := physmem.Probe(h)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
	want := uint64(0x9000) + uint64(0x100000)
	if got := d.TotalPhysicalMemorySize(); got != want {
		t.Errorf("TotalPhysicalMemorySize() = %#x, want %#x", got, want)
	}
	for i := 1; i < d.Len(); i++ {
		if d.Range(i).Begin < d.Range(i-1).Begin {
			t.Errorf("ranges not increasing at %d", i)
		}
	}
}

func TestProbeRejectsOverlap(t *testing.T) {
	h := fakeHost{ranges: []physmem.Range{
		{Begin: 0, End: 0x2000},
		{Begin: 0x1000, End: 0x3000},
	}}
	if _, err := physmem.Probe(h); err != physmem.ErrOverlappingRanges {
		t.Errorf("Probe() err = %v, want ErrOverlappingRanges", err)
	}
}

func TestProbeRejectsUnsorted(t *testing.T) {
	h := fakeHost{ranges: []physmem.Range{
		{Begin: 0x100000, End: 0x200000},
		{Begin: 0, End: 0x9000},
	}}
	if _, err := physmem.Probe(h); err != physmem.ErrUnsortedRanges {
		t.Errorf("Probe() err = %v, want ErrUnsortedRanges", err)
	}
}

func TestProbeRejectsTooManyRanges(t *testing.T) {
	ranges := make([]physmem.Range, physmem.MaxRanges+1)
	for i := range ranges {
		base := addr.PA(uint64(i) * 2 * addr.PageSize)
		ranges[i] = physmem.Range{Begin: base, End: base.Add(addr.PageSize)}
	}
	h := fakeHost{ranges: ranges}
	if _, err := physmem.Probe(h); err != physmem.ErrTooManyRanges {
		t.Errorf("Probe() err = %v, want ErrTooManyRanges", err)
	}
}

func TestRangeSize(t *testing.T) {
	r := physmem.Range{Begin: 0x1000, End: 0x4000}
	if r.Size() != 0x3000 {
		t.Errorf("Size() = %#x, want 0x3000", r.Size())
	}
}
