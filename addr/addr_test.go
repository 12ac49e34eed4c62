package addr

import "testing"

func TestPAIndex(t *testing.T) {
	tests := []struct {
		name  string
		value PA
		level PagingLevel
		want  uint64
	}{
		{"pt zero", 0, LevelPT, 0},
		{"pt simple", 0x1000, LevelPT, 1},
		{"pd boundary", 0x200000, LevelPD, 1},
		{"pdpt boundary", 0x40000000, LevelPDPT, 1},
		{"pml4 boundary", 0x8000000000, LevelPML4, 1},
		{"pt masks to 9 bits", 0xFFFFFFFFFFFFF000, LevelPT, 0x1ff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Index(tt.level); got != tt.want {
				t.Errorf("PA(%#x).Index(%d) = %#x, want %#x", uint64(tt.value), tt.level, got, tt.want)
			}
		})
	}
}

// TestPAIndexFormula checks the invariant from the spec directly:
// index(L) == (addr >> (12 + 9*L)) & 0x1FF, for all four levels.
func TestPAIndexFormula(t *testing.T) {
	addrs := []uint64{0, 1, 0x1000, 0xdeadbeef, 0x7fffffffffff, 0xffffffffffffffff}
	levels := []PagingLevel{LevelPT, LevelPD, LevelPDPT, LevelPML4}
	for _, a := range addrs {
		for _, l := range levels {
			want := (a >> (12 + 9*uint(l))) & 0x1ff
			if got := PA(a).Index(l); got != want {
				t.Errorf("PA(%#x).Index(%d) = %#x, want %#x", a, l, got, want)
			}
			if got := VA(a).Index(l); got != want {
				t.Errorf("VA(%#x).Index(%d) = %#x, want %#x", a, l, got, want)
			}
		}
	}
}

func TestPFNRoundTrip(t *testing.T) {
	vals := []PA{0, 0x1000, 0xdeadb000, 0xfffffffffffff000}
	for _, p := range vals {
		if got := PAFromPFN(p.PFN()); got != p.AlignDown() {
			t.Errorf("PAFromPFN(PA(%#x).PFN()) = %#x, want %#x", uint64(p), uint64(got), uint64(p.AlignDown()))
		}
	}
}

func TestOffsetAndAlignDown(t *testing.T) {
	p := PA(0x1234567)
	if p.Offset() != 0x567 {
		t.Errorf("Offset() = %#x, want 0x567", p.Offset())
	}
	if p.AlignDown() != PA(0x1234000) {
		t.Errorf("AlignDown() = %#x, want 0x1234000", uint64(p.AlignDown()))
	}
}

func TestArithmetic(t *testing.T) {
	a, b := PA(0x1000), PA(0x10)
	if a.Add(b) != PA(0x1010) {
		t.Errorf("Add: got %#x", uint64(a.Add(b)))
	}
	if a.Sub(b) != PA(0xff0) {
		t.Errorf("Sub: got %#x", uint64(a.Sub(b)))
	}
	if a.Or(b) != PA(0x1010) {
		t.Errorf("Or: got %#x", uint64(a.Or(b)))
	}
	if a.And(PA(0xff00)) != PA(0x1000) {
		t.Errorf("And: got %#x", uint64(a.And(PA(0xff00))))
	}
}

type fakeTranslator struct {
	pa PA
	va VA
}

func (f fakeTranslator) PAFromVA(VA) PA                { return f.pa }
func (f fakeTranslator) PAFromVAWithCR3(VA, PA) PA     { return f.pa }
func (f fakeTranslator) VAFromPA(PA) VA                { return f.va }

func TestTranslatorHelpers(t *testing.T) {
	tr := fakeTranslator{pa: 0x4000, va: 0xffff800000000000}
	if got := FromVA(tr, 0x1000); got != 0x4000 {
		t.Errorf("FromVA = %#x", uint64(got))
	}
	if got := FromVACR3(tr, 0x1000, 0x2000); got != 0x4000 {
		t.Errorf("FromVACR3 = %#x", uint64(got))
	}
	if got := ToVA(tr, 0x4000); got != 0xffff800000000000 {
		t.Errorf("ToVA = %#x", uint64(got))
	}
}
