package arena

import (
	"math/rand"
	"testing"
)

func TestMarkReleaseInvariant(t *testing.T) {
	var a Arena[int]
	rng := rand.New(rand.NewSource(1))

	var marks []Mark
	for i := 0; i < 500; i++ {
		switch rng.Intn(3) {
		case 0:
			a.Alloc()
		case 1:
			a.AllocSlice(rng.Intn(20))
		case 2:
			marks = append(marks, a.Mark())
		}
		if len(marks) > 0 && rng.Intn(5) == 0 {
			m := marks[len(marks)-1]
			marks = marks[:len(marks)-1]
			before := m
			a.Release(m)
			after := a.Mark()
			if after != before {
				t.Fatalf("watermark after release (%+v) != mark (%+v)", after, before)
			}
		}
	}
}

func TestAllocSliceDisjoint(t *testing.T) {
	var a Arena[byte]
	s1 := a.AllocSlice(10)
	s2 := a.AllocSlice(10)
	s1 = append(s1, 1)
	if len(s2) > 0 && s2[0] == 1 {
		t.Fatalf("AllocSlice results alias: appending to s1 leaked into s2")
	}
}

func TestBlockGrowth(t *testing.T) {
	var a Arena[int64]
	// First block must hold at least minBlockBytes worth of int64.
	floor := elemFloor[int64]()
	for i := 0; i < floor; i++ {
		a.Alloc()
	}
	if len(a.blocks) != 1 {
		t.Fatalf("expected a single block to cover the floor, got %d blocks", len(a.blocks))
	}
	a.Alloc()
	if len(a.blocks) != 2 {
		t.Fatalf("expected growth into a second block, got %d", len(a.blocks))
	}
	if len(a.blocks[1]) < len(a.blocks[0]) {
		t.Fatalf("second block (%d) should be at least as big as the first (%d)", len(a.blocks[1]), len(a.blocks[0]))
	}
}
