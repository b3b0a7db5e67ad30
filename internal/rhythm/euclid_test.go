package rhythm

import "testing"

func hits(e *Euclidean) []int {
	var out []int
	for i := 0; i < e.Steps(); i++ {
		if e.ShouldTrigger(i) {
			out = append(out, i)
		}
	}
	return out
}

func TestHitCountAlwaysExact(t *testing.T) {
	e := New()
	for h := 0; h <= 16; h++ {
		e.Set(h, 0)
		if got := len(hits(e)); got != h {
			t.Errorf("hits=%d: pattern fires %d times", h, got)
		}
	}
}

func TestFourOnTheFloorSpacing(t *testing.T) {
	e := New() // default 4/0
	got := hits(e)
	if len(got) != 4 {
		t.Fatalf("expected 4 hits, got %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i]-got[i-1] != 4 {
			t.Fatalf("uneven spacing in %v", got)
		}
	}
}

func TestEvenDistribution(t *testing.T) {
	e := New()
	// For any hit count the gap between consecutive hits (wrapping) differs
	// by at most one step.
	for h := 1; h <= 16; h++ {
		e.Set(h, 0)
		pos := hits(e)
		minGap, maxGap := 16, 0
		for i := range pos {
			next := pos[(i+1)%len(pos)]
			gap := next - pos[i]
			if gap <= 0 {
				gap += 16
			}
			if gap < minGap {
				minGap = gap
			}
			if gap > maxGap {
				maxGap = gap
			}
		}
		if maxGap-minGap > 1 {
			t.Errorf("hits=%d: gaps range %d..%d in %v", h, minGap, maxGap, pos)
		}
	}
}

func TestRotationShiftsPattern(t *testing.T) {
	a := New()
	a.Set(5, 0)
	b := New()
	b.Set(5, 3)
	for i := 0; i < 16; i++ {
		if a.ShouldTrigger((i+3)%16) != b.ShouldTrigger(i) {
			t.Fatalf("rotation mismatch at step %d", i)
		}
	}

	// Rotation normalizes modulo the step count, negative included.
	c := New()
	c.Set(5, -13)
	if c.Rotation() != 3 {
		t.Fatalf("rotation -13 should normalize to 3, got %d", c.Rotation())
	}
}

func TestHitsClamped(t *testing.T) {
	e := New()
	e.Set(99, 0)
	if e.Hits() != 16 || len(hits(e)) != 16 {
		t.Fatal("hit count should clamp to the step count")
	}
	e.Set(-5, 0)
	if e.Hits() != 0 || len(hits(e)) != 0 {
		t.Fatal("negative hit count should clamp to zero")
	}
}

func TestVelocityAccentOnDownbeat(t *testing.T) {
	e := New()
	e.SetVelocity(0.5, 1.5)
	if got := e.Velocity(0); got != 0.75 {
		t.Fatalf("downbeat velocity = %f, want 0.75", got)
	}
	if got := e.Velocity(4); got != 0.5 {
		t.Fatalf("offbeat velocity = %f, want 0.5", got)
	}
	e.SetVelocity(0.9, 2)
	if got := e.Velocity(0); got != 1 {
		t.Fatalf("accented velocity must clamp to 1, got %f", got)
	}
}

func TestOutOfRangeStepNeverFires(t *testing.T) {
	e := New()
	e.Set(16, 0)
	if e.ShouldTrigger(-1) || e.ShouldTrigger(16) {
		t.Fatal("out-of-range steps must not fire")
	}
}
