package synth

import (
	"math"
	"testing"
)

func TestParamNameRoundTrip(t *testing.T) {
	for id := ParameterID(0); id < ParamCount; id++ {
		got, ok := ParamByName(id.String())
		if !ok || got != id {
			t.Errorf("param %d round trip failed via %q", id, id.String())
		}
	}
	if _, ok := ParamByName("nope"); ok {
		t.Error("unknown name must miss")
	}
	if ParameterID(200).String() != "unknown" {
		t.Error("out-of-range id should stringify as unknown")
	}
}

func TestClampParamRanges(t *testing.T) {
	cases := []struct {
		id       ParameterID
		in, want float32
	}{
		{ParamHarmonics, -0.5, 0},
		{ParamHarmonics, 1.5, 1},
		{ParamHarmonics, 0.5, 0.5},
		{ParamAttack, 0, 0.001},
		{ParamAttack, 6, 5},
		{ParamRelease, 11, 10},
		{ParamPan, -2, -1},
		{ParamPan, 2, 1},
		{ParamLFORate, 0, 0.01},
		{ParamLFORate, 50, 20},
	}
	for _, tc := range cases {
		if got := ClampParam(tc.id, tc.in); got != tc.want {
			t.Errorf("ClampParam(%v, %f) = %f, want %f", tc.id, tc.in, got, tc.want)
		}
	}
}

func TestNoteToFreq(t *testing.T) {
	if f := NoteToFreq(69); f != 440 {
		t.Fatalf("A4 = %f", f)
	}
	if f := NoteToFreq(81); math.Abs(f-880) > 1e-9 {
		t.Fatalf("A5 = %f", f)
	}
	if f := NoteToFreq(60); math.Abs(f-261.6255653) > 1e-6 {
		t.Fatalf("middle C = %f", f)
	}
}

func TestBufferOps(t *testing.T) {
	var a, b Buffer
	for i := range b {
		b[i] = Frame{L: 1, R: 2}
	}
	a.Accumulate(&b, 0.5)
	if a[0].L != 0.5 || a[0].R != 1 {
		t.Fatalf("accumulate wrong: %+v", a[0])
	}
	a.Accumulate(&b, 0.5)
	if a[127].L != 1 || a[127].R != 2 {
		t.Fatalf("second accumulate wrong: %+v", a[127])
	}
	a.Scale(0.25)
	if a[64].L != 0.25 || a[64].R != 0.5 {
		t.Fatalf("scale wrong: %+v", a[64])
	}
	a.Clear()
	for i := range a {
		if a[i] != (Frame{}) {
			t.Fatal("clear left residue")
		}
	}
}

func TestEngineTypeNames(t *testing.T) {
	for tt := EngineType(0); tt < EngineTypeCount; tt++ {
		got, ok := EngineTypeByName(tt.String())
		if !ok || got != tt {
			t.Errorf("engine type %d round trip failed", tt)
		}
	}
	if _, ok := EngineTypeByName("granular"); ok {
		t.Error("unknown engine name must miss")
	}
}

func TestColorNames(t *testing.T) {
	if ColorCoral.String() != "coral" || ColorStone.String() != "stone" {
		t.Fatal("color names wrong")
	}
	if Color(99).String() != "unknown" {
		t.Fatal("out-of-range color should be unknown")
	}
}
