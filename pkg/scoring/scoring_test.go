package scoring

import "testing"

func TestStepTableFirstMatchWins(t *testing.T) {
	tbl := StepTable{
		Steps: []Step{
			{When: AtMost(10), Value: 5},
			{When: AtMost(30), Value: -5},
		},
		Fallback: -60,
	}
	cases := []struct {
		x    float64
		want float64
	}{
		{0, 5}, {10, 5}, {10.5, -5}, {30, -5}, {31, -60},
	}
	for _, c := range cases {
		if got := tbl.Score(c.x); got != c.want {
			t.Fatalf("Score(%v): expected %v, got %v", c.x, c.want, got)
		}
	}
}

func TestStepTableImpactIsClamped(t *testing.T) {
	tbl := StepTable{Fallback: 250}
	if got := tbl.Impact(1); got != MaxImpact {
		t.Fatalf("expected %v, got %v", MaxImpact, got)
	}
}

func TestLadderEdges(t *testing.T) {
	temp := Ladder{
		Bounds: []float64{10, 15, 20, 25, 30, 35},
		Values: []float64{0.5, 0.7, 0.85, 1.0, 1.15, 1.3, 1.4},
	}
	if !temp.Valid() {
		t.Fatal("expected temperature ladder to be valid")
	}
	cases := map[float64]float64{-3: 0.5, 9.99: 0.5, 10: 0.7, 24.9: 1.0, 25: 1.15, 35: 1.4, 48: 1.4}
	for x, want := range cases {
		if got := temp.Value(x); got != want {
			t.Fatalf("temp %v: expected %v, got %v", x, want, got)
		}
	}

	hum := Ladder{
		Bounds:      []float64{30, 40, 60, 80},
		Values:      []float64{1.3, 1.15, 1.0, 0.85, 0.7},
		EdgeToLower: true,
	}
	humCases := map[float64]float64{30: 1.3, 30.1: 1.15, 60: 1.0, 80: 0.85, 80.1: 0.7}
	for x, want := range humCases {
		if got := hum.Value(x); got != want {
			t.Fatalf("humidity %v: expected %v, got %v", x, want, got)
		}
	}
}

func TestLadderInvalidShape(t *testing.T) {
	l := Ladder{Bounds: []float64{2, 1}, Values: []float64{0, 1, 2}}
	if l.Valid() {
		t.Fatal("expected unsorted bounds to be invalid")
	}
	if (Ladder{}).Value(3) != 0 {
		t.Fatal("expected empty ladder to yield 0")
	}
}

func TestPredicates(t *testing.T) {
	if !Between(70, 80)(70) || !Between(70, 80)(80) {
		t.Fatal("Between must be inclusive on both ends")
	}
	if HalfOpen(60, 70)(70) || !HalfOpen(60, 70)(60) {
		t.Fatal("HalfOpen must include lo and exclude hi")
	}
	if OpenClosed(80, 90)(80) || !OpenClosed(80, 90)(90) {
		t.Fatal("OpenClosed must exclude lo and include hi")
	}
	if Above(15)(15) || !Above(15)(15.01) {
		t.Fatal("Above must be strict")
	}
}
