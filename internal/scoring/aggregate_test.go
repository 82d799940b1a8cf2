package scoring

import "testing"

func TestOverall(t *testing.T) {
	got, err := Overall(80, 60, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 80*0.4 + 60*0.35 + 100*0.25 = 78
	if got != 78 {
		t.Errorf("expected 78, got %d", got)
	}
}

func TestOverall_RoundsHalfUp(t *testing.T) {
	// 71*0.4 + 71*0.35 + 72*0.25 = 71.25 -> 71
	got, err := Overall(71, 71, 72)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 71 {
		t.Errorf("expected 71, got %d", got)
	}

	// 75*0.4 + 75*0.35 + 73*0.25 = 74.5 -> 75
	got, err = Overall(75, 75, 73)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 75 {
		t.Errorf("expected 75, got %d", got)
	}
}

func TestOverall_RejectsOutOfRange(t *testing.T) {
	cases := [][3]float64{
		{-1, 50, 50},
		{50, 101, 50},
		{50, 50, 100.5},
	}
	for _, c := range cases {
		if _, err := Overall(c[0], c[1], c[2]); err == nil {
			t.Errorf("expected error for %v, got none", c)
		}
	}
}

func TestOverall_Bounds(t *testing.T) {
	if got, err := Overall(0, 0, 0); err != nil || got != 0 {
		t.Errorf("expected 0, got %d (err %v)", got, err)
	}
	if got, err := Overall(100, 100, 100); err != nil || got != 100 {
		t.Errorf("expected 100, got %d (err %v)", got, err)
	}
}
