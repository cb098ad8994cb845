package judge

import "testing"

func TestLabelOverlap_IdenticalSetsIsOne(t *testing.T) {
	got := labelOverlap([]string{"cat", "dog"}, []string{"cat", "dog"})
	if got != 1 {
		t.Fatalf("labelOverlap = %v, want 1", got)
	}
}

func TestLabelOverlap_DisjointSetsIsZero(t *testing.T) {
	got := labelOverlap([]string{"cat", "dog"}, []string{"car", "boat"})
	if got != 0 {
		t.Fatalf("labelOverlap = %v, want 0", got)
	}
}

func TestLabelOverlap_PartialOverlapDividesByLargerSet(t *testing.T) {
	got := labelOverlap([]string{"cat", "dog", "tree"}, []string{"cat", "house"})
	want := 1.0 / 3.0
	if got != want {
		t.Fatalf("labelOverlap = %v, want %v", got, want)
	}
}

func TestLabelOverlap_EmptyInputIsZero(t *testing.T) {
	if got := labelOverlap(nil, []string{"cat"}); got != 0 {
		t.Fatalf("labelOverlap with empty baseline = %v, want 0", got)
	}
	if got := labelOverlap([]string{"cat"}, nil); got != 0 {
		t.Fatalf("labelOverlap with empty candidate = %v, want 0", got)
	}
}

func TestRound4(t *testing.T) {
	if got := round4(0.123456); got != 0.1235 {
		t.Fatalf("round4(0.123456) = %v, want 0.1235", got)
	}
	if got := round4(1); got != 1 {
		t.Fatalf("round4(1) = %v, want 1", got)
	}
}
