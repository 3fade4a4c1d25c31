package loadbalance

import (
	"math/rand"
	"testing"
)

type fixedEndpoint struct {
	idx    int
	weight int
	active int
}

func (e fixedEndpoint) Weight() int      { return e.weight }
func (e fixedEndpoint) ActiveCount() int { return e.active }

func TestLeastActiveAlwaysPicksTheLeastActive(t *testing.T) {
	lb := &LeastActive{Rand: rand.New(rand.NewSource(1))}
	candidates := []Endpoint{
		fixedEndpoint{0, 2, 2},
		fixedEndpoint{1, 3, 4},
		fixedEndpoint{2, 4, 3},
	}
	for i := 0; i < 20; i++ {
		picked, err := lb.Select(candidates, nil, "m")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if picked.(fixedEndpoint).idx != 0 {
			t.Fatalf("expected index 0, got %d", picked.(fixedEndpoint).idx)
		}
	}
}

func TestLeastActiveNeverPicksOutsideTheLeastActiveSet(t *testing.T) {
	lb := &LeastActive{Rand: rand.New(rand.NewSource(7))}
	candidates := []Endpoint{
		fixedEndpoint{0, 2, 2},
		fixedEndpoint{1, 3, 2},
		fixedEndpoint{2, 4, 3},
	}
	for i := 0; i < 100; i++ {
		picked, err := lb.Select(candidates, nil, "m")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		idx := picked.(fixedEndpoint).idx
		if idx != 0 && idx != 1 {
			t.Fatalf("expected only the least-active subset {0,1}, got %d", idx)
		}
	}
}

func TestLeastActiveSingleCandidateSkipsRand(t *testing.T) {
	lb := &LeastActive{}
	only := []Endpoint{fixedEndpoint{0, 0, 0}}
	picked, err := lb.Select(only, nil, "m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if picked.(fixedEndpoint).idx != 0 {
		t.Fatalf("expected the only candidate back")
	}
}

func TestLeastActiveRejectsEmpty(t *testing.T) {
	lb := &LeastActive{}
	if _, err := lb.Select(nil, nil, "m"); err == nil {
		t.Fatalf("expected an error for an empty candidate list")
	}
}

func TestLeastActiveAllZeroWeightIsUniform(t *testing.T) {
	lb := &LeastActive{Rand: rand.New(rand.NewSource(42))}
	candidates := []Endpoint{
		fixedEndpoint{0, 0, 1},
		fixedEndpoint{1, 0, 1},
		fixedEndpoint{2, 0, 1},
	}
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		picked, err := lb.Select(candidates, nil, "m")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[picked.(fixedEndpoint).idx] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected the uniform draw to cover more than one candidate, saw %v", seen)
	}
}

func TestRoundRobinCoversEveryCandidate(t *testing.T) {
	lb := &RoundRobin{}
	candidates := []Endpoint{
		fixedEndpoint{0, 1, 0},
		fixedEndpoint{1, 1, 0},
		fixedEndpoint{2, 1, 0},
	}
	seen := map[int]bool{}
	for i := 0; i < 9; i++ {
		picked, err := lb.Select(candidates, nil, "m")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[picked.(fixedEndpoint).idx] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected round-robin to cycle through all 3 candidates, saw %v", seen)
	}
}

func TestRandomRejectsEmpty(t *testing.T) {
	lb := &Random{}
	if _, err := lb.Select(nil, nil, "m"); err == nil {
		t.Fatalf("expected an error for an empty candidate list")
	}
}
