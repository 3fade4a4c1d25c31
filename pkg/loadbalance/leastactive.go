package loadbalance

import (
	"errors"
	"math/rand"

	"github.com/telepresenceio/go-extension/pkg/extension"
)

// LeastActive picks, among the candidates with the fewest in-flight calls,
// one weighted by (possibly warmed-up) weight; it falls back to a uniform
// pick when those weights are equal or all zero. O(n), two size-n scratch
// slices per call.
type LeastActive struct {
	// Rand is used for the weighted/uniform draws. When nil, this
	// package's shared globalRand (seeded with 1) is used; tests inject
	// their own deterministic source.
	Rand *rand.Rand
}

func init() {
	register("leastactive", "github.com/telepresenceio/go-extension/pkg/loadbalance.LeastActive",
		func() LoadBalancer { return &LeastActive{} })
}

var errNoCandidates = errors.New("loadbalance: candidate list must not be empty")

// Select implements LoadBalancer.
func (lb *LeastActive) Select(candidates []Endpoint, u *extension.URL, methodName string) (Endpoint, error) {
	n := len(candidates)
	if n == 0 {
		return nil, errNoCandidates
	}
	if n == 1 {
		return candidates[0], nil
	}

	leastIdx := make([]int, 0, n)
	weights := make([]int, 0, n)

	minActive := candidates[0].ActiveCount()
	for _, c := range candidates[1:] {
		if a := c.ActiveCount(); a < minActive {
			minActive = a
		}
	}
	for i, c := range candidates {
		if c.ActiveCount() == minActive {
			leastIdx = append(leastIdx, i)
			weights = append(weights, c.Weight())
		}
	}

	if len(leastIdx) == 1 {
		return candidates[leastIdx[0]], nil
	}

	allEqual := true
	total := 0
	for _, w := range weights {
		total += w
		if w != weights[0] {
			allEqual = false
		}
	}

	if !allEqual && total > 0 {
		r := lb.rand().Intn(total)
		for i, idx := range leastIdx {
			r -= weights[i]
			if r < 0 {
				return candidates[idx], nil
			}
		}
	}
	return candidates[leastIdx[lb.rand().Intn(len(leastIdx))]], nil
}

func (lb *LeastActive) rand() *rand.Rand {
	if lb.Rand != nil {
		return lb.Rand
	}
	return globalRand
}

var globalRand = rand.New(rand.NewSource(1))
