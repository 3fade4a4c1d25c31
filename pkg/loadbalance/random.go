package loadbalance

import (
	"math/rand"

	"github.com/telepresenceio/go-extension/pkg/extension"
)

// Random picks among all candidates (not just the least-active subset),
// weighted by declared Weight.
type Random struct {
	Rand *rand.Rand
}

func init() {
	register("random", "github.com/telepresenceio/go-extension/pkg/loadbalance.Random",
		func() LoadBalancer { return &Random{} })
}

// Select implements LoadBalancer.
func (lb *Random) Select(candidates []Endpoint, u *extension.URL, methodName string) (Endpoint, error) {
	n := len(candidates)
	if n == 0 {
		return nil, errNoCandidates
	}
	if n == 1 {
		return candidates[0], nil
	}

	total := 0
	allEqual := true
	for i, c := range candidates {
		total += c.Weight()
		if i > 0 && c.Weight() != candidates[0].Weight() {
			allEqual = false
		}
	}

	r := lb.rand()
	if allEqual || total <= 0 {
		return candidates[r.Intn(n)], nil
	}
	pos := r.Intn(total)
	for _, c := range candidates {
		w := c.Weight()
		if pos < w {
			return c, nil
		}
		pos -= w
	}
	return candidates[n-1], nil
}

func (lb *Random) rand() *rand.Rand {
	if lb.Rand != nil {
		return lb.Rand
	}
	return globalRand
}
