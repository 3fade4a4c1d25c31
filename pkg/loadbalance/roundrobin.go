package loadbalance

import (
	"sync/atomic"

	"github.com/telepresenceio/go-extension/pkg/extension"
)

// RoundRobin cycles through candidates in input order, weighted by each
// endpoint's declared Weight, giving the LoadBalancer extension point a
// second real implementation alongside LeastActive.
type RoundRobin struct {
	counter uint64
}

func init() {
	register("roundrobin", "github.com/telepresenceio/go-extension/pkg/loadbalance.RoundRobin",
		func() LoadBalancer { return &RoundRobin{} })
}

// Select implements LoadBalancer. When weights differ, the selection walks
// a virtual weighted sequence of length sum(weight) using an atomically
// incremented counter, so concurrent callers still converge on proportional
// shares without a lock.
func (lb *RoundRobin) Select(candidates []Endpoint, u *extension.URL, methodName string) (Endpoint, error) {
	n := len(candidates)
	if n == 0 {
		return nil, errNoCandidates
	}
	if n == 1 {
		return candidates[0], nil
	}

	total := 0
	maxWeight := 0
	allEqual := true
	for i, c := range candidates {
		w := c.Weight()
		total += w
		if w > maxWeight {
			maxWeight = w
		}
		if i > 0 && w != candidates[0].Weight() {
			allEqual = false
		}
	}

	seq := atomic.AddUint64(&lb.counter, 1) - 1
	if allEqual || total <= 0 {
		return candidates[int(seq)%n], nil
	}

	pos := int(seq % uint64(total))
	for _, c := range candidates {
		w := c.Weight()
		if pos < w {
			return c, nil
		}
		pos -= w
	}
	return candidates[int(seq)%n], nil
}
