package extension

import (
	"sort"
	"strings"
)

const (
	removeAllSentinel = "-default"
	defaultSentinel   = "default"
	removePrefix      = "-"
)

// RegisterActivation attaches an activation descriptor to an already
// registered normal extension name, so GetActivateExtension can consider it
// for auto-inclusion.
func (r *Registry[T]) RegisterActivation(name string, desc ActivationDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activation[name] = desc
}

// GetActivateExtension merges requested names (with "-name" removal and
// "-default" remove-all sentinels) with the activation table's eligible
// entries, splicing the activated set in front of wherever the literal
// "default" sentinel appears in the requested list.
func (r *Registry[T]) GetActivateExtension(u *URL, requested []string, group string) ([]T, error) {
	r.ensureLoaded()

	removeAll := false
	removed := map[string]bool{}
	var positive []string
	for _, n := range requested {
		switch {
		case n == removeAllSentinel:
			removeAll = true
		case strings.HasPrefix(n, removePrefix):
			removed[strings.TrimPrefix(n, removePrefix)] = true
		default:
			positive = append(positive, n)
		}
	}
	requestedSet := map[string]bool{}
	for _, n := range positive {
		requestedSet[n] = true
	}

	var activated []string
	if !removeAll {
		activated = r.eligibleActivations(u, group, requestedSet, removed)
	}

	var out []T
	loaded := map[string]bool{}
	appendByName := func(name string) error {
		if loaded[name] {
			return nil
		}
		loaded[name] = true
		v, err := r.Get(name)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	}

	for _, n := range activated {
		if err := appendByName(n); err != nil {
			return nil, err
		}
	}

	var resultWithRequested []T
	walked := map[string]bool{}
	spliceDone := false
	for _, n := range positive {
		if strings.HasPrefix(n, removePrefix) {
			continue
		}
		if n == defaultSentinel {
			if !spliceDone {
				resultWithRequested = append(resultWithRequested, out...)
				spliceDone = true
			}
			continue
		}
		if walked[n] || loaded[n] {
			continue
		}
		walked[n] = true
		loaded[n] = true
		v, err := r.Get(n)
		if err != nil {
			return nil, err
		}
		resultWithRequested = append(resultWithRequested, v)
	}

	if !spliceDone {
		// No literal "default" in the requested list: activated entries
		// lead, followed by the explicitly requested ones.
		return append(out, resultWithRequested...), nil
	}
	return resultWithRequested, nil
}

type activationCandidate struct {
	name  string
	order int
}

func (r *Registry[T]) eligibleActivations(u *URL, group string, requested, removed map[string]bool) []string {
	r.mu.RLock()
	var cands []activationCandidate
	for name, desc := range r.activation {
		if removed[name] || requested[name] {
			continue
		}
		if !groupMatches(desc.Group, group) {
			continue
		}
		if !keysMatch(desc.Keys, u) {
			continue
		}
		cands = append(cands, activationCandidate{name, desc.Order})
	}
	r.mu.RUnlock()

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].order != cands[j].order {
			return cands[i].order < cands[j].order
		}
		return cands[i].name < cands[j].name
	})
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.name
	}
	return out
}

func groupMatches(groups []string, group string) bool {
	// No group declared on the descriptor: it applies regardless of the
	// caller's side. No group given by the caller: no filtering criterion
	// to apply, so every descriptor is a candidate.
	if len(groups) == 0 || group == "" {
		return true
	}
	for _, g := range groups {
		if g == group {
			return true
		}
	}
	return false
}

func keysMatch(keys []KeyMatch, u *URL) bool {
	if len(keys) == 0 {
		return true
	}
	for _, km := range keys {
		for _, kv := range u.GetParameters() {
			if kv.Key == km.Key || strings.HasSuffix(kv.Key, "."+km.Key) {
				if km.Constraint == "" && kv.Value != "" {
					return true
				}
				if km.Constraint != "" && kv.Value == km.Constraint {
					return true
				}
			}
		}
	}
	return false
}
