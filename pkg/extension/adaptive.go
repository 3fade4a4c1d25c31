package extension

import (
	"strings"
	"unicode"
)

// RegisterAdaptiveClass publishes a hand-written adaptive dispatcher under
// classPath. Go has no runtime bytecode/source-compiler collaborator to
// synthesize an arbitrary interface implementation on the fly, so this
// package's "synthesizer" is reduced to its essence: a precomputed,
// value-keyed dispatch table (DispatchByURL below) that a small
// hand-written adaptive type forwards through. Registry.AddExtension binds
// such a class to one interface; binding a second, different adaptive
// class to the same interface returns a MultipleAdaptiveError.
func RegisterAdaptiveClass(classPath string, ctor NormalConstructor) {
	classesMu.Lock()
	defer classesMu.Unlock()
	classes[classPath] = &classEntry{path: classPath, normal: ctor, adaptiveMarker: true}
}

func isAdaptiveClass(classPath string) bool {
	e, ok := lookupClass(classPath)
	return ok && e.adaptiveMarker
}

// GetAdaptive returns the interface's adaptive instance, synthesizing it
// from the registered adaptive class on first use and memoizing both
// success and failure: if synthesis failed once, the same error is
// re-raised on every subsequent call rather than retried.
func (r *Registry[T]) GetAdaptive() (T, error) {
	var zero T
	r.ensureLoaded()

	r.mu.Lock()
	if r.adaptiveHolder == nil {
		r.adaptiveHolder = &holder{}
	}
	h := r.adaptiveHolder
	adaptivePath := r.adaptive
	r.mu.Unlock()

	v, err := h.get(func() (interface{}, error) {
		if adaptivePath == "" {
			return nil, NewAdaptiveSynthesisFailed(r.fqn,
				errNoAdaptiveClass)
		}
		entry, ok := lookupClass(adaptivePath)
		if !ok || entry.normal == nil {
			return nil, NewAdaptiveSynthesisFailed(r.fqn, errNoAdaptiveClass)
		}
		inst, err := entry.normal(Builder{chain: newChain()})
		if err != nil {
			return nil, NewAdaptiveSynthesisFailed(r.fqn, err)
		}
		return inst, nil
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, NewAdaptiveSynthesisFailed(r.fqn, errNoAdaptiveClass)
	}
	return t, nil
}

var errNoAdaptiveClass = adaptiveClassMissing{}

type adaptiveClassMissing struct{}

func (adaptiveClassMissing) Error() string {
	return "no adaptive class registered and no method is adaptive-addressable"
}

// DeriveAdaptiveKey splits an interface's simple name on case boundaries,
// lowercases, and dot-joins it, producing the default URL key used when a
// method declares no explicit adaptive key list.
//
// e.g. "LoadBalance" -> "load.balance", "ThreadPoolFactory" -> "thread.pool.factory".
func DeriveAdaptiveKey(simpleInterfaceName string) string {
	var b strings.Builder
	runes := []rune(simpleInterfaceName)
	for i, rn := range runes {
		if i > 0 && unicode.IsUpper(rn) && !unicode.IsUpper(runes[i-1]) {
			b.WriteByte('.')
		}
		b.WriteRune(unicode.ToLower(rn))
	}
	return b.String()
}

// DispatchByURL resolves one adaptive method call: read keys from u in
// order, falling back to fallbackDefault, then resolve
// that name through reg. This is the shared "generic proxy" every hand-
// written adaptive type in this module forwards its methods through.
func DispatchByURL[T any](reg *Registry[T], u *URL, keys []string, fallbackDefault string) (T, error) {
	name := ""
	for _, k := range keys {
		if v, ok := u.GetParameter(k); ok && v != "" {
			name = v
			break
		}
	}
	if name == "" {
		name = fallbackDefault
	}
	if name == "" {
		var zero T
		return zero, NewNoSuchExtension(reg.fqn, "", nil)
	}
	return reg.Get(name)
}
