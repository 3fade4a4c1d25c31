package extension

import (
	"fmt"
	"sync"
)

// Builder is handed to every extension constructor and wrapper constructor
// in place of reflection-driven setter injection. It carries the URL the
// extension is being resolved for (if any) and the in-flight construction
// chain used to detect cyclic dependencies, generalized to any
// builder-declared dependency.
type Builder struct {
	URL   *URL
	chain *constructionChain
}

type constructionChain struct {
	mu    sync.Mutex
	stack []string
}

func newChain() *constructionChain { return &constructionChain{} }

func (c *constructionChain) push(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.stack {
		if k == key {
			chain := append(append([]string(nil), c.stack...), key)
			return NewCyclicExtension(chain)
		}
	}
	c.stack = append(c.stack, key)
	return nil
}

func (c *constructionChain) pop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stack = c.stack[:len(c.stack)-1]
}

// Ref names a dependency another extension should resolve through the
// builder: a specific extension name, or the interface's default when Name
// is empty. This is the builder/configuration structure used in place of
// reflective setters.
type Ref[T any] struct {
	Name string
}

// Resolve looks up the referenced dependency via b, detecting re-entrant
// resolution of the same (interface, name) pair as CyclicExtensionError.
func (r Ref[T]) Resolve(b Builder) (T, error) {
	return Resolve[T](b, r.Name)
}

// Resolve is the free-function form used by constructors that build up
// Ref[T] values dynamically (e.g. from URL parameters) rather than
// declaring them as struct fields. Cycle detection happens inside
// getWithChain itself, which pushes the (interface, name) pair being
// resolved before doing any work, so it catches a cycle whether it loops
// back through a dependency or straight back to the root extension.
func Resolve[T any](b Builder, name string) (T, error) {
	var zero T
	reg := registryFor[T]()
	chain := b.chain
	if chain == nil {
		chain = newChain()
	}
	v, err := reg.getWithChain(orTrue(name), chain)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("extension %q does not implement %s", name, reg.fqn)
	}
	return t, nil
}

func orTrue(name string) string {
	if name == "" {
		return "true"
	}
	return name
}

// InjectionFailureHandler receives every ResolveOptional failure before it
// is swallowed. Defaults to a no-op; a process wires it once at startup
// (cmd/extensionctl does this through dlog) the same way DestroyAll's
// onErr callback reports per-instance teardown failures without aborting
// the others.
var InjectionFailureHandler = func(err *InjectionFailedError) {}

// ResolveOptional resolves a dependency a constructor can do without:
// failure is reported to InjectionFailureHandler and swallowed instead of
// aborting construction, matching the recoverable InjectionFailed policy
// (§7: "a setter throws" logs and continues with the instance) that
// reflection-based setter injection gave optional fields.
func ResolveOptional[T any](b Builder, name, field string) (T, bool) {
	v, err := Resolve[T](b, name)
	if err != nil {
		reg := registryFor[T]()
		InjectionFailureHandler(NewInjectionFailed(reg.fqn, name, field, err))
		var zero T
		return zero, false
	}
	return v, true
}
