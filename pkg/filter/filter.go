// Package filter hosts the Filter extension point named in spec.md §1's
// list of pluggable surfaces. Unlike LoadBalancer or Serializer, a Filter
// chain is not resolved by a single adaptive lookup: it is assembled by
// GetActivateExtension itself, exactly the activation protocol's
// canonical use (a provider or consumer side collects every Filter whose
// group/key constraints match the call, in priority order, then composes
// them around the real invocation) — the one piece of this module's scope
// the activation protocol exists to serve.
package filter

import (
	"context"

	"github.com/telepresenceio/go-extension/pkg/extension"
)

// InvokeFunc is one step of a filter chain: the real RPC invocation, or
// the continuation a Filter delegates to.
type InvokeFunc func(ctx context.Context, req string) (string, error)

// Filter wraps an invocation with cross-cutting behavior, calling next to
// continue the chain (or short-circuiting by not calling it at all).
type Filter interface {
	Invoke(ctx context.Context, req string, next InvokeFunc) (string, error)
}

func init() {
	extension.Extensible[Filter]("")
}

func register(name string, desc extension.ActivationDescriptor, classPath string, ctor func() Filter) {
	extension.RegisterClass(classPath, func(b extension.Builder) (interface{}, error) {
		return ctor(), nil
	})
	reg := extension.For[Filter]()
	_ = reg.AddExtension(name, classPath)
	reg.RegisterActivation(name, desc)
}

// Chain folds filters right-to-left around final, so filters[0] is
// outermost: it runs first on the way in and last on the way out, the
// same nesting order GetActivateExtension's output implies.
func Chain(filters []Filter, final InvokeFunc) InvokeFunc {
	next := final
	for i := len(filters) - 1; i >= 0; i-- {
		f := filters[i]
		prevNext := next
		next = func(ctx context.Context, req string) (string, error) {
			return f.Invoke(ctx, req, prevNext)
		}
	}
	return next
}

// BuildChain resolves the filter chain active for u/group (via
// GetActivateExtension) and composes it around final, in one call.
func BuildChain(u *extension.URL, requested []string, group string, final InvokeFunc) (InvokeFunc, error) {
	fs, err := extension.For[Filter]().GetActivateExtension(u, requested, group)
	if err != nil {
		return nil, err
	}
	return Chain(fs, final), nil
}
