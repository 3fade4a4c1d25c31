// Package loadbalance implements a family of per-call endpoint-selection
// algorithms: least-active, round-robin, and random, all hosted as the
// LoadBalancer extension point via pkg/extension so a caller picks its
// algorithm by name through the registry. No adaptive class is registered
// for LoadBalancer, so GetAdaptive on its registry fails.
package loadbalance

import (
	"github.com/telepresenceio/go-extension/pkg/extension"
)

// Endpoint is the minimal contract a candidate service instance must
// satisfy: its current weight (possibly reduced by a warm-up curve) and its
// current count of in-flight calls. Concrete endpoints are an out-of-scope
// external collaborator — this module only depends on the weight/active-
// count contract.
type Endpoint interface {
	Weight() int
	ActiveCount() int
}

// LoadBalancer picks one endpoint out of candidates for invocation on u.
// candidates must be non-empty; callers are responsible for that contract.
type LoadBalancer interface {
	Select(candidates []Endpoint, u *extension.URL, methodName string) (Endpoint, error)
}

func init() {
	extension.Extensible[LoadBalancer]("leastactive")
}

// register is called by each algorithm's own init() to publish its
// constructor into the process-wide class table (pkg/extension's
// database/sql-driver-style self-registration).
func register(name, classPath string, ctor func() LoadBalancer) {
	extension.RegisterClass(classPath, func(b extension.Builder) (interface{}, error) {
		return ctor(), nil
	})
	reg := extension.For[LoadBalancer]()
	_ = reg.AddExtension(name, classPath)
}
