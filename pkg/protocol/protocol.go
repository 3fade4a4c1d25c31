// Package protocol hosts the Protocol extension point: the top-level
// pluggable surface spec.md §8 scenario 1 names directly ("Descriptor
// `protocol` contains `dubbo=...DubboProtocol`, `injvm=...InjvmProtocol`,
// default `dubbo`"). This module renames the two stock implementations to
// its own domain names — `grpc` (the networked default) and `inprocess`
// (the zero-network-hop peer) — consistent with the `threadname` default
// rename in pkg/threadpool, but keeps the scenario's exact shape: two
// named Protocol singletons, a declared default, and get("true")/get(name)
// resolving through the same registry machinery as every other extension
// point in this module.
package protocol

import (
	"context"
	"net"

	"github.com/telepresenceio/go-extension/pkg/extension"
	"github.com/telepresenceio/go-extension/pkg/transport"
)

// Protocol is the top-level pluggable surface a call site resolves by name
// (or the "grpc" default) through the registry; no adaptive Protocol class
// is registered. It names itself and opens connections through the
// Transport its implementation names: "tcp" for GRPC, "inprocess" for
// InProcess, regardless of the URL. The RPC invocation pipeline itself remains an out-of-scope
// external collaborator per spec.md §1; Protocol here stops at connection
// establishment.
type Protocol interface {
	Name() string
	Dial(ctx context.Context, u *extension.URL) (net.Conn, error)
	Listen(u *extension.URL) (net.Listener, error)
}

func init() {
	extension.Extensible[Protocol]("grpc")
}

func register(name, classPath string, ctor func(b extension.Builder) (Protocol, error)) {
	extension.RegisterClass(classPath, func(b extension.Builder) (interface{}, error) {
		return ctor(b)
	})
	reg := extension.For[Protocol]()
	_ = reg.AddExtension(name, classPath)
}

// transportNamed resolves the Transport a Protocol implementation uses by
// a fixed name through the builder-based Ref[T]/Resolve machinery
// (pkg/extension's replacement for reflective setter injection), rather
// than reaching for the registry directly.
func transportNamed(b extension.Builder, name string) (transport.Transport, error) {
	return extension.Resolve[transport.Transport](b, name)
}
