// Package transport hosts the Transport extension point: spec.md §1 lists
// transports among the framework's pluggable implementations (alongside
// protocols, serializers, and filters). Two real implementations are
// wired in: a plain TCP transport, and an in-process transport built on
// google.golang.org/grpc's test/bufconn in-memory listener — already a
// pack dependency via the module's existing grpc demo surface, and a much
// closer fit for "in-process" delivery than hand-rolling a net.Pipe
// broker.
package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/telepresenceio/go-extension/pkg/extension"
)

// Transport opens client and server ends of a connection addressed by a
// URL. Concrete application protocols (pkg/protocol) dial/listen through
// the Transport each of them resolves by a fixed name.
type Transport interface {
	Listen(u *extension.URL) (net.Listener, error)
	Dial(ctx context.Context, u *extension.URL) (net.Conn, error)
}

func init() {
	extension.Extensible[Transport]("tcp")
}

func register(name, classPath string, ctor func() Transport) {
	extension.RegisterClass(classPath, func(b extension.Builder) (interface{}, error) {
		return ctor(), nil
	})
	reg := extension.For[Transport]()
	_ = reg.AddExtension(name, classPath)
}

func addr(u *extension.URL) string {
	return fmt.Sprintf("%s:%d", u.Host, u.Port)
}
