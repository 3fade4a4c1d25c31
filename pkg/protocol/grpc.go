package protocol

import (
	"context"
	"net"

	"github.com/telepresenceio/go-extension/pkg/extension"
	"github.com/telepresenceio/go-extension/pkg/transport"
)

// GRPC is the default Protocol: it dials and listens through the "tcp"
// Transport, the real networked path a production deployment uses.
type GRPC struct {
	transport transport.Transport
}

func init() {
	register("grpc", "github.com/telepresenceio/go-extension/pkg/protocol.GRPC",
		func(b extension.Builder) (Protocol, error) {
			t, err := transportNamed(b, "tcp")
			if err != nil {
				return nil, err
			}
			return GRPC{transport: t}, nil
		})
}

// Name implements Protocol.
func (GRPC) Name() string { return "grpc" }

// Dial implements Protocol.
func (p GRPC) Dial(ctx context.Context, u *extension.URL) (net.Conn, error) {
	return p.transport.Dial(ctx, u)
}

// Listen implements Protocol.
func (p GRPC) Listen(u *extension.URL) (net.Listener, error) {
	return p.transport.Listen(u)
}
