package protocol

import (
	"context"
	"net"

	"github.com/telepresenceio/go-extension/pkg/extension"
	"github.com/telepresenceio/go-extension/pkg/transport"
)

// InProcess is a second Protocol that never leaves the process: it dials
// and listens through the "inprocess" Transport, the same role Dubbo's
// own injvm protocol plays for same-process provider/consumer pairs.
type InProcess struct {
	transport transport.Transport
}

func init() {
	register("inprocess", "github.com/telepresenceio/go-extension/pkg/protocol.InProcess",
		func(b extension.Builder) (Protocol, error) {
			t, err := transportNamed(b, "inprocess")
			if err != nil {
				return nil, err
			}
			return InProcess{transport: t}, nil
		})
}

// Name implements Protocol.
func (InProcess) Name() string { return "inprocess" }

// Dial implements Protocol.
func (p InProcess) Dial(ctx context.Context, u *extension.URL) (net.Conn, error) {
	return p.transport.Dial(ctx, u)
}

// Listen implements Protocol.
func (p InProcess) Listen(u *extension.URL) (net.Listener, error) {
	return p.transport.Listen(u)
}
