package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc/test/bufconn"

	"github.com/telepresenceio/go-extension/pkg/extension"
)

// InProcess is a Transport with no real network hop: Listen publishes an
// in-memory bufconn.Listener under the URL's "channel" parameter, and
// Dial looks that same channel back up. Grounded on
// google.golang.org/grpc/test/bufconn, already a pack dependency via the
// module's grpc demo surface, rather than a hand-rolled net.Pipe broker.
type InProcess struct{}

func init() {
	register("inprocess", "github.com/telepresenceio/go-extension/pkg/transport.InProcess",
		func() Transport { return InProcess{} })
}

var channels sync.Map // channel name -> *bufconn.Listener

const defaultChannel = "default"

func channelName(u *extension.URL) string {
	return u.GetParameterOr("channel", defaultChannel)
}

// Listen implements Transport.
func (InProcess) Listen(u *extension.URL) (net.Listener, error) {
	lis := bufconn.Listen(1 << 20)
	channels.Store(channelName(u), lis)
	return lis, nil
}

// Dial implements Transport.
func (InProcess) Dial(ctx context.Context, u *extension.URL) (net.Conn, error) {
	name := channelName(u)
	v, ok := channels.Load(name)
	if !ok {
		return nil, fmt.Errorf("transport: no in-process listener registered for channel %q", name)
	}
	return v.(*bufconn.Listener).DialContext(ctx)
}
