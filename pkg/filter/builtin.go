package filter

import (
	"context"
	"time"

	"github.com/datawire/dlib/dlog"

	"github.com/telepresenceio/go-extension/pkg/extension"
)

// AccessLog logs each invocation's method/duration around the rest of the
// chain, active on the provider side only (group "provider"), the same
// side Dubbo's own AccessLogFilter runs on.
type AccessLog struct{}

func init() {
	register("accesslog",
		extension.ActivationDescriptor{Group: []string{"provider"}, Order: 10},
		"github.com/telepresenceio/go-extension/pkg/filter.AccessLog",
		func() Filter { return AccessLog{} })
}

// Invoke implements Filter.
func (AccessLog) Invoke(ctx context.Context, req string, next InvokeFunc) (string, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	dlog.Debugf(ctx, "accesslog: req=%q elapsed=%s err=%v", req, time.Since(start), err)
	return resp, err
}

// Trace prefixes the request with a trace marker before delegating. It
// declares no group, so it is a candidate on both sides, but it activates
// only when the URL carries a non-empty "trace" parameter (or a suffix
// match like "rpc.trace"), demonstrating a key-match activation.
type Trace struct{}

func init() {
	register("trace",
		extension.ActivationDescriptor{Order: 5, Keys: []extension.KeyMatch{{Key: "trace"}}},
		"github.com/telepresenceio/go-extension/pkg/filter.Trace",
		func() Filter { return Trace{} })
}

// Invoke implements Filter.
func (Trace) Invoke(ctx context.Context, req string, next InvokeFunc) (string, error) {
	return next(ctx, "trace:"+req)
}

// Echo is a normal, non-activatable Filter: it never appears in
// GetActivateExtension's output (no ActivationDescriptor is registered
// for it), so it must be requested by name explicitly.
type Echo struct{}

func init() {
	extension.RegisterClass("github.com/telepresenceio/go-extension/pkg/filter.Echo",
		func(b extension.Builder) (interface{}, error) { return Echo{}, nil })
	_ = extension.For[Filter]().AddExtension("echo", "github.com/telepresenceio/go-extension/pkg/filter.Echo")
}

// Invoke implements Filter.
func (Echo) Invoke(ctx context.Context, req string, next InvokeFunc) (string, error) {
	return next(ctx, req)
}
