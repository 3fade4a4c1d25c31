package main

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/datawire/dlib/dlog"

	"github.com/telepresenceio/go-extension/pkg/extension"
	"github.com/telepresenceio/go-extension/pkg/loadbalance"
	"github.com/telepresenceio/go-extension/pkg/supervisor"
	"github.com/telepresenceio/go-extension/pkg/threadpool"
)

// healthChecker reports SERVING for the extension runtime once its default
// LoadBalancer and ThreadPoolFactory extensions have been successfully
// constructed at least once.
type healthChecker struct {
	grpc_health_v1.UnimplementedHealthServer
	ready func() bool
}

func (h *healthChecker) Check(ctx context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	if h.ready() {
		return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
	}
	return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_NOT_SERVING}, nil
}

func serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a minimal gRPC health server reporting extension-registry readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			dlog.Infof(ctx, "extensionctl serve listening on %s", lis.Addr())

			var warm int32
			sup := supervisor.WithContext(ctx)
			sup.Logger = func(format string, args ...interface{}) { dlog.Debugf(ctx, format, args...) }

			srv := grpc.NewServer()
			grpc_health_v1.RegisterHealthServer(srv, &healthChecker{ready: func() bool { return atomic.LoadInt32(&warm) != 0 }})

			sup.Supervise(&supervisor.Worker{
				Name: "warmup",
				Work: func(p *supervisor.Process) error {
					if _, err := extension.For[loadbalance.LoadBalancer]().GetDefault(); err != nil {
						return err
					}
					if _, err := extension.For[threadpool.ThreadPoolFactory]().GetDefault(); err != nil {
						return err
					}
					atomic.StoreInt32(&warm, 1)
					p.Logf("extension registries warmed")
					p.Ready()
					<-p.Shutdown()
					return nil
				},
			})
			sup.Supervise(&supervisor.Worker{
				Name: "grpcd",
				Work: func(p *supervisor.Process) error {
					go func() {
						<-p.Shutdown()
						srv.GracefulStop()
					}()
					return srv.Serve(lis)
				},
			})

			errs := sup.Run()
			if len(errs) > 0 {
				return fmt.Errorf("extensionctl serve: %v", errs)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8081", "address to listen on")
	return cmd
}
