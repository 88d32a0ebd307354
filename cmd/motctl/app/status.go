package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpcmw "github.com/autopeer-io/motwatch/internal/pkg/middleware/grpc"
	grpcserver "github.com/autopeer-io/motwatch/internal/watcher/server/grpc"
)

func newStatusCommand(ctx context.Context) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Ask a running motwatch whether its last poll cycle settled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := dialHealth(addr, timeout)
			if err != nil {
				return err
			}
			defer conn.Close()
			return checkHealth(ctx, cmd.OutOrStdout(), conn)
		},
	}
	cmd.Flags().StringVar(&addr, "server", "localhost:8091", "gRPC address of the motwatch daemon.")
	cmd.Flags().DurationVar(&timeout, "timeout", grpcmw.DefaultRPCTimeout, "Timeout of the health check call.")
	return cmd
}

func dialHealth(target string, timeout time.Duration, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpcmw.UnaryClientTimeout(timeout)),
	}, extra...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}
	return conn, nil
}

// checkHealth prints the poller service status and fails unless it is SERVING.
func checkHealth(ctx context.Context, out io.Writer, conn grpc.ClientConnInterface) error {
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{
		Service: grpcserver.PollerService,
	})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	status := resp.GetStatus()
	fmt.Fprintf(out, "%s: %s\n", grpcserver.PollerService, status)
	if status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("poller is %s", status)
	}
	return nil
}
