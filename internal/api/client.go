package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client talks to a profile daemon over its Unix socket.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// Dial connects lazily; the first call reports an unreachable daemon.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn, health: healthpb.NewHealthClient(conn)}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call invokes a unary method with req as its Struct fields.
func (c *Client) Call(ctx context.Context, method string, req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// Health reports the serving status of the monitor service.
func (c *Client) Health(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// EventStream receives WatchEvents envelopes.
type EventStream struct {
	stream grpc.ClientStream
}

// Watch subscribes to daemon events whose kind starts with one of prefixes
// (all events when empty). Cancel ctx to stop.
func (c *Client) Watch(ctx context.Context, prefixes ...string) (*EventStream, error) {
	list := make([]any, len(prefixes))
	for i, p := range prefixes {
		list[i] = p
	}
	in, err := structpb.NewStruct(map[string]any{"prefixes": list})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	cs, err := c.conn.NewStream(ctx, &MonitorServiceDesc.Streams[0], "/"+ServiceName+"/"+MethodWatchEvents)
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(in); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: cs}, nil
}

// Recv blocks for the next envelope.
func (s *EventStream) Recv() (map[string]any, error) {
	out := new(structpb.Struct)
	if err := s.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
