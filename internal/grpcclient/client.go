// Package grpcclient talks to a remote text recognition service. Requests
// and replies use protobuf wrapper messages: PNG bytes in, text out.
package grpcclient

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/resilience"
	"github.com/GriffinCanCode/crumbot/internal/trace"
)

// Client calls the remote OCR service behind a circuit breaker.
type Client struct {
	conn    *grpc.ClientConn
	health  healthpb.HealthClient
	breaker *resilience.Breaker
	timeout time.Duration
}

// New creates a client for addr. The connection is established lazily.
func New(addr string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    DefaultKeepaliveTime,
			Timeout: DefaultKeepaliveTimeout,
		}),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.OCRUnavailable, "dial %s", addr)
	}
	return &Client{
		conn:    conn,
		health:  healthpb.NewHealthClient(conn),
		breaker: resilience.New(resilience.OCRConfig("remote-ocr")),
		timeout: timeout,
	}, nil
}

// Breaker exposes the circuit breaker so callers can hook state changes.
func (c *Client) Breaker() *resilience.Breaker { return c.breaker }

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// ExtractText sends PNG bytes and returns the recognised text.
func (c *Client) ExtractText(ctx context.Context, png []byte) (string, error) {
	text, err := resilience.ExecuteWithResult(c.breaker, func() (string, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		out := new(wrapperspb.StringValue)
		if err := c.conn.Invoke(ctx, ExtractTextMethod, wrapperspb.Bytes(png), out); err != nil {
			return "", err
		}
		return out.GetValue(), nil
	})
	if err == resilience.ErrOpen {
		return "", apperrors.Wrap(err, apperrors.OCRUnavailable, "remote ocr circuit open")
	}
	if err != nil {
		return "", apperrors.FromGRPCError(err)
	}
	return text, nil
}

// Healthy probes the standard gRPC health service.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
}

// Server is implemented by OCR services compatible with Client.
type Server interface {
	ExtractText(ctx context.Context, png []byte) (string, error)
}

// Register exposes srv on s under the service name Client calls.
func Register(s *grpc.Server, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "ExtractText",
		Handler:    extractTextHandler,
	}},
	Streams: []grpc.StreamDesc{},
}

func extractTextHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		text, err := srv.(Server).ExtractText(ctx, req.(*wrapperspb.BytesValue).GetValue())
		if err != nil {
			return nil, err
		}
		return wrapperspb.String(text), nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractTextMethod}
	return interceptor(ctx, in, info, call)
}
