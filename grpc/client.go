package dewgrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// Client calls a remote PayloadService over gRPC using dewberry
// serialization.
type Client struct {
	cc *grpc.ClientConn
}

// Dial connects to a remote PayloadService.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(Codec{}),
	))
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dewgrpc: dial %s: %w", addr, err)
	}
	return &Client{cc: cc}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

// Inspect diagnoses a payload remotely.
func (c *Client) Inspect(ctx context.Context, payload []byte) (*InspectResponse, error) {
	req := &PayloadRequest{Payload: payload}
	resp := new(InspectResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Inspect"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Canonicalize rewrites a payload to minimal widths remotely.
func (c *Client) Canonicalize(ctx context.Context, payload []byte) (*CanonicalizeResponse, error) {
	req := &PayloadRequest{Payload: payload}
	resp := new(CanonicalizeResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Canonicalize"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Check reports whether a payload is structurally valid.
func (c *Client) Check(ctx context.Context, payload []byte) (*CheckResponse, error) {
	req := &PayloadRequest{Payload: payload}
	resp := new(CheckResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Check"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
