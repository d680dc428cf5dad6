package dewgrpc

import (
	"context"
	"net"

	"github.com/blockberries/dewberry/inspect"

	"google.golang.org/grpc"
)

// Compile-time interface check.
var _ PayloadServiceServer = (*Server)(nil)

// Server serves PayloadService backed by an inspect.Inspector.
type Server struct {
	ins inspect.Inspector
}

// NewServer creates a server using the given inspector. The zero
// inspector applies the default depth limit.
func NewServer(ins inspect.Inspector) *Server {
	return &Server{ins: ins}
}

// Register adds the PayloadService to a gRPC server.
func (s *Server) Register(gs *grpc.Server) {
	RegisterPayloadServiceServer(gs, s)
}

// Serve starts a gRPC server on the given listener and blocks.
func (s *Server) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs.Serve(lis)
}

func (s *Server) Inspect(_ context.Context, req *PayloadRequest) (*InspectResponse, error) {
	st, err := s.ins.Stats(req.Payload)
	if err != nil {
		return nil, err
	}
	diag, err := s.ins.Diagnose(req.Payload)
	if err != nil {
		return nil, err
	}
	return &InspectResponse{
		Diagnosis: diag,
		Values:    uint64(st.Values),
		TopLevel:  uint64(st.TopLevel),
		MaxDepth:  uint64(st.MaxDepth),
		Bytes:     uint64(st.Bytes),
	}, nil
}

func (s *Server) Canonicalize(_ context.Context, req *PayloadRequest) (*CanonicalizeResponse, error) {
	canonical, changed, err := s.ins.Canonicalize(req.Payload)
	if err != nil {
		return nil, err
	}
	return &CanonicalizeResponse{Canonical: canonical, Changed: changed}, nil
}

func (s *Server) Check(_ context.Context, req *PayloadRequest) (*CheckResponse, error) {
	if err := s.ins.Validate(req.Payload); err != nil {
		return &CheckResponse{Valid: false, Error: err.Error()}, nil
	}
	return &CheckResponse{Valid: true}, nil
}
