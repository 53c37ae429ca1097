package grpcstore

import (
	"bytes"
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/provenir/provenir/cidutil"
	"github.com/provenir/provenir/storage"
)

// Server exposes any storage.Provider over the Store gRPC service.
type Server struct {
	UnimplementedStoreServer
	Provider storage.Provider
}

func (s *Server) Upload(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Provider == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing provider")
	}
	uri, err := s.Provider.Upload(ctx, bytes.NewReader(in.GetValue()))
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(uri), nil
}

func (s *Server) Fetch(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Provider == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing provider")
	}
	uri := in.GetValue()
	if _, err := cidutil.ParseURI(uri); err != nil {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInvalidURI.Error())
	}
	b, err := s.Provider.Fetch(ctx, uri)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case storage.IsNotFound(err):
		return status.Error(codes.NotFound, storage.ErrNotFound.Error())
	case err == storage.ErrInvalidURI:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
