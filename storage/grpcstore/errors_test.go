package grpcstore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/provenir/provenir/cidutil"
	"github.com/provenir/provenir/storage"
	"github.com/provenir/provenir/storage/testkit"
)

func TestStatusCodesRoundTripStorageSentinels(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"not found", storage.ErrNotFound, storage.ErrNotFound},
		{"invalid uri", storage.ErrInvalidURI, storage.ErrInvalidURI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := mapErr(tt.in)
			if _, ok := status.FromError(wire); !ok {
				t.Fatalf("mapErr produced a non-status error: %v", wire)
			}
			back := mapRPC(wire)
			if !errors.Is(back, tt.want) {
				t.Fatalf("round trip: got %v, want %v", back, tt.want)
			}
		})
	}
}

func TestMapRPCPassesThroughOtherErrors(t *testing.T) {
	internal := status.Error(codes.Internal, "backend exploded")
	if got := mapRPC(internal); !errors.Is(got, internal) {
		t.Fatalf("internal status was rewritten: %v", got)
	}
	plain := errors.New("not a status at all")
	if got := mapRPC(plain); got != plain {
		t.Fatalf("plain error was rewritten: %v", got)
	}
	if mapRPC(nil) != nil || mapErr(nil) != nil {
		t.Fatalf("nil error was rewritten")
	}
}

func TestServerHandlersMapStorageErrors(t *testing.T) {
	ctx := context.Background()
	srv := &Server{Provider: testkit.NewProvider()}

	uri, err := cidutil.URIForBytes([]byte("never uploaded"))
	if err != nil {
		t.Fatalf("URIForBytes failed: %v", err)
	}
	_, err = srv.Fetch(ctx, wrapperspb.String(uri))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("Fetch(missing) code = %v, want NotFound", status.Code(err))
	}

	_, err = srv.Fetch(ctx, wrapperspb.String("ipfs://not-a-cid"))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("Fetch(invalid) code = %v, want InvalidArgument", status.Code(err))
	}

	out, err := srv.Upload(ctx, wrapperspb.Bytes([]byte("stored over the wire")))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	got, err := srv.Fetch(ctx, wrapperspb.String(out.GetValue()))
	if err != nil {
		t.Fatalf("Fetch after upload failed: %v", err)
	}
	if string(got.GetValue()) != "stored over the wire" {
		t.Fatalf("Fetch bytes mismatch")
	}
}
