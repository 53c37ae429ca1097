package grpcstore

import (
	"context"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/provenir/provenir/cidutil"
	"github.com/provenir/provenir/storage"
)

// Client implements storage.Provider over the Store gRPC service.
//
// Uploads buffer the stream into one message; the daemon protocol is meant
// for manifests and modest content, not multi-gigabyte media.
type Client struct {
	cc     *grpc.ClientConn
	client StoreClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ storage.Provider = (*Client)(nil)

type DialOptions struct {
	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

// Dial connects to a provider daemon.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewStoreClient(cc), Timeout: opts.Timeout}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Name() string { return "grpcstore" }

func (c *Client) Upload(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	reply, err := c.client.Upload(ctx, wrapperspb.Bytes(data))
	if err != nil {
		return "", mapRPC(err)
	}
	uri := reply.GetValue()
	if _, err := cidutil.ParseURI(uri); err != nil {
		return "", storage.ErrInvalidURI
	}
	return uri, nil
}

func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if _, err := cidutil.ParseURI(uri); err != nil {
		return nil, storage.ErrInvalidURI
	}
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	reply, err := c.client.Fetch(ctx, wrapperspb.String(uri))
	if err != nil {
		return nil, mapRPC(err)
	}
	b := reply.GetValue()
	if err := cidutil.VerifyBytes(uri, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}
