package controlplane

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cuemby/agw/internal/configstore"
	"github.com/cuemby/agw/internal/controlplane/agwpb"
	"github.com/cuemby/agw/internal/gwtypes"
	"github.com/cuemby/agw/pkg/log"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	bootstrapRetryInterval = 2 * time.Second
	backgroundRetryBackoff = 5 * time.Second
)

// Client subscribes to the control plane's streaming configuration RPC.
type Client struct {
	addr    string
	node    agwpb.Node
	logger  zerolog.Logger
	dialer  func(addr string) (*grpc.ClientConn, error)
}

// New creates a Client for the control plane at addr, identifying itself
// with the given node id. Authenticating the control-plane channel is
// unspecified (spec Open Question); the connection is plaintext gRPC.
func New(addr, nodeID string) *Client {
	return &Client{
		addr: addr,
		node: agwpb.Node{ID: nodeID, Region: "default", Version: "1"},
		logger: log.WithComponent("controlplane"),
		dialer: func(addr string) (*grpc.ClientConn, error) {
			return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		},
	}
}

// Bootstrap blocks until a valid snapshot (non-empty Listeners) has been
// received, retrying the full connect-and-stream sequence every 2 seconds
// on any failure or empty snapshot. It never gives up on its own; only ctx
// cancellation or process death stops it early.
func (c *Client) Bootstrap(ctx context.Context) (*gwtypes.ConfigSnapshot, error) {
	for {
		snap, err := c.tryBootstrapOnce(ctx)
		if err == nil {
			return snap, nil
		}
		c.logger.Warn().Err(err).Msg("bootstrap attempt failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(bootstrapRetryInterval):
		}
	}
}

func (c *Client) tryBootstrapOnce(ctx context.Context) (*gwtypes.ConfigSnapshot, error) {
	conn, err := c.dialer(c.addr)
	if err != nil {
		return nil, fmt.Errorf("dial control plane: %w", err)
	}
	defer conn.Close()

	stream, err := c.openStream(ctx, conn)
	if err != nil {
		return nil, err
	}

	wire, err := recvSnapshot(stream)
	if err != nil {
		return nil, err
	}
	snap := fromWire(wire)
	if len(snap.Listeners) == 0 {
		return nil, fmt.Errorf("bootstrap snapshot %s has no listeners", snap.VersionID)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("bootstrap snapshot failed validation: %w", err)
	}
	return snap, nil
}

// Run is the steady-state background loop. It publishes every subsequent
// valid snapshot into store, reconnecting with a 5 second backoff on
// stream failure. It runs until ctx is cancelled.
func (c *Client) Run(ctx context.Context, store *configstore.Store) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.streamInto(ctx, store); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error().Err(err).Msg("config stream error, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backgroundRetryBackoff):
		}
	}
}

func (c *Client) streamInto(ctx context.Context, store *configstore.Store) error {
	conn, err := c.dialer(c.addr)
	if err != nil {
		return fmt.Errorf("dial control plane: %w", err)
	}
	defer conn.Close()

	stream, err := c.openStream(ctx, conn)
	if err != nil {
		return err
	}

	for {
		wire, err := recvSnapshot(stream)
		if err != nil {
			return err
		}
		snap := fromWire(wire)
		if err := snap.Validate(); err != nil {
			c.logger.Warn().Err(err).Str("version", snap.VersionID).Msg("dropping malformed snapshot, previous snapshot remains in force")
			continue
		}
		store.Store(snap)
		c.logger.Info().Str("version", snap.VersionID).Msg("published new config snapshot")
	}
}

func (c *Client) openStream(ctx context.Context, conn *grpc.ClientConn) (grpc.ClientStream, error) {
	desc := &grpc.StreamDesc{
		StreamName:    agwpb.StreamConfigMethodName,
		ServerStreams: true,
	}
	stream, err := conn.NewStream(ctx, desc, agwpb.StreamConfigFullMethod, grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return nil, fmt.Errorf("open config stream: %w", err)
	}
	if err := stream.SendMsg(&c.node); err != nil {
		return nil, fmt.Errorf("send node handshake: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("close send side: %w", err)
	}
	return stream, nil
}

func recvSnapshot(stream grpc.ClientStream) (*agwpb.ConfigSnapshot, error) {
	var msg agwpb.ConfigSnapshot
	if err := stream.RecvMsg(&msg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("control plane closed the stream: %w", err)
		}
		return nil, fmt.Errorf("receive snapshot: %w", err)
	}
	return &msg, nil
}
