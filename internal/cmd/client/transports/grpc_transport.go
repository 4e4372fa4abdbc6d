// Package transports provides pluggable transport implementations for the CLI.
package transports

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	geyserv1 "github.com/rzbill/geyserd/api/geyser/v1"
)

// GrpcTransport implements GeyserTransport over gRPC.
type GrpcTransport struct {
	dial func(ctx context.Context) (*grpc.ClientConn, error)
}

// NewGrpcTransport constructs a new GrpcTransport using the provided dialer.
func NewGrpcTransport(dial func(ctx context.Context) (*grpc.ClientConn, error)) *GrpcTransport {
	return &GrpcTransport{dial: dial}
}

func (t *GrpcTransport) withClient(ctx context.Context, fn func(cli geyserv1.GeyserClient) error) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(geyserv1.NewGeyserClient(conn))
}

// Subscribe opens the stream, sends req and relays updates.
func (t *GrpcTransport) Subscribe(ctx context.Context, req *geyserv1.SubscribeRequest, onUpdate func(*geyserv1.SubscribeUpdate) error) error {
	return t.withClient(ctx, func(cli geyserv1.GeyserClient) error {
		stream, err := cli.Subscribe(ctx)
		if err != nil {
			return err
		}
		if err := stream.Send(req); err != nil {
			return err
		}
		// The server keeps streaming after a half-close.
		if err := stream.CloseSend(); err != nil {
			return err
		}
		for {
			u, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
					return nil
				}
				return err
			}
			if cbErr := onUpdate(u); cbErr != nil {
				return cbErr
			}
		}
	})
}

func (t *GrpcTransport) Ping(ctx context.Context, count int32) (int32, error) {
	var out int32
	err := t.withClient(ctx, func(cli geyserv1.GeyserClient) error {
		res, err := cli.Ping(ctx, &geyserv1.PingRequest{Count: count})
		if err != nil {
			return err
		}
		out = res.Count
		return nil
	})
	return out, err
}

func (t *GrpcTransport) GetSlot(ctx context.Context, level geyserv1.CommitmentLevel) (uint64, error) {
	var out uint64
	err := t.withClient(ctx, func(cli geyserv1.GeyserClient) error {
		res, err := cli.GetSlot(ctx, &geyserv1.GetSlotRequest{Commitment: geyserv1.Level(level)})
		if err != nil {
			return err
		}
		out = res.Slot
		return nil
	})
	return out, err
}

func (t *GrpcTransport) GetBlockHeight(ctx context.Context, level geyserv1.CommitmentLevel) (uint64, error) {
	var out uint64
	err := t.withClient(ctx, func(cli geyserv1.GeyserClient) error {
		res, err := cli.GetBlockHeight(ctx, &geyserv1.GetBlockHeightRequest{Commitment: geyserv1.Level(level)})
		if err != nil {
			return err
		}
		out = res.BlockHeight
		return nil
	})
	return out, err
}

func (t *GrpcTransport) GetLatestBlockhash(ctx context.Context, level geyserv1.CommitmentLevel) (BlockRef, error) {
	var out BlockRef
	err := t.withClient(ctx, func(cli geyserv1.GeyserClient) error {
		res, err := cli.GetLatestBlockhash(ctx, &geyserv1.GetLatestBlockhashRequest{Commitment: geyserv1.Level(level)})
		if err != nil {
			return err
		}
		out = BlockRef{Slot: res.Slot, Blockhash: res.Blockhash, LastValidBlockHeight: res.LastValidBlockHeight}
		return nil
	})
	return out, err
}

func (t *GrpcTransport) IsBlockhashValid(ctx context.Context, hash string, level geyserv1.CommitmentLevel) (bool, uint64, error) {
	var valid bool
	var slot uint64
	err := t.withClient(ctx, func(cli geyserv1.GeyserClient) error {
		res, err := cli.IsBlockhashValid(ctx, &geyserv1.IsBlockhashValidRequest{Blockhash: hash, Commitment: geyserv1.Level(level)})
		if err != nil {
			return err
		}
		valid, slot = res.Valid, res.Slot
		return nil
	})
	return valid, slot, err
}

func (t *GrpcTransport) GetVersion(ctx context.Context) (string, error) {
	var out string
	err := t.withClient(ctx, func(cli geyserv1.GeyserClient) error {
		res, err := cli.GetVersion(ctx, &geyserv1.GetVersionRequest{})
		if err != nil {
			return err
		}
		out = res.Version
		return nil
	})
	return out, err
}
