package transports

import (
	"context"

	geyserv1 "github.com/rzbill/geyserd/api/geyser/v1"
)

// BlockRef is the latest block answer of GetLatestBlockhash.
type BlockRef struct {
	Slot                 uint64
	Blockhash            string
	LastValidBlockHeight uint64
}

// GeyserTransport abstracts the transport used by the CLI.
type GeyserTransport interface {
	// Subscribe sends req as the first frame and calls onUpdate for every
	// update until ctx ends, the server closes the stream or onUpdate fails.
	Subscribe(ctx context.Context, req *geyserv1.SubscribeRequest, onUpdate func(*geyserv1.SubscribeUpdate) error) error
	Ping(ctx context.Context, count int32) (int32, error)
	GetSlot(ctx context.Context, level geyserv1.CommitmentLevel) (uint64, error)
	GetBlockHeight(ctx context.Context, level geyserv1.CommitmentLevel) (uint64, error)
	GetLatestBlockhash(ctx context.Context, level geyserv1.CommitmentLevel) (BlockRef, error)
	IsBlockhashValid(ctx context.Context, hash string, level geyserv1.CommitmentLevel) (valid bool, slot uint64, err error)
	GetVersion(ctx context.Context) (string, error)
}
