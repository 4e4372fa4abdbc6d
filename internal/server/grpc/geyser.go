package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding/gzip"
	"google.golang.org/grpc/peer"

	geyserv1 "github.com/rzbill/geyserd/api/geyser/v1"
	"github.com/rzbill/geyserd/internal/engine"
	"github.com/rzbill/geyserd/internal/message"
	geysersvc "github.com/rzbill/geyserd/internal/services/geyser"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

type geyserSvc struct {
	geyserv1.UnimplementedGeyserServer
	svc    *geysersvc.Service
	gzip   bool
	logger logpkg.Logger
}

type frameSource struct {
	stream geyserv1.Geyser_SubscribeServer
}

func (f frameSource) Recv() (geysersvc.Frame, error) {
	req, err := f.stream.Recv()
	if err != nil {
		return geysersvc.Frame{}, err
	}
	var fr geysersvc.Frame
	if req.Ping != nil {
		id := req.Ping.ID
		fr.Ping = &id
	}
	if !req.PingOnly() {
		fr.Request = req.FilterRequest()
	}
	return fr, nil
}

type grpcSink struct {
	stream geyserv1.Geyser_SubscribeServer
}

func (g grpcSink) Send(it engine.Item) error {
	upd := updateFromItem(it)
	if err := g.stream.Send(upd); err != nil {
		return err
	}
	grpcUpdatesSent.WithLabelValues(payloadName(upd)).Inc()
	return nil
}
func (g grpcSink) Context() context.Context { return g.stream.Context() }
func (g grpcSink) Flush() error             { return nil }

func (s *geyserSvc) Subscribe(stream geyserv1.Geyser_SubscribeServer) error {
	ctx := stream.Context()
	if s.gzip {
		_ = grpc.SetSendCompressor(ctx, gzip.Name)
	}
	remote := ""
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		remote = p.Addr.String()
	}
	err := s.svc.Subscribe(ctx, remote, frameSource{stream: stream}, grpcSink{stream: stream})
	return toStatus(err)
}

func (s *geyserSvc) Ping(_ context.Context, req *geyserv1.PingRequest) (*geyserv1.PongResponse, error) {
	return &geyserv1.PongResponse{Count: s.svc.Ping(req.Count)}, nil
}

func (s *geyserSvc) GetLatestBlockhash(_ context.Context, req *geyserv1.GetLatestBlockhashRequest) (*geyserv1.GetLatestBlockhashResponse, error) {
	ref, err := s.svc.GetLatestBlockhash(geyserv1.LevelOrDefault(req.Commitment))
	if err != nil {
		return nil, toStatus(err)
	}
	return &geyserv1.GetLatestBlockhashResponse{
		Slot:                 ref.Slot,
		Blockhash:            ref.Blockhash,
		LastValidBlockHeight: ref.LastValidBlockHeight,
	}, nil
}

func (s *geyserSvc) GetBlockHeight(_ context.Context, req *geyserv1.GetBlockHeightRequest) (*geyserv1.GetBlockHeightResponse, error) {
	h, err := s.svc.GetBlockHeight(geyserv1.LevelOrDefault(req.Commitment))
	if err != nil {
		return nil, toStatus(err)
	}
	return &geyserv1.GetBlockHeightResponse{BlockHeight: h}, nil
}

func (s *geyserSvc) GetSlot(_ context.Context, req *geyserv1.GetSlotRequest) (*geyserv1.GetSlotResponse, error) {
	return &geyserv1.GetSlotResponse{Slot: s.svc.GetSlot(geyserv1.LevelOrDefault(req.Commitment))}, nil
}

func (s *geyserSvc) IsBlockhashValid(_ context.Context, req *geyserv1.IsBlockhashValidRequest) (*geyserv1.IsBlockhashValidResponse, error) {
	valid, slot := s.svc.IsBlockhashValid(req.Blockhash, geyserv1.LevelOrDefault(req.Commitment))
	return &geyserv1.IsBlockhashValidResponse{Slot: slot, Valid: valid}, nil
}

func (s *geyserSvc) GetVersion(context.Context, *geyserv1.GetVersionRequest) (*geyserv1.GetVersionResponse, error) {
	return &geyserv1.GetVersionResponse{Version: s.svc.Version()}, nil
}

// updateFromItem builds the wire frame for one engine item.
func updateFromItem(it engine.Item) *geyserv1.SubscribeUpdate {
	upd := &geyserv1.SubscribeUpdate{Filters: it.Filters, CreatedAt: it.CreatedAt}
	switch {
	case it.Ping:
		upd.Ping = &geyserv1.SubscribeUpdatePing{}
	case it.Pong != nil:
		upd.Pong = &geyserv1.SubscribeUpdatePong{ID: *it.Pong}
	case it.Err != nil:
		upd.Error = &geyserv1.SubscribeUpdateError{Message: it.Err.Error()}
	case it.Message != nil:
		m := it.Message
		switch m.Kind {
		case message.KindSlot:
			upd.Slot = m.SlotInfo
		case message.KindAccount:
			upd.Account = &geyserv1.SubscribeUpdateAccount{Account: m.Account, Slot: m.Slot, IsStartup: m.Account.IsStartup}
		case message.KindTransaction:
			if it.Status {
				tx := m.Transaction
				upd.TransactionStatus = &geyserv1.SubscribeUpdateTransactionStatus{
					Slot:      m.Slot,
					Signature: tx.Signature[:],
					IsVote:    tx.IsVote,
					Index:     tx.Index,
					Err:       tx.Err,
				}
			} else {
				upd.Transaction = &geyserv1.SubscribeUpdateTransaction{Transaction: m.Transaction, Slot: m.Slot}
			}
		case message.KindBlock:
			upd.Block = m.Block
		case message.KindBlockMeta:
			upd.BlockMeta = m.BlockMeta
		case message.KindEntry:
			upd.Entry = m.Entry
		}
	}
	return upd
}

func payloadName(u *geyserv1.SubscribeUpdate) string {
	switch {
	case u.Account != nil:
		return "account"
	case u.Slot != nil:
		return "slot"
	case u.Transaction != nil:
		return "transaction"
	case u.TransactionStatus != nil:
		return "transaction_status"
	case u.Block != nil:
		return "block"
	case u.BlockMeta != nil:
		return "block_meta"
	case u.Entry != nil:
		return "entry"
	case u.Ping != nil:
		return "ping"
	case u.Pong != nil:
		return "pong"
	default:
		return "error"
	}
}
