package client

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"os"
	"time"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding/gzip"

	geyserv1 "github.com/rzbill/geyserd/api/geyser/v1"
	transports "github.com/rzbill/geyserd/internal/cmd/client/transports"
)

const defaultGRPCAddr = "127.0.0.1:10000"

// connOptions are the connection flags shared by every client command.
type connOptions struct {
	addr   string
	token  string
	tls    bool
	caFile string
	gzip   bool
}

func bindConnFlags(cmd *cobra.Command, o *connOptions) {
	f := cmd.Flags()
	f.StringVar(&o.addr, "grpc", envDefault("GEYSER_GRPC", defaultGRPCAddr), "gRPC server address")
	f.StringVar(&o.token, "x-token", os.Getenv("GEYSER_X_TOKEN"), "x-token sent with every call")
	f.BoolVar(&o.tls, "tls", false, "Use TLS")
	f.StringVar(&o.caFile, "ca-file", "", "CA certificate for TLS (default: system roots)")
	f.BoolVar(&o.gzip, "gzip", false, "Request gzip compression")
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// tokenCreds attaches the x-token header to every call.
type tokenCreds struct {
	token  string
	secure bool
}

func (c tokenCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"x-token": c.token}, nil
}

func (c tokenCreds) RequireTransportSecurity() bool { return c.secure }

func (o *connOptions) dialOptions() ([]grpc.DialOption, error) {
	var opts []grpc.DialOption
	if o.tls {
		var creds credentials.TransportCredentials
		if o.caFile != "" {
			c, err := credentials.NewClientTLSFromFile(o.caFile, "")
			if err != nil {
				return nil, err
			}
			creds = c
		} else {
			creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
		}
		opts = append(opts, grpc.WithTransportCredentials(creds))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	if o.token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(tokenCreds{token: o.token, secure: o.tls}))
	}
	if o.gzip {
		opts = append(opts, grpc.WithDefaultCallOptions(grpc.UseCompressor(gzip.Name)))
	}
	return opts, nil
}

// dial connects to the geyserd gRPC endpoint.
func (o *connOptions) dial(_ context.Context) (*grpc.ClientConn, error) {
	opts, err := o.dialOptions()
	if err != nil {
		return nil, err
	}
	return grpc.NewClient(o.addr, opts...)
}

func (o *connOptions) transport() transports.GeyserTransport {
	return transports.NewGrpcTransport(o.dial)
}

// renderUpdate flattens an update to a JSON-friendly map with base58 keys.
func renderUpdate(u *geyserv1.SubscribeUpdate) map[string]any {
	out := map[string]any{"filters": u.Filters}
	if !u.CreatedAt.IsZero() {
		out["created_at"] = u.CreatedAt.Format(time.RFC3339Nano)
	}
	switch {
	case u.Slot != nil:
		out["kind"] = "slot"
		out["slot"] = u.Slot.Slot
		out["status"] = u.Slot.Status.String()
		if u.Slot.Parent != nil {
			out["parent"] = *u.Slot.Parent
		}
		if u.Slot.DeadError != "" {
			out["dead_error"] = u.Slot.DeadError
		}
	case u.Account != nil:
		a := u.Account.Account
		out["kind"] = "account"
		out["slot"] = u.Account.Slot
		out["pubkey"] = a.Pubkey.String()
		out["owner"] = a.Owner.String()
		out["lamports"] = a.Lamports
		out["write_version"] = a.WriteVersion
		out["data_b64"] = base64.StdEncoding.EncodeToString(a.Data)
		if a.TxnSignature != nil {
			out["txn_signature"] = a.TxnSignature.String()
		}
	case u.Transaction != nil:
		tx := u.Transaction.Transaction
		out["kind"] = "transaction"
		out["slot"] = u.Transaction.Slot
		out["signature"] = tx.Signature.String()
		out["is_vote"] = tx.IsVote
		out["index"] = tx.Index
		if tx.Err != "" {
			out["err"] = tx.Err
		}
		keys := make([]string, 0, len(tx.AccountKeys))
		for _, k := range tx.AccountKeys {
			keys = append(keys, k.String())
		}
		out["account_keys"] = keys
	case u.TransactionStatus != nil:
		st := u.TransactionStatus
		out["kind"] = "transaction_status"
		out["slot"] = st.Slot
		out["signature"] = base58.Encode(st.Signature)
		out["is_vote"] = st.IsVote
		out["index"] = st.Index
		if st.Err != "" {
			out["err"] = st.Err
		}
	case u.Block != nil:
		out["kind"] = "block"
		out["slot"] = u.Block.Slot
		out["blockhash"] = u.Block.Blockhash
		out["transactions"] = len(u.Block.Transactions)
		out["accounts"] = len(u.Block.Accounts)
		out["entries"] = len(u.Block.Entries)
	case u.BlockMeta != nil:
		out["kind"] = "block_meta"
		out["slot"] = u.BlockMeta.Slot
		out["blockhash"] = u.BlockMeta.Blockhash
		out["parent_slot"] = u.BlockMeta.ParentSlot
		if u.BlockMeta.BlockHeight != nil {
			out["block_height"] = *u.BlockMeta.BlockHeight
		}
	case u.Entry != nil:
		out["kind"] = "entry"
		out["slot"] = u.Entry.Slot
		out["index"] = u.Entry.Index
		out["hash"] = base58.Encode(u.Entry.Hash)
	case u.Ping != nil:
		out["kind"] = "ping"
	case u.Pong != nil:
		out["kind"] = "pong"
		out["id"] = u.Pong.ID
	case u.Error != nil:
		out["kind"] = "error"
		out["message"] = u.Error.Message
	}
	return out
}
