package geyserv1

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/grpc/encoding"

	// solana key encoders live next to the message types
	_ "github.com/rzbill/geyserd/internal/message"
)

// CodecName is the gRPC content subtype carried by every geyser call.
const CodecName = "msgpack"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec marshals geyser messages with msgpack.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("geyserv1: marshal %T: %w", v, err)
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("geyserv1: unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string { return CodecName }
