package message

import (
	"fmt"
	"reflect"

	"github.com/gagliardetto/solana-go"
	"github.com/vmihailenco/msgpack/v5"
)

// Keys and signatures travel as raw bytes rather than base58 text.
func init() {
	msgpack.Register(solana.PublicKey{},
		func(e *msgpack.Encoder, v reflect.Value) error {
			pk := v.Interface().(solana.PublicKey)
			return e.EncodeBytes(pk[:])
		},
		func(d *msgpack.Decoder, v reflect.Value) error {
			b, err := d.DecodeBytes()
			if err != nil {
				return err
			}
			if len(b) != solana.PublicKeyLength {
				return fmt.Errorf("message: pubkey length %d", len(b))
			}
			v.Set(reflect.ValueOf(solana.PublicKeyFromBytes(b)))
			return nil
		})
	msgpack.Register(solana.Signature{},
		func(e *msgpack.Encoder, v reflect.Value) error {
			sig := v.Interface().(solana.Signature)
			return e.EncodeBytes(sig[:])
		},
		func(d *msgpack.Decoder, v reflect.Value) error {
			b, err := d.DecodeBytes()
			if err != nil {
				return err
			}
			var sig solana.Signature
			if len(b) != len(sig) {
				return fmt.Errorf("message: signature length %d", len(b))
			}
			copy(sig[:], b)
			v.Set(reflect.ValueOf(sig))
			return nil
		})
}

// Encode serializes m with msgpack.
func Encode(m *Message) ([]byte, error) {
	return msgpack.Marshal(m)
}

// Decode parses a message produced by Encode.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
