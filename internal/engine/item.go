package engine

import (
	"context"
	"time"

	"github.com/rzbill/geyserd/internal/filter"
	"github.com/rzbill/geyserd/internal/message"
)

// Item is one frame handed to a Sink. Exactly one of Message, Ping, Pong or
// Err is meaningful.
type Item struct {
	Message *message.Message
	// Filters names the filters that selected Message.
	Filters []string
	// Status marks a transaction delivered as a transaction status.
	Status bool

	Ping bool
	Pong *int32
	// Err reports a rejected request frame; the stream stays open.
	Err error

	CreatedAt time.Time

	// set is the filter set that matched Message; it applies data slices
	// at delivery time.
	set *filter.Set
}

// Sink is implemented by transports to receive a session's frames.
type Sink interface {
	Send(Item) error
	Context() context.Context
	Flush() error
}
