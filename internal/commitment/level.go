package commitment

import (
	"fmt"
	"strings"

	"github.com/rzbill/geyserd/internal/message"
)

// Level is a commitment tier requested by a subscriber.
type Level uint8

const (
	Processed Level = iota
	Confirmed
	Finalized
)

func (l Level) String() string {
	switch l {
	case Processed:
		return "processed"
	case Confirmed:
		return "confirmed"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// ParseLevel accepts the lower-case level names; empty means Processed.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "processed":
		return Processed, nil
	case "confirmed":
		return Confirmed, nil
	case "finalized":
		return Finalized, nil
	}
	return Processed, fmt.Errorf("unknown commitment level %q", s)
}

// Status converts the level to the slot status that satisfies it.
func (l Level) Status() message.SlotStatus {
	switch l {
	case Confirmed:
		return message.SlotConfirmed
	case Finalized:
		return message.SlotFinalized
	default:
		return message.SlotProcessed
	}
}

// LevelOf maps a slot status to a commitment level. ok is false for
// interslot and dead statuses.
func LevelOf(s message.SlotStatus) (Level, bool) {
	switch s {
	case message.SlotProcessed:
		return Processed, true
	case message.SlotConfirmed:
		return Confirmed, true
	case message.SlotFinalized:
		return Finalized, true
	}
	return Processed, false
}

// rank orders non-dead statuses; dead is handled separately.
func rank(s message.SlotStatus) int {
	switch s {
	case message.SlotCreatedBank:
		return 1
	case message.SlotFirstShredReceived:
		return 2
	case message.SlotCompleted:
		return 3
	case message.SlotProcessed:
		return 4
	case message.SlotConfirmed:
		return 5
	case message.SlotFinalized:
		return 6
	}
	return 0
}
