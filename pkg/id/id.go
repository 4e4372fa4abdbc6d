package id

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"
)

// ID is a 96-bit, lexicographically sortable identifier used for subscriber
// sessions: [6 bytes ms timestamp][6 bytes sequence], big-endian.
type ID [12]byte

// crockford is the Crockford base32 alphabet (lowercase); it sorts like the bytes.
const crockford = "0123456789abcdefghjkmnpqrstvwxyz"

const maxSequence = 1<<48 - 1

var ErrInvalid = errors.New("id: invalid encoding")

// String returns the 20 character base32 form.
func (i ID) String() string {
	// 96 bits -> 20 base32 digits (100 bits, top 4 bits zero)
	var out [20]byte
	hi := uint64(binary.BigEndian.Uint32(i[0:4]))
	lo := binary.BigEndian.Uint64(i[4:12])
	for k := 19; k >= 0; k-- {
		out[k] = crockford[lo&31]
		lo = lo>>5 | (hi&31)<<59
		hi >>= 5
	}
	return string(out[:])
}

// Time returns the millisecond timestamp embedded in the ID.
func (i ID) Time() time.Time {
	var b [8]byte
	copy(b[2:], i[0:6])
	return time.UnixMilli(int64(binary.BigEndian.Uint64(b[:])))
}

// Compare returns -1, 0, 1 based on lexical comparison.
func (i ID) Compare(other ID) int {
	for idx := range i {
		if i[idx] < other[idx] {
			return -1
		}
		if i[idx] > other[idx] {
			return 1
		}
	}
	return 0
}

// Parse decodes the String form.
func Parse(s string) (ID, error) {
	var id ID
	if len(s) != 20 {
		return id, ErrInvalid
	}
	var hi, lo uint64
	for k := 0; k < len(s); k++ {
		v := decodeDigit(s[k])
		if v < 0 {
			return id, ErrInvalid
		}
		hi = hi<<5 | lo>>59
		lo = lo<<5 | uint64(v)
	}
	if hi>>32 != 0 {
		return id, ErrInvalid
	}
	binary.BigEndian.PutUint32(id[0:4], uint32(hi))
	binary.BigEndian.PutUint64(id[4:12], lo)
	return id, nil
}

func decodeDigit(c byte) int {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	for i := 0; i < len(crockford); i++ {
		if crockford[i] == c {
			return i
		}
	}
	return -1
}

// Generator produces monotonically increasing IDs per process.
type Generator struct {
	mu       sync.Mutex
	lastMs   int64
	sequence uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since Unix epoch.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new ID. If the clock goes backwards it keeps lastMs and
// increments the sequence; if the sequence is exhausted it waits for the next ms.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	if ms == g.lastMs {
		if g.sequence >= maxSequence {
			for {
				ms = NowMs()
				if ms > g.lastMs {
					break
				}
				time.Sleep(time.Millisecond / 8)
			}
			g.sequence = 0
		} else {
			g.sequence++
		}
	} else {
		g.sequence = 0
	}

	g.lastMs = ms
	return makeID(ms, g.sequence)
}

func makeID(ms int64, seq uint64) ID {
	var id ID
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(ms)&(math.MaxUint64>>16))
	copy(id[0:6], b[2:])
	binary.BigEndian.PutUint64(b[:], seq&maxSequence)
	copy(id[6:12], b[2:])
	return id
}
