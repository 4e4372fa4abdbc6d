package id

import (
	"testing"
	"time"
)

func TestOrderingMonotonic(t *testing.T) {
	g := NewGenerator()
	NowMs = func() int64 { return 1000 }
	defer func() { NowMs = func() int64 { return time.Now().UnixMilli() } }()

	a := g.Next()
	b := g.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("expected a<b")
	}
	if a.String() >= b.String() {
		t.Fatalf("string form should sort like bytes: %s %s", a, b)
	}
}

func TestClockRegressionGuard(t *testing.T) {
	g := NewGenerator()
	seq := int64(1000)
	NowMs = func() int64 { return seq }
	defer func() { NowMs = func() int64 { return time.Now().UnixMilli() } }()

	a := g.Next()
	seq = 900
	b := g.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("expected b>a despite clock regression")
	}
}

func TestSequenceOverflowWaitsNextMs(t *testing.T) {
	g := NewGenerator()
	NowMs = func() int64 { return 2000 }
	defer func() { NowMs = func() int64 { return time.Now().UnixMilli() } }()

	g.lastMs = 2000
	g.sequence = maxSequence - 1
	_ = g.Next()

	done := make(chan ID)
	go func() { done <- g.Next() }()

	time.AfterFunc(10*time.Millisecond, func() { NowMs = func() int64 { return 2001 } })

	select {
	case got := <-done:
		if got.Time().UnixMilli() != 2001 {
			t.Fatalf("expected rollover to next ms, got %d", got.Time().UnixMilli())
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for overflow handling")
	}
}

func TestParseRoundTrip(t *testing.T) {
	g := NewGenerator()
	a := g.Next()
	b, err := Parse(a.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a != b {
		t.Fatalf("round trip mismatch: %x vs %x", a, b)
	}
	if _, err := Parse("not-an-id"); err == nil {
		t.Fatalf("expected error")
	}
}
