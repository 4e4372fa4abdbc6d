package source

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rzbill/geyserd/internal/engine"
	"github.com/rzbill/geyserd/internal/message"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

const (
	// confirmDepth and finalizeDepth are how many slots behind the tip a
	// slot is confirmed and finalized.
	confirmDepth  = 1
	finalizeDepth = 31
)

// Ingester accepts chain events. *engine.Engine implements it.
type Ingester interface {
	Ingest(*message.Message) error
}

// Config tunes the fake generator.
type Config struct {
	SlotInterval time.Duration
	Accounts     int
	Transactions int
	// StartSlot is the first slot produced; zero starts at 1.
	StartSlot uint64
	// Seed fixes the random stream; zero seeds from the clock.
	Seed uint64
}

// Fake generates a synthetic event stream.
type Fake struct {
	cfg    Config
	out    Ingester
	logger logpkg.Logger
	rnd    *rand.Rand

	accounts []solana.PublicKey
	owners   []solana.PublicKey
	slot     uint64
	height   uint64
	writes   uint64
	hashes   map[uint64]string
}

// NewFake builds a generator writing to out.
func NewFake(out Ingester, cfg Config, logger logpkg.Logger) *Fake {
	if cfg.SlotInterval <= 0 {
		cfg.SlotInterval = 400 * time.Millisecond
	}
	if cfg.Accounts <= 0 {
		cfg.Accounts = 8
	}
	if cfg.Transactions < 0 {
		cfg.Transactions = 0
	}
	if cfg.StartSlot == 0 {
		cfg.StartSlot = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	f := &Fake{
		cfg:    cfg,
		out:    out,
		logger: logger.With(logpkg.Component("source")),
		rnd:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		owners: []solana.PublicKey{solana.SystemProgramID, solana.TokenProgramID},
		slot:   cfg.StartSlot,
		hashes: make(map[uint64]string),
	}
	for i := 0; i < cfg.Accounts; i++ {
		f.accounts = append(f.accounts, AccountKey(i))
	}
	return f
}

// AccountKey returns the i-th synthetic account address. The addresses are
// stable across runs so clients can subscribe to them.
func AccountKey(i int) solana.PublicKey {
	sum := sha256.Sum256([]byte(fmt.Sprintf("geyserd-fake-account-%d", i)))
	return solana.PublicKeyFromBytes(sum[:])
}

// Run produces one slot per interval until ctx is done. Shutdown of the
// engine ends the loop cleanly; an ingest overflow is returned.
func (f *Fake) Run(ctx context.Context) error {
	f.logger.Info("fake source started",
		logpkg.Dur("interval", f.cfg.SlotInterval),
		logpkg.Int("accounts", f.cfg.Accounts),
		logpkg.Int("transactions", f.cfg.Transactions))
	ticker := time.NewTicker(f.cfg.SlotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := f.Step(); err != nil {
			if errors.Is(err, engine.ErrShutdown) {
				f.logger.Info("fake source stopped", logpkg.Uint64("slot", f.slot))
				return nil
			}
			return err
		}
	}
}

// Step emits the full lifecycle of the next slot.
func (f *Fake) Step() error {
	slot := f.slot
	f.slot++
	var parent *uint64
	if slot > f.cfg.StartSlot {
		p := slot - 1
		parent = &p
	}

	msgs := []*message.Message{
		message.NewSlot(&message.SlotInfo{Slot: slot, Parent: parent, Status: message.SlotFirstShredReceived}),
		message.NewSlot(&message.SlotInfo{Slot: slot, Parent: parent, Status: message.SlotCreatedBank}),
	}

	accounts := make([]*message.AccountInfo, 0, len(f.accounts))
	for i, key := range f.accounts {
		if f.rnd.IntN(2) == 0 {
			continue
		}
		f.writes++
		acc := &message.AccountInfo{
			Pubkey:       key,
			Owner:        f.owners[i%len(f.owners)],
			Lamports:     1_000_000 + f.rnd.Uint64N(1_000_000_000),
			Data:         f.accountData(slot),
			WriteVersion: f.writes,
		}
		accounts = append(accounts, acc)
		msgs = append(msgs, message.NewAccount(slot, acc))
	}

	txs := make([]*message.TransactionInfo, 0, f.cfg.Transactions)
	for i := 0; i < f.cfg.Transactions; i++ {
		tx := &message.TransactionInfo{
			Signature:   f.signature(),
			IsVote:      i%4 == 0,
			Index:       uint64(i),
			AccountKeys: f.pickAccounts(),
		}
		if f.rnd.IntN(10) == 0 {
			tx.Err = "InstructionError(0, Custom(1))"
		}
		txs = append(txs, tx)
		msgs = append(msgs, message.NewTransaction(slot, tx))
	}

	entry := &message.EntryInfo{
		Slot:                     slot,
		NumHashes:                12500,
		Hash:                     f.hash(slot, "entry"),
		ExecutedTransactionCount: uint64(len(txs)),
	}
	msgs = append(msgs, message.NewEntry(entry))
	msgs = append(msgs, message.NewSlot(&message.SlotInfo{Slot: slot, Parent: parent, Status: message.SlotCompleted}))

	f.height++
	height := f.height
	blockTime := time.Now().Unix()
	blockhash := solana.HashFromBytes(f.hash(slot, "block")).String()
	f.hashes[slot] = blockhash
	parentSlot := slot
	if parent != nil {
		parentSlot = *parent
	}
	meta := &message.BlockMetaInfo{
		Slot:                     slot,
		Blockhash:                blockhash,
		ParentSlot:               parentSlot,
		ParentBlockhash:          f.hashes[parentSlot],
		BlockHeight:              &height,
		BlockTime:                &blockTime,
		ExecutedTransactionCount: uint64(len(txs)),
		EntriesCount:             1,
	}
	block := &message.BlockInfo{
		Slot:                     slot,
		Blockhash:                blockhash,
		ParentSlot:               parentSlot,
		ParentBlockhash:          meta.ParentBlockhash,
		BlockHeight:              &height,
		BlockTime:                &blockTime,
		ExecutedTransactionCount: uint64(len(txs)),
		UpdatedAccountCount:      uint64(len(accounts)),
		EntriesCount:             1,
		Transactions:             txs,
		Accounts:                 accounts,
		Entries:                  []*message.EntryInfo{entry},
	}
	msgs = append(msgs,
		message.NewBlockMeta(meta),
		message.NewBlock(block),
		message.NewSlot(&message.SlotInfo{Slot: slot, Parent: parent, Status: message.SlotProcessed}),
	)
	if slot >= f.cfg.StartSlot+confirmDepth {
		msgs = append(msgs, message.NewSlot(&message.SlotInfo{Slot: slot - confirmDepth, Status: message.SlotConfirmed}))
	}
	if slot >= f.cfg.StartSlot+finalizeDepth {
		fin := slot - finalizeDepth
		msgs = append(msgs, message.NewSlot(&message.SlotInfo{Slot: fin, Status: message.SlotFinalized}))
		// parents older than the finalized slot are never looked up again
		delete(f.hashes, fin-1)
	}

	for _, m := range msgs {
		if err := f.out.Ingest(m); err != nil {
			return err
		}
	}
	f.logger.Debug("slot produced", logpkg.Uint64("slot", slot), logpkg.Int("messages", len(msgs)))
	return nil
}

// Slot returns the next slot to be produced.
func (f *Fake) Slot() uint64 { return f.slot }

func (f *Fake) accountData(slot uint64) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b, slot)
	binary.LittleEndian.PutUint64(b[8:], f.rnd.Uint64())
	return b
}

func (f *Fake) pickAccounts() []solana.PublicKey {
	n := 1 + f.rnd.IntN(3)
	out := make([]solana.PublicKey, 0, n+1)
	for i := 0; i < n; i++ {
		out = append(out, f.accounts[f.rnd.IntN(len(f.accounts))])
	}
	return append(out, solana.SystemProgramID)
}

func (f *Fake) signature() solana.Signature {
	var sig solana.Signature
	for i := 0; i < len(sig); i += 8 {
		binary.LittleEndian.PutUint64(sig[i:], f.rnd.Uint64())
	}
	return sig
}

func (f *Fake) hash(slot uint64, tag string) []byte {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%d", tag, slot)))
	return sum[:]
}
