package filter

import (
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/geyserd/internal/message"
)

// celFilter wraps a compiled CEL program. When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func accountsEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("slot", cel.UintType),
		cel.Variable("pubkey", cel.StringType),
		cel.Variable("owner", cel.StringType),
		cel.Variable("lamports", cel.UintType),
		cel.Variable("executable", cel.BoolType),
		cel.Variable("rent_epoch", cel.UintType),
		cel.Variable("data", cel.BytesType),
		cel.Variable("size", cel.IntType),
		cel.Variable("write_version", cel.UintType),
		cel.Variable("is_startup", cel.BoolType),
	)
}

func transactionsEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("slot", cel.UintType),
		cel.Variable("signature", cel.StringType),
		cel.Variable("is_vote", cel.BoolType),
		cel.Variable("failed", cel.BoolType),
		cel.Variable("err", cel.StringType),
		cel.Variable("index", cel.UintType),
		// base58 account keys in message order
		cel.Variable("accounts", cel.ListType(cel.StringType)),
	)
}

func newCELFilter(expr string, envFn func() (*cel.Env, error)) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := envFn()
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return celFilter{}, &ValidationError{Field: "expr", Reason: "expression must evaluate to bool"}
	}
	prog, err := env.Program(ast)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

func (f celFilter) eval(vars map[string]any) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(vars)
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

func (f celFilter) evalAccount(slot uint64, a *message.AccountInfo) bool {
	if !f.enabled {
		return true
	}
	return f.eval(map[string]any{
		"slot":          slot,
		"pubkey":        a.Pubkey.String(),
		"owner":         a.Owner.String(),
		"lamports":      a.Lamports,
		"executable":    a.Executable,
		"rent_epoch":    a.RentEpoch,
		"data":          a.Data,
		"size":          int64(len(a.Data)),
		"write_version": a.WriteVersion,
		"is_startup":    a.IsStartup,
	})
}

func (f celFilter) evalTransaction(slot uint64, tx *message.TransactionInfo) bool {
	if !f.enabled {
		return true
	}
	keys := make([]string, len(tx.AccountKeys))
	for i, k := range tx.AccountKeys {
		keys[i] = k.String()
	}
	return f.eval(map[string]any{
		"slot":      slot,
		"signature": tx.Signature.String(),
		"is_vote":   tx.IsVote,
		"failed":    tx.Failed(),
		"err":       tx.Err,
		"index":     tx.Index,
		"accounts":  keys,
	})
}
