// Package transfer defines the boundary to the host ledger that actually
// moves token balances. The engine invokes it exactly once per successful
// claim and never retries; retries, if any, belong to the collaborator.
package transfer

import "context"

// Transferor moves amount units of tokenType to the given identity. A nil
// return acknowledges the transfer; any error means no funds moved and the
// engine must leave its accounting untouched.
type Transferor interface {
	Transfer(ctx context.Context, tokenType, to string, amount uint64) error
}

// Func adapts a function to the Transferor interface.
type Func func(ctx context.Context, tokenType, to string, amount uint64) error

func (f Func) Transfer(ctx context.Context, tokenType, to string, amount uint64) error {
	return f(ctx, tokenType, to, amount)
}
