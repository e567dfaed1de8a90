// Package token implements the confidential token ledger: encrypted
// balances keyed by account, minting, first-party and operator-delegated
// transfers, and time-bounded operator grants. Amounts only exist as
// opaque ciphertext handles; the ledger composes engine operations and
// never observes a plaintext.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/log"

	"github.com/encfund/fundraiser/fhe"
	"github.com/encfund/fundraiser/storage"
	"github.com/encfund/fundraiser/types"
)

var (
	// ErrUnauthorized is returned when the caller lacks the required
	// authorization for an operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidParameter is returned when an operation receives a
	// parameter outside of its accepted domain.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Config groups the parameters to build a Ledger.
type Config struct {
	// Store persists balances and operator grants.
	Store *storage.Storage
	// Engine performs all encrypted arithmetic.
	Engine fhe.Engine
	// Clock provides the time for operator grant checks. Defaults to the
	// system clock.
	Clock clock.Clock
	// Address identifies the ledger as the contract context that input
	// proofs must be bound to.
	Address common.Address
	// Minter, when non-zero, restricts Mint to that account.
	Minter common.Address
}

// Ledger is the confidential token. It has no lock of its own; all
// multi-step mutations run inside storage.Update, whose global lock is
// the single serialization point.
type Ledger struct {
	store   *storage.Storage
	engine  fhe.Engine
	clock   clock.Clock
	address common.Address
	minter  common.Address
}

// New creates a Ledger from its configuration.
func New(cfg Config) (*Ledger, error) {
	if cfg.Store == nil || cfg.Engine == nil {
		return nil, fmt.Errorf("missing storage or engine")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Ledger{
		store:   cfg.Store,
		engine:  cfg.Engine,
		clock:   cfg.Clock,
		address: cfg.Address,
		minter:  cfg.Minter,
	}, nil
}

// Address returns the contract context address of the ledger.
func (l *Ledger) Address() common.Address {
	return l.address
}

// Mint credits amount new tokens to the encrypted balance of to. When a
// minter is configured, only the minter may call it; otherwise minting is
// open, which is the test-token configuration.
func (l *Ledger) Mint(caller, to common.Address, amount uint64) (fhe.Handle, error) {
	if l.minter != (common.Address{}) && caller != l.minter {
		return nil, fmt.Errorf("%w: only the minter can mint", ErrUnauthorized)
	}
	minted, err := l.engine.TrivialEncrypt(amount)
	if err != nil {
		return nil, err
	}
	var newBalance fhe.Handle
	if err := l.store.Update(func(wTx db.WriteTx) error {
		balance, err := l.balanceOrZeroTx(wTx, to)
		if err != nil {
			return err
		}
		newBalance, err = l.engine.Add(balance, minted)
		if err != nil {
			return err
		}
		if err := l.engine.Allow(newBalance, to); err != nil {
			return err
		}
		return l.store.SetBalanceTx(wTx, to, newBalance)
	}); err != nil {
		return nil, err
	}
	log.Debugw("minted tokens", "to", to.Hex(), "amount", amount)
	return newBalance, nil
}

// SetOperator grants (or extends) operator authorization over the
// caller's balance until expiry. The expiry must be in the future;
// revocation is done by letting a grant expire, never by deletion.
func (l *Ledger) SetOperator(owner, operator common.Address, expiry time.Time) error {
	if !expiry.After(l.clock.Now()) {
		return fmt.Errorf("%w: operator expiry must be in the future", ErrInvalidParameter)
	}
	if err := l.store.SetOperator(owner, operator, &storage.OperatorGrant{Expiry: expiry}); err != nil {
		return err
	}
	log.Debugw("operator set", "owner", owner.Hex(), "operator", operator.Hex(), "expiry", expiry)
	return nil
}

// IsOperator reports whether operator currently holds a non-expired grant
// over the balance of owner.
func (l *Ledger) IsOperator(owner, operator common.Address) (bool, error) {
	grant, err := l.store.Operator(owner, operator)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return l.clock.Now().Before(grant.Expiry), nil
}

// BalanceOf returns the encrypted balance handle of an account, or nil if
// the account never had activity.
func (l *Ledger) BalanceOf(account common.Address) (fhe.Handle, error) {
	handle, err := l.store.Balance(account)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// TransferFrom moves an encrypted amount from the balance of from to the
// balance of to, on behalf of operator, as a standalone unit of work. The
// amount handle must carry an input proof bound to (ledger, operator).
func (l *Ledger) TransferFrom(operator, from, to common.Address, amount fhe.Handle, proof types.HexBytes) (fhe.Handle, error) {
	var transferred fhe.Handle
	err := l.store.Update(func(wTx db.WriteTx) error {
		var err error
		transferred, err = l.TransferFromTx(wTx, operator, from, to, amount, proof)
		return err
	})
	if err != nil {
		return nil, err
	}
	return transferred, nil
}

// TransferFromTx is like TransferFrom but runs inside a caller-owned unit
// of work, so a larger operation can compose it with other writes
// atomically. It checks that operator is from itself or holds a live
// grant, verifies the input proof, and applies the underflow-safe move.
// It returns the handle of the amount actually transferred, which
// encrypts zero when the requested amount exceeded the balance.
func (l *Ledger) TransferFromTx(wTx db.WriteTx, operator, from, to common.Address, amount fhe.Handle, proof types.HexBytes) (fhe.Handle, error) {
	if operator != from {
		authorized, err := l.isOperatorTx(wTx, from, operator)
		if err != nil {
			return nil, err
		}
		if !authorized {
			return nil, fmt.Errorf("%w: %s is not an operator for %s", ErrUnauthorized, operator.Hex(), from.Hex())
		}
	}
	verified, err := l.engine.VerifyInput(amount, proof, l.address, operator)
	if err != nil {
		return nil, err
	}
	return l.moveTx(wTx, from, to, verified)
}

// Transfer moves an encrypted amount out of the caller's own balance as a
// standalone unit of work.
func (l *Ledger) Transfer(from, to common.Address, amount fhe.Handle, proof types.HexBytes) (fhe.Handle, error) {
	return l.TransferFrom(from, from, to, amount, proof)
}

// SweepTx moves the entire encrypted balance of from to to, inside a
// caller-owned unit of work. No plaintext is revealed; the swept amount
// is the balance handle itself.
func (l *Ledger) SweepTx(wTx db.WriteTx, from, to common.Address) (fhe.Handle, error) {
	balance, err := l.balanceOrZeroTx(wTx, from)
	if err != nil {
		return nil, err
	}
	return l.moveTx(wTx, from, to, balance)
}

// moveTx applies the underflow-safe transfer of the amount behind a
// verified handle. It never branches on a plaintext: the transferred
// amount is select(amount <= balance, amount, 0), computed entirely on
// ciphertexts, so an over-ask silently moves zero.
func (l *Ledger) moveTx(wTx db.WriteTx, from, to common.Address, amount fhe.Handle) (fhe.Handle, error) {
	balFrom, err := l.balanceOrZeroTx(wTx, from)
	if err != nil {
		return nil, err
	}
	balTo, err := l.balanceOrZeroTx(wTx, to)
	if err != nil {
		return nil, err
	}
	zero, err := l.engine.TrivialEncrypt(0)
	if err != nil {
		return nil, err
	}
	fits, err := l.engine.Le(amount, balFrom)
	if err != nil {
		return nil, err
	}
	transferred, err := l.engine.Select(fits, amount, zero)
	if err != nil {
		return nil, err
	}
	newFrom, err := l.engine.Sub(balFrom, transferred)
	if err != nil {
		return nil, err
	}
	newTo, err := l.engine.Add(balTo, transferred)
	if err != nil {
		return nil, err
	}
	if err := l.engine.Allow(newFrom, from); err != nil {
		return nil, err
	}
	if err := l.engine.Allow(newTo, to); err != nil {
		return nil, err
	}
	if err := l.engine.Allow(transferred, from); err != nil {
		return nil, err
	}
	if err := l.engine.Allow(transferred, to); err != nil {
		return nil, err
	}
	if err := l.store.SetBalanceTx(wTx, from, newFrom); err != nil {
		return nil, err
	}
	if err := l.store.SetBalanceTx(wTx, to, newTo); err != nil {
		return nil, err
	}
	return transferred, nil
}

// balanceOrZeroTx reads an account balance within the transaction,
// producing a fresh encryption of zero for accounts without activity.
func (l *Ledger) balanceOrZeroTx(wTx db.WriteTx, account common.Address) (fhe.Handle, error) {
	handle, err := l.store.BalanceTx(wTx, account)
	if errors.Is(err, storage.ErrNotFound) {
		return l.engine.TrivialEncrypt(0)
	}
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// isOperatorTx checks the grant within the transaction so the
// authorization read is consistent with the writes that follow it.
func (l *Ledger) isOperatorTx(wTx db.WriteTx, owner, operator common.Address) (bool, error) {
	grant, err := l.store.OperatorTx(wTx, owner, operator)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return l.clock.Now().Before(grant.Expiry), nil
}
