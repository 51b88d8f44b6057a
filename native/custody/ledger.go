package custody

import (
	"errors"
	"math"

	"github.com/Wenbobobo/Solease/crypto"
	nativecommon "github.com/Wenbobobo/Solease/native/common"
)

const moduleName = "custody"

var (
	ErrInsufficientBalance = errors.New("custody: insufficient balance")
	ErrUnauthorized        = errors.New("custody: signer does not own account")
	ErrVaultExists         = errors.New("custody: vault already open")
	ErrUnknownVault        = errors.New("custody: vault not open")
	ErrAccountClosed       = errors.New("custody: account closed")
	ErrBalanceOverflow     = errors.New("custody: balance overflow")
	ErrInvalidOwner        = errors.New("custody: owner required")

	errNilState = errors.New("custody: state not configured")
)

// Account is a balance of the funding asset. Wallet accounts are implicit and
// owned by their own address; vaults are opened explicitly for a program
// identity and can be closed.
type Account struct {
	Address crypto.Address
	Owner   crypto.Address
	Balance uint64
	Vault   bool
	Closed  bool
}

type ledgerState interface {
	CustodyAccount(addr crypto.Address) (*Account, bool, error)
	PutCustodyAccount(account *Account) error
}

// Ledger is the fungible-token custody service. Every debit must be
// authorised by a signer whose identity owns the debited account.
type Ledger struct {
	state  ledgerState
	pauses nativecommon.PauseView
}

func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

func (l *Ledger) SetPauses(p nativecommon.PauseView) {
	if l == nil {
		return
	}
	l.pauses = p
}

func (l *Ledger) load(addr crypto.Address) (*Account, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	account, ok, err := l.state.CustodyAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok || account == nil {
		return &Account{Address: addr, Owner: addr}, nil
	}
	return account, nil
}

// Account returns the account stored at addr, or an empty wallet.
func (l *Ledger) Account(addr crypto.Address) (*Account, error) {
	account, err := l.load(addr)
	if err != nil {
		return nil, err
	}
	out := *account
	return &out, nil
}

// Balance returns the spendable balance at addr.
func (l *Ledger) Balance(addr crypto.Address) (uint64, error) {
	account, err := l.load(addr)
	if err != nil {
		return 0, err
	}
	if account.Closed {
		return 0, nil
	}
	return account.Balance, nil
}

// OpenVault opens a vault at vault owned by owner. A closed vault may be
// reopened. Vault addresses are public, so a wallet that was funded at the
// address before it was opened is adopted together with its balance.
func (l *Ledger) OpenVault(vault, owner crypto.Address) error {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	if owner.IsZero() {
		return ErrInvalidOwner
	}
	account, err := l.load(vault)
	if err != nil {
		return err
	}
	if account.Vault && !account.Closed {
		return ErrVaultExists
	}
	return l.state.PutCustodyAccount(&Account{Address: vault, Owner: owner, Balance: account.Balance, Vault: true})
}

func (l *Ledger) authorize(account *Account, signer crypto.Signer) error {
	if signer == nil {
		return ErrUnauthorized
	}
	identity, err := signer.Identity()
	if err != nil {
		return err
	}
	if identity != account.Owner {
		return ErrUnauthorized
	}
	return nil
}

// Transfer moves amount from one account to another. A zero amount is a no-op.
func (l *Ledger) Transfer(from, to crypto.Address, amount uint64, signer crypto.Signer) error {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	source, err := l.load(from)
	if err != nil {
		return err
	}
	if source.Closed {
		return ErrAccountClosed
	}
	if err := l.authorize(source, signer); err != nil {
		return err
	}
	if source.Balance < amount {
		return ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	dest, err := l.load(to)
	if err != nil {
		return err
	}
	if dest.Closed {
		return ErrAccountClosed
	}
	if dest.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	source.Balance -= amount
	dest.Balance += amount
	if err := l.state.PutCustodyAccount(source); err != nil {
		return err
	}
	return l.state.PutCustodyAccount(dest)
}

// Close sweeps the vault's remaining balance to dest and closes it. It returns
// the amount swept.
func (l *Ledger) Close(vault, dest crypto.Address, signer crypto.Signer) (uint64, error) {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return 0, err
	}
	account, err := l.load(vault)
	if err != nil {
		return 0, err
	}
	if !account.Vault || account.Closed {
		return 0, ErrUnknownVault
	}
	if err := l.authorize(account, signer); err != nil {
		return 0, err
	}
	swept := account.Balance
	if swept > 0 {
		if err := l.Transfer(vault, dest, swept, signer); err != nil {
			return 0, err
		}
		if account, err = l.load(vault); err != nil {
			return 0, err
		}
	}
	account.Balance = 0
	account.Closed = true
	if err := l.state.PutCustodyAccount(account); err != nil {
		return 0, err
	}
	return swept, nil
}

// Mint credits amount to a wallet. It backs the operator faucet; callers are
// responsible for restricting access.
func (l *Ledger) Mint(to crypto.Address, amount uint64) error {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	account, err := l.load(to)
	if err != nil {
		return err
	}
	if account.Closed {
		return ErrAccountClosed
	}
	if account.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	account.Balance += amount
	return l.state.PutCustodyAccount(account)
}
