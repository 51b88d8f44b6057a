package custody

import (
	"errors"
	"testing"

	"github.com/Wenbobobo/Solease/crypto"
	nativecommon "github.com/Wenbobobo/Solease/native/common"
)

type mockState struct {
	accounts map[crypto.Address]*Account
}

func newMockState() *mockState {
	return &mockState{accounts: make(map[crypto.Address]*Account)}
}

func (m *mockState) CustodyAccount(addr crypto.Address) (*Account, bool, error) {
	account, ok := m.accounts[addr]
	if !ok {
		return nil, false, nil
	}
	out := *account
	return &out, true, nil
}

func (m *mockState) PutCustodyAccount(account *Account) error {
	out := *account
	m.accounts[account.Address] = &out
	return nil
}

func addr(b byte) crypto.Address {
	var out crypto.Address
	out[0] = b
	return out
}

func TestTransferRequiresOwner(t *testing.T) {
	ledger := NewLedger(newMockState())
	alice, bob := addr(1), addr(2)
	if err := ledger.Mint(alice, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(alice, bob, 10, crypto.AccountSigner(bob)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := ledger.Transfer(alice, bob, 101, crypto.AccountSigner(alice)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := ledger.Transfer(alice, bob, 40, crypto.AccountSigner(alice)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if bal, _ := ledger.Balance(alice); bal != 60 {
		t.Fatalf("alice balance = %d, want 60", bal)
	}
	if bal, _ := ledger.Balance(bob); bal != 40 {
		t.Fatalf("bob balance = %d, want 40", bal)
	}
}

func TestVaultLifecycle(t *testing.T) {
	ledger := NewLedger(newMockState())
	program := crypto.NewProgram(addr(9))
	owner, err := program.Derive([]byte("offer"), []byte{1})
	if err != nil {
		t.Fatalf("derive owner: %v", err)
	}
	vault, err := program.Derive([]byte("vault"), owner.Bytes())
	if err != nil {
		t.Fatalf("derive vault: %v", err)
	}
	signer := program.Sign([]byte("offer"), []byte{1})
	lender := addr(1)

	if err := ledger.OpenVault(vault, owner); err != nil {
		t.Fatalf("open vault: %v", err)
	}
	if err := ledger.OpenVault(vault, owner); !errors.Is(err, ErrVaultExists) {
		t.Fatalf("expected ErrVaultExists, got %v", err)
	}
	if err := ledger.Mint(lender, 500); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(lender, vault, 500, crypto.AccountSigner(lender)); err != nil {
		t.Fatalf("fund vault: %v", err)
	}
	if _, err := ledger.Close(vault, lender, crypto.AccountSigner(lender)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("lender must not close a program vault, got %v", err)
	}
	swept, err := ledger.Close(vault, lender, signer)
	if err != nil {
		t.Fatalf("close vault: %v", err)
	}
	if swept != 500 {
		t.Fatalf("swept = %d, want 500", swept)
	}
	if bal, _ := ledger.Balance(lender); bal != 500 {
		t.Fatalf("lender balance = %d, want 500", bal)
	}
	if err := ledger.Transfer(lender, vault, 1, crypto.AccountSigner(lender)); !errors.Is(err, ErrAccountClosed) {
		t.Fatalf("expected ErrAccountClosed, got %v", err)
	}
	if _, err := ledger.Close(vault, lender, signer); !errors.Is(err, ErrUnknownVault) {
		t.Fatalf("expected ErrUnknownVault on double close, got %v", err)
	}
	if err := ledger.OpenVault(vault, owner); err != nil {
		t.Fatalf("reopen closed vault: %v", err)
	}
}

func TestOpenVaultAdoptsPrefundedAddress(t *testing.T) {
	ledger := NewLedger(newMockState())
	program := crypto.NewProgram(addr(9))
	owner, err := program.Derive([]byte("auction"), []byte{7})
	if err != nil {
		t.Fatalf("derive owner: %v", err)
	}
	vault, err := program.Derive([]byte("vault"), owner.Bytes())
	if err != nil {
		t.Fatalf("derive vault: %v", err)
	}
	griefer := addr(3)
	if err := ledger.Mint(griefer, 5); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(griefer, vault, 1, crypto.AccountSigner(griefer)); err != nil {
		t.Fatalf("prefund vault address: %v", err)
	}
	if err := ledger.OpenVault(vault, owner); err != nil {
		t.Fatalf("open prefunded vault: %v", err)
	}
	account, err := ledger.Account(vault)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if !account.Vault || account.Owner != owner || account.Balance != 1 {
		t.Fatalf("unexpected vault after adoption: %+v", account)
	}
	if err := ledger.Transfer(vault, griefer, 1, crypto.AccountSigner(vault)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("adopted vault must only answer to its owner, got %v", err)
	}
	if err := ledger.OpenVault(vault, owner); !errors.Is(err, ErrVaultExists) {
		t.Fatalf("expected ErrVaultExists for an open vault, got %v", err)
	}
	swept, err := ledger.Close(vault, griefer, program.Sign([]byte("auction"), []byte{7}))
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}
}

func TestZeroTransferIsNoop(t *testing.T) {
	ledger := NewLedger(newMockState())
	if err := ledger.Transfer(addr(1), addr(2), 0, nil); err != nil {
		t.Fatalf("zero transfer: %v", err)
	}
}

func TestPausedLedger(t *testing.T) {
	ledger := NewLedger(newMockState())
	ledger.SetPauses(nativecommon.NewPauseSet(moduleName))
	if err := ledger.Mint(addr(1), 1); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
}
