package registry

import (
	"errors"
	"testing"

	"github.com/Wenbobobo/Solease/crypto"
)

type mockState struct {
	records map[crypto.Address]*Record
}

func (m *mockState) NameRecord(asset crypto.Address) (*Record, bool, error) {
	record, ok := m.records[asset]
	if !ok {
		return nil, false, nil
	}
	out := *record
	return &out, true, nil
}

func (m *mockState) PutNameRecord(record *Record) error {
	out := *record
	m.records[record.Asset] = &out
	return nil
}

func newRegistry() *Registry {
	return New(&mockState{records: make(map[crypto.Address]*Record)})
}

func TestRegisterAndTransfer(t *testing.T) {
	reg := newRegistry()
	var alice, bob crypto.Address
	alice[0], bob[0] = 1, 2

	record, err := reg.Register(" Alice.SOL ", alice, 10)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if record.Name != "alice.sol" || record.Asset != AssetAddress("alice.sol") {
		t.Fatalf("unexpected record: %+v", record)
	}
	if _, err := reg.Register("alice.sol", bob, 11); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	if err := reg.TransferOwnership(record.Asset, bob, crypto.AccountSigner(bob)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := reg.TransferOwnership(record.Asset, bob, crypto.AccountSigner(alice)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	owner, err := reg.ReadOwner(record.Asset)
	if err != nil {
		t.Fatalf("read owner: %v", err)
	}
	if owner != bob {
		t.Fatalf("owner = %s, want %s", owner, bob)
	}
}

func TestReadOwnerUnknown(t *testing.T) {
	reg := newRegistry()
	if _, err := reg.ReadOwner(AssetAddress("ghost")); !errors.Is(err, ErrNameNotFound) {
		t.Fatalf("expected ErrNameNotFound, got %v", err)
	}
}

func TestRegisterRejectsInvalidNames(t *testing.T) {
	reg := newRegistry()
	var owner crypto.Address
	owner[0] = 1
	for _, name := range []string{"", "has space", "emoji✓"} {
		if _, err := reg.Register(name, owner, 0); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("name %q: expected ErrInvalidName, got %v", name, err)
		}
	}
	if _, err := reg.Register("ok", crypto.Address{}, 0); !errors.Is(err, ErrInvalidOwner) {
		t.Fatalf("expected ErrInvalidOwner, got %v", err)
	}
}
