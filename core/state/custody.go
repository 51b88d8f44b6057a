package state

import (
	"fmt"

	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/native/custody"
	"github.com/Wenbobobo/Solease/native/registry"
)

type storedCustodyAccount struct {
	Address [32]byte
	Owner   [32]byte
	Balance uint64
	Vault   bool
	Closed  bool
}

type storedNameRecord struct {
	Asset        [32]byte
	Name         string
	Owner        [32]byte
	RegisteredAt uint64
}

func custodyAccountKey(addr crypto.Address) []byte {
	return prefixedKey(custodyAccountPrefix, addr[:])
}

func registryNameKey(asset crypto.Address) []byte {
	return prefixedKey(registryNamePrefix, asset[:])
}

// CustodyAccount loads the custody account at addr.
func (m *Manager) CustodyAccount(addr crypto.Address) (*custody.Account, bool, error) {
	var stored storedCustodyAccount
	ok, err := m.KVGet(custodyAccountKey(addr), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &custody.Account{
		Address: stored.Address,
		Owner:   stored.Owner,
		Balance: stored.Balance,
		Vault:   stored.Vault,
		Closed:  stored.Closed,
	}, true, nil
}

// PutCustodyAccount persists account.
func (m *Manager) PutCustodyAccount(account *custody.Account) error {
	if account == nil {
		return fmt.Errorf("custody account: nil record")
	}
	return m.KVPut(custodyAccountKey(account.Address), &storedCustodyAccount{
		Address: account.Address,
		Owner:   account.Owner,
		Balance: account.Balance,
		Vault:   account.Vault,
		Closed:  account.Closed,
	})
}

// NameRecord loads the registry record of asset.
func (m *Manager) NameRecord(asset crypto.Address) (*registry.Record, bool, error) {
	var stored storedNameRecord
	ok, err := m.KVGet(registryNameKey(asset), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &registry.Record{
		Asset:        stored.Asset,
		Name:         stored.Name,
		Owner:        stored.Owner,
		RegisteredAt: int64(stored.RegisteredAt),
	}, true, nil
}

// PutNameRecord persists record and indexes its asset.
func (m *Manager) PutNameRecord(record *registry.Record) error {
	if record == nil {
		return fmt.Errorf("registry record: nil record")
	}
	if record.RegisteredAt < 0 {
		return fmt.Errorf("registry record: negative registration time")
	}
	err := m.KVPut(registryNameKey(record.Asset), &storedNameRecord{
		Asset:        record.Asset,
		Name:         record.Name,
		Owner:        record.Owner,
		RegisteredAt: uint64(record.RegisteredAt),
	})
	if err != nil {
		return err
	}
	return m.KVAppend(registryNameIndexKey, record.Asset[:])
}

// NameAssets lists every registered asset in registration order.
func (m *Manager) NameAssets() ([]crypto.Address, error) {
	return m.addressIndex(registryNameIndexKey)
}
