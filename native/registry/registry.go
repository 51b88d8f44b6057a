package registry

import (
	"errors"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/Wenbobobo/Solease/crypto"
)

var (
	ErrNameNotFound      = errors.New("registry: name not registered")
	ErrAlreadyRegistered = errors.New("registry: name already registered")
	ErrUnauthorized      = errors.New("registry: signer does not own name")
	ErrInvalidName       = errors.New("registry: invalid name")
	ErrInvalidOwner      = errors.New("registry: owner required")

	errNilState = errors.New("registry: state not configured")
)

const maxNameLength = 64

// Record is a registered name. Its Asset address is what the credit protocol
// pledges as collateral.
type Record struct {
	Asset        crypto.Address
	Name         string
	Owner        crypto.Address
	RegisteredAt int64
}

type registryState interface {
	NameRecord(asset crypto.Address) (*Record, bool, error)
	PutNameRecord(record *Record) error
}

// Registry tracks ownership of named assets.
type Registry struct {
	state registryState
}

func New(state registryState) *Registry {
	return &Registry{state: state}
}

// NormalizeName lower-cases and trims a name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AssetAddress derives the asset address of a name.
func AssetAddress(name string) crypto.Address {
	hash := ethcrypto.Keccak256Hash([]byte("registry/name/"), []byte(NormalizeName(name)))
	return crypto.Address(hash)
}

func validName(name string) bool {
	if name == "" || len(name) > maxNameLength {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}

// Register records a new name owned by owner and returns its asset address.
func (r *Registry) Register(name string, owner crypto.Address, now int64) (*Record, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	normalized := NormalizeName(name)
	if !validName(normalized) {
		return nil, ErrInvalidName
	}
	if owner.IsZero() {
		return nil, ErrInvalidOwner
	}
	asset := AssetAddress(normalized)
	_, exists, err := r.state.NameRecord(asset)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyRegistered
	}
	record := &Record{Asset: asset, Name: normalized, Owner: owner, RegisteredAt: now}
	if err := r.state.PutNameRecord(record); err != nil {
		return nil, err
	}
	out := *record
	return &out, nil
}

// Lookup returns the record for asset.
func (r *Registry) Lookup(asset crypto.Address) (*Record, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	record, ok, err := r.state.NameRecord(asset)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return nil, ErrNameNotFound
	}
	out := *record
	return &out, nil
}

// ReadOwner returns the current owner of asset.
func (r *Registry) ReadOwner(asset crypto.Address) (crypto.Address, error) {
	record, err := r.Lookup(asset)
	if err != nil {
		return crypto.Address{}, err
	}
	return record.Owner, nil
}

// TransferOwnership reassigns asset to newOwner. The signer must resolve to
// the current owner.
func (r *Registry) TransferOwnership(asset, newOwner crypto.Address, signer crypto.Signer) error {
	if newOwner.IsZero() {
		return ErrInvalidOwner
	}
	record, err := r.Lookup(asset)
	if err != nil {
		return err
	}
	if signer == nil {
		return ErrUnauthorized
	}
	identity, err := signer.Identity()
	if err != nil {
		return err
	}
	if identity != record.Owner {
		return ErrUnauthorized
	}
	record.Owner = newOwner
	return r.state.PutNameRecord(record)
}
