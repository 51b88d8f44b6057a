package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// AddressLength is the byte length of every account identity.
const AddressLength = 32

var errInvalidAddressLength = errors.New("crypto: address must be 32 bytes")

// Address is a 32-byte account identity rendered as base58 text. Wallet
// addresses are ed25519 public keys; program-derived addresses are guaranteed
// to lie off the curve so no private key can exist for them.
type Address [AddressLength]byte

// BytesToAddress copies b into an Address. The input must be exactly 32 bytes.
func BytesToAddress(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, errInvalidAddressLength
	}
	copy(addr[:], b)
	return addr, nil
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// IsZero reports whether the address is the all-zero identity.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText renders the address as base58 so JSON payloads stay readable.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses base58 text into the address.
func (a *Address) UnmarshalText(text []byte) error {
	decoded, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

func DecodeAddress(addrStr string) (Address, error) {
	trimmed := strings.TrimSpace(addrStr)
	if trimmed == "" {
		return Address{}, fmt.Errorf("crypto: empty address")
	}
	decoded, err := base58.Decode(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("invalid base58 string: %w", err)
	}
	return BytesToAddress(decoded)
}

// MustDecodeAddress is DecodeAddress for compile-time constants.
func MustDecodeAddress(addrStr string) Address {
	addr, err := DecodeAddress(addrStr)
	if err != nil {
		panic(err)
	}
	return addr
}

// --- Key Management ---

type PrivateKey struct {
	key ed25519.PrivateKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromSeed rebuilds a key from its 32-byte ed25519 seed.
func PrivateKeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: seed must be %d bytes", ed25519.SeedSize)
	}
	return &PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// Seed returns the 32-byte seed the key was derived from.
func (k *PrivateKey) Seed() []byte {
	return k.key.Seed()
}

// Address returns the wallet identity controlled by the key.
func (k *PrivateKey) Address() Address {
	var addr Address
	copy(addr[:], k.key.Public().(ed25519.PublicKey))
	return addr
}

// Sign signs msg with the key.
func (k *PrivateKey) Sign(msg []byte) []byte {
	return ed25519.Sign(k.key, msg)
}

// Verify checks an ed25519 signature produced by the wallet behind addr.
func Verify(addr Address, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(addr[:]), msg, sig)
}
