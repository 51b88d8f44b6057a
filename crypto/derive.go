package crypto

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"
)

const (
	// MaxSeedLength bounds a single derivation seed.
	MaxSeedLength = 32
	// MaxSeeds bounds the number of seeds per derivation, bump included.
	MaxSeeds = 16

	pdaMarker = "ProgramDerivedAddress"
)

var (
	ErrMaxSeedLengthExceeded = errors.New("crypto: derivation seed exceeds 32 bytes")
	ErrTooManySeeds          = errors.New("crypto: too many derivation seeds")
	ErrAddressOnCurve        = errors.New("crypto: derived address lies on the ed25519 curve")
	ErrNoViableBump          = errors.New("crypto: unable to find a viable bump seed")
)

// CreateProgramAddress hashes seeds || program || marker and rejects results
// that decode to a valid ed25519 point, since such an address could have a
// private key.
func CreateProgramAddress(seeds [][]byte, program Address) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Address{}, ErrTooManySeeds
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Address{}, ErrMaxSeedLengthExceeded
		}
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write([]byte(pdaMarker))

	var addr Address
	copy(addr[:], h.Sum(nil))
	if IsOnCurve(addr[:]) {
		return Address{}, ErrAddressOnCurve
	}
	return addr, nil
}

// FindProgramAddress searches bumps from 255 downwards and returns the first
// off-curve address together with the bump that produced it.
func FindProgramAddress(seeds [][]byte, program Address) (Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Address{}, 0, ErrTooManySeeds
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, program)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrAddressOnCurve) {
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrNoViableBump
}

// IsOnCurve reports whether b is the compressed encoding of an ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// Signer proves the identity under which a transfer or ownership change is
// authorised.
type Signer interface {
	Identity() (Address, error)
}

// AccountSigner is a caller acting as itself.
type AccountSigner Address

func (s AccountSigner) Identity() (Address, error) {
	return Address(s), nil
}

// Program derives stable identities owned by a single program ID. Only code
// holding the Program value can produce signers for its derived addresses.
type Program struct {
	id Address
}

func NewProgram(id Address) Program {
	return Program{id: id}
}

func (p Program) ID() Address {
	return p.id
}

// Derive returns the program-derived address for seeds.
func (p Program) Derive(seeds ...[]byte) (Address, error) {
	addr, _, err := FindProgramAddress(seeds, p.id)
	return addr, err
}

// Sign returns a signer that resolves to the address derived from seeds.
func (p Program) Sign(seeds ...[]byte) DerivedSigner {
	copied := make([][]byte, len(seeds))
	for i, seed := range seeds {
		copied[i] = append([]byte(nil), seed...)
	}
	return DerivedSigner{program: p.id, seeds: copied}
}

// DerivedSigner carries derivation inputs instead of a private key. The
// identity is recomputed on every check.
type DerivedSigner struct {
	program Address
	seeds   [][]byte
}

func (s DerivedSigner) Identity() (Address, error) {
	addr, _, err := FindProgramAddress(s.seeds, s.program)
	return addr, err
}
