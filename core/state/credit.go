package state

import (
	"fmt"
	"math/big"

	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/native/credit"
)

type storedCreditConfig struct {
	Admin                  [32]byte
	FundingAsset           [32]byte
	GlobalCap              uint64
	GracePeriodSeconds     *big.Int
	MinBidIncrementBps     uint16
	AuctionDurationSeconds *big.Int
}

type storedPool struct {
	ID             [32]byte
	FundingAsset   [32]byte
	VaultAuthority [32]byte
	Vault          [32]byte
	TotalShares    uint64
	TotalAssets    uint64
	TotalBorrowed  uint64
}

type storedLpPosition struct {
	Pool   [32]byte
	Owner  [32]byte
	Shares uint64
}

type storedOffer struct {
	ID              [32]byte
	Lender          [32]byte
	Vault           [32]byte
	Principal       uint64
	AprBps          uint16
	DurationSeconds *big.Int
	Expiry          *big.Int
	Active          bool
	Nonce           uint64
	CreatedAt       *big.Int
}

type storedLoan struct {
	ID              [32]byte
	Borrower        [32]byte
	Collateral      [32]byte
	Escrow          [32]byte
	PrincipalAmount uint64
	RepaidAmount    uint64
	AprBps          uint16
	StartTs         *big.Int
	DueTs           *big.Int
	GraceEndTs      *big.Int
	LastUpdateTs    *big.Int
	Status          uint8
	Mode            uint8
	LenderSource    [32]byte
	Lender          [32]byte
}

type storedAuction struct {
	ID            [32]byte
	Loan          [32]byte
	Vault         [32]byte
	StartTs       *big.Int
	EndTs         *big.Int
	StartPrice    uint64
	EndPrice      uint64
	MinBid        uint64
	HighestBid    uint64
	HighestBidder [32]byte
	Status        uint8
	Settled       bool
}

// RLP has no signed integers; timestamps and durations are carried as
// big.Int the same way the other stored records do.
func signedToBig(v int64) *big.Int { return big.NewInt(v) }

func bigToSigned(v *big.Int) (int64, error) {
	if v == nil {
		return 0, nil
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("state: integer %s out of range", v)
	}
	return v.Int64(), nil
}

func creditPoolKey(id crypto.Address) []byte {
	return prefixedKey(creditPoolPrefix, id[:])
}

func creditLpKey(pool, owner crypto.Address) []byte {
	return prefixedKey(creditLpPrefix, pool[:], owner[:])
}

func creditOfferKey(id crypto.Address) []byte {
	return prefixedKey(creditOfferPrefix, id[:])
}

func creditLoanKey(id crypto.Address) []byte {
	return prefixedKey(creditLoanPrefix, id[:])
}

func creditAuctionKey(id crypto.Address) []byte {
	return prefixedKey(creditAuctionPrefix, id[:])
}

// CreditConfig loads the protocol configuration.
func (m *Manager) CreditConfig() (*credit.ProtocolConfig, bool, error) {
	var stored storedCreditConfig
	ok, err := m.KVGet(creditConfigKeyBytes, &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	grace, err := bigToSigned(stored.GracePeriodSeconds)
	if err != nil {
		return nil, false, err
	}
	duration, err := bigToSigned(stored.AuctionDurationSeconds)
	if err != nil {
		return nil, false, err
	}
	return &credit.ProtocolConfig{
		Admin:        stored.Admin,
		FundingAsset: stored.FundingAsset,
		GlobalParams: credit.GlobalParams{
			GlobalCap:              stored.GlobalCap,
			GracePeriodSeconds:     grace,
			MinBidIncrementBps:     stored.MinBidIncrementBps,
			AuctionDurationSeconds: duration,
		},
	}, true, nil
}

// PutCreditConfig persists the protocol configuration.
func (m *Manager) PutCreditConfig(cfg *credit.ProtocolConfig) error {
	if cfg == nil {
		return fmt.Errorf("credit config: nil record")
	}
	return m.KVPut(creditConfigKeyBytes, &storedCreditConfig{
		Admin:                  cfg.Admin,
		FundingAsset:           cfg.FundingAsset,
		GlobalCap:              cfg.GlobalCap,
		GracePeriodSeconds:     signedToBig(cfg.GracePeriodSeconds),
		MinBidIncrementBps:     cfg.MinBidIncrementBps,
		AuctionDurationSeconds: signedToBig(cfg.AuctionDurationSeconds),
	})
}

// CreditPool loads the pool stored under id.
func (m *Manager) CreditPool(id crypto.Address) (*credit.Pool, bool, error) {
	var stored storedPool
	ok, err := m.KVGet(creditPoolKey(id), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &credit.Pool{
		ID:             stored.ID,
		FundingAsset:   stored.FundingAsset,
		VaultAuthority: stored.VaultAuthority,
		Vault:          stored.Vault,
		TotalShares:    stored.TotalShares,
		TotalAssets:    stored.TotalAssets,
		TotalBorrowed:  stored.TotalBorrowed,
	}, true, nil
}

// PutCreditPool persists pool.
func (m *Manager) PutCreditPool(pool *credit.Pool) error {
	if pool == nil {
		return fmt.Errorf("credit pool: nil record")
	}
	return m.KVPut(creditPoolKey(pool.ID), &storedPool{
		ID:             pool.ID,
		FundingAsset:   pool.FundingAsset,
		VaultAuthority: pool.VaultAuthority,
		Vault:          pool.Vault,
		TotalShares:    pool.TotalShares,
		TotalAssets:    pool.TotalAssets,
		TotalBorrowed:  pool.TotalBorrowed,
	})
}

// CreditLpPosition loads owner's share position in pool.
func (m *Manager) CreditLpPosition(pool, owner crypto.Address) (*credit.LpPosition, bool, error) {
	var stored storedLpPosition
	ok, err := m.KVGet(creditLpKey(pool, owner), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &credit.LpPosition{Pool: stored.Pool, Owner: stored.Owner, Shares: stored.Shares}, true, nil
}

// PutCreditLpPosition persists pos.
func (m *Manager) PutCreditLpPosition(pos *credit.LpPosition) error {
	if pos == nil {
		return fmt.Errorf("credit lp position: nil record")
	}
	return m.KVPut(creditLpKey(pos.Pool, pos.Owner), &storedLpPosition{
		Pool:   pos.Pool,
		Owner:  pos.Owner,
		Shares: pos.Shares,
	})
}

// CreditOffer loads the offer stored under id.
func (m *Manager) CreditOffer(id crypto.Address) (*credit.Offer, bool, error) {
	var stored storedOffer
	ok, err := m.KVGet(creditOfferKey(id), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	duration, err := bigToSigned(stored.DurationSeconds)
	if err != nil {
		return nil, false, err
	}
	expiry, err := bigToSigned(stored.Expiry)
	if err != nil {
		return nil, false, err
	}
	createdAt, err := bigToSigned(stored.CreatedAt)
	if err != nil {
		return nil, false, err
	}
	return &credit.Offer{
		ID:              stored.ID,
		Lender:          stored.Lender,
		Vault:           stored.Vault,
		Principal:       stored.Principal,
		AprBps:          stored.AprBps,
		DurationSeconds: duration,
		Expiry:          expiry,
		Active:          stored.Active,
		Nonce:           stored.Nonce,
		CreatedAt:       createdAt,
	}, true, nil
}

// PutCreditOffer persists offer and records it in the offer index.
func (m *Manager) PutCreditOffer(offer *credit.Offer) error {
	if offer == nil {
		return fmt.Errorf("credit offer: nil record")
	}
	err := m.KVPut(creditOfferKey(offer.ID), &storedOffer{
		ID:              offer.ID,
		Lender:          offer.Lender,
		Vault:           offer.Vault,
		Principal:       offer.Principal,
		AprBps:          offer.AprBps,
		DurationSeconds: signedToBig(offer.DurationSeconds),
		Expiry:          signedToBig(offer.Expiry),
		Active:          offer.Active,
		Nonce:           offer.Nonce,
		CreatedAt:       signedToBig(offer.CreatedAt),
	})
	if err != nil {
		return err
	}
	return m.KVAppend(creditOfferIndexKey, offer.ID[:])
}

// CreditOfferIDs lists every offer ever created, in creation order.
func (m *Manager) CreditOfferIDs() ([]crypto.Address, error) {
	return m.addressIndex(creditOfferIndexKey)
}

// CreditLoan loads the loan stored under id.
func (m *Manager) CreditLoan(id crypto.Address) (*credit.Loan, bool, error) {
	var stored storedLoan
	ok, err := m.KVGet(creditLoanKey(id), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	var times [4]int64
	for i, raw := range []*big.Int{stored.StartTs, stored.DueTs, stored.GraceEndTs, stored.LastUpdateTs} {
		if times[i], err = bigToSigned(raw); err != nil {
			return nil, false, err
		}
	}
	status := credit.LoanStatus(stored.Status)
	if !status.Valid() {
		return nil, false, fmt.Errorf("credit loan: invalid status %d", stored.Status)
	}
	mode := credit.FundingMode(stored.Mode)
	if !mode.Valid() {
		return nil, false, fmt.Errorf("credit loan: invalid funding mode %d", stored.Mode)
	}
	return &credit.Loan{
		ID:              stored.ID,
		Borrower:        stored.Borrower,
		Collateral:      stored.Collateral,
		Escrow:          stored.Escrow,
		PrincipalAmount: stored.PrincipalAmount,
		RepaidAmount:    stored.RepaidAmount,
		AprBps:          stored.AprBps,
		StartTs:         times[0],
		DueTs:           times[1],
		GraceEndTs:      times[2],
		LastUpdateTs:    times[3],
		Status:          status,
		Mode:            mode,
		LenderSource:    stored.LenderSource,
		Lender:          stored.Lender,
	}, true, nil
}

// PutCreditLoan persists loan and records it in the loan index.
func (m *Manager) PutCreditLoan(loan *credit.Loan) error {
	if loan == nil {
		return fmt.Errorf("credit loan: nil record")
	}
	err := m.KVPut(creditLoanKey(loan.ID), &storedLoan{
		ID:              loan.ID,
		Borrower:        loan.Borrower,
		Collateral:      loan.Collateral,
		Escrow:          loan.Escrow,
		PrincipalAmount: loan.PrincipalAmount,
		RepaidAmount:    loan.RepaidAmount,
		AprBps:          loan.AprBps,
		StartTs:         signedToBig(loan.StartTs),
		DueTs:           signedToBig(loan.DueTs),
		GraceEndTs:      signedToBig(loan.GraceEndTs),
		LastUpdateTs:    signedToBig(loan.LastUpdateTs),
		Status:          uint8(loan.Status),
		Mode:            uint8(loan.Mode),
		LenderSource:    loan.LenderSource,
		Lender:          loan.Lender,
	})
	if err != nil {
		return err
	}
	return m.KVAppend(creditLoanIndexKey, loan.ID[:])
}

// CreditLoanIDs lists every loan ever opened, in creation order.
func (m *Manager) CreditLoanIDs() ([]crypto.Address, error) {
	return m.addressIndex(creditLoanIndexKey)
}

// CreditAuction loads the auction stored under id.
func (m *Manager) CreditAuction(id crypto.Address) (*credit.Auction, bool, error) {
	var stored storedAuction
	ok, err := m.KVGet(creditAuctionKey(id), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	start, err := bigToSigned(stored.StartTs)
	if err != nil {
		return nil, false, err
	}
	end, err := bigToSigned(stored.EndTs)
	if err != nil {
		return nil, false, err
	}
	return &credit.Auction{
		ID:            stored.ID,
		Loan:          stored.Loan,
		Vault:         stored.Vault,
		StartTs:       start,
		EndTs:         end,
		StartPrice:    stored.StartPrice,
		EndPrice:      stored.EndPrice,
		MinBid:        stored.MinBid,
		HighestBid:    stored.HighestBid,
		HighestBidder: stored.HighestBidder,
		Status:        credit.AuctionStatus(stored.Status),
		Settled:       stored.Settled,
	}, true, nil
}

// PutCreditAuction persists auction.
func (m *Manager) PutCreditAuction(auction *credit.Auction) error {
	if auction == nil {
		return fmt.Errorf("credit auction: nil record")
	}
	return m.KVPut(creditAuctionKey(auction.ID), &storedAuction{
		ID:            auction.ID,
		Loan:          auction.Loan,
		Vault:         auction.Vault,
		StartTs:       signedToBig(auction.StartTs),
		EndTs:         signedToBig(auction.EndTs),
		StartPrice:    auction.StartPrice,
		EndPrice:      auction.EndPrice,
		MinBid:        auction.MinBid,
		HighestBid:    auction.HighestBid,
		HighestBidder: auction.HighestBidder,
		Status:        uint8(auction.Status),
		Settled:       auction.Settled,
	})
}

// DeleteCreditAuction removes the auction stored under id, if any.
func (m *Manager) DeleteCreditAuction(id crypto.Address) error {
	return m.KVDelete(creditAuctionKey(id))
}

func (m *Manager) addressIndex(key []byte) ([]crypto.Address, error) {
	var raw [][]byte
	if err := m.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	out := make([]crypto.Address, 0, len(raw))
	for _, entry := range raw {
		addr, err := crypto.BytesToAddress(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}
