package credit

import (
	"fmt"

	"github.com/Wenbobobo/Solease/crypto"
)

// LoanStatus enumerates the loan lifecycle. Transitions only move forward:
// SetupPending -> Active -> (Repaid | Grace -> AuctionLive -> Settled).
type LoanStatus uint8

const (
	LoanSetupPending LoanStatus = iota
	LoanActive
	LoanGrace
	LoanAuctionLive
	LoanRepaid
	LoanSettled
)

func (s LoanStatus) String() string {
	switch s {
	case LoanSetupPending:
		return "setup_pending"
	case LoanActive:
		return "active"
	case LoanGrace:
		return "grace"
	case LoanAuctionLive:
		return "auction_live"
	case LoanRepaid:
		return "repaid"
	case LoanSettled:
		return "settled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Valid reports whether the status value is within the supported range.
func (s LoanStatus) Valid() bool {
	return s <= LoanSettled
}

// Terminal reports whether the loan has left the state machine for good.
func (s LoanStatus) Terminal() bool {
	return s == LoanRepaid || s == LoanSettled
}

// FundingMode selects where a loan draws its principal from.
type FundingMode uint8

const (
	FundingPool FundingMode = iota
	FundingP2P
)

func (m FundingMode) String() string {
	switch m {
	case FundingPool:
		return "pool"
	case FundingP2P:
		return "p2p"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

func (m FundingMode) Valid() bool {
	return m == FundingPool || m == FundingP2P
}

// ParseFundingMode accepts the textual form used by the API.
func ParseFundingMode(raw string) (FundingMode, error) {
	switch raw {
	case "pool", "Pool", "POOL":
		return FundingPool, nil
	case "p2p", "P2P":
		return FundingP2P, nil
	default:
		return 0, fmt.Errorf("credit: unknown funding mode %q", raw)
	}
}

type AuctionStatus uint8

const (
	AuctionLive AuctionStatus = iota
	AuctionEnded
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionLive:
		return "live"
	case AuctionEnded:
		return "ended"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// GlobalParams are the admin-set protocol parameters supplied at
// initialisation.
type GlobalParams struct {
	// GlobalCap bounds the outstanding pool-funded principal. Zero disables
	// the cap.
	GlobalCap              uint64 `toml:"GlobalCap"`
	GracePeriodSeconds     int64  `toml:"GracePeriodSeconds"`
	MinBidIncrementBps     uint16 `toml:"MinBidIncrementBps"`
	AuctionDurationSeconds int64  `toml:"AuctionDurationSeconds"`
}

// Validate rejects negative windows and increments above 100%.
func (p GlobalParams) Validate() error {
	if p.GracePeriodSeconds < 0 {
		return fmt.Errorf("%w: grace period must be non-negative", ErrInvalidParams)
	}
	if p.AuctionDurationSeconds < 0 {
		return fmt.Errorf("%w: auction duration must be non-negative", ErrInvalidParams)
	}
	if p.MinBidIncrementBps > bpsDenominator {
		return fmt.Errorf("%w: min bid increment exceeds 10000 bps", ErrInvalidParams)
	}
	return nil
}

// ProtocolConfig is the singleton protocol configuration. It is written once
// and the admin identity never changes afterwards.
type ProtocolConfig struct {
	Admin        crypto.Address
	FundingAsset crypto.Address
	GlobalParams
}

// Pool is the shared funding reserve. TotalAssets/TotalShares is the exchange
// rate; TotalBorrowed tracks principal currently lent out of the vault.
type Pool struct {
	ID             crypto.Address
	FundingAsset   crypto.Address
	VaultAuthority crypto.Address
	Vault          crypto.Address
	TotalShares    uint64
	TotalAssets    uint64
	TotalBorrowed  uint64
}

// LpPosition is one provider's claim on the pool.
type LpPosition struct {
	Pool   crypto.Address
	Owner  crypto.Address
	Shares uint64
}

// Offer is a lender's pre-funded loan term sheet. While Active the vault holds
// exactly Principal.
type Offer struct {
	ID              crypto.Address
	Lender          crypto.Address
	Vault           crypto.Address
	Principal       uint64
	AprBps          uint16
	DurationSeconds int64
	Expiry          int64
	Active          bool
	Nonce           uint64
	CreatedAt       int64
}

// Loan is a borrower's collateralised credit line. Lender is the identity that
// receives repayment and liquidation proceeds: the pool vault for pool loans,
// the offer's lender for P2P loans.
type Loan struct {
	ID              crypto.Address
	Borrower        crypto.Address
	Collateral      crypto.Address
	Escrow          crypto.Address
	PrincipalAmount uint64
	RepaidAmount    uint64
	AprBps          uint16
	StartTs         int64
	DueTs           int64
	GraceEndTs      int64
	LastUpdateTs    int64
	Status          LoanStatus
	Mode            FundingMode
	LenderSource    crypto.Address
	Lender          crypto.Address
}

// Auction is the liquidation sale of a defaulted loan's collateral.
type Auction struct {
	ID            crypto.Address
	Loan          crypto.Address
	Vault         crypto.Address
	StartTs       int64
	EndTs         int64
	StartPrice    uint64
	EndPrice      uint64
	MinBid        uint64
	HighestBid    uint64
	HighestBidder crypto.Address
	Status        AuctionStatus
	Settled       bool
}

// HasBid reports whether a bidder is currently recorded.
func (a *Auction) HasBid() bool {
	return a != nil && !a.HighestBidder.IsZero()
}

// PriceAt returns the buy-it-now clearing price at now. The price falls
// linearly from StartPrice to EndPrice over the window and never leaves
// [EndPrice, StartPrice].
func (a *Auction) PriceAt(now int64) uint64 {
	if a == nil {
		return 0
	}
	if a.StartPrice <= a.EndPrice {
		return a.EndPrice
	}
	duration := a.EndTs - a.StartTs
	elapsed := now - a.StartTs
	if duration <= 0 || elapsed <= 0 {
		return a.StartPrice
	}
	spread := a.StartPrice - a.EndPrice
	discount, ok := mulDivSaturating(spread, uint64(elapsed), uint64(duration))
	if !ok || discount >= spread {
		return a.EndPrice
	}
	return a.StartPrice - discount
}
