package server

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/native/credit"
	"github.com/Wenbobobo/Solease/native/custody"
	"github.com/Wenbobobo/Solease/native/registry"
)

// Amount renders a base-unit quantity together with its decimal form.
type Amount struct {
	Base    uint64 `json:"base"`
	Display string `json:"display"`
}

type formatter struct {
	decimals int32
}

func (f formatter) amount(v uint64) Amount {
	value := decimal.NewFromBigInt(new(big.Int).SetUint64(v), -f.decimals)
	return Amount{Base: v, Display: value.StringFixed(f.decimals)}
}

// ratio renders a basis point value as a percentage.
func ratio(bps uint16) string {
	return decimal.New(int64(bps), -2).StringFixed(2) + "%"
}

type configView struct {
	Admin                  crypto.Address `json:"admin"`
	FundingAsset           crypto.Address `json:"fundingAsset"`
	GlobalCap              Amount         `json:"globalCap"`
	GracePeriodSeconds     int64          `json:"gracePeriodSeconds"`
	MinBidIncrementBps     uint16         `json:"minBidIncrementBps"`
	MinBidIncrement        string         `json:"minBidIncrement"`
	AuctionDurationSeconds int64          `json:"auctionDurationSeconds"`
}

func (f formatter) config(cfg *credit.ProtocolConfig) configView {
	return configView{
		Admin:                  cfg.Admin,
		FundingAsset:           cfg.FundingAsset,
		GlobalCap:              f.amount(cfg.GlobalCap),
		GracePeriodSeconds:     cfg.GracePeriodSeconds,
		MinBidIncrementBps:     cfg.MinBidIncrementBps,
		MinBidIncrement:        ratio(cfg.MinBidIncrementBps),
		AuctionDurationSeconds: cfg.AuctionDurationSeconds,
	}
}

type poolView struct {
	ID             crypto.Address `json:"id"`
	FundingAsset   crypto.Address `json:"fundingAsset"`
	VaultAuthority crypto.Address `json:"vaultAuthority"`
	Vault          crypto.Address `json:"vault"`
	TotalShares    uint64         `json:"totalShares"`
	TotalAssets    Amount         `json:"totalAssets"`
	TotalBorrowed  Amount         `json:"totalBorrowed"`
	VaultBalance   Amount         `json:"vaultBalance"`
	// SharePrice is assets per share; empty while no shares exist.
	SharePrice string `json:"sharePrice,omitempty"`
}

func (f formatter) pool(pool *credit.Pool, vaultBalance uint64) poolView {
	view := poolView{
		ID:             pool.ID,
		FundingAsset:   pool.FundingAsset,
		VaultAuthority: pool.VaultAuthority,
		Vault:          pool.Vault,
		TotalShares:    pool.TotalShares,
		TotalAssets:    f.amount(pool.TotalAssets),
		TotalBorrowed:  f.amount(pool.TotalBorrowed),
		VaultBalance:   f.amount(vaultBalance),
	}
	if pool.TotalShares > 0 {
		assets := decimal.NewFromBigInt(new(big.Int).SetUint64(pool.TotalAssets), 0)
		shares := decimal.NewFromBigInt(new(big.Int).SetUint64(pool.TotalShares), 0)
		view.SharePrice = assets.DivRound(shares, 8).String()
	}
	return view
}

type positionView struct {
	Pool   crypto.Address `json:"pool"`
	Owner  crypto.Address `json:"owner"`
	Shares uint64         `json:"shares"`
}

func positionOf(pos *credit.LpPosition) positionView {
	return positionView{Pool: pos.Pool, Owner: pos.Owner, Shares: pos.Shares}
}

type offerView struct {
	ID              crypto.Address `json:"id"`
	Lender          crypto.Address `json:"lender"`
	Vault           crypto.Address `json:"vault"`
	Principal       Amount         `json:"principal"`
	AprBps          uint16         `json:"aprBps"`
	Apr             string         `json:"apr"`
	DurationSeconds int64          `json:"durationSeconds"`
	Expiry          int64          `json:"expiry"`
	Active          bool           `json:"active"`
	Nonce           uint64         `json:"nonce"`
	CreatedAt       int64          `json:"createdAt"`
}

func (f formatter) offer(offer *credit.Offer) offerView {
	return offerView{
		ID:              offer.ID,
		Lender:          offer.Lender,
		Vault:           offer.Vault,
		Principal:       f.amount(offer.Principal),
		AprBps:          offer.AprBps,
		Apr:             ratio(offer.AprBps),
		DurationSeconds: offer.DurationSeconds,
		Expiry:          offer.Expiry,
		Active:          offer.Active,
		Nonce:           offer.Nonce,
		CreatedAt:       offer.CreatedAt,
	}
}

type loanView struct {
	ID           crypto.Address `json:"id"`
	Borrower     crypto.Address `json:"borrower"`
	Collateral   crypto.Address `json:"collateral"`
	Escrow       crypto.Address `json:"escrow"`
	Principal    Amount         `json:"principal"`
	Repaid       Amount         `json:"repaid"`
	AprBps       uint16         `json:"aprBps"`
	StartTs      int64          `json:"startTs"`
	DueTs        int64          `json:"dueTs"`
	GraceEndTs   int64          `json:"graceEndTs"`
	LastUpdateTs int64          `json:"lastUpdateTs"`
	Status       string         `json:"status"`
	Mode         string         `json:"mode"`
	LenderSource crypto.Address `json:"lenderSource"`
	Lender       crypto.Address `json:"lender"`
}

func (f formatter) loan(loan *credit.Loan) loanView {
	return loanView{
		ID:           loan.ID,
		Borrower:     loan.Borrower,
		Collateral:   loan.Collateral,
		Escrow:       loan.Escrow,
		Principal:    f.amount(loan.PrincipalAmount),
		Repaid:       f.amount(loan.RepaidAmount),
		AprBps:       loan.AprBps,
		StartTs:      loan.StartTs,
		DueTs:        loan.DueTs,
		GraceEndTs:   loan.GraceEndTs,
		LastUpdateTs: loan.LastUpdateTs,
		Status:       loan.Status.String(),
		Mode:         loan.Mode.String(),
		LenderSource: loan.LenderSource,
		Lender:       loan.Lender,
	}
}

type auctionView struct {
	ID            crypto.Address  `json:"id"`
	Loan          crypto.Address  `json:"loan"`
	Vault         crypto.Address  `json:"vault"`
	StartTs       int64           `json:"startTs"`
	EndTs         int64           `json:"endTs"`
	StartPrice    Amount          `json:"startPrice"`
	EndPrice      Amount          `json:"endPrice"`
	MinBid        Amount          `json:"minBid"`
	HighestBid    Amount          `json:"highestBid"`
	HighestBidder *crypto.Address `json:"highestBidder,omitempty"`
	CurrentPrice  Amount          `json:"currentPrice"`
	Status        string          `json:"status"`
	Settled       bool            `json:"settled"`
}

func (f formatter) auction(auction *credit.Auction, now int64) auctionView {
	view := auctionView{
		ID:           auction.ID,
		Loan:         auction.Loan,
		Vault:        auction.Vault,
		StartTs:      auction.StartTs,
		EndTs:        auction.EndTs,
		StartPrice:   f.amount(auction.StartPrice),
		EndPrice:     f.amount(auction.EndPrice),
		MinBid:       f.amount(auction.MinBid),
		HighestBid:   f.amount(auction.HighestBid),
		CurrentPrice: f.amount(auction.PriceAt(now)),
		Status:       auction.Status.String(),
		Settled:      auction.Settled,
	}
	if auction.HasBid() {
		bidder := auction.HighestBidder
		view.HighestBidder = &bidder
	}
	return view
}

type accountView struct {
	Address crypto.Address `json:"address"`
	Owner   crypto.Address `json:"owner"`
	Balance Amount         `json:"balance"`
	Vault   bool           `json:"vault"`
	Closed  bool           `json:"closed"`
}

func (f formatter) account(account *custody.Account) accountView {
	return accountView{
		Address: account.Address,
		Owner:   account.Owner,
		Balance: f.amount(account.Balance),
		Vault:   account.Vault,
		Closed:  account.Closed,
	}
}

type nameView struct {
	Asset        crypto.Address `json:"asset"`
	Name         string         `json:"name"`
	Owner        crypto.Address `json:"owner"`
	RegisteredAt int64          `json:"registeredAt"`
}

func nameOf(record *registry.Record) nameView {
	return nameView{Asset: record.Asset, Name: record.Name, Owner: record.Owner, RegisteredAt: record.RegisteredAt}
}
