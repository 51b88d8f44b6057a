package credit

import (
	"fmt"
	"strconv"

	"github.com/Wenbobobo/Solease/crypto"
)

// StartAuction opens the liquidation auction of a loan whose grace window has
// lapsed. The price descends from twice the principal to the principal over
// the configured auction duration. Anyone may call it.
func (e *Engine) StartAuction(loanID crypto.Address) (*Auction, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	loan, err := e.loadLoan(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != LoanGrace {
		return nil, ErrLoanNotSetup
	}
	now := e.now()
	if now < loan.GraceEndTs {
		return nil, ErrLoanNotDue
	}
	auctionID, err := e.AuctionAddress(loanID)
	if err != nil {
		return nil, err
	}
	_, exists, err := e.state.CreditAuction(auctionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyInitialized
	}
	startPrice, err := checkedMul(loan.PrincipalAmount, 2)
	if err != nil {
		return nil, err
	}
	end, err := checkedAddSeconds(now, cfg.AuctionDurationSeconds)
	if err != nil {
		return nil, err
	}
	vault, err := e.auctionVault(auctionID)
	if err != nil {
		return nil, err
	}
	if err := e.custody.OpenVault(vault, auctionID); err != nil {
		return nil, fmt.Errorf("credit: open auction vault: %w", err)
	}
	auction := &Auction{
		ID:         auctionID,
		Loan:       loanID,
		Vault:      vault,
		StartTs:    now,
		EndTs:      end,
		StartPrice: startPrice,
		EndPrice:   loan.PrincipalAmount,
		MinBid:     loan.PrincipalAmount,
		Status:     AuctionLive,
	}
	loan.Status = LoanAuctionLive
	loan.LastUpdateTs = now
	if err := e.state.PutCreditAuction(auction); err != nil {
		return nil, err
	}
	if err := e.state.PutCreditLoan(loan); err != nil {
		return nil, err
	}
	e.emit(newAuctionEvent(EventTypeAuctionStarted, auction, nil))
	out := *auction
	return &out, nil
}

// CurrentPrice reports the buy-it-now price of loanID's auction at the
// engine's current time.
func (e *Engine) CurrentPrice(loanID crypto.Address) (uint64, error) {
	auction, err := e.Auction(loanID)
	if err != nil {
		return 0, err
	}
	return auction.PriceAt(e.now()), nil
}

// minimumNextBid is the smallest amount that can replace the standing bid.
func minimumNextBid(auction *Auction, incrementBps uint16) (uint64, error) {
	if !auction.HasBid() {
		return auction.MinBid, nil
	}
	increment, err := mulDiv(auction.HighestBid, uint64(incrementBps), bpsDenominator)
	if err != nil {
		return 0, err
	}
	required, err := checkedAdd(auction.HighestBid, increment)
	if err != nil {
		return 0, err
	}
	if required <= auction.HighestBid {
		required = auction.HighestBid + 1
	}
	if required < auction.MinBid {
		required = auction.MinBid
	}
	return required, nil
}

// PlaceBid escrows amount in the auction vault and refunds the displaced
// bidder in the same step.
func (e *Engine) PlaceBid(bidder, loanID crypto.Address, amount uint64) (*Auction, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	auctionID, err := e.AuctionAddress(loanID)
	if err != nil {
		return nil, err
	}
	auction, err := e.loadAuction(auctionID)
	if err != nil {
		return nil, err
	}
	if auction.Status != AuctionLive || e.now() >= auction.EndTs {
		return nil, ErrAuctionEnded
	}
	required, err := minimumNextBid(auction, cfg.MinBidIncrementBps)
	if err != nil {
		return nil, err
	}
	if amount < required {
		return nil, ErrBidTooLow
	}
	if err := e.custody.Transfer(bidder, auction.Vault, amount, crypto.AccountSigner(bidder)); err != nil {
		return nil, fmt.Errorf("credit: escrow bid: %w", err)
	}
	if err := e.refundStandingBid(auction); err != nil {
		return nil, err
	}
	auction.HighestBid = amount
	auction.HighestBidder = bidder
	if err := e.state.PutCreditAuction(auction); err != nil {
		return nil, err
	}
	e.emit(newAuctionEvent(EventTypeAuctionBid, auction, map[string]string{
		"bidder": bidder.String(),
		"amount": strconv.FormatUint(amount, 10),
	}))
	out := *auction
	return &out, nil
}

// BuyItNow pays the current descending price and ends the auction at once,
// displacing any standing bid.
func (e *Engine) BuyItNow(buyer, loanID crypto.Address) (*Auction, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	auctionID, err := e.AuctionAddress(loanID)
	if err != nil {
		return nil, err
	}
	auction, err := e.loadAuction(auctionID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if auction.Status != AuctionLive || now >= auction.EndTs {
		return nil, ErrAuctionEnded
	}
	price := auction.PriceAt(now)
	if err := e.custody.Transfer(buyer, auction.Vault, price, crypto.AccountSigner(buyer)); err != nil {
		return nil, fmt.Errorf("credit: buy-it-now payment: %w", err)
	}
	if err := e.refundStandingBid(auction); err != nil {
		return nil, err
	}
	auction.HighestBid = price
	auction.HighestBidder = buyer
	auction.Status = AuctionEnded
	if err := e.state.PutCreditAuction(auction); err != nil {
		return nil, err
	}
	e.emit(newAuctionEvent(EventTypeAuctionBought, auction, map[string]string{
		"buyer": buyer.String(),
		"price": strconv.FormatUint(price, 10),
	}))
	out := *auction
	return &out, nil
}

// CloseAuction ends a live auction once its window has elapsed. Anyone may
// call it.
func (e *Engine) CloseAuction(loanID crypto.Address) (*Auction, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	auctionID, err := e.AuctionAddress(loanID)
	if err != nil {
		return nil, err
	}
	auction, err := e.loadAuction(auctionID)
	if err != nil {
		return nil, err
	}
	if auction.Status != AuctionLive {
		return nil, ErrAuctionEnded
	}
	if e.now() < auction.EndTs {
		return nil, ErrAuctionLive
	}
	auction.Status = AuctionEnded
	if err := e.state.PutCreditAuction(auction); err != nil {
		return nil, err
	}
	e.emit(newAuctionEvent(EventTypeAuctionClosed, auction, nil))
	out := *auction
	return &out, nil
}

// SettleAuction delivers the collateral to the winner and the proceeds to the
// lender. Without a winner the collateral goes to the P2P lender, or to the
// admin for pool loans. Anyone may call it.
func (e *Engine) SettleAuction(loanID crypto.Address) (*Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	loan, err := e.loadLoan(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != LoanAuctionLive {
		return nil, ErrLoanNotSetup
	}
	auctionID, err := e.AuctionAddress(loanID)
	if err != nil {
		return nil, err
	}
	auction, err := e.loadAuction(auctionID)
	if err != nil {
		return nil, err
	}
	if auction.Status != AuctionEnded || auction.Settled {
		return nil, ErrAuctionLive
	}
	recipient := auction.HighestBidder
	if recipient.IsZero() {
		if loan.Mode == FundingP2P {
			recipient = loan.Lender
		} else {
			recipient = cfg.Admin
		}
	}
	if err := e.registry.TransferOwnership(loan.Collateral, recipient, e.escrowSigner(loan.ID)); err != nil {
		return nil, fmt.Errorf("credit: deliver collateral: %w", err)
	}
	proceeds, err := e.custody.Close(auction.Vault, loan.Lender, e.auctionSigner(loan.ID))
	if err != nil {
		return nil, fmt.Errorf("credit: distribute proceeds: %w", err)
	}
	if loan.Mode == FundingPool {
		pool, err := e.loadPool(cfg)
		if err != nil {
			return nil, err
		}
		pool.TotalBorrowed = saturatingSub(pool.TotalBorrowed, loan.PrincipalAmount)
		if proceeds >= loan.PrincipalAmount {
			gain := proceeds - loan.PrincipalAmount
			if pool.TotalAssets, err = checkedAdd(pool.TotalAssets, gain); err != nil {
				return nil, err
			}
		} else {
			pool.TotalAssets = saturatingSub(pool.TotalAssets, loan.PrincipalAmount-proceeds)
		}
		if err := e.state.PutCreditPool(pool); err != nil {
			return nil, err
		}
	}
	now := e.now()
	auction.Settled = true
	loan.Status = LoanSettled
	loan.LastUpdateTs = now
	if err := e.state.PutCreditAuction(auction); err != nil {
		return nil, err
	}
	if err := e.state.PutCreditLoan(loan); err != nil {
		return nil, err
	}
	e.emit(newAuctionEvent(EventTypeAuctionSettled, auction, map[string]string{
		"recipient": recipient.String(),
		"proceeds":  strconv.FormatUint(proceeds, 10),
	}))
	out := *loan
	return &out, nil
}

func (e *Engine) refundStandingBid(auction *Auction) error {
	if !auction.HasBid() || auction.HighestBid == 0 {
		return nil
	}
	if err := e.custody.Transfer(auction.Vault, auction.HighestBidder, auction.HighestBid, e.auctionSigner(auction.Loan)); err != nil {
		return fmt.Errorf("credit: refund outbid bidder: %w", err)
	}
	return nil
}
