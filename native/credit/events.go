package credit

import (
	"strconv"

	"github.com/Wenbobobo/Solease/core/events"
	"github.com/Wenbobobo/Solease/crypto"
)

const (
	EventTypeConfigInitialized = "credit.config.initialized"
	EventTypePoolInitialized   = "credit.pool.initialized"
	EventTypePoolDeposited     = "credit.pool.deposited"
	EventTypePoolWithdrawn     = "credit.pool.withdrawn"
	EventTypeOfferCreated      = "credit.offer.created"
	EventTypeOfferCancelled    = "credit.offer.cancelled"
	EventTypeOfferMatched      = "credit.offer.matched"
	EventTypeLoanSetup         = "credit.loan.setup"
	EventTypeLoanFunded        = "credit.loan.funded"
	EventTypeLoanRepaid        = "credit.loan.repaid"
	EventTypeLoanGrace         = "credit.loan.grace"
	EventTypeAuctionStarted    = "credit.auction.started"
	EventTypeAuctionBid        = "credit.auction.bid"
	EventTypeAuctionBought     = "credit.auction.bought"
	EventTypeAuctionClosed     = "credit.auction.closed"
	EventTypeAuctionSettled    = "credit.auction.settled"
)

func newConfigEvent(cfg *ProtocolConfig) *events.Record {
	attrs := map[string]string{}
	if cfg != nil {
		attrs["admin"] = cfg.Admin.String()
		attrs["fundingAsset"] = cfg.FundingAsset.String()
		attrs["globalCap"] = strconv.FormatUint(cfg.GlobalCap, 10)
		attrs["gracePeriodSeconds"] = strconv.FormatInt(cfg.GracePeriodSeconds, 10)
		attrs["minBidIncrementBps"] = strconv.FormatUint(uint64(cfg.MinBidIncrementBps), 10)
		attrs["auctionDurationSeconds"] = strconv.FormatInt(cfg.AuctionDurationSeconds, 10)
	}
	return &events.Record{Type: EventTypeConfigInitialized, Attributes: attrs}
}

func newPoolEvent(eventType string, pool *Pool, account crypto.Address, amount, shares uint64) *events.Record {
	attrs := map[string]string{}
	if pool != nil {
		attrs["pool"] = pool.ID.String()
		attrs["vault"] = pool.Vault.String()
		attrs["totalShares"] = strconv.FormatUint(pool.TotalShares, 10)
		attrs["totalAssets"] = strconv.FormatUint(pool.TotalAssets, 10)
		attrs["totalBorrowed"] = strconv.FormatUint(pool.TotalBorrowed, 10)
	}
	if !account.IsZero() {
		attrs["provider"] = account.String()
		attrs["amount"] = strconv.FormatUint(amount, 10)
		attrs["shares"] = strconv.FormatUint(shares, 10)
	}
	return &events.Record{Type: eventType, Attributes: attrs}
}

func newOfferEvent(eventType string, offer *Offer, extra map[string]string) *events.Record {
	attrs := map[string]string{}
	if offer != nil {
		attrs["offer"] = offer.ID.String()
		attrs["lender"] = offer.Lender.String()
		attrs["principal"] = strconv.FormatUint(offer.Principal, 10)
		attrs["aprBps"] = strconv.FormatUint(uint64(offer.AprBps), 10)
		attrs["durationSeconds"] = strconv.FormatInt(offer.DurationSeconds, 10)
		attrs["expiry"] = strconv.FormatInt(offer.Expiry, 10)
		attrs["nonce"] = strconv.FormatUint(offer.Nonce, 10)
		attrs["active"] = strconv.FormatBool(offer.Active)
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return &events.Record{Type: eventType, Attributes: attrs}
}

func newLoanEvent(eventType string, loan *Loan) *events.Record {
	attrs := map[string]string{}
	if loan != nil {
		attrs["loan"] = loan.ID.String()
		attrs["borrower"] = loan.Borrower.String()
		attrs["collateral"] = loan.Collateral.String()
		attrs["mode"] = loan.Mode.String()
		attrs["status"] = loan.Status.String()
		attrs["principal"] = strconv.FormatUint(loan.PrincipalAmount, 10)
		if loan.RepaidAmount > 0 {
			attrs["repaid"] = strconv.FormatUint(loan.RepaidAmount, 10)
		}
		if loan.DueTs > 0 {
			attrs["dueTs"] = strconv.FormatInt(loan.DueTs, 10)
		}
		if loan.GraceEndTs > 0 {
			attrs["graceEndTs"] = strconv.FormatInt(loan.GraceEndTs, 10)
		}
		if !loan.Lender.IsZero() {
			attrs["lender"] = loan.Lender.String()
		}
	}
	return &events.Record{Type: eventType, Attributes: attrs}
}

func newAuctionEvent(eventType string, auction *Auction, extra map[string]string) *events.Record {
	attrs := map[string]string{}
	if auction != nil {
		attrs["auction"] = auction.ID.String()
		attrs["loan"] = auction.Loan.String()
		attrs["status"] = auction.Status.String()
		attrs["startPrice"] = strconv.FormatUint(auction.StartPrice, 10)
		attrs["endPrice"] = strconv.FormatUint(auction.EndPrice, 10)
		attrs["endTs"] = strconv.FormatInt(auction.EndTs, 10)
		attrs["highestBid"] = strconv.FormatUint(auction.HighestBid, 10)
		if auction.HasBid() {
			attrs["highestBidder"] = auction.HighestBidder.String()
		}
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return &events.Record{Type: eventType, Attributes: attrs}
}
