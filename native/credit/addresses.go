package credit

import (
	"encoding/binary"

	"github.com/Wenbobobo/Solease/crypto"
)

var (
	seedPool    = []byte("pool")
	seedVault   = []byte("vault")
	seedToken   = []byte("token")
	seedOffer   = []byte("offer")
	seedLoan    = []byte("loan")
	seedEscrow  = []byte("escrow")
	seedAuction = []byte("auction")
)

func nonceSeed(nonce uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], nonce)
	return buf[:]
}

// PoolAddress derives the pool identity for a funding asset.
func (e *Engine) PoolAddress(fundingAsset crypto.Address) (crypto.Address, error) {
	return e.program.Derive(seedPool, fundingAsset.Bytes())
}

func (e *Engine) poolVaultAuthority(poolID crypto.Address) (crypto.Address, error) {
	return e.program.Derive(seedVault, poolID.Bytes())
}

func (e *Engine) poolVault(poolID crypto.Address) (crypto.Address, error) {
	return e.program.Derive(seedVault, poolID.Bytes(), seedToken)
}

func (e *Engine) poolSigner(poolID crypto.Address) crypto.Signer {
	return e.program.Sign(seedVault, poolID.Bytes())
}

// OfferAddress derives the offer identity for a lender and nonce.
func (e *Engine) OfferAddress(lender crypto.Address, nonce uint64) (crypto.Address, error) {
	return e.program.Derive(seedOffer, lender.Bytes(), nonceSeed(nonce))
}

func (e *Engine) offerVault(offerID crypto.Address) (crypto.Address, error) {
	return e.program.Derive(seedVault, offerID.Bytes())
}

func (e *Engine) offerSigner(offer *Offer) crypto.Signer {
	return e.program.Sign(seedOffer, offer.Lender.Bytes(), nonceSeed(offer.Nonce))
}

// LoanAddress derives the loan identity for a collateral asset. At most one
// loan record exists per asset.
func (e *Engine) LoanAddress(collateral crypto.Address) (crypto.Address, error) {
	return e.program.Derive(seedLoan, collateral.Bytes())
}

// EscrowAddress derives the identity that holds a loan's collateral.
func (e *Engine) EscrowAddress(loanID crypto.Address) (crypto.Address, error) {
	return e.program.Derive(seedEscrow, loanID.Bytes())
}

func (e *Engine) escrowSigner(loanID crypto.Address) crypto.Signer {
	return e.program.Sign(seedEscrow, loanID.Bytes())
}

// AuctionAddress derives the auction identity for a loan.
func (e *Engine) AuctionAddress(loanID crypto.Address) (crypto.Address, error) {
	return e.program.Derive(seedAuction, loanID.Bytes())
}

func (e *Engine) auctionVault(auctionID crypto.Address) (crypto.Address, error) {
	return e.program.Derive(seedVault, auctionID.Bytes())
}

func (e *Engine) auctionSigner(loanID crypto.Address) crypto.Signer {
	return e.program.Sign(seedAuction, loanID.Bytes())
}
