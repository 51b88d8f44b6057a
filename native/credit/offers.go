package credit

import (
	"fmt"

	"github.com/Wenbobobo/Solease/crypto"
)

// CreateOffer publishes a fully funded loan offer. The principal moves from
// the lender into a vault owned by the offer identity.
func (e *Engine) CreateOffer(lender crypto.Address, nonce, principal uint64, aprBps uint16, durationSeconds, expiry int64) (*Offer, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, err := e.loadConfig(); err != nil {
		return nil, err
	}
	if principal == 0 || durationSeconds <= 0 {
		return nil, ErrInvalidAmount
	}
	now := e.now()
	if expiry <= now {
		return nil, ErrOfferExpired
	}
	id, err := e.OfferAddress(lender, nonce)
	if err != nil {
		return nil, err
	}
	_, exists, err := e.state.CreditOffer(id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyInitialized
	}
	vault, err := e.offerVault(id)
	if err != nil {
		return nil, err
	}
	if err := e.custody.OpenVault(vault, id); err != nil {
		return nil, fmt.Errorf("credit: open offer vault: %w", err)
	}
	if err := e.custody.Transfer(lender, vault, principal, crypto.AccountSigner(lender)); err != nil {
		return nil, fmt.Errorf("credit: fund offer vault: %w", err)
	}
	offer := &Offer{
		ID:              id,
		Lender:          lender,
		Vault:           vault,
		Principal:       principal,
		AprBps:          aprBps,
		DurationSeconds: durationSeconds,
		Expiry:          expiry,
		Active:          true,
		Nonce:           nonce,
		CreatedAt:       now,
	}
	if err := e.state.PutCreditOffer(offer); err != nil {
		return nil, err
	}
	e.emit(newOfferEvent(EventTypeOfferCreated, offer, nil))
	out := *offer
	return &out, nil
}

// CancelOffer refunds an active offer's vault to its lender and retires the
// offer. It returns the refunded amount.
func (e *Engine) CancelOffer(caller, offerID crypto.Address) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	offer, err := e.loadOffer(offerID)
	if err != nil {
		return 0, err
	}
	if caller != offer.Lender {
		return 0, ErrUnauthorized
	}
	if !offer.Active {
		return 0, ErrOfferExpired
	}
	refunded, err := e.custody.Close(offer.Vault, offer.Lender, e.offerSigner(offer))
	if err != nil {
		return 0, fmt.Errorf("credit: close offer vault: %w", err)
	}
	offer.Active = false
	if err := e.state.PutCreditOffer(offer); err != nil {
		return 0, err
	}
	e.emit(newOfferEvent(EventTypeOfferCancelled, offer, map[string]string{
		"refunded": fmt.Sprintf("%d", refunded),
	}))
	return refunded, nil
}
