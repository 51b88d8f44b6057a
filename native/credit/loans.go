package credit

import (
	"fmt"

	"github.com/Wenbobobo/Solease/crypto"
)

// SetupCollateral moves the borrower's registry asset into the loan escrow and
// opens a loan in SetupPending. P2P loans must name the offer they intend to
// draw from. A collateral asset whose previous loan reached a terminal state
// may be pledged again; its old auction record is discarded.
func (e *Engine) SetupCollateral(borrower, collateral crypto.Address, mode FundingMode, offerID *crypto.Address) (*Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, err := e.loadConfig(); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown funding mode", ErrInvalidParams)
	}
	if mode == FundingP2P && (offerID == nil || offerID.IsZero()) {
		return nil, ErrUnauthorized
	}
	owner, err := e.registry.ReadOwner(collateral)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDomainOwner, err)
	}
	if owner != borrower {
		return nil, ErrInvalidDomainOwner
	}
	loanID, err := e.LoanAddress(collateral)
	if err != nil {
		return nil, err
	}
	previous, exists, err := e.state.CreditLoan(loanID)
	if err != nil {
		return nil, err
	}
	if exists && previous != nil && !previous.Status.Terminal() {
		return nil, ErrLoanAlreadyActive
	}
	escrow, err := e.EscrowAddress(loanID)
	if err != nil {
		return nil, err
	}
	if err := e.registry.TransferOwnership(collateral, escrow, crypto.AccountSigner(borrower)); err != nil {
		return nil, fmt.Errorf("credit: escrow collateral: %w", err)
	}
	if exists {
		auctionID, err := e.AuctionAddress(loanID)
		if err != nil {
			return nil, err
		}
		if err := e.state.DeleteCreditAuction(auctionID); err != nil {
			return nil, err
		}
	}
	loan := &Loan{
		ID:           loanID,
		Borrower:     borrower,
		Collateral:   collateral,
		Escrow:       escrow,
		Status:       LoanSetupPending,
		Mode:         mode,
		LastUpdateTs: e.now(),
	}
	if mode == FundingP2P {
		loan.LenderSource = *offerID
	}
	if err := e.state.PutCreditLoan(loan); err != nil {
		return nil, err
	}
	e.emit(newLoanEvent(EventTypeLoanSetup, loan))
	out := *loan
	return &out, nil
}

// VerifyAndWithdrawPool funds a pool-mode loan with the reference pool terms
// and pays the principal to the borrower.
func (e *Engine) VerifyAndWithdrawPool(borrower, loanID crypto.Address) (*Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	pool, err := e.loadPool(cfg)
	if err != nil {
		return nil, err
	}
	loan, err := e.loadLoan(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Borrower != borrower {
		return nil, ErrUnauthorized
	}
	if loan.Status != LoanSetupPending {
		return nil, ErrLoanAlreadyActive
	}
	if loan.Mode != FundingPool {
		return nil, ErrUnauthorized
	}
	terms := e.poolTerms
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	borrowed, err := checkedAdd(pool.TotalBorrowed, terms.Principal)
	if err != nil {
		return nil, err
	}
	if cfg.GlobalCap > 0 && borrowed > cfg.GlobalCap {
		return nil, ErrGlobalCapExceeded
	}
	available, err := e.custody.Balance(pool.Vault)
	if err != nil {
		return nil, err
	}
	if available < terms.Principal {
		return nil, ErrInsufficientLiquidity
	}
	now := e.now()
	due, err := checkedAddSeconds(now, terms.DurationSeconds)
	if err != nil {
		return nil, err
	}
	if err := e.custody.Transfer(pool.Vault, borrower, terms.Principal, e.poolSigner(pool.ID)); err != nil {
		return nil, fmt.Errorf("credit: disburse pool loan: %w", err)
	}
	pool.TotalBorrowed = borrowed
	loan.PrincipalAmount = terms.Principal
	loan.AprBps = terms.AprBps
	loan.StartTs = now
	loan.DueTs = due
	loan.LastUpdateTs = now
	loan.Status = LoanActive
	loan.LenderSource = pool.ID
	loan.Lender = pool.Vault
	if err := e.state.PutCreditPool(pool); err != nil {
		return nil, err
	}
	if err := e.state.PutCreditLoan(loan); err != nil {
		return nil, err
	}
	e.emit(newLoanEvent(EventTypeLoanFunded, loan))
	out := *loan
	return &out, nil
}

// VerifyAndWithdrawP2P funds a P2P loan from the offer it named at setup. The
// offer's terms are copied onto the loan and the offer is retired.
func (e *Engine) VerifyAndWithdrawP2P(borrower, loanID, offerID crypto.Address) (*Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, err := e.loadConfig(); err != nil {
		return nil, err
	}
	loan, err := e.loadLoan(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Borrower != borrower {
		return nil, ErrUnauthorized
	}
	if loan.Status != LoanSetupPending {
		return nil, ErrLoanAlreadyActive
	}
	if loan.Mode != FundingP2P || loan.LenderSource != offerID {
		return nil, ErrUnauthorized
	}
	offer, err := e.loadOffer(offerID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if !offer.Active || now >= offer.Expiry {
		return nil, ErrOfferExpired
	}
	due, err := checkedAddSeconds(now, offer.DurationSeconds)
	if err != nil {
		return nil, err
	}
	signer := e.offerSigner(offer)
	if err := e.custody.Transfer(offer.Vault, borrower, offer.Principal, signer); err != nil {
		return nil, fmt.Errorf("credit: disburse offer: %w", err)
	}
	if _, err := e.custody.Close(offer.Vault, offer.Lender, signer); err != nil {
		return nil, fmt.Errorf("credit: close offer vault: %w", err)
	}
	offer.Active = false
	loan.PrincipalAmount = offer.Principal
	loan.AprBps = offer.AprBps
	loan.StartTs = now
	loan.DueTs = due
	loan.LastUpdateTs = now
	loan.Status = LoanActive
	loan.Lender = offer.Lender
	if err := e.state.PutCreditOffer(offer); err != nil {
		return nil, err
	}
	if err := e.state.PutCreditLoan(loan); err != nil {
		return nil, err
	}
	e.emit(newOfferEvent(EventTypeOfferMatched, offer, map[string]string{"loan": loan.ID.String()}))
	e.emit(newLoanEvent(EventTypeLoanFunded, loan))
	out := *loan
	return &out, nil
}

// Repay returns the principal to the loan's lender (the pool vault or the P2P
// lender) and releases the collateral back to the borrower.
func (e *Engine) Repay(borrower, loanID crypto.Address) (*Loan, error) {
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
	if loan.Borrower != borrower {
		return nil, ErrUnauthorized
	}
	if loan.Status != LoanActive {
		return nil, ErrLoanNotSetup
	}
	var pool *Pool
	if loan.Mode == FundingPool {
		if pool, err = e.loadPool(cfg); err != nil {
			return nil, err
		}
		if pool.TotalBorrowed, err = checkedSub(pool.TotalBorrowed, loan.PrincipalAmount); err != nil {
			return nil, err
		}
	}
	amount := loan.PrincipalAmount
	if err := e.custody.Transfer(borrower, loan.Lender, amount, crypto.AccountSigner(borrower)); err != nil {
		return nil, fmt.Errorf("credit: repayment transfer: %w", err)
	}
	if err := e.registry.TransferOwnership(loan.Collateral, borrower, e.escrowSigner(loan.ID)); err != nil {
		return nil, fmt.Errorf("credit: release collateral: %w", err)
	}
	loan.RepaidAmount = amount
	loan.Status = LoanRepaid
	loan.LastUpdateTs = e.now()
	if pool != nil {
		if err := e.state.PutCreditPool(pool); err != nil {
			return nil, err
		}
	}
	if err := e.state.PutCreditLoan(loan); err != nil {
		return nil, err
	}
	e.emit(newLoanEvent(EventTypeLoanRepaid, loan))
	out := *loan
	return &out, nil
}

// EnterGrace moves an overdue loan into its grace window. Anyone may call it.
func (e *Engine) EnterGrace(loanID crypto.Address) (*Loan, error) {
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
	if loan.Status != LoanActive {
		return nil, ErrLoanNotSetup
	}
	now := e.now()
	if now < loan.DueTs {
		return nil, ErrLoanNotDue
	}
	graceEnd, err := checkedAddSeconds(now, cfg.GracePeriodSeconds)
	if err != nil {
		return nil, err
	}
	loan.GraceEndTs = graceEnd
	loan.Status = LoanGrace
	loan.LastUpdateTs = now
	if err := e.state.PutCreditLoan(loan); err != nil {
		return nil, err
	}
	e.emit(newLoanEvent(EventTypeLoanGrace, loan))
	out := *loan
	return &out, nil
}
