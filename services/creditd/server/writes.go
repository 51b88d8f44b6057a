package server

import (
	"net/http"

	"github.com/Wenbobobo/Solease/core"
	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/native/credit"
)

type amountRequest struct {
	Amount uint64 `json:"amount"`
}

type sharesRequest struct {
	Shares uint64 `json:"shares"`
}

type depositResponse struct {
	Minted   uint64       `json:"minted"`
	Position positionView `json:"position"`
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req amountRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var resp depositResponse
	err = s.exec.Apply(r.Context(), "deposit", func(u *core.Unit) error {
		minted, err := u.Credit.Deposit(caller, req.Amount)
		if err != nil {
			return err
		}
		pos, err := u.Credit.LpPosition(caller)
		if err != nil {
			return err
		}
		resp = depositResponse{Minted: minted, Position: positionOf(pos)}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type withdrawResponse struct {
	Paid Amount `json:"paid"`
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req sharesRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var paid uint64
	err = s.exec.Apply(r.Context(), "withdraw", func(u *core.Unit) error {
		paid, err = u.Credit.Withdraw(caller, req.Shares)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawResponse{Paid: s.format.amount(paid)})
}

type createOfferRequest struct {
	Nonce           uint64 `json:"nonce"`
	Principal       uint64 `json:"principal"`
	AprBps          uint16 `json:"aprBps"`
	DurationSeconds int64  `json:"durationSeconds"`
	Expiry          int64  `json:"expiry"`
}

func (s *Server) createOffer(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req createOfferRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var view offerView
	err = s.exec.Apply(r.Context(), "create_offer", func(u *core.Unit) error {
		offer, err := u.Credit.CreateOffer(caller, req.Nonce, req.Principal, req.AprBps, req.DurationSeconds, req.Expiry)
		if err != nil {
			return err
		}
		view = s.format.offer(offer)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

type cancelOfferResponse struct {
	Offer    crypto.Address `json:"offer"`
	Refunded Amount         `json:"refunded"`
}

func (s *Server) cancelOffer(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offerID, err := pathAddress(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var refunded uint64
	err = s.exec.Apply(r.Context(), "cancel_offer", func(u *core.Unit) error {
		refunded, err = u.Credit.CancelOffer(caller, offerID)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelOfferResponse{Offer: offerID, Refunded: s.format.amount(refunded)})
}

type setupRequest struct {
	Collateral crypto.Address  `json:"collateral"`
	Mode       string          `json:"mode"`
	Offer      *crypto.Address `json:"offer,omitempty"`
}

func (s *Server) setupCollateral(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req setupRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	mode, err := credit.ParseFundingMode(req.Mode)
	if err != nil {
		s.writeError(w, r, badRequest("mode", err))
		return
	}
	s.applyLoan(w, r, "setup_collateral", http.StatusCreated, func(u *core.Unit) (*credit.Loan, error) {
		return u.Credit.SetupCollateral(caller, req.Collateral, mode, req.Offer)
	})
}

func (s *Server) fundFromPool(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	loanID, err := pathAddress(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.applyLoan(w, r, "fund_pool", http.StatusOK, func(u *core.Unit) (*credit.Loan, error) {
		return u.Credit.VerifyAndWithdrawPool(caller, loanID)
	})
}

type fundP2PRequest struct {
	Offer crypto.Address `json:"offer"`
}

func (s *Server) fundFromOffer(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	loanID, err := pathAddress(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req fundP2PRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.applyLoan(w, r, "fund_p2p", http.StatusOK, func(u *core.Unit) (*credit.Loan, error) {
		return u.Credit.VerifyAndWithdrawP2P(caller, loanID, req.Offer)
	})
}

func (s *Server) repay(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	loanID, err := pathAddress(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.applyLoan(w, r, "repay", http.StatusOK, func(u *core.Unit) (*credit.Loan, error) {
		return u.Credit.Repay(caller, loanID)
	})
}

func (s *Server) enterGrace(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathAddress(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.applyLoan(w, r, "enter_grace", http.StatusOK, func(u *core.Unit) (*credit.Loan, error) {
		return u.Credit.EnterGrace(loanID)
	})
}

func (s *Server) settleAuction(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathAddress(r, "loan")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.applyLoan(w, r, "settle_auction", http.StatusOK, func(u *core.Unit) (*credit.Loan, error) {
		return u.Credit.SettleAuction(loanID)
	})
}

func (s *Server) applyLoan(w http.ResponseWriter, r *http.Request, operation string, status int, fn func(*core.Unit) (*credit.Loan, error)) {
	var view loanView
	err := s.exec.Apply(r.Context(), operation, func(u *core.Unit) error {
		loan, err := fn(u)
		if err != nil {
			return err
		}
		view = s.format.loan(loan)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, view)
}

func (s *Server) startAuction(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathAddress(r, "loan")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.applyAuction(w, r, "start_auction", http.StatusCreated, func(u *core.Unit) (*credit.Auction, error) {
		return u.Credit.StartAuction(loanID)
	})
}

func (s *Server) placeBid(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	loanID, err := pathAddress(r, "loan")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req amountRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.applyAuction(w, r, "place_bid", http.StatusOK, func(u *core.Unit) (*credit.Auction, error) {
		return u.Credit.PlaceBid(caller, loanID, req.Amount)
	})
}

func (s *Server) buyItNow(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	loanID, err := pathAddress(r, "loan")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.applyAuction(w, r, "buy_it_now", http.StatusOK, func(u *core.Unit) (*credit.Auction, error) {
		return u.Credit.BuyItNow(caller, loanID)
	})
}

func (s *Server) closeAuction(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathAddress(r, "loan")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.applyAuction(w, r, "close_auction", http.StatusOK, func(u *core.Unit) (*credit.Auction, error) {
		return u.Credit.CloseAuction(loanID)
	})
}

func (s *Server) applyAuction(w http.ResponseWriter, r *http.Request, operation string, status int, fn func(*core.Unit) (*credit.Auction, error)) {
	var view auctionView
	err := s.exec.Apply(r.Context(), operation, func(u *core.Unit) error {
		auction, err := fn(u)
		if err != nil {
			return err
		}
		view = s.format.auction(auction, u.Now)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, view)
}

type registerNameRequest struct {
	Name string `json:"name"`
}

func (s *Server) registerName(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req registerNameRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var view nameView
	err = s.exec.Apply(r.Context(), "register_name", func(u *core.Unit) error {
		record, err := u.Registry.Register(req.Name, caller, u.Now)
		if err != nil {
			return err
		}
		view = nameOf(record)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

type transferNameRequest struct {
	NewOwner crypto.Address `json:"newOwner"`
}

func (s *Server) transferName(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, err := pathAddress(r, "asset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req transferNameRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var view nameView
	err = s.exec.Apply(r.Context(), "transfer_name", func(u *core.Unit) error {
		if err := u.Registry.TransferOwnership(asset, req.NewOwner, crypto.AccountSigner(caller)); err != nil {
			return err
		}
		record, err := u.Registry.Lookup(asset)
		if err != nil {
			return err
		}
		view = nameOf(record)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
