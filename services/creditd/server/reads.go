package server

import (
	"net/http"
	"strconv"

	"github.com/Wenbobobo/Solease/core"
	"github.com/Wenbobobo/Solease/core/events"
	"github.com/Wenbobobo/Solease/crypto"
)

const (
	defaultEventPage = 100
	maxEventPage     = 1000
)

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	var view configView
	err := s.exec.View(r.Context(), func(u *core.Unit) error {
		cfg, err := u.Credit.Config()
		if err != nil {
			return err
		}
		view = s.format.config(cfg)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	var view poolView
	err := s.exec.View(r.Context(), func(u *core.Unit) error {
		pool, err := u.Credit.Pool()
		if err != nil {
			return err
		}
		balance, err := u.Custody.Balance(pool.Vault)
		if err != nil {
			return err
		}
		view = s.format.pool(pool, balance)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getPosition(w http.ResponseWriter, r *http.Request) {
	owner, err := pathAddress(r, "owner")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var view positionView
	err = s.exec.View(r.Context(), func(u *core.Unit) error {
		pos, err := u.Credit.LpPosition(owner)
		if err != nil {
			return err
		}
		view = positionOf(pos)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// listOffers returns every offer, optionally filtered with ?active=true.
func (s *Server) listOffers(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	views := make([]offerView, 0)
	err := s.exec.View(r.Context(), func(u *core.Unit) error {
		ids, err := u.State.CreditOfferIDs()
		if err != nil {
			return err
		}
		for _, id := range ids {
			offer, err := u.Credit.Offer(id)
			if err != nil {
				return err
			}
			if activeOnly && !offer.Active {
				continue
			}
			views = append(views, s.format.offer(offer))
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathAddress(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var view offerView
	err = s.exec.View(r.Context(), func(u *core.Unit) error {
		offer, err := u.Credit.Offer(id)
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
	writeJSON(w, http.StatusOK, view)
}

// listLoans returns every loan, optionally filtered with ?borrower= and
// ?status=.
func (s *Server) listLoans(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var borrower *crypto.Address
	if raw := query.Get("borrower"); raw != "" {
		addr, err := crypto.DecodeAddress(raw)
		if err != nil {
			s.writeError(w, r, badRequest("borrower", err))
			return
		}
		borrower = &addr
	}
	status := query.Get("status")
	views := make([]loanView, 0)
	err := s.exec.View(r.Context(), func(u *core.Unit) error {
		ids, err := u.State.CreditLoanIDs()
		if err != nil {
			return err
		}
		for _, id := range ids {
			loan, err := u.Credit.Loan(id)
			if err != nil {
				return err
			}
			if borrower != nil && loan.Borrower != *borrower {
				continue
			}
			if status != "" && loan.Status.String() != status {
				continue
			}
			views = append(views, s.format.loan(loan))
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathAddress(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondLoan(w, r, func(u *core.Unit) (crypto.Address, error) { return id, nil })
}

func (s *Server) getLoanByCollateral(w http.ResponseWriter, r *http.Request) {
	asset, err := pathAddress(r, "asset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondLoan(w, r, func(u *core.Unit) (crypto.Address, error) {
		return u.Credit.LoanAddress(asset)
	})
}

func (s *Server) respondLoan(w http.ResponseWriter, r *http.Request, resolve func(*core.Unit) (crypto.Address, error)) {
	var view loanView
	err := s.exec.View(r.Context(), func(u *core.Unit) error {
		id, err := resolve(u)
		if err != nil {
			return err
		}
		loan, err := u.Credit.Loan(id)
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
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getAuction(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathAddress(r, "loan")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var view auctionView
	err = s.exec.View(r.Context(), func(u *core.Unit) error {
		auction, err := u.Credit.Auction(loanID)
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
	writeJSON(w, http.StatusOK, view)
}

type priceResponse struct {
	Loan  crypto.Address `json:"loan"`
	Price Amount         `json:"price"`
	At    int64          `json:"at"`
}

func (s *Server) getPrice(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathAddress(r, "loan")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var resp priceResponse
	err = s.exec.View(r.Context(), func(u *core.Unit) error {
		price, err := u.Credit.CurrentPrice(loanID)
		if err != nil {
			return err
		}
		resp = priceResponse{Loan: loanID, Price: s.format.amount(price), At: u.Now}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var view accountView
	err = s.exec.View(r.Context(), func(u *core.Unit) error {
		account, err := u.Custody.Account(addr)
		if err != nil {
			return err
		}
		view = s.format.account(account)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getName(w http.ResponseWriter, r *http.Request) {
	asset, err := pathAddress(r, "asset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var view nameView
	err = s.exec.View(r.Context(), func(u *core.Unit) error {
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

type eventsResponse struct {
	Events []events.LogEntry `json:"events"`
	Next   uint64            `json:"next"`
}

// listEvents pages through committed events with ?after=<sequence>&limit=.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var after uint64
	if raw := query.Get("after"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, badRequest("after", err))
			return
		}
		after = parsed
	}
	limit := defaultEventPage
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, r, badRequest("limit", err))
			return
		}
		limit = parsed
	}
	if limit > maxEventPage {
		limit = maxEventPage
	}
	entries := s.feed.Since(after, limit)
	next := after
	if len(entries) > 0 {
		next = entries[len(entries)-1].Sequence
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: entries, Next: next})
}
