package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/Wenbobobo/Solease/core"
	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/native/credit"
)

type initializeRequest struct {
	FundingAsset crypto.Address      `json:"fundingAsset"`
	Params       credit.GlobalParams `json:"params"`
}

// initialize writes the protocol configuration with the caller as admin and
// opens the pool in the same operation.
func (s *Server) initialize(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req initializeRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var view configView
	err = s.exec.Apply(r.Context(), "initialize", func(u *core.Unit) error {
		cfg, err := u.Credit.Initialize(caller, req.FundingAsset, req.Params)
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
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) initializePool(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var view poolView
	err = s.exec.Apply(r.Context(), "initialize_pool", func(u *core.Unit) error {
		pool, err := u.Credit.InitializePool(caller)
		if err != nil {
			return err
		}
		view = s.format.pool(pool, 0)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

type mintRequest struct {
	To     crypto.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

// mint credits funding-asset balance out of thin air. It exists for local
// deployments and is gated behind the admin scope.
func (s *Server) mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var view accountView
	err := s.exec.Apply(r.Context(), "mint", func(u *core.Unit) error {
		if err := u.Custody.Mint(req.To, req.Amount); err != nil {
			return err
		}
		account, err := u.Custody.Account(req.To)
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

type pauseRequest struct {
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

type pausesResponse struct {
	Paused []string `json:"paused"`
}

func (s *Server) listPauses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pausesResponse{Paused: s.pauses.Paused()})
}

func (s *Server) setPause(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	module := strings.ToLower(strings.TrimSpace(req.Module))
	switch module {
	case credit.ModuleName, "custody":
	default:
		s.writeError(w, r, badRequest("module", nil))
		return
	}
	s.pauses.Set(module, req.Paused)
	s.logger.Warn("module pause toggled",
		slog.String("component", module),
		slog.Bool("paused", req.Paused))
	writeJSON(w, http.StatusOK, pausesResponse{Paused: s.pauses.Paused()})
}
