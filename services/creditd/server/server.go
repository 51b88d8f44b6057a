package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Wenbobobo/Solease/core"
	"github.com/Wenbobobo/Solease/core/events"
	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/gateway/middleware"
	nativecommon "github.com/Wenbobobo/Solease/native/common"
)

const requestLimit = 1 << 16 // 64 KiB

// Options wires the daemon's collaborators.
type Options struct {
	Executor      *core.Executor
	Pauses        *nativecommon.PauseSet
	Feed          *events.Log
	Decimals      int32
	AdminScope    string
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

// Server exposes the credit protocol over HTTP JSON. Mutating routes act as
// the authenticated caller; reads are public.
type Server struct {
	exec       *core.Executor
	pauses     *nativecommon.PauseSet
	feed       *events.Log
	format     formatter
	adminScope string
	auth       *middleware.Authenticator
	limiter    *middleware.RateLimiter
	obs        *middleware.Observability
	cors       middleware.CORSConfig
	logger     *slog.Logger
}

func New(opts Options) (*Server, error) {
	if opts.Executor == nil {
		return nil, fmt.Errorf("creditd: executor required")
	}
	if opts.Authenticator == nil {
		return nil, fmt.Errorf("creditd: authenticator required")
	}
	if opts.Pauses == nil {
		opts.Pauses = nativecommon.NewPauseSet()
	}
	if opts.Feed == nil {
		opts.Feed = events.NewLog(0)
	}
	if opts.AdminScope == "" {
		opts.AdminScope = "admin"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RateLimiter == nil {
		opts.RateLimiter = middleware.NewRateLimiter(nil, opts.Logger)
	}
	if opts.Observability == nil {
		opts.Observability = middleware.NewObservability(middleware.ObservabilityConfig{}, opts.Logger)
	}
	return &Server{
		exec:       opts.Executor,
		pauses:     opts.Pauses,
		feed:       opts.Feed,
		format:     formatter{decimals: opts.Decimals},
		adminScope: opts.AdminScope,
		auth:       opts.Authenticator,
		limiter:    opts.RateLimiter,
		obs:        opts.Observability,
		cors:       opts.CORS,
		logger:     opts.Logger,
	}, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(s.cors))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.obs.MetricsHandler())

	r.Route("/v1/credit", func(v1 chi.Router) {
		v1.Group(func(read chi.Router) {
			read.Use(s.limiter.Middleware("read"))
			read.Use(s.obs.Middleware("credit.read"))
			s.mountReads(read)
		})
		v1.Group(func(write chi.Router) {
			write.Use(s.auth.Middleware())
			write.Use(s.limiter.Middleware("write"))
			write.Use(s.obs.Middleware("credit.write"))
			s.mountWrites(write)
		})
		v1.Group(func(admin chi.Router) {
			admin.Use(s.auth.Middleware(s.adminScope))
			admin.Use(s.obs.Middleware("credit.admin"))
			s.mountAdmin(admin)
		})
	})
	return r
}

func (s *Server) mountReads(r chi.Router) {
	r.Get("/config", s.getConfig)
	r.Get("/pool", s.getPool)
	r.Get("/positions/{owner}", s.getPosition)
	r.Get("/offers", s.listOffers)
	r.Get("/offers/{id}", s.getOffer)
	r.Get("/loans", s.listLoans)
	r.Get("/loans/{id}", s.getLoan)
	r.Get("/collateral/{asset}/loan", s.getLoanByCollateral)
	r.Get("/auctions/{loan}", s.getAuction)
	r.Get("/auctions/{loan}/price", s.getPrice)
	r.Get("/balances/{address}", s.getBalance)
	r.Get("/names/{asset}", s.getName)
	r.Get("/events", s.listEvents)
}

func (s *Server) mountWrites(r chi.Router) {
	r.Post("/deposit", s.deposit)
	r.Post("/withdraw", s.withdraw)
	r.Post("/offers", s.createOffer)
	r.Post("/offers/{id}/cancel", s.cancelOffer)
	r.Post("/loans", s.setupCollateral)
	r.Post("/loans/{id}/fund/pool", s.fundFromPool)
	r.Post("/loans/{id}/fund/p2p", s.fundFromOffer)
	r.Post("/loans/{id}/repay", s.repay)
	r.Post("/loans/{id}/grace", s.enterGrace)
	r.Post("/auctions/{loan}/start", s.startAuction)
	r.Post("/auctions/{loan}/bid", s.placeBid)
	r.Post("/auctions/{loan}/buy", s.buyItNow)
	r.Post("/auctions/{loan}/close", s.closeAuction)
	r.Post("/auctions/{loan}/settle", s.settleAuction)
	r.Post("/names", s.registerName)
	r.Post("/names/{asset}/transfer", s.transferName)
}

func (s *Server) mountAdmin(r chi.Router) {
	r.Post("/admin/initialize", s.initialize)
	r.Post("/admin/pool", s.initializePool)
	r.Post("/admin/mint", s.mint)
	r.Get("/admin/pauses", s.listPauses)
	r.Post("/admin/pauses", s.setPause)
}

func decodeRequest(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("%w: missing request body", errBadRequest)
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, requestLimit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func pathAddress(r *http.Request, param string) (crypto.Address, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		return crypto.Address{}, badRequest(param, err)
	}
	return addr, nil
}

func badRequest(field string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: invalid %s", errBadRequest, field)
	}
	return fmt.Errorf("%w: invalid %s: %v", errBadRequest, field, err)
}

func callerOf(r *http.Request) (crypto.Address, error) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		return crypto.Address{}, fmt.Errorf("%w: caller identity missing", errBadRequest)
	}
	return caller, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	requestID := middleware.RequestIDFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		s.logger.Error("credit request failed",
			slog.String("request_id", requestID),
			slog.String("route", r.URL.Path),
			slog.Any("error", err))
	}
	writeJSON(w, status, errorResponse{Error: kind, Message: err.Error(), RequestID: requestID})
}
