package credit

import (
	"time"

	"github.com/Wenbobobo/Solease/core/events"
	"github.com/Wenbobobo/Solease/crypto"
	nativecommon "github.com/Wenbobobo/Solease/native/common"
)

const moduleName = "credit"

// ModuleName is the pause switch name guarding every credit operation.
const ModuleName = moduleName

type engineState interface {
	CreditConfig() (*ProtocolConfig, bool, error)
	PutCreditConfig(cfg *ProtocolConfig) error
	CreditPool(id crypto.Address) (*Pool, bool, error)
	PutCreditPool(pool *Pool) error
	CreditLpPosition(pool, owner crypto.Address) (*LpPosition, bool, error)
	PutCreditLpPosition(pos *LpPosition) error
	CreditOffer(id crypto.Address) (*Offer, bool, error)
	PutCreditOffer(offer *Offer) error
	CreditLoan(id crypto.Address) (*Loan, bool, error)
	PutCreditLoan(loan *Loan) error
	CreditAuction(id crypto.Address) (*Auction, bool, error)
	PutCreditAuction(auction *Auction) error
	DeleteCreditAuction(id crypto.Address) error
}

// Custody moves the funding asset between wallets and program-owned vaults.
type Custody interface {
	OpenVault(vault, owner crypto.Address) error
	Transfer(from, to crypto.Address, amount uint64, signer crypto.Signer) error
	Close(vault, dest crypto.Address, signer crypto.Signer) (uint64, error)
	Balance(addr crypto.Address) (uint64, error)
}

// Registry reads and reassigns ownership of naming-registry assets used as
// collateral.
type Registry interface {
	ReadOwner(asset crypto.Address) (crypto.Address, error)
	TransferOwnership(asset, newOwner crypto.Address, signer crypto.Signer) error
}

// Engine orchestrates the credit protocol's state transitions: the liquidity
// pool, P2P offers, the loan lifecycle and liquidation auctions.
type Engine struct {
	state     engineState
	custody   Custody
	registry  Registry
	program   crypto.Program
	emitter   events.Emitter
	pauses    nativecommon.PauseView
	poolTerms PoolTerms
	nowFn     func() int64
}

// NewEngine constructs an engine whose derived identities belong to program.
func NewEngine(program crypto.Program) *Engine {
	return &Engine{
		program:   program,
		emitter:   events.NoopEmitter{},
		poolTerms: DefaultPoolTerms(),
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCustody wires the token custody service.
func (e *Engine) SetCustody(custody Custody) { e.custody = custody }

// SetRegistry wires the naming registry holding collateral ownership.
func (e *Engine) SetRegistry(registry Registry) { e.registry = registry }

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock used for time-based preconditions.
func (e *Engine) SetNowFunc(now func() int64) {
	if e == nil {
		return
	}
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPoolTerms replaces the reference terms applied to pool-funded loans.
func (e *Engine) SetPoolTerms(terms PoolTerms) {
	if e == nil {
		return
	}
	e.poolTerms = terms
}

// PoolTerms returns the reference terms applied to pool-funded loans.
func (e *Engine) PoolTerms() PoolTerms {
	if e == nil {
		return DefaultPoolTerms()
	}
	return e.poolTerms
}

// Program returns the program whose derived identities the engine uses.
func (e *Engine) Program() crypto.Program { return e.program }

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt *events.Record) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// ready checks wiring and the pause switch before a mutating operation.
func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.custody == nil {
		return errNilCustody
	}
	if e.registry == nil {
		return errNilRegistry
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

func (e *Engine) loadConfig() (*ProtocolConfig, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok, err := e.state.CreditConfig()
	if err != nil {
		return nil, err
	}
	if !ok || cfg == nil {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

func (e *Engine) loadPool(cfg *ProtocolConfig) (*Pool, error) {
	id, err := e.PoolAddress(cfg.FundingAsset)
	if err != nil {
		return nil, err
	}
	pool, ok, err := e.state.CreditPool(id)
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, ErrNotInitialized
	}
	return pool, nil
}

func (e *Engine) loadLoan(id crypto.Address) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	loan, ok, err := e.state.CreditLoan(id)
	if err != nil {
		return nil, err
	}
	if !ok || loan == nil {
		return nil, ErrNotFound
	}
	return loan, nil
}

func (e *Engine) loadOffer(id crypto.Address) (*Offer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	offer, ok, err := e.state.CreditOffer(id)
	if err != nil {
		return nil, err
	}
	if !ok || offer == nil {
		return nil, ErrNotFound
	}
	return offer, nil
}

func (e *Engine) loadAuction(id crypto.Address) (*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	auction, ok, err := e.state.CreditAuction(id)
	if err != nil {
		return nil, err
	}
	if !ok || auction == nil {
		return nil, ErrNotFound
	}
	return auction, nil
}

// Config returns the protocol configuration.
func (e *Engine) Config() (*ProtocolConfig, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	out := *cfg
	return &out, nil
}

// Pool returns the liquidity pool for the configured funding asset.
func (e *Engine) Pool() (*Pool, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	pool, err := e.loadPool(cfg)
	if err != nil {
		return nil, err
	}
	out := *pool
	return &out, nil
}

// LpPosition returns owner's share position in the pool.
func (e *Engine) LpPosition(owner crypto.Address) (*LpPosition, error) {
	pool, err := e.Pool()
	if err != nil {
		return nil, err
	}
	pos, ok, err := e.state.CreditLpPosition(pool.ID, owner)
	if err != nil {
		return nil, err
	}
	if !ok || pos == nil {
		return nil, ErrNotFound
	}
	out := *pos
	return &out, nil
}

// Offer returns the offer stored under id.
func (e *Engine) Offer(id crypto.Address) (*Offer, error) {
	offer, err := e.loadOffer(id)
	if err != nil {
		return nil, err
	}
	out := *offer
	return &out, nil
}

// Loan returns the loan stored under id.
func (e *Engine) Loan(id crypto.Address) (*Loan, error) {
	loan, err := e.loadLoan(id)
	if err != nil {
		return nil, err
	}
	out := *loan
	return &out, nil
}

// Auction returns the liquidation auction of loanID.
func (e *Engine) Auction(loanID crypto.Address) (*Auction, error) {
	id, err := e.AuctionAddress(loanID)
	if err != nil {
		return nil, err
	}
	auction, err := e.loadAuction(id)
	if err != nil {
		return nil, err
	}
	out := *auction
	return &out, nil
}
