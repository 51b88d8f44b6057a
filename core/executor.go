package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Wenbobobo/Solease/core/events"
	"github.com/Wenbobobo/Solease/core/state"
	"github.com/Wenbobobo/Solease/crypto"
	nativecommon "github.com/Wenbobobo/Solease/native/common"
	"github.com/Wenbobobo/Solease/native/credit"
	"github.com/Wenbobobo/Solease/native/custody"
	"github.com/Wenbobobo/Solease/native/registry"
	"github.com/Wenbobobo/Solease/observability/metrics"
	"github.com/Wenbobobo/Solease/observability/otel"
)

// Unit is the set of services bound to one atomic operation. Everything it
// writes lands in the same journal.
type Unit struct {
	Credit   *credit.Engine
	Custody  *custody.Ledger
	Registry *registry.Registry
	State    *state.Manager
	Now      int64
}

// Executor serialises protocol operations. Each operation runs against a
// journal of the state manager: on success the journal is committed in one
// batch and its events are published, on failure nothing is written and no
// event escapes.
type Executor struct {
	mu        sync.RWMutex
	state     *state.Manager
	program   crypto.Program
	pauses    nativecommon.PauseView
	poolTerms credit.PoolTerms
	emitter   events.Emitter
	nowFn     func() int64
	logger    *slog.Logger
	metrics   *metrics.CreditMetrics
}

// NewExecutor binds an executor to the committed state and the program whose
// derived identities the protocol uses.
func NewExecutor(manager *state.Manager, program crypto.Program) *Executor {
	return &Executor{
		state:     manager,
		program:   program,
		poolTerms: credit.DefaultPoolTerms(),
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
		logger:    slog.Default(),
	}
}

func (x *Executor) SetPauses(p nativecommon.PauseView) { x.pauses = p }

func (x *Executor) SetPoolTerms(terms credit.PoolTerms) { x.poolTerms = terms }

// SetEmitter configures where committed events are published. Passing nil
// discards them.
func (x *Executor) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		x.emitter = events.NoopEmitter{}
		return
	}
	x.emitter = emitter
}

// SetNowFunc overrides the clock sampled once at the start of each operation.
func (x *Executor) SetNowFunc(now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	x.nowFn = now
}

func (x *Executor) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	x.logger = logger
}

// SetMetrics enables prometheus instrumentation.
func (x *Executor) SetMetrics(m *metrics.CreditMetrics) { x.metrics = m }

// Program returns the program identity operations derive addresses from.
func (x *Executor) Program() crypto.Program { return x.program }

func (x *Executor) unit(manager *state.Manager, emitter events.Emitter, now int64) *Unit {
	clock := func() int64 { return now }

	ledger := custody.NewLedger(manager)
	ledger.SetPauses(x.pauses)
	names := registry.New(manager)

	engine := credit.NewEngine(x.program)
	engine.SetState(manager)
	engine.SetCustody(ledger)
	engine.SetRegistry(names)
	engine.SetPauses(x.pauses)
	engine.SetPoolTerms(x.poolTerms)
	engine.SetEmitter(emitter)
	engine.SetNowFunc(clock)

	return &Unit{Credit: engine, Custody: ledger, Registry: names, State: manager, Now: now}
}

// Apply runs fn as one atomic operation named operation.
func (x *Executor) Apply(ctx context.Context, operation string, fn func(*Unit) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, span := otel.Tracer().Start(ctx, "credit."+operation)
	defer span.End()

	x.mu.Lock()
	defer x.mu.Unlock()

	start := time.Now()
	now := x.nowFn()
	journal := x.state.Begin()
	buffer := &events.Buffer{}
	span.SetAttributes(attribute.String("credit.operation", operation), attribute.Int64("credit.now", now))

	err := fn(x.unit(journal, buffer, now))
	if err == nil {
		writes := journal.Pending()
		if err = journal.Commit(); err == nil {
			x.metrics.ObserveCommit(writes)
		}
	}
	if err != nil {
		journal.Discard()
		kind := credit.ErrorKind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		x.metrics.ObserveOperation(operation, kind, time.Since(start))
		x.logger.Warn("credit operation rejected",
			slog.String("operation", operation),
			slog.String("outcome", kind),
			slog.Any("error", err))
		return err
	}

	published := buffer.Events()
	buffer.Flush(x.emitter)
	x.metrics.ObserveOperation(operation, "ok", time.Since(start))
	x.publishPool()
	x.logger.Info("credit operation applied",
		slog.String("operation", operation),
		slog.Int("events", len(published)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// View runs fn against committed state. Writes made by fn are discarded.
func (x *Executor) View(ctx context.Context, fn func(*Unit) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	journal := x.state.Begin()
	defer journal.Discard()
	return fn(x.unit(journal, events.NoopEmitter{}, x.nowFn()))
}

func (x *Executor) publishPool() {
	if x.metrics == nil {
		return
	}
	u := x.unit(x.state, events.NoopEmitter{}, x.nowFn())
	pool, err := u.Credit.Pool()
	if err != nil {
		return
	}
	balance, err := u.Custody.Balance(pool.Vault)
	if err != nil {
		return
	}
	x.metrics.SetPool(pool.TotalShares, pool.TotalAssets, pool.TotalBorrowed, balance)
}
