package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Wenbobobo/Solease/core/events"
	"github.com/Wenbobobo/Solease/core/state"
	"github.com/Wenbobobo/Solease/crypto"
	nativecommon "github.com/Wenbobobo/Solease/native/common"
	"github.com/Wenbobobo/Solease/native/credit"
	"github.com/Wenbobobo/Solease/storage"
)

func testAddress(b byte) crypto.Address {
	var out crypto.Address
	out[0] = 0xC0
	out[31] = b
	return out
}

type recordingEmitter struct {
	types []string
}

func (r *recordingEmitter) Emit(evt events.Event) { r.types = append(r.types, evt.EventType()) }

func newTestExecutor(t *testing.T) (*Executor, *recordingEmitter) {
	t.Helper()
	exec := NewExecutor(state.NewManager(storage.NewMemDB()), crypto.NewProgram(testAddress(0xFF)))
	emitter := &recordingEmitter{}
	exec.SetEmitter(emitter)
	exec.SetNowFunc(func() int64 { return 1_700_000_000 })
	return exec, emitter
}

func initialize(t *testing.T, exec *Executor) {
	t.Helper()
	err := exec.Apply(context.Background(), "initialize", func(u *Unit) error {
		if _, err := u.Credit.Initialize(testAddress(1), testAddress(2), credit.GlobalParams{
			GracePeriodSeconds:     60,
			AuctionDurationSeconds: 60,
		}); err != nil {
			return err
		}
		_, err := u.Credit.InitializePool(testAddress(1))
		return err
	})
	require.NoError(t, err)
}

func TestApplyCommitsAndPublishes(t *testing.T) {
	exec, emitter := newTestExecutor(t)
	initialize(t, exec)
	require.Equal(t, []string{credit.EventTypeConfigInitialized, credit.EventTypePoolInitialized}, emitter.types)

	err := exec.View(context.Background(), func(u *Unit) error {
		pool, err := u.Credit.Pool()
		require.NoError(t, err)
		require.Zero(t, pool.TotalShares)
		return nil
	})
	require.NoError(t, err)
}

func TestApplyDiscardsFailedOperation(t *testing.T) {
	exec, emitter := newTestExecutor(t)
	initialize(t, exec)
	emitter.types = nil

	provider := testAddress(3)
	err := exec.Apply(context.Background(), "deposit", func(u *Unit) error {
		if err := u.Custody.Mint(provider, 1_000); err != nil {
			return err
		}
		if _, err := u.Credit.Deposit(provider, 1_000); err != nil {
			return err
		}
		// A later failure unwinds the mint and the deposit.
		_, err := u.Credit.Withdraw(provider, 5_000)
		return err
	})
	require.ErrorIs(t, err, credit.ErrInsufficientLiquidity)
	require.Empty(t, emitter.types)

	err = exec.View(context.Background(), func(u *Unit) error {
		balance, err := u.Custody.Balance(provider)
		require.NoError(t, err)
		require.Zero(t, balance)
		pool, err := u.Credit.Pool()
		require.NoError(t, err)
		require.Zero(t, pool.TotalAssets)
		return nil
	})
	require.NoError(t, err)
}

func TestViewDiscardsWrites(t *testing.T) {
	exec, _ := newTestExecutor(t)
	err := exec.View(context.Background(), func(u *Unit) error {
		return u.Custody.Mint(testAddress(4), 10)
	})
	require.NoError(t, err)
	err = exec.View(context.Background(), func(u *Unit) error {
		balance, err := u.Custody.Balance(testAddress(4))
		require.NoError(t, err)
		require.Zero(t, balance)
		return nil
	})
	require.NoError(t, err)
}

func TestApplyHonoursPauses(t *testing.T) {
	exec, _ := newTestExecutor(t)
	exec.SetPauses(nativecommon.NewPauseSet(credit.ModuleName))
	err := exec.Apply(context.Background(), "initialize", func(u *Unit) error {
		_, err := u.Credit.Initialize(testAddress(1), testAddress(2), credit.GlobalParams{})
		return err
	})
	require.True(t, errors.Is(err, nativecommon.ErrModulePaused))
}

func TestApplyRejectsCancelledContext(t *testing.T) {
	exec, _ := newTestExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := exec.Apply(ctx, "noop", func(*Unit) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestClockIsSampledOncePerOperation(t *testing.T) {
	exec, _ := newTestExecutor(t)
	ticks := int64(0)
	exec.SetNowFunc(func() int64 {
		ticks++
		return ticks
	})
	var seen []int64
	err := exec.Apply(context.Background(), "clock", func(u *Unit) error {
		seen = append(seen, u.Now)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1}, seen)
}
