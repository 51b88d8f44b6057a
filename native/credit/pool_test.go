package credit

import (
	"errors"
	"math"
	"testing"
)

func TestDepositMintsAtExchangeRate(t *testing.T) {
	env := newTestEnv(t, defaultTestParams())
	first, second := testAddr(3), testAddr(4)

	env.depositLiquidity(first, 1_000)
	pool := env.currentPool()
	// Simulate accrued value: the pool now holds 2 assets per share.
	pool.TotalAssets = 2_000
	if err := env.state.PutCreditPool(pool); err != nil {
		t.Fatalf("put pool: %v", err)
	}

	env.mint(second, 500)
	minted, err := env.engine.Deposit(second, 500)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if minted != 250 {
		t.Fatalf("minted = %d, want 250", minted)
	}
	pos, err := env.engine.LpPosition(second)
	if err != nil {
		t.Fatalf("lp position: %v", err)
	}
	if pos.Shares != 250 {
		t.Fatalf("position shares = %d", pos.Shares)
	}
}

func TestDepositRejectsDust(t *testing.T) {
	env := newTestEnv(t, defaultTestParams())
	if _, err := env.engine.Deposit(testAddr(3), 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	env.depositLiquidity(testAddr(3), 10)
	pool := env.currentPool()
	pool.TotalAssets = 100
	if err := env.state.PutCreditPool(pool); err != nil {
		t.Fatalf("put pool: %v", err)
	}
	env.mint(testAddr(4), 5)
	if _, err := env.engine.Deposit(testAddr(4), 5); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero-share deposit, got %v", err)
	}
}

func TestWithdrawRedeemsProportionally(t *testing.T) {
	env := newTestEnv(t, defaultTestParams())
	lp := testAddr(3)
	env.depositLiquidity(lp, 50_000_000)

	paid, err := env.engine.Withdraw(lp, 20_000_000)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if paid != 20_000_000 || env.balance(lp) != 20_000_000 {
		t.Fatalf("paid = %d, balance = %d", paid, env.balance(lp))
	}
	pool := env.currentPool()
	if pool.TotalShares != 30_000_000 || pool.TotalAssets != 30_000_000 {
		t.Fatalf("unexpected pool: %+v", pool)
	}
	posBefore, err := env.engine.LpPosition(lp)
	if err != nil {
		t.Fatalf("lp position: %v", err)
	}
	vaultBefore, lpBefore := env.balance(pool.Vault), env.balance(lp)
	if _, err := env.engine.Withdraw(lp, 30_000_001); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity for excess shares, got %v", err)
	}
	posAfter, err := env.engine.LpPosition(lp)
	if err != nil {
		t.Fatalf("lp position: %v", err)
	}
	if *posAfter != *posBefore {
		t.Fatalf("position changed by failed withdraw: %+v -> %+v", posBefore, posAfter)
	}
	if after := env.currentPool(); *after != *pool {
		t.Fatalf("pool changed by failed withdraw: %+v -> %+v", pool, after)
	}
	if env.balance(pool.Vault) != vaultBefore || env.balance(lp) != lpBefore {
		t.Fatalf("balances changed by failed withdraw: vault %d -> %d, lp %d -> %d",
			vaultBefore, env.balance(pool.Vault), lpBefore, env.balance(lp))
	}
	if _, err := env.engine.Withdraw(testAddr(9), 1); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity without position, got %v", err)
	}
	if _, err := env.engine.Withdraw(lp, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestWithdrawKeepsExchangeRate(t *testing.T) {
	tests := []struct {
		name       string
		deposit    uint64
		assets     uint64
		burn       uint64
		wantPaid   uint64
		wantShares uint64
		wantAssets uint64
	}{
		{name: "even pool", deposit: 1_000, assets: 1_000, burn: 250, wantPaid: 250, wantShares: 750, wantAssets: 750},
		{name: "appreciated pool", deposit: 1_000, assets: 3_000, burn: 250, wantPaid: 750, wantShares: 750, wantAssets: 2_250},
		{name: "rounds down", deposit: 3, assets: 10, burn: 1, wantPaid: 3, wantShares: 2, wantAssets: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, defaultTestParams())
			lp := testAddr(3)
			env.depositLiquidity(lp, tt.deposit)
			if tt.assets > tt.deposit {
				pool := env.currentPool()
				pool.TotalAssets = tt.assets
				if err := env.state.PutCreditPool(pool); err != nil {
					t.Fatalf("put pool: %v", err)
				}
				env.mint(pool.Vault, tt.assets-tt.deposit)
			}
			paid, err := env.engine.Withdraw(lp, tt.burn)
			if err != nil {
				t.Fatalf("withdraw: %v", err)
			}
			if paid != tt.wantPaid || env.balance(lp) != tt.wantPaid {
				t.Fatalf("paid = %d, balance = %d, want %d", paid, env.balance(lp), tt.wantPaid)
			}
			pool := env.currentPool()
			if pool.TotalShares != tt.wantShares || pool.TotalAssets != tt.wantAssets {
				t.Fatalf("pool = (%d, %d), want (%d, %d)", pool.TotalShares, pool.TotalAssets, tt.wantShares, tt.wantAssets)
			}
			if env.balance(pool.Vault) != pool.TotalAssets {
				t.Fatalf("vault balance %d != total assets %d", env.balance(pool.Vault), pool.TotalAssets)
			}
		})
	}
}

func TestWithdrawBlockedByOutstandingLoans(t *testing.T) {
	env := newTestEnv(t, defaultTestParams())
	lp := testAddr(3)
	env.depositLiquidity(lp, 10_000_000)
	env.openPoolLoan(testAddr(4), "drain.sol")

	if _, err := env.engine.Withdraw(lp, 1); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity while principal is lent out, got %v", err)
	}
}

func TestShareMathUsesWideIntermediate(t *testing.T) {
	got, err := mulDiv(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	if err != nil || got != math.MaxUint64 {
		t.Fatalf("mulDiv = %d, %v", got, err)
	}
	if _, err := mulDiv(math.MaxUint64, 2, 1); !errors.Is(err, ErrMathOverflow) {
		t.Fatalf("expected ErrMathOverflow, got %v", err)
	}
	if _, err := mulDiv(1, 1, 0); !errors.Is(err, ErrMathOverflow) {
		t.Fatalf("expected ErrMathOverflow for zero denominator, got %v", err)
	}
	if _, err := checkedAddSeconds(math.MaxInt64, 1); !errors.Is(err, ErrMathOverflow) {
		t.Fatalf("expected ErrMathOverflow for timestamp overflow, got %v", err)
	}
}

func TestDepositAfterFullWriteOff(t *testing.T) {
	env := newTestEnv(t, defaultTestParams())
	lp := testAddr(3)
	env.depositLiquidity(lp, 10_000_000)
	loan, _ := env.openPoolLoan(testAddr(4), "writeoff.sol")

	env.now = loan.DueTs
	graced, err := env.engine.EnterGrace(loan.ID)
	if err != nil {
		t.Fatalf("enter grace: %v", err)
	}
	env.now = graced.GraceEndTs
	auction, err := env.engine.StartAuction(loan.ID)
	if err != nil {
		t.Fatalf("start auction: %v", err)
	}
	env.now = auction.EndTs
	if _, err := env.engine.CloseAuction(loan.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := env.engine.SettleAuction(loan.ID); err != nil {
		t.Fatalf("settle: %v", err)
	}
	pool := env.currentPool()
	if pool.TotalShares != 10_000_000 || pool.TotalAssets != 0 {
		t.Fatalf("expected a written-off pool, got %+v", pool)
	}

	depositor := testAddr(5)
	env.mint(depositor, 1_000)
	minted, err := env.engine.Deposit(depositor, 1_000)
	if err != nil {
		t.Fatalf("deposit into written-off pool: %v", err)
	}
	if minted != 1_000 {
		t.Fatalf("minted = %d, want 1000", minted)
	}
	pool = env.currentPool()
	if pool.TotalShares != 10_001_000 || pool.TotalAssets != 1_000 {
		t.Fatalf("unexpected pool after deposit: %+v", pool)
	}
}
