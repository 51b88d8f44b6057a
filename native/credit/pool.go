package credit

import (
	"fmt"

	"github.com/Wenbobobo/Solease/crypto"
)

// Deposit moves amount from provider into the pool vault and mints shares at
// the current exchange rate. It returns the shares minted.
func (e *Engine) Deposit(provider crypto.Address, amount uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return 0, err
	}
	pool, err := e.loadPool(cfg)
	if err != nil {
		return 0, err
	}
	minted, err := sharesForDeposit(amount, pool.TotalShares, pool.TotalAssets)
	if err != nil {
		return 0, err
	}
	if minted == 0 {
		return 0, fmt.Errorf("%w: deposit too small to mint shares", ErrInvalidAmount)
	}
	pos, _, err := e.state.CreditLpPosition(pool.ID, provider)
	if err != nil {
		return 0, err
	}
	if pos == nil {
		pos = &LpPosition{Pool: pool.ID, Owner: provider}
	}
	positionShares, err := checkedAdd(pos.Shares, minted)
	if err != nil {
		return 0, err
	}
	totalShares, err := checkedAdd(pool.TotalShares, minted)
	if err != nil {
		return 0, err
	}
	totalAssets, err := checkedAdd(pool.TotalAssets, amount)
	if err != nil {
		return 0, err
	}
	if err := e.custody.Transfer(provider, pool.Vault, amount, crypto.AccountSigner(provider)); err != nil {
		return 0, fmt.Errorf("credit: deposit transfer: %w", err)
	}
	pos.Shares = positionShares
	pool.TotalShares = totalShares
	pool.TotalAssets = totalAssets
	if err := e.state.PutCreditLpPosition(pos); err != nil {
		return 0, err
	}
	if err := e.state.PutCreditPool(pool); err != nil {
		return 0, err
	}
	e.emit(newPoolEvent(EventTypePoolDeposited, pool, provider, amount, minted))
	return minted, nil
}

// Withdraw burns shares from provider's position and pays out the
// proportional assets from the pool vault. It returns the amount paid.
func (e *Engine) Withdraw(provider crypto.Address, shares uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if shares == 0 {
		return 0, ErrInvalidAmount
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return 0, err
	}
	pool, err := e.loadPool(cfg)
	if err != nil {
		return 0, err
	}
	pos, ok, err := e.state.CreditLpPosition(pool.ID, provider)
	if err != nil {
		return 0, err
	}
	if !ok || pos == nil || pos.Shares < shares {
		return 0, ErrInsufficientLiquidity
	}
	amount, err := assetsForShares(shares, pool.TotalShares, pool.TotalAssets)
	if err != nil {
		return 0, err
	}
	available, err := e.custody.Balance(pool.Vault)
	if err != nil {
		return 0, err
	}
	if available < amount {
		return 0, ErrInsufficientLiquidity
	}
	positionShares, err := checkedSub(pos.Shares, shares)
	if err != nil {
		return 0, err
	}
	totalShares, err := checkedSub(pool.TotalShares, shares)
	if err != nil {
		return 0, err
	}
	totalAssets, err := checkedSub(pool.TotalAssets, amount)
	if err != nil {
		return 0, err
	}
	if err := e.custody.Transfer(pool.Vault, provider, amount, e.poolSigner(pool.ID)); err != nil {
		return 0, fmt.Errorf("credit: withdraw transfer: %w", err)
	}
	pos.Shares = positionShares
	pool.TotalShares = totalShares
	pool.TotalAssets = totalAssets
	if err := e.state.PutCreditLpPosition(pos); err != nil {
		return 0, err
	}
	if err := e.state.PutCreditPool(pool); err != nil {
		return 0, err
	}
	e.emit(newPoolEvent(EventTypePoolWithdrawn, pool, provider, amount, shares))
	return amount, nil
}
