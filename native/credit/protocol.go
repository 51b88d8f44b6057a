package credit

import (
	"fmt"

	"github.com/Wenbobobo/Solease/crypto"
)

// Initialize records the singleton protocol configuration. It succeeds once;
// the admin identity is fixed from then on.
func (e *Engine) Initialize(admin, fundingAsset crypto.Address, params GlobalParams) (*ProtocolConfig, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if admin.IsZero() || fundingAsset.IsZero() {
		return nil, fmt.Errorf("%w: admin and funding asset required", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	_, exists, err := e.state.CreditConfig()
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyInitialized
	}
	cfg := &ProtocolConfig{
		Admin:        admin,
		FundingAsset: fundingAsset,
		GlobalParams: params,
	}
	if err := e.state.PutCreditConfig(cfg); err != nil {
		return nil, err
	}
	e.emit(newConfigEvent(cfg))
	out := *cfg
	return &out, nil
}

// InitializePool opens the liquidity pool for the configured funding asset
// together with its program-owned vault. Only the admin may call it.
func (e *Engine) InitializePool(caller crypto.Address) (*Pool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if caller != cfg.Admin {
		return nil, ErrUnauthorized
	}
	poolID, err := e.PoolAddress(cfg.FundingAsset)
	if err != nil {
		return nil, err
	}
	_, exists, err := e.state.CreditPool(poolID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyInitialized
	}
	authority, err := e.poolVaultAuthority(poolID)
	if err != nil {
		return nil, err
	}
	vault, err := e.poolVault(poolID)
	if err != nil {
		return nil, err
	}
	if err := e.custody.OpenVault(vault, authority); err != nil {
		return nil, fmt.Errorf("credit: open pool vault: %w", err)
	}
	pool := &Pool{
		ID:             poolID,
		FundingAsset:   cfg.FundingAsset,
		VaultAuthority: authority,
		Vault:          vault,
	}
	if err := e.state.PutCreditPool(pool); err != nil {
		return nil, err
	}
	e.emit(newPoolEvent(EventTypePoolInitialized, pool, crypto.Address{}, 0, 0))
	out := *pool
	return &out, nil
}
