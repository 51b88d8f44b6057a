package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/native/credit"
)

// Config is the protocol deployment file shared by creditd and creditctl.
type Config struct {
	DataDir           string `toml:"DataDir"`
	ProgramID         string `toml:"ProgramID"`
	FundingAsset      string `toml:"FundingAsset"`
	AdminKeystorePath string `toml:"AdminKeystorePath"`
	// Decimals of the funding asset, used only for display.
	Decimals int32  `toml:"Decimals"`
	Credit   Credit `toml:"credit"`
}

// Credit groups the protocol parameters written at initialisation and the
// pool loan reference terms applied by the daemon.
type Credit struct {
	Params        credit.GlobalParams `toml:"params"`
	PoolTerms     credit.PoolTerms    `toml:"pool_terms"`
	PausedModules []string            `toml:"PausedModules"`
}

const (
	defaultDecimals               = 6
	defaultGracePeriodSeconds     = 86400 * 3
	defaultAuctionDurationSeconds = 86400
	defaultMinBidIncrementBps     = 100
)

// Load loads the configuration from the given path. A missing file is
// replaced by a fresh local deployment with a generated admin key.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
	}

	cfg.applyDefaults(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults(path string) {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./solease-data"
	}
	if strings.TrimSpace(c.AdminKeystorePath) == "" {
		c.AdminKeystorePath = defaultKeystorePath(path)
	}
	if c.Decimals == 0 {
		c.Decimals = defaultDecimals
	}
	c.Credit.PoolTerms.EnsureDefaults()
	if c.Credit.PausedModules == nil {
		c.Credit.PausedModules = []string{}
	}
}

// Validate checks addresses and parameters.
func (c *Config) Validate() error {
	if _, err := c.Program(); err != nil {
		return err
	}
	if _, err := c.FundingAssetAddress(); err != nil {
		return err
	}
	if c.Decimals < 0 || c.Decimals > 18 {
		return fmt.Errorf("config: Decimals must be within [0,18]")
	}
	if err := c.Credit.Params.Validate(); err != nil {
		return fmt.Errorf("config: credit.params: %w", err)
	}
	if err := c.Credit.PoolTerms.Validate(); err != nil {
		return fmt.Errorf("config: credit.pool_terms: %w", err)
	}
	return nil
}

// Program returns the program whose derived identities the protocol uses.
func (c *Config) Program() (crypto.Program, error) {
	id, err := crypto.DecodeAddress(strings.TrimSpace(c.ProgramID))
	if err != nil {
		return crypto.Program{}, fmt.Errorf("config: ProgramID: %w", err)
	}
	return crypto.NewProgram(id), nil
}

// FundingAssetAddress decodes the funding asset identity.
func (c *Config) FundingAssetAddress() (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(c.FundingAsset))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("config: FundingAsset: %w", err)
	}
	return addr, nil
}

// LoadAdminKey reads the admin signing key from its keystore.
func (c *Config) LoadAdminKey() (*crypto.PrivateKey, error) {
	return crypto.LoadFromKeystore(c.AdminKeystorePath)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	admin, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, admin); err != nil {
		return nil, err
	}
	program, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	asset, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:           "./solease-data",
		ProgramID:         program.Address().String(),
		FundingAsset:      asset.Address().String(),
		AdminKeystorePath: keystorePath,
		Decimals:          defaultDecimals,
		Credit: Credit{
			Params: credit.GlobalParams{
				GracePeriodSeconds:     defaultGracePeriodSeconds,
				MinBidIncrementBps:     defaultMinBidIncrementBps,
				AuctionDurationSeconds: defaultAuctionDurationSeconds,
			},
			PoolTerms:     credit.DefaultPoolTerms(),
			PausedModules: []string{},
		},
	}
	if err := Save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "admin.keystore")
}
