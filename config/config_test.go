package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/native/credit"
)

func testAddress(b byte) crypto.Address {
	var out crypto.Address
	out[0] = 0xA0
	out[31] = b
	return out
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solease.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, filepath.Join(dir, "admin.keystore"), cfg.AdminKeystorePath)
	require.Equal(t, credit.DefaultPoolTerms(), cfg.Credit.PoolTerms)

	key, err := cfg.LoadAdminKey()
	require.NoError(t, err)
	require.False(t, key.Address().IsZero())

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.ProgramID, reloaded.ProgramID)
	require.Equal(t, cfg.Credit.Params, reloaded.Credit.Params)
}

func TestLoadParsesCreditSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solease.toml")
	program := testAddress(7)
	asset := testAddress(8)
	contents := `DataDir = "./data"
ProgramID = "` + program.String() + `"
FundingAsset = "` + asset.String() + `"

[credit]
PausedModules = ["custody"]

[credit.params]
GlobalCap = 100000000
GracePeriodSeconds = 3600
MinBidIncrementBps = 250
AuctionDurationSeconds = 7200

[credit.pool_terms]
Principal = 5000000
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.EqualValues(t, 100_000_000, cfg.Credit.Params.GlobalCap)
	require.EqualValues(t, 250, cfg.Credit.Params.MinBidIncrementBps)
	require.EqualValues(t, 5_000_000, cfg.Credit.PoolTerms.Principal)
	require.EqualValues(t, 14*86400, cfg.Credit.PoolTerms.DurationSeconds)
	require.Equal(t, []string{"custody"}, cfg.Credit.PausedModules)
	require.EqualValues(t, 6, cfg.Decimals)

	got, err := cfg.Program()
	require.NoError(t, err)
	require.Equal(t, program, got.ID())
}

func TestLoadRejectsUnknownKeysAndBadParams(t *testing.T) {
	dir := t.TempDir()
	program := testAddress(7)

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("Bogus = 1\n"), 0o644))
	_, err := Load(unknown)
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	contents := `ProgramID = "` + program.String() + `"
FundingAsset = "` + program.String() + `"
[credit.params]
MinBidIncrementBps = 20000
`
	require.NoError(t, os.WriteFile(bad, []byte(contents), 0o644))
	_, err = Load(bad)
	require.ErrorIs(t, err, credit.ErrInvalidParams)
}
