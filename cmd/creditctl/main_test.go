package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	protocolconfig "github.com/Wenbobobo/Solease/config"
	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/native/registry"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run(append([]string{"creditctl"}, args...)))
	return out.String()
}

func TestInitMintAndInspect(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "solease.toml")
	cfg, err := protocolconfig.Load(cfgPath)
	require.NoError(t, err)
	cfg.DataDir = filepath.Join(dir, "data")
	rewrite(t, cfgPath, cfg)

	var initOut map[string]string
	require.NoError(t, json.Unmarshal([]byte(run(t, "--config", cfgPath, "init")), &initOut))
	require.Equal(t, cfg.FundingAsset, initOut["fundingAsset"])

	var holder crypto.Address
	holder[0] = 7
	var minted struct {
		Balance uint64 `json:"balance"`
	}
	require.NoError(t, json.Unmarshal([]byte(run(t, "--config", cfgPath, "mint", "--to", holder.String(), "--amount", "2500")), &minted))
	require.EqualValues(t, 2500, minted.Balance)

	var registered map[string]string
	require.NoError(t, json.Unmarshal([]byte(run(t, "--config", cfgPath, "register-domain", "--name", "vault.sol", "--owner", holder.String())), &registered))
	require.Equal(t, registry.AssetAddress("vault.sol").String(), registered["asset"])

	var pool map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(run(t, "--config", cfgPath, "inspect", "pool")), &pool))
	require.Equal(t, initOut["pool"], pool["ID"])

	var derived map[string]string
	require.NoError(t, json.Unmarshal([]byte(run(t, "--config", cfgPath, "derive", "--domain", "vault.sol")), &derived))
	require.Equal(t, initOut["pool"], derived["pool"])
	require.NotEmpty(t, derived["escrow"])
}

func TestKeygenAndToken(t *testing.T) {
	dir := t.TempDir()
	keystore := filepath.Join(dir, "user.keystore")

	var generated map[string]string
	require.NoError(t, json.Unmarshal([]byte(run(t, "keygen", "--out", keystore)), &generated))
	require.NotEmpty(t, generated["address"])

	token := strings.TrimSpace(run(t, "token", "--secret", "0123456789abcdef", "--keystore", keystore, "--scope", "admin"))
	require.Equal(t, 2, strings.Count(token, "."))
}

func rewrite(t *testing.T, path string, cfg *protocolconfig.Config) {
	t.Helper()
	require.NoError(t, protocolconfig.Save(path, cfg))
}
