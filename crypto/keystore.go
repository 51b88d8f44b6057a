package crypto

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type keyFile struct {
	Address string `json:"address"`
	Seed    string `json:"seed"`
}

// SaveToKeystore writes the key seed to path as a 0600 JSON file. The parent
// directory is created with 0700 permissions when missing.
func SaveToKeystore(path string, key *PrivateKey) error {
	if key == nil {
		return errors.New("crypto: nil private key")
	}
	if path == "" {
		return errors.New("crypto: empty keystore path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(keyFile{
		Address: key.Address().String(),
		Seed:    hex.EncodeToString(key.Seed()),
	}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "keystore-")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// LoadFromKeystore reads a key written by SaveToKeystore and checks that the
// recorded address matches the seed.
func LoadFromKeystore(path string) (*PrivateKey, error) {
	if path == "" {
		return nil, errors.New("crypto: empty keystore path")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stored keyFile
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("crypto: decode keystore: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(stored.Seed))
	if err != nil {
		return nil, fmt.Errorf("crypto: decode seed: %w", err)
	}
	key, err := PrivateKeyFromSeed(seed)
	if err != nil {
		return nil, err
	}
	if stored.Address != "" && stored.Address != key.Address().String() {
		return nil, errors.New("crypto: keystore address does not match seed")
	}
	return key, nil
}
