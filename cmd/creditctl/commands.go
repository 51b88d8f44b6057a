package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	protocolconfig "github.com/Wenbobobo/Solease/config"
	"github.com/Wenbobobo/Solease/core"
	"github.com/Wenbobobo/Solease/core/state"
	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/gateway/middleware"
	"github.com/Wenbobobo/Solease/native/credit"
	"github.com/Wenbobobo/Solease/storage"
)

// session is an executor over the deployment's state database. The daemon
// holds the database lock while running, so offline commands require it to
// be stopped.
type session struct {
	cfg  *protocolconfig.Config
	db   *storage.LevelDB
	exec *core.Executor
}

func openSession(cctx *cli.Context) (*session, error) {
	cfg, err := protocolconfig.Load(cctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	program, err := cfg.Program()
	if err != nil {
		return nil, err
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	exec := core.NewExecutor(state.NewManager(db), program)
	exec.SetPoolTerms(cfg.Credit.PoolTerms)
	return &session{cfg: cfg, db: db, exec: exec}, nil
}

func (s *session) Close() { s.db.Close() }

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addressFlag(cctx *cli.Context, name string) (crypto.Address, error) {
	raw := strings.TrimSpace(cctx.String(name))
	if raw == "" {
		return crypto.Address{}, fmt.Errorf("--%s is required", name)
	}
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

var cmdInit = &cli.Command{
	Name:  "init",
	Usage: "write the protocol configuration and open the liquidity pool",
	Action: func(cctx *cli.Context) error {
		s, err := openSession(cctx)
		if err != nil {
			return err
		}
		defer s.Close()

		adminKey, err := s.cfg.LoadAdminKey()
		if err != nil {
			return fmt.Errorf("load admin key: %w", err)
		}
		asset, err := s.cfg.FundingAssetAddress()
		if err != nil {
			return err
		}
		admin := adminKey.Address()
		var pool *credit.Pool
		err = s.exec.Apply(context.Background(), "initialize", func(u *core.Unit) error {
			if _, err := u.Credit.Initialize(admin, asset, s.cfg.Credit.Params); err != nil {
				return err
			}
			pool, err = u.Credit.InitializePool(admin)
			return err
		})
		if err != nil {
			return err
		}
		return writeJSON(cctx.App.Writer, map[string]interface{}{
			"admin":        admin,
			"fundingAsset": asset,
			"pool":         pool.ID,
			"poolVault":    pool.Vault,
		})
	},
}

var cmdMint = &cli.Command{
	Name:  "mint",
	Usage: "credit funding-asset balance to an account",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "to", Usage: "recipient address", Required: true},
		&cli.Uint64Flag{Name: "amount", Usage: "amount in base units", Required: true},
	},
	Action: func(cctx *cli.Context) error {
		to, err := addressFlag(cctx, "to")
		if err != nil {
			return err
		}
		s, err := openSession(cctx)
		if err != nil {
			return err
		}
		defer s.Close()

		var balance uint64
		err = s.exec.Apply(context.Background(), "mint", func(u *core.Unit) error {
			if err := u.Custody.Mint(to, cctx.Uint64("amount")); err != nil {
				return err
			}
			balance, err = u.Custody.Balance(to)
			return err
		})
		if err != nil {
			return err
		}
		return writeJSON(cctx.App.Writer, map[string]interface{}{"address": to, "balance": balance})
	},
}

var cmdRegister = &cli.Command{
	Name:  "register-domain",
	Usage: "register a name that can be pledged as collateral",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "name", Required: true},
		&cli.StringFlag{Name: "owner", Usage: "owner address", Required: true},
	},
	Action: func(cctx *cli.Context) error {
		owner, err := addressFlag(cctx, "owner")
		if err != nil {
			return err
		}
		s, err := openSession(cctx)
		if err != nil {
			return err
		}
		defer s.Close()

		var asset crypto.Address
		err = s.exec.Apply(context.Background(), "register_name", func(u *core.Unit) error {
			record, err := u.Registry.Register(cctx.String("name"), owner, u.Now)
			if err != nil {
				return err
			}
			asset = record.Asset
			return nil
		})
		if err != nil {
			return err
		}
		return writeJSON(cctx.App.Writer, map[string]interface{}{"asset": asset, "owner": owner})
	},
}

var cmdKeygen = &cli.Command{
	Name:  "keygen",
	Usage: "generate an account key into a keystore file",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Usage: "keystore path", Required: true},
	},
	Action: func(cctx *cli.Context) error {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return err
		}
		if err := crypto.SaveToKeystore(cctx.String("out"), key); err != nil {
			return err
		}
		return writeJSON(cctx.App.Writer, map[string]interface{}{"address": key.Address(), "keystore": cctx.String("out")})
	},
}

var cmdToken = &cli.Command{
	Name:  "token",
	Usage: "issue a bearer token for creditd",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "secret", Usage: "creditd auth.hmac_secret", EnvVars: []string{"CREDITD_HMAC_SECRET"}, Required: true},
		&cli.StringFlag{Name: "subject", Usage: "caller address"},
		&cli.StringFlag{Name: "keystore", Usage: "derive the subject from a keystore"},
		&cli.StringFlag{Name: "issuer", Value: "solease"},
		&cli.StringFlag{Name: "audience", Value: "creditd"},
		&cli.StringSliceFlag{Name: "scope"},
		&cli.DurationFlag{Name: "ttl", Value: time.Hour},
	},
	Action: func(cctx *cli.Context) error {
		var subject crypto.Address
		if path := strings.TrimSpace(cctx.String("keystore")); path != "" {
			key, err := crypto.LoadFromKeystore(path)
			if err != nil {
				return err
			}
			subject = key.Address()
		} else {
			addr, err := addressFlag(cctx, "subject")
			if err != nil {
				return err
			}
			subject = addr
		}
		token, err := middleware.IssueToken(cctx.String("secret"), cctx.String("issuer"), cctx.String("audience"),
			subject, cctx.StringSlice("scope"), cctx.Duration("ttl"), time.Now())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cctx.App.Writer, token)
		return err
	},
}
