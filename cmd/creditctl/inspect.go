package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/Wenbobobo/Solease/core"
	"github.com/Wenbobobo/Solease/crypto"
	"github.com/Wenbobobo/Solease/native/registry"
)

var cmdInspect = &cli.Command{
	Name:  "inspect",
	Usage: "print committed protocol records",
	Subcommands: []*cli.Command{
		{
			Name: "config",
			Action: func(cctx *cli.Context) error {
				return inspect(cctx, func(u *core.Unit) (interface{}, error) { return u.Credit.Config() })
			},
		},
		{
			Name: "pool",
			Action: func(cctx *cli.Context) error {
				return inspect(cctx, func(u *core.Unit) (interface{}, error) { return u.Credit.Pool() })
			},
		},
		{
			Name:  "loan",
			Flags: []cli.Flag{&cli.StringFlag{Name: "id", Required: true}},
			Action: func(cctx *cli.Context) error {
				id, err := addressFlag(cctx, "id")
				if err != nil {
					return err
				}
				return inspect(cctx, func(u *core.Unit) (interface{}, error) { return u.Credit.Loan(id) })
			},
		},
		{
			Name:  "offer",
			Flags: []cli.Flag{&cli.StringFlag{Name: "id", Required: true}},
			Action: func(cctx *cli.Context) error {
				id, err := addressFlag(cctx, "id")
				if err != nil {
					return err
				}
				return inspect(cctx, func(u *core.Unit) (interface{}, error) { return u.Credit.Offer(id) })
			},
		},
		{
			Name:  "auction",
			Flags: []cli.Flag{&cli.StringFlag{Name: "loan", Required: true}},
			Action: func(cctx *cli.Context) error {
				loan, err := addressFlag(cctx, "loan")
				if err != nil {
					return err
				}
				return inspect(cctx, func(u *core.Unit) (interface{}, error) { return u.Credit.Auction(loan) })
			},
		},
		{
			Name:  "account",
			Flags: []cli.Flag{&cli.StringFlag{Name: "address", Required: true}},
			Action: func(cctx *cli.Context) error {
				addr, err := addressFlag(cctx, "address")
				if err != nil {
					return err
				}
				return inspect(cctx, func(u *core.Unit) (interface{}, error) { return u.Custody.Account(addr) })
			},
		},
	},
}

func inspect(cctx *cli.Context, read func(*core.Unit) (interface{}, error)) error {
	s, err := openSession(cctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var out interface{}
	err = s.exec.View(context.Background(), func(u *core.Unit) error {
		out, err = read(u)
		return err
	})
	if err != nil {
		return err
	}
	return writeJSON(cctx.App.Writer, out)
}

var cmdDerive = &cli.Command{
	Name:  "derive",
	Usage: "compute program-derived addresses without touching state",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "collateral", Usage: "collateral asset for the loan and escrow addresses"},
		&cli.StringFlag{Name: "domain", Usage: "registered name whose asset address is used as collateral"},
		&cli.StringFlag{Name: "lender", Usage: "lender for the offer address"},
		&cli.Uint64Flag{Name: "nonce", Usage: "offer nonce"},
	},
	Action: func(cctx *cli.Context) error {
		s, err := openSession(cctx)
		if err != nil {
			return err
		}
		defer s.Close()

		asset, err := s.cfg.FundingAssetAddress()
		if err != nil {
			return err
		}
		out := map[string]interface{}{}
		err = s.exec.View(context.Background(), func(u *core.Unit) error {
			pool, err := u.Credit.PoolAddress(asset)
			if err != nil {
				return err
			}
			out["pool"] = pool

			collateral, ok, err := collateralOf(cctx)
			if err != nil {
				return err
			}
			if ok {
				loan, err := u.Credit.LoanAddress(collateral)
				if err != nil {
					return err
				}
				escrow, err := u.Credit.EscrowAddress(loan)
				if err != nil {
					return err
				}
				auction, err := u.Credit.AuctionAddress(loan)
				if err != nil {
					return err
				}
				out["collateral"], out["loan"], out["escrow"], out["auction"] = collateral, loan, escrow, auction
			}
			if cctx.IsSet("lender") {
				lender, err := addressFlag(cctx, "lender")
				if err != nil {
					return err
				}
				offer, err := u.Credit.OfferAddress(lender, cctx.Uint64("nonce"))
				if err != nil {
					return err
				}
				out["offer"] = offer
			}
			return nil
		})
		if err != nil {
			return err
		}
		return writeJSON(cctx.App.Writer, out)
	},
}

func collateralOf(cctx *cli.Context) (crypto.Address, bool, error) {
	if name := cctx.String("domain"); name != "" {
		return registry.AssetAddress(name), true, nil
	}
	if !cctx.IsSet("collateral") {
		return crypto.Address{}, false, nil
	}
	addr, err := addressFlag(cctx, "collateral")
	return addr, err == nil, err
}
