package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

const defaultConfig = "./solease.toml"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "creditctl",
		Usage: "operate a local Solease credit deployment",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: defaultConfig,
				Usage: "path to the protocol TOML file",
			},
		},
		Commands: []*cli.Command{
			cmdInit,
			cmdMint,
			cmdRegister,
			cmdKeygen,
			cmdToken,
			cmdInspect,
			cmdDerive,
		},
	}
}
