package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/veil-network/veil-wallet/config"
)

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "veil wallet CLI"
	app.Usage = "Command line interface for the veil shielded pool wallet"
	app.Commands = append(
		app.Commands,
		&genseed,
		&initwallet,
		&listwallets,
		&address,
		&scan,
		&balance,
		&shield,
		&validateroot,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[veil] %v\n", err)
	os.Exit(1)
}
