package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var scan = cli.Command{
	Name:  "scan",
	Usage: "reconcile a wallet against the on-ledger commitment history",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "wallet",
			Usage:    "the wallet id",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "passphrase",
			Usage:    "the wallet passphrase",
			Required: true,
		},
	},
	Action: scanAction,
}

func scanAction(ctx *cli.Context) error {
	services, err := chainServices()
	if err != nil {
		return err
	}
	defer services.close()

	walletID, err := unlockFromContext(ctx, services)
	if err != nil {
		return err
	}
	defer services.walletService.LockWallet(walletID)

	snapshot, err := services.scannerService.Scan(ctx.Context, walletID)
	if err != nil {
		return err
	}

	spent := 0
	for _, note := range snapshot.Notes {
		if note.IsSpent {
			spent++
		}
	}
	fmt.Printf(
		"scanned to block %d (generation %d): %d notes, %d spent\n",
		snapshot.ScannedToBlock, snapshot.Generation, len(snapshot.Notes), spent,
	)
	return nil
}
