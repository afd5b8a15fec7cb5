package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/veil-network/veil-wallet/config"
)

var genseed = cli.Command{
	Name:   "genseed",
	Usage:  "generate a new wallet mnemonic",
	Action: genSeedAction,
}

var initwallet = cli.Command{
	Name:  "init",
	Usage: "create a new wallet from a mnemonic, encrypted under a passphrase",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "mnemonic",
			Usage:    "the BIP39 mnemonic of the wallet",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "passphrase",
			Usage:    "the passphrase encrypting the mnemonic at rest",
			Required: true,
		},
		&cli.UintFlag{
			Name:  "account-index",
			Usage: "the account index to derive keys at",
		},
	},
	Action: initWalletAction,
}

var listwallets = cli.Command{
	Name:   "list",
	Usage:  "list the stored wallets",
	Action: listWalletsAction,
}

var address = cli.Command{
	Name:  "address",
	Usage: "show the shielded address of a wallet",
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
		&cli.BoolFlag{
			Name:  "all-chains",
			Usage: "encode the address as valid on every chain",
		},
	},
	Action: addressAction,
}

func genSeedAction(ctx *cli.Context) error {
	services, err := localServices()
	if err != nil {
		return err
	}
	defer services.close()

	mnemonic, err := services.walletService.GenSeed(ctx.Context)
	if err != nil {
		return err
	}
	fmt.Println(mnemonic)
	return nil
}

func initWalletAction(ctx *cli.Context) error {
	services, err := localServices()
	if err != nil {
		return err
	}
	defer services.close()

	wallet, err := services.walletService.CreateWallet(
		ctx.Context,
		ctx.String("mnemonic"),
		ctx.String("passphrase"),
		uint32(ctx.Uint("account-index")),
	)
	if err != nil {
		return err
	}

	fmt.Println(wallet.ID)
	return nil
}

func listWalletsAction(ctx *cli.Context) error {
	services, err := localServices()
	if err != nil {
		return err
	}
	defer services.close()

	wallets, err := services.walletService.ListWallets(ctx.Context)
	if err != nil {
		return err
	}

	for _, wallet := range wallets {
		fmt.Printf(
			"%s\taccount %d\tcreated %s\n",
			wallet.ID, wallet.AccountIndex,
			wallet.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return nil
}

func addressAction(ctx *cli.Context) error {
	services, err := localServices()
	if err != nil {
		return err
	}
	defer services.close()

	walletID, err := unlockFromContext(ctx, services)
	if err != nil {
		return err
	}
	defer services.walletService.LockWallet(walletID)

	chain := config.GetChain()
	if ctx.Bool("all-chains") {
		chain = nil
	}

	addr, err := services.walletService.Address(walletID, chain)
	if err != nil {
		return err
	}
	fmt.Println(addr)
	return nil
}
