package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/veil-network/veil-wallet/pkg/ledger"
)

var shield = cli.Command{
	Name:  "shield",
	Usage: "build and simulate a shield of public funds into the pool",
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
		&cli.StringFlag{
			Name:  "to",
			Usage: "the recipient shielded address, defaulting to the wallet's own",
		},
		&cli.StringFlag{
			Name:     "token",
			Usage:    "the ERC20 token address to shield",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "amount",
			Usage:    "the amount to shield, in base units",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "from",
			Usage:    "the public account the shield will be submitted from",
			Required: true,
		},
	},
	Action: shieldAction,
}

func shieldAction(ctx *cli.Context) error {
	services, err := chainServices()
	if err != nil {
		return err
	}
	defer services.close()

	if !common.IsHexAddress(ctx.String("token")) {
		return fmt.Errorf("token must be a valid address")
	}
	if !common.IsHexAddress(ctx.String("from")) {
		return fmt.Errorf("from must be a valid address")
	}
	amount, ok := new(big.Int).SetString(ctx.String("amount"), 10)
	if !ok {
		return fmt.Errorf("amount must be a base-10 integer")
	}

	walletID, err := unlockFromContext(ctx, services)
	if err != nil {
		return err
	}
	defer services.walletService.LockWallet(walletID)

	recipient := ctx.String("to")
	if len(recipient) <= 0 {
		recipient, err = services.walletService.Address(walletID, nil)
		if err != nil {
			return err
		}
	}

	token := ledger.TokenData{
		Type:    ledger.TokenERC20,
		Address: common.HexToAddress(ctx.String("token")),
	}

	prepared, err := services.shieldService.PrepareShield(
		ctx.Context, walletID, common.HexToAddress(ctx.String("from")),
		recipient, token, amount,
	)
	if err != nil {
		return err
	}

	fmt.Printf("estimated gas: %d\n", prepared.GasEstimate)
	fmt.Printf("calldata: %s\n", hexutil.Encode(prepared.Calldata))
	fmt.Printf("shield key (keep private): %s\n", hexutil.Encode(prepared.EphemeralKey[:]))
	return nil
}
