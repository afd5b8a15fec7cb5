package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/veil-network/veil-wallet/pkg/merkleroot"
)

var validateroot = cli.Command{
	Name:  "validate-root",
	Usage: "compare a locally computed accumulator root against the pool contract",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "local",
			Usage:    "the locally computed root, hex encoded",
			Required: true,
		},
	},
	Action: validateRootAction,
}

func validateRootAction(ctx *cli.Context) error {
	services, err := chainServices()
	if err != nil {
		return err
	}
	defer services.close()

	onchain, err := services.ledgerService.MerkleRoot(ctx.Context)
	if err != nil {
		return err
	}

	result := merkleroot.Validate(ctx.String("local"), onchain)
	fmt.Println(result)
	if !result.Valid {
		return fmt.Errorf("local accumulator is out of sync, rescan required")
	}
	return nil
}
