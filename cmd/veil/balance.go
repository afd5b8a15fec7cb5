package main

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/veil-network/veil-wallet/internal/core/domain"
)

var balance = cli.Command{
	Name:  "balance",
	Usage: "show the per-token balances of a wallet, split by spendability",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "wallet",
			Usage:    "the wallet id",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "refresh",
			Usage: "refresh the compliance-proof statuses before aggregating",
		},
	},
	Action: balanceAction,
}

func balanceAction(ctx *cli.Context) error {
	services, err := chainServices()
	if err != nil {
		return err
	}
	defer services.close()

	walletID, err := walletIDFromContext(ctx)
	if err != nil {
		return err
	}

	if ctx.Bool("refresh") {
		if _, err := services.balanceService.RefreshProofStatuses(
			ctx.Context, walletID,
		); err != nil {
			return err
		}
	}

	balances, err := services.balanceService.Balances(ctx.Context, walletID)
	if err != nil {
		return err
	}

	tokens := make([]string, 0, len(balances))
	for token := range balances {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	for _, token := range tokens {
		tokenBalance := balances[token]
		meta := services.metaService.Metadata(ctx.Context, tokenBalance.Token.Address)

		fmt.Printf(
			"%s (%s): %s spendable, %s total\n",
			meta.Symbol, token,
			meta.Format(tokenBalance.Spendable()),
			meta.Format(tokenBalance.Total()),
		)
		for bucket, value := range tokenBalance.Buckets {
			if bucket == domain.BucketSpendable {
				continue
			}
			fmt.Printf("  %s: %s\n", bucket, meta.Format(value))
		}
	}
	return nil
}
