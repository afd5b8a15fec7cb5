package main

import (
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/veil-network/veil-wallet/config"
	"github.com/veil-network/veil-wallet/internal/core/application"
	dbbadger "github.com/veil-network/veil-wallet/internal/infrastructure/storage/db/badger"
	"github.com/veil-network/veil-wallet/pkg/ledger"
	"github.com/veil-network/veil-wallet/pkg/poi"
	"github.com/veil-network/veil-wallet/pkg/shielder"
	"github.com/veil-network/veil-wallet/pkg/tokenmeta"
)

// appServices bundles everything a command can need. Commands that only touch
// local state never dial the RPC node.
type appServices struct {
	db *dbbadger.DbManager

	walletService  application.WalletService
	scannerService application.ScannerService
	balanceService application.BalanceService
	shieldService  application.ShieldService
	ledgerService  ledger.Service
	metaService    tokenmeta.Service
}

func (s *appServices) close() {
	if s.db != nil {
		s.db.Close()
	}
}

// localServices opens the stores and builds the services that work offline.
func localServices() (*appServices, error) {
	db, err := dbbadger.NewDbManager(config.GetDbDir(), nil)
	if err != nil {
		return nil, err
	}

	walletService, err := application.NewWalletService(application.WalletServiceOpts{
		WalletRepository: dbbadger.NewWalletRepositoryImpl(db),
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	poiService, err := poiServiceFromConfig()
	if err != nil {
		db.Close()
		return nil, err
	}
	balanceService, err := application.NewBalanceService(application.BalanceServiceOpts{
		NoteRepository: dbbadger.NewNoteRepositoryImpl(db),
		PoiService:     poiService,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &appServices{
		db:             db,
		walletService:  walletService,
		balanceService: balanceService,
	}, nil
}

// chainServices additionally dials the RPC node and builds the scanning and
// shielding services on top of the local ones.
func chainServices() (*appServices, error) {
	services, err := localServices()
	if err != nil {
		return nil, err
	}

	contractAddress, err := config.GetContractAddress()
	if err != nil {
		services.close()
		return nil, err
	}

	client, err := ethclient.Dial(config.GetString(config.RPCEndpointKey))
	if err != nil {
		services.close()
		return nil, err
	}

	ledgerService, err := ledger.NewService(ledger.ServiceOpts{
		Client:            client,
		ContractAddress:   contractAddress,
		ChunkSize:         uint64(config.GetInt(config.ChunkSizeKey)),
		MaxRetries:        config.GetInt(config.MaxRetriesKey),
		RequestsPerSecond: config.GetInt(config.RequestsPerSecondKey),
	})
	if err != nil {
		services.close()
		return nil, err
	}

	scannerService, err := application.NewScannerService(application.ScannerServiceOpts{
		LedgerService:  ledgerService,
		WalletService:  services.walletService,
		NoteRepository: dbbadger.NewNoteRepositoryImpl(services.db),
		DeployBlock:    config.GetUint64(config.DeployBlockKey),
		Workers:        config.GetInt(config.ScanWorkersKey),
	})
	if err != nil {
		services.close()
		return nil, err
	}

	shielderService, err := shielder.NewService(shielder.ServiceOpts{
		Client:          client,
		ContractAddress: contractAddress,
	})
	if err != nil {
		services.close()
		return nil, err
	}
	shieldService, err := application.NewShieldService(application.ShieldServiceOpts{
		LedgerService:   ledgerService,
		ShielderService: shielderService,
		WalletService:   services.walletService,
	})
	if err != nil {
		services.close()
		return nil, err
	}

	metaService, err := tokenmeta.NewService(tokenmeta.ServiceOpts{Client: client})
	if err != nil {
		services.close()
		return nil, err
	}

	services.ledgerService = ledgerService
	services.scannerService = scannerService
	services.shieldService = shieldService
	services.metaService = metaService
	return services, nil
}

func poiServiceFromConfig() (poi.Service, error) {
	endpoint := config.GetString(config.PoiEndpointKey)
	if len(endpoint) <= 0 {
		return nil, nil
	}
	timeout := time.Duration(config.GetInt(config.PoiRequestTimeoutKey)) * time.Millisecond
	return poi.NewService(poi.ServiceOpts{Endpoint: endpoint, Timeout: timeout})
}

func walletIDFromContext(ctx *cli.Context) (uuid.UUID, error) {
	return uuid.Parse(ctx.String("wallet"))
}

func unlockFromContext(
	ctx *cli.Context, services *appServices,
) (uuid.UUID, error) {
	walletID, err := walletIDFromContext(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if err := services.walletService.UnlockWallet(
		ctx.Context, walletID, ctx.String("passphrase"),
	); err != nil {
		return uuid.Nil, err
	}
	return walletID, nil
}
