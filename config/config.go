package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/veil-network/veil-wallet/pkg/keychain"
	"github.com/veil-network/veil-wallet/pkg/ledger"
)

const (
	// RPCEndpointKey is the url of the Ethereum JSON-RPC node to scan through
	RPCEndpointKey = "RPC_ENDPOINT"
	// ContractAddressKey is the address of the shielded pool contract
	ContractAddressKey = "CONTRACT_ADDRESS"
	// DeployBlockKey is the block the pool contract was deployed at; first scans start here
	DeployBlockKey = "DEPLOY_BLOCK"
	// DatadirKey is the local data directory to store the internal state of the wallet
	DatadirKey = "DATA_DIR_PATH"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// ChunkSizeKey is the block span of one log query while scanning
	ChunkSizeKey = "CHUNK_SIZE"
	// MaxRetriesKey is the number of attempts per chunk before it is reported as failed
	MaxRetriesKey = "MAX_RETRIES"
	// RequestsPerSecondKey paces the log queries against the RPC node
	RequestsPerSecondKey = "REQUESTS_PER_SECOND"
	// ScanWorkersKey bounds the trial-decryption concurrency of a scan
	ScanWorkersKey = "SCAN_WORKERS"
	// PoiEndpointKey is the base url of the proof-of-innocence aggregator; empty disables status refresh
	PoiEndpointKey = "POI_ENDPOINT"
	// PoiRequestTimeoutKey are the milliseconds to wait for aggregator responses before timeouts
	PoiRequestTimeoutKey = "POI_REQUEST_TIMEOUT"
	// ChainTypeKey is the ledger family the wallet addresses are bound to
	ChainTypeKey = "CHAIN_TYPE"
	// ChainIDKey is the chain id within the ledger family
	ChainIDKey = "CHAIN_ID"

	// DbLocation is the subdirectory of the datadir holding the badger stores
	DbLocation = "db"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("veil-wallet", false)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("VEIL")
	vip.AutomaticEnv()

	vip.SetDefault(RPCEndpointKey, "http://localhost:8545")
	vip.SetDefault(DeployBlockKey, 0)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(ChunkSizeKey, int(ledger.DefaultChunkSize))
	vip.SetDefault(MaxRetriesKey, ledger.DefaultMaxRetries)
	vip.SetDefault(RequestsPerSecondKey, ledger.DefaultRequestsPerSecond)
	vip.SetDefault(ScanWorkersKey, 0)
	vip.SetDefault(PoiRequestTimeoutKey, 15000)
	vip.SetDefault(ChainTypeKey, 0)
	vip.SetDefault(ChainIDKey, 1)

	if err := validate(); err != nil {
		log.WithError(err).Panic("error while validating config")
	}

	if err := initDatadir(); err != nil {
		log.WithError(err).Panic("error while creating datadir")
	}
}

// GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

// GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

// GetUint64 ...
func GetUint64(key string) uint64 {
	return vip.GetUint64(key)
}

// GetDuration ...
func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

// GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

// GetDatadir ...
func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetDbDir ...
func GetDbDir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

// GetContractAddress parses the configured pool contract address.
func GetContractAddress() (common.Address, error) {
	addr := GetString(ContractAddressKey)
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf(
			"%s must be a valid contract address", ContractAddressKey,
		)
	}
	return common.HexToAddress(addr), nil
}

// GetChain returns the chain the wallet addresses are bound to.
func GetChain() *keychain.Chain {
	return &keychain.Chain{
		Type: uint8(GetInt(ChainTypeKey)),
		ID:   GetUint64(ChainIDKey),
	}
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// IsSet returns whether the give key is set
func IsSet(key string) bool {
	return vip.IsSet(key)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	if addr := GetString(ContractAddressKey); len(addr) > 0 {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf(
				"%s must be a valid contract address", ContractAddressKey,
			)
		}
	}

	if chunkSize := GetInt(ChunkSizeKey); chunkSize <= 0 {
		return fmt.Errorf("%s must be a positive integer", ChunkSizeKey)
	}

	if chainType := GetInt(ChainTypeKey); chainType < 0 || chainType > 255 {
		return fmt.Errorf("%s must fit one byte", ChainTypeKey)
	}

	return nil
}

func initDatadir() error {
	return makeDirectoryIfNotExists(GetDatadir())
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
