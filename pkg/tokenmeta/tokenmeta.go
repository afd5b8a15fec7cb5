// Package tokenmeta resolves ERC-20 display metadata (symbol, decimals) for
// the balance views. Resolution is best effort: tokens that do not answer the
// optional metadata methods render under a sentinel symbol with 18 decimals.
package tokenmeta

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	// UnknownSymbol is the sentinel rendered for tokens whose metadata
	// could not be resolved.
	UnknownSymbol = "UNKNOWN"
	// DefaultDecimals ...
	DefaultDecimals = uint8(18)
)

// ErrNullClient ...
var ErrNullClient = errors.New("contract caller must not be null")

const erc20ABIJSON = `[
  {"type":"function","name":"symbol","stateMutability":"view",
    "inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"decimals","stateMutability":"view",
    "inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var erc20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(err)
	}
	erc20ABI = parsed
}

// Metadata is the resolved display info of one token.
type Metadata struct {
	Symbol   string
	Decimals uint8
}

// Format renders a raw integer amount in display units, eg 1500000
// with 6 decimals as "1.5".
func (m Metadata) Format(amount *big.Int) string {
	if amount == nil {
		amount = new(big.Int)
	}
	return decimal.NewFromBigInt(amount, -int32(m.Decimals)).String()
}

// ContractCaller is the read-only RPC surface the resolver needs. It is
// satisfied by *ethclient.Client.
type ContractCaller interface {
	CallContract(
		ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int,
	) ([]byte, error)
}

// Service resolves and caches token metadata.
type Service interface {
	// Metadata returns the metadata of the token, resolving it on chain on
	// first sight and from the in-memory cache afterwards. Unresolvable
	// tokens yield the UnknownSymbol sentinel, never an error.
	Metadata(ctx context.Context, token common.Address) Metadata
}

// ServiceOpts is the struct given to the NewService method.
type ServiceOpts struct {
	Client ContractCaller
}

func (o ServiceOpts) validate() error {
	if o.Client == nil {
		return ErrNullClient
	}
	return nil
}

type metaService struct {
	client ContractCaller

	lock  sync.RWMutex
	cache map[common.Address]Metadata
}

// NewService returns a new Service from the given opts.
func NewService(opts ServiceOpts) (Service, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &metaService{
		client: opts.Client,
		cache:  make(map[common.Address]Metadata),
	}, nil
}

func (s *metaService) Metadata(ctx context.Context, token common.Address) Metadata {
	s.lock.RLock()
	meta, ok := s.cache[token]
	s.lock.RUnlock()
	if ok {
		return meta
	}

	meta = Metadata{Symbol: UnknownSymbol, Decimals: DefaultDecimals}
	if symbol, err := s.callSymbol(ctx, token); err == nil {
		meta.Symbol = symbol
	}
	if decimals, err := s.callDecimals(ctx, token); err == nil {
		meta.Decimals = decimals
	}

	// sentinel results are cached too, a token without metadata will not
	// grow any by being asked again every refresh
	s.lock.Lock()
	s.cache[token] = meta
	s.lock.Unlock()
	return meta
}

func (s *metaService) callSymbol(
	ctx context.Context, token common.Address,
) (string, error) {
	ret, err := s.call(ctx, token, "symbol")
	if err != nil {
		return "", err
	}
	values, err := erc20ABI.Methods["symbol"].Outputs.Unpack(ret)
	if err != nil || len(values) != 1 {
		return "", err
	}
	symbol, ok := values[0].(string)
	if !ok || len(symbol) <= 0 {
		return "", errors.New("empty symbol")
	}
	return symbol, nil
}

func (s *metaService) callDecimals(
	ctx context.Context, token common.Address,
) (uint8, error) {
	ret, err := s.call(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}
	values, err := erc20ABI.Methods["decimals"].Outputs.Unpack(ret)
	if err != nil || len(values) != 1 {
		return 0, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, errors.New("malformed decimals")
	}
	return decimals, nil
}

func (s *metaService) call(
	ctx context.Context, token common.Address, method string,
) ([]byte, error) {
	data, err := erc20ABI.Pack(method)
	if err != nil {
		return nil, err
	}
	ret, err := s.client.CallContract(
		ctx, ethereum.CallMsg{To: &token, Data: data}, nil,
	)
	if err != nil {
		return nil, err
	}
	if len(ret) <= 0 {
		return nil, errors.New("empty return data")
	}
	return ret, nil
}
