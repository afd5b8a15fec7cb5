package ledger

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"

	"github.com/veil-network/veil-wallet/pkg/circuitbreaker"
)

const (
	// DefaultChunkSize is the default block span of one log query. Public
	// log APIs commonly cap the span per call, tens of thousands of blocks
	// is a conservative default.
	DefaultChunkSize = uint64(10000)
	// DefaultMaxRetries is the number of attempts per chunk before it is
	// reported as failed.
	DefaultMaxRetries = 3
	// DefaultRequestsPerSecond paces the log queries.
	DefaultRequestsPerSecond = 10
)

// ChainClient is the subset of an Ethereum JSON-RPC client the ledger
// service depends on. *ethclient.Client satisfies it.
type ChainClient interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Service retrieves and parses the pool contract's ledger events in
// independently retried chunks.
type Service interface {
	// Commitments returns all commitment records in [fromBlock, toBlock],
	// deterministically ordered, plus the chunks that failed. A failed
	// chunk does not abort the query.
	Commitments(ctx context.Context, fromBlock, toBlock uint64) ([]CommitmentRecord, []ChunkError, error)
	// Nullifiers returns all nullifier records in [fromBlock, toBlock]
	// plus the chunks that failed.
	Nullifiers(ctx context.Context, fromBlock, toBlock uint64) ([]NullifierRecord, []ChunkError, error)
	// HeadBlock returns the current chain head.
	HeadBlock(ctx context.Context) (uint64, error)
	// MerkleRoot reads the contract's current accumulator root.
	MerkleRoot(ctx context.Context) (string, error)
	// TokenBlocked reads the contract's token blocklist.
	TokenBlocked(ctx context.Context, token common.Address) (bool, error)
}

type ledgerService struct {
	client          ChainClient
	contractAddress common.Address
	chunkSize       uint64
	maxRetries      int
	limiter         ratelimit.Limiter
	breaker         *gobreaker.CircuitBreaker
}

// ServiceOpts is the struct given to the NewService method
type ServiceOpts struct {
	Client          ChainClient
	ContractAddress common.Address
	// ChunkSize overrides DefaultChunkSize when positive.
	ChunkSize uint64
	// MaxRetries overrides DefaultMaxRetries when positive.
	MaxRetries int
	// RequestsPerSecond overrides DefaultRequestsPerSecond when positive.
	RequestsPerSecond int
}

func (o ServiceOpts) validate() error {
	if o.Client == nil {
		return ErrNullClient
	}
	if o.ContractAddress == (common.Address{}) {
		return ErrNullContractAddress
	}
	return nil
}

// NewService returns a ledger Service backed by the given chain client.
func NewService(opts ServiceOpts) (Service, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	return &ledgerService{
		client:          opts.Client,
		contractAddress: opts.ContractAddress,
		chunkSize:       chunkSize,
		maxRetries:      maxRetries,
		limiter:         ratelimit.New(rps),
		breaker:         circuitbreaker.NewCircuitBreaker("ledger"),
	}, nil
}

func (s *ledgerService) Commitments(
	ctx context.Context, fromBlock, toBlock uint64,
) ([]CommitmentRecord, []ChunkError, error) {
	topics := [][]common.Hash{{
		PoolABI.Events["Shield"].ID,
		PoolABI.Events["Transact"].ID,
	}}

	records := make([]CommitmentRecord, 0)
	failed, err := s.scanChunks(ctx, fromBlock, toBlock, topics, func(l types.Log) error {
		parsed, err := parseCommitmentLog(l)
		if err != nil {
			return err
		}
		records = append(records, parsed...)
		return nil
	})
	if err != nil {
		return nil, failed, err
	}

	// deterministic merge regardless of chunk boundaries
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].BlockNumber != records[j].BlockNumber {
			return records[i].BlockNumber < records[j].BlockNumber
		}
		if records[i].LogIndex != records[j].LogIndex {
			return records[i].LogIndex < records[j].LogIndex
		}
		return records[i].PositionOffset < records[j].PositionOffset
	})
	return records, failed, nil
}

func (s *ledgerService) Nullifiers(
	ctx context.Context, fromBlock, toBlock uint64,
) ([]NullifierRecord, []ChunkError, error) {
	topics := [][]common.Hash{{PoolABI.Events["Nullified"].ID}}

	records := make([]NullifierRecord, 0)
	failed, err := s.scanChunks(ctx, fromBlock, toBlock, topics, func(l types.Log) error {
		parsed, err := parseNullifierLog(l)
		if err != nil {
			return err
		}
		records = append(records, parsed...)
		return nil
	})
	if err != nil {
		return nil, failed, err
	}
	return records, failed, nil
}

// scanChunks walks [fromBlock, toBlock] in chunkSize windows. Each chunk is
// fetched through the rate limiter and the circuit breaker with bounded
// retries; a chunk that still fails is recorded and skipped. The only hard
// error is context cancellation, which is safe between chunks by design.
func (s *ledgerService) scanChunks(
	ctx context.Context,
	fromBlock, toBlock uint64,
	topics [][]common.Hash,
	handle func(types.Log) error,
) ([]ChunkError, error) {
	if fromBlock > toBlock {
		return nil, ErrInvalidBlockRange
	}

	failed := make([]ChunkError, 0)
	for start := fromBlock; ; {
		if err := ctx.Err(); err != nil {
			return failed, err
		}

		end := start + s.chunkSize - 1
		if end > toBlock {
			end = toBlock
		}

		logs, err := s.fetchChunk(ctx, start, end, topics)
		if err != nil {
			if ctx.Err() != nil {
				return failed, ctx.Err()
			}
			log.WithError(err).Warnf(
				"ledger: skipping blocks [%d, %d] after %d attempts",
				start, end, s.maxRetries,
			)
			failed = append(failed, ChunkError{FromBlock: start, ToBlock: end, Err: err})
		} else {
			for _, l := range logs {
				if err := handle(l); err != nil {
					// malformed single log, skip it but keep the chunk
					log.WithError(err).Warnf(
						"ledger: dropping malformed log %s:%d", l.TxHash, l.Index,
					)
				}
			}
		}

		if end == toBlock {
			break
		}
		start = end + 1
	}
	return failed, nil
}

func (s *ledgerService) fetchChunk(
	ctx context.Context, fromBlock, toBlock uint64, topics [][]common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{s.contractAddress},
		Topics:    topics,
	}

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.limiter.Take()

		result, err := s.breaker.Execute(func() (interface{}, error) {
			return s.client.FilterLogs(ctx, query)
		})
		if err == nil {
			return result.([]types.Log), nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *ledgerService) HeadBlock(ctx context.Context) (uint64, error) {
	return s.client.BlockNumber(ctx)
}

func (s *ledgerService) MerkleRoot(ctx context.Context) (string, error) {
	data, err := PoolABI.Pack("merkleRoot")
	if err != nil {
		return "", err
	}
	raw, err := s.call(ctx, data)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(common.BytesToHash(raw).Bytes()), nil
}

func (s *ledgerService) TokenBlocked(ctx context.Context, token common.Address) (bool, error) {
	data, err := PoolABI.Pack("tokenBlocklist", token)
	if err != nil {
		return false, err
	}
	raw, err := s.call(ctx, data)
	if err != nil {
		return false, err
	}
	values, err := PoolABI.Unpack("tokenBlocklist", raw)
	if err != nil {
		return false, err
	}
	blocked, _ := values[0].(bool)
	return blocked, nil
}

func (s *ledgerService) call(ctx context.Context, data []byte) ([]byte, error) {
	s.limiter.Take()
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.CallContract(ctx, ethereum.CallMsg{
			To:   &s.contractAddress,
			Data: data,
		}, nil)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
